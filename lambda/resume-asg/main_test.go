package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scttfrdmn/asgresume/pkg/app"
	"github.com/scttfrdmn/asgresume/pkg/audit"
	awsclient "github.com/scttfrdmn/asgresume/pkg/aws"
	"github.com/scttfrdmn/asgresume/pkg/aws/mock"
	"github.com/scttfrdmn/asgresume/pkg/config"
	"github.com/scttfrdmn/asgresume/pkg/orchestrator"
	"github.com/scttfrdmn/asgresume/pkg/testutil"
)

func newTestHandler(t *testing.T, store config.Store, asg *mock.MockAutoScalingClient) (*handler, *bytes.Buffer) {
	t.Helper()

	settings, err := config.Load(config.NewViper(), "")
	require.NoError(t, err)

	a, err := app.Build(context.Background(), settings,
		app.WithAWSConfig(aws.Config{Region: "us-east-1"}),
		app.WithStore(store),
		app.WithSTS(mock.NewMockSTSClient()),
		app.WithAutoScalingFactory(func(cfg aws.Config) awsclient.AutoScalingAPI { return asg }),
		app.WithClock(testutil.NewFakeClock(time.Date(2026, 10, 18, 2, 0, 0, 0, time.UTC))),
		app.WithoutMetrics(),
	)
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	return &handler{app: a, auditOut: buf}, buf
}

func TestHandleSuccess(t *testing.T) {
	asg := mock.NewMockAutoScalingClient("222222222222")
	asg.AddGroup("web-tier-asg", []string{"Healthy", "Healthy"}, "Launch", "Terminate")
	store := config.NewStaticStore([]string{"arn:aws:iam::222222222222:role/asg-scheduler"})
	h, auditBuf := newTestHandler(t, store, asg)

	ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{AwsRequestID: "c6af9ac6-7b61-11e6-9a41-93e8deadbeef"})
	resp, err := h.Handle(ctx, orchestrator.Request{ASGName: "web-tier-asg"})
	require.NoError(t, err)

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, `"Successful"`, resp.Body)
	assert.Equal(t, 1, asg.ResumeProcessesCalls)

	var first audit.AuditEvent
	require.NoError(t, json.NewDecoder(auditBuf).Decode(&first))
	assert.Equal(t, "c6af9ac6-7b61-11e6-9a41-93e8deadbeef", first.CorrelationID)
	assert.Equal(t, audit.OpAssumeRole, first.Operation)
}

func TestHandleEvent(t *testing.T) {
	var event orchestrator.Request
	require.NoError(t, json.Unmarshal([]byte(`{"asg_name": "web-tier-asg"}`), &event))
	assert.Equal(t, "web-tier-asg", event.ASGName)
}

func TestHandleOutcomes(t *testing.T) {
	tests := []struct {
		name     string
		asgName  string
		store    config.Store
		wantCode int
		wantBody string
	}{
		{
			name:     "group in no account",
			asgName:  "batch-asg",
			store:    config.NewStaticStore([]string{"arn:aws:iam::111111111111:role/asg-scheduler"}),
			wantCode: 404,
			wantBody: `"NotFound"`,
		},
		{
			name:     "empty name",
			asgName:  "",
			store:    config.NewStaticStore([]string{"arn:aws:iam::111111111111:role/asg-scheduler"}),
			wantCode: 400,
			wantBody: `"Invalid"`,
		},
		{
			name:     "no role configuration",
			asgName:  "web-tier-asg",
			store:    config.NewStaticStore(nil),
			wantCode: 500,
			wantBody: `"Error"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asg := mock.NewMockAutoScalingClient("111111111111")
			asg.AddGroup("web-tier-asg", []string{"Healthy"})
			h, _ := newTestHandler(t, tt.store, asg)

			resp, err := h.Handle(context.Background(), orchestrator.Request{ASGName: tt.asgName})
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, resp.StatusCode)
			assert.Equal(t, tt.wantBody, resp.Body)
			assert.Equal(t, 0, asg.ResumeProcessesCalls)
		})
	}
}

func TestInvokeStoreFailureReturnsErrorResponse(t *testing.T) {
	asg := mock.NewMockAutoScalingClient("111111111111")
	h, _ := newTestHandler(t, config.NewStaticStore(nil), asg)

	payload, err := lambda.NewHandler(h.Handle).Invoke(context.Background(), []byte(`{"asg_name":"web-tier-asg"}`))
	require.NoError(t, err)

	var resp orchestrator.Response
	require.NoError(t, json.Unmarshal(payload, &resp))
	assert.Equal(t, 500, resp.StatusCode)
	assert.Equal(t, `"Error"`, resp.Body)
	assert.Zero(t, asg.ResumeProcessesCalls)
}

func TestInvokeSuccessPayload(t *testing.T) {
	asg := mock.NewMockAutoScalingClient("222222222222")
	asg.AddGroup("web-tier-asg", []string{"Healthy"}, "Launch", "Terminate")
	store := config.NewStaticStore([]string{"arn:aws:iam::222222222222:role/asg-scheduler"})
	h, _ := newTestHandler(t, store, asg)

	payload, err := lambda.NewHandler(h.Handle).Invoke(context.Background(), []byte(`{"asg_name":"web-tier-asg"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"statusCode":200,"body":"\"Successful\""}`, string(payload))
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ASGRESUME_TEST_VALUE", "set")
	assert.Equal(t, "set", getEnv("ASGRESUME_TEST_VALUE", "default"))
	assert.Equal(t, "default", getEnv("ASGRESUME_TEST_UNSET", "default"))
}
