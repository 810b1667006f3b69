package aws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scttfrdmn/asgresume/pkg/audit"
	"github.com/scttfrdmn/asgresume/pkg/aws/mock"
)

const testRole = "arn:aws:iam::222222222222:role/ASGSchedulerCrossAccountRole"

func newTestResolver(stsClient *mock.MockSTSClient, opts ...ResolverOption) (*Resolver, *[]aws.Config) {
	var built []aws.Config
	opts = append(opts, WithClientFactory(func(cfg aws.Config) AutoScalingAPI {
		built = append(built, cfg)
		return mock.NewMockAutoScalingClient("222222222222")
	}))
	base := aws.Config{Region: "eu-west-1"}
	return NewResolver(base, stsClient, opts...), &built
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	stsClient := mock.NewMockSTSClient()
	resolver, built := newTestResolver(stsClient)

	execCtx, err := resolver.Resolve(ctx, testRole)
	require.NoError(t, err)

	assert.Equal(t, "222222222222", execCtx.AccountID)
	assert.Equal(t, testRole, execCtx.RoleARN)
	assert.Equal(t, "asg-scheduler-222222222222", execCtx.SessionName)
	assert.NotNil(t, execCtx.Client)
	assert.False(t, execCtx.Expires.IsZero())

	require.Equal(t, 1, stsClient.AssumeRoleCalls)
	input := stsClient.AssumeRoleInputs[0]
	assert.Equal(t, testRole, aws.ToString(input.RoleArn))
	assert.Equal(t, "asg-scheduler-222222222222", aws.ToString(input.RoleSessionName))
	assert.Equal(t, int32(3600), aws.ToInt32(input.DurationSeconds))

	require.Len(t, *built, 1)
	cfg := (*built)[0]
	assert.Equal(t, "eu-west-1", cfg.Region)

	creds, err := cfg.Credentials.Retrieve(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, creds.AccessKeyID)
	assert.NotEmpty(t, creds.SessionToken)
}

func TestResolveOptions(t *testing.T) {
	stsClient := mock.NewMockSTSClient()
	resolver, _ := newTestResolver(stsClient,
		WithSessionPrefix("maintenance"),
		WithSessionDuration(15*time.Minute),
	)

	execCtx, err := resolver.Resolve(context.Background(), testRole)
	require.NoError(t, err)

	assert.Equal(t, "maintenance-222222222222", execCtx.SessionName)
	assert.Equal(t, int32(900), aws.ToInt32(stsClient.AssumeRoleInputs[0].DurationSeconds))
}

func TestResolveZeroDurationLeavesDefault(t *testing.T) {
	stsClient := mock.NewMockSTSClient()
	resolver, _ := newTestResolver(stsClient, WithSessionDuration(0))

	_, err := resolver.Resolve(context.Background(), testRole)
	require.NoError(t, err)
	assert.Nil(t, stsClient.AssumeRoleInputs[0].DurationSeconds)
}

func TestResolveFailures(t *testing.T) {
	tests := []struct {
		name      string
		roleARN   string
		setup     func(*mock.MockSTSClient)
		wantCalls int
	}{
		{
			name:      "access denied",
			roleARN:   testRole,
			setup:     func(m *mock.MockSTSClient) { m.Deny(testRole) },
			wantCalls: 1,
		},
		{
			name:      "network failure",
			roleARN:   testRole,
			setup:     func(m *mock.MockSTSClient) { m.AssumeRoleErr = errors.New("dial tcp: i/o timeout") },
			wantCalls: 1,
		},
		{
			name:      "no credentials",
			roleARN:   testRole,
			setup:     func(m *mock.MockSTSClient) { m.NoCredentials = true },
			wantCalls: 1,
		},
		{
			name:      "malformed ARN never reaches STS",
			roleARN:   "not-a-role",
			setup:     func(m *mock.MockSTSClient) {},
			wantCalls: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stsClient := mock.NewMockSTSClient()
			tt.setup(stsClient)
			resolver, built := newTestResolver(stsClient)

			execCtx, err := resolver.Resolve(context.Background(), tt.roleARN)
			assert.Nil(t, execCtx)
			assert.ErrorIs(t, err, ErrAssumeRole)
			assert.Equal(t, tt.wantCalls, stsClient.AssumeRoleCalls)
			assert.Empty(t, *built)
		})
	}
}

func TestResolveWritesAuditEvents(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := audit.SetLoggerInContext(context.Background(), audit.NewLogger(buf, "corr-1"))

	stsClient := mock.NewMockSTSClient()
	denied := "arn:aws:iam::111111111111:role/ASGSchedulerCrossAccountRole"
	stsClient.Deny(denied)
	resolver, _ := newTestResolver(stsClient)

	_, err := resolver.Resolve(ctx, denied)
	require.Error(t, err)
	_, err = resolver.Resolve(ctx, testRole)
	require.NoError(t, err)

	dec := json.NewDecoder(buf)
	var first, second audit.AuditEvent
	require.NoError(t, dec.Decode(&first))
	require.NoError(t, dec.Decode(&second))

	assert.Equal(t, audit.OpAssumeRole, first.Operation)
	assert.Equal(t, audit.ResultFailed, first.Result)
	assert.Equal(t, "111111111111", first.AccountID)
	assert.Equal(t, "error", first.Level)
	assert.Equal(t, "corr-1", first.CorrelationID)

	assert.Equal(t, audit.ResultSuccess, second.Result)
	assert.Equal(t, "222222222222", second.AccountID)
	assert.Equal(t, "asg-scheduler-222222222222", second.AdditionalData["session_name"])
}

func TestResolveTrimsRoleARN(t *testing.T) {
	stsClient := mock.NewMockSTSClient()
	stsClient.Deny(testRole)
	resolver, _ := newTestResolver(mock.NewMockSTSClient())

	execCtx, err := resolver.Resolve(context.Background(), "  "+testRole+"\n")
	require.NoError(t, err)
	assert.Equal(t, testRole, execCtx.RoleARN)

	// A denial keyed on the clean ARN must match the padded input.
	denying, _ := newTestResolver(stsClient)
	_, err = denying.Resolve(context.Background(), " "+testRole)
	require.ErrorIs(t, err, ErrAssumeRole)
	require.Equal(t, 1, stsClient.AssumeRoleCalls)
	assert.Equal(t, testRole, aws.ToString(stsClient.AssumeRoleInputs[0].RoleArn))
}
