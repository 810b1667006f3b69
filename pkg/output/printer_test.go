package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/scttfrdmn/asgresume/pkg/orchestrator"
	"github.com/scttfrdmn/asgresume/pkg/scaling"
)

func sampleResult() orchestrator.Result {
	return orchestrator.Result{
		ASGName:   "web-tier-asg",
		Status:    orchestrator.StatusSuccess,
		RoleARN:   "arn:aws:iam::222222222222:role/SchedulerCrossAccount",
		AccountID: "222222222222",
		Polled:    true,
		Poll: scaling.PollResult{
			Outcome: scaling.AllHealthy,
			Samples: 3,
			Elapsed: time.Minute,
		},
		Attempts: []orchestrator.Attempt{
			{
				Role:      "arn:aws:iam::111111111111:role/SchedulerCrossAccount",
				AccountID: "111111111111",
				Stage:     orchestrator.StageResolve,
				Err:       errors.New("AccessDenied"),
			},
			{
				Role:      "arn:aws:iam::222222222222:role/SchedulerCrossAccount",
				AccountID: "222222222222",
				Stage:     orchestrator.StageResume,
				Found:     true,
			},
		},
		Duration: 61 * time.Second,
	}
}

func TestNewPrinterFormats(t *testing.T) {
	tests := []struct {
		format  string
		want    string
		wantErr bool
	}{
		{format: "", want: FormatTable},
		{format: "table", want: FormatTable},
		{format: "json", want: FormatJSON},
		{format: "yaml", want: FormatYAML},
		{format: "csv", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			p, err := NewPrinter(&bytes.Buffer{}, tt.format, false)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Format())
		})
	}
}

func TestNewResultView(t *testing.T) {
	v := NewResultView(sampleResult())

	assert.Equal(t, "Successful", v.Status)
	assert.Equal(t, 200, v.StatusCode)
	assert.Equal(t, "all_healthy", v.Health)
	assert.Equal(t, 3, v.Samples)
	assert.Equal(t, "1m0s", v.PollElapsed)
	assert.Equal(t, "1m1s", v.Duration)
	require.Len(t, v.Attempts, 2)
	assert.Equal(t, "AccessDenied", v.Attempts[0].Error)
	assert.True(t, v.Attempts[1].Found)

	notPolled := NewResultView(orchestrator.Result{ASGName: "x", Status: orchestrator.StatusNotFound})
	assert.Empty(t, notPolled.Health)
	assert.Zero(t, notPolled.Samples)
	assert.Equal(t, 404, notPolled.StatusCode)
	assert.NotNil(t, notPolled.Attempts)
}

func TestPrintResultJSON(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewPrinter(&buf, FormatJSON, false)
	require.NoError(t, err)
	require.NoError(t, p.PrintResult(sampleResult()))

	var got ResultView
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "web-tier-asg", got.ASGName)
	assert.Equal(t, "222222222222", got.AccountID)
	assert.Len(t, got.Attempts, 2)
}

func TestPrintResultYAML(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewPrinter(&buf, FormatYAML, false)
	require.NoError(t, err)
	require.NoError(t, p.PrintResult(sampleResult()))

	var got map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "Successful", got["status"])
	assert.Equal(t, 200, got["status_code"])
}

func TestPrintResultTable(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewPrinter(&buf, FormatTable, false)
	require.NoError(t, err)
	require.NoError(t, p.PrintResult(sampleResult()))

	out := buf.String()
	assert.Contains(t, out, "web-tier-asg Successful (200)")
	assert.Contains(t, out, "Account:  222222222222")
	assert.Contains(t, out, "all_healthy after 3 sample(s)")
	assert.Contains(t, out, "ACCOUNT")
	assert.Contains(t, out, "111111111111")
	assert.Contains(t, out, "AccessDenied")
}

func TestPrintRoles(t *testing.T) {
	rows := []RoleRow{
		{Role: "arn:aws:iam::111111111111:role/A", AccountID: "111111111111"},
		{Role: "not-an-arn", Error: "invalid role ARN"},
	}

	var buf bytes.Buffer
	p, err := NewPrinter(&buf, FormatTable, false)
	require.NoError(t, err)
	require.NoError(t, p.PrintRoles(rows))
	assert.Contains(t, buf.String(), "2 candidate role(s)")
	assert.Contains(t, buf.String(), "not-an-arn")

	buf.Reset()
	p, err = NewPrinter(&buf, FormatJSON, false)
	require.NoError(t, err)
	require.NoError(t, p.PrintRoles(rows))

	var got []RoleRow
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, rows, got)
}
