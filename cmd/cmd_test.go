package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scttfrdmn/asgresume/pkg/app"
	awsclient "github.com/scttfrdmn/asgresume/pkg/aws"
	"github.com/scttfrdmn/asgresume/pkg/aws/mock"
	"github.com/scttfrdmn/asgresume/pkg/config"
	"github.com/scttfrdmn/asgresume/pkg/output"
	"github.com/scttfrdmn/asgresume/pkg/testutil"
)

const (
	roleA = "arn:aws:iam::111111111111:role/asg-scheduler"
	roleB = "arn:aws:iam::222222222222:role/asg-scheduler"
)

// withRuntime installs static settings and mocked AWS clients for one test.
func withRuntime(t *testing.T, stsClient *mock.MockSTSClient, asg *mock.MockAutoScalingClient) {
	t.Helper()

	sv := config.NewViper()
	sv.Set("role_source", config.SourceStatic)
	sv.Set("roles", []string{roleA, roleB})
	s, err := config.Load(sv, "")
	require.NoError(t, err)

	prevSettings, prevOptions, prevFormat, prevColor := settings, appOptions, outputFormat, noColor
	t.Cleanup(func() {
		settings, appOptions, outputFormat, noColor = prevSettings, prevOptions, prevFormat, prevColor
	})

	settings = s
	outputFormat = output.FormatJSON
	noColor = true
	appOptions = []app.Option{
		app.WithAWSConfig(aws.Config{Region: "us-east-1"}),
		app.WithSTS(stsClient),
		app.WithAutoScalingFactory(func(cfg aws.Config) awsclient.AutoScalingAPI { return asg }),
		app.WithClock(testutil.NewFakeClock(time.Date(2026, 10, 18, 2, 0, 0, 0, time.UTC))),
	}
}

func testCommand(buf *bytes.Buffer) *cobra.Command {
	c := &cobra.Command{}
	c.SetContext(context.Background())
	c.SetOut(buf)
	return c
}

func TestRunResume(t *testing.T) {
	stsClient := mock.NewMockSTSClient()
	stsClient.Deny(roleA)
	asg := mock.NewMockAutoScalingClient("222222222222")
	asg.AddGroup("web-tier-asg", []string{"Healthy", "Healthy"}, "Launch", "Terminate")
	withRuntime(t, stsClient, asg)

	resumeASGName = "web-tier-asg"
	defer func() { resumeASGName = "" }()

	var buf bytes.Buffer
	require.NoError(t, runResume(testCommand(&buf), nil))

	var got output.ResultView
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "Successful", got.Status)
	assert.Equal(t, "222222222222", got.AccountID)
	assert.NotEmpty(t, got.CorrelationID)
	assert.Len(t, got.Attempts, 2)
	assert.Empty(t, asg.SuspendedProcesses("web-tier-asg"))
}

func TestRunResumeNotFound(t *testing.T) {
	asg := mock.NewMockAutoScalingClient("222222222222")
	withRuntime(t, mock.NewMockSTSClient(), asg)

	resumeASGName = "missing-asg"
	defer func() { resumeASGName = "" }()

	var buf bytes.Buffer
	err := runResume(testCommand(&buf), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NotFound")
	assert.Contains(t, buf.String(), `"status_code": 404`)
	assert.Zero(t, asg.ResumeProcessesCalls)
}

func TestRunResumeRejectsUnknownFormat(t *testing.T) {
	withRuntime(t, mock.NewMockSTSClient(), mock.NewMockAutoScalingClient("222222222222"))
	outputFormat = "csv"

	err := runResume(testCommand(&bytes.Buffer{}), nil)
	assert.Error(t, err)
}

func TestRunLocate(t *testing.T) {
	asg := mock.NewMockAutoScalingClient("222222222222")
	asg.AddGroup("web-tier-asg", []string{"Unhealthy"}, "Launch")
	withRuntime(t, mock.NewMockSTSClient(), asg)

	locateASGName = "web-tier-asg"
	defer func() { locateASGName = "" }()

	var buf bytes.Buffer
	require.NoError(t, runLocate(testCommand(&buf), nil))

	var rows []output.AttemptRow
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Found)
	assert.Equal(t, "locate", rows[0].Stage)
	assert.Zero(t, asg.ResumeProcessesCalls)
	assert.Equal(t, []string{"Launch"}, asg.SuspendedProcesses("web-tier-asg"))
}

func TestRunLocateNotFound(t *testing.T) {
	withRuntime(t, mock.NewMockSTSClient(), mock.NewMockAutoScalingClient("222222222222"))

	locateASGName = "missing-asg"
	defer func() { locateASGName = "" }()

	err := runLocate(testCommand(&bytes.Buffer{}), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found in any of 2 candidate account(s)")
}

func TestRunRoles(t *testing.T) {
	withRuntime(t, mock.NewMockSTSClient(), mock.NewMockAutoScalingClient("222222222222"))

	var buf bytes.Buffer
	require.NoError(t, runRoles(testCommand(&buf), nil))

	var rows []output.RoleRow
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "111111111111", rows[0].AccountID)
	assert.Equal(t, roleB, rows[1].Role)
}

func TestRoleRows(t *testing.T) {
	rows := roleRows([]string{roleA, "arn:aws:s3:::bucket"})
	require.Len(t, rows, 2)
	assert.Equal(t, "111111111111", rows[0].AccountID)
	assert.Empty(t, rows[0].Error)
	assert.NotEmpty(t, rows[1].Error)
}

func TestBuildAppWithoutSettings(t *testing.T) {
	prev := settings
	settings = nil
	defer func() { settings = prev }()

	_, err := buildApp(context.Background())
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	defer versionCmd.SetOut(nil)

	versionCmd.Run(versionCmd, nil)
	assert.Contains(t, buf.String(), "Version:    "+Version)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"resume", "locate", "roles", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
	assert.NotNil(t, resumeCmd.Flags().Lookup("asg-name"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("role-source"))
}
