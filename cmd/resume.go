package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/scttfrdmn/asgresume/pkg/audit"
	"github.com/scttfrdmn/asgresume/pkg/observability/metrics"
	"github.com/scttfrdmn/asgresume/pkg/orchestrator"
)

var (
	resumeASGName string
	resumeAudit   bool
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Wait for a group to become healthy and resume Launch and Terminate",
	Long: `Resume finds the account holding the Auto Scaling group, polls instance
health until every member reports Healthy or the timeout passes, then resumes
the Launch and Terminate processes. A health timeout is logged and the resume
still happens.

The command exits non-zero unless the resume succeeded.`,
	RunE: runResume,
}

func init() {
	flags := resumeCmd.Flags()
	flags.StringVarP(&resumeASGName, "asg-name", "n", "", "Auto Scaling group name (required)")
	flags.BoolVar(&resumeAudit, "audit", false, "Write JSON audit events to stderr")

	flags.Duration("poll-interval", 0, "Time between health samples (default 30s)")
	flags.Duration("timeout", 0, "How long to wait for healthy instances (default 10m)")
	flags.String("notify-topic", "", "SNS topic ARN that receives the result")
	flags.Bool("metrics", false, "Serve Prometheus metrics while the command runs")
	flags.Int("metrics-port", 0, "Metrics server port (default 9090)")
	flags.Bool("trace", false, "Enable OpenTelemetry tracing")
	flags.String("trace-exporter", "", "Trace exporter (xray, stdout)")

	bindFlags(flags, map[string]string{
		"poll-interval":  "poll_interval",
		"timeout":        "timeout",
		"notify-topic":   "notify_topic_arn",
		"metrics":        "metrics.enabled",
		"metrics-port":   "metrics.port",
		"trace":          "tracing.enabled",
		"trace-exporter": "tracing.exporter",
	})

	resumeCmd.MarkFlagRequired("asg-name")
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	printer, err := newPrinter(cmd)
	if err != nil {
		return err
	}

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Msg("Failed to flush traces")
		}
	}()

	if settings.Metrics.Enabled && a.Registry != nil {
		srvCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := metrics.NewServer(settings.Metrics, a.Registry).Start(srvCtx); err != nil {
			return err
		}
	}

	var auditOut io.Writer
	if resumeAudit {
		auditOut = os.Stderr
	}
	ctx = audit.NewRunContext(ctx, "", auditOut)

	result, err := a.Run(ctx, orchestrator.Request{ASGName: resumeASGName})
	if err != nil {
		return fmt.Errorf("failed to load cross-account roles: %w", err)
	}

	if err := printer.PrintResult(result); err != nil {
		return err
	}
	if result.Status != orchestrator.StatusSuccess {
		return fmt.Errorf("resume %s: %s", result.ASGName, result.Status)
	}
	return nil
}
