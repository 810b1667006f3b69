package main

import (
	"context"
	"io"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/rs/zerolog/log"

	"github.com/scttfrdmn/asgresume/pkg/app"
	"github.com/scttfrdmn/asgresume/pkg/audit"
	"github.com/scttfrdmn/asgresume/pkg/config"
	"github.com/scttfrdmn/asgresume/pkg/logging"
	"github.com/scttfrdmn/asgresume/pkg/orchestrator"
)

// handler serves invocations with a runtime built once per cold start.
type handler struct {
	app      *app.App
	auditOut io.Writer
}

func main() {
	ctx := context.Background()

	settings, err := config.Load(config.NewViper(), getEnv("ASGRESUME_CONFIG_FILE", ""))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load settings")
	}
	if err := logging.Setup(logging.Options{Level: settings.LogLevel}); err != nil {
		log.Fatal().Err(err).Msg("Failed to configure logging")
	}

	a, err := app.Build(ctx, settings, app.WithoutMetrics())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build runtime")
	}

	h := &handler{app: a, auditOut: os.Stdout}
	lambda.Start(h.Handle)
}

// Handle runs one resume request. The Lambda request id becomes the audit
// correlation id. Every outcome, including a failed role lookup, is reported
// through the Response.
func (h *handler) Handle(ctx context.Context, event orchestrator.Request) (orchestrator.Response, error) {
	requestID := ""
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		requestID = lc.AwsRequestID
	}
	ctx = audit.NewRunContext(ctx, requestID, h.auditOut)
	correlationID := audit.GetCorrelationIDFromContext(ctx)

	log.Info().
		Str("asg", event.ASGName).
		Str("correlation_id", correlationID).
		Msg("Received resume request")

	defer func() {
		if err := h.app.Tracer.ForceFlush(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Msg("Failed to flush traces")
		}
	}()

	// Store failures are answered with the 500 response, never a handler error.
	result, err := h.app.Run(ctx, event)
	if err != nil {
		log.Error().Err(err).
			Str("asg", event.ASGName).
			Str("correlation_id", correlationID).
			Msg("Resume request failed before any account was tried")
	}
	return result.Response(), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
