package tracing

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/scttfrdmn/asgresume/pkg/observability"
	"github.com/scttfrdmn/asgresume/pkg/observability/tracing/exporters"
)

// ServiceName is reported as service.name and used as the tracer name.
const ServiceName = "asgresume"

// Version is reported as service.version.
var Version = "0.1.0"

// Tracer wraps OpenTelemetry tracer
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewTracer creates a tracer from config. awsCfg is only used by the X-Ray
// exporter.
func NewTracer(ctx context.Context, config observability.TracingConfig, awsCfg aws.Config) (*Tracer, error) {
	if !config.Enabled {
		return &Tracer{
			tracer: otel.GetTracerProvider().Tracer(ServiceName),
		}, nil
	}

	var exporter sdktrace.SpanExporter
	switch config.Exporter {
	case observability.ExporterXRay:
		exporter = exporters.NewXRayExporter(awsCfg, ServiceName)
	case observability.ExporterStdout:
		exporter = exporters.NewStdoutExporter(nil)
	default:
		return nil, fmt.Errorf("unsupported exporter: %s", config.Exporter)
	}

	return NewTracerWithExporter(ctx, config, awsCfg.Region, exporter)
}

// NewTracerWithExporter creates an enabled tracer around exporter and installs
// it as the global provider.
func NewTracerWithExporter(ctx context.Context, config observability.TracingConfig, region string, exporter sdktrace.SpanExporter) (*Tracer, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(Version),
			attribute.String("cloud.provider", "aws"),
			attribute.String("cloud.region", region),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(config.SamplingRate))),
	)
	otel.SetTracerProvider(provider)

	log.Info().
		Str("exporter", config.Exporter).
		Float64("sampling", config.SamplingRate).
		Msg("Tracing enabled")

	return &Tracer{
		provider: provider,
		tracer:   provider.Tracer(ServiceName),
	}, nil
}

// Shutdown flushes and shuts down the tracer
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t == nil || t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// ForceFlush exports buffered spans. The Lambda calls it before returning
// from each invocation because the sandbox may be frozen afterwards.
func (t *Tracer) ForceFlush(ctx context.Context) error {
	if t == nil || t.provider == nil {
		return nil
	}
	return t.provider.ForceFlush(ctx)
}

// Tracer returns the OpenTelemetry tracer
func (t *Tracer) Tracer() trace.Tracer {
	return t.tracer
}
