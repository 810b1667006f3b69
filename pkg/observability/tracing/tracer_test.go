package tracing

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scttfrdmn/asgresume/pkg/observability"
	"github.com/scttfrdmn/asgresume/pkg/observability/tracing/exporters"
)

func TestNewTracer_Disabled(t *testing.T) {
	ctx := context.Background()

	tracer, err := NewTracer(ctx, observability.TracingConfig{Enabled: false}, aws.Config{})
	require.NoError(t, err)
	require.NotNil(t, tracer.Tracer())
	assert.Nil(t, tracer.provider)
	assert.NoError(t, tracer.ForceFlush(ctx))
	assert.NoError(t, tracer.Shutdown(ctx))
}

func TestNewTracer_UnsupportedExporter(t *testing.T) {
	_, err := NewTracer(context.Background(), observability.TracingConfig{
		Enabled:  true,
		Exporter: "zipkin",
	}, aws.Config{})
	assert.Error(t, err)
}

func TestNewTracerWithExporter(t *testing.T) {
	ctx := context.Background()
	buf := &bytes.Buffer{}

	tracer, err := NewTracerWithExporter(ctx, observability.TracingConfig{
		Enabled:      true,
		Exporter:     "stdout",
		SamplingRate: 1.0,
	}, "us-east-1", exporters.NewStdoutExporter(buf))
	require.NoError(t, err)

	spanCtx, span := StartSpan(ctx, tracer.Tracer(), "resume.run")
	_, child := StartSpan(spanCtx, tracer.Tracer(), "resume.poll")
	EndSpan(child, errors.New("timed out"))
	EndSpan(span, nil)

	require.NoError(t, tracer.ForceFlush(ctx))
	assert.Contains(t, buf.String(), `"name":"resume.run"`)
	require.NoError(t, tracer.Shutdown(ctx))

	out := buf.String()
	assert.Contains(t, out, `"name":"resume.run"`)
	assert.Contains(t, out, `"name":"resume.poll"`)
	assert.Contains(t, out, `"status":"Error"`)
}

func TestStartSpanNilTracer(t *testing.T) {
	ctx, span := StartSpan(context.Background(), nil, "noop")
	assert.NotNil(t, ctx)
	assert.False(t, span.SpanContext().IsValid())
	EndSpan(span, errors.New("ignored"))
}

func TestInstrumentAWSConfig(t *testing.T) {
	cfg := aws.Config{}
	InstrumentAWSConfig(&cfg)
	assert.NotEmpty(t, cfg.APIOptions)

	copied := cfg.Copy()
	assert.Len(t, copied.APIOptions, len(cfg.APIOptions))
}
