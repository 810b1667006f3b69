package exporters

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/xray"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// XRayAPI is the subset of the X-Ray API used by the exporter.
type XRayAPI interface {
	PutTraceSegments(ctx context.Context, params *xray.PutTraceSegmentsInput, optFns ...func(*xray.Options)) (*xray.PutTraceSegmentsOutput, error)
}

// XRayExporter exports traces to AWS X-Ray
type XRayExporter struct {
	client      XRayAPI
	serviceName string
}

// NewXRayExporter creates an exporter using the caller's own AWS config.
func NewXRayExporter(cfg aws.Config, serviceName string) *XRayExporter {
	return NewXRayExporterWithClient(xray.NewFromConfig(cfg), serviceName)
}

// NewXRayExporterWithClient creates an exporter around an existing client.
func NewXRayExporterWithClient(client XRayAPI, serviceName string) *XRayExporter {
	return &XRayExporter{
		client:      client,
		serviceName: serviceName,
	}
}

// ExportSpans exports spans to X-Ray
func (e *XRayExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	if len(spans) == 0 {
		return nil
	}

	documents := make([]string, 0, len(spans))
	for _, span := range spans {
		doc, err := e.segmentDocument(span)
		if err != nil {
			log.Warn().Err(err).Str("span", span.Name()).Msg("Failed to convert span to X-Ray document")
			continue
		}
		documents = append(documents, doc)
	}

	if len(documents) == 0 {
		return nil
	}

	out, err := e.client.PutTraceSegments(ctx, &xray.PutTraceSegmentsInput{
		TraceSegmentDocuments: documents,
	})
	if err != nil {
		return fmt.Errorf("failed to put trace segments: %w", err)
	}
	if out != nil && len(out.UnprocessedTraceSegments) > 0 {
		log.Warn().Int("unprocessed", len(out.UnprocessedTraceSegments)).Msg("X-Ray rejected trace segments")
	}

	return nil
}

// Shutdown shuts down the exporter
func (e *XRayExporter) Shutdown(ctx context.Context) error {
	return nil
}

// segmentDocument converts a span into an X-Ray segment (root span) or
// subsegment (child span) document.
func (e *XRayExporter) segmentDocument(span sdktrace.ReadOnlySpan) (string, error) {
	traceID := span.SpanContext().TraceID().String()

	segment := map[string]interface{}{
		"trace_id":   fmt.Sprintf("1-%s-%s", traceID[:8], traceID[8:]),
		"id":         span.SpanContext().SpanID().String(),
		"name":       e.serviceName,
		"start_time": float64(span.StartTime().UnixNano()) / 1e9,
		"end_time":   float64(span.EndTime().UnixNano()) / 1e9,
	}

	if span.Parent().IsValid() {
		segment["type"] = "subsegment"
		segment["parent_id"] = span.Parent().SpanID().String()
		segment["name"] = span.Name()
	}

	if span.Status().Code == codes.Error {
		segment["fault"] = true
	}

	if attrs := span.Attributes(); len(attrs) > 0 {
		annotations := make(map[string]interface{}, len(attrs))
		for _, attr := range attrs {
			annotations[xrayKey(string(attr.Key))] = attr.Value.AsInterface()
		}
		segment["annotations"] = annotations
	}

	data, err := json.Marshal(segment)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// xrayKey maps an attribute key to the X-Ray annotation alphabet
// (alphanumerics and underscore).
func xrayKey(key string) string {
	out := []byte(key)
	for i, c := range out {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			out[i] = '_'
		}
	}
	return string(out)
}
