package exporters

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// StdoutExporter writes one JSON document per span, for local CLI runs.
type StdoutExporter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewStdoutExporter creates an exporter writing to w (stderr when nil).
func NewStdoutExporter(w io.Writer) *StdoutExporter {
	if w == nil {
		w = os.Stderr
	}
	return &StdoutExporter{w: w}
}

// ExportSpans writes spans as JSON lines.
func (e *StdoutExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	enc := json.NewEncoder(e.w)
	for _, span := range spans {
		data := map[string]interface{}{
			"trace_id": span.SpanContext().TraceID().String(),
			"span_id":  span.SpanContext().SpanID().String(),
			"parent":   span.Parent().SpanID().String(),
			"name":     span.Name(),
			"start":    span.StartTime(),
			"duration": span.EndTime().Sub(span.StartTime()).String(),
			"status":   span.Status().Code.String(),
		}

		attrs := make(map[string]interface{})
		for _, attr := range span.Attributes() {
			attrs[string(attr.Key)] = attr.Value.AsInterface()
		}
		if len(attrs) > 0 {
			data["attributes"] = attrs
		}

		if err := enc.Encode(data); err != nil {
			return err
		}
	}

	return nil
}

// Shutdown shuts down the exporter
func (e *StdoutExporter) Shutdown(ctx context.Context) error {
	return nil
}
