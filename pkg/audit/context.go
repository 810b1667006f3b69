package audit

import (
	"context"
	"io"

	"github.com/google/uuid"
)

type ctxKey int

const (
	correlationKey ctxKey = iota
	loggerKey
)

// NewContextWithCorrelationID tags ctx with the id every log line and audit
// event of a run carries. An empty id gets a random UUID.
func NewContextWithCorrelationID(ctx context.Context, correlationID string) context.Context {
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	return context.WithValue(ctx, correlationKey, correlationID)
}

// GetCorrelationIDFromContext returns the run's correlation id, or "".
func GetCorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey).(string)
	return id
}

// SetLoggerInContext attaches logger to ctx.
func SetLoggerInContext(ctx context.Context, logger *AuditLogger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// GetLoggerFromContext returns the attached logger. The result may be nil,
// which every AuditLogger method accepts.
func GetLoggerFromContext(ctx context.Context) *AuditLogger {
	logger, _ := ctx.Value(loggerKey).(*AuditLogger)
	return logger
}

// NewRunContext prepares ctx for one resume run: it tags the correlation id
// (generating one when empty) and, when w is non-nil, attaches an audit
// logger writing to w.
func NewRunContext(ctx context.Context, correlationID string, w io.Writer) context.Context {
	ctx = NewContextWithCorrelationID(ctx, correlationID)
	if w == nil {
		return ctx
	}
	return SetLoggerInContext(ctx, NewLogger(w, GetCorrelationIDFromContext(ctx)))
}
