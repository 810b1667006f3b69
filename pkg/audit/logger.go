package audit

import (
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Operations recorded in the audit trail.
const (
	OpAssumeRole      = "assume_role"
	OpLocateASG       = "locate_asg"
	OpPollHealth      = "poll_health"
	OpResumeProcesses = "resume_processes"
)

// Results recorded in the audit trail.
const (
	ResultSuccess  = "success"
	ResultFailed   = "failed"
	ResultNotFound = "not_found"
	ResultTimedOut = "timed_out"
)

// AuditLogger writes one JSON line per security-relevant remote operation
// (role assumption and any mutation of a scaling group).
type AuditLogger struct {
	mu            sync.Mutex
	writer        io.Writer
	correlationID string
	now           func() time.Time
}

// AuditEvent represents a single audit log entry.
type AuditEvent struct {
	Timestamp      time.Time              `json:"timestamp"`
	Level          string                 `json:"level"`
	Operation      string                 `json:"operation"`
	AccountID      string                 `json:"account_id,omitempty"`
	RoleARN        string                 `json:"role_arn,omitempty"`
	ASGName        string                 `json:"asg_name,omitempty"`
	CorrelationID  string                 `json:"correlation_id,omitempty"`
	Result         string                 `json:"result"`
	Error          string                 `json:"error,omitempty"`
	AdditionalData map[string]interface{} `json:"additional_data,omitempty"`
}

// Target identifies the account and group an event refers to.
type Target struct {
	AccountID string
	RoleARN   string
	ASGName   string
}

// NewLogger creates a new audit logger.
func NewLogger(writer io.Writer, correlationID string) *AuditLogger {
	if writer == nil {
		writer = io.Discard
	}

	return &AuditLogger{
		writer:        writer,
		correlationID: correlationID,
		now:           time.Now,
	}
}

// LogOperation logs an audit event for an operation.
func (l *AuditLogger) LogOperation(operation string, target Target, result string, err error) {
	l.LogOperationWithData(operation, target, result, nil, err)
}

// LogOperationWithData logs an audit event with additional structured data.
func (l *AuditLogger) LogOperationWithData(operation string, target Target, result string, data map[string]interface{}, err error) {
	if l == nil {
		return
	}

	event := AuditEvent{
		Timestamp:      l.now().UTC(),
		Level:          "info",
		Operation:      operation,
		AccountID:      target.AccountID,
		RoleARN:        target.RoleARN,
		ASGName:        target.ASGName,
		CorrelationID:  l.correlationID,
		Result:         result,
		AdditionalData: data,
	}

	if err != nil {
		event.Level = "error"
		event.Error = err.Error()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_ = json.NewEncoder(l.writer).Encode(event)
}

// GetCorrelationID returns the current correlation ID.
func (l *AuditLogger) GetCorrelationID() string {
	if l == nil {
		return ""
	}
	return l.correlationID
}
