package orchestrator

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/scttfrdmn/asgresume/pkg/scaling"
)

// Status is the terminal state of a run.
type Status string

const (
	StatusSuccess  Status = "Successful"
	StatusError    Status = "Error"
	StatusNotFound Status = "NotFound"
	StatusInvalid  Status = "Invalid"
)

// Stage names the step a candidate attempt stopped at.
type Stage string

const (
	StageResolve Stage = "resolve"
	StageLocate  Stage = "locate"
	StagePoll    Stage = "poll"
	StageResume  Stage = "resume"
)

// Attempt records what happened to one candidate role. Err is nil when the
// group was simply absent from the account.
type Attempt struct {
	Role      string
	AccountID string
	Stage     Stage
	Found     bool
	Err       error
}

// Result is the outcome of one run.
type Result struct {
	ASGName       string
	Status        Status
	RoleARN       string
	AccountID     string
	Polled        bool
	Poll          scaling.PollResult
	Attempts      []Attempt
	Err           error
	CorrelationID string
	Started       time.Time
	Duration      time.Duration
}

// Health returns the poll outcome name, or "" when the run never polled.
func (r Result) Health() string {
	if !r.Polled {
		return ""
	}
	return r.Poll.Outcome.String()
}

// StatusCode maps the terminal status to an HTTP-style code.
func (r Result) StatusCode() int {
	switch r.Status {
	case StatusSuccess:
		return http.StatusOK
	case StatusNotFound:
		return http.StatusNotFound
	case StatusInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Response is the Lambda-style reply. Body holds the status as a JSON
// string literal, e.g. "\"Successful\"".
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// Response renders the result for the invoker.
func (r Result) Response() Response {
	return NewResponse(r.StatusCode(), r.Status)
}

// NewResponse builds a Response with a JSON-encoded body.
func NewResponse(code int, status Status) Response {
	body, _ := json.Marshal(string(status))
	return Response{StatusCode: code, Body: string(body)}
}
