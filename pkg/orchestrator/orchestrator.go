// Package orchestrator drives a resume run: it walks the candidate roles in
// order, finds the account holding the group, waits for the group to become
// healthy and resumes its Launch and Terminate processes.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/scttfrdmn/asgresume/pkg/audit"
	awsclient "github.com/scttfrdmn/asgresume/pkg/aws"
	"github.com/scttfrdmn/asgresume/pkg/observability/metrics"
	"github.com/scttfrdmn/asgresume/pkg/observability/tracing"
	"github.com/scttfrdmn/asgresume/pkg/scaling"
)

var (
	// ErrNoCandidates means no candidate account holds the group.
	ErrNoCandidates = errors.New("no candidate account holds the auto scaling group")
	// ErrInvalidRequest means the request failed validation.
	ErrInvalidRequest = errors.New("invalid request")
)

// DefaultResumeReserve is kept free before the invocation deadline so the
// resume call still fits after a long poll.
const DefaultResumeReserve = 15 * time.Second

// ContextResolver turns a role ARN into an account-scoped client.
type ContextResolver interface {
	Resolve(ctx context.Context, roleARN string) (*awsclient.ExecutionContext, error)
}

// Notifier publishes a finished result.
type Notifier interface {
	Notify(ctx context.Context, result Result) error
}

// Request is the invocation payload.
type Request struct {
	ASGName string `json:"asg_name" validate:"required"`
}

// Orchestrator runs resume requests. It holds no per-run state and is safe
// to reuse across invocations.
type Orchestrator struct {
	resolver      ContextResolver
	poller        *scaling.Poller
	resumeReserve time.Duration
	notifier      Notifier
	metrics       *metrics.Metrics
	tracer        trace.Tracer
	validate      *validator.Validate
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPoller replaces the default 30s/10m poller.
func WithPoller(p *scaling.Poller) Option {
	return func(o *Orchestrator) {
		if p != nil {
			o.poller = p
		}
	}
}

// WithResumeReserve sets the time kept free before the context deadline.
func WithResumeReserve(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d >= 0 {
			o.resumeReserve = d
		}
	}
}

// WithNotifier publishes every result through n.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) {
		o.notifier = n
	}
}

// WithMetrics records runs on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithTracer emits spans on t.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		o.tracer = t
	}
}

// New creates an Orchestrator.
func New(resolver ContextResolver, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		resolver:      resolver,
		poller:        scaling.NewPoller(),
		resumeReserve: DefaultResumeReserve,
		validate:      validator.New(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run resumes req.ASGName in the first account among roles that holds it.
// Candidates are tried once each, in order. A failed role assumption or a
// missing group moves on to the next candidate. Once the group is found the
// run polls for health and then resumes whatever the poll outcome was.
func (o *Orchestrator) Run(ctx context.Context, req Request, roles []string) Result {
	req.ASGName = strings.TrimSpace(req.ASGName)

	ctx, span := tracing.StartSpan(ctx, o.tracer, "asgresume.run",
		trace.WithAttributes(
			attribute.String("asg.name", req.ASGName),
			attribute.Int("asgresume.candidates", len(roles)),
		))

	result := Result{
		ASGName:       req.ASGName,
		CorrelationID: audit.GetCorrelationIDFromContext(ctx),
		Started:       o.poller.Clock().Now(),
	}

	if err := o.validate.Struct(req); err != nil {
		result.Status = StatusInvalid
		result.Err = fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		return o.finish(ctx, span, result)
	}

	log.Info().
		Str("asg", req.ASGName).
		Int("candidates", len(roles)).
		Str("correlation_id", result.CorrelationID).
		Msg("Starting resume run")

	for _, role := range roles {
		if err := ctx.Err(); err != nil {
			result.Status = StatusError
			result.Err = fmt.Errorf("run cancelled before the group was found: %w", err)
			return o.finish(ctx, span, result)
		}

		attempt, execCtx := o.locate(ctx, role, req.ASGName)
		result.Attempts = append(result.Attempts, attempt)
		if !attempt.Found {
			continue
		}

		result.RoleARN = execCtx.RoleARN
		result.AccountID = execCtx.AccountID
		o.pollAndResume(ctx, execCtx, &result)
		return o.finish(ctx, span, result)
	}

	result.Status = StatusNotFound
	result.Err = fmt.Errorf("%w: %s (%d candidates)", ErrNoCandidates, req.ASGName, len(roles))
	return o.finish(ctx, span, result)
}

// locate resolves one candidate and checks whether its account holds the
// group. execCtx is only set when the group was found.
func (o *Orchestrator) locate(ctx context.Context, role, name string) (Attempt, *awsclient.ExecutionContext) {
	attempt := Attempt{Role: role, Stage: StageResolve}

	ctx, span := tracing.StartSpan(ctx, o.tracer, "asgresume.locate",
		trace.WithAttributes(attribute.String("aws.iam.role", role)))
	defer func() { tracing.EndSpan(span, attempt.Err) }()

	execCtx, err := o.resolver.Resolve(ctx, role)
	if err != nil {
		attempt.Err = err
		o.metrics.RecordAssumeRoleFailure()
		return attempt, nil
	}

	attempt.AccountID = execCtx.AccountID
	attempt.Stage = StageLocate
	span.SetAttributes(attribute.String("aws.account.id", execCtx.AccountID))

	auditLog := audit.GetLoggerFromContext(ctx)
	target := audit.Target{AccountID: execCtx.AccountID, RoleARN: role, ASGName: name}

	found, err := scaling.Exists(ctx, execCtx.Client, name)
	switch {
	case err != nil:
		log.Warn().Err(err).Str("asg", name).Str("account", execCtx.AccountID).Msg("Could not describe group, trying next account")
		auditLog.LogOperation(audit.OpLocateASG, target, audit.ResultFailed, err)
		attempt.Err = err
	case !found:
		log.Debug().Str("asg", name).Str("account", execCtx.AccountID).Msg("Group not in account")
		auditLog.LogOperation(audit.OpLocateASG, target, audit.ResultNotFound, nil)
	default:
		log.Info().Str("asg", name).Str("account", execCtx.AccountID).Msg("Found group")
		auditLog.LogOperation(audit.OpLocateASG, target, audit.ResultSuccess, nil)
		attempt.Found = true
		return attempt, execCtx
	}
	return attempt, nil
}

// pollAndResume waits for health and then resumes. The resume call runs on
// a context that survives cancellation of ctx.
func (o *Orchestrator) pollAndResume(ctx context.Context, execCtx *awsclient.ExecutionContext, result *Result) {
	name := result.ASGName
	auditLog := audit.GetLoggerFromContext(ctx)
	target := audit.Target{AccountID: execCtx.AccountID, RoleARN: execCtx.RoleARN, ASGName: name}
	last := &result.Attempts[len(result.Attempts)-1]

	last.Stage = StagePoll
	pollCtx, pollSpan := tracing.StartSpan(ctx, o.tracer, "asgresume.poll")
	deadline := o.pollDeadline(ctx)
	poll := o.poller.PollUntilHealthy(pollCtx, execCtx.Client, name, deadline)
	pollSpan.SetAttributes(
		attribute.String("asgresume.health", poll.Outcome.String()),
		attribute.Int("asgresume.samples", poll.Samples),
	)
	pollSpan.End()

	result.Polled = true
	result.Poll = poll
	o.metrics.RecordPoll(poll.Outcome.String(), poll.Samples, poll.Elapsed)

	pollData := map[string]interface{}{
		"samples": poll.Samples,
		"sleeps":  poll.Sleeps,
		"elapsed": poll.Elapsed.String(),
	}
	if poll.Outcome == scaling.TimedOut {
		log.Warn().
			Str("asg", name).
			Dur("elapsed", poll.Elapsed).
			Int("unhealthy", poll.Unhealthy).
			Msg("Group did not become healthy in time, resuming anyway")
		auditLog.LogOperationWithData(audit.OpPollHealth, target, audit.ResultTimedOut, pollData, nil)
	} else {
		auditLog.LogOperationWithData(audit.OpPollHealth, target, audit.ResultSuccess, pollData, nil)
	}

	last.Stage = StageResume
	resumeCtx, resumeSpan := tracing.StartSpan(context.WithoutCancel(ctx), o.tracer, "asgresume.resume")
	err := scaling.Resume(resumeCtx, execCtx.Client, name)
	tracing.EndSpan(resumeSpan, err)
	o.metrics.RecordResume(err)

	if err != nil {
		auditLog.LogOperation(audit.OpResumeProcesses, target, audit.ResultFailed, err)
		last.Err = err
		result.Status = StatusError
		result.Err = err
		return
	}

	auditLog.LogOperationWithData(audit.OpResumeProcesses, target, audit.ResultSuccess,
		map[string]interface{}{"processes": scaling.ResumedProcesses()}, nil)
	result.Status = StatusSuccess
}

// pollDeadline is now+timeout, pulled in so that resumeReserve remains
// before any deadline carried by ctx. It never precedes now; the poller
// still takes its first sample.
func (o *Orchestrator) pollDeadline(ctx context.Context) time.Time {
	now := o.poller.Clock().Now()
	budget := o.poller.Timeout()

	if d, ok := ctx.Deadline(); ok {
		if remaining := time.Until(d) - o.resumeReserve; remaining < budget {
			budget = remaining
			log.Debug().Dur("budget", budget).Msg("Poll budget clamped to invocation deadline")
		}
	}
	if budget < 0 {
		budget = 0
	}
	return now.Add(budget)
}

func (o *Orchestrator) finish(ctx context.Context, span trace.Span, result Result) Result {
	result.Duration = o.poller.Clock().Now().Sub(result.Started)
	o.metrics.RecordRun(string(result.Status), len(result.Attempts))

	event := log.Info()
	if result.Status != StatusSuccess {
		event = log.Warn().Err(result.Err)
	}
	event.
		Str("asg", result.ASGName).
		Str("status", string(result.Status)).
		Str("account", result.AccountID).
		Str("health", result.Health()).
		Int("attempts", len(result.Attempts)).
		Dur("duration", result.Duration).
		Msg("Resume run finished")

	if o.notifier != nil {
		if err := o.notifier.Notify(context.WithoutCancel(ctx), result); err != nil {
			log.Warn().Err(err).Str("asg", result.ASGName).Msg("Failed to publish result notification")
			o.metrics.RecordNotifyFailure()
		}
	}

	span.SetAttributes(
		attribute.String("asgresume.status", string(result.Status)),
		attribute.String("aws.account.id", result.AccountID),
	)
	var spanErr error
	if result.Status != StatusSuccess {
		spanErr = result.Err
	}
	tracing.EndSpan(span, spanErr)
	return result
}
