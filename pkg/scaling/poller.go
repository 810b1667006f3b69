package scaling

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultPollInterval = 30 * time.Second
	DefaultTimeout      = 10 * time.Minute
)

// HealthOutcome is how a polling phase ended.
type HealthOutcome int

const (
	AllHealthy HealthOutcome = iota
	TimedOut
)

func (o HealthOutcome) String() string {
	switch o {
	case AllHealthy:
		return "all_healthy"
	case TimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Clock abstracts time so polling can run against a virtual clock.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// PollResult summarizes one polling phase.
type PollResult struct {
	Outcome HealthOutcome
	Samples int
	Sleeps  int
	Elapsed time.Duration
	// Unhealthy is the number of non-healthy members in the last good sample.
	Unhealthy int
}

// Poller samples a group's health at a fixed interval.
type Poller struct {
	interval time.Duration
	timeout  time.Duration
	clock    Clock
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithInterval sets the time between samples.
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithTimeout sets the polling budget measured from the start of polling.
func WithTimeout(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d >= 0 {
			p.timeout = d
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(c Clock) PollerOption {
	return func(p *Poller) {
		if c != nil {
			p.clock = c
		}
	}
}

// NewPoller creates a Poller with a 30s interval and a 10m budget.
func NewPoller(opts ...PollerOption) *Poller {
	p := &Poller{
		interval: DefaultPollInterval,
		timeout:  DefaultTimeout,
		clock:    SystemClock,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Poller) Interval() time.Duration { return p.interval }
func (p *Poller) Timeout() time.Duration  { return p.timeout }
func (p *Poller) Clock() Clock            { return p.clock }

// PollUntilHealthy blocks until every member of the group is Healthy or the
// deadline passes. Health is checked before the deadline on every tick, so a
// group that is already healthy returns AllHealthy even past the deadline.
// A failed sample counts as unhealthy. Cancellation of ctx ends polling with
// TimedOut.
func (p *Poller) PollUntilHealthy(ctx context.Context, client DescribeAPI, name string, deadline time.Time) PollResult {
	start := p.clock.Now()
	var result PollResult

	finish := func(outcome HealthOutcome) PollResult {
		result.Outcome = outcome
		result.Elapsed = p.clock.Now().Sub(start)
		return result
	}

	for {
		sample, err := SampleHealth(ctx, client, name, p.clock.Now())
		result.Samples++

		switch {
		case err != nil:
			log.Warn().Err(err).Str("asg", name).Int("sample", result.Samples).Msg("Health sample failed")
		case sample.Healthy():
			log.Info().
				Str("asg", name).
				Int("instances", len(sample.Instances)).
				Int("samples", result.Samples).
				Msg("All instances healthy")
			return finish(AllHealthy)
		default:
			result.Unhealthy = len(sample.Unhealthy())
			log.Info().
				Str("asg", name).
				Strs("statuses", sample.Statuses()).
				Int("unhealthy", result.Unhealthy).
				Msg("Waiting for instances to become healthy")
		}

		if !p.clock.Now().Before(deadline) {
			log.Warn().Str("asg", name).Dur("elapsed", p.clock.Now().Sub(start)).Msg("Health wait timed out")
			return finish(TimedOut)
		}

		if err := p.clock.Sleep(ctx, p.interval); err != nil {
			log.Warn().Err(err).Str("asg", name).Msg("Health wait interrupted")
			return finish(TimedOut)
		}
		result.Sleeps++
	}
}
