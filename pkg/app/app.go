// Package app wires settings into a ready-to-run orchestrator. The Lambda
// function and the CLI both build their runtime here.
package app

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/rs/zerolog/log"

	awsclient "github.com/scttfrdmn/asgresume/pkg/aws"
	"github.com/scttfrdmn/asgresume/pkg/config"
	"github.com/scttfrdmn/asgresume/pkg/notify"
	"github.com/scttfrdmn/asgresume/pkg/observability/metrics"
	"github.com/scttfrdmn/asgresume/pkg/observability/tracing"
	"github.com/scttfrdmn/asgresume/pkg/orchestrator"
	"github.com/scttfrdmn/asgresume/pkg/scaling"
)

// App holds everything a run needs. Nothing in it is per-run state.
type App struct {
	Settings     *config.Settings
	AWSConfig    aws.Config
	Store        config.Store
	Resolver     *awsclient.Resolver
	Orchestrator *orchestrator.Orchestrator
	Tracer       *tracing.Tracer
	Registry     *metrics.Registry
	Metrics      *metrics.Metrics
}

type buildOptions struct {
	awsCfg    *aws.Config
	sts       awsclient.STSAPI
	asg       awsclient.ClientFactory
	sns       notify.SNSAPI
	store     config.Store
	clock     scaling.Clock
	noMetrics bool
}

// Option overrides a collaborator, mainly for tests.
type Option func(*buildOptions)

// WithAWSConfig skips loading the default AWS config.
func WithAWSConfig(cfg aws.Config) Option {
	return func(o *buildOptions) { o.awsCfg = &cfg }
}

// WithSTS replaces the STS client used for role assumption.
func WithSTS(c awsclient.STSAPI) Option {
	return func(o *buildOptions) { o.sts = c }
}

// WithAutoScalingFactory replaces the per-account Auto Scaling client constructor.
func WithAutoScalingFactory(f awsclient.ClientFactory) Option {
	return func(o *buildOptions) { o.asg = f }
}

// WithSNS replaces the SNS client used for notifications.
func WithSNS(c notify.SNSAPI) Option {
	return func(o *buildOptions) { o.sns = c }
}

// WithStore replaces the role store selected by settings.
func WithStore(s config.Store) Option {
	return func(o *buildOptions) { o.store = s }
}

// WithClock replaces the poller clock.
func WithClock(c scaling.Clock) Option {
	return func(o *buildOptions) { o.clock = c }
}

// WithoutMetrics leaves the orchestrator without instruments. The Lambda
// has no scrape endpoint.
func WithoutMetrics() Option {
	return func(o *buildOptions) { o.noMetrics = true }
}

// Build creates the runtime for s.
func Build(ctx context.Context, s *config.Settings, opts ...Option) (*App, error) {
	var bo buildOptions
	for _, opt := range opts {
		opt(&bo)
	}

	var awsCfg aws.Config
	if bo.awsCfg != nil {
		awsCfg = *bo.awsCfg
	} else {
		cfg, err := awsclient.LoadBaseConfig(ctx, s.Region)
		if err != nil {
			return nil, err
		}
		awsCfg = cfg
	}

	// The tracer is created from the uninstrumented config so the X-Ray
	// exporter does not trace its own uploads.
	tracer, err := tracing.NewTracer(ctx, s.Tracing, awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if s.Tracing.Enabled {
		tracing.InstrumentAWSConfig(&awsCfg)
	}

	store := bo.store
	if store == nil {
		store, err = config.NewStore(s, awsCfg)
		if err != nil {
			return nil, err
		}
	}

	resolverOpts := []awsclient.ResolverOption{
		awsclient.WithSessionPrefix(s.SessionPrefix),
		awsclient.WithSessionDuration(s.SessionDuration),
	}
	if bo.asg != nil {
		resolverOpts = append(resolverOpts, awsclient.WithClientFactory(bo.asg))
	}
	resolver := awsclient.NewResolver(awsCfg, bo.sts, resolverOpts...)

	pollerOpts := []scaling.PollerOption{
		scaling.WithInterval(s.PollInterval),
		scaling.WithTimeout(s.Timeout),
	}
	if bo.clock != nil {
		pollerOpts = append(pollerOpts, scaling.WithClock(bo.clock))
	}

	a := &App{
		Settings:  s,
		AWSConfig: awsCfg,
		Store:     store,
		Resolver:  resolver,
		Tracer:    tracer,
	}

	orchOpts := []orchestrator.Option{
		orchestrator.WithPoller(scaling.NewPoller(pollerOpts...)),
		orchestrator.WithResumeReserve(s.ResumeReserve),
		orchestrator.WithTracer(tracer.Tracer()),
	}
	if !bo.noMetrics {
		a.Registry = metrics.NewRegistry(metrics.WithRuntimeCollectors())
		a.Metrics = metrics.New(a.Registry)
		orchOpts = append(orchOpts, orchestrator.WithMetrics(a.Metrics))
	}
	if s.NotifyTopicARN != "" {
		snsClient := bo.sns
		if snsClient == nil {
			snsClient = sns.NewFromConfig(awsCfg)
		}
		orchOpts = append(orchOpts, orchestrator.WithNotifier(notify.NewSNSNotifier(snsClient, s.NotifyTopicARN)))
	}
	a.Orchestrator = orchestrator.New(resolver, orchOpts...)

	log.Debug().
		Str("region", awsCfg.Region).
		Str("role_source", s.RoleSource).
		Dur("poll_interval", s.PollInterval).
		Dur("timeout", s.Timeout).
		Bool("notify", s.NotifyTopicARN != "").
		Bool("tracing", s.Tracing.Enabled).
		Msg("Runtime ready")

	return a, nil
}

// Roles loads the candidate list from the store.
func (a *App) Roles(ctx context.Context) ([]string, error) {
	cfg, err := a.Store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return cfg.CrossAccountRoles, nil
}

// Run loads the candidate roles and runs one resume request. A store
// failure is returned as an error; every other outcome is in the Result.
func (a *App) Run(ctx context.Context, req orchestrator.Request) (orchestrator.Result, error) {
	roles, err := a.Roles(ctx)
	if err != nil {
		log.Error().Err(err).Str("role_source", a.Settings.RoleSource).Msg("Failed to load cross-account roles")
		return orchestrator.Result{ASGName: req.ASGName, Status: orchestrator.StatusError, Err: err}, err
	}
	return a.Orchestrator.Run(ctx, req, roles), nil
}

// Locate checks every candidate account for name without polling or
// resuming. Unusable accounts are reported, not returned as errors.
func (a *App) Locate(ctx context.Context, name string) ([]orchestrator.Attempt, error) {
	roles, err := a.Roles(ctx)
	if err != nil {
		return nil, err
	}

	attempts := make([]orchestrator.Attempt, 0, len(roles))
	for _, role := range roles {
		if err := ctx.Err(); err != nil {
			return attempts, err
		}

		attempt := orchestrator.Attempt{Role: role, Stage: orchestrator.StageResolve}

		execCtx, err := a.Resolver.Resolve(ctx, role)
		if err != nil {
			attempt.Err = err
			attempts = append(attempts, attempt)
			continue
		}

		attempt.AccountID = execCtx.AccountID
		attempt.Stage = orchestrator.StageLocate
		attempt.Found, attempt.Err = scaling.Exists(ctx, execCtx.Client, name)
		attempts = append(attempts, attempt)

		log.Debug().
			Str("asg", name).
			Str("account", attempt.AccountID).
			Bool("found", attempt.Found).
			Msg("Checked candidate account")
	}
	return attempts, nil
}

// Close flushes telemetry.
func (a *App) Close(ctx context.Context) error {
	return a.Tracer.Shutdown(ctx)
}
