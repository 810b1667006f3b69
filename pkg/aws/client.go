package aws

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/rs/zerolog/log"

	"github.com/scttfrdmn/asgresume/pkg/audit"
)

// ErrAssumeRole marks a candidate account whose role could not be assumed.
var ErrAssumeRole = errors.New("assume role failed")

// DefaultSessionDuration is requested for every assumed-role session.
const DefaultSessionDuration = time.Hour

// STSAPI is the subset of the STS API used for role assumption.
type STSAPI interface {
	AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
}

// AutoScalingAPI is the subset of the Auto Scaling API used against a
// resolved account.
type AutoScalingAPI interface {
	DescribeAutoScalingGroups(ctx context.Context, params *autoscaling.DescribeAutoScalingGroupsInput, optFns ...func(*autoscaling.Options)) (*autoscaling.DescribeAutoScalingGroupsOutput, error)
	ResumeProcesses(ctx context.Context, params *autoscaling.ResumeProcessesInput, optFns ...func(*autoscaling.Options)) (*autoscaling.ResumeProcessesOutput, error)
}

// ClientFactory builds an Auto Scaling client from assumed-role config.
type ClientFactory func(cfg aws.Config) AutoScalingAPI

// ExecutionContext is the account-scoped handle produced by one role
// assumption. It belongs to a single run and is never cached.
type ExecutionContext struct {
	RoleARN     string
	AccountID   string
	SessionName string
	Expires     time.Time
	Config      aws.Config
	Client      AutoScalingAPI
}

// Resolver exchanges cross-account role ARNs for execution contexts.
type Resolver struct {
	sts           STSAPI
	base          aws.Config
	sessionPrefix string
	duration      time.Duration
	newClient     ClientFactory
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithSessionPrefix overrides DefaultSessionPrefix.
func WithSessionPrefix(prefix string) ResolverOption {
	return func(r *Resolver) {
		if prefix != "" {
			r.sessionPrefix = prefix
		}
	}
}

// WithSessionDuration sets the requested credential lifetime. Zero leaves the
// choice to STS.
func WithSessionDuration(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.duration = d
	}
}

// WithClientFactory replaces the Auto Scaling client constructor.
func WithClientFactory(f ClientFactory) ResolverOption {
	return func(r *Resolver) {
		if f != nil {
			r.newClient = f
		}
	}
}

// LoadBaseConfig loads the caller's own AWS config, optionally pinned to a region.
func LoadBaseConfig(ctx context.Context, region string) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}

// NewResolver creates a Resolver. When stsClient is nil an STS client is
// built from base.
func NewResolver(base aws.Config, stsClient STSAPI, opts ...ResolverOption) *Resolver {
	if stsClient == nil {
		stsClient = sts.NewFromConfig(base)
	}

	r := &Resolver{
		sts:           stsClient,
		base:          base,
		sessionPrefix: DefaultSessionPrefix,
		duration:      DefaultSessionDuration,
		newClient: func(cfg aws.Config) AutoScalingAPI {
			return autoscaling.NewFromConfig(cfg)
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve assumes roleARN and returns an Auto Scaling client bound to the
// temporary credentials. Every failure wraps ErrAssumeRole.
func (r *Resolver) Resolve(ctx context.Context, roleARN string) (*ExecutionContext, error) {
	auditLog := audit.GetLoggerFromContext(ctx)
	roleARN = strings.TrimSpace(roleARN)

	accountID, err := AccountFromRoleARN(roleARN)
	if err != nil {
		log.Warn().Err(err).Str("role", roleARN).Msg("Skipping role with unusable ARN")
		auditLog.LogOperation(audit.OpAssumeRole, audit.Target{RoleARN: roleARN}, audit.ResultFailed, err)
		return nil, fmt.Errorf("%w: %w", ErrAssumeRole, err)
	}

	target := audit.Target{AccountID: accountID, RoleARN: roleARN}
	sessionName := SessionName(r.sessionPrefix, accountID)

	input := &sts.AssumeRoleInput{
		RoleArn:         aws.String(roleARN),
		RoleSessionName: aws.String(sessionName),
	}
	if r.duration > 0 {
		input.DurationSeconds = aws.Int32(int32(r.duration / time.Second))
	}

	out, err := r.sts.AssumeRole(ctx, input)
	if err != nil {
		log.Warn().Err(err).
			Str("role", roleARN).
			Str("account", accountID).
			Msg("Can not assume role for account")
		auditLog.LogOperation(audit.OpAssumeRole, target, audit.ResultFailed, err)
		return nil, fmt.Errorf("%w: account %s: %w", ErrAssumeRole, accountID, err)
	}
	if out.Credentials == nil {
		err := fmt.Errorf("account %s: no credentials returned", accountID)
		auditLog.LogOperation(audit.OpAssumeRole, target, audit.ResultFailed, err)
		return nil, fmt.Errorf("%w: %w", ErrAssumeRole, err)
	}

	creds := out.Credentials
	cfg := r.base.Copy()
	cfg.Credentials = aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
		aws.ToString(creds.AccessKeyId),
		aws.ToString(creds.SecretAccessKey),
		aws.ToString(creds.SessionToken),
	))

	execCtx := &ExecutionContext{
		RoleARN:     roleARN,
		AccountID:   accountID,
		SessionName: sessionName,
		Config:      cfg,
		Client:      r.newClient(cfg),
	}
	if creds.Expiration != nil {
		execCtx.Expires = *creds.Expiration
	}

	log.Debug().
		Str("account", accountID).
		Str("session", sessionName).
		Time("expires", execCtx.Expires).
		Msg("Assumed cross-account role")
	auditLog.LogOperationWithData(audit.OpAssumeRole, target, audit.ResultSuccess,
		map[string]interface{}{"session_name": sessionName}, nil)

	return execCtx, nil
}
