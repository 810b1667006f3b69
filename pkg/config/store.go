package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/cenkalti/backoff"
)

// ErrNoConfig means the role source holds no usable candidate list.
var ErrNoConfig = errors.New("no cross-account role configuration")

// maxReadAttempts bounds reads against remote stores.
const maxReadAttempts = 3

// RoleConfig is the ordered candidate list for one run.
type RoleConfig struct {
	CrossAccountRoles []string
	Source            string
}

// Store loads the role configuration. Implementations are read once per run.
type Store interface {
	Load(ctx context.Context) (*RoleConfig, error)
}

// BackOffPolicy builds a fresh backoff for one read.
type BackOffPolicy func() backoff.BackOff

// DefaultBackOff retries quickly; reads happen inside a Lambda invocation.
func DefaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 10 * time.Second
	return b
}

// retryRead runs op with at most maxReadAttempts attempts. op signals
// non-retryable failures with backoff.Permanent.
func retryRead(ctx context.Context, policy BackOffPolicy, op func() error) error {
	if policy == nil {
		policy = DefaultBackOff
	}
	b := backoff.WithContext(backoff.WithMaxRetries(policy(), maxReadAttempts-1), ctx)
	return backoff.Retry(op, b)
}

// NewStore builds the store selected by s.RoleSource.
func NewStore(s *Settings, cfg aws.Config) (Store, error) {
	switch s.RoleSource {
	case SourceDynamoDB:
		return NewDynamoDBStore(dynamodb.NewFromConfig(cfg), DynamoDBStoreConfig{
			Table:          s.ConfigTable,
			KeyAttribute:   s.ConfigKeyAttribute,
			KeyValue:       s.ConfigKeyValue,
			RolesAttribute: s.RolesAttribute,
		}), nil
	case SourceSSM:
		return NewSSMStore(ssm.NewFromConfig(cfg), s.SSMParameter), nil
	case SourceFile:
		return NewFileStore(s.RolesFile), nil
	case SourceStatic:
		return NewStaticStore(s.Roles), nil
	default:
		return nil, fmt.Errorf("unknown role source %q", s.RoleSource)
	}
}

// StaticStore serves a fixed list, used for flags and tests.
type StaticStore struct {
	roles []string
}

// NewStaticStore creates a store around roles.
func NewStaticStore(roles []string) *StaticStore {
	return &StaticStore{roles: cleanRoles(roles)}
}

// Load returns a copy of the configured roles.
func (s *StaticStore) Load(ctx context.Context) (*RoleConfig, error) {
	if len(s.roles) == 0 {
		return nil, fmt.Errorf("%w: static role list is empty", ErrNoConfig)
	}
	return &RoleConfig{
		CrossAccountRoles: append([]string(nil), s.roles...),
		Source:            SourceStatic,
	}, nil
}
