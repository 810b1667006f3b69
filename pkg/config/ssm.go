package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/cenkalti/backoff"
	"github.com/rs/zerolog/log"
)

// SSMAPI is the subset of the SSM API used by SSMStore.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SSMStore reads roles from a Parameter Store parameter holding a
// StringList, a comma-separated String, or a JSON array.
type SSMStore struct {
	client  SSMAPI
	name    string
	backOff BackOffPolicy
}

// NewSSMStore creates a store for parameter name.
func NewSSMStore(client SSMAPI, name string) *SSMStore {
	return &SSMStore{client: client, name: name, backOff: DefaultBackOff}
}

// WithBackOff replaces the retry policy.
func (s *SSMStore) WithBackOff(policy BackOffPolicy) *SSMStore {
	s.backOff = policy
	return s
}

// Load fetches and parses the parameter.
func (s *SSMStore) Load(ctx context.Context) (*RoleConfig, error) {
	var out *ssm.GetParameterOutput
	err := retryRead(ctx, s.backOff, func() error {
		var err error
		out, err = s.client.GetParameter(ctx, &ssm.GetParameterInput{
			Name:           aws.String(s.name),
			WithDecryption: aws.Bool(true),
		})
		if err != nil {
			var notFound *types.ParameterNotFound
			if errors.As(err, &notFound) {
				return backoff.Permanent(fmt.Errorf("%w: parameter %s not found", ErrNoConfig, s.name))
			}
			log.Warn().Err(err).Str("parameter", s.name).Msg("Config parameter read failed")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if out.Parameter == nil {
		return nil, fmt.Errorf("%w: parameter %s has no value", ErrNoConfig, s.name)
	}

	roles, err := parseRoleList(aws.ToString(out.Parameter.Value))
	if err != nil {
		return nil, fmt.Errorf("failed to parse parameter %s: %w", s.name, err)
	}
	if len(roles) == 0 {
		return nil, fmt.Errorf("%w: parameter %s is empty", ErrNoConfig, s.name)
	}
	return &RoleConfig{CrossAccountRoles: roles, Source: SourceSSM}, nil
}

func parseRoleList(value string) ([]string, error) {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "[") {
		var roles []string
		if err := json.Unmarshal([]byte(value), &roles); err != nil {
			return nil, err
		}
		return cleanRoles(roles), nil
	}
	return cleanRoles(strings.Split(value, ",")), nil
}
