package config

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cenkalti/backoff"
	"github.com/rs/zerolog/log"
)

// DynamoDBAPI is the subset of the DynamoDB API used by DynamoDBStore.
type DynamoDBAPI interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoDBStoreConfig locates the config record.
type DynamoDBStoreConfig struct {
	Table          string
	KeyAttribute   string
	KeyValue       string
	RolesAttribute string
}

// DynamoDBStore reads roles from the scheduler's config table.
type DynamoDBStore struct {
	client  DynamoDBAPI
	cfg     DynamoDBStoreConfig
	backOff BackOffPolicy
}

// NewDynamoDBStore creates a store. Empty fields in cfg fall back to defaults.
func NewDynamoDBStore(client DynamoDBAPI, cfg DynamoDBStoreConfig) *DynamoDBStore {
	if cfg.Table == "" {
		cfg.Table = DefaultConfigTable
	}
	if cfg.KeyAttribute == "" {
		cfg.KeyAttribute = DefaultConfigKeyAttribute
	}
	if cfg.KeyValue == "" {
		cfg.KeyValue = DefaultConfigKeyValue
	}
	if cfg.RolesAttribute == "" {
		cfg.RolesAttribute = DefaultRolesAttribute
	}
	return &DynamoDBStore{client: client, cfg: cfg, backOff: DefaultBackOff}
}

// WithBackOff replaces the retry policy.
func (s *DynamoDBStore) WithBackOff(policy BackOffPolicy) *DynamoDBStore {
	s.backOff = policy
	return s
}

// Load queries for the config record and decodes the roles attribute of the
// first item returned.
func (s *DynamoDBStore) Load(ctx context.Context) (*RoleConfig, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.cfg.Table),
		KeyConditionExpression: aws.String("#k = :v"),
		ExpressionAttributeNames: map[string]string{
			"#k": s.cfg.KeyAttribute,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: s.cfg.KeyValue},
		},
	}

	var out *dynamodb.QueryOutput
	attempt := 0
	err := retryRead(ctx, s.backOff, func() error {
		attempt++
		var err error
		out, err = s.client.Query(ctx, input)
		if err != nil {
			var notFound *types.ResourceNotFoundException
			if errors.As(err, &notFound) {
				return backoff.Permanent(err)
			}
			log.Warn().Err(err).Int("attempt", attempt).Str("table", s.cfg.Table).Msg("Config query failed")
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query config table %s: %w", s.cfg.Table, err)
	}

	if len(out.Items) == 0 {
		return nil, fmt.Errorf("%w: no item with %s=%s in %s", ErrNoConfig, s.cfg.KeyAttribute, s.cfg.KeyValue, s.cfg.Table)
	}

	roles, err := decodeRoles(out.Items[0][s.cfg.RolesAttribute])
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", s.cfg.RolesAttribute, err)
	}
	if len(roles) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrNoConfig, s.cfg.RolesAttribute)
	}

	log.Debug().Int("roles", len(roles)).Str("table", s.cfg.Table).Msg("Loaded cross-account roles")
	return &RoleConfig{CrossAccountRoles: roles, Source: SourceDynamoDB}, nil
}

// decodeRoles accepts a string set, a list of strings, or a single
// comma-separated string.
func decodeRoles(av types.AttributeValue) ([]string, error) {
	if av == nil {
		return nil, nil
	}
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return cleanRoles(strings.Split(s.Value, ",")), nil
	}

	var roles []string
	if err := attributevalue.Unmarshal(av, &roles); err != nil {
		return nil, err
	}
	return cleanRoles(roles), nil
}
