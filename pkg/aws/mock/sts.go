package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/aws-sdk-go-v2/service/sts/types"
)

// MockSTSClient issues fake temporary credentials.
type MockSTSClient struct {
	mu sync.Mutex

	// DeniedRoles maps a role ARN to the error AssumeRole returns for it.
	DeniedRoles map[string]error

	// AssumeRoleErr is returned for every role when set.
	AssumeRoleErr error

	// NoCredentials makes AssumeRole succeed without a Credentials block.
	NoCredentials bool

	// Call tracking
	AssumeRoleCalls  int
	AssumeRoleInputs []sts.AssumeRoleInput
}

// NewMockSTSClient creates a mock that grants every role.
func NewMockSTSClient() *MockSTSClient {
	return &MockSTSClient{
		DeniedRoles: make(map[string]error),
	}
}

// Deny makes AssumeRole fail for roleARN with an AccessDenied error.
func (m *MockSTSClient) Deny(roleARN string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeniedRoles[roleARN] = fmt.Errorf("AccessDenied: User is not authorized to perform: sts:AssumeRole on resource: %s", roleARN)
}

func (m *MockSTSClient) AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AssumeRoleCalls++
	m.AssumeRoleInputs = append(m.AssumeRoleInputs, *params)

	if m.AssumeRoleErr != nil {
		return nil, m.AssumeRoleErr
	}
	if params.RoleArn != nil {
		if err, ok := m.DeniedRoles[*params.RoleArn]; ok {
			return nil, err
		}
	}
	if m.NoCredentials {
		return &sts.AssumeRoleOutput{}, nil
	}

	duration := time.Hour
	if params.DurationSeconds != nil {
		duration = time.Duration(*params.DurationSeconds) * time.Second
	}
	expiration := time.Now().Add(duration)

	return &sts.AssumeRoleOutput{
		Credentials: &types.Credentials{
			AccessKeyId:     strPtr("ASIA" + randomID()),
			SecretAccessKey: strPtr(randomID() + randomID()),
			SessionToken:    strPtr("session-" + randomID()),
			Expiration:      &expiration,
		},
		AssumedRoleUser: &types.AssumedRoleUser{
			Arn:           params.RoleArn,
			AssumedRoleId: strPtr("AROA" + randomID()),
		},
	}, nil
}
