package mock

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// MockSNSClient records published messages.
type MockSNSClient struct {
	mu sync.Mutex

	PublishErr error

	// Call tracking
	PublishCalls  int
	PublishInputs []sns.PublishInput
}

// NewMockSNSClient creates an empty mock.
func NewMockSNSClient() *MockSNSClient {
	return &MockSNSClient{}
}

func (m *MockSNSClient) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PublishCalls++
	m.PublishInputs = append(m.PublishInputs, *params)

	if m.PublishErr != nil {
		return nil, m.PublishErr
	}
	return &sns.PublishOutput{MessageId: strPtr("msg-" + randomID())}, nil
}
