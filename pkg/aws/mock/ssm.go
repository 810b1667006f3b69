package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// MockSSMClient serves parameters from memory.
type MockSSMClient struct {
	mu sync.Mutex

	Parameters map[string]types.Parameter

	// GetParameterErrs are returned by successive calls before the data is served
	GetParameterErrs []error

	// Call tracking
	GetParameterCalls int
}

// NewMockSSMClient creates an empty mock.
func NewMockSSMClient() *MockSSMClient {
	return &MockSSMClient{
		Parameters: make(map[string]types.Parameter),
	}
}

// SetParameter stores a parameter value of the given type.
func (m *MockSSMClient) SetParameter(name, value string, paramType types.ParameterType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Parameters[name] = types.Parameter{
		Name:  strPtr(name),
		Value: strPtr(value),
		Type:  paramType,
	}
}

func (m *MockSSMClient) GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetParameterCalls++

	if len(m.GetParameterErrs) > 0 {
		err := m.GetParameterErrs[0]
		m.GetParameterErrs = m.GetParameterErrs[1:]
		return nil, err
	}

	name := ""
	if params.Name != nil {
		name = *params.Name
	}
	param, ok := m.Parameters[name]
	if !ok {
		return nil, &types.ParameterNotFound{Message: strPtr(fmt.Sprintf("parameter %s not found", name))}
	}
	return &ssm.GetParameterOutput{Parameter: &param}, nil
}
