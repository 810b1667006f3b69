package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// MockDynamoDBClient answers Query calls from a fixed item list per table.
type MockDynamoDBClient struct {
	mu sync.Mutex

	// Tables maps a table name to the items returned by Query
	Tables map[string][]map[string]types.AttributeValue

	// QueryErrs are returned by successive Query calls before the data is served
	QueryErrs []error

	// Call tracking
	QueryCalls  int
	QueryInputs []dynamodb.QueryInput
}

// NewMockDynamoDBClient creates an empty mock.
func NewMockDynamoDBClient() *MockDynamoDBClient {
	return &MockDynamoDBClient{
		Tables: make(map[string][]map[string]types.AttributeValue),
	}
}

// PutItem stores item in table.
func (m *MockDynamoDBClient) PutItem(table string, item map[string]types.AttributeValue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tables[table] = append(m.Tables[table], item)
}

func (m *MockDynamoDBClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueryCalls++
	m.QueryInputs = append(m.QueryInputs, *params)

	if len(m.QueryErrs) > 0 {
		err := m.QueryErrs[0]
		m.QueryErrs = m.QueryErrs[1:]
		return nil, err
	}

	table := ""
	if params.TableName != nil {
		table = *params.TableName
	}
	items, ok := m.Tables[table]
	if !ok {
		return nil, fmt.Errorf("ResourceNotFoundException: Requested resource not found: Table: %s not found", table)
	}

	return &dynamodb.QueryOutput{
		Items: items,
		Count: int32(len(items)),
	}, nil
}
