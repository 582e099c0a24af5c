package driver

import (
	"context"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type ExecutedQuery struct {
	Query  string
	Params map[string]any
}

// MockDriver records queries and answers them from Results keyed by query
// text. Unknown queries return an empty result.
type MockDriver struct {
	Results map[string]neo4j.EagerResult
	Err     error
	PingErr error
	Queries []ExecutedQuery

	mu sync.Mutex
}

func (m *MockDriver) ExecuteQuery(ctx context.Context, query string, params map[string]any) (neo4j.EagerResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Queries = append(m.Queries, ExecutedQuery{Query: query, Params: params})
	if m.Err != nil {
		return neo4j.EagerResult{}, m.Err
	}
	return m.Results[query], nil
}

func (m *MockDriver) VerifyConnectivity(ctx context.Context) error { return m.PingErr }

func (m *MockDriver) BuildIndices(ctx context.Context) error { return nil }

func (m *MockDriver) Close(ctx context.Context) error { return nil }

// Record builds a single result row.
func Record(keys []string, values ...any) *neo4j.Record {
	return &neo4j.Record{Keys: keys, Values: values}
}
