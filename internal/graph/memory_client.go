package graph

import (
	"context"
	"strings"
	"sync"
)

// ExecutedQuery captures a cypher statement and parameters executed against the graph.
type ExecutedQuery struct {
	Query  string
	Params map[string]any
	Write  bool
}

// Responder produces the result for a query issued to a MemoryClient.
type Responder func(q ExecutedQuery) (Result, error)

type route struct {
	fragment string
	respond  Responder
}

// MemoryClient implements Client without a database. Queries are matched
// against registered routes by cypher fragment; unmatched queries return an
// empty result. Every call is recorded for inspection.
type MemoryClient struct {
	mu           sync.Mutex
	routes       []route
	calls        []ExecutedQuery
	err          error
	connectivity error
	closed       bool
}

// NewMemoryClient instantiates an empty in-memory client.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{}
}

// On registers a responder for queries containing fragment. Later routes take
// precedence over earlier ones.
func (m *MemoryClient) On(fragment string, respond Responder) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes = append(m.routes, route{fragment: fragment, respond: respond})
	return m
}

// Returning is a Responder that always yields res.
func Returning(res Result) Responder {
	return func(ExecutedQuery) (Result, error) { return res, nil }
}

// WithError makes every query fail with err.
func (m *MemoryClient) WithError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithConnectivityError forces VerifyConnectivity to return the supplied error.
func (m *MemoryClient) WithConnectivityError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectivity = err
	return m
}

func (m *MemoryClient) ExecuteWrite(_ context.Context, cypher string, params map[string]any) (Result, error) {
	return m.execute(ExecutedQuery{Query: cypher, Params: cloneMap(params), Write: true})
}

func (m *MemoryClient) ExecuteRead(_ context.Context, cypher string, params map[string]any) (Result, error) {
	return m.execute(ExecutedQuery{Query: cypher, Params: cloneMap(params)})
}

func (m *MemoryClient) execute(q ExecutedQuery) (Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, q)
	if m.err != nil {
		err := m.err
		m.mu.Unlock()
		return Result{}, err
	}
	var respond Responder
	for i := len(m.routes) - 1; i >= 0; i-- {
		if strings.Contains(q.Query, m.routes[i].fragment) {
			respond = m.routes[i].respond
			break
		}
	}
	m.mu.Unlock()

	if respond == nil {
		return Result{}, nil
	}
	return respond(q)
}

func (m *MemoryClient) VerifyConnectivity(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectivity
}

func (m *MemoryClient) Close(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MemoryClient) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// WriteCalls returns a snapshot of executed write queries.
func (m *MemoryClient) WriteCalls() []ExecutedQuery {
	return m.filter(true)
}

// ReadCalls returns a snapshot of executed read queries.
func (m *MemoryClient) ReadCalls() []ExecutedQuery {
	return m.filter(false)
}

func (m *MemoryClient) filter(write bool) []ExecutedQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ExecutedQuery
	for _, c := range m.calls {
		if c.Write == write {
			out = append(out, c)
		}
	}
	return out
}

func cloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
