package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hari-1410/H4shQ4x-2026/internal/config"
	"github.com/Hari-1410/H4shQ4x-2026/internal/domain"
	"github.com/Hari-1410/H4shQ4x-2026/internal/graph"
	"github.com/Hari-1410/H4shQ4x-2026/internal/logging"
	"github.com/Hari-1410/H4shQ4x-2026/internal/metrics"
	"github.com/Hari-1410/H4shQ4x-2026/internal/ratelimit"
	"github.com/Hari-1410/H4shQ4x-2026/internal/replay"
	"github.com/Hari-1410/H4shQ4x-2026/internal/repository"
	"github.com/Hari-1410/H4shQ4x-2026/internal/scoring"
	"github.com/Hari-1410/H4shQ4x-2026/internal/service"
	"github.com/Hari-1410/H4shQ4x-2026/internal/txgraph"
)

const muleBody = `{"transactions":[
	{"sender":"U1","receiver":"M","amount":5000,"timestamp":"2024-01-01T10:00:00Z"},
	{"sender":"U2","receiver":"M","amount":4950,"timestamp":"2024-01-01T10:01:00Z"},
	{"sender":"U3","receiver":"M","amount":4900,"time":"2024-01-01T10:02:00"},
	{"sender":"M","receiver":"R","amount":4800,"timestamp":"2024-01-01T10:03:00Z"}
]}`

type stubService struct {
	err     error
	history domain.AccountHistory
	account string
	limit   int
}

func (s *stubService) Analyze(context.Context, []txgraph.Record) (domain.Assessment, error) {
	return domain.Assessment{}, s.err
}

func (s *stubService) AccountHistory(_ context.Context, account string, limit int) (domain.AccountHistory, error) {
	s.account, s.limit = account, limit
	return s.history, s.err
}

func (s *stubService) Explainability() scoring.ExplainabilityReport {
	return scoring.Explainability()
}

type failingCheck struct{}

func (failingCheck) Probe(context.Context) error { return errors.New("bolt: connection refused") }

func newService(t *testing.T, limits service.Limits) *service.AnalysisService {
	t.Helper()
	engine, err := scoring.NewEngine(scoring.DefaultPolicy(), scoring.WithMaxAccounts(50))
	require.NoError(t, err)
	return service.NewAnalysisService(engine, limits, logging.Discard(),
		service.WithReplayStore(replay.NewMemoryStore()),
	)
}

func newRouter(t *testing.T, svc AnalysisService, mutate func(*RouterDependencies)) http.Handler {
	t.Helper()
	deps := RouterDependencies{
		API:     NewAPIHandlers(logging.Discard(), svc, 0),
		Metrics: metrics.New(),
	}
	if mutate != nil {
		mutate(&deps)
	}
	return NewRouter(logging.Discard(), deps)
}

func do(h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAnalyze_Success(t *testing.T) {
	router := newRouter(t, newService(t, service.Limits{ReplayTTL: time.Minute}), nil)

	rec := do(router, http.MethodPost, "/analyze", muleBody, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.NotEmpty(t, payload["analysis_id"])
	assert.NotEmpty(t, payload["fingerprint"])
	assert.Contains(t, []any{"LOW", "MEDIUM", "HIGH"}, payload["batch_risk_level"])
	assert.Len(t, payload["transaction_risks"], 4)

	accounts, ok := payload["accounts"].([]any)
	require.True(t, ok)
	require.Len(t, accounts, 1)
	first := accounts[0].(map[string]any)
	assert.Equal(t, "M", first["account"])
	assert.Len(t, first["reasons"], 3)

	explain, ok := payload["explainability"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"data_usage", "signals_used", "scoring_characteristics", "limitations", "intended_use"} {
		assert.Contains(t, explain, key)
	}
}

func TestAnalyze_EmptyBatch(t *testing.T) {
	router := newRouter(t, newService(t, service.Limits{}), nil)

	rec := do(router, http.MethodPost, "/analyze", `{"transactions":[]}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"accounts":[]`)
	assert.Contains(t, rec.Body.String(), `"batch_risk_level":"LOW"`)
}

func TestAnalyze_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		limits service.Limits
		body   string
		status int
		expect string
	}{
		{"malformed json", service.Limits{}, `{"transactions":`, http.StatusBadRequest, "invalid JSON payload"},
		{"unknown field", service.Limits{}, `{"transactions":[],"extra":1}`, http.StatusBadRequest, "invalid JSON payload"},
		{"missing transactions", service.Limits{}, `{}`, http.StatusBadRequest, "transactions"},
		{"empty body", service.Limits{}, ``, http.StatusBadRequest, "request body is required"},
		{
			"missing amount", service.Limits{},
			`{"transactions":[{"sender":"A","receiver":"B","timestamp":"2024-01-01T00:00:00Z"}]}`,
			http.StatusBadRequest, `"field":"amount"`,
		},
		{
			"bad timestamp", service.Limits{},
			`{"transactions":[{"sender":"A","receiver":"B","amount":1,"timestamp":"noon"}]}`,
			http.StatusBadRequest, `"field":"timestamp"`,
		},
		{
			"amount as string", service.Limits{},
			`{"transactions":[{"sender":"A","receiver":"B","amount":"ten","timestamp":"2024-01-01T00:00:00Z"}]}`,
			http.StatusBadRequest, `"field":"amount"`,
		},
		{
			"record not an object", service.Limits{},
			`{"transactions":["A->B"]}`,
			http.StatusBadRequest, `"field":"record"`,
		},
		{"too many transactions", service.Limits{MaxTransactions: 2}, muleBody, http.StatusRequestEntityTooLarge, "transaction limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(t, newService(t, tt.limits), nil)
			rec := do(router, http.MethodPost, "/analyze", tt.body, nil)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), tt.expect)
		})
	}
}

func TestAnalyze_IgnoresExtraColumns(t *testing.T) {
	router := newRouter(t, newService(t, service.Limits{}), nil)

	body := `{"transactions":[
		{"id":"T1","sender":"A","receiver":"B","amount":10,"time":"2024-01-01T10:00:00","currency":"INR"},
		{"id":"T2","sender":"B","receiver":"C","amount":9,"timestamp":"2024-01-01T15:31:00+0530","channel":"UPI"}
	]}`
	rec := do(router, http.MethodPost, "/analyze", body, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Len(t, payload["transaction_risks"], 2)
	assert.EqualValues(t, 2, payload["transaction_count"])
}

func TestAnalyze_ServiceErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("wrapped: %w", service.ErrDuplicateBatch), http.StatusConflict},
		{service.ErrAnalysisTimeout, http.StatusServiceUnavailable},
		{service.ErrTooManyAccounts, http.StatusRequestEntityTooLarge},
		{errors.New("unexpected"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		router := newRouter(t, &stubService{err: tt.err}, nil)
		rec := do(router, http.MethodPost, "/analyze", `{"transactions":[]}`, nil)
		assert.Equal(t, tt.status, rec.Code, tt.err.Error())
	}
}

func TestAnalyze_DuplicateBatch(t *testing.T) {
	router := newRouter(t, newService(t, service.Limits{ReplayTTL: time.Minute}), nil)

	require.Equal(t, http.StatusOK, do(router, http.MethodPost, "/analyze", muleBody, nil).Code)
	rec := do(router, http.MethodPost, "/analyze", muleBody, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAnalyze_BodyTooLarge(t *testing.T) {
	svc := newService(t, service.Limits{})
	router := NewRouter(logging.Discard(), RouterDependencies{API: NewAPIHandlers(logging.Discard(), svc, 64)})

	rec := do(router, http.MethodPost, "/analyze", muleBody, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestAnalyze_MethodNotAllowed(t *testing.T) {
	router := newRouter(t, newService(t, service.Limits{}), nil)
	rec := do(router, http.MethodGet, "/analyze", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

func scrape(t *testing.T, router http.Handler) string {
	t.Helper()
	rec := do(router, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestAnalyze_APIKey(t *testing.T) {
	router := newRouter(t, newService(t, service.Limits{}), func(d *RouterDependencies) {
		d.APIKeyHashes = []string{config.HashAPIKey("s3cret")}
	})

	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodPost, "/analyze", muleBody, nil).Code)
	assert.Equal(t, http.StatusUnauthorized,
		do(router, http.MethodPost, "/analyze", muleBody, map[string]string{"X-API-Key": "wrong"}).Code)
	assert.Equal(t, http.StatusOK,
		do(router, http.MethodPost, "/analyze", muleBody, map[string]string{"X-API-Key": "s3cret"}).Code)
	assert.Equal(t, http.StatusOK,
		do(router, http.MethodPost, "/analyze", `{"transactions":[]}`, map[string]string{"Authorization": "Bearer s3cret"}).Code)

	// explainability and health stay public
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/explainability", "", nil).Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/healthz", "", nil).Code)

	assert.Contains(t, scrape(t, router), `riskengine_batches_rejected_total{reason="unauthorized"} 2`)
}

func TestAnalyze_RateLimited(t *testing.T) {
	m := metrics.New()
	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerMinute: 1,
		BurstSize:         1,
		CleanupInterval:   time.Minute,
		OnLimited:         func() { m.ObserveRejection(metrics.ReasonRateLimited) },
	})
	t.Cleanup(limiter.Stop)
	router := newRouter(t, newService(t, service.Limits{}), func(d *RouterDependencies) {
		d.Limiter = limiter
		d.Metrics = m
	})

	assert.Equal(t, http.StatusOK, do(router, http.MethodPost, "/analyze", `{"transactions":[]}`, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(router, http.MethodPost, "/analyze", `{"transactions":[]}`, nil).Code)

	// without verified keys a self-chosen X-API-Key does not buy a new bucket
	rec := do(router, http.MethodPost, "/analyze", `{"transactions":[]}`, map[string]string{"X-API-Key": "fresh"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	assert.Contains(t, scrape(t, router), `riskengine_batches_rejected_total{reason="rate_limited"} 2`)
}

func TestExplainability(t *testing.T) {
	router := newRouter(t, newService(t, service.Limits{}), nil)

	rec := do(router, http.MethodGet, "/explainability", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report scoring.ExplainabilityReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, scoring.Explainability(), report)

	assert.Equal(t, http.StatusMethodNotAllowed, do(router, http.MethodPost, "/explainability", "", nil).Code)
}

func TestAccountAssessments(t *testing.T) {
	stub := &stubService{history: domain.AccountHistory{
		Account: "ACC-9",
		Items:   []domain.AccountFlag{{AnalysisID: "AN-1", Account: "ACC-9", RiskScore: 0.8}},
	}}
	router := newRouter(t, stub, nil)

	rec := do(router, http.MethodGet, "/accounts/ACC-9/assessments?limit=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "ACC-9", stub.account)
	assert.Equal(t, 5, stub.limit)

	var history domain.AccountHistory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history.Items, 1)
	assert.Equal(t, "AN-1", history.Items[0].AnalysisID)

	assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, "/accounts/ACC-9", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodGet, "/accounts//assessments", "", nil).Code)

	stub.err = errors.New("neo4j down")
	assert.Equal(t, http.StatusInternalServerError, do(router, http.MethodGet, "/accounts/ACC-9/assessments", "", nil).Code)
}

func TestHealth(t *testing.T) {
	router := newRouter(t, newService(t, service.Limits{}), nil)
	rec := do(router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	router = newRouter(t, newService(t, service.Limits{}), func(d *RouterDependencies) {
		d.Health = CompositeHealth{"graph": failingCheck{}, "replay": PingHealthService{}}
	})
	rec = do(router, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "graph: bolt: connection refused")
}

func TestHealth_AuditRepositoryPing(t *testing.T) {
	client := graph.NewMemoryClient()
	health := CompositeHealth{"graph": PingHealthService{Target: repository.New(client)}}
	router := newRouter(t, newService(t, service.Limits{}), func(d *RouterDependencies) {
		d.Health = health
	})
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/healthz", "", nil).Code)

	client.WithConnectivityError(errors.New("routing table unavailable"))
	rec := do(router, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "graph: routing table unavailable")
}

func TestMetricsEndpoint(t *testing.T) {
	router := newRouter(t, newService(t, service.Limits{}), nil)
	do(router, http.MethodPost, "/analyze", `{"transactions":[]}`, nil)

	rec := do(router, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `riskengine_http_requests_total{method="POST",route="/analyze",status="2xx"} 1`)
}

func TestRequestIDPropagation(t *testing.T) {
	router := newRouter(t, newService(t, service.Limits{}), nil)
	id := "4f9c2b1e-3d7a-4c1b-9a8e-2f6d5c4b3a21"

	rec := do(router, http.MethodGet, "/healthz", "", map[string]string{requestIDHeader: id})
	assert.Equal(t, id, rec.Header().Get(requestIDHeader))

	rec = do(router, http.MethodGet, "/healthz", "", map[string]string{requestIDHeader: "not-a-uuid"})
	assert.NotEqual(t, "not-a-uuid", rec.Header().Get(requestIDHeader))
}

func TestCORS(t *testing.T) {
	router := newRouter(t, newService(t, service.Limits{}), func(d *RouterDependencies) {
		d.AllowedOrigins = []string{"https://console.example.com"}
	})

	rec := do(router, http.MethodOptions, "/analyze", "", map[string]string{"Origin": "https://console.example.com"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://console.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(router, http.MethodOptions, "/analyze", "", map[string]string{"Origin": "https://evil.example.com"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
