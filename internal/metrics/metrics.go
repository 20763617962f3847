// Package metrics provides Prometheus instrumentation for the risk API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "riskengine"

// Rejection reasons used as label values.
const (
	ReasonValidation   = "validation"
	ReasonTooLarge     = "too_large"
	ReasonDuplicate    = "duplicate"
	ReasonTimeout      = "timeout"
	ReasonUnauthorized = "unauthorized"
	ReasonRateLimited  = "rate_limited"
)

// Metrics owns a private registry and every collector the service exports.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	batches          *prometheus.CounterVec
	rejections       *prometheus.CounterVec
	analysisDuration prometheus.Histogram
	batchSize        prometheus.Histogram
	flaggedAccounts  prometheus.Counter
	batchScore       prometheus.Histogram

	replayErrors  prometheus.Counter
	auditFailures prometheus.Counter
}

// New registers all collectors, plus Go runtime and process collectors, on a
// fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, route and status class.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_analyzed_total",
			Help:      "Batches scored, by batch risk level.",
		}, []string{"level"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_rejected_total",
			Help:      "Batches rejected before or during scoring, by reason.",
		}, []string{"reason"}),
		analysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Time spent scoring one batch.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_transactions",
			Help:      "Transactions per scored batch.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),
		flaggedAccounts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flagged_accounts_total",
			Help:      "Accounts that received a risk record.",
		}),
		batchScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_risk_score",
			Help:      "Distribution of batch risk scores.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
		replayErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replay_guard_errors_total",
			Help:      "Replay store failures; the batch was scored anyway.",
		}),
		auditFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_export_failures_total",
			Help:      "Assessments that could not be written to the audit store.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.batches,
		m.rejections,
		m.analysisDuration,
		m.batchSize,
		m.flaggedAccounts,
		m.batchScore,
		m.replayErrors,
		m.auditFailures,
	)
	return m
}

// Registry exposes the underlying registry for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveAssessment records one scored batch.
func (m *Metrics) ObserveAssessment(level string, score float64, transactions, flagged int, took time.Duration) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(level).Inc()
	m.batchScore.Observe(score)
	m.batchSize.Observe(float64(transactions))
	m.flaggedAccounts.Add(float64(flagged))
	m.analysisDuration.Observe(took.Seconds())
}

// ObserveRejection records a refused batch.
func (m *Metrics) ObserveRejection(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}

// ObserveReplayError records a replay store failure.
func (m *Metrics) ObserveReplayError() {
	if m == nil {
		return
	}
	m.replayErrors.Inc()
}

// ObserveAuditFailure records a failed audit export.
func (m *Metrics) ObserveAuditFailure() {
	if m == nil {
		return
	}
	m.auditFailures.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware instruments next under a fixed route label to bound cardinality.
func (m *Metrics) Middleware(route string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		m.httpRequests.WithLabelValues(r.Method, route, statusBucket(sw.status)).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func statusBucket(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return strconv.Itoa(code/100) + "xx"
}
