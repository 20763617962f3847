package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/Hari-1410/H4shQ4x-2026/internal/metrics"
	"github.com/Hari-1410/H4shQ4x-2026/internal/ratelimit"
)

// RouterDependencies collects handler dependencies. Nil optional fields turn
// the corresponding feature off.
type RouterDependencies struct {
	Health           HealthService
	API              *APIHandlers
	Metrics          *metrics.Metrics
	Limiter          *ratelimit.Limiter
	APIKeyHashes     []string
	AllowedOrigins   []string
	AllowCredentials bool
}

// NewRouter wires the HTTP routes exposed by the risk API.
func NewRouter(logger *slog.Logger, deps RouterDependencies) http.Handler {
	mux := http.NewServeMux()

	health := func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		payload := map[string]any{
			"status": "ok",
		}

		if deps.Health != nil {
			if err := deps.Health.Probe(ctx); err != nil {
				logger.Error("health probe failed", "error", err)
				status = http.StatusServiceUnavailable
				payload["status"] = "degraded"
				payload["error"] = err.Error()
			}
		}

		respondJSON(w, status, payload)
	}
	mux.HandleFunc("/healthz", health)
	mux.HandleFunc("/health", health)

	if deps.Metrics != nil {
		mux.Handle("/metrics", deps.Metrics.Handler())
	}

	if deps.API != nil {
		protect := func(route string, h http.HandlerFunc) http.Handler {
			var handler http.Handler = h
			handler = apiKeyMiddleware(deps.APIKeyHashes, deps.Metrics, handler)
			if deps.Limiter != nil {
				handler = deps.Limiter.Middleware(handler)
			}
			return deps.Metrics.Middleware(route, handler)
		}

		mux.Handle("/analyze", protect("/analyze", deps.API.handleAnalyze))
		mux.Handle("/accounts/", protect("/accounts/{id}/assessments", deps.API.handleAccountAssessments))
		mux.Handle("/explainability", deps.Metrics.Middleware("/explainability", http.HandlerFunc(deps.API.handleExplainability)))
	}

	handler := http.Handler(loggingMiddleware(logger, mux))
	if len(deps.AllowedOrigins) > 0 {
		handler = corsMiddleware(deps.AllowedOrigins, deps.AllowCredentials)(handler)
	}
	return requestIDMiddleware(logger, handler)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}
