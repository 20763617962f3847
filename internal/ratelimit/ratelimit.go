// Package ratelimit throttles API clients with a per-key token bucket.
package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Config configures rate limiting.
type Config struct {
	// RequestsPerMinute is the sustained rate per client.
	RequestsPerMinute int
	// BurstSize is the bucket capacity.
	BurstSize int
	// CleanupInterval is how often idle clients are forgotten.
	CleanupInterval time.Duration
	// KeyByCredential keys clients by their presented API key or bearer token.
	// Enable only when credentials are verified before the limiter runs.
	KeyByCredential bool
	// TrustForwardedFor keys anonymous clients by the first X-Forwarded-For
	// hop. Enable only behind a proxy that overwrites the header.
	TrustForwardedFor bool
	// OnLimited, when set, is called for every rejected request.
	OnLimited func()
}

// DefaultConfig returns the defaults used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		BurstSize:         10,
		CleanupInterval:   time.Minute,
	}
}

// Limiter tracks token buckets by client key.
type Limiter struct {
	cfg     Config
	now     func() time.Time
	mu      sync.Mutex
	clients map[string]*bucket
	stop    chan struct{}
	once    sync.Once
}

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// New creates a limiter and starts its cleanup loop. Call Stop to end it.
func New(cfg Config) *Limiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = 1
	}
	l := &Limiter{
		cfg:     cfg,
		now:     time.Now,
		clients: make(map[string]*bucket),
		stop:    make(chan struct{}),
	}
	go l.cleanup()
	return l
}

func (l *Limiter) cleanup() {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.mu.Lock()
			cutoff := l.now().Add(-2 * l.cfg.CleanupInterval)
			for key, b := range l.clients {
				if b.lastCheck.Before(cutoff) {
					delete(l.clients, key)
				}
			}
			l.mu.Unlock()
		case <-l.stop:
			return
		}
	}
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

// Allow takes one token from key's bucket.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.clients[key]
	if !ok {
		l.clients[key] = &bucket{tokens: float64(l.cfg.BurstSize - 1), lastCheck: now}
		return true
	}

	elapsed := now.Sub(b.lastCheck).Seconds()
	b.tokens += elapsed * float64(l.cfg.RequestsPerMinute) / 60.0
	if b.tokens > float64(l.cfg.BurstSize) {
		b.tokens = float64(l.cfg.BurstSize)
	}
	b.lastCheck = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Middleware rejects requests over the limit with 429. Clients are keyed by
// API key when one is presented, otherwise by remote IP.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(l.cfg.ClientKey(r)) {
			if l.cfg.OnLimited != nil {
				l.cfg.OnLimited()
			}
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error":       "rate_limit_exceeded",
				"message":     "too many requests",
				"retry_after": 1,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientKey identifies the caller of r for throttling. Client-supplied
// headers are only used when the config trusts them; otherwise the key is the
// remote IP.
func (c Config) ClientKey(r *http.Request) string {
	if c.KeyByCredential {
		if key := r.Header.Get("X-API-Key"); key != "" {
			return "key:" + key[:min(20, len(key))]
		}
		if auth := r.Header.Get("Authorization"); auth != "" {
			return "key:" + auth[:min(20, len(auth))]
		}
	}
	if fwd := r.Header.Get("X-Forwarded-For"); c.TrustForwardedFor && fwd != "" {
		return "ip:" + strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "ip:" + r.RemoteAddr
	}
	return "ip:" + host
}
