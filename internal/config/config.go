package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Hari-1410/H4shQ4x-2026/internal/scoring"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP      HTTPConfig
	Graph     GraphConfig
	Logging   LoggingConfig
	Scoring   ScoringConfig
	Admission AdmissionConfig
	Replay    ReplayConfig
	Security  SecurityConfig
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host              string
	Port              int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MetricsEnabled    bool
	AllowedOriginsCSV string
}

// GraphConfig describes connectivity to the Neo4j audit store. An empty URI
// disables assessment export.
type GraphConfig struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
	QueryTimeout   time.Duration
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string
	Format        string // text|json
	IncludeCaller bool
}

// ScoringConfig overrides selected scoring policy values.
type ScoringConfig struct {
	PassThroughWindow time.Duration
	CycleFloor        float64
	MinCycleLength    int
	MaxCycleLength    int
	HighThreshold     float64
	MediumThreshold   float64
}

// AdmissionConfig bounds the work a single request may cause.
type AdmissionConfig struct {
	MaxTransactions int
	MaxAccounts     int
	MaxBodyBytes    int64
	AnalysisTimeout time.Duration
}

// ReplayConfig configures duplicate batch detection. An empty RedisAddr keeps
// fingerprints in process memory.
type ReplayConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

// SecurityConfig holds request authentication and throttling settings.
type SecurityConfig struct {
	// APIKeyHashes are hex SHA-256 digests of accepted keys. Empty disables auth.
	APIKeyHashes       []string
	RateLimitPerMinute int
	RateLimitBurst     int
	// TrustProxy lets the limiter key anonymous clients by X-Forwarded-For.
	TrustProxy bool
}

const (
	defaultHost             = "0.0.0.0"
	defaultPort             = 8080
	defaultReadTimeout      = 10 * time.Second
	defaultWriteTimeout     = 15 * time.Second
	defaultIdleTimeout      = 60 * time.Second
	defaultShutdownTimeout  = 10 * time.Second
	defaultLoggingLevel     = "info"
	defaultLoggingFormat    = "text"
	defaultGraphMaxSessions = 10
	defaultGraphTimeout     = 5 * time.Second

	defaultMaxTransactions = 500
	defaultMaxAccounts     = 300
	defaultMaxBodyBytes    = 1 << 20
	defaultAnalysisTimeout = 5 * time.Second

	defaultReplayTTL = 10 * time.Minute

	defaultRateLimitPerMinute = 60
	defaultRateLimitBurst     = 10
)

// Load reads configuration from environment variables, applying defaults. A
// .env file in the working directory is loaded first when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	policy := scoring.DefaultPolicy()
	cfg := Config{
		HTTP: HTTPConfig{
			Host: valueOrDefault("SERVER_HOST", defaultHost),
		},
		Logging: LoggingConfig{
			Level:         valueOrDefault("LOG_LEVEL", defaultLoggingLevel),
			Format:        valueOrDefault("LOG_FORMAT", defaultLoggingFormat),
			IncludeCaller: parseBoolWithDefault("LOG_INCLUDE_CALLER", false),
		},
		Graph: GraphConfig{
			URI:            os.Getenv("GRAPH_URI"),
			Database:       valueOrDefault("GRAPH_DATABASE", ""),
			Username:       os.Getenv("GRAPH_USERNAME"),
			Password:       os.Getenv("GRAPH_PASSWORD"),
			MaxConnections: parseIntWithDefault("GRAPH_MAX_CONNECTIONS", defaultGraphMaxSessions),
		},
		Scoring: ScoringConfig{
			MinCycleLength: parseIntWithDefault("SCORING_MIN_CYCLE_LENGTH", policy.MinCycleLength),
			MaxCycleLength: parseIntWithDefault("SCORING_MAX_CYCLE_LENGTH", policy.MaxCycleLength),
		},
		Admission: AdmissionConfig{
			MaxTransactions: parseIntWithDefault("MAX_BATCH_TRANSACTIONS", defaultMaxTransactions),
			MaxAccounts:     parseIntWithDefault("MAX_BATCH_ACCOUNTS", defaultMaxAccounts),
			MaxBodyBytes:    int64(parseIntWithDefault("MAX_BODY_BYTES", defaultMaxBodyBytes)),
		},
		Replay: ReplayConfig{
			Enabled:       parseBoolWithDefault("REPLAY_GUARD_ENABLED", true),
			RedisAddr:     os.Getenv("REDIS_ADDR"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       parseIntWithDefault("REDIS_DB", 0),
		},
		Security: SecurityConfig{
			APIKeyHashes:       apiKeyHashes(os.Getenv("API_KEYS"), os.Getenv("API_KEY_HASHES")),
			RateLimitPerMinute: parseIntWithDefault("RATE_LIMIT_PER_MINUTE", defaultRateLimitPerMinute),
			RateLimitBurst:     parseIntWithDefault("RATE_LIMIT_BURST", defaultRateLimitBurst),
			TrustProxy:         parseBoolWithDefault("RATE_LIMIT_TRUST_PROXY", false),
		},
	}

	port, err := parsePort("SERVER_PORT", defaultPort)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTP.Port = port

	durations := []struct {
		key      string
		fallback time.Duration
		dst      *time.Duration
	}{
		{"SERVER_READ_TIMEOUT", defaultReadTimeout, &cfg.HTTP.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", defaultWriteTimeout, &cfg.HTTP.WriteTimeout},
		{"SERVER_IDLE_TIMEOUT", defaultIdleTimeout, &cfg.HTTP.IdleTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", defaultShutdownTimeout, &cfg.HTTP.ShutdownTimeout},
		{"ANALYSIS_TIMEOUT", defaultAnalysisTimeout, &cfg.Admission.AnalysisTimeout},
		{"REPLAY_TTL", defaultReplayTTL, &cfg.Replay.TTL},
		{"GRAPH_QUERY_TIMEOUT", defaultGraphTimeout, &cfg.Graph.QueryTimeout},
		{"SCORING_PASS_THROUGH_WINDOW", policy.PassThroughWindow, &cfg.Scoring.PassThroughWindow},
	}
	for _, d := range durations {
		v, err := parseDuration(d.key, d.fallback)
		if err != nil {
			return Config{}, err
		}
		*d.dst = v
	}

	floats := []struct {
		key      string
		fallback float64
		dst      *float64
	}{
		{"SCORING_CYCLE_FLOOR", policy.CycleFloor, &cfg.Scoring.CycleFloor},
		{"SCORING_HIGH_THRESHOLD", policy.HighThreshold, &cfg.Scoring.HighThreshold},
		{"SCORING_MEDIUM_THRESHOLD", policy.MediumThreshold, &cfg.Scoring.MediumThreshold},
	}
	for _, f := range floats {
		v, err := parseFloat(f.key, f.fallback)
		if err != nil {
			return Config{}, err
		}
		*f.dst = v
	}

	cfg.HTTP.MetricsEnabled = parseBoolWithDefault("SERVER_METRICS_ENABLED", false)
	cfg.HTTP.AllowedOriginsCSV = os.Getenv("SERVER_ALLOWED_ORIGINS")

	if _, err := cfg.Scoring.Policy(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Policy applies the overrides to the default scoring policy and validates it.
func (s ScoringConfig) Policy() (scoring.Policy, error) {
	p := scoring.DefaultPolicy()
	p.PassThroughWindow = s.PassThroughWindow
	p.CycleFloor = s.CycleFloor
	p.MinCycleLength = s.MinCycleLength
	p.MaxCycleLength = s.MaxCycleLength
	p.HighThreshold = s.HighThreshold
	p.MediumThreshold = s.MediumThreshold
	if err := p.Validate(); err != nil {
		return scoring.Policy{}, fmt.Errorf("invalid scoring configuration: %w", err)
	}
	return p, nil
}

// AllowedOrigins splits the configured CORS origin list.
func (c HTTPConfig) AllowedOrigins() []string {
	return splitCSV(c.AllowedOriginsCSV)
}

// HashAPIKey returns the hex SHA-256 digest stored for an API key.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func apiKeyHashes(plainCSV, hashedCSV string) []string {
	var out []string
	for _, k := range splitCSV(plainCSV) {
		out = append(out, HashAPIKey(k))
	}
	for _, h := range splitCSV(hashedCSV) {
		out = append(out, strings.ToLower(h))
	}
	return out
}

func splitCSV(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func parseFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func parsePort(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		if port <= 0 || port > 65535 {
			return 0, fmt.Errorf("port %d is out of range", port)
		}
		return port, nil
	}
	return fallback, nil
}
