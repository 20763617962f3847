package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Hari-1410/H4shQ4x-2026/internal/config"
	"github.com/Hari-1410/H4shQ4x-2026/internal/graph"
	"github.com/Hari-1410/H4shQ4x-2026/internal/logging"
	"github.com/Hari-1410/H4shQ4x-2026/internal/metrics"
	"github.com/Hari-1410/H4shQ4x-2026/internal/ratelimit"
	"github.com/Hari-1410/H4shQ4x-2026/internal/replay"
	"github.com/Hari-1410/H4shQ4x-2026/internal/repository"
	"github.com/Hari-1410/H4shQ4x-2026/internal/scoring"
	"github.com/Hari-1410/H4shQ4x-2026/internal/server"
	"github.com/Hari-1410/H4shQ4x-2026/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)
	if err := run(logger, cfg); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	policy, err := cfg.Scoring.Policy()
	if err != nil {
		return err
	}
	engine, err := scoring.NewEngine(policy, scoring.WithMaxAccounts(cfg.Admission.MaxAccounts))
	if err != nil {
		return err
	}

	health := server.CompositeHealth{}
	opts := []service.Option{}

	var m *metrics.Metrics
	if cfg.HTTP.MetricsEnabled {
		m = metrics.New()
		opts = append(opts, service.WithMetrics(m))
	}

	if cfg.Replay.Enabled {
		store, pinger := buildReplayStore(ctx, logger, cfg.Replay)
		defer func() {
			if err := store.Close(); err != nil {
				logger.Warn("closing replay store failed", "error", err)
			}
		}()
		if pinger != nil {
			health["replay"] = server.PingHealthService{Target: pinger}
		}
		opts = append(opts, service.WithReplayStore(store))
	}

	if cfg.Graph.URI != "" {
		graphClient, err := buildGraphClient(ctx, cfg.Graph)
		if err != nil {
			return fmt.Errorf("create graph client: %w", err)
		}
		defer func() {
			if err := graphClient.Close(context.Background()); err != nil {
				logger.Warn("closing graph client failed", "error", err)
			}
		}()

		repo := repository.New(graphClient)
		if err := repo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure audit schema: %w", err)
		}
		health["graph"] = server.PingHealthService{Target: repo}
		opts = append(opts, service.WithRecorder(repo))
	} else {
		logger.Info("GRAPH_URI not set; assessment audit export disabled")
	}

	analysis := service.NewAnalysisService(engine, service.Limits{
		MaxTransactions: cfg.Admission.MaxTransactions,
		Timeout:         cfg.Admission.AnalysisTimeout,
		ReplayTTL:       cfg.Replay.TTL,
	}, logger, opts...)

	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerMinute: cfg.Security.RateLimitPerMinute,
		BurstSize:         cfg.Security.RateLimitBurst,
		CleanupInterval:   time.Minute,
		KeyByCredential:   len(cfg.Security.APIKeyHashes) > 0,
		TrustForwardedFor: cfg.Security.TrustProxy,
		OnLimited:         func() { m.ObserveRejection(metrics.ReasonRateLimited) },
	})
	defer limiter.Stop()

	if len(cfg.Security.APIKeyHashes) == 0 {
		logger.Warn("no API keys configured; /analyze is unauthenticated")
	}

	router := server.NewRouter(logger, server.RouterDependencies{
		Health:           health,
		API:              server.NewAPIHandlers(logger, analysis, cfg.Admission.MaxBodyBytes),
		Metrics:          m,
		Limiter:          limiter,
		APIKeyHashes:     cfg.Security.APIKeyHashes,
		AllowedOrigins:   cfg.HTTP.AllowedOrigins(),
		AllowCredentials: true,
	})

	return server.New(logger, cfg.HTTP, router).Run(ctx)
}

// buildReplayStore prefers Redis so replicas share fingerprints. An
// unreachable Redis is reported but not fatal; claims fail open.
func buildReplayStore(ctx context.Context, logger *slog.Logger, cfg config.ReplayConfig) (replay.Store, server.Pinger) {
	if cfg.RedisAddr == "" {
		logger.Info("replay guard using in-process store")
		return replay.NewMemoryStore(), nil
	}

	store := replay.NewRedisStore(replay.NewRedisClient(replay.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}))
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		logger.Warn("redis unreachable at startup", "addr", cfg.RedisAddr, "error", err)
	} else {
		logger.Info("replay guard using redis", "addr", cfg.RedisAddr)
	}
	return store, store
}

func buildGraphClient(ctx context.Context, cfg config.GraphConfig) (graph.Client, error) {
	return graph.NewNeo4jClient(ctx, graph.Options{
		URI:            cfg.URI,
		Database:       cfg.Database,
		Username:       cfg.Username,
		Password:       cfg.Password,
		MaxConnections: cfg.MaxConnections,
		QueryTimeout:   cfg.QueryTimeout,
	})
}
