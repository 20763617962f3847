package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Hari-1410/H4shQ4x-2026/internal/config"
	"github.com/Hari-1410/H4shQ4x-2026/internal/domain"
	"github.com/Hari-1410/H4shQ4x-2026/internal/graph"
	"github.com/Hari-1410/H4shQ4x-2026/internal/logging"
	"github.com/Hari-1410/H4shQ4x-2026/internal/repository"
	"github.com/Hari-1410/H4shQ4x-2026/internal/scoring"
	"github.com/Hari-1410/H4shQ4x-2026/internal/service"
	"github.com/Hari-1410/H4shQ4x-2026/internal/txgraph"
)

var errNoBatches = errors.New("no batch files given")

func main() {
	var (
		workers = flag.Int("workers", 4, "number of batches scored concurrently")
		asJSON  = flag.Bool("json", false, "print assessments as JSON instead of tables")
		record  = flag.Bool("record", false, "export assessments to the graph audit store (requires GRAPH_URI)")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] batch.json...\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging).With("component", "analyze")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	failed, err := run(ctx, logger, cfg, flag.Args(), *workers, *asJSON, *record)
	if err != nil {
		logger.Error("analysis run failed", "error", err)
		os.Exit(1)
	}
	if failed > 0 {
		os.Exit(2)
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg config.Config, paths []string, workers int, asJSON, record bool) (int, error) {
	if len(paths) == 0 {
		return 0, errNoBatches
	}

	jobs := make([]service.BatchJob, 0, len(paths))
	for _, path := range paths {
		records, err := loadBatch(path)
		if err != nil {
			return 0, err
		}
		jobs = append(jobs, service.BatchJob{Name: path, Records: records})
	}

	policy, err := cfg.Scoring.Policy()
	if err != nil {
		return 0, err
	}
	engine, err := scoring.NewEngine(policy, scoring.WithMaxAccounts(cfg.Admission.MaxAccounts))
	if err != nil {
		return 0, err
	}

	var opts []service.Option
	if record {
		if cfg.Graph.URI == "" {
			return 0, graph.ErrMissingURI
		}
		client, err := graph.NewNeo4jClient(ctx, graph.Options{
			URI:            cfg.Graph.URI,
			Database:       cfg.Graph.Database,
			Username:       cfg.Graph.Username,
			Password:       cfg.Graph.Password,
			MaxConnections: cfg.Graph.MaxConnections,
			QueryTimeout:   cfg.Graph.QueryTimeout,
		})
		if err != nil {
			return 0, fmt.Errorf("create graph client: %w", err)
		}
		defer func() {
			if err := client.Close(context.Background()); err != nil {
				logger.Warn("closing graph client failed", "error", err)
			}
		}()
		repo := repository.New(client)
		if err := repo.EnsureSchema(ctx); err != nil {
			return 0, fmt.Errorf("ensure audit schema: %w", err)
		}
		opts = append(opts, service.WithRecorder(repo))
	}

	svc := service.NewAnalysisService(engine, service.Limits{
		MaxTransactions: cfg.Admission.MaxTransactions,
		Timeout:         cfg.Admission.AnalysisTimeout,
	}, logger, opts...)

	outcomes, err := service.NewBatchRunner(svc, workers).Run(ctx, jobs)
	var taskErr *service.TaskError
	if err != nil && !errors.As(err, &taskErr) {
		return 0, err
	}

	if asJSON {
		if err := writeJSON(os.Stdout, outcomes); err != nil {
			return 0, err
		}
	} else {
		renderOutcomes(os.Stdout, outcomes)
	}

	if taskErr != nil {
		logger.Warn("some batches failed", "failed", len(taskErr.Errors), "total", len(jobs))
		return len(taskErr.Errors), nil
	}
	return 0, nil
}

// loadBatch reads an /analyze request body from path.
func loadBatch(path string) ([]txgraph.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	var payload domain.BatchPayload
	if err := json.NewDecoder(file).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return payload.Records(), nil
}
