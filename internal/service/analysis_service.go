package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Hari-1410/H4shQ4x-2026/internal/domain"
	"github.com/Hari-1410/H4shQ4x-2026/internal/logging"
	"github.com/Hari-1410/H4shQ4x-2026/internal/metrics"
	"github.com/Hari-1410/H4shQ4x-2026/internal/replay"
	"github.com/Hari-1410/H4shQ4x-2026/internal/scoring"
	"github.com/Hari-1410/H4shQ4x-2026/internal/txgraph"
)

var (
	// ErrBatchTooLarge indicates the batch has more transactions than allowed.
	ErrBatchTooLarge = errors.New("batch exceeds transaction limit")
	// ErrTooManyAccounts indicates the batch graph has more accounts than allowed.
	ErrTooManyAccounts = scoring.ErrTooManyAccounts
	// ErrDuplicateBatch indicates an identical batch was scored within the replay window.
	ErrDuplicateBatch = errors.New("batch was already submitted")
	// ErrAnalysisTimeout indicates scoring did not finish within the time budget.
	ErrAnalysisTimeout = errors.New("analysis exceeded time budget")
)

// Analyzer scores one batch. *scoring.Engine satisfies it.
type Analyzer interface {
	Analyze(records []txgraph.Record) (scoring.Result, error)
}

// Recorder is the audit trail contract. *repository.Repository satisfies it.
type Recorder interface {
	RecordAssessment(ctx context.Context, a domain.Assessment) error
	ListAccountFlags(ctx context.Context, account string, limit int) ([]domain.AccountFlag, error)
}

// Limits bounds the work one request may cause.
type Limits struct {
	MaxTransactions int
	Timeout         time.Duration
	ReplayTTL       time.Duration
}

// Option customises an AnalysisService.
type Option func(*AnalysisService)

// WithReplayStore enables duplicate batch rejection.
func WithReplayStore(store replay.Store) Option {
	return func(s *AnalysisService) { s.replay = store }
}

// WithRecorder enables audit export and account history.
func WithRecorder(rec Recorder) Option {
	return func(s *AnalysisService) { s.recorder = rec }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *AnalysisService) { s.metrics = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *AnalysisService) { s.nowFn = now }
}

// AnalysisService wraps the scoring engine with admission control, replay
// detection, a time budget, instrumentation and audit export.
type AnalysisService struct {
	analyzer Analyzer
	limits   Limits
	logger   *slog.Logger
	replay   replay.Store
	recorder Recorder
	metrics  *metrics.Metrics
	nowFn    func() time.Time
}

// NewAnalysisService wires the service around analyzer.
func NewAnalysisService(analyzer Analyzer, limits Limits, logger *slog.Logger, opts ...Option) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &AnalysisService{
		analyzer: analyzer,
		limits:   limits,
		logger:   logger,
		nowFn:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze admits, scores and records one batch.
func (s *AnalysisService) Analyze(ctx context.Context, records []txgraph.Record) (domain.Assessment, error) {
	log := logging.FromContext(ctx, s.logger)

	if limit := s.limits.MaxTransactions; limit > 0 && len(records) > limit {
		s.metrics.ObserveRejection(metrics.ReasonTooLarge)
		return domain.Assessment{}, fmt.Errorf("%w: %d transactions, limit %d", ErrBatchTooLarge, len(records), limit)
	}

	start := s.nowFn()
	result, err := s.score(ctx, records)
	if err != nil {
		s.metrics.ObserveRejection(rejectionReason(err))
		return domain.Assessment{}, err
	}
	took := s.nowFn().Sub(start)

	fingerprint := replay.Fingerprint(records)
	if err := s.claim(ctx, log, fingerprint); err != nil {
		s.metrics.ObserveRejection(metrics.ReasonDuplicate)
		return domain.Assessment{}, err
	}

	assessment := domain.Assessment{
		AnalysisID:       uuid.NewString(),
		Fingerprint:      fingerprint,
		EvaluatedAt:      s.nowFn().UTC(),
		TransactionCount: len(records),
		Result:           result,
	}
	s.metrics.ObserveAssessment(string(result.BatchRiskLevel), result.BatchRiskScore, len(records), len(result.Accounts), took)

	if s.recorder != nil {
		if err := s.recorder.RecordAssessment(ctx, assessment); err != nil {
			s.metrics.ObserveAuditFailure()
			log.Warn("audit export failed", "analysis_id", assessment.AnalysisID, "error", err)
		}
	}

	log.Info("batch analyzed",
		"analysis_id", assessment.AnalysisID,
		"transactions", len(records),
		"flagged_accounts", len(result.Accounts),
		"batch_risk_score", result.BatchRiskScore,
		"batch_risk_level", result.BatchRiskLevel,
		"duration", took,
	)
	return assessment, nil
}

// score runs the analyzer under the time budget. A timed out analysis keeps
// running in the background until it completes; its result is discarded.
func (s *AnalysisService) score(ctx context.Context, records []txgraph.Record) (scoring.Result, error) {
	if s.limits.Timeout <= 0 {
		return s.analyzer.Analyze(records)
	}

	runCtx, cancel := context.WithTimeout(ctx, s.limits.Timeout)
	defer cancel()

	type outcome struct {
		result scoring.Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := s.analyzer.Analyze(records)
		done <- outcome{result: res, err: err}
	}()

	select {
	case o := <-done:
		return o.result, o.err
	case <-runCtx.Done():
		if err := ctx.Err(); err != nil {
			return scoring.Result{}, err
		}
		return scoring.Result{}, fmt.Errorf("%w: limit %s", ErrAnalysisTimeout, s.limits.Timeout)
	}
}

// claim fails open: a replay store outage must not block scoring.
func (s *AnalysisService) claim(ctx context.Context, log *slog.Logger, fingerprint string) error {
	if s.replay == nil {
		return nil
	}
	fresh, err := s.replay.Claim(ctx, fingerprint, s.limits.ReplayTTL)
	if err != nil {
		s.metrics.ObserveReplayError()
		log.Warn("replay guard unavailable", "error", err)
		return nil
	}
	if !fresh {
		return fmt.Errorf("%w: fingerprint %s", ErrDuplicateBatch, fingerprint)
	}
	return nil
}

// AccountHistory lists the audit trail for account. Without a recorder the
// history is always empty.
func (s *AnalysisService) AccountHistory(ctx context.Context, account string, limit int) (domain.AccountHistory, error) {
	history := domain.AccountHistory{Account: account, Items: []domain.AccountFlag{}}
	if s.recorder == nil {
		return history, nil
	}
	flags, err := s.recorder.ListAccountFlags(ctx, account, limit)
	if err != nil {
		return domain.AccountHistory{}, fmt.Errorf("account history: %w", err)
	}
	if flags != nil {
		history.Items = flags
	}
	return history, nil
}

// Explainability returns the static model report.
func (s *AnalysisService) Explainability() scoring.ExplainabilityReport {
	return scoring.Explainability()
}

func rejectionReason(err error) string {
	var vErr *txgraph.ValidationError
	switch {
	case errors.As(err, &vErr):
		return metrics.ReasonValidation
	case errors.Is(err, ErrTooManyAccounts):
		return metrics.ReasonTooLarge
	case errors.Is(err, ErrAnalysisTimeout):
		return metrics.ReasonTimeout
	default:
		return "other"
	}
}
