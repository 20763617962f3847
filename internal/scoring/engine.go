// Package scoring turns a batch of transfers into account, transaction and
// batch risk scores with an explanation for each.
//
// The engine is synchronous and keeps no state between calls: every Analyze
// builds its own graph and scores from scratch, so one Engine may be shared by
// any number of goroutines.
package scoring

import (
	"errors"
	"fmt"

	"github.com/Hari-1410/H4shQ4x-2026/internal/txgraph"
)

// ErrTooManyAccounts is returned when a batch graph exceeds the configured
// account limit. Cycle enumeration is exponential in the worst case.
var ErrTooManyAccounts = errors.New("batch graph exceeds account limit")

// Result is the complete assessment of one batch.
type Result struct {
	BatchRiskScore   float64                 `json:"batch_risk_score"`
	BatchRiskLevel   RiskLevel               `json:"batch_risk_level"`
	Accounts         []AccountRiskRecord     `json:"accounts"`
	TransactionRisks []TransactionRiskRecord `json:"transaction_risks"`
	Explainability   ExplainabilityReport    `json:"explainability"`
}

// Engine scores batches under a fixed policy.
type Engine struct {
	policy      Policy
	maxAccounts int
}

// Option customises an Engine.
type Option func(*Engine)

// WithMaxAccounts rejects graphs with more than n accounts before cycle
// enumeration. Zero disables the check.
func WithMaxAccounts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxAccounts = n
		}
	}
}

// NewEngine validates the policy and returns an Engine.
func NewEngine(policy Policy, opts ...Option) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring policy: %w", err)
	}
	e := &Engine{policy: policy}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Policy returns the policy the engine scores with.
func (e *Engine) Policy() Policy {
	return e.policy
}

// analysis is the per-call arena passed between the scoring stages.
type analysis struct {
	policy       Policy
	graph        *txgraph.Graph
	cycles       txgraph.AccountSet
	flagged      map[string]struct{}
	accounts     []AccountRiskRecord
	transactions []TransactionRiskRecord
}

// Analyze scores one batch. The only errors are a *txgraph.ValidationError for
// the first malformed record and ErrTooManyAccounts; finding no risk is a
// normal LOW result.
func (e *Engine) Analyze(records []txgraph.Record) (Result, error) {
	g, err := txgraph.Build(records)
	if err != nil {
		return Result{}, err
	}
	if e.maxAccounts > 0 && g.NodeCount() > e.maxAccounts {
		return Result{}, fmt.Errorf("%w: %d accounts, limit %d", ErrTooManyAccounts, g.NodeCount(), e.maxAccounts)
	}

	a := &analysis{
		policy:   e.policy,
		graph:    g,
		cycles:   txgraph.FindCycleMembers(g, e.policy.MinCycleLength, e.policy.MaxCycleLength),
		flagged:  make(map[string]struct{}),
		accounts: []AccountRiskRecord{},
	}
	a.scoreAccounts()
	a.scoreTransactions()
	verdict := Aggregate(a.accounts, e.policy)

	return Result{
		BatchRiskScore:   verdict.Score,
		BatchRiskLevel:   verdict.Level,
		Accounts:         a.accounts,
		TransactionRisks: a.transactions,
		Explainability:   Explainability(),
	}, nil
}
