package scoring

import (
	"errors"
	"fmt"
	"time"

	"github.com/Hari-1410/H4shQ4x-2026/internal/txgraph"
)

// Policy holds every tunable constant of the scoring model. The defaults are
// the reference values; changing them is a product/compliance decision.
type Policy struct {
	ConvergenceMinInbound int
	ConvergenceWeight     float64

	PassThroughWindow time.Duration
	PassThroughWeight float64

	StructuringMinInbound  int
	StructuringSpreadRatio float64
	StructuringWeight      float64

	MinCycleLength int
	MaxCycleLength int
	CycleFloor     float64

	LinkedTransactionScore float64

	BatchMaxWeight  float64
	BatchMeanWeight float64
	HighThreshold   float64
	MediumThreshold float64
}

// DefaultPolicy returns the reference policy.
func DefaultPolicy() Policy {
	return Policy{
		ConvergenceMinInbound: 3,
		ConvergenceWeight:     0.4,

		PassThroughWindow: 300 * time.Second,
		PassThroughWeight: 0.4,

		StructuringMinInbound:  3,
		StructuringSpreadRatio: 0.1,
		StructuringWeight:      0.3,

		MinCycleLength: txgraph.DefaultMinCycleLength,
		MaxCycleLength: txgraph.DefaultMaxCycleLength,
		CycleFloor:     0.75,

		LinkedTransactionScore: 0.5,

		BatchMaxWeight:  0.6,
		BatchMeanWeight: 0.4,
		HighThreshold:   0.7,
		MediumThreshold: 0.4,
	}
}

// Validate rejects policies that would break score bounds or monotonicity.
func (p Policy) Validate() error {
	var errs []error
	nonNegative := map[string]float64{
		"convergence weight":       p.ConvergenceWeight,
		"pass-through weight":      p.PassThroughWeight,
		"structuring weight":       p.StructuringWeight,
		"structuring spread ratio": p.StructuringSpreadRatio,
		"batch max weight":         p.BatchMaxWeight,
		"batch mean weight":        p.BatchMeanWeight,
	}
	for name, v := range nonNegative {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must be non-negative, got %v", name, v))
		}
	}
	unit := map[string]float64{
		"cycle floor":              p.CycleFloor,
		"linked transaction score": p.LinkedTransactionScore,
		"high threshold":           p.HighThreshold,
		"medium threshold":         p.MediumThreshold,
	}
	for name, v := range unit {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s must be within [0,1], got %v", name, v))
		}
	}
	if sum := p.BatchMaxWeight + p.BatchMeanWeight; sum > 1+1e-9 {
		errs = append(errs, fmt.Errorf("batch blend weights must sum to at most 1, got %v", sum))
	}
	if p.MediumThreshold > p.HighThreshold {
		errs = append(errs, errors.New("medium threshold must not exceed high threshold"))
	}
	if p.MinCycleLength < 2 || p.MaxCycleLength < p.MinCycleLength {
		errs = append(errs, fmt.Errorf("cycle length window [%d,%d] is invalid", p.MinCycleLength, p.MaxCycleLength))
	}
	if p.PassThroughWindow < 0 {
		errs = append(errs, errors.New("pass-through window must be non-negative"))
	}
	if p.ConvergenceMinInbound < 1 || p.StructuringMinInbound < 2 {
		errs = append(errs, errors.New("inbound count thresholds are too small"))
	}
	return errors.Join(errs...)
}

// Level maps a batch score onto a discrete risk level.
func (p Policy) Level(score float64) RiskLevel {
	switch {
	case score >= p.HighThreshold:
		return LevelHigh
	case score >= p.MediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}
