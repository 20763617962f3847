package domain

import (
	"time"

	"github.com/Hari-1410/H4shQ4x-2026/internal/scoring"
)

// Assessment is one scored batch together with its service-level identity.
// The scoring result fields are inlined in its JSON form.
type Assessment struct {
	AnalysisID       string    `json:"analysis_id"`
	Fingerprint      string    `json:"fingerprint"`
	EvaluatedAt      time.Time `json:"evaluated_at"`
	TransactionCount int       `json:"transaction_count"`
	scoring.Result
}

// AccountFlag is one audit trail entry: an account flagged by an assessment.
type AccountFlag struct {
	AnalysisID     string            `json:"analysis_id"`
	Account        string            `json:"account"`
	EvaluatedAt    time.Time         `json:"evaluated_at"`
	RiskScore      float64           `json:"risk_score"`
	RawScore       float64           `json:"raw_score"`
	Reasons        []string          `json:"reasons"`
	FloorApplied   bool              `json:"floor_applied"`
	BatchRiskScore float64           `json:"batch_risk_score"`
	BatchRiskLevel scoring.RiskLevel `json:"batch_risk_level"`
}

// AccountHistory lists the audit trail for one account, newest first.
type AccountHistory struct {
	Account string        `json:"account"`
	Items   []AccountFlag `json:"items"`
}
