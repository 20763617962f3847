package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Hari-1410/H4shQ4x-2026/internal/domain"
	"github.com/Hari-1410/H4shQ4x-2026/internal/graph"
	"github.com/Hari-1410/H4shQ4x-2026/internal/scoring"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// Repository persists the assessment audit trail in the graph database. Only
// analysis summaries and flagged accounts are stored; raw transfers are not.
type Repository struct {
	client graph.Client
}

// New instantiates a Repository backed by the supplied graph client.
func New(client graph.Client) *Repository {
	return &Repository{client: client}
}

// EnsureSchema creates the uniqueness constraints the audit queries rely on.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaCypher {
		if _, err := r.client.ExecuteWrite(ctx, stmt, nil); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// RecordAssessment stores the analysis node and one FLAGGED_IN edge per
// flagged account.
func (r *Repository) RecordAssessment(ctx context.Context, a domain.Assessment) error {
	if a.AnalysisID == "" {
		return errors.New("analysis id is required")
	}

	params := map[string]any{
		"analysisId":       a.AnalysisID,
		"fingerprint":      a.Fingerprint,
		"evaluatedAt":      formatTime(a.EvaluatedAt),
		"batchRiskScore":   a.BatchRiskScore,
		"batchRiskLevel":   string(a.BatchRiskLevel),
		"transactionCount": a.TransactionCount,
		"accountCount":     len(a.Accounts),
		"flags":            flagParams(a.Accounts),
	}

	if _, err := r.client.ExecuteWrite(ctx, recordAssessmentCypher, params); err != nil {
		return fmt.Errorf("record assessment %s: %w", a.AnalysisID, err)
	}
	return nil
}

// ListAccountFlags returns the most recent assessments that flagged account.
func (r *Repository) ListAccountFlags(ctx context.Context, account string, limit int) ([]domain.AccountFlag, error) {
	account = strings.TrimSpace(account)
	if account == "" {
		return nil, errors.New("account id is required")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	res, err := r.client.ExecuteRead(ctx, accountFlagsCypher, map[string]any{
		"accountId": account,
		"limit":     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list flags for %s: %w", account, err)
	}

	flags := make([]domain.AccountFlag, 0, len(res.Records))
	for _, rec := range res.Records {
		flags = append(flags, domain.AccountFlag{
			AnalysisID:     rec.String("analysisId"),
			Account:        account,
			EvaluatedAt:    rec.Time("evaluatedAt"),
			RiskScore:      rec.Float("riskScore"),
			RawScore:       rec.Float("rawScore"),
			Reasons:        rec.Strings("reasons"),
			FloorApplied:   rec.Bool("floorApplied"),
			BatchRiskScore: rec.Float("batchRiskScore"),
			BatchRiskLevel: scoring.RiskLevel(rec.String("batchRiskLevel")),
		})
	}
	return flags, nil
}

// Ping checks that the graph database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.VerifyConnectivity(ctx)
}

func flagParams(accounts []scoring.AccountRiskRecord) []map[string]any {
	out := make([]map[string]any, 0, len(accounts))
	for _, a := range accounts {
		reasons := a.Reasons
		if reasons == nil {
			reasons = []string{}
		}
		out = append(out, map[string]any{
			"account":      a.Account,
			"incoming":     a.Incoming,
			"outgoing":     a.Outgoing,
			"rawScore":     a.RawScore,
			"riskScore":    a.RiskScore,
			"reasons":      reasons,
			"floorApplied": a.FloorApplied,
		})
	}
	return out
}

// sortableTimeLayout keeps every fraction digit so stored timestamps compare
// lexically in chronological order.
const sortableTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(sortableTimeLayout)
}

var schemaCypher = []string{
	`CREATE CONSTRAINT analysis_id IF NOT EXISTS FOR (a:Analysis) REQUIRE a.analysisId IS UNIQUE`,
	`CREATE CONSTRAINT account_id IF NOT EXISTS FOR (acc:Account) REQUIRE acc.accountId IS UNIQUE`,
}

const recordAssessmentCypher = `
MERGE (a:Analysis {analysisId: $analysisId})
SET a.fingerprint = $fingerprint,
    a.evaluatedAt = $evaluatedAt,
    a.batchRiskScore = $batchRiskScore,
    a.batchRiskLevel = $batchRiskLevel,
    a.transactionCount = $transactionCount,
    a.accountCount = $accountCount
WITH a
UNWIND $flags AS flag
MERGE (acc:Account {accountId: flag.account})
MERGE (acc)-[f:FLAGGED_IN]->(a)
SET f.incoming = flag.incoming,
    f.outgoing = flag.outgoing,
    f.rawScore = flag.rawScore,
    f.riskScore = flag.riskScore,
    f.reasons = flag.reasons,
    f.floorApplied = flag.floorApplied
`

const accountFlagsCypher = `
MATCH (acc:Account {accountId: $accountId})-[f:FLAGGED_IN]->(a:Analysis)
RETURN a.analysisId AS analysisId,
       a.evaluatedAt AS evaluatedAt,
       a.batchRiskScore AS batchRiskScore,
       a.batchRiskLevel AS batchRiskLevel,
       f.riskScore AS riskScore,
       f.rawScore AS rawScore,
       f.reasons AS reasons,
       f.floorApplied AS floorApplied
ORDER BY a.evaluatedAt DESC
LIMIT $limit
`
