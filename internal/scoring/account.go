package scoring

import (
	"math"
	"sort"
	"strings"
)

// AccountRiskRecord is the assessment of one flagged account.
type AccountRiskRecord struct {
	Account  string `json:"account"`
	Incoming int    `json:"incoming"`
	Outgoing int    `json:"outgoing"`

	RawScore  float64 `json:"raw_score"`
	RiskScore float64 `json:"risk_score"`

	// Reasons holds the labels of the triggered signals, in evaluation order.
	Reasons []string `json:"reasons"`
	// ScoreBreakdown maps each triggered additive signal to its contribution.
	// Their sum is RawScore.
	ScoreBreakdown map[string]float64 `json:"score_breakdown"`
	Explanation    string             `json:"explanation"`
	FloorApplied   bool               `json:"floor_applied"`
}

// saturate maps a raw score into [0,1). Larger batches need more concentrated
// evidence to reach the same score.
func saturate(raw float64, batchSize int) float64 {
	if raw <= 0 || batchSize <= 0 {
		return 0
	}
	return 1 - math.Exp(-raw/math.Log1p(float64(batchSize)))
}

func (a *analysis) scoreAccounts() {
	table := signalTable(a.policy)
	batchSize := a.graph.EdgeCount()

	for _, id := range a.graph.Accounts() {
		node, _ := a.graph.Node(id)
		in := signalInput{node: node, inCycle: a.cycles.Has(id)}

		var (
			raw       float64
			floorTo   float64
			reasons   []string
			sentences []string
			breakdown = make(map[string]float64)
		)
		for _, s := range table {
			if !s.triggered(in) {
				continue
			}
			reasons = append(reasons, s.label)
			sentences = append(sentences, s.reason(in))
			switch s.kind {
			case additive:
				raw += s.contribution
				breakdown[s.name] = s.contribution
			case floor:
				floorTo = math.Max(floorTo, s.contribution)
			}
		}

		risk := saturate(raw, batchSize)
		floorApplied := false
		if floorTo > 0 && floorTo > risk {
			risk = floorTo
			floorApplied = true
		}
		if raw <= 0 && !floorApplied {
			continue
		}

		a.accounts = append(a.accounts, AccountRiskRecord{
			Account:        id,
			Incoming:       node.Inbound,
			Outgoing:       node.Outbound,
			RawScore:       raw,
			RiskScore:      clamp01(risk),
			Reasons:        reasons,
			ScoreBreakdown: breakdown,
			Explanation:    "Account " + id + " was flagged because it " + strings.Join(sentences, " and ") + ".",
			FloorApplied:   floorApplied,
		})
		a.flagged[id] = struct{}{}
	}

	sort.SliceStable(a.accounts, func(i, j int) bool {
		if a.accounts[i].RiskScore != a.accounts[j].RiskScore {
			return a.accounts[i].RiskScore > a.accounts[j].RiskScore
		}
		return a.accounts[i].Account < a.accounts[j].Account
	})
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
