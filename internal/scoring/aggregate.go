package scoring

// RiskLevel is the discrete batch verdict.
type RiskLevel string

const (
	LevelLow    RiskLevel = "LOW"
	LevelMedium RiskLevel = "MEDIUM"
	LevelHigh   RiskLevel = "HIGH"
)

// BatchVerdict is the aggregate judgment for a whole batch.
type BatchVerdict struct {
	Score float64
	Level RiskLevel
}

// Aggregate blends the worst account with the average account so that one bad
// actor and a systemic pattern both move the verdict. No flagged accounts
// yields a zero, LOW verdict.
func Aggregate(records []AccountRiskRecord, p Policy) BatchVerdict {
	if len(records) == 0 {
		return BatchVerdict{Score: 0, Level: LevelLow}
	}
	var maxScore, sum float64
	for _, r := range records {
		if r.RiskScore > maxScore {
			maxScore = r.RiskScore
		}
		sum += r.RiskScore
	}
	mean := sum / float64(len(records))
	score := clamp01(p.BatchMaxWeight*maxScore + p.BatchMeanWeight*mean)
	return BatchVerdict{Score: score, Level: p.Level(score)}
}
