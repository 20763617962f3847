package scoring

// ExplainabilityReport is static governance metadata returned with every result.
type ExplainabilityReport struct {
	ModelType              string   `json:"model_type"`
	DataUsage              []string `json:"data_usage"`
	SignalsUsed            []string `json:"signals_used"`
	ScoringCharacteristics []string `json:"scoring_characteristics"`
	Limitations            []string `json:"limitations"`
	IntendedUse            string   `json:"intended_use"`
}

var explainability = ExplainabilityReport{
	ModelType: "Rule-based structural analysis of a directed transaction graph",
	DataUsage: []string{
		"Sender and receiver account identifiers as submitted in the batch",
		"Transaction amounts",
		"Transaction timestamps",
		"No personal, demographic, device or location data",
	},
	SignalsUsed: []string{
		"Fund convergence: three or more inbound transfers into one account",
		"Rapid pass-through: funds forwarded within five minutes of the latest inbound transfer",
		"Amount structuring: three or more inbound amounts within 10% of each other",
		"Circular fund movement: account lies on a closed transfer chain of 3 to 6 accounts",
	},
	ScoringCharacteristics: []string{
		"Scores are bounded to the range 0 to 1",
		"Scores are monotone: additional triggered signals never lower an account's raw score",
		"Raw scores saturate with batch size so larger batches need more concentrated evidence",
		"Circular fund movement sets a minimum account score of 0.75",
		"Batch score blends the highest account score (60%) with the mean account score (40%)",
		"No behavioural profiling across batches",
	},
	Limitations: []string{
		"Only the submitted batch is analyzed; no transaction history is retained",
		"Signals are structural and do not infer intent",
		"Thresholds are heuristic policy values and require periodic review",
		"Legitimate patterns such as payroll or marketplace settlement can trigger signals",
	},
	IntendedUse: "Decision support for fraud analysts prioritising manual review. " +
		"Outputs must not be used as the sole basis for blocking accounts or transactions.",
}

// Explainability returns a copy of the static report.
func Explainability() ExplainabilityReport {
	r := explainability
	r.DataUsage = append([]string(nil), explainability.DataUsage...)
	r.SignalsUsed = append([]string(nil), explainability.SignalsUsed...)
	r.ScoringCharacteristics = append([]string(nil), explainability.ScoringCharacteristics...)
	r.Limitations = append([]string(nil), explainability.Limitations...)
	return r
}
