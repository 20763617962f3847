package scoring

// Transaction-level reason texts.
const (
	ReasonLinkedHighRisk   = "linked to high-risk account"
	ReasonNoElevatedSignal = "no elevated indicators"
)

// TransactionRiskRecord lets an analyst jump from a flagged account to the
// transfers that touch it.
type TransactionRiskRecord struct {
	Index          int      `json:"index"`
	Sender         string   `json:"sender"`
	Receiver       string   `json:"receiver"`
	Amount         float64  `json:"amount"`
	RiskScore      float64  `json:"risk_score"`
	Reason         string   `json:"reason"`
	LinkedAccounts []string `json:"linked_accounts,omitempty"`
}

// scoreTransactions emits exactly one record per input transaction, in input order.
func (a *analysis) scoreTransactions() {
	txs := a.graph.Transactions()
	a.transactions = make([]TransactionRiskRecord, 0, len(txs))
	for _, tx := range txs {
		var linked []string
		if _, ok := a.flagged[tx.Sender]; ok {
			linked = append(linked, tx.Sender)
		}
		if _, ok := a.flagged[tx.Receiver]; ok && tx.Receiver != tx.Sender {
			linked = append(linked, tx.Receiver)
		}

		record := TransactionRiskRecord{
			Index:    tx.Index,
			Sender:   tx.Sender,
			Receiver: tx.Receiver,
			Amount:   tx.Amount,
			Reason:   ReasonNoElevatedSignal,
		}
		if len(linked) > 0 {
			record.RiskScore = clamp01(a.policy.LinkedTransactionScore)
			record.Reason = ReasonLinkedHighRisk
			record.LinkedAccounts = linked
		}
		a.transactions = append(a.transactions, record)
	}
}
