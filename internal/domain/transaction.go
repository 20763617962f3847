package domain

import (
	"strings"

	"github.com/Hari-1410/H4shQ4x-2026/internal/txgraph"
)

// TransactionPayload is one transfer as submitted by a client. Older clients
// send the instant as "time" instead of "timestamp".
type TransactionPayload struct {
	Sender    string  `json:"sender"`
	Receiver  string  `json:"receiver"`
	Amount    float64 `json:"amount"`
	Timestamp string  `json:"timestamp,omitempty"`
	Time      string  `json:"time,omitempty"`
}

// ToRecord converts the payload into the scoring input form.
func (p TransactionPayload) ToRecord() txgraph.Record {
	ts := strings.TrimSpace(p.Timestamp)
	if ts == "" {
		ts = strings.TrimSpace(p.Time)
	}
	return txgraph.Record{
		Sender:    p.Sender,
		Receiver:  p.Receiver,
		Amount:    p.Amount,
		Timestamp: ts,
	}
}

// BatchPayload is the body of an analysis request.
type BatchPayload struct {
	Transactions []TransactionPayload `json:"transactions"`
}

// Records converts every payload, preserving order.
func (b BatchPayload) Records() []txgraph.Record {
	out := make([]txgraph.Record, 0, len(b.Transactions))
	for _, p := range b.Transactions {
		out = append(out, p.ToRecord())
	}
	return out
}

// PayloadsFromRecords is the inverse of Records, used when writing generated
// batches.
func PayloadsFromRecords(records []txgraph.Record) BatchPayload {
	out := BatchPayload{Transactions: make([]TransactionPayload, 0, len(records))}
	for _, r := range records {
		out.Transactions = append(out.Transactions, TransactionPayload{
			Sender:    r.Sender,
			Receiver:  r.Receiver,
			Amount:    r.Amount,
			Timestamp: r.Timestamp,
		})
	}
	return out
}
