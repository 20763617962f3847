// Package txgraph turns a batch of transfers into a directed multigraph of
// accounts and enumerates the bounded cycles that run through it.
package txgraph

import (
	"math"
	"sort"
	"strings"
	"time"
)

// Record is a transaction as submitted by a caller, before validation.
type Record struct {
	Sender    string
	Receiver  string
	Amount    float64
	Timestamp string
}

// Transaction is a validated, immutable edge of the graph.
type Transaction struct {
	Index     int
	Sender    string
	Receiver  string
	Amount    float64
	Timestamp time.Time
}

// Node carries the per-account aggregates derived from the batch.
// len(InboundTimestamps) and len(InboundAmounts) always equal Inbound.
type Node struct {
	ID                 string
	Inbound            int
	Outbound           int
	InboundTimestamps  []time.Time
	InboundAmounts     []float64
	OutboundTimestamps []time.Time
}

// LatestInbound returns the most recent inbound instant.
func (n *Node) LatestInbound() (time.Time, bool) {
	return extreme(n.InboundTimestamps, func(a, b time.Time) bool { return a.After(b) })
}

// EarliestOutbound returns the first outbound instant.
func (n *Node) EarliestOutbound() (time.Time, bool) {
	return extreme(n.OutboundTimestamps, func(a, b time.Time) bool { return a.Before(b) })
}

// InboundAmountRange returns the smallest and largest inbound amounts.
func (n *Node) InboundAmountRange() (lo, hi float64) {
	if len(n.InboundAmounts) == 0 {
		return 0, 0
	}
	lo, hi = n.InboundAmounts[0], n.InboundAmounts[0]
	for _, amount := range n.InboundAmounts[1:] {
		if amount < lo {
			lo = amount
		}
		if amount > hi {
			hi = amount
		}
	}
	return lo, hi
}

func extreme(values []time.Time, better func(a, b time.Time) bool) (time.Time, bool) {
	if len(values) == 0 {
		return time.Time{}, false
	}
	best := values[0]
	for _, v := range values[1:] {
		if better(v, best) {
			best = v
		}
	}
	return best, true
}

// Graph is the directed multigraph of one batch. It is read-only once built.
type Graph struct {
	transactions []Transaction
	nodes        map[string]*Node
	ids          []string
	successors   map[string][]string
}

// Build validates every record and ingests the batch. The first malformed
// record aborts the build with a *ValidationError; nothing is returned partially.
func Build(records []Record) (*Graph, error) {
	txs := make([]Transaction, 0, len(records))
	for i, rec := range records {
		tx, err := validate(i, rec)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}

	g := &Graph{
		transactions: txs,
		nodes:        make(map[string]*Node),
		successors:   make(map[string][]string),
	}
	seenPairs := make(map[[2]string]struct{})
	for _, tx := range txs {
		sender := g.node(tx.Sender)
		receiver := g.node(tx.Receiver)

		sender.Outbound++
		sender.OutboundTimestamps = append(sender.OutboundTimestamps, tx.Timestamp)

		receiver.Inbound++
		receiver.InboundTimestamps = append(receiver.InboundTimestamps, tx.Timestamp)
		receiver.InboundAmounts = append(receiver.InboundAmounts, tx.Amount)

		pair := [2]string{tx.Sender, tx.Receiver}
		if _, ok := seenPairs[pair]; !ok {
			seenPairs[pair] = struct{}{}
			g.successors[tx.Sender] = append(g.successors[tx.Sender], tx.Receiver)
		}
	}

	g.ids = make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		g.ids = append(g.ids, id)
	}
	sort.Strings(g.ids)
	for id := range g.successors {
		sort.Strings(g.successors[id])
	}
	return g, nil
}

func validate(index int, rec Record) (Transaction, error) {
	if strings.TrimSpace(rec.Sender) == "" {
		return Transaction{}, &ValidationError{Index: index, Field: FieldSender, Reason: "is required"}
	}
	if strings.TrimSpace(rec.Receiver) == "" {
		return Transaction{}, &ValidationError{Index: index, Field: FieldReceiver, Reason: "is required"}
	}
	if math.IsNaN(rec.Amount) || math.IsInf(rec.Amount, 0) || rec.Amount <= 0 {
		return Transaction{}, &ValidationError{Index: index, Field: FieldAmount, Reason: "must be a positive finite number"}
	}
	ts, err := ParseTimestamp(rec.Timestamp)
	if err != nil {
		return Transaction{}, &ValidationError{Index: index, Field: FieldTimestamp, Reason: "must be an ISO-8601 instant"}
	}
	return Transaction{
		Index:     index,
		Sender:    rec.Sender,
		Receiver:  rec.Receiver,
		Amount:    rec.Amount,
		Timestamp: ts,
	}, nil
}

func (g *Graph) node(id string) *Node {
	n, ok := g.nodes[id]
	if !ok {
		n = &Node{ID: id}
		g.nodes[id] = n
	}
	return n
}

// Node returns the aggregates for an account.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Accounts returns every account in ascending ID order.
func (g *Graph) Accounts() []string {
	return append([]string(nil), g.ids...)
}

// Transactions returns the validated transactions in input order.
func (g *Graph) Transactions() []Transaction {
	return append([]Transaction(nil), g.transactions...)
}

// Successors returns the distinct receivers an account has sent to, sorted.
func (g *Graph) Successors(id string) []string {
	return g.successors[id]
}

// NodeCount returns the number of distinct accounts.
func (g *Graph) NodeCount() int {
	return len(g.ids)
}

// EdgeCount returns the number of transactions, counting parallel edges.
func (g *Graph) EdgeCount() int {
	return len(g.transactions)
}
