package scoring

import (
	"fmt"
	"time"

	"github.com/Hari-1410/H4shQ4x-2026/internal/txgraph"
)

// Signal names, in evaluation order.
const (
	SignalFundConvergence   = "fund_convergence"
	SignalRapidPassThrough  = "rapid_pass_through"
	SignalAmountStructuring = "amount_structuring"
	SignalCircularMovement  = "circular_movement"
)

type signalKind int

const (
	// additive signals contribute their weight to the raw score
	additive signalKind = iota
	// floor signals lift the final score to a minimum
	floor
)

// signalInput is what a predicate may look at for one account.
type signalInput struct {
	node    *txgraph.Node
	inCycle bool
}

// signal is one row of the ordered scoring table.
type signal struct {
	name         string
	label        string
	kind         signalKind
	contribution float64
	triggered    func(in signalInput) bool
	reason       func(in signalInput) string
}

// signalTable builds the ordered table for a policy. Rows are evaluated once
// per account in this order; explanations follow the same order.
func signalTable(p Policy) []signal {
	return []signal{
		{
			name:         SignalFundConvergence,
			label:        "fund convergence",
			kind:         additive,
			contribution: p.ConvergenceWeight,
			triggered: func(in signalInput) bool {
				return in.node.Inbound >= p.ConvergenceMinInbound
			},
			reason: func(in signalInput) string {
				return fmt.Sprintf("received %d inbound transfers", in.node.Inbound)
			},
		},
		{
			name:         SignalRapidPassThrough,
			label:        "rapid pass-through",
			kind:         additive,
			contribution: p.PassThroughWeight,
			triggered: func(in signalInput) bool {
				delta, ok := passThroughDelay(in.node)
				return ok && delta >= 0 && delta < p.PassThroughWindow
			},
			reason: func(in signalInput) string {
				delta, _ := passThroughDelay(in.node)
				return fmt.Sprintf("forwarded funds %s after its latest inbound transfer", delta)
			},
		},
		{
			name:         SignalAmountStructuring,
			label:        "amount structuring",
			kind:         additive,
			contribution: p.StructuringWeight,
			triggered: func(in signalInput) bool {
				if len(in.node.InboundAmounts) < p.StructuringMinInbound {
					return false
				}
				lo, hi := in.node.InboundAmountRange()
				return hi-lo < p.StructuringSpreadRatio*hi
			},
			reason: func(in signalInput) string {
				lo, hi := in.node.InboundAmountRange()
				return fmt.Sprintf("received %d near-identical amounts (spread %.1f%% of the largest)",
					len(in.node.InboundAmounts), 100*(hi-lo)/hi)
			},
		},
		{
			name:         SignalCircularMovement,
			label:        "circular fund movement",
			kind:         floor,
			contribution: p.CycleFloor,
			triggered: func(in signalInput) bool {
				return in.inCycle
			},
			reason: func(signalInput) string {
				return fmt.Sprintf("sits on a closed chain of %d to %d transferring accounts", p.MinCycleLength, p.MaxCycleLength)
			},
		},
	}
}

// passThroughDelay is the gap between the latest inbound and the earliest
// outbound transfer. It is negative when money left before the last arrival.
func passThroughDelay(n *txgraph.Node) (time.Duration, bool) {
	if n.Inbound == 0 || n.Outbound == 0 {
		return 0, false
	}
	in, okIn := n.LatestInbound()
	out, okOut := n.EarliestOutbound()
	if !okIn || !okOut {
		return 0, false
	}
	return out.Sub(in), true
}

// SignalNames lists every signal in evaluation order.
func SignalNames() []string {
	table := signalTable(DefaultPolicy())
	names := make([]string, 0, len(table))
	for _, s := range table {
		names = append(names, s.name)
	}
	return names
}
