package generator

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/Hari-1410/H4shQ4x-2026/internal/txgraph"
)

// Dataset is one generated batch plus the accounts deliberately planted in it.
type Dataset struct {
	Records []txgraph.Record
	Mules   []string
	Ring    []string
}

// Generator produces synthetic transfer batches with planted mule patterns.
type Generator struct {
	cfg  Config
	rand *rand.Rand
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	defaults := DefaultConfig()
	if cfg.NumAccounts <= 1 {
		cfg.NumAccounts = defaults.NumAccounts
	}
	if cfg.NumTransactions < 0 {
		cfg.NumTransactions = defaults.NumTransactions
	}
	if cfg.Mules < 0 {
		cfg.Mules = 0
	}
	if cfg.FanIn < 3 {
		cfg.FanIn = defaults.FanIn
	}
	switch {
	case cfg.RingSize <= 0:
		cfg.RingSize = 0
	case cfg.RingSize < txgraph.DefaultMinCycleLength:
		cfg.RingSize = txgraph.DefaultMinCycleLength
	case cfg.RingSize > txgraph.DefaultMaxCycleLength:
		cfg.RingSize = txgraph.DefaultMaxCycleLength
	}
	if cfg.Window <= 0 {
		cfg.Window = defaults.Window
	}
	if cfg.Start.IsZero() {
		cfg.Start = time.Now().UTC().Truncate(time.Hour)
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	return &Generator{
		cfg:  cfg,
		rand: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Generate synthesises one batch. Equal configs produce equal batches. It
// respects context cancellation.
func (g *Generator) Generate(ctx context.Context) (Dataset, error) {
	records := make([]txgraph.Record, 0, g.cfg.NumTransactions+g.cfg.Mules*(g.cfg.FanIn+1)+g.cfg.RingSize)

	for i := 0; i < g.cfg.NumTransactions; i++ {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}
		sender := g.rand.Intn(g.cfg.NumAccounts)
		receiver := g.rand.Intn(g.cfg.NumAccounts)
		if sender == receiver {
			receiver = (receiver + 1) % g.cfg.NumAccounts
		}
		offset := time.Duration(g.rand.Int63n(int64(g.cfg.Window)))
		records = append(records, g.record(
			accountID(sender), accountID(receiver), g.rand.Float64()*4900+100, offset.Truncate(time.Second),
		))
	}

	var dataset Dataset
	for m := 0; m < g.cfg.Mules; m++ {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}
		mule := fmt.Sprintf("MULE-%02d", m+1)
		dataset.Mules = append(dataset.Mules, mule)
		records = append(records, g.mulePattern(mule, m)...)
	}

	if g.cfg.RingSize > 0 {
		dataset.Ring, records = g.ring(records)
	}

	g.rand.Shuffle(len(records), func(i, j int) {
		records[i], records[j] = records[j], records[i]
	})
	dataset.Records = records
	return dataset, nil
}

// mulePattern plants FanIn deposits of near-identical size from fresh senders,
// followed within a minute by a single forward to a fresh exit account.
func (g *Generator) mulePattern(mule string, idx int) []txgraph.Record {
	out := make([]txgraph.Record, 0, g.cfg.FanIn+1)
	base := 9000 + g.rand.Float64()*900
	start := time.Duration(g.rand.Int63n(int64(g.cfg.Window) / 2)).Truncate(time.Second)

	last := start
	for i := 0; i < g.cfg.FanIn; i++ {
		if i > 0 {
			last += time.Duration(30+g.rand.Intn(90)) * time.Second
		}
		amount := base * (1 - 0.01*g.rand.Float64())
		sender := fmt.Sprintf("SRC-%02d-%02d", idx+1, i+1)
		out = append(out, g.record(sender, mule, amount, last))
	}

	forward := last + time.Duration(10+g.rand.Intn(50))*time.Second
	total := 0.0
	for _, r := range out {
		total += r.Amount
	}
	out = append(out, g.record(mule, fmt.Sprintf("EXIT-%02d", idx+1), total*0.97, forward))
	return out
}

// ring plants a closed chain whose hops are an hour apart, so its members
// trigger nothing but the cycle floor. New clamps the length into the
// detectable cycle range.
func (g *Generator) ring(records []txgraph.Record) ([]string, []txgraph.Record) {
	members := make([]string, g.cfg.RingSize)
	for i := range members {
		members[i] = fmt.Sprintf("RING-%02d", i+1)
	}
	start := time.Duration(g.rand.Int63n(int64(g.cfg.Window) / 2)).Truncate(time.Second)
	amount := 2000 + g.rand.Float64()*3000
	for i, from := range members {
		to := members[(i+1)%len(members)]
		records = append(records, g.record(from, to, amount, start+time.Duration(i)*time.Hour))
		amount *= 0.98
	}
	return members, records
}

func (g *Generator) record(sender, receiver string, amount float64, offset time.Duration) txgraph.Record {
	return txgraph.Record{
		Sender:    sender,
		Receiver:  receiver,
		Amount:    math.Round(amount*100) / 100,
		Timestamp: g.cfg.Start.Add(offset).Format(time.RFC3339),
	}
}

func accountID(i int) string {
	return fmt.Sprintf("ACC-%04d", i+1)
}
