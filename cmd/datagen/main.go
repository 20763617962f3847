package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Hari-1410/H4shQ4x-2026/internal/generator"
)

func main() {
	cfg := generator.DefaultConfig()
	var (
		accounts     = flag.Int("accounts", cfg.NumAccounts, "size of the ordinary account population")
		transactions = flag.Int("transactions", cfg.NumTransactions, "number of background transfers")
		mules        = flag.Int("mules", cfg.Mules, "number of convergence and pass-through hubs to plant")
		fanIn        = flag.Int("fan-in", cfg.FanIn, "deposits received by each planted hub (minimum 3)")
		ringSize     = flag.Int("ring-size", cfg.RingSize, "length of the planted transfer ring, clamped to 3..6, 0 to disable")
		window       = flag.Duration("window", cfg.Window, "time span background transfers are spread over")
		startFlag    = flag.String("start", "", "RFC3339 anchor for generated timestamps (default: current hour)")
		seed         = flag.Int64("seed", cfg.Seed, "random seed for deterministic generation")
		output       = flag.String("output", "", "file to write the batch to (default: stdout)")
	)
	flag.Parse()

	genCfg := generator.Config{
		NumAccounts:     *accounts,
		NumTransactions: *transactions,
		Mules:           *mules,
		FanIn:           *fanIn,
		RingSize:        *ringSize,
		Window:          *window,
		Seed:            *seed,
	}
	if *startFlag != "" {
		start, err := time.Parse(time.RFC3339, *startFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -start: %v\n", err)
			os.Exit(1)
		}
		genCfg.Start = start.UTC()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dataset, err := generator.New(genCfg).Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		os.Exit(1)
	}

	if *output == "" {
		if err := generator.EncodeBatch(os.Stdout, dataset); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write batch to stdout: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := generator.WriteBatch(dataset, *output); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write batch: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Generated %d transactions into %s (mules: %v, ring: %v)\n",
		len(dataset.Records), *output, dataset.Mules, dataset.Ring)
}
