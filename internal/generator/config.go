package generator

import "time"

// Config drives the synthetic batch generator.
type Config struct {
	// NumAccounts is the size of the ordinary account population.
	NumAccounts int
	// NumTransactions is the number of ordinary background transfers.
	NumTransactions int
	// Mules is how many convergence and pass-through hubs to inject.
	Mules int
	// FanIn is the number of near-identical deposits each mule receives.
	FanIn int
	// RingSize is the length of the injected transfer ring. Zero disables it.
	RingSize int
	// Window is the span background transfers are spread over.
	Window time.Duration
	// Start anchors every generated timestamp. Zero means the current hour.
	Start time.Time
	Seed  int64
}

// DefaultConfig returns settings whose output fits the default batch limits.
func DefaultConfig() Config {
	return Config{
		NumAccounts:     60,
		NumTransactions: 80,
		Mules:           2,
		FanIn:           4,
		RingSize:        3,
		Window:          24 * time.Hour,
		Seed:            42,
	}
}
