package server

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// HealthService defines behaviour for readiness probes.
type HealthService interface {
	Probe(ctx context.Context) error
}

// Pinger is satisfied by the audit repository and the Redis replay store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingHealthService adapts a Pinger.
type PingHealthService struct {
	Target Pinger
}

// Probe implements the HealthService interface.
func (s PingHealthService) Probe(ctx context.Context) error {
	if s.Target == nil {
		return nil
	}
	return s.Target.Ping(ctx)
}

// CompositeHealth checks every named dependency and reports all failures.
type CompositeHealth map[string]HealthService

// Probe implements the HealthService interface.
func (c CompositeHealth) Probe(ctx context.Context) error {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		if err := c[name].Probe(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
