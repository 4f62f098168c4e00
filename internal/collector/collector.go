package collector

import (
	"context"
	"time"
)

// Collector is a data source that runs in the background and exposes
// its latest output as a field snapshot.
type Collector interface {
	// Name identifies the source in logs, metrics, and status output.
	Name() string

	// Start begins collection. It returns once the background work is
	// launched; collection failures after that are reported through
	// monitoring, not through Start.
	Start(ctx context.Context) error

	// Stop gracefully shuts down, bounded by ctx.
	Stop(ctx context.Context) error

	// Snapshot returns a copy of the latest collected fields. It never
	// blocks on collection.
	Snapshot() map[string]float64

	// UpdatedAt returns when the snapshot last changed.
	UpdatedAt() time.Time
}

// Budget gates outbound calls against a rate-limit allowance. Allow
// reports whether one call may proceed and consumes it if so.
type Budget interface {
	Allow() bool
}

// BudgetFunc is a function adapter for Budget.
type BudgetFunc func() bool

func (f BudgetFunc) Allow() bool { return f() }
