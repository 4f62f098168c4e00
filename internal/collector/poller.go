package collector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/crypto-factory/internal/httpx"
	"github.com/rickgao/crypto-factory/internal/monitor"
	"github.com/rickgao/crypto-factory/internal/snapshot"
)

// FetchFunc performs one collection cycle and returns the full field
// set for the source.
type FetchFunc func(ctx context.Context) (map[string]float64, error)

// PollerConfig holds poller timing.
type PollerConfig struct {
	Interval time.Duration // poll cadence
	Timeout  time.Duration // per-fetch timeout
}

// DefaultPollerConfig returns sensible defaults.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		Interval: time.Minute,
		Timeout:  10 * time.Second,
	}
}

// Poller runs a FetchFunc on a fixed interval and replaces the source
// snapshot with each successful result. A fetch error keeps the
// previous snapshot; a denied budget skips the cycle without calling
// out.
type Poller struct {
	name    string
	cfg     PollerConfig
	fetch   FetchFunc
	store   *snapshot.Store
	budget  Budget
	tracker *monitor.CallTracker
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithBudget gates each poll on a rate-limit allowance.
func WithBudget(b Budget) PollerOption {
	return func(p *Poller) {
		p.budget = b
	}
}

// WithTracker records call outcomes for monitoring.
func WithTracker(t *monitor.CallTracker) PollerOption {
	return func(p *Poller) {
		p.tracker = t
	}
}

// NewPoller creates a Poller for a named source.
func NewPoller(name string, cfg PollerConfig, fetch FetchFunc, logger *slog.Logger, opts ...PollerOption) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Poller{
		name:   name,
		cfg:    cfg,
		fetch:  fetch,
		store:  snapshot.New(),
		logger: logger.With("source", name),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the source name.
func (p *Poller) Name() string { return p.name }

// Snapshot returns a copy of the latest fields.
func (p *Poller) Snapshot() map[string]float64 { return p.store.Snapshot() }

// UpdatedAt returns when the snapshot last changed.
func (p *Poller) UpdatedAt() time.Time { return p.store.UpdatedAt() }

// Start begins the polling loop. The first poll runs immediately.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("poller started", "interval", p.cfg.Interval)
	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.poll()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

// poll performs one collection cycle.
func (p *Poller) poll() {
	if p.budget != nil && !p.budget.Allow() {
		p.logger.Warn("rate budget exhausted, skipping poll")
		if p.tracker != nil {
			p.tracker.Record(monitor.CallRecord{
				Success:  false,
				ErrClass: monitor.ErrClassRateLimit,
				ErrMsg:   "all credentials exhausted",
			})
		}
		return
	}

	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	start := time.Now()
	fields, err := p.fetch(ctx)
	latency := time.Since(start)

	if err != nil {
		p.logger.Warn("poll failed", "err", err, "duration", latency)
		if p.tracker != nil {
			p.tracker.Record(monitor.CallRecord{
				Success:  false,
				ErrClass: httpx.Classify(err),
				ErrMsg:   err.Error(),
				Latency:  latency,
			})
		}
		return
	}

	p.store.Replace(fields)
	if p.tracker != nil {
		p.tracker.Record(monitor.CallRecord{
			Success: true,
			Latency: latency,
		})
	}
	p.logger.Debug("poll complete", "fields", len(fields), "duration", latency)
}
