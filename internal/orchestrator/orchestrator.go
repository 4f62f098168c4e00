package orchestrator

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/rickgao/crypto-factory/internal/collector"
	"github.com/rickgao/crypto-factory/internal/model"
	"github.com/rickgao/crypto-factory/internal/monitor"
)

// Sink receives one merged feature row per tick.
type Sink interface {
	Upsert(ctx context.Context, row model.FeatureRow) error
}

// Source pairs a collector with its staleness bound. A snapshot older
// than the bound contributes to forward-fill only, not as fresh data.
// Zero means no bound (the stream, which is fresh whenever connected).
type Source struct {
	Collector collector.Collector
	Staleness time.Duration
}

// Config holds orchestrator timing and derivation settings.
type Config struct {
	Symbol        string
	Tick          time.Duration
	StatusEvery   int           // ticks between status pushes
	WriteTimeout  time.Duration // per-upsert bound
	VolWindowCap  int
	VolMinSamples int
}

// DefaultConfig returns the 1 Hz production settings.
func DefaultConfig(symbol string) Config {
	return Config{
		Symbol:        symbol,
		Tick:          time.Second,
		StatusEvery:   5,
		WriteTimeout:  5 * time.Second,
		VolWindowCap:  300,
		VolMinSamples: 30,
	}
}

// Orchestrator drives the merge loop. The sources slice is the merge
// order: slowest-cadence source first, the stream last, so the
// freshest data wins overlapping fields.
type Orchestrator struct {
	cfg     Config
	sources []Source
	sink    Sink
	writes  *monitor.WriteMonitor
	logger  *slog.Logger

	onStatus func()
	now      func() time.Time

	// Tick-loop state, touched only from the run goroutine.
	lastGood map[string]float64
	vol      *volWindow
	ticks    int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStatusHook registers a callback invoked every StatusEvery ticks.
func WithStatusHook(fn func()) Option {
	return func(o *Orchestrator) {
		o.onStatus = fn
	}
}

// New creates an Orchestrator over the given sources in merge order.
func New(cfg Config, sources []Source, sink Sink, writes *monitor.WriteMonitor, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		cfg:      cfg,
		sources:  sources,
		sink:     sink,
		writes:   writes,
		logger:   logger,
		now:      time.Now,
		lastGood: make(map[string]float64),
		vol:      newVolWindow(cfg.VolWindowCap, cfg.VolMinSamples),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start begins the tick loop.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.ctx, o.cancel = context.WithCancel(ctx)

	o.wg.Add(1)
	go o.run()

	o.logger.Info("orchestrator started",
		"symbol", o.cfg.Symbol,
		"tick", o.cfg.Tick,
		"sources", len(o.sources),
	)
	return nil
}

// Stop gracefully shuts down the loop.
func (o *Orchestrator) Stop(ctx context.Context) error {
	if o.cancel != nil {
		o.cancel()
	}

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		o.logger.Info("orchestrator stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) run() {
	defer o.wg.Done()

	ticker := time.NewTicker(o.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-o.ctx.Done():
			return
		case <-ticker.C:
			o.tick()
		}
	}
}

// tick performs one merge-derive-write cycle.
func (o *Orchestrator) tick() {
	o.ticks++
	now := o.now().UTC()

	row := o.buildRow(now)

	writeCtx, cancel := context.WithTimeout(o.ctx, o.cfg.WriteTimeout)
	start := time.Now()
	err := o.sink.Upsert(writeCtx, row)
	latency := time.Since(start)
	cancel()

	fields := make([]string, 0, len(row.Fields))
	for name := range row.Fields {
		fields = append(fields, name)
	}

	if err != nil {
		o.logger.Warn("sink write failed", "err", err, "duration", latency)
		if o.writes != nil {
			o.writes.Record(monitor.WriteRecord{
				Success:      false,
				ErrMsg:       err.Error(),
				Latency:      latency,
				FailedFields: fields,
			})
		}
	} else if o.writes != nil {
		o.writes.Record(monitor.WriteRecord{
			Success:         true,
			Latency:         latency,
			PopulatedFields: fields,
		})
	}

	if o.onStatus != nil && o.cfg.StatusEvery > 0 && o.ticks%o.cfg.StatusEvery == 0 {
		o.onStatus()
	}
}

// buildRow merges collector snapshots in order, applies forward-fill
// and defaults, and derives the clock and volatility features.
func (o *Orchestrator) buildRow(now time.Time) model.FeatureRow {
	merged := make(map[string]float64)

	for _, src := range o.sources {
		snap := src.Collector.Snapshot()
		if len(snap) == 0 {
			continue
		}
		if src.Staleness > 0 && now.Sub(src.Collector.UpdatedAt()) > src.Staleness {
			continue
		}
		maps.Copy(merged, snap)
	}

	// Forward-fill memory remembers the last non-zero value per field.
	for name, v := range merged {
		if v != 0 {
			o.lastGood[name] = v
		}
	}

	if c, ok := merged[model.FieldClose]; ok {
		o.vol.push(c)
	}

	for _, name := range model.ValueColumns {
		if _, ok := merged[name]; ok {
			continue
		}
		if v, ok := o.lastGood[name]; ok {
			merged[name] = v
		}
	}

	// The index reads neutral when the source has never reported.
	if _, ok := merged[model.FieldFearGreedIndex]; !ok {
		merged[model.FieldFearGreedIndex] = 50
	}

	if hv, ok := o.vol.value(o.cfg.Tick.Seconds()); ok {
		merged[model.FieldVolatilityHV] = hv
	}

	merged[model.FieldTimeHour] = float64(now.Hour())
	merged[model.FieldTimeDay] = float64(now.Weekday())
	if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		merged[model.FieldIsWeekend] = 1
	} else {
		merged[model.FieldIsWeekend] = 0
	}

	return model.FeatureRow{
		Timestamp: now,
		Symbol:    o.cfg.Symbol,
		Fields:    merged,
	}
}
