package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rickgao/crypto-factory/internal/collector"
	"github.com/rickgao/crypto-factory/internal/config"
	"github.com/rickgao/crypto-factory/internal/httpx"
	"github.com/rickgao/crypto-factory/internal/keyfile"
	"github.com/rickgao/crypto-factory/internal/keyring"
	"github.com/rickgao/crypto-factory/internal/monitor"
	"github.com/rickgao/crypto-factory/internal/orchestrator"
	"github.com/rickgao/crypto-factory/internal/sources"
	"github.com/rickgao/crypto-factory/internal/status"
	"github.com/rickgao/crypto-factory/internal/store"
	"github.com/rickgao/crypto-factory/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/factory.local.yaml", "path to config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	// Set up structured logging
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting factory",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"symbol", cfg.Instance.Symbol,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Load credentials and proxies. Missing files degrade to an empty
	// pool; credentialed collectors skip their calls.
	creds, err := keyfile.ParseKeyFile(cfg.Credentials.KeyFile, logger)
	if err != nil {
		logger.Error("failed to parse credential file", "error", err)
		os.Exit(1)
	}
	proxies, err := keyfile.ParseProxyFile(cfg.Credentials.ProxyFile, logger)
	if err != nil {
		logger.Error("failed to parse proxy file", "error", err)
		os.Exit(1)
	}
	ring := keyring.NewManager(creds, proxies, logger)

	// Connect to database. An unreachable sink at boot is fatal.
	logger.Info("connecting to database",
		"host", cfg.Database.Timescale.Host,
		"port", cfg.Database.Timescale.Port,
		"database", cfg.Database.Timescale.Name,
	)

	st, err := store.Connect(ctx, cfg.Database.Timescale, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.Init(ctx); err != nil {
		logger.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	system := monitor.NewSystem()

	// One shared HTTP client; every outbound call takes the next proxy
	// in rotation, or goes direct when none are configured.
	client := httpx.NewClient(
		httpx.WithTimeout(cfg.Collectors.Timeout),
		httpx.WithRetries(3, time.Second),
		httpx.WithLogger(logger),
		httpx.WithProxyRotation(func() string {
			u, _ := ring.ProxyURL()
			return u
		}),
	)

	symbol := cfg.Instance.Symbol
	currency := strings.TrimSuffix(strings.ToUpper(symbol), "USDT")

	// Binance WebSocket stream
	streamURL := cfg.Stream.URL
	if streamURL == "" {
		streamURL = sources.DefaultBinanceStreamURL(symbol)
	}
	streamCfg := collector.DefaultStreamConfig(streamURL)
	if cfg.Stream.ReconnectWait > 0 {
		streamCfg.ReconnectWait = cfg.Stream.ReconnectWait
	}
	if cfg.Stream.PingInterval > 0 {
		streamCfg.PingInterval = cfg.Stream.PingInterval
	}
	binanceWS := sources.NewBinanceStream()
	stream := collector.NewStream("binance_ws", streamCfg, binanceWS.Handle,
		system.Tracker("binance_ws"), logger)

	// Pull collectors
	binanceREST := sources.NewBinanceREST(client, "", symbol)
	deribit := sources.NewDeribit(client, "", currency)
	coinalyze := sources.NewCoinalyze(client, "", cfg.Collectors.CoinalyzeSymbol,
		serviceKey(ring, "coinalyze"))
	cryptoPanic := sources.NewCryptoPanic(client, "", currency,
		serviceKey(ring, "cryptopanic"))
	fearGreed := sources.NewAlternativeMe(client, "")

	pollerCfg := func(interval time.Duration) collector.PollerConfig {
		return collector.PollerConfig{Interval: interval, Timeout: cfg.Collectors.Timeout}
	}
	pollers := []*collector.Poller{
		collector.NewPoller("fear_greed", pollerCfg(cfg.Collectors.FearGreedInterval),
			fearGreed.Fetch, logger,
			collector.WithTracker(system.Tracker("fear_greed"))),
		collector.NewPoller("cryptopanic", pollerCfg(cfg.Collectors.CryptoPanicInterval),
			cryptoPanic.Fetch, logger,
			collector.WithTracker(system.Tracker("cryptopanic")),
			collector.WithBudget(serviceBudget(ring, "cryptopanic"))),
		collector.NewPoller("coinalyze", pollerCfg(cfg.Collectors.CoinalyzeInterval),
			coinalyze.Fetch, logger,
			collector.WithTracker(system.Tracker("coinalyze")),
			collector.WithBudget(serviceBudget(ring, "coinalyze"))),
		collector.NewPoller("binance_rest", pollerCfg(cfg.Collectors.BinanceRestInterval),
			binanceREST.Fetch, logger,
			collector.WithTracker(system.Tracker("binance_rest"))),
		collector.NewPoller("deribit", pollerCfg(cfg.Collectors.DeribitInterval),
			deribit.Fetch, logger,
			collector.WithTracker(system.Tracker("deribit"))),
	}

	// Merge order: slowest cadence first, the stream last, so fresher
	// data wins overlapping fields. Staleness bounds are three poll
	// intervals; beyond that a snapshot contributes via forward-fill
	// only. The stream has no bound: its snapshot is fresh whenever the
	// socket is up.
	intervals := []time.Duration{
		cfg.Collectors.FearGreedInterval,
		cfg.Collectors.CryptoPanicInterval,
		cfg.Collectors.CoinalyzeInterval,
		cfg.Collectors.BinanceRestInterval,
		cfg.Collectors.DeribitInterval,
	}
	mergeOrder := make([]orchestrator.Source, 0, len(pollers)+1)
	for i, p := range pollers {
		mergeOrder = append(mergeOrder, orchestrator.Source{
			Collector: p,
			Staleness: 3 * intervals[i],
		})
	}
	mergeOrder = append(mergeOrder, orchestrator.Source{Collector: stream})

	collectors := make([]collector.Collector, 0, len(mergeOrder))
	for _, src := range mergeOrder {
		collectors = append(collectors, src.Collector)
	}

	// Status surface: the orchestrator pushes snapshots onto the board,
	// the HTTP handlers only read it.
	board := status.NewBoard()
	pushStatus := func() {
		statusCtx, statusCancel := context.WithTimeout(ctx, 2*time.Second)
		defer statusCancel()

		snap := status.Snapshot{
			UpdatedAt: time.Now().UTC(),
			Symbol:    symbol,
			Keyring:   ring.Status(),
		}
		for _, c := range collectors {
			cs := status.CollectorStatus{
				Name:      c.Name(),
				UpdatedAt: c.UpdatedAt(),
				Fields:    len(c.Snapshot()),
			}
			if !cs.UpdatedAt.IsZero() {
				cs.AgeSeconds = time.Since(cs.UpdatedAt).Seconds()
			}
			if sc, ok := c.(*collector.Stream); ok {
				cs.State = string(sc.State())
			}
			snap.Collectors = append(snap.Collectors, cs)
		}
		snap.DBConnected = st.Ping(statusCtx) == nil
		if rows, err := st.RowCount(statusCtx); err == nil {
			snap.DBRows = rows
		}
		board.Set(snap)
	}

	ocfg := orchestrator.Config{
		Symbol:        symbol,
		Tick:          cfg.Orchestrator.Tick,
		StatusEvery:   cfg.Orchestrator.StatusEvery,
		WriteTimeout:  cfg.Orchestrator.WriteTimeout,
		VolWindowCap:  cfg.Orchestrator.VolWindowCap,
		VolMinSamples: cfg.Orchestrator.VolMinSamples,
	}
	orch := orchestrator.New(ocfg, mergeOrder, st, system.Writes(), logger,
		orchestrator.WithStatusHook(pushStatus))

	statusServer := status.NewServer(cfg.Status.Port, board, system, logger)
	if err := statusServer.Start(ctx); err != nil {
		logger.Error("failed to start status server", "error", err)
		os.Exit(1)
	}

	for _, c := range collectors {
		if err := c.Start(ctx); err != nil {
			logger.Error("failed to start collector", "source", c.Name(), "error", err)
			os.Exit(1)
		}
	}

	if err := orch.Start(ctx); err != nil {
		logger.Error("failed to start orchestrator", "error", err)
		os.Exit(1)
	}

	logger.Info("factory running",
		"instance_id", cfg.Instance.ID,
		"symbol", symbol,
		"collectors", len(collectors),
		"status_port", cfg.Status.Port,
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Reverse of startup: stop producing rows, then the collectors,
	// then the status surface.
	if err := orch.Stop(shutdownCtx); err != nil {
		logger.Warn("orchestrator stop", "error", err)
	}
	for _, c := range collectors {
		if err := c.Stop(shutdownCtx); err != nil {
			logger.Warn("collector stop", "source", c.Name(), "error", err)
		}
	}
	if err := statusServer.Stop(shutdownCtx); err != nil {
		logger.Warn("status server stop", "error", err)
	}

	logger.Info("factory stopped")
}

// serviceKey returns the active credential's key for a service without
// consuming quota.
func serviceKey(ring *keyring.Manager, service string) sources.KeyFunc {
	return func() (string, error) {
		cred, err := ring.Active(service)
		if err != nil {
			return "", err
		}
		return cred.Key, nil
	}
}

// serviceBudget consumes one unit of the service's rate budget per poll.
func serviceBudget(ring *keyring.Manager, service string) collector.Budget {
	return collector.BudgetFunc(func() bool {
		return ring.RecordUse(service)
	})
}
