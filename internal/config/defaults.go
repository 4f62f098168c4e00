package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultSymbol              = "BTCUSDT"
	DefaultDBPort              = 5432
	DefaultDBSSLMode           = "prefer"
	DefaultMaxConns            = 10
	DefaultMinConns            = 2
	DefaultKeyFile             = "apikey.txt"
	DefaultProxyFile           = "proxies.txt"
	DefaultCollectorTimeout    = 10 * time.Second
	DefaultBinanceRestInterval = time.Minute
	DefaultDeribitInterval     = 10 * time.Second
	DefaultCoinalyzeInterval   = 10 * time.Minute
	DefaultCryptoPanicInterval = 10 * time.Minute
	DefaultFearGreedInterval   = 30 * time.Minute
	DefaultCoinalyzeSymbol     = "BTCUSDT.6"
	DefaultReconnectWait       = 5 * time.Second
	DefaultPingInterval        = 30 * time.Second
	DefaultTick                = time.Second
	DefaultStatusEvery         = 5
	DefaultWriteTimeout        = 5 * time.Second
	DefaultVolWindowCap        = 300
	DefaultVolMinSamples       = 30
	DefaultStatusPort          = 5000
)

func (c *FactoryConfig) applyDefaults() {
	if c.Instance.Symbol == "" {
		c.Instance.Symbol = DefaultSymbol
	}

	applyDBDefaults(&c.Database.Timescale)

	if c.Credentials.KeyFile == "" {
		c.Credentials.KeyFile = DefaultKeyFile
	}
	if c.Credentials.ProxyFile == "" {
		c.Credentials.ProxyFile = DefaultProxyFile
	}

	if c.Collectors.Timeout == 0 {
		c.Collectors.Timeout = DefaultCollectorTimeout
	}
	if c.Collectors.BinanceRestInterval == 0 {
		c.Collectors.BinanceRestInterval = DefaultBinanceRestInterval
	}
	if c.Collectors.DeribitInterval == 0 {
		c.Collectors.DeribitInterval = DefaultDeribitInterval
	}
	if c.Collectors.CoinalyzeInterval == 0 {
		c.Collectors.CoinalyzeInterval = DefaultCoinalyzeInterval
	}
	if c.Collectors.CryptoPanicInterval == 0 {
		c.Collectors.CryptoPanicInterval = DefaultCryptoPanicInterval
	}
	if c.Collectors.FearGreedInterval == 0 {
		c.Collectors.FearGreedInterval = DefaultFearGreedInterval
	}
	if c.Collectors.CoinalyzeSymbol == "" {
		c.Collectors.CoinalyzeSymbol = DefaultCoinalyzeSymbol
	}

	if c.Stream.ReconnectWait == 0 {
		c.Stream.ReconnectWait = DefaultReconnectWait
	}
	if c.Stream.PingInterval == 0 {
		c.Stream.PingInterval = DefaultPingInterval
	}

	if c.Orchestrator.Tick == 0 {
		c.Orchestrator.Tick = DefaultTick
	}
	if c.Orchestrator.StatusEvery == 0 {
		c.Orchestrator.StatusEvery = DefaultStatusEvery
	}
	if c.Orchestrator.WriteTimeout == 0 {
		c.Orchestrator.WriteTimeout = DefaultWriteTimeout
	}
	if c.Orchestrator.VolWindowCap == 0 {
		c.Orchestrator.VolWindowCap = DefaultVolWindowCap
	}
	if c.Orchestrator.VolMinSamples == 0 {
		c.Orchestrator.VolMinSamples = DefaultVolMinSamples
	}

	if c.Status.Port == 0 {
		c.Status.Port = DefaultStatusPort
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
