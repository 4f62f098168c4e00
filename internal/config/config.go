package config

import "time"

// FactoryConfig is the root configuration for a factory instance.
type FactoryConfig struct {
	Instance     InstanceConfig     `yaml:"instance"`
	Database     DatabaseConfig     `yaml:"database"`
	Credentials  CredentialsConfig  `yaml:"credentials"`
	Collectors   CollectorsConfig   `yaml:"collectors"`
	Stream       StreamConfig       `yaml:"stream"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Status       StatusConfig       `yaml:"status"`
}

// InstanceConfig identifies this factory.
type InstanceConfig struct {
	ID     string `yaml:"id"`
	Symbol string `yaml:"symbol"`
}

// DatabaseConfig holds the TimescaleDB connection for the feature store.
type DatabaseConfig struct {
	Timescale DBConfig `yaml:"timescale"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// CredentialsConfig points at the credential and proxy files.
type CredentialsConfig struct {
	KeyFile   string `yaml:"key_file"`
	ProxyFile string `yaml:"proxy_file"`
}

// CollectorsConfig holds pull-collector cadences and timeouts.
type CollectorsConfig struct {
	Timeout             time.Duration `yaml:"timeout"`
	BinanceRestInterval time.Duration `yaml:"binance_rest_interval"`
	DeribitInterval     time.Duration `yaml:"deribit_interval"`
	CoinalyzeInterval   time.Duration `yaml:"coinalyze_interval"`
	CryptoPanicInterval time.Duration `yaml:"cryptopanic_interval"`
	FearGreedInterval   time.Duration `yaml:"fear_greed_interval"`
	CoinalyzeSymbol     string        `yaml:"coinalyze_symbol"`
}

// StreamConfig holds the Binance WebSocket settings.
type StreamConfig struct {
	URL           string        `yaml:"url"` // derived from symbol when empty
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
	PingInterval  time.Duration `yaml:"ping_interval"`
}

// OrchestratorConfig holds merge-loop settings.
type OrchestratorConfig struct {
	Tick          time.Duration `yaml:"tick"`
	StatusEvery   int           `yaml:"status_every"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	VolWindowCap  int           `yaml:"vol_window_cap"`
	VolMinSamples int           `yaml:"vol_min_samples"`
}

// StatusConfig holds the HTTP status surface settings.
type StatusConfig struct {
	Port int `yaml:"port"`
}
