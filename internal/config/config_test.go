package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "factory.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validYAML = `
instance:
  id: factory-1
  symbol: BTCUSDT
database:
  timescale:
    host: localhost
    name: crypto
    user: factory
    password: secret
credentials:
  key_file: /etc/factory/apikey.txt
orchestrator:
  tick: 1s
status:
  port: 5000
`

func TestLoadAndValidate(t *testing.T) {
	path := writeConfig(t, validYAML)

	cfg, err := LoadAndValidate(path)
	if err != nil {
		t.Fatalf("LoadAndValidate failed: %v", err)
	}

	if cfg.Instance.ID != "factory-1" {
		t.Errorf("instance id = %q", cfg.Instance.ID)
	}
	if cfg.Database.Timescale.Host != "localhost" {
		t.Errorf("db host = %q", cfg.Database.Timescale.Host)
	}

	// Defaults fill the gaps.
	if cfg.Database.Timescale.Port != DefaultDBPort {
		t.Errorf("db port = %d, want default %d", cfg.Database.Timescale.Port, DefaultDBPort)
	}
	if cfg.Collectors.BinanceRestInterval != DefaultBinanceRestInterval {
		t.Errorf("binance rest interval = %v, want default", cfg.Collectors.BinanceRestInterval)
	}
	if cfg.Orchestrator.VolWindowCap != DefaultVolWindowCap {
		t.Errorf("vol window cap = %d, want default", cfg.Orchestrator.VolWindowCap)
	}
	if cfg.Stream.ReconnectWait != 5*time.Second {
		t.Errorf("reconnect wait = %v, want 5s", cfg.Stream.ReconnectWait)
	}
	if cfg.Credentials.ProxyFile != DefaultProxyFile {
		t.Errorf("proxy file = %q, want default", cfg.Credentials.ProxyFile)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("FACTORY_DB_PASSWORD", "from-env")
	path := writeConfig(t, `
instance:
  id: factory-1
database:
  timescale:
    host: localhost
    name: crypto
    user: factory
    password: ${FACTORY_DB_PASSWORD}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.Timescale.Password != "from-env" {
		t.Errorf("password = %q, want from-env", cfg.Database.Timescale.Password)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing instance id", `
database:
  timescale: {host: h, name: n, user: u, password: p}
`},
		{"missing db host", `
instance: {id: f1}
database:
  timescale: {name: n, user: u, password: p}
`},
		{"missing db password", `
instance: {id: f1}
database:
  timescale: {host: h, name: n, user: u}
`},
		{"vol samples exceed cap", `
instance: {id: f1}
database:
  timescale: {host: h, name: n, user: u, password: p}
orchestrator: {vol_window_cap: 10, vol_min_samples: 50}
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.yaml)
			if _, err := LoadAndValidate(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/factory.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}
