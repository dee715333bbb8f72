package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var envVars = []string{
	"DATA_DIR", "SQLITE_PATH", "ALPACA_API_KEY", "ALPACA_API_SECRET", "ALPACA_BASE_URL",
	"ALPACA_DATA_URL", "ALPACA_FEED", "LOG_LEVEL", "METRICS_ADDR", "QUANTDIR_TICKERS",
	"QUANTDIR_WORKERS", "APCA_API_KEY_ID", "APCA_API_SECRET_KEY", "QUANTDIR_CONFIG",
}

// clearEnv blanks every override so the developer's shell cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envVars {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quantdir.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
storage:
  data_dir: "/tmp/quantdir/data"
  sqlite_path: "/tmp/quantdir/runs.db"
alpaca:
  api_key: "test-key"
  api_secret: "test-secret"
  base_url: "https://paper-api.alpaca.markets"
  feed: "sip"
logging:
  level: "debug"
  format: "text"
metrics:
  addr: ":9102"
gather:
  rate_limit_per_min: 100
  retry_delay: 2s
experiment:
  tickers: ["SPY", "QQQ"]
  start_date: "2018-01-01"
  horizon: 5
  split_ratio: 0.7
  model: "logistic"
  risk_free_rate: 0.02
  workers: 2
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Storage.DataDir != "/tmp/quantdir/data" {
		t.Errorf("Storage.DataDir = %q, want %q", cfg.Storage.DataDir, "/tmp/quantdir/data")
	}
	if cfg.Storage.SQLitePath != "/tmp/quantdir/runs.db" {
		t.Errorf("Storage.SQLitePath = %q, want %q", cfg.Storage.SQLitePath, "/tmp/quantdir/runs.db")
	}
	if cfg.Alpaca.APIKey != "test-key" || cfg.Alpaca.Feed != "sip" {
		t.Errorf("Alpaca = %+v, want key test-key and feed sip", cfg.Alpaca)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v, want debug/text", cfg.Logging)
	}
	if cfg.Metrics.Addr != ":9102" {
		t.Errorf("Metrics.Addr = %q, want %q", cfg.Metrics.Addr, ":9102")
	}
	if cfg.Gather.RateLimitPerMin != 100 {
		t.Errorf("Gather.RateLimitPerMin = %d, want 100", cfg.Gather.RateLimitPerMin)
	}
	if cfg.Gather.RetryDelay != 2*time.Second {
		t.Errorf("Gather.RetryDelay = %v, want 2s", cfg.Gather.RetryDelay)
	}
	// Unset in YAML, so the default survives.
	if cfg.Gather.MaxAttempts != 3 {
		t.Errorf("Gather.MaxAttempts = %d, want default 3", cfg.Gather.MaxAttempts)
	}

	e := cfg.Experiment
	if len(e.Tickers) != 2 || e.Tickers[0] != "SPY" || e.Tickers[1] != "QQQ" {
		t.Errorf("Experiment.Tickers = %v, want [SPY QQQ]", e.Tickers)
	}
	if e.Horizon != 5 || e.SplitRatio != 0.7 || e.Model != "logistic" || e.Workers != 2 {
		t.Errorf("Experiment = %+v", e)
	}
	start, err := cfg.StartDate()
	if err != nil {
		t.Fatalf("StartDate: %v", err)
	}
	if want := time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC); !start.Equal(want) {
		t.Errorf("StartDate() = %v, want %v", start, want)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	e := cfg.Experiment
	if e.Horizon != 15 || e.SplitRatio != 0.8 || e.Model != "xgb" || e.StartDate != "2015-01-01" {
		t.Errorf("default Experiment = %+v", e)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("default Logging = %+v", cfg.Logging)
	}
	if cfg.Metrics.Addr != "" {
		t.Errorf("default Metrics.Addr = %q, want empty", cfg.Metrics.Addr)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
alpaca:
  api_key: "yaml-key"
  api_secret: "yaml-secret"
storage:
  data_dir: "/original/data"
`)

	t.Setenv("ALPACA_API_KEY", "env-key")
	t.Setenv("DATA_DIR", "/env/data")
	t.Setenv("METRICS_ADDR", ":9999")
	t.Setenv("QUANTDIR_TICKERS", "spy, qqq ,")
	t.Setenv("APCA_API_SECRET_KEY", "apca-secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Alpaca.APIKey != "env-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q (env override)", cfg.Alpaca.APIKey, "env-key")
	}
	if cfg.Alpaca.APISecret != "apca-secret" {
		t.Errorf("Alpaca.APISecret = %q, want %q (APCA override)", cfg.Alpaca.APISecret, "apca-secret")
	}
	if cfg.Storage.DataDir != "/env/data" {
		t.Errorf("Storage.DataDir = %q, want %q (env override)", cfg.Storage.DataDir, "/env/data")
	}
	if cfg.Metrics.Addr != ":9999" {
		t.Errorf("Metrics.Addr = %q, want %q", cfg.Metrics.Addr, ":9999")
	}
	if got := cfg.Experiment.Tickers; len(got) != 2 || got[0] != "SPY" || got[1] != "QQQ" {
		t.Errorf("Experiment.Tickers = %v, want [SPY QQQ]", got)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	clearEnv(t)
	for _, body := range []string{
		"experiment:\n  horizon: -1\n",
		"experiment:\n  split_ratio: 1.5\n",
		"experiment:\n  start_date: \"01/02/2015\"\n",
		"experiment:\n  workers: -2\n",
		"experiment: [\n",
	} {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Errorf("Load(%q) should fail", body)
		}
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of a missing file should fail")
	}
}

func TestPath(t *testing.T) {
	clearEnv(t)
	if got := Path(); got != DefaultPath {
		t.Errorf("Path() = %q, want %q", got, DefaultPath)
	}
	t.Setenv("QUANTDIR_CONFIG", "/etc/quantdir.yaml")
	if got := Path(); got != "/etc/quantdir.yaml" {
		t.Errorf("Path() = %q, want /etc/quantdir.yaml", got)
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("ALPACA_FEED=sip\nLOG_LEVEL=debug\n"), 0o644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	path := writeConfig(t, "{}\n")
	t.Chdir(dir)

	// ALPACA_FEED is absent so .env fills it; LOG_LEVEL is set and wins.
	os.Unsetenv("ALPACA_FEED")
	t.Setenv("LOG_LEVEL", "error")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Alpaca.Feed != "sip" {
		t.Errorf("Alpaca.Feed = %q, want sip from .env", cfg.Alpaca.Feed)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("Logging.Level = %q, want error from the environment", cfg.Logging.Level)
	}
}
