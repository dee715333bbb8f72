package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when QUANTDIR_CONFIG is unset.
const DefaultPath = "config/quantdir.yaml"

// Config is the top-level configuration for quantdir.
type Config struct {
	Storage    Storage    `yaml:"storage"`
	Alpaca     Alpaca     `yaml:"alpaca"`
	Logging    Logging    `yaml:"logging"`
	Metrics    Metrics    `yaml:"metrics"`
	Gather     Gather     `yaml:"gather"`
	Experiment Experiment `yaml:"experiment"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Alpaca holds credentials and endpoints for the Alpaca APIs.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
	Feed      string `yaml:"feed"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Metrics configures the Prometheus endpoint. An empty Addr disables it.
type Metrics struct {
	Addr string `yaml:"addr"`
}

// Gather controls how price data is fetched.
type Gather struct {
	RateLimitPerMin int           `yaml:"rate_limit_per_min"`
	MaxAttempts     int           `yaml:"max_attempts"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
}

// Experiment holds the default experiment parameters. Command-line flags
// override them per run.
type Experiment struct {
	Tickers      []string `yaml:"tickers"`
	StartDate    string   `yaml:"start_date"`
	Horizon      int      `yaml:"horizon"`
	SplitRatio   float64  `yaml:"split_ratio"`
	Model        string   `yaml:"model"`
	RiskFreeRate float64  `yaml:"risk_free_rate"`
	Workers      int      `yaml:"workers"`
}

// Default returns the configuration used for any field the YAML file leaves
// empty.
func Default() *Config {
	return &Config{
		Storage: Storage{
			DataDir:    "data",
			SQLitePath: "data/quantdir.db",
		},
		Alpaca: Alpaca{
			BaseURL: "https://paper-api.alpaca.markets",
			Feed:    "iex",
		},
		Logging: Logging{Level: "info", Format: "json"},
		Gather: Gather{
			RateLimitPerMin: 200,
			MaxAttempts:     3,
			RetryDelay:      time.Second,
		},
		Experiment: Experiment{
			Tickers:    []string{"SPY"},
			StartDate:  "2015-01-01",
			Horizon:    15,
			SplitRatio: 0.8,
			Model:      "xgb",
			Workers:    4,
		},
	}
}

// Path returns the configuration path from QUANTDIR_CONFIG, or DefaultPath.
func Path() string {
	if v := os.Getenv("QUANTDIR_CONFIG"); v != "" {
		return v
	}
	return DefaultPath
}

// Load reads the YAML configuration file at the given path over Default(),
// applies environment variable overrides, and validates the result. A .env
// file in the working directory, if present, fills variables that are not
// already set.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	_ = godotenv.Load() // best-effort
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks experiment parameters for values the pipeline rejects.
func (c *Config) Validate() error {
	e := c.Experiment
	if e.Horizon <= 0 {
		return fmt.Errorf("experiment.horizon must be positive, got %d", e.Horizon)
	}
	if !(e.SplitRatio > 0 && e.SplitRatio <= 1) {
		return fmt.Errorf("experiment.split_ratio must be in (0, 1], got %v", e.SplitRatio)
	}
	if _, err := c.StartDate(); err != nil {
		return err
	}
	if e.Workers < 0 {
		return fmt.Errorf("experiment.workers must not be negative, got %d", e.Workers)
	}
	return nil
}

// StartDate parses experiment.start_date as YYYY-MM-DD in UTC.
func (c *Config) StartDate() (time.Time, error) {
	t, err := time.Parse(time.DateOnly, c.Experiment.StartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("experiment.start_date %q: %w", c.Experiment.StartDate, err)
	}
	return t, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}
	if v := os.Getenv("ALPACA_FEED"); v != "" {
		cfg.Alpaca.Feed = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("QUANTDIR_TICKERS"); v != "" {
		cfg.Experiment.Tickers = splitList(v)
	}
	if v := os.Getenv("QUANTDIR_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Experiment.Workers = n
		}
	}

	// Standard Alpaca env vars (highest priority, canonical names used by the SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}
