package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when TRADELAB_CONFIG is unset.
const DefaultPath = "config/tradelab.yaml"

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the tradelab services.
type Config struct {
	Server   Server   `yaml:"server"`
	Alpaca   Alpaca   `yaml:"alpaca"`
	Storage  Storage  `yaml:"storage"`
	Logging  Logging  `yaml:"logging"`
	Backtest Backtest `yaml:"backtest"`
}

// Server holds network listener configuration.
type Server struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	GRPCPort int    `yaml:"grpc_port"`
}

// Alpaca holds credentials and endpoints for the Alpaca market-data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
	Feed      string `yaml:"feed"`
}

// Enabled reports whether credentials are configured.
func (a Alpaca) Enabled() bool { return a.APIKey != "" && a.APISecret != "" }

// Storage selects and locates the bar cache.
type Storage struct {
	Backend     string `yaml:"backend"` // parquet, sqlite, postgres or none
	DataDir     string `yaml:"data_dir"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresURL string `yaml:"postgres_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Backtest tunes the engine and its data fetching.
type Backtest struct {
	BarMinutes     int           `yaml:"bar_minutes"`
	HalfSpread     float64       `yaml:"half_spread"`
	RiskFreeRate   float64       `yaml:"risk_free_rate"`
	RequestDelay   time.Duration `yaml:"request_delay"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
}

// Defaults returns the configuration used for unset fields.
func Defaults() Config {
	return Config{
		Server:  Server{Host: "0.0.0.0", Port: 8080, GRPCPort: 9090},
		Alpaca:  Alpaca{Feed: "iex"},
		Storage: Storage{Backend: "none", DataDir: "data", SQLitePath: "data/tradelab.db"},
		Logging: Logging{Level: "info", Format: "json"},
		Backtest: Backtest{
			BarMinutes:     5,
			HalfSpread:     0.01,
			RiskFreeRate:   0.02,
			RequestDelay:   250 * time.Millisecond,
			MaxRetries:     3,
			RetryBaseDelay: time.Second,
		},
	}
}

// WithDefaults returns a copy of c with zero fields taken from Defaults. A
// negative max_retries disables retries. half_spread and risk_free_rate
// accept zero; only a negative half_spread is replaced.
func (c Config) WithDefaults() Config {
	d := Defaults()
	setStr := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	setInt := func(v *int, def int) {
		if *v <= 0 {
			*v = def
		}
	}
	setDur := func(v *time.Duration, def time.Duration) {
		if *v <= 0 {
			*v = def
		}
	}

	setStr(&c.Server.Host, d.Server.Host)
	setInt(&c.Server.Port, d.Server.Port)
	setInt(&c.Server.GRPCPort, d.Server.GRPCPort)
	setStr(&c.Alpaca.Feed, d.Alpaca.Feed)
	setStr(&c.Storage.Backend, d.Storage.Backend)
	setStr(&c.Storage.DataDir, d.Storage.DataDir)
	setStr(&c.Storage.SQLitePath, d.Storage.SQLitePath)
	setStr(&c.Logging.Level, d.Logging.Level)
	setStr(&c.Logging.Format, d.Logging.Format)
	setInt(&c.Backtest.BarMinutes, d.Backtest.BarMinutes)
	setDur(&c.Backtest.RequestDelay, d.Backtest.RequestDelay)
	setDur(&c.Backtest.RetryBaseDelay, d.Backtest.RetryBaseDelay)
	if c.Backtest.MaxRetries < 0 {
		c.Backtest.MaxRetries = 0
	} else if c.Backtest.MaxRetries == 0 {
		c.Backtest.MaxRetries = d.Backtest.MaxRetries
	}
	if c.Backtest.HalfSpread < 0 {
		c.Backtest.HalfSpread = d.Backtest.HalfSpread
	}
	return c
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Path returns the config file path from TRADELAB_CONFIG or DefaultPath.
func Path() string {
	if v := os.Getenv("TRADELAB_CONFIG"); v != "" {
		return v
	}
	return DefaultPath
}

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, applies environment variable overrides and fills defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	d := Defaults()
	cfg := &d
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	*cfg = cfg.WithDefaults()

	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults
// with environment overrides applied.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		d := Defaults()
		cfg = &d
		applyEnvOverrides(cfg)
		*cfg = cfg.WithDefaults()
		return cfg, nil
	}
	return cfg, err
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TRADELAB_STORAGE"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Storage.PostgresURL = v
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
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}

	// Standard Alpaca env vars (highest priority, canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
