// Package config loads papertrade settings from a YAML file with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Storage drivers
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

// Config represents the complete application configuration
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Market  MarketConfig  `yaml:"market"`
	Users   UsersConfig   `yaml:"users"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
}

// StorageConfig selects where the snapshot lives
type StorageConfig struct {
	Driver      string `yaml:"driver"`       // file or postgres
	Path        string `yaml:"path"`         // Snapshot file for the file driver
	PostgresDSN string `yaml:"postgres_dsn"` // Connection string for the postgres driver
}

// MarketConfig controls the simulated market
type MarketConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"` // Background price updates; 0 disables them
	Seed         uint64        `yaml:"seed"`          // Random seed; 0 seeds from the clock
}

// UsersConfig defines the users seeded at startup and the active menu user.
// Currency only changes how the console displays amounts; rendered transaction
// lines, and therefore snapshots, always carry domain.Currency.
type UsersConfig struct {
	Active   string        `yaml:"active"`
	Currency string        `yaml:"currency"`
	Defaults []DefaultUser `yaml:"defaults"`
}

// DefaultUser is a user registered on startup when absent
type DefaultUser struct {
	Username       string `yaml:"username"`
	InitialBalance string `yaml:"initial_balance"`
}

// ServerConfig configures the gRPC and metrics listeners
type ServerConfig struct {
	GRPCAddr    string `yaml:"grpc_addr"`
	MetricsAddr string `yaml:"metrics_addr"` // Empty disables the metrics endpoint
	APIToken    string `yaml:"api_token"`
}

// LogConfig configures zerolog
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Driver: DriverFile,
			Path:   "portfolio_data.txt",
		},
		Users: UsersConfig{
			Active:   "john_doe",
			Currency: "INR",
			Defaults: []DefaultUser{
				{Username: "john_doe", InitialBalance: "10000"},
			},
		},
		Server: ServerConfig{
			GRPCAddr:    ":8080",
			MetricsAddr: ":9090",
			APIToken:    "dev-token",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies environment overrides.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides settings from PAPERTRADE_* variables
func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("PAPERTRADE_DATA_FILE"); v != "" {
		c.Storage.Path = v
	}
	if v := getenv("PAPERTRADE_STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := getenv("PAPERTRADE_DB_CONN_STR"); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := getenv("PAPERTRADE_GRPC_ADDR"); v != "" {
		c.Server.GRPCAddr = v
	}
	if v := getenv("PAPERTRADE_METRICS_ADDR"); v != "" {
		c.Server.MetricsAddr = v
	}
	if v := getenv("PAPERTRADE_API_TOKEN"); v != "" {
		c.Server.APIToken = v
	}
	if v := getenv("PAPERTRADE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("PAPERTRADE_USER"); v != "" {
		c.Users.Active = v
	}
	if v := getenv("PAPERTRADE_MARKET_TICK"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid PAPERTRADE_MARKET_TICK: %w", err)
		}
		c.Market.TickInterval = d
	}
	if v := getenv("PAPERTRADE_MARKET_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid PAPERTRADE_MARKET_SEED: %w", err)
		}
		c.Market.Seed = seed
	}
	return nil
}

// Validate ensures the configuration is usable
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverFile:
		if c.Storage.Path == "" {
			return errors.New("storage.path is required for the file driver")
		}
	case DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			return errors.New("storage.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.Market.TickInterval < 0 {
		return errors.New("market.tick_interval cannot be negative")
	}
	if c.Users.Currency == "" {
		return errors.New("users.currency is required")
	}

	for _, u := range c.Users.Defaults {
		if u.Username == "" {
			return errors.New("default user must have a username")
		}
		if _, err := u.Balance(); err != nil {
			return fmt.Errorf("default user %q: %w", u.Username, err)
		}
	}

	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// Balance parses the initial balance
func (u DefaultUser) Balance() (decimal.Decimal, error) {
	balance, err := decimal.NewFromString(u.InitialBalance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid initial_balance %q", u.InitialBalance)
	}
	if balance.IsNegative() {
		return decimal.Zero, fmt.Errorf("initial_balance %s is negative", balance)
	}
	return balance, nil
}
