/*
Package config loads the ledgerd configuration.

SOURCES (later wins):
  1. Default()
  2. YAML file given with --config
  3. .env in the working directory (optional), then the process environment:
       LEDGER_PORT            server port
       LEDGER_DB              SQLite path, ":memory:" for a throwaway store
       LEDGER_LOG_LEVEL       debug, info, warn, error
       LEDGER_SWEEP_INTERVAL  Go duration, "0" disables the settlement sweep
  4. Command-line flags (applied by cmd/server)

EXAMPLE:
  server:
    port: 8080
    cors_origins: ["http://localhost:3000"]
  database:
    path: ledger.db
  log:
    level: info
    format: json
  settlement:
    sweep_interval: 5m
  cache:
    tree_ttl: 30s
  roles:
    receivable: "1122"
    payable: "2202"
    cash: "1001"
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/moon/ledger-engine/business"
	"github.com/moon/ledger-engine/logging"
)

// Config is the top-level ledgerd configuration.
type Config struct {
	Server     ServerConfig       `yaml:"server"`
	Database   DatabaseConfig     `yaml:"database"`
	Log        logging.Config     `yaml:"log"`
	Settlement SettlementConfig   `yaml:"settlement"`
	Cache      CacheConfig        `yaml:"cache"`
	Roles      business.RoleCodes `yaml:"roles"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	CORSOrigins     []string      `yaml:"cors_origins,omitempty"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SettlementConfig controls the background recompute of POSTED documents.
type SettlementConfig struct {
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type CacheConfig struct {
	TreeTTL time.Duration `yaml:"tree_ttl"`
}

// Default returns a configuration that runs out of the box against the
// built-in chart of accounts.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			CORSOrigins:     []string{"*"},
			ShutdownTimeout: 30 * time.Second,
		},
		Database:   DatabaseConfig{Path: "ledger.db"},
		Log:        logging.Config{Level: "info", Format: logging.FormatJSON},
		Settlement: SettlementConfig{SweepInterval: 5 * time.Minute},
		Cache:      CacheConfig{TreeTTL: 30 * time.Second},
		Roles:      business.DefaultRoleCodes(),
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// ApplyEnv loads .env when present and applies LEDGER_* overrides.
func (c *Config) ApplyEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("LEDGER_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LEDGER_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("LEDGER_DB"); ok && v != "" {
		c.Database.Path = v
	}
	if v, ok := lookup("LEDGER_LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup("LEDGER_SWEEP_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("LEDGER_SWEEP_INTERVAL: %w", err)
		}
		c.Settlement.SweepInterval = d
	}
	return nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Settlement.SweepInterval < 0 {
		errs = append(errs, errors.New("settlement.sweep_interval must not be negative"))
	}
	if c.Cache.TreeTTL < 0 {
		errs = append(errs, errors.New("cache.tree_ttl must not be negative"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}
	return errors.Join(errs...)
}
