// Package config loads the ecoseed daemon and CLI configuration.
//
// Values come from defaults, then an optional TOML file, then ECOSEED_*
// environment variables (a .env file in the working directory is loaded
// first when present).
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/xraph/ecoseed"
)

// Backends accepted by Store.Backend.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// Config is the full daemon configuration.
type Config struct {
	Server ServerConfig `toml:"server"`
	Store  StoreConfig  `toml:"store"`
	Ledger LedgerConfig `toml:"ledger"`
	Log    LogConfig    `toml:"log"`
	AMQP   AMQPConfig   `toml:"amqp"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string   `toml:"addr"`
	Timeout      Duration `toml:"timeout"`
	MemberHeader string   `toml:"member_header"`
	Metrics      bool     `toml:"metrics"`
}

// StoreConfig selects and addresses the storage backend.
type StoreConfig struct {
	Backend string `toml:"backend"`
	// DSN is a file path for sqlite, a connection string for postgres
	// and a URI for mongo.
	DSN      string `toml:"dsn"`
	Database string `toml:"database"`
}

// LedgerConfig tunes the ledger service.
type LedgerConfig struct {
	Timezone        string `toml:"timezone"`
	DefaultPageSize int    `toml:"default_page_size"`
	MaxPageSize     int    `toml:"max_page_size"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// AMQPConfig enables event publishing when URL is set.
type AMQPConfig struct {
	URL      string `toml:"url"`
	Exchange string `toml:"exchange"`
}

// Duration decodes TOML strings such as "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			Timeout:      Duration{30 * time.Second},
			MemberHeader: "X-Member-Ref",
			Metrics:      true,
		},
		Store: StoreConfig{
			Backend:  BackendSQLite,
			DSN:      "./data/ecoseed.db",
			Database: "ecoseed",
		},
		Ledger: LedgerConfig{
			Timezone:        "UTC",
			DefaultPageSize: ecoseed.DefaultPageSize,
			MaxPageSize:     ecoseed.MaxPageSize,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		AMQP: AMQPConfig{
			Exchange: "ecoseed.events",
		},
	}
}

// Load reads path (skipped when empty), then applies the environment.
func Load(path string) (*Config, error) {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var errs ecoseed.MultiError

	setString(&c.Server.Addr, "ECOSEED_ADDR")
	setString(&c.Server.MemberHeader, "ECOSEED_MEMBER_HEADER")
	setString(&c.Store.Backend, "ECOSEED_STORE")
	setString(&c.Store.DSN, "ECOSEED_DSN")
	setString(&c.Store.Database, "ECOSEED_DATABASE")
	setString(&c.Ledger.Timezone, "ECOSEED_TIMEZONE")
	setString(&c.Log.Level, "ECOSEED_LOG_LEVEL")
	setString(&c.Log.Format, "ECOSEED_LOG_FORMAT")
	setString(&c.AMQP.URL, "ECOSEED_AMQP_URL")
	setString(&c.AMQP.Exchange, "ECOSEED_AMQP_EXCHANGE")

	errs.Add(setInt(&c.Ledger.DefaultPageSize, "ECOSEED_DEFAULT_PAGE_SIZE"))
	errs.Add(setInt(&c.Ledger.MaxPageSize, "ECOSEED_MAX_PAGE_SIZE"))
	errs.Add(setBool(&c.Server.Metrics, "ECOSEED_METRICS"))

	if v := os.Getenv("ECOSEED_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs.Add(fmt.Errorf("ECOSEED_TIMEOUT: %w", err))
		} else {
			c.Server.Timeout = Duration{d}
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Validate checks every field and reports all problems together.
func (c *Config) Validate() error {
	var errs ecoseed.MultiError

	switch c.Store.Backend {
	case BackendMemory:
	case BackendSQLite, BackendPostgres, BackendMongo:
		if c.Store.DSN == "" {
			errs.Add(fmt.Errorf("store.dsn is required for the %s backend", c.Store.Backend))
		}
		if c.Store.Backend == BackendMongo && c.Store.Database == "" {
			errs.Add(fmt.Errorf("store.database is required for the mongo backend"))
		}
	default:
		errs.Add(fmt.Errorf("invalid store.backend %q: must be one of memory, sqlite, postgres, mongo", c.Store.Backend))
	}

	if _, err := time.LoadLocation(c.Ledger.Timezone); err != nil {
		errs.Add(fmt.Errorf("invalid ledger.timezone %q: %w", c.Ledger.Timezone, err))
	}
	if c.Ledger.MaxPageSize < 1 {
		errs.Add(fmt.Errorf("invalid ledger.max_page_size %d: must be at least 1", c.Ledger.MaxPageSize))
	}
	if c.Ledger.DefaultPageSize < 1 || c.Ledger.DefaultPageSize > c.Ledger.MaxPageSize {
		errs.Add(fmt.Errorf("invalid ledger.default_page_size %d: must be between 1 and max_page_size", c.Ledger.DefaultPageSize))
	}

	if _, err := c.SlogLevel(); err != nil {
		errs.Add(err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs.Add(fmt.Errorf("invalid log.format %q: must be text or json", c.Log.Format))
	}

	if c.Server.Timeout.Duration < 0 {
		errs.Add(fmt.Errorf("invalid server.timeout %v: must not be negative", c.Server.Timeout.Duration))
	}

	if c.AMQP.URL != "" {
		if u, err := url.Parse(c.AMQP.URL); err != nil {
			errs.Add(fmt.Errorf("invalid amqp.url: %w", err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			errs.Add(fmt.Errorf("invalid amqp.url scheme %q: must be amqp or amqps", u.Scheme))
		}
		if c.AMQP.Exchange == "" {
			errs.Add(fmt.Errorf("amqp.exchange is required when amqp.url is set"))
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// SlogLevel parses Log.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("invalid log.level %q: %w", c.Log.Level, err)
	}
	return lvl, nil
}

// Location returns the ledger time zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Ledger.Timezone)
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}
