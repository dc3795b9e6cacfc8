// Package daemon holds khata's runtime configuration and the wiring that
// turns it into a running store.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/udhar-khata/khata/internal/app/ledger"
	"github.com/udhar-khata/khata/internal/app/remind"
	"github.com/udhar-khata/khata/internal/infra/postgres"
)

// ConfigFile is the name of the TOML file inside the khata home directory.
const ConfigFile = "config.toml"

// Config is the root of config.toml.
type Config struct {
	Store    StoreConfig    `toml:"store"`
	SQLite   SQLiteConfig   `toml:"sqlite"`
	Redis    RedisConfig    `toml:"redis"`
	Postgres PostgresConfig `toml:"postgres"`
	API      APIConfig      `toml:"api"`
	Metrics  MetricsConfig  `toml:"metrics"`
	Remind   RemindConfig   `toml:"remind"`
}

// StoreConfig selects the storage backend.
type StoreConfig struct {
	Backend string `toml:"backend"` // sqlite | memory | redis | postgres
	Key     string `toml:"key"`
}

// SQLiteConfig locates the local database. An empty path means the home
// directory.
type SQLiteConfig struct {
	Path string `toml:"path"`
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Prefix   string `toml:"prefix"`
}

type PostgresConfig struct {
	DSN   string `toml:"dsn"`
	Table string `toml:"table"`
}

// APIConfig is where `khata serve` listens.
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port.
func (a APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

type RemindConfig struct {
	CurrencySymbol string `toml:"currency_symbol"`
}

// Backend names accepted in [store] backend.
const (
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// DefaultConfig returns the configuration used when config.toml is absent.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			Backend: BackendSQLite,
			Key:     ledger.StorageKey,
		},
		Redis: RedisConfig{
			Addr:   "127.0.0.1:6379",
			Prefix: "khata:",
		},
		Postgres: PostgresConfig{
			Table: postgres.DefaultTable,
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8787,
		},
		Metrics: MetricsConfig{Enabled: true},
		Remind:  RemindConfig{CurrencySymbol: remind.DefaultSymbol},
	}
}

// ─── Loading ────────────────────────────────────────────────────────────────

// Home resolves the khata home directory: override, then $KHATA_HOME, then
// ~/.khata.
func Home(override string) string {
	if override != "" {
		return override
	}
	if env := os.Getenv("KHATA_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".khata")
}

// LoadEnvFile loads variables from a dotenv file without overriding ones
// already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads home/config.toml over DefaultConfig and then applies
// environment overrides. A missing file yields the defaults.
func Load(home string) (Config, error) {
	cfg := DefaultConfig()

	path := filepath.Join(home, ConfigFile)
	if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = home
	}
	return cfg, nil
}

// ApplyEnv overrides fields from KHATA_* variables looked up with getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("KHATA_STORE"); v != "" {
		c.Store.Backend = v
	}
	if v := getenv("KHATA_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := getenv("KHATA_POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := getenv("KHATA_API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("KHATA_API_PORT %q is not a valid port", v)
		}
		c.API.Port = port
	}
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	return nil
}

// Write encodes c to home/config.toml, creating home if needed.
func (c Config) Write(home string) error {
	if err := os.MkdirAll(home, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", home, err)
	}
	f, err := os.Create(filepath.Join(home, ConfigFile))
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
