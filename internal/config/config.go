// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends selectable through STORE.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config is the full service configuration.
type Config struct {
	Port            string        `env:"PORT"              envDefault:"8080"`
	Store           string        `env:"STORE"             envDefault:"postgres"`
	LogLevel        string        `env:"LOG_LEVEL"         envDefault:"info"`
	NotifyTimeout   time.Duration `env:"NOTIFY_TIMEOUT"    envDefault:"5s"`
	VerifyCacheSize int           `env:"VERIFY_CACHE_SIZE" envDefault:"1024"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"  envDefault:"10s"`

	DB Database `envPrefix:"DB_"`
}

// Database holds PostgreSQL connection settings. The defaults suit local
// development.
type Database struct {
	Host            string        `env:"HOST"              envDefault:"localhost"`
	Port            string        `env:"PORT"              envDefault:"5432"`
	User            string        `env:"USER"              envDefault:"postgres"`
	Password        string        `env:"PASSWORD"          envDefault:"postgres"`
	Name            string        `env:"NAME"              envDefault:"conference"`
	SSLMode         string        `env:"SSLMODE"           envDefault:"disable"`
	MaxConns        int32         `env:"MAX_CONNS"         envDefault:"20"`
	MinConns        int32         `env:"MIN_CONNS"         envDefault:"2"`
	ConnectAttempts int           `env:"CONNECT_ATTEMPTS"  envDefault:"5"`
	RetryDelay      time.Duration `env:"RETRY_DELAY"       envDefault:"2s"`
}

// Load parses the environment into a Config and checks the values that have
// a closed set of options.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
	switch cfg.Store {
	case StorePostgres, StoreMemory:
	default:
		return Config{}, fmt.Errorf("unknown STORE %q (want %s or %s)", cfg.Store, StorePostgres, StoreMemory)
	}
	if cfg.VerifyCacheSize <= 0 {
		return Config{}, fmt.Errorf("VERIFY_CACHE_SIZE must be positive, got %d", cfg.VerifyCacheSize)
	}
	if cfg.DB.ConnectAttempts < 1 {
		cfg.DB.ConnectAttempts = 1
	}
	return cfg, nil
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// DSN builds a libpq-compatible connection string.
func (d Database) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}
