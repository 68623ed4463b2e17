// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/mcoot/minesgame/internal/model"
	"github.com/mcoot/minesgame/internal/services/grid"
)

// Backend names shared by the storage, ledger and settlement selectors
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendHTTP     = "http"
	BackendPostgres = "postgres"
)

// Config is the complete server configuration
type Config struct {
	LogLevel string `env:"MINES_LOG_LEVEL" envDefault:"info"`

	HTTPHost string `env:"MINES_HTTP_HOST"`
	HTTPPort int    `env:"MINES_HTTP_PORT" envDefault:"8080"`

	// Session store
	Storage  string        `env:"MINES_STORAGE" envDefault:"memory"`
	RedisURL string        `env:"MINES_REDIS_URL" envDefault:"redis://localhost:6379"`
	RoundTTL time.Duration `env:"MINES_ROUND_TTL" envDefault:"1h"`

	// Ledger
	Ledger        string        `env:"MINES_LEDGER" envDefault:"memory"`
	LedgerURL     string        `env:"MINES_LEDGER_URL"`
	LedgerAPIKey  string        `env:"MINES_LEDGER_API_KEY"`
	LedgerTimeout time.Duration `env:"MINES_LEDGER_TIMEOUT" envDefault:"10s"`
	DevBalance    model.Money   `env:"MINES_DEV_BALANCE" envDefault:"1000.00"`

	// Settlement records
	Settlement        string `env:"MINES_SETTLEMENT" envDefault:"memory"`
	DatabaseURL       string `env:"MINES_DATABASE_URL"`
	ReconcileSchedule string `env:"MINES_RECONCILE_SCHEDULE" envDefault:"@every 10m"`

	// Game rules
	GridSize             int           `env:"MINES_GRID_SIZE" envDefault:"5"`
	MultiplierTable      grid.Table    `env:"MINES_MULTIPLIER_TABLE"`
	MinBet               model.Money   `env:"MINES_MIN_BET" envDefault:"0.10"`
	MaxBet               model.Money   `env:"MINES_MAX_BET" envDefault:"1000.00"`
	MaxCashout           model.Money   `env:"MINES_MAX_CASHOUT" envDefault:"10000.00"`
	IdleDelay            time.Duration `env:"MINES_IDLE_DELAY" envDefault:"20s"`
	AutoCashoutCountdown int           `env:"MINES_AUTO_CASHOUT_TIMER" envDefault:"10"`

	// Connection handshake
	JWTSecret      string        `env:"MINES_JWT_SECRET"`
	TokenTTL       time.Duration `env:"MINES_TOKEN_TTL" envDefault:"24h"`
	AllowedOrigins []string      `env:"MINES_ALLOWED_ORIGINS" envSeparator:","`

	// AdminAPIKeyHash is the bcrypt hash of the admin API key
	AdminAPIKeyHash string `env:"MINES_ADMIN_API_KEY_HASH"`
}

// Load reads the given .env files (".env" when none are named), then parses
// the environment. Missing .env files are not an error.
func Load(dotenvFiles ...string) (Config, error) {
	if err := godotenv.Load(dotenvFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse builds a Config from the current environment
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that cannot be expressed as env defaults
func (c Config) Validate() error {
	var errs []error

	if c.JWTSecret == "" {
		errs = append(errs, errors.New("MINES_JWT_SECRET is required"))
	}
	if !oneOf(c.Storage, BackendMemory, BackendRedis) {
		errs = append(errs, fmt.Errorf("MINES_STORAGE must be memory or redis, got %q", c.Storage))
	}
	if !oneOf(c.Ledger, BackendMemory, BackendHTTP) {
		errs = append(errs, fmt.Errorf("MINES_LEDGER must be memory or http, got %q", c.Ledger))
	}
	if c.Ledger == BackendHTTP && c.LedgerURL == "" {
		errs = append(errs, errors.New("MINES_LEDGER_URL is required when MINES_LEDGER=http"))
	}
	if !oneOf(c.Settlement, BackendMemory, BackendPostgres) {
		errs = append(errs, fmt.Errorf("MINES_SETTLEMENT must be memory or postgres, got %q", c.Settlement))
	}
	if c.Settlement == BackendPostgres && c.DatabaseURL == "" {
		errs = append(errs, errors.New("MINES_DATABASE_URL is required when MINES_SETTLEMENT=postgres"))
	}
	if c.GridSize < 2 {
		errs = append(errs, fmt.Errorf("MINES_GRID_SIZE must be at least 2, got %d", c.GridSize))
	} else {
		table := c.Multipliers()
		if table == nil {
			table = grid.DefaultTable()
		}
		if k, missing := grid.MissingKey(table, c.GridSize); missing {
			errs = append(errs, fmt.Errorf("multiplier table has no entry for %d cells on a %dx%d grid", k, c.GridSize, c.GridSize))
		}
	}
	if c.MinBet <= 0 || c.MaxBet < c.MinBet {
		errs = append(errs, fmt.Errorf("bet limits are inconsistent: min %s, max %s", c.MinBet, c.MaxBet))
	}
	if c.AdminAPIKeyHash != "" && !strings.HasPrefix(c.AdminAPIKeyHash, "$2") {
		errs = append(errs, errors.New("MINES_ADMIN_API_KEY_HASH must be a bcrypt hash"))
	}
	if c.MaxCashout <= 0 {
		errs = append(errs, errors.New("MINES_MAX_CASHOUT must be positive"))
	}

	return errors.Join(errs...)
}

// SlogLevel maps LogLevel to a slog level, defaulting to info
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Multipliers returns the configured table, or nil to use the built-in one
func (c Config) Multipliers() model.MultiplierTable {
	if len(c.MultiplierTable) == 0 {
		return nil
	}
	return model.MultiplierTable(c.MultiplierTable)
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}
