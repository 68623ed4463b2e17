package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/minesgame/internal/model"
	"github.com/mcoot/minesgame/internal/services/grid"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("MINES_JWT_SECRET", "secret")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, BackendMemory, cfg.Storage)
	assert.Equal(t, BackendMemory, cfg.Ledger)
	assert.Equal(t, BackendMemory, cfg.Settlement)
	assert.Equal(t, time.Hour, cfg.RoundTTL)
	assert.Equal(t, 5, cfg.GridSize)
	assert.Equal(t, model.Money(10), cfg.MinBet)
	assert.Equal(t, model.Money(100000), cfg.MaxBet)
	assert.Equal(t, model.Money(1000000), cfg.MaxCashout)
	assert.Equal(t, model.Money(100000), cfg.DevBalance)
	assert.Equal(t, 20*time.Second, cfg.IdleDelay)
	assert.Equal(t, 10, cfg.AutoCashoutCountdown)
	assert.Nil(t, cfg.Multipliers())
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("MINES_JWT_SECRET", "secret")
	t.Setenv("MINES_STORAGE", "redis")
	t.Setenv("MINES_MAX_CASHOUT", "20")
	t.Setenv("MINES_GRID_SIZE", "2")
	t.Setenv("MINES_MULTIPLIER_TABLE", `{"1": 1.5, "2": 2.5, "3": 3.5, "4": 4.5}`)
	t.Setenv("MINES_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("MINES_LOG_LEVEL", "debug")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, BackendRedis, cfg.Storage)
	assert.Equal(t, model.Money(2000), cfg.MaxCashout)
	assert.Equal(t, 2, cfg.GridSize)
	assert.Equal(t, model.MultiplierTable{1: 1.5, 2: 2.5, 3: 3.5, 4: 4.5}, cfg.Multipliers())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestParseRejectsInvalidValues(t *testing.T) {
	t.Setenv("MINES_JWT_SECRET", "secret")
	t.Setenv("MINES_MIN_BET", "not money")

	_, err := Parse()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("MINES_JWT_SECRET", "secret")
	base, err := Parse()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "missing secret", mutate: func(c *Config) { c.JWTSecret = "" }},
		{name: "unknown storage", mutate: func(c *Config) { c.Storage = "etcd" }},
		{name: "http ledger without url", mutate: func(c *Config) { c.Ledger = BackendHTTP }},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Settlement = BackendPostgres }},
		{name: "tiny grid", mutate: func(c *Config) { c.GridSize = 1 }},
		{name: "grid larger than default table", mutate: func(c *Config) { c.GridSize = 6 }},
		{name: "table with gaps", mutate: func(c *Config) { c.MultiplierTable = grid.Table{1: 1.5, 3: 2.5} }},
		{name: "inverted bet limits", mutate: func(c *Config) { c.MaxBet = c.MinBet - 1 }},
		{name: "no cashout", mutate: func(c *Config) { c.MaxCashout = 0 }},
		{name: "plain admin key", mutate: func(c *Config) { c.AdminAPIKeyHash = "hunter2" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadReadsDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("MINES_JWT_SECRET=from-file\nMINES_GRID_SIZE=4\n"), 0o600))

	// godotenv never overrides variables that are already set
	t.Setenv("MINES_JWT_SECRET", "")
	require.NoError(t, os.Unsetenv("MINES_JWT_SECRET"))
	t.Setenv("MINES_GRID_SIZE", "")
	require.NoError(t, os.Unsetenv("MINES_GRID_SIZE"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, 4, cfg.GridSize)
}

func TestLoadIgnoresMissingDotenv(t *testing.T) {
	t.Setenv("MINES_JWT_SECRET", "secret")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestParseRejectsUncoveredGrid(t *testing.T) {
	t.Setenv("MINES_JWT_SECRET", "secret")
	t.Setenv("MINES_GRID_SIZE", "6")

	_, err := Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no entry for 26 cells")
}
