package factory

import (
	"time"

	"github.com/mcoot/minesgame/internal/config"
	"github.com/mcoot/minesgame/internal/dependencies/mocks"
	"github.com/mcoot/minesgame/internal/ledger"
	"github.com/mcoot/minesgame/internal/model"
	"github.com/mcoot/minesgame/internal/services/grid"
	"github.com/mcoot/minesgame/internal/settlement"
	"github.com/mcoot/minesgame/internal/storage/memory"
	"github.com/mcoot/minesgame/internal/testutil"
)

// TestJWTSecret signs tokens issued by TestApp.Authenticator
const TestJWTSecret = "test-secret"

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom

	// In-memory backends for inspection
	MemoryStorage    *memory.Storage
	MemoryLedger     *ledger.Memory
	MemorySettlement *settlement.Memory
}

// TestConfig returns the configuration NewTestApp uses
func TestConfig() config.Config {
	return config.Config{
		Storage:              config.BackendMemory,
		Ledger:               config.BackendMemory,
		Settlement:           config.BackendMemory,
		DevBalance:           100000,
		GridSize:             grid.DefaultSize,
		MinBet:               10,
		MaxBet:               100000,
		MaxCashout:           1000000,
		IdleDelay:            20 * time.Second,
		AutoCashoutCountdown: 10,
		JWTSecret:            TestJWTSecret,
		TokenTTL:             time.Hour,
	}
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	return NewTestAppWithConfig(TestConfig())
}

// NewTestAppWithConfig is NewTestApp with custom rules such as bet limits
func NewTestAppWithConfig(cfg config.Config) *TestApp {
	store := memory.New()
	ldg := ledger.NewMemory(cfg.DevBalance)
	sink := settlement.NewMemory()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	app, err := newWithDependencies(store, ldg, sink, mockClock, mockRandom, cfg, testutil.NopLogger())
	if err != nil {
		panic(err)
	}

	return &TestApp{
		App:              app,
		MockClock:        mockClock,
		MockRandom:       mockRandom,
		MemoryStorage:    store,
		MemoryLedger:     ldg,
		MemorySettlement: sink,
	}
}

// QueueMines fixes where the next round's mines land
func (t *TestApp) QueueMines(cells ...model.Coord) {
	pairs := make([][2]int, len(cells))
	for i, c := range cells {
		pairs[i] = [2]int{c.Row, c.Col}
	}
	t.MockRandom.QueueCells(t.GridService.Size(), pairs...)
}
