package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/minesgame/internal/config"
	"github.com/mcoot/minesgame/internal/dependencies/clock"
	"github.com/mcoot/minesgame/internal/dependencies/random"
	"github.com/mcoot/minesgame/internal/ledger"
	"github.com/mcoot/minesgame/internal/model"
	"github.com/mcoot/minesgame/internal/services/gate"
	"github.com/mcoot/minesgame/internal/services/grid"
	"github.com/mcoot/minesgame/internal/services/idle"
	"github.com/mcoot/minesgame/internal/services/round"
	"github.com/mcoot/minesgame/internal/services/session"
	"github.com/mcoot/minesgame/internal/settlement"
	"github.com/mcoot/minesgame/internal/storage"
	"github.com/mcoot/minesgame/internal/storage/memory"
	redisstorage "github.com/mcoot/minesgame/internal/storage/redis"
	"github.com/mcoot/minesgame/internal/transport/ws"
)

// App contains all wired application components
type App struct {
	// Backends
	Storage    storage.Storage
	Ledger     ledger.Ledger
	Settlement settlement.Sink

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	GridService     *grid.Service
	RoundController *round.Controller
	Gate            *gate.Gate[model.PlayerID]
	IdleTimers      *idle.Registry
	Dispatcher      *session.Dispatcher
	Reconciler      *settlement.Reconciler

	// Transport
	Authenticator *ws.Authenticator
	WSHandler     *ws.Handler

	closers []io.Closer
}

// New creates a new application with all dependencies wired from cfg
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var closers []io.Closer
	fail := func(err error) (*App, error) {
		for _, c := range closers {
			_ = c.Close()
		}
		return nil, err
	}

	var store storage.Storage
	switch cfg.Storage {
	case config.BackendMemory, "":
		store = memory.New()
	case config.BackendRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		redisCfg.RoundTTL = cfg.RoundTTL
		redisStore, err := redisstorage.New(redisCfg)
		if err != nil {
			return fail(fmt.Errorf("open redis storage: %w", err))
		}
		closers = append(closers, redisStore)
		store = redisStore
	default:
		return fail(fmt.Errorf("invalid storage type %q", cfg.Storage))
	}

	var ldg ledger.Ledger
	switch cfg.Ledger {
	case config.BackendMemory, "":
		logger.Warn("using in-memory ledger, balances are not persisted")
		ldg = ledger.NewMemory(cfg.DevBalance)
	case config.BackendHTTP:
		httpCfg := ledger.DefaultHTTPConfig()
		httpCfg.BaseURL = cfg.LedgerURL
		httpCfg.APIKey = cfg.LedgerAPIKey
		httpCfg.Timeout = cfg.LedgerTimeout
		ldg = ledger.NewHTTPClient(httpCfg)
	default:
		return fail(fmt.Errorf("invalid ledger type %q", cfg.Ledger))
	}

	var sink settlement.Sink
	switch cfg.Settlement {
	case config.BackendMemory, "":
		sink = settlement.NewMemory()
	case config.BackendPostgres:
		db, err := settlement.OpenPostgres(cfg.DatabaseURL, logger)
		if err != nil {
			return fail(err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fail(fmt.Errorf("settlement database handle: %w", err))
		}
		closers = append(closers, sqlDB)
		repo := settlement.NewRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			return fail(err)
		}
		sink = repo
	default:
		return fail(fmt.Errorf("invalid settlement type %q", cfg.Settlement))
	}

	app, err := newWithDependencies(store, ldg, sink, clock.New(), random.New(), cfg, logger)
	if err != nil {
		return fail(err)
	}
	app.closers = closers
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	ldg ledger.Ledger,
	sink settlement.Sink,
	clk clock.Clock,
	rnd random.Random,
	cfg config.Config,
	logger *slog.Logger,
) (*App, error) {
	gridService := grid.New(cfg.GridSize, cfg.Multipliers(), rnd, logger)

	roundCfg := round.Config{
		MinBet:     cfg.MinBet,
		MaxBet:     cfg.MaxBet,
		MaxCashout: cfg.MaxCashout,
	}
	rounds := round.NewController(store, gridService, ldg, sink, clk, nil, roundCfg, logger)

	playerGate := gate.New[model.PlayerID]()
	timers := idle.New(clk, cfg.IdleDelay, logger)

	sessionCfg := session.DefaultConfig()
	if cfg.AutoCashoutCountdown > 0 {
		sessionCfg.AutoCashoutCountdown = cfg.AutoCashoutCountdown
	}
	dispatcher := session.NewDispatcher(store, rounds, gridService, playerGate, timers, sessionCfg, logger)

	schedule := cfg.ReconcileSchedule
	if schedule == "" {
		schedule = settlement.DefaultReconcileSchedule
	}
	reconciler, err := settlement.NewReconciler(sink, schedule, logger)
	if err != nil {
		return nil, err
	}

	auth := ws.NewAuthenticator(cfg.JWTSecret, cfg.TokenTTL)
	wsCfg := ws.DefaultConfig()
	wsCfg.AllowedOrigins = cfg.AllowedOrigins
	wsHandler := ws.NewHandler(auth, ldg, dispatcher, wsCfg, logger)

	return &App{
		Storage:         store,
		Ledger:          ldg,
		Settlement:      sink,
		Clock:           clk,
		Random:          rnd,
		GridService:     gridService,
		RoundController: rounds,
		Gate:            playerGate,
		IdleTimers:      timers,
		Dispatcher:      dispatcher,
		Reconciler:      reconciler,
		Authenticator:   auth,
		WSHandler:       wsHandler,
	}, nil
}

// Close drops live connections, waits for their rounds to settle, then stops
// background work and releases backends
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.WSHandler.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("drain connections: %w", err))
	}
	a.Reconciler.Stop()
	a.IdleTimers.Stop()

	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
