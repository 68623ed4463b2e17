package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcoot/minesgame/internal/api"
	"github.com/mcoot/minesgame/internal/config"
	"github.com/mcoot/minesgame/internal/factory"
)

func main() {
	// Load configuration before the logger so the level can be configured
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Create application factory
	app, err := factory.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	router := api.NewRouter(api.RouterConfig{
		Logger:          logger,
		GridService:     app.GridService,
		Settlement:      app.Settlement,
		Authenticator:   app.Authenticator,
		WebSocket:       app.WSHandler,
		AdminAPIKeyHash: cfg.AdminAPIKeyHash,
	})

	// Create server
	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.HTTPHost
	serverConfig.Port = cfg.HTTPPort
	server := api.NewServer(router, serverConfig, logger)
	if err := server.Listen(); err != nil {
		logger.Error("failed to bind", slog.String("error", err.Error()))
		_ = app.Close(context.Background())
		os.Exit(1)
	}

	app.Reconciler.Start()

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.Storage),
		slog.String("ledger", cfg.Ledger),
		slog.String("settlement", cfg.Settlement),
	)

	// Wait for shutdown or error
	exitCode := 0
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			exitCode = 1
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			exitCode = 1
		}
	}

	// Open websocket connections are not tracked by the HTTP server; closing
	// the app drains them so their rounds cash out before backends close.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer shutdownCancel()
	if err := app.Close(shutdownCtx); err != nil {
		logger.Error("failed to close application", slog.String("error", err.Error()))
		exitCode = 1
	}

	logger.Info("server stopped")
	os.Exit(exitCode)
}
