package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/minesgame/internal/api/handler"
	"github.com/mcoot/minesgame/internal/api/middleware"
	"github.com/mcoot/minesgame/internal/services/grid"
	"github.com/mcoot/minesgame/internal/settlement"
	"github.com/mcoot/minesgame/internal/transport/ws"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger          *slog.Logger
	GridService     *grid.Service
	Settlement      settlement.Sink
	Authenticator   *ws.Authenticator
	// WebSocket serves the game connection at /ws. Optional.
	WebSocket       *ws.Handler
	// AdminAPIKeyHash is the bcrypt hash guarding /api/v1/admin. Empty
	// disables those routes.
	AdminAPIKeyHash string
}

// NewRouter creates a new router with the websocket endpoint and all API routes
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	var connections func() int
	if cfg.WebSocket != nil {
		connections = cfg.WebSocket.ConnectionCount
	}

	// Create handlers
	metaHandler := handler.NewMetaHandler(cfg.GridService, connections)
	adminHandler := handler.NewAdminHandler(cfg.Settlement, cfg.Authenticator, cfg.Logger)

	// Create middleware
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// Game connections
	if cfg.WebSocket != nil {
		r.Handle("/ws", loggingMiddleware(cfg.WebSocket)).Methods(http.MethodGet)
	}

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	api.HandleFunc("/health", metaHandler.Health).Methods(http.MethodGet)
	api.HandleFunc("/multipliers", metaHandler.Multipliers).Methods(http.MethodGet)

	// Admin routes
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.AdminKey(cfg.AdminAPIKeyHash))
	admin.HandleFunc("/credit-failures", adminHandler.ListCreditFailures).Methods(http.MethodGet)
	admin.HandleFunc("/credit-failures/{round_id}/resolve", adminHandler.ResolveCreditFailure).Methods(http.MethodPost)
	admin.HandleFunc("/tokens", adminHandler.IssueToken).Methods(http.MethodPost)

	return r
}
