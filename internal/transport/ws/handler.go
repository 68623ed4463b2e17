// Package ws adapts websocket connections to the session dispatcher.
package ws

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mcoot/minesgame/internal/ledger"
	"github.com/mcoot/minesgame/internal/model"
	"github.com/mcoot/minesgame/internal/services/session"
)

// Config holds websocket transport settings
type Config struct {
	SendBuffer     int
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults for the websocket transport
func DefaultConfig() Config {
	return Config{
		SendBuffer:     256,
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     54 * time.Second,
		MaxMessageSize: 4096,
	}
}

// Handler upgrades authenticated requests and runs one connection per request
type Handler struct {
	auth       *Authenticator
	ledger     ledger.Ledger
	dispatcher *session.Dispatcher
	upgrader   websocket.Upgrader
	config     Config
	logger     *slog.Logger

	mu      sync.Mutex
	conns   map[model.ConnectionID]*Connection
	closing bool
	active  sync.WaitGroup
}

// NewHandler creates a websocket handler
func NewHandler(auth *Authenticator, ledger ledger.Ledger, dispatcher *session.Dispatcher, config Config, logger *slog.Logger) *Handler {
	h := &Handler{
		auth:       auth,
		ledger:     ledger,
		dispatcher: dispatcher,
		config:     config,
		logger:     logger.With(slog.String("component", "ws")),
		conns:      make(map[model.ConnectionID]*Connection),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.config.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range h.config.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// ServeHTTP authenticates, upgrades, and blocks until the connection ends
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	player, err := h.auth.Verify(tokenFromRequest(r))
	if err != nil {
		h.logger.Info("rejected handshake", slog.String("error", err.Error()))
		http.Error(w, "Invalid Player Details", http.StatusUnauthorized)
		return
	}

	balance, err := h.ledger.Balance(r.Context(), player)
	if err != nil {
		h.logger.Error("failed to fetch balance",
			slog.String("player", player.String()),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Balance unavailable", http.StatusBadGateway)
		return
	}

	if !h.admit() {
		http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer h.active.Done()

	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	conn := newConnection(model.ConnectionID(uuid.NewString()), player, wsConn, h.config, h.logger)
	go conn.WritePump()
	if !h.track(conn) {
		conn.Close(ReasonShutdown, nil)
		return
	}
	defer h.untrack(conn)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	account := &model.PlayerAccount{
		ConnectionID: conn.ID(),
		OperatorID:   player.OperatorID,
		UserID:       player.UserID,
		Balance:      balance,
		ClientIP:     clientIP(r),
	}
	if err := h.dispatcher.Connect(ctx, conn, account); err != nil {
		h.logger.Error("failed to register connection",
			slog.String("player", player.String()),
			slog.String("error", err.Error()),
		)
		conn.Close(ReasonShutdown, err)
		return
	}

	conn.ReadPump(func(raw string) {
		h.dispatcher.Handle(ctx, conn, raw)
	})

	// Stop any command still queued on the gate before cleaning up
	cancel()
	conn.Close(ReasonClientGone, nil)
	h.dispatcher.Disconnect(ctx, conn)
}

// Shutdown closes every open connection and waits, until ctx is done, for
// each connection's disconnect path to finish.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closing = true
	conns := make([]*Connection, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.Close(ReasonShutdown, nil)
	}

	done := make(chan struct{})
	go func() {
		h.active.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ConnectionCount returns the number of open connections
func (h *Handler) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// admit registers an in-flight request unless Shutdown has started
func (h *Handler) admit() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return false
	}
	h.active.Add(1)
	return true
}

func (h *Handler) track(c *Connection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return false
	}
	h.conns[c.ID()] = c
	return true
}

func (h *Handler) untrack(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c.ID())
}

func tokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
