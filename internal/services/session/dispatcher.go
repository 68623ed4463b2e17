// Package session routes inbound player messages to the round controller.
// Every operation for a player runs under that player's gate so that at
// most one is in flight at a time, whichever connection it arrived on.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mcoot/minesgame/internal/model"
	"github.com/mcoot/minesgame/internal/protocol"
	"github.com/mcoot/minesgame/internal/services/gate"
	"github.com/mcoot/minesgame/internal/services/grid"
	"github.com/mcoot/minesgame/internal/services/idle"
	"github.com/mcoot/minesgame/internal/services/round"
	"github.com/mcoot/minesgame/internal/storage"
)

// DefaultAutoCashoutCountdown is the timer hint sent with the idle nudge
const DefaultAutoCashoutCountdown = 10

var errPanicked = errors.New("operation panicked")

// Conn is one client connection as seen by the dispatcher
type Conn interface {
	ID() model.ConnectionID
	Player() model.PlayerID
	Emit(event model.Event) error
}

// Config holds dispatcher settings
type Config struct {
	AutoCashoutCountdown int
}

// DefaultConfig returns sensible defaults for the dispatcher
func DefaultConfig() Config {
	return Config{AutoCashoutCountdown: DefaultAutoCashoutCountdown}
}

// Dispatcher is the single entry point for inbound messages and disconnects
type Dispatcher struct {
	storage storage.Storage
	rounds  *round.Controller
	grid    *grid.Service
	gate    *gate.Gate[model.PlayerID]
	timers  *idle.Registry
	config  Config
	logger  *slog.Logger
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(
	storage storage.Storage,
	rounds *round.Controller,
	gridService *grid.Service,
	gate *gate.Gate[model.PlayerID],
	timers *idle.Registry,
	config Config,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		storage: storage,
		rounds:  rounds,
		grid:    gridService,
		gate:    gate,
		timers:  timers,
		config:  config,
		logger:  logger.With(slog.String("component", "session")),
	}
}

// Connect registers the account for a new connection and sends the opening
// balance and multiplier table
func (d *Dispatcher) Connect(ctx context.Context, conn Conn, account *model.PlayerAccount) error {
	if err := d.storage.SavePlayer(ctx, account); err != nil {
		return fmt.Errorf("save player: %w", err)
	}

	d.logger.Info("player connected",
		slog.String("conn_id", string(conn.ID())),
		slog.String("player", conn.Player().String()),
		slog.String("balance", account.Balance.String()),
	)

	d.emit(conn, model.NewInfoEvent(account))
	d.emit(conn, model.Event{Name: model.EventMines, Data: d.grid.Table()})
	return nil
}

// Handle processes one inbound frame. Unknown commands are ignored and every
// rejection is reported to the connection as a single betError.
func (d *Dispatcher) Handle(ctx context.Context, conn Conn, raw string) {
	cmd, err := protocol.Parse(raw)
	if errors.Is(err, protocol.ErrUnknownCommand) {
		d.logger.Debug("ignoring unknown command",
			slog.String("conn_id", string(conn.ID())),
			slog.String("error", err.Error()),
		)
		return
	}
	if err != nil {
		d.reject(conn, raw, err)
		return
	}

	player := conn.Player()
	release, err := d.gate.Acquire(ctx, player)
	if err != nil {
		// Connection is going away while queued behind another operation
		d.logger.Debug("abandoned queued command",
			slog.String("conn_id", string(conn.ID())),
			slog.String("command", cmd.String()),
		)
		return
	}
	defer release()

	d.timers.Disarm(player)
	defer d.rearm(ctx, conn)

	out, err := d.run(ctx, conn, cmd)
	if err != nil {
		d.reject(conn, cmd.String(), err)
		return
	}
	for _, e := range out.Events {
		d.emit(conn, e)
	}
}

// Disconnect cashes out any active round for the connection's player and
// removes the directory entry
func (d *Dispatcher) Disconnect(ctx context.Context, conn Conn) {
	// Cleanup must finish even when the connection context is already done
	ctx = context.WithoutCancel(ctx)
	player := conn.Player()

	release, err := d.gate.Acquire(ctx, player)
	if err != nil {
		d.logger.Error("failed to acquire gate on disconnect",
			slog.String("conn_id", string(conn.ID())),
			slog.String("error", err.Error()),
		)
		return
	}
	defer release()

	d.timers.Disarm(player)

	account, err := d.storage.GetPlayer(ctx, conn.ID())
	if err != nil {
		d.logger.Warn("disconnect for unknown connection",
			slog.String("conn_id", string(conn.ID())),
			slog.String("error", err.Error()),
		)
		return
	}

	active, err := d.rounds.HasActiveRound(ctx, player)
	if err != nil {
		d.logger.Error("failed to check active round",
			slog.String("player", player.String()),
			slog.String("error", err.Error()),
		)
	}
	if active {
		if out, err := d.rounds.CashOut(ctx, account); err != nil {
			d.logger.Error("cash out on disconnect failed",
				slog.String("player", player.String()),
				slog.String("error", err.Error()),
			)
		} else {
			for _, e := range out.Events {
				d.emit(conn, e)
			}
		}
	}

	if err := d.storage.DeletePlayer(ctx, conn.ID()); err != nil {
		d.logger.Error("failed to delete player",
			slog.String("conn_id", string(conn.ID())),
			slog.String("error", err.Error()),
		)
	}

	d.logger.Info("player disconnected",
		slog.String("conn_id", string(conn.ID())),
		slog.String("player", player.String()),
		slog.Bool("cashed_out", active),
	)
}

// run executes a command with the gate held. A panic is converted to an error
// so the caller still releases the gate and answers the player.
func (d *Dispatcher) run(ctx context.Context, conn Conn, cmd protocol.Command) (out *round.Outcome, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("panic handling command",
				slog.String("conn_id", string(conn.ID())),
				slog.String("command", cmd.String()),
				slog.String("panic", fmt.Sprint(rec)),
			)
			out, err = nil, errPanicked
		}
	}()

	account, err := d.storage.GetPlayer(ctx, conn.ID())
	if err != nil {
		return nil, err
	}

	switch cmd.Verb {
	case protocol.VerbPlaceBet:
		return d.rounds.PlaceBet(ctx, account, cmd.Bet, cmd.Mines)
	case protocol.VerbRevealCell:
		return d.rounds.Reveal(ctx, account, cmd.Cell)
	case protocol.VerbRevealRandom:
		return d.rounds.RevealRandom(ctx, account)
	case protocol.VerbCashOut:
		return d.rounds.CashOut(ctx, account)
	default:
		return nil, fmt.Errorf("%w: %s", protocol.ErrUnknownCommand, cmd.Verb)
	}
}

// rearm restarts the idle timer if the player still has a round in progress
func (d *Dispatcher) rearm(ctx context.Context, conn Conn) {
	player := conn.Player()
	active, err := d.rounds.HasActiveRound(ctx, player)
	if err != nil {
		d.logger.Warn("failed to check active round",
			slog.String("player", player.String()),
			slog.String("error", err.Error()),
		)
		return
	}
	if !active {
		return
	}
	nudge := model.Event{
		Name: model.EventAutoCashout,
		Data: model.AutoCashoutPayload{Timer: d.config.AutoCashoutCountdown},
	}
	d.timers.Arm(player, func() { d.emit(conn, nudge) })
}

func (d *Dispatcher) reject(conn Conn, command string, err error) {
	message, expected := MessageFor(err)
	level := slog.LevelInfo
	if !expected {
		level = slog.LevelError
	}
	d.logger.Log(context.Background(), level, "command rejected",
		slog.String("conn_id", string(conn.ID())),
		slog.String("command", command),
		slog.String("message", message),
		slog.String("error", err.Error()),
	)
	d.emit(conn, model.NewBetErrorEvent(message))
}

func (d *Dispatcher) emit(conn Conn, event model.Event) {
	if err := conn.Emit(event); err != nil {
		d.logger.Debug("dropped event",
			slog.String("conn_id", string(conn.ID())),
			slog.String("event", string(event.Name)),
			slog.String("error", err.Error()),
		)
	}
}
