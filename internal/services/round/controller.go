package round

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mcoot/minesgame/internal/dependencies/clock"
	"github.com/mcoot/minesgame/internal/ledger"
	"github.com/mcoot/minesgame/internal/model"
	"github.com/mcoot/minesgame/internal/services/grid"
	"github.com/mcoot/minesgame/internal/settlement"
	"github.com/mcoot/minesgame/internal/storage"
)

// Config holds the wagering limits
type Config struct {
	MinBet     model.Money
	MaxBet     model.Money
	MaxCashout model.Money
}

// DefaultConfig returns sensible defaults for wagering limits
func DefaultConfig() Config {
	return Config{
		MinBet:     10,      // 0.10
		MaxBet:     100000,  // 1000.00
		MaxCashout: 1000000, // 10000.00
	}
}

// Outcome is the result of a successful operation: the events to send to
// the player, in order, and whether the round has ended
type Outcome struct {
	Events   []model.Event
	Terminal bool
}

// IDGenerator returns a fresh round identifier
type IDGenerator func() model.RoundID

// NewRoundID returns a time-ordered UUID
func NewRoundID() model.RoundID {
	return model.RoundID(uuid.Must(uuid.NewV7()).String())
}

// Controller runs the round state machine: bet, reveals, and settlement
type Controller struct {
	storage storage.Storage
	grid    *grid.Service
	ledger  ledger.Ledger
	sink    settlement.Sink
	clock   clock.Clock
	newID   IDGenerator
	config  Config
	logger  *slog.Logger
}

// NewController creates a new round Controller
func NewController(
	storage storage.Storage,
	gridService *grid.Service,
	ledger ledger.Ledger,
	sink settlement.Sink,
	clock clock.Clock,
	newID IDGenerator,
	config Config,
	logger *slog.Logger,
) *Controller {
	if newID == nil {
		newID = NewRoundID
	}
	return &Controller{
		storage: storage,
		grid:    gridService,
		ledger:  ledger,
		sink:    sink,
		clock:   clock,
		newID:   newID,
		config:  config,
		logger:  logger.With(slog.String("component", "round")),
	}
}

// HasActiveRound reports whether the player has a round in progress
func (c *Controller) HasActiveRound(ctx context.Context, player model.PlayerID) (bool, error) {
	return c.storage.RoundExists(ctx, player)
}

// PlaceBet debits the stake and starts a new round
func (c *Controller) PlaceBet(ctx context.Context, account *model.PlayerAccount, bet model.Money, mines int) (*Outcome, error) {
	if bet == 0 || mines == 0 {
		return nil, model.ErrMissingBetDetails
	}
	if bet < 0 || mines < 1 {
		return nil, model.ErrCheatDetected
	}
	if account.Balance < bet {
		return nil, model.ErrInsufficientBalance
	}
	if bet < c.config.MinBet || bet > c.config.MaxBet {
		return nil, model.ErrInvalidBet
	}

	player := account.PlayerID()
	exists, err := c.storage.RoundExists(ctx, player)
	if err != nil {
		return nil, fmt.Errorf("check active round: %w", err)
	}
	if exists {
		return nil, model.ErrRoundInProgress
	}

	if err := c.grid.ValidateCoverage(mines); err != nil {
		return nil, err
	}
	playerGrid, err := c.grid.GenerateGrid(mines)
	if err != nil {
		return nil, err
	}
	firstMultiplier, err := c.grid.NextMultiplier(mines)
	if err != nil {
		return nil, err
	}

	roundID := c.newID()
	ref := model.BetRef{
		RoundID:    roundID,
		OperatorID: account.OperatorID,
		UserID:     account.UserID,
		Amount:     bet,
		Mines:      mines,
	}

	debit, err := c.ledger.Debit(ctx, ledger.DebitRequest{
		Player:       player,
		Amount:       bet,
		BetID:        ref.String(),
		RoundID:      roundID,
		ConnectionID: account.ConnectionID,
		ClientIP:     account.ClientIP,
	})
	if err != nil {
		c.logger.Warn("debit rejected",
			slog.String("player", player.String()),
			slog.String("bet_id", ref.String()),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %w", model.ErrBetCancelled, err)
	}

	account.Balance = debit.BalanceOr(account.Balance - bet)
	if err := c.storage.SavePlayer(ctx, account); err != nil {
		c.logger.Error("failed to save player balance",
			slog.String("player", player.String()),
			slog.String("error", err.Error()),
		)
	}

	round := &model.Round{
		ID:                roundID,
		Player:            player,
		BetRef:            ref,
		Bet:               bet,
		Mines:             mines,
		Grid:              playerGrid,
		Revealed:          []model.Coord{},
		RevealedCount:     mines,
		Bank:              bet,
		CurrentMultiplier: 1.00,
		NextMultiplier:    firstMultiplier,
		TxnID:             debit.TxnID,
		CreatedAt:         c.clock.Now(),
	}

	if err := c.storage.SaveRound(ctx, round); err != nil {
		c.logger.Error("failed to save round, refunding bet",
			slog.String("round_id", string(roundID)),
			slog.String("error", err.Error()),
		)
		c.refund(ctx, account, round)
		return nil, fmt.Errorf("save round: %w", err)
	}

	c.logger.Info("round started",
		slog.String("round_id", string(roundID)),
		slog.String("player", player.String()),
		slog.String("bet", bet.String()),
		slog.Int("mines", mines),
	)

	return &Outcome{Events: []model.Event{
		model.NewInfoEvent(account),
		{Name: model.EventGameStarted, Data: model.GameStartedPayload{MatchID: roundID, Bank: bet}},
	}}, nil
}

// refund returns the stake of a round that could not be stored
func (c *Controller) refund(ctx context.Context, account *model.PlayerAccount, round *model.Round) {
	result, err := c.ledger.Credit(ctx, ledger.CreditRequest{
		Player:       round.Player,
		Amount:       round.Bet,
		TxnID:        round.TxnID,
		BetID:        round.BetRef.String(),
		RoundID:      round.ID,
		ConnectionID: account.ConnectionID,
		ClientIP:     account.ClientIP,
	})
	if err != nil {
		c.recordCreditFailure(ctx, round, round.Bet, err)
		return
	}
	account.Balance = result.BalanceOr(account.Balance + round.Bet)
	if err := c.storage.SavePlayer(ctx, account); err != nil {
		c.logger.Error("failed to save player balance",
			slog.String("player", round.Player.String()),
			slog.String("error", err.Error()),
		)
	}
}

// Reveal uncovers the given cell of the player's active round
func (c *Controller) Reveal(ctx context.Context, account *model.PlayerAccount, cell model.Coord) (*Outcome, error) {
	round, err := c.storage.GetRound(ctx, account.PlayerID())
	if err != nil {
		return nil, err
	}
	return c.reveal(ctx, account, round, cell)
}

// RevealRandom uncovers a uniformly chosen unrevealed cell
func (c *Controller) RevealRandom(ctx context.Context, account *model.PlayerAccount) (*Outcome, error) {
	round, err := c.storage.GetRound(ctx, account.PlayerID())
	if err != nil {
		return nil, err
	}
	cell, ok := c.grid.RandomUnrevealed(round.Grid)
	if !ok {
		return nil, model.ErrCellRevealed
	}
	return c.reveal(ctx, account, round, cell)
}

func (c *Controller) reveal(ctx context.Context, account *model.PlayerAccount, round *model.Round, cell model.Coord) (*Outcome, error) {
	if !round.Grid.InBounds(cell) {
		return nil, model.ErrInvalidCell
	}
	target := round.Grid.At(cell)
	if target.Revealed {
		return nil, model.ErrCellRevealed
	}

	target.Revealed = true
	round.Revealed = append(round.Revealed, cell)
	round.RevealedCount++

	if target.IsMine {
		return c.lose(ctx, round, cell)
	}

	size := round.Grid.Size()
	if round.AllAccounted() {
		multiplier, err := c.grid.NextMultiplier(size * size)
		if err != nil {
			return nil, err
		}
		round.NextMultiplier = multiplier
		round.CurrentMultiplier = multiplier
		round.Bank = round.Bet.Mul(multiplier)
		c.logger.Info("grid cleared",
			slog.String("round_id", string(round.ID)),
			slog.String("bank", round.Bank.String()),
		)
		return c.settleWin(ctx, account, round)
	}

	next, err := c.grid.NextMultiplier(round.RevealedCount)
	if err != nil {
		return nil, err
	}
	round.Bank = round.Bet.Mul(round.NextMultiplier)
	round.CurrentMultiplier = round.NextMultiplier
	round.NextMultiplier = next

	if err := c.storage.SaveRound(ctx, round); err != nil {
		c.logger.Error("failed to save round",
			slog.String("round_id", string(round.ID)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("save round: %w", err)
	}

	return &Outcome{Events: []model.Event{{
		Name: model.EventRevealedCell,
		Data: model.RevealedCellPayload{
			MatchID:       round.ID,
			Bank:          round.Bank,
			RevealedCells: round.RevealedStrings(),
			Multiplier:    round.NextMultiplier,
		},
	}}}, nil
}

func (c *Controller) lose(ctx context.Context, round *model.Round, mine model.Coord) (*Outcome, error) {
	if err := c.evict(ctx, round); err != nil {
		return nil, err
	}
	c.insertSettlement(ctx, round, 0.00, model.SettlementLoss)

	c.logger.Info("mine hit",
		slog.String("round_id", string(round.ID)),
		slog.String("player", round.Player.String()),
		slog.String("bomb_pos", mine.String()),
	)

	return &Outcome{
		Events: []model.Event{{
			Name: model.EventMatchEnded,
			Data: model.MatchEndedPayload{
				MatchID:           "",
				BetID:             round.BetRef.String(),
				Bank:              0,
				Bet:               round.Bet,
				Multiplier:        0,
				PlayerGrid:        round.Grid,
				RevealedCells:     round.RevealedStrings(),
				RevealedCellCount: round.RevealedCount,
				BombPos:           mine.String(),
			},
		}},
		Terminal: true,
	}, nil
}

// CashOut pays out the bank of the player's active round and ends it
func (c *Controller) CashOut(ctx context.Context, account *model.PlayerAccount) (*Outcome, error) {
	round, err := c.storage.GetRound(ctx, account.PlayerID())
	if err != nil {
		return nil, err
	}
	if round.Bank <= 0 {
		return nil, model.ErrNonPositiveBank
	}
	return c.settleWin(ctx, account, round)
}

func (c *Controller) settleWin(ctx context.Context, account *model.PlayerAccount, round *model.Round) (*Outcome, error) {
	if err := c.evict(ctx, round); err != nil {
		return nil, err
	}

	payout := round.Bank.Min(c.config.MaxCashout)
	var events []model.Event

	result, err := c.ledger.Credit(ctx, ledger.CreditRequest{
		Player:       round.Player,
		Amount:       payout,
		TxnID:        round.TxnID,
		BetID:        round.BetRef.String(),
		RoundID:      round.ID,
		ConnectionID: account.ConnectionID,
		ClientIP:     account.ClientIP,
	})
	if err != nil {
		c.recordCreditFailure(ctx, round, payout, err)
	} else {
		account.Balance = result.BalanceOr(account.Balance + payout)
		if err := c.storage.SavePlayer(ctx, account); err != nil {
			c.logger.Error("failed to save player balance",
				slog.String("player", round.Player.String()),
				slog.String("error", err.Error()),
			)
		}
		events = append(events, model.NewInfoEvent(account))
	}

	c.insertSettlement(ctx, round, round.CurrentMultiplier, model.SettlementWin)

	c.logger.Info("round cashed out",
		slog.String("round_id", string(round.ID)),
		slog.String("player", round.Player.String()),
		slog.String("bank", round.Bank.String()),
		slog.String("payout", payout.String()),
	)

	events = append(events, model.Event{
		Name: model.EventCashOutComplete,
		Data: model.CashOutPayload{
			Payout:     payout,
			MatchID:    "",
			PlayerGrid: round.Grid,
			Multiplier: round.NextMultiplier,
		},
	})
	return &Outcome{Events: events, Terminal: true}, nil
}

// evict removes the round from the store so it cannot be settled twice
func (c *Controller) evict(ctx context.Context, round *model.Round) error {
	if err := c.storage.DeleteRound(ctx, round.Player); err != nil {
		c.logger.Error("failed to evict round",
			slog.String("round_id", string(round.ID)),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("evict round: %w", err)
	}
	return nil
}

func (c *Controller) insertSettlement(ctx context.Context, round *model.Round, multiplier float64, status model.SettlementStatus) {
	snapshot, err := json.Marshal(round)
	if err != nil {
		c.logger.Error("failed to encode round snapshot",
			slog.String("round_id", string(round.ID)),
			slog.String("error", err.Error()),
		)
	}

	err = c.sink.Insert(ctx, &model.Settlement{
		RoundID:       round.ID,
		BetID:         round.BetRef.String(),
		Snapshot:      snapshot,
		UserID:        round.Player.UserID,
		OperatorID:    round.Player.OperatorID,
		BetAmount:     round.Bet,
		MaxMultiplier: multiplier,
		Status:        status,
		CreatedAt:     c.clock.Now(),
	})
	if err != nil {
		c.logger.Error("failed to write settlement",
			slog.String("round_id", string(round.ID)),
			slog.String("status", string(status)),
			slog.String("error", err.Error()),
		)
	}
}

func (c *Controller) recordCreditFailure(ctx context.Context, round *model.Round, amount model.Money, cause error) {
	c.logger.Error("credit failed",
		slog.String("round_id", string(round.ID)),
		slog.String("player", round.Player.String()),
		slog.String("amount", amount.String()),
		slog.String("txn_id", round.TxnID),
		slog.String("error", cause.Error()),
	)

	err := c.sink.RecordCreditFailure(ctx, &model.CreditFailure{
		RoundID:    round.ID,
		BetID:      round.BetRef.String(),
		UserID:     round.Player.UserID,
		OperatorID: round.Player.OperatorID,
		Amount:     amount,
		TxnID:      round.TxnID,
		Reason:     fmt.Errorf("%w: %w", model.ErrCreditFailed, cause).Error(),
		CreatedAt:  c.clock.Now(),
	})
	if err != nil {
		c.logger.Error("failed to record credit failure",
			slog.String("round_id", string(round.ID)),
			slog.String("error", err.Error()),
		)
	}
}
