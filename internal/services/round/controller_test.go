package round

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/minesgame/internal/dependencies/mocks"
	"github.com/mcoot/minesgame/internal/ledger"
	"github.com/mcoot/minesgame/internal/model"
	"github.com/mcoot/minesgame/internal/services/grid"
	"github.com/mcoot/minesgame/internal/settlement"
	"github.com/mcoot/minesgame/internal/storage/memory"
	"github.com/mcoot/minesgame/internal/testutil"
)

type ControllerSuite struct {
	suite.Suite
	storage    *memory.Storage
	random     *mocks.MockRandom
	clock      *mocks.MockClock
	ledger     *ledger.Memory
	sink       *settlement.Memory
	controller *Controller
	account    *model.PlayerAccount
	ctx        context.Context
	nextID     int
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.storage = memory.New()
	s.random = mocks.NewMockRandom()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.ledger = ledger.NewMemory(0)
	s.sink = settlement.NewMemory()
	s.ctx = context.Background()
	s.nextID = 0

	gridService := grid.New(5, nil, s.random, testutil.NopLogger())
	cfg := Config{MinBet: 10, MaxBet: 100000, MaxCashout: 2000}
	ids := func() model.RoundID {
		s.nextID++
		return model.RoundID(fmt.Sprintf("round-%d", s.nextID))
	}
	s.controller = NewController(s.storage, gridService, s.ledger, s.sink, s.clock, ids, cfg, testutil.NopLogger())

	s.account = &model.PlayerAccount{ConnectionID: "conn-1", OperatorID: "op", UserID: "u1", Balance: 5000}
	s.ledger.SetBalance(s.account.PlayerID(), 5000)
	s.Require().NoError(s.storage.SavePlayer(s.ctx, s.account))
}

// placeBet starts a round with mines at the given cells
func (s *ControllerSuite) placeBet(bet model.Money, mines ...[2]int) *Outcome {
	s.random.QueueCells(5, mines...)
	out, err := s.controller.PlaceBet(s.ctx, s.account, bet, len(mines))
	s.Require().NoError(err)
	return out
}

func (s *ControllerSuite) activeRound() *model.Round {
	round, err := s.storage.GetRound(s.ctx, s.account.PlayerID())
	s.Require().NoError(err)
	return round
}

func (s *ControllerSuite) eventNames(out *Outcome) []model.EventName {
	names := make([]model.EventName, len(out.Events))
	for i, e := range out.Events {
		names[i] = e.Name
	}
	return names
}

// PlaceBet tests

func (s *ControllerSuite) TestPlaceBetStartsRound() {
	out := s.placeBet(1000, [2]int{0, 0}, [2]int{0, 1}, [2]int{0, 2})

	s.False(out.Terminal)
	s.Equal([]model.EventName{model.EventInfo, model.EventGameStarted}, s.eventNames(out))
	s.Equal(model.InfoPayload{UserID: "u1", OperatorID: "op", Balance: 4000}, out.Events[0].Data)
	s.Equal(model.GameStartedPayload{MatchID: "round-1", Bank: 1000}, out.Events[1].Data)

	round := s.activeRound()
	s.Equal(model.Money(1000), round.Bank)
	s.Equal(model.Money(1000), round.Bet)
	s.Equal(3, round.RevealedCount)
	s.Empty(round.Revealed)
	s.Equal(1.00, round.CurrentMultiplier)
	s.Equal(1.10, round.NextMultiplier)
	s.Equal(3, round.Grid.CountMines())
	s.True(round.Grid[0][2].IsMine)
	s.NotEmpty(round.TxnID)
	s.Equal("BT:round-1:op:u1:10.00:3", round.BetRef.String())

	stored, err := s.storage.GetPlayer(s.ctx, "conn-1")
	s.Require().NoError(err)
	s.Equal(model.Money(4000), stored.Balance)

	debits := s.ledger.Debits()
	s.Require().Len(debits, 1)
	s.Equal("BT:round-1:op:u1:10.00:3", debits[0].BetID)
}

func (s *ControllerSuite) TestPlaceBetValidation() {
	tests := []struct {
		name    string
		bet     model.Money
		mines   int
		wantErr error
	}{
		{name: "zero bet", bet: 0, mines: 3, wantErr: model.ErrMissingBetDetails},
		{name: "zero mines", bet: 1000, mines: 0, wantErr: model.ErrMissingBetDetails},
		{name: "negative bet", bet: -100, mines: 3, wantErr: model.ErrCheatDetected},
		{name: "negative mines", bet: 1000, mines: -1, wantErr: model.ErrCheatDetected},
		{name: "more than balance", bet: 6000, mines: 3, wantErr: model.ErrInsufficientBalance},
		{name: "below minimum", bet: 5, mines: 3, wantErr: model.ErrInvalidBet},
		{name: "too many mines", bet: 1000, mines: 25, wantErr: model.ErrInvalidMineCount},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.controller.PlaceBet(s.ctx, s.account, tt.bet, tt.mines)
			s.ErrorIs(err, tt.wantErr)
		})
	}

	s.Empty(s.ledger.Debits())
	s.Equal(0, s.storage.RoundCount())
}

func (s *ControllerSuite) TestPlaceBetAboveMaximum() {
	s.account.Balance = 500000
	_, err := s.controller.PlaceBet(s.ctx, s.account, 100001, 3)
	s.ErrorIs(err, model.ErrInvalidBet)
}

func (s *ControllerSuite) TestPlaceBetRejectsSecondRound() {
	s.placeBet(1000, [2]int{0, 0})

	_, err := s.controller.PlaceBet(s.ctx, s.account, 1000, 1)
	s.ErrorIs(err, model.ErrRoundInProgress)
	s.Len(s.ledger.Debits(), 1)
	s.Equal(model.RoundID("round-1"), s.activeRound().ID)
}

func (s *ControllerSuite) TestPlaceBetUpstreamRejected() {
	s.ledger.FailDebits(true)

	_, err := s.controller.PlaceBet(s.ctx, s.account, 1000, 3)
	s.ErrorIs(err, model.ErrBetCancelled)
	s.ErrorIs(err, model.ErrUpstreamRejected)

	exists, _ := s.controller.HasActiveRound(s.ctx, s.account.PlayerID())
	s.False(exists)
	s.Equal(model.Money(5000), s.account.Balance)
}

type failingRoundStore struct {
	*memory.Storage
}

func (f failingRoundStore) SaveRound(ctx context.Context, round *model.Round) error {
	return errors.New("cache unavailable")
}

func (s *ControllerSuite) TestPlaceBetRefundsWhenRoundCannotBeStored() {
	store := failingRoundStore{Storage: s.storage}
	controller := NewController(store, grid.New(5, nil, s.random, testutil.NopLogger()),
		s.ledger, s.sink, s.clock, nil, DefaultConfig(), testutil.NopLogger())

	_, err := controller.PlaceBet(s.ctx, s.account, 1000, 3)
	s.Require().Error(err)

	s.Require().Len(s.ledger.Credits(), 1)
	s.Equal(model.Money(1000), s.ledger.Credits()[0].Amount)
	s.Equal(model.Money(5000), s.account.Balance)

	balance, _ := s.ledger.Balance(s.ctx, s.account.PlayerID())
	s.Equal(model.Money(5000), balance)
}

// Reveal tests

func (s *ControllerSuite) TestRevealSafeCellRecomputesBank() {
	s.placeBet(1000, [2]int{0, 0}, [2]int{0, 1}, [2]int{0, 2})

	out, err := s.controller.Reveal(s.ctx, s.account, model.Coord{Row: 1, Col: 0})
	s.Require().NoError(err)
	s.False(out.Terminal)
	s.Require().Len(out.Events, 1)
	s.Equal(model.Event{
		Name: model.EventRevealedCell,
		Data: model.RevealedCellPayload{
			MatchID:       "round-1",
			Bank:          1100,
			RevealedCells: []string{"1:0"},
			Multiplier:    1.15,
		},
	}, out.Events[0])

	round := s.activeRound()
	s.Equal(4, round.RevealedCount)
	s.Equal(1.10, round.CurrentMultiplier)
	s.Equal(1.15, round.NextMultiplier)
	s.True(round.Grid[1][0].Revealed)

	out, err = s.controller.Reveal(s.ctx, s.account, model.Coord{Row: 4, Col: 4})
	s.Require().NoError(err)
	payload := out.Events[0].Data.(model.RevealedCellPayload)
	s.Equal(model.Money(1150), payload.Bank)
	s.Equal([]string{"1:0", "4:4"}, payload.RevealedCells)
	s.Equal(1.21, payload.Multiplier)
}

func (s *ControllerSuite) TestBankMatchesCurrentMultiplierAfterEveryReveal() {
	s.placeBet(730, [2]int{0, 0}, [2]int{0, 1})

	cells := []model.Coord{{Row: 1, Col: 1}, {Row: 2, Col: 2}, {Row: 3, Col: 3}, {Row: 4, Col: 0}, {Row: 2, Col: 4}}
	for _, c := range cells {
		_, err := s.controller.Reveal(s.ctx, s.account, c)
		s.Require().NoError(err)

		round := s.activeRound()
		s.Equal(round.Bet.Mul(round.CurrentMultiplier), round.Bank)
	}
	s.Equal(7, s.activeRound().RevealedCount)
}

func (s *ControllerSuite) TestRevealMineEndsRound() {
	s.placeBet(1000, [2]int{0, 0}, [2]int{0, 1}, [2]int{0, 2})
	_, err := s.controller.Reveal(s.ctx, s.account, model.Coord{Row: 1, Col: 0})
	s.Require().NoError(err)

	out, err := s.controller.Reveal(s.ctx, s.account, model.Coord{Row: 0, Col: 1})
	s.Require().NoError(err)
	s.True(out.Terminal)
	s.Require().Len(out.Events, 1)
	s.Equal(model.EventMatchEnded, out.Events[0].Name)

	payload := out.Events[0].Data.(model.MatchEndedPayload)
	s.Equal(model.RoundID(""), payload.MatchID)
	s.Equal(model.Money(0), payload.Bank)
	s.Equal(0.0, payload.Multiplier)
	s.Equal("0:1", payload.BombPos)
	s.Equal(model.Money(1000), payload.Bet)
	s.Equal([]string{"1:0", "0:1"}, payload.RevealedCells)
	s.Equal(5, payload.RevealedCellCount)
	s.True(payload.PlayerGrid[0][1].Revealed)

	exists, _ := s.controller.HasActiveRound(s.ctx, s.account.PlayerID())
	s.False(exists)

	settlements := s.sink.Settlements()
	s.Require().Len(settlements, 1)
	s.Equal(model.SettlementLoss, settlements[0].Status)
	s.Equal(0.00, settlements[0].MaxMultiplier)
	s.Equal(model.RoundID("round-1"), settlements[0].RoundID)
	s.Contains(string(settlements[0].Snapshot), `"matchId":"round-1"`)
	s.Empty(s.ledger.Credits())
}

func (s *ControllerSuite) TestRevealRejections() {
	_, err := s.controller.Reveal(s.ctx, s.account, model.Coord{Row: 0, Col: 0})
	s.ErrorIs(err, model.ErrRoundNotFound)

	s.placeBet(1000, [2]int{0, 0})
	_, err = s.controller.Reveal(s.ctx, s.account, model.Coord{Row: 2, Col: 2})
	s.Require().NoError(err)
	before := s.activeRound()

	_, err = s.controller.Reveal(s.ctx, s.account, model.Coord{Row: 2, Col: 2})
	s.ErrorIs(err, model.ErrCellRevealed)

	for _, c := range []model.Coord{{Row: 5, Col: 0}, {Row: 0, Col: -1}} {
		_, err = s.controller.Reveal(s.ctx, s.account, c)
		s.ErrorIs(err, model.ErrInvalidCell)
	}

	s.Equal(before, s.activeRound())
}

func (s *ControllerSuite) TestRevealRandomPicksUnrevealedCell() {
	s.placeBet(1000, [2]int{0, 0}, [2]int{0, 1}, [2]int{0, 2})
	// Candidates are row-major, so index 3 is (0,3)
	s.random.QueueIntn(3)

	out, err := s.controller.RevealRandom(s.ctx, s.account)
	s.Require().NoError(err)
	payload := out.Events[0].Data.(model.RevealedCellPayload)
	s.Equal([]string{"0:3"}, payload.RevealedCells)
}

func (s *ControllerSuite) TestRevealRandomWithoutRound() {
	_, err := s.controller.RevealRandom(s.ctx, s.account)
	s.ErrorIs(err, model.ErrRoundNotFound)
}

func (s *ControllerSuite) TestFullClearCashesOut() {
	mines := make([][2]int, 0, 24)
	for i := 0; i < 24; i++ {
		mines = append(mines, [2]int{i / 5, i % 5})
	}
	s.placeBet(40, mines...)

	out, err := s.controller.Reveal(s.ctx, s.account, model.Coord{Row: 4, Col: 4})
	s.Require().NoError(err)
	s.True(out.Terminal)
	s.Equal([]model.EventName{model.EventInfo, model.EventCashOutComplete}, s.eventNames(out))

	payload := out.Events[1].Data.(model.CashOutPayload)
	s.Equal(model.Money(970), payload.Payout)
	s.Equal("", payload.MatchID)
	s.Equal(24.25, payload.Multiplier)

	s.Equal(model.Money(5000-40+970), s.account.Balance)

	settlements := s.sink.Settlements()
	s.Require().Len(settlements, 1)
	s.Equal(model.SettlementWin, settlements[0].Status)
	s.Equal(24.25, settlements[0].MaxMultiplier)

	exists, _ := s.controller.HasActiveRound(s.ctx, s.account.PlayerID())
	s.False(exists)
}

// CashOut tests

func (s *ControllerSuite) TestCashOutPaysBank() {
	s.placeBet(1000, [2]int{0, 0}, [2]int{0, 1}, [2]int{0, 2})
	_, err := s.controller.Reveal(s.ctx, s.account, model.Coord{Row: 1, Col: 0})
	s.Require().NoError(err)

	out, err := s.controller.CashOut(s.ctx, s.account)
	s.Require().NoError(err)
	s.True(out.Terminal)
	s.Equal([]model.EventName{model.EventInfo, model.EventCashOutComplete}, s.eventNames(out))
	s.Equal(model.InfoPayload{UserID: "u1", OperatorID: "op", Balance: 5100}, out.Events[0].Data)

	payload := out.Events[1].Data.(model.CashOutPayload)
	s.Equal(model.Money(1100), payload.Payout)
	s.Equal(1.15, payload.Multiplier)

	credits := s.ledger.Credits()
	s.Require().Len(credits, 1)
	s.Equal(model.Money(1100), credits[0].Amount)
	s.Equal(s.ledger.Debits()[0].BetID, credits[0].BetID)

	settlements := s.sink.Settlements()
	s.Require().Len(settlements, 1)
	s.Equal(model.SettlementWin, settlements[0].Status)
	s.Equal(1.10, settlements[0].MaxMultiplier)

	_, err = s.controller.CashOut(s.ctx, s.account)
	s.ErrorIs(err, model.ErrRoundNotFound)
	s.Len(s.ledger.Credits(), 1)
}

// ackOnlyLedger acknowledges transactions without reporting a balance
type ackOnlyLedger struct {
	*ledger.Memory
}

func (l ackOnlyLedger) Debit(ctx context.Context, req ledger.DebitRequest) (ledger.DebitResult, error) {
	result, err := l.Memory.Debit(ctx, req)
	result.Balance = nil
	return result, err
}

func (l ackOnlyLedger) Credit(ctx context.Context, req ledger.CreditRequest) (ledger.CreditResult, error) {
	result, err := l.Memory.Credit(ctx, req)
	result.Balance = nil
	return result, err
}

func (s *ControllerSuite) TestBalanceIsDerivedWhenLedgerOmitsIt() {
	gridService := grid.New(5, nil, s.random, testutil.NopLogger())
	cfg := Config{MinBet: 10, MaxBet: 100000, MaxCashout: 2000}
	s.controller = NewController(s.storage, gridService, ackOnlyLedger{s.ledger}, s.sink, s.clock, NewRoundID, cfg, testutil.NopLogger())

	out := s.placeBet(1000, [2]int{0, 0}, [2]int{0, 1}, [2]int{0, 2})
	s.Equal(model.InfoPayload{UserID: "u1", OperatorID: "op", Balance: 4000}, out.Events[0].Data)

	_, err := s.controller.Reveal(s.ctx, s.account, model.Coord{Row: 1, Col: 0})
	s.Require().NoError(err)

	out, err = s.controller.CashOut(s.ctx, s.account)
	s.Require().NoError(err)
	s.Equal(model.InfoPayload{UserID: "u1", OperatorID: "op", Balance: 5100}, out.Events[0].Data)

	stored, err := s.storage.GetPlayer(s.ctx, s.account.ConnectionID)
	s.Require().NoError(err)
	s.Equal(model.Money(5100), stored.Balance)

	// a second bet is not refused by a zeroed balance
	s.placeBet(1000, [2]int{0, 0})
}

func (s *ControllerSuite) TestCashOutBeforeRevealReturnsStake() {
	s.placeBet(1000, [2]int{0, 0})

	out, err := s.controller.CashOut(s.ctx, s.account)
	s.Require().NoError(err)
	s.Equal(model.Money(1000), out.Events[1].Data.(model.CashOutPayload).Payout)
	s.Equal(model.Money(5000), s.account.Balance)
}

func (s *ControllerSuite) TestCashOutIsCappedAtMaximum() {
	// 15 mines puts the first reveal at 2.42x
	mines := make([][2]int, 0, 15)
	for i := 0; i < 15; i++ {
		mines = append(mines, [2]int{i / 5, i % 5})
	}
	s.placeBet(1000, mines...)
	_, err := s.controller.Reveal(s.ctx, s.account, model.Coord{Row: 4, Col: 4})
	s.Require().NoError(err)
	s.Equal(model.Money(2420), s.activeRound().Bank)

	out, err := s.controller.CashOut(s.ctx, s.account)
	s.Require().NoError(err)
	s.Equal(model.Money(2000), out.Events[1].Data.(model.CashOutPayload).Payout)
	s.Equal(model.Money(2000), s.ledger.Credits()[0].Amount)
}

func (s *ControllerSuite) TestCashOutCreditFailureStillClosesRound() {
	s.placeBet(1000, [2]int{0, 0})
	s.ledger.FailCredits(true)

	out, err := s.controller.CashOut(s.ctx, s.account)
	s.Require().NoError(err)
	s.True(out.Terminal)
	s.Equal([]model.EventName{model.EventCashOutComplete}, s.eventNames(out))
	s.Equal(model.Money(4000), s.account.Balance)

	exists, _ := s.controller.HasActiveRound(s.ctx, s.account.PlayerID())
	s.False(exists)

	pending, err := s.sink.PendingCreditFailures(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(model.RoundID("round-1"), pending[0].RoundID)
	s.Equal(model.Money(1000), pending[0].Amount)
	s.Contains(pending[0].Reason, "ledger did not accept payout")

	s.Require().Len(s.sink.Settlements(), 1)
	s.Equal(model.SettlementWin, s.sink.Settlements()[0].Status)
}

func (s *ControllerSuite) TestCashOutWithoutRound() {
	_, err := s.controller.CashOut(s.ctx, s.account)
	s.ErrorIs(err, model.ErrRoundNotFound)
}

func (s *ControllerSuite) TestCashOutRejectsEmptyBank() {
	s.placeBet(1000, [2]int{0, 0})
	round := s.activeRound()
	round.Bank = 0
	s.Require().NoError(s.storage.SaveRound(s.ctx, round))

	_, err := s.controller.CashOut(s.ctx, s.account)
	s.ErrorIs(err, model.ErrNonPositiveBank)
	s.Empty(s.ledger.Credits())
}

func (s *ControllerSuite) TestNewRoundIDIsUnique() {
	s.NotEqual(NewRoundID(), NewRoundID())
}
