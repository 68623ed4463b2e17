package session

import (
	"errors"

	"github.com/mcoot/minesgame/internal/model"
)

// MessageSomethingWrong is sent for errors that have no user-facing mapping
const MessageSomethingWrong = "Something went wrong"

// errorMessages maps sentinel errors to the betError message shown to the
// player. Order matters: specific errors come before their class.
var errorMessages = []struct {
	err     error
	message string
}{
	{model.ErrMissingBetDetails, "Bet Amount and mine count is missing"},
	{model.ErrCheatDetected, "Cheat Detected, Bet cannot be placed"},
	{model.ErrInvalidMineCount, "Cheat Detected, Bet cannot be placed"},
	{model.ErrInsufficientBalance, "Insufficient Balance"},
	{model.ErrInvalidBet, "Invalid Bet"},
	{model.ErrRoundInProgress, "Game already in progress"},
	{model.ErrPlayerNotFound, "Invalid Player Details"},
	{model.ErrRoundNotFound, "Game Details not found"},
	{model.ErrInvalidCell, "Invalid Row or Column Passed"},
	{model.ErrCellRevealed, "Block is already revealed"},
	{model.ErrNonPositiveBank, "Cashout amount cannot be less than or 0"},
	{model.ErrUpstreamRejected, "Bet Cancelled by Upstream"},
}

// MessageFor returns the betError message for err and whether the error is
// an expected rejection
func MessageFor(err error) (string, bool) {
	for _, m := range errorMessages {
		if errors.Is(err, m.err) {
			return m.message, true
		}
	}
	return MessageSomethingWrong, false
}
