package model

import (
	"errors"
	"fmt"
)

// Error classes. Every specific error below wraps exactly one of these so
// callers can branch with errors.Is on the class.
var (
	// ErrConfiguration means the request cannot be served with the configured grid or table
	ErrConfiguration = errors.New("configuration error")
	// ErrUpstreamRejected means the ledger refused a debit
	ErrUpstreamRejected = errors.New("upstream rejected")
	// ErrInvalidMove means the request was rejected and no state changed
	ErrInvalidMove = errors.New("invalid move")
	// ErrCreditFailure means the ledger did not accept a payout
	ErrCreditFailure = errors.New("credit failure")
)

var (
	// Configuration errors
	ErrInvalidMineCount   = fmt.Errorf("%w: mine count does not fit the grid", ErrConfiguration)
	ErrMultiplierNotFound = fmt.Errorf("%w: multiplier not found", ErrConfiguration)

	// Ledger errors
	ErrBetCancelled = fmt.Errorf("%w: bet cancelled by upstream", ErrUpstreamRejected)
	ErrCreditFailed = fmt.Errorf("%w: ledger did not accept payout", ErrCreditFailure)

	// Player errors
	ErrPlayerNotFound = fmt.Errorf("%w: player not found", ErrInvalidMove)

	// Bet errors
	ErrMissingBetDetails   = fmt.Errorf("%w: bet amount and mine count are required", ErrInvalidMove)
	ErrCheatDetected       = fmt.Errorf("%w: bet amount or mine count out of range", ErrInvalidMove)
	ErrInsufficientBalance = fmt.Errorf("%w: insufficient balance", ErrInvalidMove)
	ErrInvalidBet          = fmt.Errorf("%w: bet outside allowed limits", ErrInvalidMove)
	ErrRoundInProgress     = fmt.Errorf("%w: round already in progress", ErrInvalidMove)

	// Round errors
	ErrRoundNotFound   = fmt.Errorf("%w: no active round", ErrInvalidMove)
	ErrInvalidCell     = fmt.Errorf("%w: invalid row or column", ErrInvalidMove)
	ErrCellRevealed    = fmt.Errorf("%w: cell already revealed", ErrInvalidMove)
	ErrNonPositiveBank = fmt.Errorf("%w: nothing to cash out", ErrInvalidMove)
)
