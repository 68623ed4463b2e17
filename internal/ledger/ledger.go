// Package ledger talks to the external wallet that owns player balances.
package ledger

import (
	"context"
	"errors"

	"github.com/mcoot/minesgame/internal/model"
)

// ErrDeclined is returned when the ledger refuses a transaction
var ErrDeclined = errors.New("ledger declined transaction")

// DebitRequest takes a stake from a player's balance
type DebitRequest struct {
	Player       model.PlayerID     `json:"player"`
	Amount       model.Money        `json:"bet_amount"`
	BetID        string             `json:"bet_id"`
	RoundID      model.RoundID      `json:"round_id"`
	ConnectionID model.ConnectionID `json:"socket_id"`
	ClientIP     string             `json:"ip,omitempty"`
}

// DebitResult is returned by a successful debit. Balance is nil when the
// ledger only acknowledged the transaction.
type DebitResult struct {
	TxnID   string       `json:"txn_id"`
	Balance *model.Money `json:"balance,omitempty"`
}

// BalanceOr returns the balance reported by the ledger, or fallback when the
// response carried none
func (r DebitResult) BalanceOr(fallback model.Money) model.Money {
	if r.Balance == nil {
		return fallback
	}
	return *r.Balance
}

// CreditRequest pays winnings back against an earlier debit
type CreditRequest struct {
	Player       model.PlayerID     `json:"player"`
	Amount       model.Money        `json:"winning_amount"`
	TxnID        string             `json:"txn_id"`
	BetID        string             `json:"bet_id"`
	RoundID      model.RoundID      `json:"round_id"`
	ConnectionID model.ConnectionID `json:"socket_id"`
	ClientIP     string             `json:"ip,omitempty"`
}

// CreditResult is returned by a successful credit
type CreditResult struct {
	Balance *model.Money `json:"balance,omitempty"`
}

// BalanceOr returns the balance reported by the ledger, or fallback when the
// response carried none
func (r CreditResult) BalanceOr(fallback model.Money) model.Money {
	if r.Balance == nil {
		return fallback
	}
	return *r.Balance
}

// Ledger is the wallet collaborator. Implementations must be safe for
// concurrent use.
type Ledger interface {
	Debit(ctx context.Context, req DebitRequest) (DebitResult, error)
	Credit(ctx context.Context, req CreditRequest) (CreditResult, error)
	Balance(ctx context.Context, player model.PlayerID) (model.Money, error)
}
