package model

import "time"

// SettlementStatus is the outcome recorded for a finished round
type SettlementStatus string

const (
	SettlementWin  SettlementStatus = "WIN"
	SettlementLoss SettlementStatus = "LOSS"
)

// Settlement is the write-once audit record closing out a round
type Settlement struct {
	RoundID       RoundID
	BetID         string
	Snapshot      []byte // JSON encoding of the final round
	UserID        string
	OperatorID    string
	BetAmount     Money
	MaxMultiplier float64
	Status        SettlementStatus
	CreatedAt     time.Time
}

// CreditFailure records a payout the ledger did not accept.
// Reconciling it is left to operators.
type CreditFailure struct {
	RoundID    RoundID
	BetID      string
	UserID     string
	OperatorID string
	Amount     Money
	TxnID      string
	Reason     string
	CreatedAt  time.Time
	Resolved   bool
}
