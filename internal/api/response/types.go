package response

import (
	"sort"
	"time"

	"github.com/mcoot/minesgame/internal/model"
)

// Health is the response for the health check
type Health struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
}

// Multiplier is one row of the payout table
type Multiplier struct {
	Cells      int     `json:"cells"`
	Multiplier float64 `json:"multiplier"`
}

// Multipliers describes the grid and its payout table
type Multipliers struct {
	GridSize    int          `json:"grid_size"`
	Multipliers []Multiplier `json:"multipliers"`
}

// MultipliersFromModel converts the table to rows ordered by cell count
func MultipliersFromModel(size int, table model.MultiplierTable) Multipliers {
	rows := make([]Multiplier, 0, len(table))
	for cells, m := range table {
		rows = append(rows, Multiplier{Cells: cells, Multiplier: m})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Cells < rows[j].Cells })
	return Multipliers{GridSize: size, Multipliers: rows}
}

// CreditFailure represents an unreconciled payout
type CreditFailure struct {
	RoundID    string      `json:"round_id"`
	BetID      string      `json:"bet_id"`
	OperatorID string      `json:"operator_id"`
	UserID     string      `json:"user_id"`
	Amount     model.Money `json:"amount"`
	TxnID      string      `json:"txn_id"`
	Reason     string      `json:"reason"`
	CreatedAt  time.Time   `json:"created_at"`
}

// CreditFailureFromModel converts model.CreditFailure
func CreditFailureFromModel(f model.CreditFailure) CreditFailure {
	return CreditFailure{
		RoundID:    string(f.RoundID),
		BetID:      f.BetID,
		OperatorID: f.OperatorID,
		UserID:     f.UserID,
		Amount:     f.Amount,
		TxnID:      f.TxnID,
		Reason:     f.Reason,
		CreatedAt:  f.CreatedAt,
	}
}

// CreditFailures is the response for listing credit failures
type CreditFailures struct {
	Failures []CreditFailure `json:"failures"`
	Total    model.Money     `json:"total"`
}

// CreditFailuresFromModel converts a list of failures and sums their amounts
func CreditFailuresFromModel(failures []model.CreditFailure) CreditFailures {
	resp := CreditFailures{Failures: make([]CreditFailure, len(failures))}
	for i, f := range failures {
		resp.Failures[i] = CreditFailureFromModel(f)
		resp.Total += f.Amount
	}
	return resp
}

// Token is the response after minting a handshake token
type Token struct {
	Token      string `json:"token"`
	OperatorID string `json:"operator_id"`
	UserID     string `json:"user_id"`
}
