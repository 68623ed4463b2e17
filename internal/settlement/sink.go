// Package settlement records the audit trail of finished rounds and payouts
// the ledger did not accept.
package settlement

import (
	"context"
	"errors"

	"github.com/mcoot/minesgame/internal/model"
)

var (
	// ErrDuplicateSettlement is returned when a round is settled twice
	ErrDuplicateSettlement = errors.New("round already settled")
	// ErrCreditFailureNotFound is returned when resolving an unknown failure
	ErrCreditFailureNotFound = errors.New("credit failure not found")
)

// Sink persists settlement records. Settlements are write-once.
type Sink interface {
	Insert(ctx context.Context, s *model.Settlement) error
	RecordCreditFailure(ctx context.Context, f *model.CreditFailure) error
	PendingCreditFailures(ctx context.Context) ([]model.CreditFailure, error)
	ResolveCreditFailure(ctx context.Context, roundID model.RoundID) error
}
