package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/mcoot/minesgame/internal/model"
)

// Memory is an in-process ledger for local development and tests
type Memory struct {
	mu             sync.Mutex
	balances       map[model.PlayerID]model.Money
	defaultBalance model.Money

	failDebits  bool
	failCredits bool

	debits  []DebitRequest
	credits []CreditRequest
}

// NewMemory creates a ledger where unknown players start with defaultBalance
func NewMemory(defaultBalance model.Money) *Memory {
	return &Memory{
		balances:       make(map[model.PlayerID]model.Money),
		defaultBalance: defaultBalance,
	}
}

// Ensure Memory implements the interface
var _ Ledger = (*Memory)(nil)

// SetBalance sets the balance for a player
func (m *Memory) SetBalance(player model.PlayerID, balance model.Money) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[player] = balance
}

// FailDebits makes subsequent debits fail when set
func (m *Memory) FailDebits(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failDebits = fail
}

// FailCredits makes subsequent credits fail when set
func (m *Memory) FailCredits(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failCredits = fail
}

// Debits returns the accepted debit requests in order
func (m *Memory) Debits() []DebitRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DebitRequest(nil), m.debits...)
}

// Credits returns the accepted credit requests in order
func (m *Memory) Credits() []CreditRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CreditRequest(nil), m.credits...)
}

func (m *Memory) balanceLocked(player model.PlayerID) model.Money {
	balance, ok := m.balances[player]
	if !ok {
		return m.defaultBalance
	}
	return balance
}

func (m *Memory) Debit(ctx context.Context, req DebitRequest) (DebitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failDebits {
		return DebitResult{}, fmt.Errorf("%w: debits disabled", ErrDeclined)
	}
	if req.Amount <= 0 {
		return DebitResult{}, fmt.Errorf("%w: amount %s", ErrDeclined, req.Amount)
	}
	balance := m.balanceLocked(req.Player)
	if balance < req.Amount {
		return DebitResult{}, fmt.Errorf("%w: insufficient funds", ErrDeclined)
	}

	balance -= req.Amount
	m.balances[req.Player] = balance
	m.debits = append(m.debits, req)
	return DebitResult{TxnID: uuid.NewString(), Balance: &balance}, nil
}

func (m *Memory) Credit(ctx context.Context, req CreditRequest) (CreditResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failCredits {
		return CreditResult{}, errors.New("credit endpoint unavailable")
	}
	if req.TxnID == "" {
		return CreditResult{}, fmt.Errorf("%w: missing txn id", ErrDeclined)
	}

	balance := m.balanceLocked(req.Player) + req.Amount
	m.balances[req.Player] = balance
	m.credits = append(m.credits, req)
	return CreditResult{Balance: &balance}, nil
}

func (m *Memory) Balance(ctx context.Context, player model.PlayerID) (model.Money, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balanceLocked(player), nil
}
