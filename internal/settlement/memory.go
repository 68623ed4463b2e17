package settlement

import (
	"context"
	"sync"

	"github.com/mcoot/minesgame/internal/model"
)

// Memory is an in-process sink for local development and tests
type Memory struct {
	mu          sync.RWMutex
	settlements []model.Settlement
	settled     map[model.RoundID]struct{}
	failures    []model.CreditFailure
}

// NewMemory creates an empty in-memory sink
func NewMemory() *Memory {
	return &Memory{settled: make(map[model.RoundID]struct{})}
}

// Ensure Memory implements the interface
var _ Sink = (*Memory)(nil)

func (m *Memory) Insert(ctx context.Context, s *model.Settlement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.settled[s.RoundID]; ok {
		return ErrDuplicateSettlement
	}
	m.settled[s.RoundID] = struct{}{}
	m.settlements = append(m.settlements, *s)
	return nil
}

func (m *Memory) RecordCreditFailure(ctx context.Context, f *model.CreditFailure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, *f)
	return nil
}

func (m *Memory) PendingCreditFailures(ctx context.Context) ([]model.CreditFailure, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var pending []model.CreditFailure
	for _, f := range m.failures {
		if !f.Resolved {
			pending = append(pending, f)
		}
	}
	return pending, nil
}

func (m *Memory) ResolveCreditFailure(ctx context.Context, roundID model.RoundID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.failures {
		if m.failures[i].RoundID == roundID && !m.failures[i].Resolved {
			m.failures[i].Resolved = true
			return nil
		}
	}
	return ErrCreditFailureNotFound
}

// Settlements returns every inserted settlement in order
func (m *Memory) Settlements() []model.Settlement {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.Settlement(nil), m.settlements...)
}
