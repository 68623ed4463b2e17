package memory

import (
	"context"
	"sync"

	"github.com/mcoot/minesgame/internal/model"
	"github.com/mcoot/minesgame/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// Values are copied on the way in and out so callers never share state
// with the store.
type Storage struct {
	mu sync.RWMutex

	players map[model.ConnectionID]model.PlayerAccount
	rounds  map[model.PlayerID]*model.Round
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players: make(map[model.ConnectionID]model.PlayerAccount),
		rounds:  make(map[model.PlayerID]*model.Round),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, account *model.PlayerAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[account.ConnectionID] = *account
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.ConnectionID) (*model.PlayerAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return &account, nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.ConnectionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.players, id)
	return nil
}

// Round operations

func (s *Storage) SaveRound(ctx context.Context, round *model.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rounds[round.Player] = round.Clone()
	return nil
}

func (s *Storage) GetRound(ctx context.Context, player model.PlayerID) (*model.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	round, ok := s.rounds[player]
	if !ok {
		return nil, model.ErrRoundNotFound
	}
	return round.Clone(), nil
}

func (s *Storage) DeleteRound(ctx context.Context, player model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rounds, player)
	return nil
}

func (s *Storage) RoundExists(ctx context.Context, player model.PlayerID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rounds[player]
	return ok, nil
}

// RoundCount returns the number of active rounds
func (s *Storage) RoundCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rounds)
}
