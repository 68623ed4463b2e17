package storage

import (
	"context"

	"github.com/mcoot/minesgame/internal/model"
)

// Storage defines the interface for session persistence
type Storage interface {
	// Player directory operations, keyed by connection
	SavePlayer(ctx context.Context, account *model.PlayerAccount) error
	GetPlayer(ctx context.Context, id model.ConnectionID) (*model.PlayerAccount, error)
	DeletePlayer(ctx context.Context, id model.ConnectionID) error

	// Round operations, at most one round per player
	SaveRound(ctx context.Context, round *model.Round) error
	GetRound(ctx context.Context, player model.PlayerID) (*model.Round, error)
	DeleteRound(ctx context.Context, player model.PlayerID) error
	RoundExists(ctx context.Context, player model.PlayerID) (bool, error)
}
