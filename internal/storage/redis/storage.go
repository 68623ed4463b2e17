package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/minesgame/internal/model"
	"github.com/mcoot/minesgame/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, account *model.PlayerAccount) error {
	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("encode player %s: %w", account.ConnectionID, err)
	}
	return s.client.Set(ctx, playerKey(account.ConnectionID), data, s.cfg.PlayerTTL).Err()
}

func (s *Storage) GetPlayer(ctx context.Context, id model.ConnectionID) (*model.PlayerAccount, error) {
	data, err := s.client.Get(ctx, playerKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("get player %s: %w", id, err)
	}

	var account model.PlayerAccount
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, fmt.Errorf("decode player %s: %w", id, err)
	}
	return &account, nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.ConnectionID) error {
	return s.client.Del(ctx, playerKey(id)).Err()
}

// Round operations

func (s *Storage) SaveRound(ctx context.Context, round *model.Round) error {
	data, err := json.Marshal(round)
	if err != nil {
		return fmt.Errorf("encode round %s: %w", round.ID, err)
	}
	return s.client.Set(ctx, roundKey(round.Player), data, s.cfg.RoundTTL).Err()
}

func (s *Storage) GetRound(ctx context.Context, player model.PlayerID) (*model.Round, error) {
	data, err := s.client.Get(ctx, roundKey(player)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrRoundNotFound
		}
		return nil, fmt.Errorf("get round for %s: %w", player, err)
	}

	var round model.Round
	if err := json.Unmarshal(data, &round); err != nil {
		return nil, fmt.Errorf("decode round for %s: %w", player, err)
	}
	return &round, nil
}

func (s *Storage) DeleteRound(ctx context.Context, player model.PlayerID) error {
	return s.client.Del(ctx, roundKey(player)).Err()
}

func (s *Storage) RoundExists(ctx context.Context, player model.PlayerID) (bool, error) {
	exists, err := s.client.Exists(ctx, roundKey(player)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
