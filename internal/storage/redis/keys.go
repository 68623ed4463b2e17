package redis

import (
	"fmt"

	"github.com/mcoot/minesgame/internal/model"
)

// Key prefix for all game-related data
const keyPrefix = "mines"

// playerKey returns the Redis key for a directory entry
func playerKey(id model.ConnectionID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// roundKey returns the Redis key for a player's active round
func roundKey(player model.PlayerID) string {
	return fmt.Sprintf("%s:round:%s:%s", keyPrefix, player.OperatorID, player.UserID)
}
