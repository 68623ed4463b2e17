package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// RoundTTL bounds how long an abandoned round survives in the cache
	RoundTTL time.Duration
	// PlayerTTL applies to directory entries; zero keeps them until deleted
	PlayerTTL time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:          "redis://localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		RoundTTL:     time.Hour,
		PlayerTTL:    0,
	}
}
