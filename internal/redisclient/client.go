package redisclient

import (
	"feedjam/internal/config"

	"github.com/redis/go-redis/v9"
)

// New creates a Redis client for the enrichment cache.
// An empty address yields nil so callers can run without a cache.
func New(cfg config.RedisConfig) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
