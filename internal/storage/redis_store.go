package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"feedjam/internal/model"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores enrichment results keyed by content hash.
type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func enrichmentKey(hash string) string {
	return fmt.Sprintf("llm:processed:%s", hash)
}

// GetMany fetches cached results for the given hashes in one round trip.
// Missing or undecodable entries are left out of the result.
func (c *RedisCache) GetMany(ctx context.Context, hashes []string) (map[string]model.Enrichment, error) {
	out := make(map[string]model.Enrichment, len(hashes))
	if len(hashes) == 0 {
		return out, nil
	}
	keys := make([]string, len(hashes))
	for i, h := range hashes {
		keys[i] = enrichmentKey(h)
	}
	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var e model.Enrichment
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			slog.Warn("enrich-cache: dropping undecodable entry", "key", keys[i], "err", err)
			continue
		}
		out[hashes[i]] = e
	}
	return out, nil
}

// SetMany writes results with a TTL using a single pipeline.
func (c *RedisCache) SetMany(ctx context.Context, entries map[string]model.Enrichment, ttl time.Duration) error {
	if len(entries) == 0 {
		return nil
	}
	pipe := c.rdb.Pipeline()
	for h, e := range entries {
		b, err := json.Marshal(e)
		if err != nil {
			return err
		}
		pipe.Set(ctx, enrichmentKey(h), b, ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Ping checks connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
