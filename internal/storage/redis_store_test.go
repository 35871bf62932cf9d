package storage_test

import (
	"context"
	"testing"
	"time"

	"feedjam/internal/model"
	"feedjam/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	cache := storage.NewRedisCache(rdb)

	require.NoError(t, cache.Ping(ctx))

	got, err := cache.GetMany(ctx, []string{"aaaa", "bbbb"})
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, cache.SetMany(ctx, map[string]model.Enrichment{
		"aaaa": {Title: "Short", Summary: "A summary."},
	}, time.Hour))
	require.NoError(t, mr.Set("llm:processed:bbbb", "{not json"))

	got, err = cache.GetMany(ctx, []string{"aaaa", "bbbb", "cccc"})
	require.NoError(t, err)
	assert.Equal(t, map[string]model.Enrichment{"aaaa": {Title: "Short", Summary: "A summary."}}, got)

	assert.True(t, mr.Exists("llm:processed:aaaa"))
	mr.FastForward(2 * time.Hour)
	got, err = cache.GetMany(ctx, []string{"aaaa"})
	require.NoError(t, err)
	assert.Empty(t, got)
}
