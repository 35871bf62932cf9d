package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFillDefaults(t *testing.T) {
	var c Config
	c.FillDefaults()

	assert.Equal(t, "info", c.App.LogLevel)
	assert.Equal(t, "sqlite", c.Database.Driver)
	assert.Equal(t, "feedjam.db", c.Database.DSN)
	assert.Equal(t, 10, c.Feeds.EnrichmentBatchSize)
	assert.Equal(t, 4000, c.Feeds.MaxTokensPerBatch)
	assert.False(t, c.Feeds.EnableEnrichment)

	refresh, err := c.Feeds.RefreshIntervalDuration()
	require.NoError(t, err)
	assert.Equal(t, 4*time.Hour, refresh)

	ttl, err := c.Feeds.CacheTTL()
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, ttl)
}

func TestFillDefaultsKeepsExplicitValues(t *testing.T) {
	c := Config{
		Database: DatabaseConfig{Driver: "postgres", DSN: "host=db"},
		Feeds:    FeedsConfig{RefreshInterval: "30m", EnrichmentBatchSize: 3},
	}
	c.FillDefaults()

	assert.Equal(t, "host=db", c.Database.DSN)
	assert.Equal(t, 3, c.Feeds.EnrichmentBatchSize)
	d, err := c.Feeds.RefreshIntervalDuration()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, d)
}

func TestDuration(t *testing.T) {
	d, err := Duration("", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, d)

	_, err = Duration("soon", time.Minute)
	assert.Error(t, err)

	_, err = Duration("-1h", time.Minute)
	assert.Error(t, err)
}
