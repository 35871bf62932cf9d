package config

import (
	"fmt"
	"time"
)

// AppConfig holds application-level settings.
type AppConfig struct {
	LogLevel string `mapstructure:"log_level"`
}

// DatabaseConfig selects the relational store.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // postgres or sqlite
	DSN    string `mapstructure:"dsn"`
}

// RedisConfig holds redis connection settings for the enrichment cache.
// Leaving Addr empty disables the cache.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// OpenAIConfig configures the enrichment provider.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
	Timeout string `mapstructure:"timeout"` // duration string, e.g., "300s"
}

// FeedsConfig holds the ingestion and generation knobs.
type FeedsConfig struct {
	RefreshInterval     string `mapstructure:"refresh_interval"` // duration string, e.g., "4h"
	EnableEnrichment    bool   `mapstructure:"enable_enrichment"`
	EnrichmentBatchSize int    `mapstructure:"enrichment_batch_size"`
	EnrichmentCacheTTL  string `mapstructure:"enrichment_cache_ttl"`
	MaxTokensPerBatch   int    `mapstructure:"max_tokens_per_batch"`
	MaxNewItems         int    `mapstructure:"max_new_items"` // negative means unlimited
}

// RankingConfig tunes the ranking engine.
type RankingConfig struct {
	// RecencyHalfLife enables time decay when set; empty keeps recency neutral.
	RecencyHalfLife string `mapstructure:"recency_half_life"`
}

// SchedulerConfig controls the background drivers of `serve`.
type SchedulerConfig struct {
	PollInterval     string `mapstructure:"poll_interval"`
	FetchInterval    string `mapstructure:"fetch_interval"`
	GenerateInterval string `mapstructure:"generate_interval"`
	Workers          int    `mapstructure:"workers"`
	BatchSize        int    `mapstructure:"batch_size"`
}

// ParsersConfig controls outbound fetching done by parsers.
type ParsersConfig struct {
	UserAgent       string `mapstructure:"user_agent"`
	Timeout         string `mapstructure:"timeout"`
	PerHostInterval string `mapstructure:"per_host_interval"`
	NitterBaseURL   string `mapstructure:"nitter_base_url"`
	V2EXToken       string `mapstructure:"v2ex_token"`
	V2EXBaseURL     string `mapstructure:"v2ex_base_url"`
}

// Config is the top-level configuration structure.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Feeds     FeedsConfig     `mapstructure:"feeds"`
	Ranking   RankingConfig   `mapstructure:"ranking"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Parsers   ParsersConfig   `mapstructure:"parsers"`
}

// FillDefaults applies default values if not provided.
func (c *Config) FillDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" {
		c.Database.DSN = "feedjam.db"
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
	if c.OpenAI.Timeout == "" {
		c.OpenAI.Timeout = "300s"
	}
	if c.Feeds.RefreshInterval == "" {
		c.Feeds.RefreshInterval = "4h"
	}
	if c.Feeds.EnrichmentBatchSize == 0 {
		c.Feeds.EnrichmentBatchSize = 10
	}
	if c.Feeds.EnrichmentCacheTTL == "" {
		c.Feeds.EnrichmentCacheTTL = "168h"
	}
	if c.Feeds.MaxTokensPerBatch == 0 {
		c.Feeds.MaxTokensPerBatch = 4000
	}
	if c.Feeds.MaxNewItems == 0 {
		c.Feeds.MaxNewItems = 500
	}
	if c.Scheduler.PollInterval == "" {
		c.Scheduler.PollInterval = "1m"
	}
	if c.Scheduler.FetchInterval == "" {
		c.Scheduler.FetchInterval = "30m"
	}
	if c.Scheduler.GenerateInterval == "" {
		c.Scheduler.GenerateInterval = "30m"
	}
	if c.Scheduler.Workers == 0 {
		c.Scheduler.Workers = 4
	}
	if c.Scheduler.BatchSize == 0 {
		c.Scheduler.BatchSize = 50
	}
	if c.Parsers.UserAgent == "" {
		c.Parsers.UserAgent = "feedjam/1.0 (+https://github.com/feedjam)"
	}
	if c.Parsers.Timeout == "" {
		c.Parsers.Timeout = "30s"
	}
	if c.Parsers.PerHostInterval == "" {
		c.Parsers.PerHostInterval = "1s"
	}
	if c.Parsers.NitterBaseURL == "" {
		c.Parsers.NitterBaseURL = "https://nitter.net"
	}
	if c.Parsers.V2EXBaseURL == "" {
		c.Parsers.V2EXBaseURL = "https://www.v2ex.com"
	}
}

// Duration parses a duration string, falling back to def when empty.
func Duration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid duration %q: negative", s)
	}
	return d, nil
}

// RefreshIntervalDuration is how old a subscription's last run must be to be due.
func (f FeedsConfig) RefreshIntervalDuration() (time.Duration, error) {
	return Duration(f.RefreshInterval, 4*time.Hour)
}

// CacheTTL is the lifetime of cached enrichment results.
func (f FeedsConfig) CacheTTL() (time.Duration, error) {
	return Duration(f.EnrichmentCacheTTL, 7*24*time.Hour)
}
