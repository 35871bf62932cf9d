package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"feedjam/internal/ai"
	"feedjam/internal/config"
	"feedjam/internal/database"
	"feedjam/internal/enrich"
	"feedjam/internal/feed"
	"feedjam/internal/ingest"
	"feedjam/internal/jobs"
	"feedjam/internal/parser"
	"feedjam/internal/ranking"
	"feedjam/internal/redisclient"
	"feedjam/internal/storage"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// app holds the wired components shared by subcommands.
type app struct {
	db       *gorm.DB
	rdb      *redis.Client
	registry *parser.Registry
	gen      *feed.Generator
	service  *feed.Service
	orch     *jobs.Orchestrator
	users    *storage.Users
	sources  *storage.Sources
	subs     *storage.Subscriptions
	interest *storage.Interests
}

func newApp(cfg config.Config) (*app, error) {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}

	timeout, err := config.Duration(cfg.Parsers.Timeout, 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("parsers.timeout: %w", err)
	}
	perHost, err := config.Duration(cfg.Parsers.PerHostInterval, time.Second)
	if err != nil {
		return nil, fmt.Errorf("parsers.per_host_interval: %w", err)
	}
	registry := parser.NewDefault(parser.Options{
		HTTPClient:    parser.NewHTTPClient(timeout, perHost, cfg.Parsers.UserAgent),
		NitterBaseURL: cfg.Parsers.NitterBaseURL,
		V2EXBaseURL:   cfg.Parsers.V2EXBaseURL,
		V2EXToken:     cfg.Parsers.V2EXToken,
	})

	a := &app{
		db:       db,
		rdb:      redisclient.New(cfg.Redis),
		registry: registry,
		users:    storage.NewUsers(db),
		sources:  storage.NewSources(db),
		subs:     storage.NewSubscriptions(db),
		interest: storage.NewInterests(db),
	}

	enricher, err := a.newEnricher(cfg)
	if err != nil {
		return nil, err
	}

	halfLife, err := config.Duration(cfg.Ranking.RecencyHalfLife, 0)
	if err != nil {
		return nil, fmt.Errorf("ranking.recency_half_life: %w", err)
	}
	engine := &ranking.Engine{
		Interests:  a.interest,
		Affinities: storage.NewLikeHistory(db),
		HasCounts:  registry.HasCounts,
		HalfLife:   halfLife,
	}
	a.gen = feed.NewGenerator(db, engine, cfg.Feeds.MaxNewItems)
	a.service = feed.NewService(db, a.gen, nil)

	refresh, err := cfg.Feeds.RefreshIntervalDuration()
	if err != nil {
		return nil, fmt.Errorf("feeds.refresh_interval: %w", err)
	}
	pipeline := ingest.NewPipeline(ingest.New(storage.NewItems(db)), enricher)
	a.orch = jobs.New(db, registry, pipeline, a.gen, jobs.Config{
		Workers:         cfg.Scheduler.Workers,
		BatchSize:       cfg.Scheduler.BatchSize,
		RefreshInterval: refresh,
	})
	return a, nil
}

// newEnricher returns nil unless enrichment is enabled and an API key is set.
func (a *app) newEnricher(cfg config.Config) (*enrich.Enricher, error) {
	if !cfg.Feeds.EnableEnrichment {
		return nil, nil
	}
	if cfg.OpenAI.APIKey == "" {
		slog.Warn("enrich: enable_enrichment is set but openai.api_key is empty; enrichment disabled")
		return nil, nil
	}
	timeout, err := config.Duration(cfg.OpenAI.Timeout, 300*time.Second)
	if err != nil {
		return nil, fmt.Errorf("openai.timeout: %w", err)
	}
	provider, err := ai.NewOpenAI(ai.Config{
		APIKey:  cfg.OpenAI.APIKey,
		Model:   cfg.OpenAI.Model,
		BaseURL: cfg.OpenAI.BaseURL,
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}
	ttl, err := cfg.Feeds.CacheTTL()
	if err != nil {
		return nil, fmt.Errorf("feeds.enrichment_cache_ttl: %w", err)
	}
	// A nil *RedisCache must not reach the interface.
	var cache enrich.Cache
	if a.rdb != nil {
		cache = storage.NewRedisCache(a.rdb)
	}
	return enrich.New(provider, cache, enrich.Config{
		Enabled:   true,
		BatchSize: cfg.Feeds.EnrichmentBatchSize,
		MaxTokens: cfg.Feeds.MaxTokensPerBatch,
		CacheTTL:  ttl,
	}), nil
}

func (a *app) Close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// withApp loads config, wires the app and runs fn with a background context.
func withApp(fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(GetConfig())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(context.Background(), a)
}

// userByArg resolves a numeric id or a username.
func (a *app) userByArg(ctx context.Context, arg string) (uint, error) {
	if id, err := strconv.ParseUint(arg, 10, 64); err == nil {
		u, err := a.users.Get(ctx, uint(id))
		if err != nil {
			return 0, fmt.Errorf("user %s: %w", arg, err)
		}
		return u.ID, nil
	}
	u, err := a.users.ByUsername(ctx, arg)
	if err != nil {
		return 0, fmt.Errorf("user %s: %w", arg, err)
	}
	return u.ID, nil
}

func parseID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return uint(id), nil
}
