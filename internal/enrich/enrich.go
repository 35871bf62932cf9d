// Package enrich rewrites long titles and adds summaries to raw items
// through a text-generation provider, caching results by content hash.
// Enrichment is best-effort: failures leave items as they were.
package enrich

import (
	"context"
	"html"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"feedjam/internal/model"

	"github.com/microcosm-cc/bluemonday"
)

const (
	longTitleBytes  = 100
	maxContentRunes = 1500
)

// Provider turns one batch into results keyed by the item's position in
// the batch. Positions absent from the map are left untouched.
type Provider interface {
	ProcessBatch(ctx context.Context, items []ContentItem) (map[int]model.Enrichment, error)
}

// Cache stores results by content hash.
type Cache interface {
	GetMany(ctx context.Context, hashes []string) (map[string]model.Enrichment, error)
	SetMany(ctx context.Context, entries map[string]model.Enrichment, ttl time.Duration) error
}

type Config struct {
	Enabled   bool
	BatchSize int
	MaxTokens int
	CacheTTL  time.Duration
}

// Enricher applies provider results to raw items before they are stored.
type Enricher struct {
	provider Provider
	cache    Cache
	cfg      Config
	strip    *bluemonday.Policy
}

// New returns an Enricher. cache may be nil.
func New(provider Provider, cache Cache, cfg Config) *Enricher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4000
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 7 * 24 * time.Hour
	}
	return &Enricher{provider: provider, cache: cache, cfg: cfg, strip: bluemonday.StrictPolicy()}
}

// Enabled reports whether Enrich does anything.
func (e *Enricher) Enabled() bool {
	return e != nil && e.cfg.Enabled && e.provider != nil
}

// NeedsEnrichment reports whether an item is worth sending to the provider.
func NeedsEnrichment(it model.RawItem) bool {
	return len(it.Title) > longTitleBytes || it.Description != ""
}

func (e *Enricher) content(desc string) string {
	text := strings.TrimSpace(html.UnescapeString(e.strip.Sanitize(desc)))
	if utf8.RuneCountInString(text) > maxContentRunes {
		text = string([]rune(text)[:maxContentRunes])
	}
	return text
}

type pending struct {
	hash    string
	item    ContentItem
	indexes []int
}

// Enrich returns items with titles and summaries applied where the cache or
// provider produced them. It never fails; the input slice is not modified.
func (e *Enricher) Enrich(ctx context.Context, sourceName string, items []model.RawItem) []model.RawItem {
	out := append([]model.RawItem(nil), items...)
	if !e.Enabled() || len(out) == 0 {
		return out
	}

	byHash := make(map[string]*pending)
	var order []*pending
	for i, it := range out {
		if !NeedsEnrichment(it) {
			continue
		}
		h := ContentHash(it.Title, it.Link, sourceName)
		if p, ok := byHash[h]; ok {
			p.indexes = append(p.indexes, i)
			continue
		}
		p := &pending{
			hash:    h,
			item:    ContentItem{Title: it.Title, Content: e.content(it.Description), URL: it.Link, SourceName: sourceName},
			indexes: []int{i},
		}
		byHash[h] = p
		order = append(order, p)
	}
	if len(order) == 0 {
		return out
	}

	cached := e.lookup(ctx, order)
	var misses []*pending
	for _, p := range order {
		if res, ok := cached[p.hash]; ok {
			apply(out, p.indexes, res)
			continue
		}
		misses = append(misses, p)
	}
	if len(misses) > 0 {
		slog.Info("enrich: processing uncached items", "source", sourceName, "count", len(misses), "cached", len(order)-len(misses))
	}

	fresh := make(map[string]model.Enrichment)
	for _, batch := range batchPending(misses, e.cfg.BatchSize, e.cfg.MaxTokens) {
		contents := make([]ContentItem, len(batch))
		for i, p := range batch {
			contents[i] = p.item
		}
		results, err := e.provider.ProcessBatch(ctx, contents)
		if err != nil {
			slog.Warn("enrich: batch failed, leaving items unchanged", "source", sourceName, "size", len(batch), "err", err)
			continue
		}
		for i, p := range batch {
			res, ok := results[i]
			if !ok || res.Empty() {
				continue
			}
			apply(out, p.indexes, res)
			fresh[p.hash] = res
		}
	}
	e.store(ctx, fresh)
	return out
}

func (e *Enricher) lookup(ctx context.Context, order []*pending) map[string]model.Enrichment {
	if e.cache == nil {
		return nil
	}
	hashes := make([]string, len(order))
	for i, p := range order {
		hashes[i] = p.hash
	}
	got, err := e.cache.GetMany(ctx, hashes)
	if err != nil {
		slog.Warn("enrich: cache lookup failed", "err", err)
		return nil
	}
	return got
}

func (e *Enricher) store(ctx context.Context, fresh map[string]model.Enrichment) {
	if e.cache == nil || len(fresh) == 0 {
		return
	}
	if err := e.cache.SetMany(ctx, fresh, e.cfg.CacheTTL); err != nil {
		slog.Warn("enrich: cache write failed", "count", len(fresh), "err", err)
	}
}

// batchPending groups pending items with the same rules as Batches.
func batchPending(ps []*pending, size, maxTokens int) [][]*pending {
	items := make([]ContentItem, len(ps))
	for i, p := range ps {
		items[i] = p.item
	}
	var out [][]*pending
	start := 0
	for _, b := range Batches(items, size, maxTokens) {
		out = append(out, ps[start:start+len(b)])
		start += len(b)
	}
	return out
}

func apply(items []model.RawItem, indexes []int, res model.Enrichment) {
	for _, i := range indexes {
		if t := strings.TrimSpace(res.Title); t != "" {
			items[i].Title = t
		}
		if s := strings.TrimSpace(res.Summary); s != "" {
			items[i].Summary = s
		}
	}
}
