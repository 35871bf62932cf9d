// Package ingest stores parsed items exactly once and links them to the
// sources that produced them.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"feedjam/internal/enrich"
	"feedjam/internal/model"
	"feedjam/internal/storage"
)

// Ingester deduplicates raw items into canonical Feed Items.
type Ingester struct {
	Items *storage.Items
}

func New(items *storage.Items) *Ingester {
	return &Ingester{Items: items}
}

// sanitize drops invalid UTF-8 and control characters other than tab,
// newline and carriage return.
func sanitize(s string) string {
	s = strings.ToValidUTF8(s, "")
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

func sanitizeItem(it model.RawItem) model.RawItem {
	it.Title = sanitize(it.Title)
	it.Link = sanitize(strings.TrimSpace(it.Link))
	it.LocalID = sanitize(strings.TrimSpace(it.LocalID))
	it.Description = sanitize(it.Description)
	it.ArticleURL = sanitize(it.ArticleURL)
	it.CommentsURL = sanitize(it.CommentsURL)
	it.Summary = sanitize(it.Summary)
	return it
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toFeedItem(src model.Source, it model.RawItem) model.FeedItem {
	return model.FeedItem{
		Title:       it.Title,
		Link:        it.Link,
		SourceName:  src.Name,
		LocalID:     optional(it.LocalID),
		Description: it.Description,
		ArticleURL:  optional(it.ArticleURL),
		CommentsURL: optional(it.CommentsURL),
		Points:      it.Points,
		Views:       it.Views,
		NumComments: it.NumComments,
		Summary:     optional(it.Summary),
		Published:   it.Published,
	}
}

// existing returns the stored item matching it and links it to src.
func (in *Ingester) existing(ctx context.Context, src model.Source, it model.RawItem) (*model.FeedItem, error) {
	found, err := in.Items.Find(ctx, src.Name, it.LocalID, it.Link)
	if err != nil || found == nil {
		return nil, err
	}
	if err := in.Items.Associate(ctx, src.ID, found.ID); err != nil {
		return nil, fmt.Errorf("associate item %d: %w", found.ID, err)
	}
	return found, nil
}

// IngestItems stores items not seen before and returns only those. Items
// that already exist are linked to src. Safe to repeat.
func (in *Ingester) IngestItems(ctx context.Context, src model.Source, raw []model.RawItem) ([]model.FeedItem, error) {
	var created []model.FeedItem
	for _, r := range raw {
		r = sanitizeItem(r)
		if r.Link == "" && r.LocalID == "" {
			slog.Warn("ingest: skipping item without link or id", "source", src.Name, "title", r.Title)
			continue
		}
		if r.Link == "" {
			r.Link = r.LocalID
		}
		found, err := in.existing(ctx, src, r)
		if err != nil {
			return created, err
		}
		if found != nil {
			continue
		}

		fi := toFeedItem(src, r)
		ok, err := in.Items.Create(ctx, &fi)
		if err != nil {
			return created, err
		}
		if !ok {
			// Lost a race with a concurrent insert of the same item.
			if _, err := in.existing(ctx, src, r); err != nil {
				return created, err
			}
			continue
		}
		if err := in.Items.Associate(ctx, src.ID, fi.ID); err != nil {
			return created, fmt.Errorf("associate item %d: %w", fi.ID, err)
		}
		created = append(created, fi)
	}
	return created, nil
}

// Pipeline enriches new items before ingesting them.
type Pipeline struct {
	Ingester *Ingester
	Enricher *enrich.Enricher
}

func NewPipeline(in *Ingester, e *enrich.Enricher) *Pipeline {
	return &Pipeline{Ingester: in, Enricher: e}
}

// IngestAndEnrich links items that already exist to src, enriches the rest
// and stores them. Existing items are never sent for enrichment again.
func (p *Pipeline) IngestAndEnrich(ctx context.Context, src model.Source, raw []model.RawItem) error {
	fresh := make([]model.RawItem, 0, len(raw))
	for _, r := range raw {
		r = sanitizeItem(r)
		link := r.Link
		if link == "" {
			link = r.LocalID
		}
		found, err := p.Ingester.existing(ctx, src, model.RawItem{LocalID: r.LocalID, Link: link})
		if err != nil {
			return err
		}
		if found == nil {
			fresh = append(fresh, r)
		}
	}
	if len(fresh) == 0 {
		slog.Debug("ingest: nothing new", "source", src.Name, "seen", len(raw))
		return nil
	}
	if p.Enricher.Enabled() {
		fresh = p.Enricher.Enrich(ctx, src.Name, fresh)
	}
	created, err := p.Ingester.IngestItems(ctx, src, fresh)
	if err != nil {
		return err
	}
	slog.Info("ingest: stored items", "source", src.Name, "new", len(created), "seen", len(raw))
	return nil
}
