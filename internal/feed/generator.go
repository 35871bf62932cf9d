// Package feed builds ranked feed generations and applies user actions
// to them.
package feed

import (
	"context"
	"fmt"
	"log/slog"

	"feedjam/internal/model"
	"feedjam/internal/ranking"
	"feedjam/internal/storage"

	"gorm.io/gorm"
)

// Generator produces a new active generation per user. Unread members of
// the current generation are carried over; anything the user has read is
// never brought back.
type Generator struct {
	Users   *storage.Users
	Items   *storage.Items
	Sources *storage.Sources
	States  *storage.States
	Feeds   *storage.UserFeeds
	Ranker  *ranking.Engine
	// MaxNewItems caps fresh candidates per run; zero or negative means no cap.
	MaxNewItems int
}

func NewGenerator(db *gorm.DB, ranker *ranking.Engine, maxNewItems int) *Generator {
	return &Generator{
		Users:       storage.NewUsers(db),
		Items:       storage.NewItems(db),
		Sources:     storage.NewSources(db),
		States:      storage.NewStates(db),
		Feeds:       storage.NewUserFeeds(db),
		Ranker:      ranker,
		MaxNewItems: maxNewItems,
	}
}

// GenerateUserFeed replaces the user's active generation.
func (g *Generator) GenerateUserFeed(ctx context.Context, userID uint) error {
	_, err := g.Generate(ctx, userID)
	return err
}

// Generate is GenerateUserFeed returning the stored generation.
func (g *Generator) Generate(ctx context.Context, userID uint) (*model.UserFeed, error) {
	if _, err := g.Users.Get(ctx, userID); err != nil {
		return nil, fmt.Errorf("user %d: %w", userID, err)
	}

	exclude, err := g.States.ReadItemIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load read items: %w", err)
	}
	carry, err := g.carryOver(ctx, userID, exclude)
	if err != nil {
		return nil, err
	}

	limit := g.MaxNewItems
	if limit < 0 {
		limit = 0
	}
	fresh, err := g.Items.ReachableForUser(ctx, userID, exclude, limit)
	if err != nil {
		return nil, err
	}

	candidates := append(carry, itemCandidates(fresh)...)
	if err := g.fillSourceTypes(ctx, candidates); err != nil {
		return nil, err
	}
	ranked, err := g.Ranker.ComputeScores(ctx, userID, candidates)
	if err != nil {
		return nil, fmt.Errorf("rank: %w", err)
	}

	uf, err := g.Feeds.Swap(ctx, userID, members(userID, ranked))
	if err != nil {
		return nil, fmt.Errorf("swap generation: %w", err)
	}
	slog.Info("feed: generated", "user", userID, "generation", uf.ID, "carried", len(carry), "new", len(fresh))
	return uf, nil
}

// carryOver returns unread members of the active generation and adds every
// member id to exclude.
func (g *Generator) carryOver(ctx context.Context, userID uint, exclude map[uint]struct{}) ([]ranking.Candidate, error) {
	active, err := g.Feeds.Active(ctx, userID)
	if err != nil || active == nil {
		return nil, err
	}
	ids := make([]uint, 0, len(active.Items))
	for _, m := range active.Items {
		ids = append(ids, m.FeedItemID)
	}
	states, err := g.States.StatesFor(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("load member states: %w", err)
	}
	var out []ranking.Candidate
	for _, m := range active.Items {
		_, seen := exclude[m.FeedItemID]
		exclude[m.FeedItemID] = struct{}{}
		if seen || states[m.FeedItemID].Read {
			continue
		}
		out = append(out, memberCandidate(m))
	}
	return out, nil
}

func (g *Generator) fillSourceTypes(ctx context.Context, cs []ranking.Candidate) error {
	names := make([]string, 0, len(cs))
	seen := make(map[string]bool)
	for _, c := range cs {
		if !seen[c.SourceName] {
			seen[c.SourceName] = true
			names = append(names, c.SourceName)
		}
	}
	types, err := g.Sources.TypesByName(ctx, names)
	if err != nil {
		return fmt.Errorf("load source types: %w", err)
	}
	for i := range cs {
		if t, ok := types[cs[i].SourceName]; ok && t != "" {
			cs[i].SourceType = t
		} else {
			cs[i].SourceType = ranking.InferSourceType(cs[i].SourceName)
		}
	}
	return nil
}

func memberCandidate(m model.UserFeedItem) ranking.Candidate {
	return ranking.Candidate{
		FeedItemID:  m.FeedItemID,
		Title:       m.Title,
		SourceName:  m.SourceName,
		Description: m.Description,
		Summary:     m.Summary,
		ArticleURL:  m.ArticleURL,
		CommentsURL: m.CommentsURL,
		Points:      m.Points,
		Views:       m.Views,
		Published:   m.Published,
	}
}

func itemCandidates(items []model.FeedItem) []ranking.Candidate {
	out := make([]ranking.Candidate, 0, len(items))
	for _, it := range items {
		out = append(out, ranking.Candidate{
			FeedItemID:  it.ID,
			Title:       it.Title,
			Link:        it.Link,
			SourceName:  it.SourceName,
			Description: it.Description,
			Summary:     it.Summary,
			ArticleURL:  it.ArticleURL,
			CommentsURL: it.CommentsURL,
			Points:      it.Points,
			Views:       it.Views,
			Published:   it.Published,
			CreatedAt:   it.CreatedAt,
		})
	}
	return out
}

func members(userID uint, ranked []ranking.Candidate) []model.UserFeedItem {
	out := make([]model.UserFeedItem, 0, len(ranked))
	for _, c := range ranked {
		out = append(out, model.UserFeedItem{
			UserID:      userID,
			FeedItemID:  c.FeedItemID,
			Title:       c.Title,
			SourceName:  c.SourceName,
			Description: c.Description,
			ArticleURL:  c.ArticleURL,
			CommentsURL: c.CommentsURL,
			Points:      c.Points,
			Views:       c.Views,
			Summary:     c.Summary,
			Published:   c.Published,
			RankScore:   c.Score,
		})
	}
	return out
}
