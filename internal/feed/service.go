package feed

import (
	"context"
	"fmt"
	"time"

	"feedjam/internal/model"
	"feedjam/internal/ranking"
	"feedjam/internal/storage"

	"gorm.io/gorm"
)

const (
	digestWindow     = 24 * time.Hour
	digestCandidates = 100
	defaultDigestN   = 5
)

// Service applies user actions to item state and keeps the per-source
// like history in step with them.
type Service struct {
	States    *storage.States
	Likes     *storage.LikeHistory
	Feeds     *storage.UserFeeds
	Items     *storage.Items
	Generator *Generator
	Now       func() time.Time
}

func NewService(db *gorm.DB, gen *Generator, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		States:    storage.NewStates(db),
		Likes:     storage.NewLikeHistory(db),
		Feeds:     storage.NewUserFeeds(db),
		Items:     storage.NewItems(db),
		Generator: gen,
		Now:       now,
	}
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *Service) toggle(ctx context.Context, userID, itemID uint, flag storage.Flag) (storage.Transition, error) {
	return s.States.ToggleThen(ctx, userID, itemID, flag, func(tx *gorm.DB, tr storage.Transition) error {
		likeDelta := b2i(tr.After.Liked) - b2i(tr.Before.Liked)
		dislikeDelta := b2i(tr.After.Disliked) - b2i(tr.Before.Disliked)
		if err := s.Likes.WithTx(tx).Apply(ctx, userID, tr.SourceName, likeDelta, dislikeDelta); err != nil {
			return fmt.Errorf("update like history: %w", err)
		}
		return nil
	})
}

// ToggleLiked flips liked and returns the new value.
func (s *Service) ToggleLiked(ctx context.Context, userID, itemID uint) (bool, error) {
	tr, err := s.toggle(ctx, userID, itemID, storage.FlagLiked)
	return tr.After.Liked, err
}

func (s *Service) ToggleDisliked(ctx context.Context, userID, itemID uint) (bool, error) {
	tr, err := s.toggle(ctx, userID, itemID, storage.FlagDisliked)
	return tr.After.Disliked, err
}

func (s *Service) ToggleStarred(ctx context.Context, userID, itemID uint) (bool, error) {
	tr, err := s.toggle(ctx, userID, itemID, storage.FlagStarred)
	return tr.After.Starred, err
}

func (s *Service) ToggleHidden(ctx context.Context, userID, itemID uint) (bool, error) {
	tr, err := s.toggle(ctx, userID, itemID, storage.FlagHidden)
	return tr.After.Hidden, err
}

func (s *Service) MarkRead(ctx context.Context, userID, itemID uint, read bool) error {
	return s.States.SetRead(ctx, userID, itemID, read)
}

// MarkAllRead marks every unread, visible member of the active generation
// read and returns their item ids.
func (s *Service) MarkAllRead(ctx context.Context, userID uint) ([]uint, error) {
	ids, err := s.Feeds.MemberIDs(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	return ids, s.States.BulkMarkRead(ctx, userID, ids)
}

// HideRead hides every read, visible member of the active generation and
// returns their item ids.
func (s *Service) HideRead(ctx context.Context, userID uint) ([]uint, error) {
	ids, err := s.Feeds.MemberIDs(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	return ids, s.States.BulkMarkHidden(ctx, userID, ids)
}

func (s *Service) ActiveFeed(ctx context.Context, userID uint, includeHidden bool) ([]storage.FeedEntry, error) {
	return s.Feeds.Entries(ctx, userID, includeHidden)
}

func (s *Service) Search(ctx context.Context, userID uint, q storage.SearchQuery) ([]storage.SearchResult, error) {
	return s.States.Search(ctx, userID, q)
}

// DailyDigest ranks items that arrived in the user's subscriptions over
// the last day and returns the best topN.
func (s *Service) DailyDigest(ctx context.Context, userID uint, topN int) ([]ranking.Candidate, error) {
	if topN <= 0 {
		topN = defaultDigestN
	}
	recent, err := s.Items.RecentForUser(ctx, userID, s.Now().Add(-digestWindow), digestCandidates)
	if err != nil {
		return nil, err
	}
	cs := itemCandidates(recent)
	if err := s.Generator.fillSourceTypes(ctx, cs); err != nil {
		return nil, err
	}
	ranked, err := s.Generator.Ranker.ComputeScores(ctx, userID, cs)
	if err != nil {
		return nil, err
	}
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked, nil
}

// Generate rebuilds the user's feed.
func (s *Service) Generate(ctx context.Context, userID uint) (*model.UserFeed, error) {
	return s.Generator.Generate(ctx, userID)
}
