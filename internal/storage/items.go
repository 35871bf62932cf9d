package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"feedjam/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Items persists canonical Feed Items and their association to sources.
type Items struct {
	db *gorm.DB
}

func NewItems(db *gorm.DB) *Items {
	return &Items{db: db}
}

// Find looks an item up by (source_name, local_id) when localID is set,
// otherwise by link. It returns nil when no item matches.
func (s *Items) Find(ctx context.Context, sourceName, localID, link string) (*model.FeedItem, error) {
	q := s.db.WithContext(ctx)
	if localID != "" {
		q = q.Where("source_name = ? AND local_id = ?", sourceName, localID)
	} else {
		q = q.Where("link = ?", link)
	}
	var it model.FeedItem
	err := q.Order("id").First(&it).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// Create inserts it unless a unique index already holds an equal item.
// created is false when the insert was skipped; it.ID is then zero.
func (s *Items) Create(ctx context.Context, it *model.FeedItem) (created bool, err error) {
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(it)
	if res.Error != nil {
		return false, fmt.Errorf("insert feed item %q: %w", it.Link, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Associate records that sourceID produced itemID. Repeats are no-ops.
func (s *Items) Associate(ctx context.Context, sourceID, itemID uint) error {
	link := model.SourceFeedItem{SourceID: sourceID, FeedItemID: itemID}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error
}

func (s *Items) Get(ctx context.Context, id uint) (model.FeedItem, error) {
	var it model.FeedItem
	if err := s.db.WithContext(ctx).First(&it, id).Error; err != nil {
		return model.FeedItem{}, notFound(err)
	}
	return it, nil
}

// CountForSource returns how many items are associated with a source.
func (s *Items) CountForSource(ctx context.Context, sourceID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.SourceFeedItem{}).Where("source_id = ?", sourceID).Count(&n).Error
	return n, err
}

func (s *Items) reachable(ctx context.Context, userID uint) *gorm.DB {
	sub := s.db.Table("source_feed_items AS sfi").
		Select("sfi.feed_item_id").
		Joins("JOIN subscriptions AS s ON s.source_id = sfi.source_id").
		Where("s.user_id = ? AND s.is_active = ?", userID, true)
	return s.db.WithContext(ctx).Model(&model.FeedItem{}).
		Where("feed_items.id IN (?)", sub).
		Order("feed_items.published IS NULL, feed_items.published DESC, feed_items.created_at DESC, feed_items.id DESC")
}

// ReachableForUser streams items from the user's active subscriptions,
// newest first, skipping ids in exclude. A positive limit caps the result.
func (s *Items) ReachableForUser(ctx context.Context, userID uint, exclude map[uint]struct{}, limit int) ([]model.FeedItem, error) {
	rows, err := s.reachable(ctx, userID).Rows()
	if err != nil {
		return nil, fmt.Errorf("query reachable items: %w", err)
	}
	defer rows.Close()

	var out []model.FeedItem
	for rows.Next() {
		var it model.FeedItem
		if err := s.db.ScanRows(rows, &it); err != nil {
			return nil, err
		}
		if _, skip := exclude[it.ID]; skip {
			continue
		}
		out = append(out, it)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, rows.Err()
}

// RecentForUser returns up to limit items created since the given time
// in the user's active subscriptions.
func (s *Items) RecentForUser(ctx context.Context, userID uint, since time.Time, limit int) ([]model.FeedItem, error) {
	var out []model.FeedItem
	err := s.reachable(ctx, userID).
		Where("feed_items.created_at >= ?", since).
		Limit(limit).
		Find(&out).Error
	return out, err
}
