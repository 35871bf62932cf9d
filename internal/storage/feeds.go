package storage

import (
	"context"
	"errors"
	"fmt"

	"feedjam/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserFeeds persists feed generations.
type UserFeeds struct {
	db *gorm.DB
}

func NewUserFeeds(db *gorm.DB) *UserFeeds {
	return &UserFeeds{db: db}
}

// Active returns the user's active generation with its members in ranked
// order, or nil when the user has none.
func (s *UserFeeds) Active(ctx context.Context, userID uint) (*model.UserFeed, error) {
	var uf model.UserFeed
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position, id") }).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("id DESC").
		First(&uf).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load active feed: %w", err)
	}
	return &uf, nil
}

// Swap retires every active generation of the user and stores members as
// the new active one, in one transaction. The user row is locked first so
// concurrent swaps for the same user commit one after the other.
func (s *UserFeeds) Swap(ctx context.Context, userID uint, members []model.UserFeedItem) (*model.UserFeed, error) {
	uf := &model.UserFeed{UserID: userID, IsActive: true}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var users []model.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", userID).Find(&users).Error; err != nil {
			return fmt.Errorf("lock user: %w", err)
		}
		if err := tx.Model(&model.UserFeed{}).
			Where("user_id = ?", userID).
			Update("is_active", false).Error; err != nil {
			return fmt.Errorf("deactivate feeds: %w", err)
		}
		if err := tx.Create(uf).Error; err != nil {
			return fmt.Errorf("create feed: %w", err)
		}
		if len(members) == 0 {
			return nil
		}
		for i := range members {
			members[i].ID = 0
			members[i].UserFeedID = uf.ID
			members[i].UserID = userID
			members[i].Position = i
		}
		if err := tx.CreateInBatches(members, 200).Error; err != nil {
			return fmt.Errorf("create feed items: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uf.Items = members
	return uf, nil
}

// ActiveCount reports how many generations are active for the user.
func (s *UserFeeds) ActiveCount(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.UserFeed{}).Where("user_id = ? AND is_active = ?", userID, true).Count(&n).Error
	return n, err
}

// FeedEntry is an active generation member joined with the user's state.
type FeedEntry struct {
	model.UserFeedItem
	Read     bool `json:"read"`
	Liked    bool `json:"liked"`
	Disliked bool `json:"disliked"`
	Starred  bool `json:"starred"`
	Hidden   bool `json:"hidden"`
}

func (s *UserFeeds) activeMembers(ctx context.Context, userID uint) *gorm.DB {
	return s.db.WithContext(ctx).Table("user_feed_items AS ufi").
		Joins("JOIN user_feeds AS uf ON uf.id = ufi.user_feed_id AND uf.is_active = ?", true).
		Joins("LEFT JOIN user_item_states AS st ON st.feed_item_id = ufi.feed_item_id AND st.user_id = ufi.user_id").
		Where("ufi.user_id = ?", userID)
}

// Entries lists the active generation in ranked order with state joined.
func (s *UserFeeds) Entries(ctx context.Context, userID uint, includeHidden bool) ([]FeedEntry, error) {
	q := s.activeMembers(ctx, userID).Select(`ufi.*,
		COALESCE(st.read, false) AS read, COALESCE(st.liked, false) AS liked,
		COALESCE(st.disliked, false) AS disliked, COALESCE(st.starred, false) AS starred,
		COALESCE(st.hidden, false) AS hidden`)
	if !includeHidden {
		q = q.Where("COALESCE(st.hidden, false) = ?", false)
	}
	var out []FeedEntry
	err := q.Order("ufi.position, ufi.id").Scan(&out).Error
	return out, err
}

// MemberIDs returns feed item ids of unhidden active members whose read
// flag equals read.
func (s *UserFeeds) MemberIDs(ctx context.Context, userID uint, read bool) ([]uint, error) {
	var ids []uint
	err := s.activeMembers(ctx, userID).
		Where("COALESCE(st.read, false) = ? AND COALESCE(st.hidden, false) = ?", read, false).
		Order("ufi.position").
		Pluck("ufi.feed_item_id", &ids).Error
	return ids, err
}
