package storage

import (
	"context"
	"fmt"
	"time"

	"feedjam/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxLastErrorLen = 500

// Subscriptions persists user to source links and their fetch bookkeeping.
type Subscriptions struct {
	db *gorm.DB
}

func NewSubscriptions(db *gorm.DB) *Subscriptions {
	return &Subscriptions{db: db}
}

// Subscribe creates an active subscription, reactivating an existing one.
func (s *Subscriptions) Subscribe(ctx context.Context, userID, sourceID uint) (model.Subscription, error) {
	db := s.db.WithContext(ctx)
	sub := model.Subscription{UserID: userID, SourceID: sourceID, IsActive: true}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&sub).Error; err != nil {
		return model.Subscription{}, fmt.Errorf("create subscription: %w", err)
	}
	if err := db.Model(&model.Subscription{}).
		Where("user_id = ? AND source_id = ?", userID, sourceID).
		Update("is_active", true).Error; err != nil {
		return model.Subscription{}, err
	}
	var out model.Subscription
	if err := db.Where("user_id = ? AND source_id = ?", userID, sourceID).First(&out).Error; err != nil {
		return model.Subscription{}, notFound(err)
	}
	return out, nil
}

func (s *Subscriptions) Get(ctx context.Context, id uint) (model.Subscription, error) {
	var sub model.Subscription
	if err := s.db.WithContext(ctx).First(&sub, id).Error; err != nil {
		return model.Subscription{}, notFound(err)
	}
	return sub, nil
}

func (s *Subscriptions) ForUser(ctx context.Context, userID uint) ([]model.Subscription, error) {
	var out []model.Subscription
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&out).Error
	return out, err
}

// SetActive toggles whether the subscription feeds generation and fetching.
func (s *Subscriptions) SetActive(ctx context.Context, id uint, active bool) error {
	res := s.db.WithContext(ctx).Model(&model.Subscription{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Due lists active subscriptions never run or last run before now-interval.
func (s *Subscriptions) Due(ctx context.Context, now time.Time, interval time.Duration) ([]model.Subscription, error) {
	var out []model.Subscription
	cutoff := now.Add(-interval)
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("(last_run IS NULL OR last_run < ?)", cutoff).
		Order("id").
		Find(&out).Error
	return out, err
}

// RecordSuccess clears the last error and stores the parsed item count.
func (s *Subscriptions) RecordSuccess(ctx context.Context, id uint, at time.Time, itemCount int) error {
	return s.db.WithContext(ctx).Model(&model.Subscription{}).Where("id = ?", id).Updates(map[string]any{
		"last_run":   at,
		"last_error": nil,
		"item_count": itemCount,
	}).Error
}

// RecordFailure stores a truncated error and still advances last_run so
// the next scheduled cycle retries.
func (s *Subscriptions) RecordFailure(ctx context.Context, id uint, at time.Time, cause error) error {
	msg := cause.Error()
	if r := []rune(msg); len(r) > maxLastErrorLen {
		msg = string(r[:maxLastErrorLen])
	}
	return s.db.WithContext(ctx).Model(&model.Subscription{}).Where("id = ?", id).Updates(map[string]any{
		"last_run":   at,
		"last_error": msg,
	}).Error
}
