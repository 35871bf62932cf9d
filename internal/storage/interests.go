package storage

import (
	"context"
	"fmt"
	"strings"

	"feedjam/internal/model"

	"gorm.io/gorm"
)

// Interests persists weighted topics per user.
type Interests struct {
	db *gorm.DB
}

func NewInterests(db *gorm.DB) *Interests {
	return &Interests{db: db}
}

// Replace swaps the user's interests for the given set. Topics are
// lowercased; a repeated topic keeps its last weight.
func (s *Interests) Replace(ctx context.Context, userID uint, interests []model.UserInterest) error {
	byTopic := make(map[string]float64, len(interests))
	order := make([]string, 0, len(interests))
	for _, in := range interests {
		topic := strings.ToLower(strings.TrimSpace(in.Topic))
		if topic == "" {
			return fmt.Errorf("%w: empty topic", ErrInvalidInterest)
		}
		if !(in.Weight >= 0 && in.Weight <= 2) {
			return fmt.Errorf("%w: weight %.2f for %q outside [0,2]", ErrInvalidInterest, in.Weight, topic)
		}
		if _, seen := byTopic[topic]; !seen {
			order = append(order, topic)
		}
		byTopic[topic] = in.Weight
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&model.UserInterest{}).Error; err != nil {
			return err
		}
		if len(order) == 0 {
			return nil
		}
		rows := make([]model.UserInterest, 0, len(order))
		for _, topic := range order {
			rows = append(rows, model.UserInterest{UserID: userID, Topic: topic, Weight: byTopic[topic]})
		}
		return tx.Create(&rows).Error
	})
}

func (s *Interests) List(ctx context.Context, userID uint) ([]model.UserInterest, error) {
	var out []model.UserInterest
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("topic").Find(&out).Error
	return out, err
}

// Weights maps lowercased topic to weight.
func (s *Interests) Weights(ctx context.Context, userID uint) (map[string]float64, error) {
	rows, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(rows))
	for _, r := range rows {
		out[strings.ToLower(r.Topic)] = r.Weight
	}
	return out, nil
}
