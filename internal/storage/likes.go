package storage

import (
	"context"

	"feedjam/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeHistory aggregates likes and dislikes per user and source.
type LikeHistory struct {
	db *gorm.DB
}

func NewLikeHistory(db *gorm.DB) *LikeHistory {
	return &LikeHistory{db: db}
}

// WithTx returns a LikeHistory bound to tx.
func (s *LikeHistory) WithTx(tx *gorm.DB) *LikeHistory {
	return &LikeHistory{db: tx}
}

// Apply adds the deltas to the user's counts for a source. Counts never
// drop below zero.
func (s *LikeHistory) Apply(ctx context.Context, userID uint, sourceName string, likeDelta, dislikeDelta int) error {
	if sourceName == "" || (likeDelta == 0 && dislikeDelta == 0) {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := model.SourceLikeHistory{UserID: userID, SourceName: sourceName}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			return err
		}
		return tx.Model(&model.SourceLikeHistory{}).
			Where("user_id = ? AND source_name = ?", userID, sourceName).
			Updates(map[string]any{
				"like_count":    gorm.Expr("CASE WHEN like_count + ? < 0 THEN 0 ELSE like_count + ? END", likeDelta, likeDelta),
				"dislike_count": gorm.Expr("CASE WHEN dislike_count + ? < 0 THEN 0 ELSE dislike_count + ? END", dislikeDelta, dislikeDelta),
			}).Error
	})
}

func (s *LikeHistory) Get(ctx context.Context, userID uint, sourceName string) (model.SourceLikeHistory, error) {
	var h model.SourceLikeHistory
	err := s.db.WithContext(ctx).Where("user_id = ? AND source_name = ?", userID, sourceName).First(&h).Error
	if err != nil {
		return model.SourceLikeHistory{}, notFound(err)
	}
	return h, nil
}

// Affinities maps source name to affinity in [-1,1]; sources without any
// likes or dislikes are absent.
func (s *LikeHistory) Affinities(ctx context.Context, userID uint) (map[string]float64, error) {
	var rows []model.SourceLikeHistory
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(rows))
	for _, r := range rows {
		if a, ok := r.Affinity(); ok {
			out[r.SourceName] = a
		}
	}
	return out, nil
}
