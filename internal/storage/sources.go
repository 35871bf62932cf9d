package storage

import (
	"context"
	"fmt"

	"feedjam/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Sources persists external sources, unique by resource URL.
type Sources struct {
	db *gorm.DB
}

func NewSources(db *gorm.DB) *Sources {
	return &Sources{db: db}
}

// GetOrCreate inserts src unless a source with the same resource URL
// exists, and returns the stored row either way.
func (s *Sources) GetOrCreate(ctx context.Context, src model.Source) (model.Source, error) {
	db := s.db.WithContext(ctx)
	src.ID = 0
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&src).Error; err != nil {
		return model.Source{}, fmt.Errorf("create source %s: %w", src.ResourceURL, err)
	}
	return s.ByURL(ctx, src.ResourceURL)
}

func (s *Sources) Get(ctx context.Context, id uint) (model.Source, error) {
	var src model.Source
	if err := s.db.WithContext(ctx).First(&src, id).Error; err != nil {
		return model.Source{}, notFound(err)
	}
	return src, nil
}

func (s *Sources) ByURL(ctx context.Context, resourceURL string) (model.Source, error) {
	var src model.Source
	if err := s.db.WithContext(ctx).Where("resource_url = ?", resourceURL).First(&src).Error; err != nil {
		return model.Source{}, notFound(err)
	}
	return src, nil
}

// List returns every source ordered by id.
func (s *Sources) List(ctx context.Context) ([]model.Source, error) {
	var out []model.Source
	err := s.db.WithContext(ctx).Order("id").Find(&out).Error
	return out, err
}

// UpdateType changes the parser type of a source that has no items yet.
func (s *Sources) UpdateType(ctx context.Context, id uint, sourceType string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var src model.Source
		if err := tx.First(&src, id).Error; err != nil {
			return notFound(err)
		}
		if src.SourceType == sourceType {
			return nil
		}
		var n int64
		if err := tx.Model(&model.SourceFeedItem{}).Where("source_id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrSourceTypeLocked
		}
		return tx.Model(&model.Source{}).Where("id = ?", id).Update("source_type", sourceType).Error
	})
}

// TypesByName maps source names to their source types.
func (s *Sources) TypesByName(ctx context.Context, names []string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	if len(names) == 0 {
		return out, nil
	}
	var rows []model.Source
	if err := s.db.WithContext(ctx).Select("name", "source_type").Where("name IN ?", names).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.Name] = r.SourceType
	}
	return out, nil
}
