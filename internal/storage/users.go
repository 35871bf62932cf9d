package storage

import (
	"context"
	"fmt"

	"feedjam/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Users persists feed owners.
type Users struct {
	db *gorm.DB
}

func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

// Create adds an active user, returning the existing row if the username is taken.
func (s *Users) Create(ctx context.Context, username string) (model.User, error) {
	u := model.User{Username: username, IsActive: true}
	db := s.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&u).Error; err != nil {
		return model.User{}, fmt.Errorf("create user %s: %w", username, err)
	}
	return s.ByUsername(ctx, username)
}

func (s *Users) Get(ctx context.Context, id uint) (model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return model.User{}, notFound(err)
	}
	return u, nil
}

func (s *Users) ByUsername(ctx context.Context, username string) (model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return model.User{}, notFound(err)
	}
	return u, nil
}

// Active lists users that take part in scheduled generation.
func (s *Users) Active(ctx context.Context) ([]model.User, error) {
	var out []model.User
	err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("id").Find(&out).Error
	return out, err
}

func (s *Users) List(ctx context.Context) ([]model.User, error) {
	var out []model.User
	err := s.db.WithContext(ctx).Order("id").Find(&out).Error
	return out, err
}
