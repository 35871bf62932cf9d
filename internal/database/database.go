package database

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"feedjam/internal/config"
	"feedjam/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// slogWriter routes gorm's log lines through slog.
type slogWriter struct{}

func (slogWriter) Printf(format string, args ...any) {
	slog.Warn("database: " + strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// NewLogger logs slow statements and errors to w. Lookups that find no row
// are expected and stay quiet.
func NewLogger(w logger.Writer) logger.Interface {
	return logger.New(w, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

// Open connects to the configured relational store.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  NewLogger(slogWriter{}),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	if cfg.Driver == "sqlite" {
		// SQLite allows a single writer; one connection keeps the worker
		// pool from tripping over "database is locked".
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// Migrate creates or updates every table and index.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Source{},
		&model.SourceFeedItem{},
		&model.FeedItem{},
		&model.Subscription{},
		&model.UserItemState{},
		&model.SourceLikeHistory{},
		&model.UserInterest{},
		&model.UserFeed{},
		&model.UserFeedItem{},
		&model.Job{},
	)
}
