// Package dbtest provides migrated in-memory databases for tests.
package dbtest

import (
	"fmt"
	"testing"

	"feedjam/internal/config"
	"feedjam/internal/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// New returns a fresh migrated SQLite database private to t.
func New(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
