package model

import "time"

// Source is an external location items are fetched from.
type Source struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null;index" json:"name"`
	ResourceURL string    `gorm:"not null;uniqueIndex" json:"resource_url"`
	SourceType  string    `gorm:"not null" json:"source_type"`
	IsActive    bool      `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// SourceFeedItem associates a Source with the Feed Items it has produced.
type SourceFeedItem struct {
	SourceID   uint `gorm:"primaryKey;autoIncrement:false"`
	FeedItemID uint `gorm:"primaryKey;autoIncrement:false;index"`
}

// Subscription links a user to a Source.
type Subscription struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;uniqueIndex:idx_subscriptions_user_source,priority:1" json:"user_id"`
	SourceID  uint       `gorm:"not null;uniqueIndex:idx_subscriptions_user_source,priority:2;index" json:"source_id"`
	IsActive  bool       `gorm:"not null" json:"is_active"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastError *string    `json:"last_error,omitempty"`
	ItemCount int        `gorm:"not null;default:0" json:"item_count"`
	CreatedAt time.Time  `json:"created_at"`
}
