package model

import "time"

// RawItem is what a parser produces before ingestion.
// An empty LocalID means the source has no stable identifier and
// deduplication falls back to Link.
type RawItem struct {
	Title       string
	Link        string
	LocalID     string
	Description string
	ArticleURL  string
	CommentsURL string
	Points      int
	Views       int
	NumComments int
	Summary     string
	Published   *time.Time
}

// FeedItem is the canonical, deduplicated unit of ingested content.
//
// At most one row exists per (source_name, local_id); rows without a
// local_id are unique by link.
type FeedItem struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"not null" json:"title"`
	Link        string     `gorm:"not null;uniqueIndex:idx_feed_items_link,where:local_id IS NULL" json:"link"`
	SourceName  string     `gorm:"not null;uniqueIndex:idx_feed_items_source_local,priority:1" json:"source_name"`
	LocalID     *string    `gorm:"uniqueIndex:idx_feed_items_source_local,priority:2" json:"local_id,omitempty"`
	Description string     `json:"description"`
	ArticleURL  *string    `json:"article_url,omitempty"`
	CommentsURL *string    `json:"comments_url,omitempty"`
	Points      int        `gorm:"not null;default:0" json:"points"`
	Views       int        `gorm:"not null;default:0" json:"views"`
	NumComments int        `gorm:"not null;default:0" json:"num_comments"`
	Summary     *string    `json:"summary,omitempty"`
	Published   *time.Time `gorm:"index" json:"published,omitempty"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
}
