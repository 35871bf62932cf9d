package model

import "time"

// UserFeed is one generation of a user's ranked feed.
type UserFeed struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"not null;index:idx_user_feeds_user_active,priority:1" json:"user_id"`
	IsActive  bool           `gorm:"not null;default:false;index:idx_user_feeds_user_active,priority:2" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	Items     []UserFeedItem `gorm:"foreignKey:UserFeedID" json:"items,omitempty"`
}

// UserFeedItem is a scored snapshot of a Feed Item inside one generation.
// Engagement flags are not stored here; they come from UserItemState.
type UserFeedItem struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserFeedID  uint       `gorm:"not null;index" json:"user_feed_id"`
	FeedItemID  uint       `gorm:"not null;index" json:"feed_item_id"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	Title       string     `json:"title"`
	SourceName  string     `json:"source_name"`
	Description string     `json:"description"`
	ArticleURL  *string    `json:"article_url,omitempty"`
	CommentsURL *string    `json:"comments_url,omitempty"`
	Points      int        `json:"points"`
	Views       int        `json:"views"`
	Summary     *string    `json:"summary,omitempty"`
	Published   *time.Time `json:"published,omitempty"`
	RankScore   float64    `json:"rank_score"`
	Position    int        `json:"position"`
}
