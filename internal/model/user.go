package model

import "time"

// User is a feed owner. Authentication lives elsewhere.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"not null;uniqueIndex" json:"username"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserItemState holds a user's engagement flags for one Feed Item.
// It is independent of any feed generation.
type UserItemState struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_user_item_states_user_item,priority:1" json:"user_id"`
	FeedItemID uint      `gorm:"not null;uniqueIndex:idx_user_item_states_user_item,priority:2" json:"feed_item_id"`
	Read       bool      `gorm:"not null;default:false" json:"read"`
	Liked      bool      `gorm:"not null;default:false" json:"liked"`
	Disliked   bool      `gorm:"not null;default:false" json:"disliked"`
	Starred    bool      `gorm:"not null;default:false" json:"starred"`
	Hidden     bool      `gorm:"not null;default:false" json:"hidden"`
	UpdatedAt  time.Time `gorm:"index" json:"updated_at"`
}

// SourceLikeHistory aggregates a user's likes and dislikes per source.
type SourceLikeHistory struct {
	ID           uint   `gorm:"primaryKey"`
	UserID       uint   `gorm:"not null;uniqueIndex:idx_source_like_histories_user_source,priority:1"`
	SourceName   string `gorm:"not null;uniqueIndex:idx_source_like_histories_user_source,priority:2"`
	LikeCount    int    `gorm:"not null;default:0"`
	DislikeCount int    `gorm:"not null;default:0"`
}

// Affinity returns (likes-dislikes)/(likes+dislikes); ok is false when
// the source has no history.
func (h SourceLikeHistory) Affinity() (float64, bool) {
	total := h.LikeCount + h.DislikeCount
	if total == 0 {
		return 0, false
	}
	return float64(h.LikeCount-h.DislikeCount) / float64(total), true
}

// UserInterest is a weighted topic; topics are stored lowercased.
type UserInterest struct {
	ID     uint    `gorm:"primaryKey" json:"id"`
	UserID uint    `gorm:"not null;uniqueIndex:idx_user_interests_user_topic,priority:1" json:"user_id"`
	Topic  string  `gorm:"not null;uniqueIndex:idx_user_interests_user_topic,priority:2" json:"topic"`
	Weight float64 `gorm:"not null" json:"weight"`
}
