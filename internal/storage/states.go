package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"feedjam/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// States persists per-user engagement flags. Rows outlive feed generations.
type States struct {
	db *gorm.DB
}

func NewStates(db *gorm.DB) *States {
	return &States{db: db}
}

func getOrCreateState(tx *gorm.DB, userID, itemID uint) (model.UserItemState, error) {
	fresh := model.UserItemState{UserID: userID, FeedItemID: itemID}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&fresh).Error; err != nil {
		return model.UserItemState{}, fmt.Errorf("create item state: %w", err)
	}
	var st model.UserItemState
	if err := tx.Where("user_id = ? AND feed_item_id = ?", userID, itemID).First(&st).Error; err != nil {
		return model.UserItemState{}, notFound(err)
	}
	return st, nil
}

func itemSourceName(tx *gorm.DB, itemID uint) (string, error) {
	var it model.FeedItem
	if err := tx.Select("id", "source_name").First(&it, itemID).Error; err != nil {
		return "", notFound(err)
	}
	return it.SourceName, nil
}

// GetOrCreate returns the user's state for an item, creating an all-false
// row on first touch.
func (s *States) GetOrCreate(ctx context.Context, userID, itemID uint) (model.UserItemState, error) {
	var st model.UserItemState
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := itemSourceName(tx, itemID); err != nil {
			return err
		}
		var err error
		st, err = getOrCreateState(tx, userID, itemID)
		return err
	})
	return st, err
}

// Flag names one toggleable engagement flag.
type Flag string

const (
	FlagLiked    Flag = "liked"
	FlagDisliked Flag = "disliked"
	FlagStarred  Flag = "starred"
	FlagHidden   Flag = "hidden"
)

// Transition is one state change and the source of the item it touched.
type Transition struct {
	Before     model.UserItemState
	After      model.UserItemState
	SourceName string
}

// apply runs fn against the current state inside one transaction and
// persists every flag. A non-nil then runs in the same transaction after
// the write; its error rolls the change back.
func (s *States) apply(ctx context.Context, userID, itemID uint, fn func(*model.UserItemState), then func(tx *gorm.DB, tr Transition) error) (Transition, error) {
	var tr Transition
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		name, err := itemSourceName(tx, itemID)
		if err != nil {
			return err
		}
		st, err := getOrCreateState(tx, userID, itemID)
		if err != nil {
			return err
		}
		tr.Before = st
		fn(&st)
		st.UpdatedAt = tx.NowFunc()
		tr.After = st
		tr.SourceName = name
		err = tx.Model(&model.UserItemState{}).Where("id = ?", st.ID).Updates(map[string]any{
			"read":       st.Read,
			"liked":      st.Liked,
			"disliked":   st.Disliked,
			"starred":    st.Starred,
			"hidden":     st.Hidden,
			"updated_at": st.UpdatedAt,
		}).Error
		if err != nil || then == nil {
			return err
		}
		return then(tx, tr)
	})
	if err != nil {
		return Transition{}, err
	}
	return tr, nil
}

// Toggle flips one flag. Liking clears disliked and hidden, disliking
// clears liked, hiding clears liked and un-hiding marks the item unread.
func (s *States) Toggle(ctx context.Context, userID, itemID uint, flag Flag) (Transition, error) {
	return s.ToggleThen(ctx, userID, itemID, flag, nil)
}

// ToggleThen is Toggle with then run inside the same transaction, so
// bookkeeping derived from the transition commits or rolls back with it.
func (s *States) ToggleThen(ctx context.Context, userID, itemID uint, flag Flag, then func(tx *gorm.DB, tr Transition) error) (Transition, error) {
	var fn func(*model.UserItemState)
	switch flag {
	case FlagLiked:
		fn = func(st *model.UserItemState) {
			st.Liked = !st.Liked
			if st.Liked {
				st.Disliked = false
				st.Hidden = false
			}
		}
	case FlagDisliked:
		fn = func(st *model.UserItemState) {
			st.Disliked = !st.Disliked
			if st.Disliked {
				st.Liked = false
			}
		}
	case FlagStarred:
		fn = func(st *model.UserItemState) { st.Starred = !st.Starred }
	case FlagHidden:
		fn = func(st *model.UserItemState) {
			st.Hidden = !st.Hidden
			if st.Hidden {
				st.Liked = false
			} else {
				st.Read = false
			}
		}
	default:
		return Transition{}, fmt.Errorf("unknown flag %q", flag)
	}
	return s.apply(ctx, userID, itemID, fn, then)
}

func (s *States) toggleFlag(ctx context.Context, userID, itemID uint, flag Flag, get func(model.UserItemState) bool) (bool, string, error) {
	tr, err := s.Toggle(ctx, userID, itemID, flag)
	if err != nil {
		return false, "", err
	}
	return get(tr.After), tr.SourceName, nil
}

// ToggleLiked flips liked and returns the new value and the item's source.
func (s *States) ToggleLiked(ctx context.Context, userID, itemID uint) (bool, string, error) {
	return s.toggleFlag(ctx, userID, itemID, FlagLiked, func(st model.UserItemState) bool { return st.Liked })
}

func (s *States) ToggleDisliked(ctx context.Context, userID, itemID uint) (bool, string, error) {
	return s.toggleFlag(ctx, userID, itemID, FlagDisliked, func(st model.UserItemState) bool { return st.Disliked })
}

func (s *States) ToggleStarred(ctx context.Context, userID, itemID uint) (bool, string, error) {
	return s.toggleFlag(ctx, userID, itemID, FlagStarred, func(st model.UserItemState) bool { return st.Starred })
}

func (s *States) ToggleHidden(ctx context.Context, userID, itemID uint) (bool, string, error) {
	return s.toggleFlag(ctx, userID, itemID, FlagHidden, func(st model.UserItemState) bool { return st.Hidden })
}

// SetRead sets the read flag of one item.
func (s *States) SetRead(ctx context.Context, userID, itemID uint, read bool) error {
	_, err := s.apply(ctx, userID, itemID, func(st *model.UserItemState) { st.Read = read }, nil)
	return err
}

const bulkChunk = 200

func (s *States) bulkSet(ctx context.Context, userID uint, itemIDs []uint, updates map[string]any) error {
	if len(itemIDs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates["updated_at"] = tx.NowFunc()
		for start := 0; start < len(itemIDs); start += bulkChunk {
			chunk := itemIDs[start:min(start+bulkChunk, len(itemIDs))]
			rows := make([]model.UserItemState, 0, len(chunk))
			for _, id := range chunk {
				rows = append(rows, model.UserItemState{UserID: userID, FeedItemID: id})
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
				return fmt.Errorf("create item states: %w", err)
			}
			if err := tx.Model(&model.UserItemState{}).
				Where("user_id = ? AND feed_item_id IN ?", userID, chunk).
				Updates(updates).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// BulkMarkRead marks every given item read.
func (s *States) BulkMarkRead(ctx context.Context, userID uint, itemIDs []uint) error {
	return s.bulkSet(ctx, userID, itemIDs, map[string]any{"read": true})
}

// BulkMarkHidden hides every given item, clearing liked.
func (s *States) BulkMarkHidden(ctx context.Context, userID uint, itemIDs []uint) error {
	return s.bulkSet(ctx, userID, itemIDs, map[string]any{"hidden": true, "liked": false})
}

// ReadItemIDs returns every item the user has ever marked read.
func (s *States) ReadItemIDs(ctx context.Context, userID uint) (map[uint]struct{}, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&model.UserItemState{}).
		Where("user_id = ? AND read = ?", userID, true).
		Pluck("feed_item_id", &ids).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

// StatesFor loads existing states for the given items keyed by item id.
func (s *States) StatesFor(ctx context.Context, userID uint, itemIDs []uint) (map[uint]model.UserItemState, error) {
	out := make(map[uint]model.UserItemState, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}
	var rows []model.UserItemState
	if err := s.db.WithContext(ctx).Where("user_id = ? AND feed_item_id IN ?", userID, itemIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.FeedItemID] = r
	}
	return out, nil
}

// SearchQuery filters the user's item history. Nil flags are ignored.
type SearchQuery struct {
	Read     *bool
	Liked    *bool
	Disliked *bool
	Starred  *bool
	Hidden   *bool
	Text     string
	Source   string
	Limit    int
	Offset   int
}

// SearchResult is an item joined with the user's state for it.
type SearchResult struct {
	FeedItemID  uint       `json:"feed_item_id"`
	Title       string     `json:"title"`
	Link        string     `json:"link"`
	SourceName  string     `json:"source_name"`
	Description string     `json:"description"`
	Summary     *string    `json:"summary,omitempty"`
	ArticleURL  *string    `json:"article_url,omitempty"`
	CommentsURL *string    `json:"comments_url,omitempty"`
	Points      int        `json:"points"`
	Views       int        `json:"views"`
	Published   *time.Time `json:"published,omitempty"`
	Read        bool       `json:"read"`
	Liked       bool       `json:"liked"`
	Disliked    bool       `json:"disliked"`
	Starred     bool       `json:"starred"`
	Hidden      bool       `json:"hidden"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

// Search returns items the user has interacted with, most recently
// updated first.
func (s *States) Search(ctx context.Context, userID uint, q SearchQuery) ([]SearchResult, error) {
	tx := s.db.WithContext(ctx).Table("user_item_states AS st").
		Select(`st.feed_item_id, st.read, st.liked, st.disliked, st.starred, st.hidden, st.updated_at,
			fi.title, fi.link, fi.source_name, fi.description, fi.summary, fi.article_url,
			fi.comments_url, fi.points, fi.views, fi.published`).
		Joins("JOIN feed_items AS fi ON fi.id = st.feed_item_id").
		Where("st.user_id = ?", userID)

	flags := []struct {
		col string
		val *bool
	}{
		{"st.read", q.Read},
		{"st.liked", q.Liked},
		{"st.disliked", q.Disliked},
		{"st.starred", q.Starred},
		{"st.hidden", q.Hidden},
	}
	for _, f := range flags {
		if f.val != nil {
			tx = tx.Where(f.col+" = ?", *f.val)
		}
	}
	if q.Text != "" {
		p := likePattern(q.Text)
		tx = tx.Where(`(LOWER(fi.title) LIKE ? ESCAPE '\' OR LOWER(COALESCE(fi.summary, '')) LIKE ? ESCAPE '\' OR LOWER(fi.description) LIKE ? ESCAPE '\')`, p, p, p)
	}
	if q.Source != "" {
		tx = tx.Where(`LOWER(fi.source_name) LIKE ? ESCAPE '\'`, likePattern(q.Source))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	var out []SearchResult
	err := tx.Order("st.updated_at DESC, st.id DESC").Limit(limit).Offset(q.Offset).Scan(&out).Error
	return out, err
}
