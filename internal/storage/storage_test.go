package storage_test

import (
	"context"
	"testing"

	"feedjam/internal/database/dbtest"
	"feedjam/internal/model"
	"feedjam/internal/storage"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db     *gorm.DB
	users  *storage.Users
	srcs   *storage.Sources
	items  *storage.Items
	subs   *storage.Subscriptions
	states *storage.States
	likes  *storage.LikeHistory
	feeds  *storage.UserFeeds
	jobs   *storage.Jobs
}

func newFixture(t *testing.T) fixture {
	db := dbtest.New(t)
	return fixture{
		db:     db,
		users:  storage.NewUsers(db),
		srcs:   storage.NewSources(db),
		items:  storage.NewItems(db),
		subs:   storage.NewSubscriptions(db),
		states: storage.NewStates(db),
		likes:  storage.NewLikeHistory(db),
		feeds:  storage.NewUserFeeds(db),
		jobs:   storage.NewJobs(db),
	}
}

func (f fixture) source(t *testing.T, name, url string) model.Source {
	t.Helper()
	src, err := f.srcs.GetOrCreate(context.Background(), model.Source{Name: name, ResourceURL: url, SourceType: "rss", IsActive: true})
	require.NoError(t, err)
	return src
}

func (f fixture) item(t *testing.T, src model.Source, title, link string) model.FeedItem {
	t.Helper()
	it := model.FeedItem{Title: title, Link: link, SourceName: src.Name}
	created, err := f.items.Create(context.Background(), &it)
	require.NoError(t, err)
	require.True(t, created)
	require.NoError(t, f.items.Associate(context.Background(), src.ID, it.ID))
	return it
}

func boolp(b bool) *bool { return &b }
