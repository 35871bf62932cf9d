package feed_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"feedjam/internal/database/dbtest"
	"feedjam/internal/feed"
	"feedjam/internal/model"
	"feedjam/internal/ranking"
	"feedjam/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type env struct {
	db        *gorm.DB
	gen       *feed.Generator
	svc       *feed.Service
	users     *storage.Users
	srcs      *storage.Sources
	subs      *storage.Subscriptions
	items     *storage.Items
	interests *storage.Interests
	likes     *storage.LikeHistory
	feeds     *storage.UserFeeds
	now       time.Time
}

func newEnv(t *testing.T, maxNew int) *env {
	t.Helper()
	db := dbtest.New(t)
	engine := &ranking.Engine{
		Interests:  storage.NewInterests(db),
		Affinities: storage.NewLikeHistory(db),
		HasCounts:  func(st string) bool { return st == "hackernews" || st == "reddit" },
	}
	gen := feed.NewGenerator(db, engine, maxNew)
	e := &env{
		db:        db,
		gen:       gen,
		users:     storage.NewUsers(db),
		srcs:      storage.NewSources(db),
		subs:      storage.NewSubscriptions(db),
		items:     storage.NewItems(db),
		interests: storage.NewInterests(db),
		likes:     storage.NewLikeHistory(db),
		feeds:     storage.NewUserFeeds(db),
		now:       time.Now().UTC(),
	}
	e.svc = feed.NewService(db, gen, func() time.Time { return e.now })
	return e
}

func (e *env) user(t *testing.T, name string) model.User {
	t.Helper()
	u, err := e.users.Create(context.Background(), name)
	require.NoError(t, err)
	return u
}

func (e *env) subscribe(t *testing.T, u model.User, name string) (model.Source, model.Subscription) {
	t.Helper()
	ctx := context.Background()
	src, err := e.srcs.GetOrCreate(ctx, model.Source{Name: name, ResourceURL: "https://" + name + ".example.com/rss", SourceType: "rss", IsActive: true})
	require.NoError(t, err)
	sub, err := e.subs.Subscribe(ctx, u.ID, src.ID)
	require.NoError(t, err)
	return src, sub
}

// add stores an item published age ago.
func (e *env) add(t *testing.T, src model.Source, title string, age time.Duration) model.FeedItem {
	t.Helper()
	ctx := context.Background()
	pub := e.now.Add(-age)
	it := model.FeedItem{Title: title, Link: "https://" + src.Name + ".example.com/" + title, SourceName: src.Name, Published: &pub}
	created, err := e.items.Create(ctx, &it)
	require.NoError(t, err)
	require.True(t, created)
	require.NoError(t, e.items.Associate(ctx, src.ID, it.ID))
	return it
}

func memberIDs(uf *model.UserFeed) []uint {
	var ids []uint
	for _, m := range uf.Items {
		ids = append(ids, m.FeedItemID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func sorted(ids ...uint) []uint {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func TestGenerateRanksByInterest(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 500)
	u := e.user(t, "alice")
	src, _ := e.subscribe(t, u, "blog")
	e.add(t, src, "Python packaging tips", time.Hour)
	rust := e.add(t, src, "Rust 1.80 released", 2*time.Hour)
	e.add(t, src, "Go generics in practice", 3*time.Hour)
	require.NoError(t, e.interests.Replace(ctx, u.ID, []model.UserInterest{{Topic: "Rust", Weight: 1}}))

	uf, err := e.gen.Generate(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, uf.Items, 3)
	assert.Equal(t, rust.ID, uf.Items[0].FeedItemID)
	assert.Greater(t, uf.Items[0].RankScore, uf.Items[1].RankScore)

	active, err := e.feeds.Active(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	for i, m := range active.Items {
		assert.Equal(t, i, m.Position)
	}
	assert.Equal(t, rust.ID, active.Items[0].FeedItemID)
}

func TestGenerateCarriesUnreadAndNeverResurfacesRead(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 500)
	u := e.user(t, "alice")
	src, _ := e.subscribe(t, u, "blog")
	a := e.add(t, src, "a", time.Hour)
	b := e.add(t, src, "b", 2*time.Hour)
	c := e.add(t, src, "c", 3*time.Hour)

	_, err := e.gen.Generate(ctx, u.ID)
	require.NoError(t, err)
	require.NoError(t, e.svc.MarkRead(ctx, u.ID, a.ID, true))
	d := e.add(t, src, "d", time.Minute)

	uf, err := e.gen.Generate(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, sorted(b.ID, c.ID, d.ID), memberIDs(uf))

	uf, err = e.gen.Generate(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, sorted(b.ID, c.ID, d.ID), memberIDs(uf))

	n, err := e.feeds.ActiveCount(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestGenerateKeepsCarriedSnapshot(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 500)
	u := e.user(t, "alice")
	src, _ := e.subscribe(t, u, "blog")
	it := e.add(t, src, "original", time.Hour)

	_, err := e.gen.Generate(ctx, u.ID)
	require.NoError(t, err)
	require.NoError(t, e.db.Model(&model.FeedItem{}).Where("id = ?", it.ID).Update("title", "edited").Error)

	uf, err := e.gen.Generate(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, uf.Items, 1)
	assert.Equal(t, "original", uf.Items[0].Title)
}

func TestGenerateSkipsInactiveSubscriptionsAndCaps(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 2)
	u := e.user(t, "alice")
	src, _ := e.subscribe(t, u, "blog")
	off, offSub := e.subscribe(t, u, "muted")
	newest := e.add(t, src, "n1", time.Minute)
	second := e.add(t, src, "n2", 2*time.Minute)
	e.add(t, src, "n3", 3*time.Minute)
	e.add(t, off, "m1", time.Second)
	require.NoError(t, e.subs.SetActive(ctx, offSub.ID, false))

	uf, err := e.gen.Generate(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, sorted(newest.ID, second.ID), memberIDs(uf))
}

func TestGenerateUnknownUser(t *testing.T) {
	e := newEnv(t, 500)
	err := e.gen.GenerateUserFeed(context.Background(), 999)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestConcurrentGenerationLeavesOneActive(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 500)
	u := e.user(t, "alice")
	src, _ := e.subscribe(t, u, "blog")
	for _, title := range []string{"a", "b", "c", "d"} {
		e.add(t, src, title, time.Hour)
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, e.gen.GenerateUserFeed(ctx, u.ID))
		}()
	}
	wg.Wait()

	n, err := e.feeds.ActiveCount(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	active, err := e.feeds.Active(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, active.Items, 4)
}

type brokenInterests struct{}

func (brokenInterests) Weights(context.Context, uint) (map[string]float64, error) {
	return nil, errors.New("db down")
}

func TestFailedGenerationKeepsPreviousActive(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 500)
	u := e.user(t, "alice")
	src, _ := e.subscribe(t, u, "blog")
	e.add(t, src, "first", time.Hour)

	first, err := e.gen.Generate(ctx, u.ID)
	require.NoError(t, err)

	e.add(t, src, "second", 30*time.Minute)
	e.gen.Ranker.Interests = brokenInterests{}
	_, err = e.gen.Generate(ctx, u.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")

	active, err := e.feeds.Active(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, active.ID)
	assert.Equal(t, memberIDs(first), memberIDs(active))
	n, err := e.feeds.ActiveCount(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestServiceTogglesTrackLikeHistory(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 500)
	u := e.user(t, "alice")
	src, _ := e.subscribe(t, u, "blog")
	it := e.add(t, src, "post", time.Hour)

	disliked, err := e.svc.ToggleDisliked(ctx, u.ID, it.ID)
	require.NoError(t, err)
	assert.True(t, disliked)
	h, err := e.likes.Get(ctx, u.ID, "blog")
	require.NoError(t, err)
	assert.Equal(t, 0, h.LikeCount)
	assert.Equal(t, 1, h.DislikeCount)

	liked, err := e.svc.ToggleLiked(ctx, u.ID, it.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	h, err = e.likes.Get(ctx, u.ID, "blog")
	require.NoError(t, err)
	assert.Equal(t, 1, h.LikeCount)
	assert.Equal(t, 0, h.DislikeCount)

	liked, err = e.svc.ToggleLiked(ctx, u.ID, it.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	h, err = e.likes.Get(ctx, u.ID, "blog")
	require.NoError(t, err)
	assert.Equal(t, 0, h.LikeCount)

	starred, err := e.svc.ToggleStarred(ctx, u.ID, it.ID)
	require.NoError(t, err)
	assert.True(t, starred)

	_, err = e.svc.ToggleHidden(ctx, u.ID, 12345)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestToggleRollsBackWhenLikeHistoryFails(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 500)
	u := e.user(t, "alice")
	src, _ := e.subscribe(t, u, "blog")
	it := e.add(t, src, "post", time.Hour)
	require.NoError(t, e.db.Migrator().DropTable(&model.SourceLikeHistory{}))

	_, err := e.svc.ToggleLiked(ctx, u.ID, it.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update like history")

	states, err := storage.NewStates(e.db).StatesFor(ctx, u.ID, []uint{it.ID})
	require.NoError(t, err)
	assert.False(t, states[it.ID].Liked)
}

func TestLikedSourceRanksHigher(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 500)
	u := e.user(t, "alice")
	fav, _ := e.subscribe(t, u, "fav")
	other, _ := e.subscribe(t, u, "other")
	liked := e.add(t, fav, "liked one", 5*time.Hour)
	fresh := e.add(t, fav, "fresh", time.Hour)
	e.add(t, other, "meh", 30*time.Minute)

	_, err := e.svc.ToggleLiked(ctx, u.ID, liked.ID)
	require.NoError(t, err)
	require.NoError(t, e.svc.MarkRead(ctx, u.ID, liked.ID, true))

	uf, err := e.gen.Generate(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, uf.Items, 2)
	assert.Equal(t, fresh.ID, uf.Items[0].FeedItemID)
}

func TestMarkAllReadAndHideRead(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 500)
	u := e.user(t, "alice")
	src, _ := e.subscribe(t, u, "blog")
	a := e.add(t, src, "a", time.Hour)
	b := e.add(t, src, "b", 2*time.Hour)
	c := e.add(t, src, "c", 3*time.Hour)
	_, err := e.gen.Generate(ctx, u.ID)
	require.NoError(t, err)

	hidden, err := e.svc.ToggleHidden(ctx, u.ID, c.ID)
	require.NoError(t, err)
	require.True(t, hidden)

	ids, err := e.svc.MarkAllRead(ctx, u.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{a.ID, b.ID}, ids)

	entries, err := e.svc.ActiveFeed(ctx, u.ID, false)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, en := range entries {
		assert.True(t, en.Read)
	}

	ids, err = e.svc.HideRead(ctx, u.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{a.ID, b.ID}, ids)

	entries, err = e.svc.ActiveFeed(ctx, u.ID, false)
	require.NoError(t, err)
	assert.Empty(t, entries)
	entries, err = e.svc.ActiveFeed(ctx, u.ID, true)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	results, err := e.svc.Search(ctx, u.ID, storage.SearchQuery{Hidden: func() *bool { b := true; return &b }()})
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestDailyDigest(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 500)
	u := e.user(t, "alice")
	src, _ := e.subscribe(t, u, "blog")
	for _, title := range []string{"go one", "go two", "rust", "zig", "odin", "c", "nim"} {
		e.add(t, src, title, time.Hour)
	}
	require.NoError(t, e.interests.Replace(ctx, u.ID, []model.UserInterest{{Topic: "go", Weight: 1}}))

	top, err := e.svc.DailyDigest(ctx, u.ID, 0)
	require.NoError(t, err)
	require.Len(t, top, 5)
	assert.Contains(t, []string{"go one", "go two"}, top[0].Title)
	assert.Contains(t, []string{"go one", "go two"}, top[1].Title)
	assert.Equal(t, "rss", top[0].SourceType)

	e.now = e.now.Add(48 * time.Hour)
	top, err = e.svc.DailyDigest(ctx, u.ID, 3)
	require.NoError(t, err)
	assert.Empty(t, top)
}
