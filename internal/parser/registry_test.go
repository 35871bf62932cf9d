package parser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"feedjam/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectTypeAndName(t *testing.T) {
	r := NewDefault(Options{})
	cases := []struct {
		url, typ, name string
	}{
		{"https://hnrss.org/frontpage", "hackernews", "hackernews-frontpage"},
		{"https://hnrss.org/newest?points=100", "hackernews", "hackernews-newest"},
		{"https://news.ycombinator.com/rss", "hackernews", "hackernews-frontpage"},
		{"https://news.ycombinator.com/", "hackernews", "hackernews-frontpage"},
		{"https://www.reddit.com/r/golang/", "reddit", "reddit-r-golang"},
		{"https://www.reddit.com/user/spez.json", "reddit", "reddit-u-spez"},
		{"https://www.reddit.com/user/someone/m/tech", "reddit", "reddit-m-tech"},
		{"https://t.me/durov", "telegram", "telegram-durov"},
		{"https://t.me/s/durov", "telegram", "telegram-durov"},
		{"https://www.youtube.com/channel/UCabcdefghijklmnop", "youtube", "youtube-UCabcdefghij"},
		{"https://www.youtube.com/@veritasium", "youtube", "youtube-@veritasium"},
		{"https://github.com/golang/go", "github", "github-golang-go-activity"},
		{"https://github.com/golang/go/releases.atom", "github", "github-golang-go-releases"},
		{"https://github.com/torvalds.atom", "github", "github-torvalds"},
		{"https://twitter.com/golang", "twitter", "twitter-golang"},
		{"https://x.com/@Golang", "twitter", "twitter-golang"},
		{"https://www.v2ex.com/go/python", "v2ex", "v2ex-python"},
		{"https://www.example.com/rss", "rss", "example.com"},
		{"https://blog.example.com/posts/index.xml", "rss", "blog.example.com-posts-index.xml"},
		{"https://www.reddit.com/", "rss", "reddit.com"},
		{"not a url", "rss", "rss"},
	}
	for _, c := range cases {
		t.Run(c.url, func(t *testing.T) {
			assert.Equal(t, c.typ, r.DetectType(c.url))
			assert.Equal(t, c.name, r.NameFor(c.url))
		})
	}
}

func TestRegistryMetadata(t *testing.T) {
	r := NewDefault(Options{})
	assert.Equal(t, []string{"hackernews", "reddit", "telegram", "youtube", "github", "twitter", "v2ex", "rss"}, r.Types())

	assert.True(t, r.HasCounts("hackernews"))
	assert.True(t, r.HasCounts("reddit"))
	assert.True(t, r.HasCounts("youtube"))
	assert.True(t, r.HasCounts("github"))
	assert.False(t, r.HasCounts("rss"))
	assert.False(t, r.HasCounts("telegram"))
	assert.False(t, r.HasCounts("unknown"))

	src := r.NewSource("  https://t.me/durov ")
	assert.Equal(t, model.Source{Name: "telegram-durov", ResourceURL: "https://t.me/durov", SourceType: "telegram", IsActive: true}, src)
}

func TestParseUnknownType(t *testing.T) {
	r := NewDefault(Options{})
	items, err := r.Parse(context.Background(), model.Source{ResourceURL: "https://x", SourceType: "gopher"})
	assert.Nil(t, items)
	assert.True(t, errors.Is(err, ErrNoParser))
}

func TestParseSurfacesFetchErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewDefault(Options{HTTPClient: srv.Client()})
	items, err := r.Parse(context.Background(), model.Source{ResourceURL: srv.URL + "/feed", SourceType: "rss"})
	require.Error(t, err)
	assert.Nil(t, items)
	assert.Equal(t, 1, calls, "parsers must not retry")
}

func TestParseDetectsEmptyType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssFixture))
	}))
	defer srv.Close()

	r := NewDefault(Options{HTTPClient: srv.Client()})
	items, err := r.Parse(context.Background(), model.Source{ResourceURL: srv.URL + "/feed"})
	require.NoError(t, err)
	assert.Len(t, items, 2)
}
