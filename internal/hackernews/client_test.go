package hackernews

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStories(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/topstories.json":
			fmt.Fprint(w, `[1,2,3,4]`)
		case "/item/1.json":
			fmt.Fprint(w, `{"id":1,"type":"story","title":"Show HN: Thing","url":"https://thing.dev","score":120,"descendants":40,"time":1700000000}`)
		case "/item/2.json":
			fmt.Fprint(w, `{"id":2,"type":"story","title":"Ask HN: Why?","text":"<p>Because &amp; so</p>","score":5,"kids":[9,10],"time":1700000100}`)
		case "/item/3.json":
			fmt.Fprint(w, `{"id":3,"dead":true}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	items, err := c.Stories(context.Background(), ListTop, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "1", items[0].LocalID)
	assert.Equal(t, "https://thing.dev", items[0].Link)
	assert.Equal(t, "https://thing.dev", items[0].ArticleURL)
	assert.Equal(t, "https://news.ycombinator.com/item?id=1", items[0].CommentsURL)
	assert.Equal(t, 120, items[0].Points)
	assert.Equal(t, 40, items[0].NumComments)
	require.NotNil(t, items[0].Published)

	assert.Equal(t, "https://news.ycombinator.com/item?id=2", items[1].Link)
	assert.Empty(t, items[1].ArticleURL)
	assert.Equal(t, "Because & so", items[1].Description)
	assert.Equal(t, 2, items[1].NumComments)
}

func TestStoriesListError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).Stories(context.Background(), ListNew, 5)
	assert.Error(t, err)
}

func TestStoriesFailsWhenNoItemLoads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/topstories.json" {
			fmt.Fprint(w, `[1,2,3]`)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, srv.Client()).Stories(context.Background(), ListTop, 10)
	assert.ErrorContains(t, err, "all 3 items failed")
}
