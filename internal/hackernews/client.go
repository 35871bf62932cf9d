package hackernews

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"feedjam/internal/model"

	"github.com/microcosm-cc/bluemonday"
)

// DefaultBaseAPI is the public Firebase endpoint.
// Docs: https://github.com/HackerNews/API
const DefaultBaseAPI = "https://hacker-news.firebaseio.com/v0"

// Story lists exposed by the API.
const (
	ListTop  = "topstories"
	ListNew  = "newstories"
	ListBest = "beststories"
	ListAsk  = "askstories"
	ListShow = "showstories"
	ListJob  = "jobstories"
)

// Client is a minimal Hacker News API client.
type Client struct {
	baseAPI string
	client  *http.Client
	policy  *bluemonday.Policy
}

// NewClient creates a client against baseAPI, defaulting to DefaultBaseAPI.
// A nil httpClient uses a client with a 10s timeout.
func NewClient(baseAPI string, httpClient *http.Client) *Client {
	if strings.TrimSpace(baseAPI) == "" {
		baseAPI = DefaultBaseAPI
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseAPI: strings.TrimRight(baseAPI, "/"),
		client:  httpClient,
		policy:  bluemonday.StrictPolicy(),
	}
}

type hnItem struct {
	ID          int    `json:"id"`
	Type        string `json:"type"`
	By          string `json:"by"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Text        string `json:"text"`
	Time        int64  `json:"time"`
	Kids        []int  `json:"kids"`
	Descendants int    `json:"descendants"`
	Score       int    `json:"score"`
	Dead        bool   `json:"dead"`
	Deleted     bool   `json:"deleted"`
}

// Stories fetches up to limit items of a story list, in list order.
// Items that fail to load are skipped.
func (c *Client) Stories(ctx context.Context, list string, limit int) ([]model.RawItem, error) {
	ids, err := c.fetchIDs(ctx, list)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	slog.Debug("hackernews: fetching items", "list", list, "count", len(ids))
	items, failed := c.itemsByIDs(ctx, ids)
	if failed > 0 {
		if failed == len(ids) {
			return nil, fmt.Errorf("hackernews: %s: all %d items failed to load", list, failed)
		}
		slog.Warn("hackernews: items skipped", "list", list, "failed", failed, "loaded", len(items))
	}
	return items, nil
}

// Item fetches a single item by id.
func (c *Client) Item(ctx context.Context, id int) (model.RawItem, bool, error) {
	var it hnItem
	if err := c.getJSON(ctx, fmt.Sprintf("%s/item/%d.json", c.baseAPI, id), &it); err != nil {
		return model.RawItem{}, false, err
	}
	if it.ID == 0 || it.Dead || it.Deleted {
		return model.RawItem{}, false, nil
	}
	return c.convert(it), true, nil
}

func (c *Client) fetchIDs(ctx context.Context, list string) ([]int, error) {
	var ids []int
	if err := c.getJSON(ctx, fmt.Sprintf("%s/%s.json", c.baseAPI, url.PathEscape(list)), &ids); err != nil {
		return nil, fmt.Errorf("hackernews: %s: %w", list, err)
	}
	return ids, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// itemsByIDs resolves ids with bounded concurrency, preserving order. It
// reports how many ids failed to load. Each request is bounded by the HTTP
// client, so queuing behind a rate limiter does not eat into it.
func (c *Client) itemsByIDs(ctx context.Context, ids []int) ([]model.RawItem, int) {
	const maxWorkers = 8
	type slot struct {
		item model.RawItem
		ok   bool
	}
	slots := make([]slot, len(ids))
	sem := make(chan struct{}, maxWorkers)
	var (
		wg     sync.WaitGroup
		failed atomic.Int32
	)
	for i, id := range ids {
		wg.Add(1)
		sem <- struct{}{}
		go func(i, id int) {
			defer wg.Done()
			defer func() { <-sem }()
			it, ok, err := c.Item(ctx, id)
			if err != nil {
				failed.Add(1)
				slog.Debug("hackernews: skip item", "id", id, "err", err)
				return
			}
			slots[i] = slot{item: it, ok: ok}
		}(i, id)
	}
	wg.Wait()

	items := make([]model.RawItem, 0, len(ids))
	for _, s := range slots {
		if s.ok {
			items = append(items, s.item)
		}
	}
	return items, int(failed.Load())
}

func (c *Client) convert(h hnItem) model.RawItem {
	id := strconv.Itoa(h.ID)
	discussion := "https://news.ycombinator.com/item?id=" + id
	link := strings.TrimSpace(h.URL)
	if link == "" {
		link = discussion
	}
	published := time.Unix(h.Time, 0).UTC()
	it := model.RawItem{
		Title:       h.Title,
		Link:        link,
		LocalID:     id,
		Description: strings.TrimSpace(html.UnescapeString(c.policy.Sanitize(h.Text))),
		CommentsURL: discussion,
		Points:      h.Score,
		NumComments: max(h.Descendants, len(h.Kids)),
		Published:   &published,
	}
	if h.URL != "" {
		it.ArticleURL = link
	}
	return it
}
