package v2ex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"feedjam/internal/model"
)

// DefaultBaseURL is the public V2EX site.
const DefaultBaseURL = "https://www.v2ex.com"

type Client struct {
	baseURL string
	client  *http.Client
	token   string
}

// NewClient creates a V2EX API client. An empty baseURL means
// DefaultBaseURL; a nil httpClient uses a client with a 10s timeout.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
		token:   token,
	}
}

// Topic represents a subset of V2EX topic fields.
type Topic struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Replies int    `json:"replies"`
	URL     string `json:"url"`
	Content string `json:"content"`
	Node    struct {
		Name string `json:"name"`
	} `json:"node"`
	Created int64 `json:"created"`
}

// TopicsByNode fetches the latest topics of a node.
// API: GET /api/topics/show.json?node_name={node}
func (c *Client) TopicsByNode(ctx context.Context, node string) ([]model.RawItem, error) {
	endpoint := fmt.Sprintf("%s/api/topics/show.json", c.baseURL)
	q := url.Values{"node_name": {node}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("v2ex: status %d", resp.StatusCode)
	}
	var raw []Topic
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("v2ex: decode: %w", err)
	}
	items := make([]model.RawItem, 0, len(raw))
	for _, t := range raw {
		link := t.URL
		if link == "" {
			link = fmt.Sprintf("%s/t/%d", c.baseURL, t.ID)
		}
		it := model.RawItem{
			Title:       t.Title,
			Link:        link,
			LocalID:     strconv.Itoa(t.ID),
			Description: t.Content,
			CommentsURL: link,
			Points:      t.Replies,
			NumComments: t.Replies,
		}
		if t.Created > 0 {
			created := time.Unix(t.Created, 0).UTC()
			it.Published = &created
		}
		items = append(items, it)
	}
	return items, nil
}
