package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"feedjam/internal/model"
)

var redditMarkers = []string{"/r/", "/user/", "/u/", ".json", ".rss", "/search", "/top", "/new", "/hot", "/rising"}

const redditSelfTextLimit = 2000

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Permalink   string  `json:"permalink"`
	URL         string  `json:"url"`
	IsSelf      bool    `json:"is_self"`
	SelfText    string  `json:"selftext"`
	Score       int     `json:"score"`
	Ups         int     `json:"ups"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
}

// Reddit reads the JSON listing behind any subreddit, user, multireddit
// or search URL.
func Reddit(hc *http.Client) Variant {
	return Variant{
		Type:      "reddit",
		HasCounts: true,
		CanHandle: func(rawURL string) bool {
			if !hostIs(rawURL, "reddit.com") {
				return false
			}
			lower := strings.ToLower(rawURL)
			for _, m := range redditMarkers {
				if strings.Contains(lower, m) {
					return true
				}
			}
			return false
		},
		NameFor: redditName,
		Parse: func(ctx context.Context, src model.Source) ([]model.RawItem, error) {
			endpoint, err := redditJSONURL(src.ResourceURL)
			if err != nil {
				return nil, err
			}
			posts, err := fetchRedditPosts(ctx, hc, endpoint)
			if err != nil {
				return nil, err
			}
			out := make([]model.RawItem, 0, len(posts))
			for _, p := range posts {
				if raw, ok := redditItem(p); ok {
					out = append(out, raw)
				}
			}
			return out, nil
		},
	}
}

func redditName(rawURL string) string {
	u, ok := parseURL(rawURL)
	if !ok {
		return "reddit"
	}
	var parts []string
	for _, p := range pathParts(u) {
		p = strings.TrimSuffix(strings.TrimSuffix(p, ".json"), ".rss")
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 2 {
		return "reddit"
	}
	switch parts[0] {
	case "r":
		return "reddit-r-" + parts[1]
	case "user", "u":
		if len(parts) >= 4 && parts[2] == "m" {
			return "reddit-m-" + parts[3]
		}
		return "reddit-u-" + parts[1]
	}
	return "reddit"
}

// redditJSONURL rewrites a listing URL to its .json endpoint, keeping the query.
func redditJSONURL(rawURL string) (string, error) {
	u, ok := parseURL(rawURL)
	if !ok {
		return "", fmt.Errorf("invalid reddit url %q", rawURL)
	}
	p := strings.TrimSuffix(strings.TrimRight(u.Path, "/"), ".rss")
	p = strings.TrimRight(p, "/")
	if !strings.HasSuffix(p, ".json") {
		p += ".json"
	}
	u.Path = p
	u.RawPath = ""
	return u.String(), nil
}

func fetchRedditPosts(ctx context.Context, hc *http.Client, endpoint string) ([]redditPost, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("reddit: status %d", resp.StatusCode)
	}

	var body json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("reddit: decode: %w", err)
	}
	// Comment pages answer with [post listing, comment listing].
	var listing redditListing
	if len(body) > 0 && body[0] == '[' {
		var many []redditListing
		if err := json.Unmarshal(body, &many); err != nil {
			return nil, fmt.Errorf("reddit: decode: %w", err)
		}
		if len(many) > 0 {
			listing = many[0]
		}
	} else if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("reddit: decode: %w", err)
	}

	posts := make([]redditPost, 0, len(listing.Data.Children))
	for _, c := range listing.Data.Children {
		posts = append(posts, c.Data)
	}
	return posts, nil
}

func redditItem(p redditPost) (model.RawItem, bool) {
	link := ""
	if p.Permalink != "" {
		link = "https://www.reddit.com" + p.Permalink
	}
	localID := link
	if p.ID != "" {
		localID = "t3_" + p.ID
	}
	if link == "" && localID == "" {
		return model.RawItem{}, false
	}
	if link == "" {
		link = p.URL
	}
	article := p.URL
	if p.IsSelf {
		article = link
	}
	title := p.Title
	if title == "" {
		title = "Untitled"
	}
	points := p.Score
	if points == 0 {
		points = p.Ups
	}
	raw := model.RawItem{
		Title:       title,
		Link:        link,
		LocalID:     localID,
		Description: truncateRunes(p.SelfText, redditSelfTextLimit),
		ArticleURL:  article,
		CommentsURL: link,
		Points:      points,
		NumComments: p.NumComments,
	}
	if p.CreatedUTC > 0 {
		t := time.Unix(int64(p.CreatedUTC), 0).UTC()
		raw.Published = &t
	}
	return raw, true
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
