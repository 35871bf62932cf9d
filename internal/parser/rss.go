package parser

import (
	"context"
	"net/http"
	"strings"

	"feedjam/internal/model"

	"github.com/mmcdole/gofeed"
)

var feedPatterns = []string{"/rss", "/feed", "/atom", ".rss", ".xml", "/feeds/", "format=rss", "format=atom"}

func fetchFeed(ctx context.Context, hc *http.Client, feedURL string) (*gofeed.Feed, error) {
	fp := gofeed.NewParser()
	fp.Client = hc
	return fp.ParseURLWithContext(feedURL, ctx)
}

// feedItem maps a generic RSS/Atom entry. The boolean is false for
// entries with neither a link nor an id.
func feedItem(it *gofeed.Item) (model.RawItem, bool) {
	link := strings.TrimSpace(it.Link)
	if link == "" && len(it.Links) > 0 {
		link = strings.TrimSpace(it.Links[0])
	}
	localID := strings.TrimSpace(it.GUID)
	if localID == "" {
		localID = link
	}
	if link == "" {
		link = localID
	}
	if link == "" {
		return model.RawItem{}, false
	}
	title := strings.TrimSpace(it.Title)
	if title == "" {
		title = "Untitled"
	}
	desc := it.Description
	if desc == "" {
		desc = it.Content
	}
	published := it.PublishedParsed
	if published == nil {
		published = it.UpdatedParsed
	}
	return model.RawItem{
		Title:       title,
		Link:        link,
		LocalID:     localID,
		Description: desc,
		ArticleURL:  link,
		Published:   published,
	}, true
}

func feedItems(feed *gofeed.Feed) []model.RawItem {
	out := make([]model.RawItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		if raw, ok := feedItem(it); ok {
			out = append(out, raw)
		}
	}
	return out
}

// RSS is the generic RSS/Atom variant.
func RSS(hc *http.Client) Variant {
	return Variant{
		Type: "rss",
		CanHandle: func(rawURL string) bool {
			lower := strings.ToLower(rawURL)
			for _, p := range feedPatterns {
				if strings.Contains(lower, p) {
					return true
				}
			}
			return false
		},
		NameFor: rssName,
		Parse: func(ctx context.Context, src model.Source) ([]model.RawItem, error) {
			feed, err := fetchFeed(ctx, hc, src.ResourceURL)
			if err != nil {
				return nil, err
			}
			return feedItems(feed), nil
		},
	}
}

func rssName(rawURL string) string {
	u, ok := parseURL(rawURL)
	if !ok {
		return "rss"
	}
	domain := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	path := strings.ReplaceAll(strings.Trim(u.Path, "/"), "/", "-")
	switch path {
	case "", "rss", "feed", "atom", "index.xml":
		return domain
	}
	return domain + "-" + path
}
