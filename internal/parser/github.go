package parser

import (
	"context"
	"net/http"
	"strings"

	"feedjam/internal/model"
)

// GitHub reads repository release/tag/commit feeds and user activity feeds.
func GitHub(hc *http.Client) Variant {
	return Variant{
		Type:      "github",
		HasCounts: true,
		CanHandle: func(rawURL string) bool {
			return hostIs(rawURL, "github.com")
		},
		NameFor: githubName,
		Parse: func(ctx context.Context, src model.Source) ([]model.RawItem, error) {
			feed, err := fetchFeed(ctx, hc, githubFeedURL(src.ResourceURL))
			if err != nil {
				return nil, err
			}
			out := make([]model.RawItem, 0, len(feed.Items))
			for _, it := range feed.Items {
				raw, ok := feedItem(it)
				if !ok {
					continue
				}
				if it.Content != "" {
					raw.Description = it.Content
				}
				out = append(out, raw)
			}
			return out, nil
		},
	}
}

func githubName(rawURL string) string {
	u, ok := parseURL(rawURL)
	if !ok {
		return "github"
	}
	parts := pathParts(u)
	if n := len(parts); n > 0 {
		parts[n-1] = strings.TrimSuffix(parts[n-1], ".atom")
	}
	switch {
	case len(parts) >= 3:
		return "github-" + parts[0] + "-" + parts[1] + "-" + parts[2]
	case len(parts) == 2:
		return "github-" + parts[0] + "-" + parts[1] + "-activity"
	case len(parts) == 1:
		return "github-" + parts[0]
	}
	return "github"
}

// githubFeedURL ensures the URL points at an Atom feed: repositories map
// to their releases feed and users to their activity feed.
func githubFeedURL(rawURL string) string {
	if strings.HasSuffix(rawURL, ".atom") {
		return rawURL
	}
	u, ok := parseURL(rawURL)
	if !ok {
		return rawURL
	}
	trimmed := strings.TrimRight(rawURL, "/")
	parts := pathParts(u)
	switch {
	case len(parts) >= 3 && (parts[2] == "releases" || parts[2] == "commits" || parts[2] == "tags"):
		return trimmed + ".atom"
	case len(parts) == 2:
		return trimmed + "/releases.atom"
	case len(parts) == 1:
		return trimmed + ".atom"
	}
	return rawURL
}
