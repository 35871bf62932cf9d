package parser

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"feedjam/internal/model"
)

// Twitter reads an account's timeline through a Nitter instance's RSS.
func Twitter(hc *http.Client, nitterBaseURL string) Variant {
	nitterBaseURL = strings.TrimRight(nitterBaseURL, "/")
	return Variant{
		Type: "twitter",
		CanHandle: func(rawURL string) bool {
			if hostIs(rawURL, "twitter.com", "x.com") {
				return true
			}
			u, ok := parseURL(rawURL)
			return ok && strings.HasPrefix(strings.ToLower(u.Hostname()), "nitter.")
		},
		NameFor: func(rawURL string) string {
			if h := twitterHandle(rawURL); h != "" {
				return "twitter-" + h
			}
			return "twitter"
		},
		Parse: func(ctx context.Context, src model.Source) ([]model.RawItem, error) {
			h := twitterHandle(src.ResourceURL)
			if h == "" {
				return nil, fmt.Errorf("no account in %q", src.ResourceURL)
			}
			feed, err := fetchFeed(ctx, hc, nitterBaseURL+"/"+h+"/rss")
			if err != nil {
				return nil, err
			}
			return feedItems(feed), nil
		},
	}
}

func twitterHandle(rawURL string) string {
	u, ok := parseURL(rawURL)
	if !ok {
		return ""
	}
	parts := pathParts(u)
	if len(parts) == 0 {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(parts[0], "@"))
}
