package parser

import (
	"context"
	"fmt"

	"feedjam/internal/model"
	"feedjam/internal/v2ex"
)

// V2EX reads a node's latest topics (v2ex.com/go/<node>) from the API.
func V2EX(api *v2ex.Client) Variant {
	return Variant{
		Type:      "v2ex",
		HasCounts: true,
		CanHandle: func(rawURL string) bool {
			return hostIs(rawURL, "v2ex.com")
		},
		NameFor: func(rawURL string) string {
			if node := v2exNode(rawURL); node != "" {
				return "v2ex-" + node
			}
			return "v2ex"
		},
		Parse: func(ctx context.Context, src model.Source) ([]model.RawItem, error) {
			node := v2exNode(src.ResourceURL)
			if node == "" {
				return nil, fmt.Errorf("no node in %q", src.ResourceURL)
			}
			return api.TopicsByNode(ctx, node)
		},
	}
}

func v2exNode(rawURL string) string {
	u, ok := parseURL(rawURL)
	if !ok {
		return ""
	}
	parts := pathParts(u)
	if len(parts) >= 2 && parts[0] == "go" {
		return parts[1]
	}
	return ""
}
