package parser

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"feedjam/internal/hackernews"
	"feedjam/internal/model"

	"github.com/PuerkitoBio/goquery"
)

// hnStoryLimit bounds how many stories an API-backed source fetches.
const hnStoryLimit = 60

// news.ycombinator.com pages served from the Firebase API.
var hnPageLists = map[string]string{
	"":       hackernews.ListTop,
	"news":   hackernews.ListTop,
	"newest": hackernews.ListNew,
	"best":   hackernews.ListBest,
	"ask":    hackernews.ListAsk,
	"show":   hackernews.ListShow,
	"jobs":   hackernews.ListJob,
}

// HackerNews handles hnrss.org feeds, news.ycombinator.com/rss, and the
// news.ycombinator.com list pages.
func HackerNews(hc *http.Client, api *hackernews.Client) Variant {
	return Variant{
		Type:      "hackernews",
		HasCounts: true,
		CanHandle: func(rawURL string) bool {
			return hostIs(rawURL, "hnrss.org", "news.ycombinator.com")
		},
		NameFor: hackerNewsName,
		Parse: func(ctx context.Context, src model.Source) ([]model.RawItem, error) {
			if list, ok := hnAPIList(src.ResourceURL); ok {
				return api.Stories(ctx, list, hnStoryLimit)
			}
			feed, err := fetchFeed(ctx, hc, src.ResourceURL)
			if err != nil {
				return nil, err
			}
			out := make([]model.RawItem, 0, len(feed.Items))
			for _, it := range feed.Items {
				raw, ok := feedItem(it)
				if !ok {
					continue
				}
				applyHNSummary(&raw, it.Description)
				if raw.CommentsURL == "" && strings.HasPrefix(it.GUID, "http") {
					raw.CommentsURL = it.GUID
				}
				if raw.CommentsURL == "" {
					raw.CommentsURL = raw.Link
				}
				out = append(out, raw)
			}
			return out, nil
		},
	}
}

func hackerNewsName(rawURL string) string {
	last := ""
	if u, ok := parseURL(rawURL); ok {
		if parts := pathParts(u); len(parts) > 0 {
			last = parts[len(parts)-1]
		}
	}
	if last == "" || last == "rss" {
		last = "frontpage"
	}
	return "hackernews-" + last
}

func hnAPIList(rawURL string) (string, bool) {
	if !hostIs(rawURL, "news.ycombinator.com") {
		return "", false
	}
	u, _ := parseURL(rawURL)
	list, ok := hnPageLists[strings.Trim(u.Path, "/")]
	return list, ok
}

// applyHNSummary extracts the metadata paragraphs hnrss.org puts in each
// item description; remaining paragraphs become the description.
func applyHNSummary(raw *model.RawItem, summary string) {
	if strings.TrimSpace(summary) == "" {
		return
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(summary))
	if err != nil {
		return
	}
	var rest []string
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := strings.TrimSpace(p.Text())
		key, val, _ := strings.Cut(text, ":")
		val = strings.TrimSpace(val)
		switch key {
		case "Article URL":
			raw.ArticleURL = val
		case "Comments URL":
			raw.CommentsURL = val
		case "Points":
			if n, err := strconv.Atoi(val); err == nil {
				raw.Points = n
			}
		case "# Comments":
			if n, err := strconv.Atoi(val); err == nil {
				raw.NumComments = n
			}
		default:
			if text != "" {
				rest = append(rest, text)
			}
		}
	})
	raw.Description = strings.Join(rest, " ")
	if raw.ArticleURL == "" {
		raw.ArticleURL = raw.Link
	}
}
