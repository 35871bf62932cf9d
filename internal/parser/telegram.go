package parser

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"feedjam/internal/model"

	"github.com/PuerkitoBio/goquery"
)

const telegramTitleLimit = 300

// DefaultTelegramBaseURL serves channel previews.
const DefaultTelegramBaseURL = "https://t.me"

// Telegram scrapes the public web preview of a channel (<base>/s/<channel>).
func Telegram(hc *http.Client, baseURL string) Variant {
	if baseURL == "" {
		baseURL = DefaultTelegramBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	return Variant{
		Type: "telegram",
		CanHandle: func(rawURL string) bool {
			return hostIs(rawURL, "t.me", "telegram.me")
		},
		NameFor: func(rawURL string) string {
			if ch := telegramChannel(rawURL); ch != "" {
				return "telegram-" + ch
			}
			return "telegram"
		},
		Parse: func(ctx context.Context, src model.Source) ([]model.RawItem, error) {
			ch := telegramChannel(src.ResourceURL)
			if ch == "" {
				return nil, fmt.Errorf("no channel in %q", src.ResourceURL)
			}
			doc, err := fetchHTML(ctx, hc, baseURL+"/s/"+ch)
			if err != nil {
				return nil, err
			}
			return telegramMessages(doc), nil
		},
	}
}

// telegramChannel extracts the channel from t.me/<c>, t.me/s/<c> or
// t.me/<c>/<post>.
func telegramChannel(rawURL string) string {
	u, ok := parseURL(rawURL)
	if !ok {
		return ""
	}
	parts := pathParts(u)
	if len(parts) > 0 && parts[0] == "s" {
		parts = parts[1:]
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.TrimPrefix(parts[0], "@")
}

func fetchHTML(ctx context.Context, hc *http.Client, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

func telegramMessages(doc *goquery.Document) []model.RawItem {
	msgs := doc.Find(".tgme_widget_message_wrap")
	if msgs.Length() == 0 {
		msgs = doc.Find(".tgme_widget_message")
	}
	if msgs.Length() == 0 {
		msgs = doc.Find("[data-post]")
	}
	var out []model.RawItem
	msgs.Each(func(_ int, m *goquery.Selection) {
		body := m.Find(".tgme_widget_message_text").First()
		body.Find("br").ReplaceWithHtml("\n")
		text := strings.TrimSpace(body.Text())
		date := m.Find("a.tgme_widget_message_date").First()
		link, _ := date.Attr("href")
		if text == "" || link == "" {
			return
		}
		title, _, _ := strings.Cut(text, "\n")
		raw := model.RawItem{
			Title:       truncateRunes(strings.TrimSpace(title), telegramTitleLimit),
			Link:        link,
			LocalID:     link,
			Description: text,
			ArticleURL:  link,
			Views:       parseViewCount(m.Find(".tgme_widget_message_views").First().Text()),
		}
		if dt, ok := date.Find("time").Attr("datetime"); ok {
			if t, err := time.Parse(time.RFC3339, dt); err == nil {
				t = t.UTC()
				raw.Published = &t
			}
		}
		out = append(out, raw)
	})
	return out
}

// parseViewCount reads counts like "987", "1.5K" or "2.3M".
func parseViewCount(s string) int {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0
	}
	mult := 1.0
	switch {
	case strings.HasSuffix(s, "K"):
		mult, s = 1e3, strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		mult, s = 1e6, strings.TrimSuffix(s, "M")
	}
	s = strings.NewReplacer(",", "", " ", "").Replace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return int(math.Round(f * mult))
}
