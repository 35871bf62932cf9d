package parser

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"feedjam/internal/model"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

// YouTube reads a channel's Atom feed, taking view counts from media:statistics.
func YouTube(hc *http.Client) Variant {
	return Variant{
		Type:      "youtube",
		HasCounts: true,
		CanHandle: func(rawURL string) bool {
			return hostIs(rawURL, "youtube.com", "youtu.be")
		},
		NameFor: youtubeName,
		Parse: func(ctx context.Context, src model.Source) ([]model.RawItem, error) {
			feed, err := fetchFeed(ctx, hc, youtubeFeedURL(src.ResourceURL))
			if err != nil {
				return nil, err
			}
			out := make([]model.RawItem, 0, len(feed.Items))
			for _, it := range feed.Items {
				if raw, ok := youtubeItem(it); ok {
					out = append(out, raw)
				}
			}
			return out, nil
		},
	}
}

func youtubeName(rawURL string) string {
	u, ok := parseURL(rawURL)
	if !ok {
		return "youtube"
	}
	if id := u.Query().Get("channel_id"); id != "" {
		return "youtube-" + truncateRunes(id, 12)
	}
	parts := pathParts(u)
	if len(parts) >= 2 && parts[0] == "channel" {
		return "youtube-" + truncateRunes(parts[1], 12)
	}
	if len(parts) >= 1 && strings.HasPrefix(parts[0], "@") {
		return "youtube-" + parts[0]
	}
	return "youtube"
}

// youtubeFeedURL maps /channel/<id> pages to the channel's feed URL. Other
// URLs, including feed URLs, are used as given.
func youtubeFeedURL(rawURL string) string {
	u, ok := parseURL(rawURL)
	if !ok {
		return rawURL
	}
	parts := pathParts(u)
	if len(parts) >= 2 && parts[0] == "channel" {
		return "https://www.youtube.com/feeds/videos.xml?channel_id=" + url.QueryEscape(parts[1])
	}
	return rawURL
}

func youtubeItem(it *gofeed.Item) (model.RawItem, bool) {
	raw, ok := feedItem(it)
	if !ok {
		return raw, false
	}
	if id := extValue(it.Extensions, "yt", "videoId"); id != "" {
		raw.LocalID = id
	}
	if group, ok := firstExt(it.Extensions, "media", "group"); ok {
		if d, ok := firstChild(group, "description"); ok && raw.Description == "" {
			raw.Description = d.Value
		}
		if c, ok := firstChild(group, "community"); ok {
			if st, ok := firstChild(c, "statistics"); ok {
				raw.Views, _ = strconv.Atoi(st.Attrs["views"])
			}
		}
	}
	return raw, true
}

func firstExt(e ext.Extensions, ns, name string) (ext.Extension, bool) {
	if e == nil {
		return ext.Extension{}, false
	}
	list := e[ns][name]
	if len(list) == 0 {
		return ext.Extension{}, false
	}
	return list[0], true
}

func firstChild(e ext.Extension, name string) (ext.Extension, bool) {
	list := e.Children[name]
	if len(list) == 0 {
		return ext.Extension{}, false
	}
	return list[0], true
}

func extValue(e ext.Extensions, ns, name string) string {
	x, ok := firstExt(e, ns, name)
	if !ok {
		return ""
	}
	return strings.TrimSpace(x.Value)
}
