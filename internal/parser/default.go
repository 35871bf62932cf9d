package parser

import (
	"net/http"

	"feedjam/internal/hackernews"
	"feedjam/internal/v2ex"
)

// Options configures the built-in variants.
type Options struct {
	HTTPClient      *http.Client
	HackerNewsAPI   string
	TelegramBaseURL string
	NitterBaseURL   string
	V2EXBaseURL     string
	V2EXToken       string
}

// NewDefault builds the registry with every built-in variant. Detection
// order matters: specific hosts first, generic RSS last.
func NewDefault(opts Options) *Registry {
	hc := opts.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	return NewRegistry(
		RSS(hc),
		HackerNews(hc, hackernews.NewClient(opts.HackerNewsAPI, hc)),
		Reddit(hc),
		Telegram(hc, opts.TelegramBaseURL),
		YouTube(hc),
		GitHub(hc),
		Twitter(hc, opts.NitterBaseURL),
		V2EX(v2ex.NewClient(opts.V2EXBaseURL, opts.V2EXToken, hc)),
	)
}
