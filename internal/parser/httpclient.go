package parser

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// hostLimiter hands out one token bucket per host.
type hostLimiter struct {
	mu       sync.Mutex
	every    time.Duration
	limiters map[string]*rate.Limiter
}

func (h *hostLimiter) get(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Every(h.every), 1)
		h.limiters[host] = l
	}
	return l
}

// limitedTransport waits for the request host's limiter, then sends the
// request with the User-Agent set under its own timeout. Time spent queued
// for a token does not count against the timeout.
type limitedTransport struct {
	base      http.RoundTripper
	limiter   *hostLimiter
	userAgent string
	timeout   time.Duration
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.limiter.every > 0 {
		if err := t.limiter.get(req.URL.Host).Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	ctx, cancel := req.Context(), context.CancelFunc(func() {})
	if t.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
	}
	out := req.WithContext(ctx)
	if t.userAgent != "" && req.Header.Get("User-Agent") == "" {
		out = req.Clone(ctx)
		out.Header.Set("User-Agent", t.userAgent)
	}
	resp, err := t.base.RoundTrip(out)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// cancelOnClose releases the request timeout once the body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// NewHTTPClient returns the client every variant fetches through. Requests
// to the same host are spaced at least perHost apart; timeout bounds each
// request, body included, from the moment its token is granted.
func NewHTTPClient(timeout, perHost time.Duration, userAgent string) *http.Client {
	return &http.Client{
		Transport: &limitedTransport{
			base:      http.DefaultTransport,
			limiter:   &hostLimiter{every: perHost, limiters: make(map[string]*rate.Limiter)},
			userAgent: userAgent,
			timeout:   timeout,
		},
	}
}
