// Package worker runs the background loops behind `feedjam serve`.
package worker

import (
	"context"
	"time"
)

// Worker is a long-running loop. Start blocks until ctx is done.
type Worker interface {
	Start(ctx context.Context) error
}

// Clock supplies time and tickers; tests swap in a manual one.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) Ticker { return realTicker{t: time.NewTicker(d)} }

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }
