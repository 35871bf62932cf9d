package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Interval calls Run every Every. A failed run is logged and the loop
// carries on with the next tick.
type Interval struct {
	Name      string
	Every     time.Duration
	Immediate bool // run once before the first tick
	Run       func(ctx context.Context) error
	Clock     Clock
}

func (w *Interval) Start(ctx context.Context) error {
	if w.Every <= 0 {
		return fmt.Errorf("worker %s: interval must be positive, got %s", w.Name, w.Every)
	}
	clock := w.Clock
	if clock == nil {
		clock = realClock{}
	}

	if w.Immediate {
		w.runOnce(ctx, clock)
	}

	t := clock.NewTicker(w.Every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C():
			w.runOnce(ctx, clock)
		}
	}
}

func (w *Interval) runOnce(ctx context.Context, clock Clock) {
	if ctx.Err() != nil {
		return
	}
	start := clock.Now()
	if err := w.Run(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("worker: run failed", "worker", w.Name, "error", err)
		return
	}
	slog.Debug("worker: run done", "worker", w.Name, "took", clock.Now().Sub(start))
}
