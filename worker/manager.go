package worker

import (
	"context"
	"errors"
	"sync"
)

// Manager starts and supervises a set of workers.
type Manager struct {
	workers []Worker

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(ws ...Worker) *Manager {
	return &Manager{workers: ws}
}

// Start runs every worker and blocks until ctx is cancelled or Stop is
// called, then waits for all workers to return. Errors returned by workers
// are joined.
func (m *Manager) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.mu.Lock()
	m.cancel, m.done = cancel, done
	m.mu.Unlock()
	defer close(done)
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, len(m.workers))
	for _, w := range m.workers {
		wg.Add(1)
		go func(w Worker) {
			defer wg.Done()
			if err := w.Start(ctx); err != nil {
				errs <- err
			}
		}(w)
	}
	<-ctx.Done()
	wg.Wait()
	close(errs)

	var all []error
	for err := range errs {
		all = append(all, err)
	}
	return errors.Join(all...)
}

// Stop cancels a running Start and waits for it to return. It is a no-op
// before Start.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
