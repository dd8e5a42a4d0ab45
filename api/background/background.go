package background

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Background runs fire-and-forget work (mails, events) off the request path
// and lets the server wait for it on shutdown.
type Background struct {
	log logrus.FieldLogger
	wg  sync.WaitGroup

	mu       sync.Mutex
	shutdown bool
}

func New(log logrus.FieldLogger) *Background {
	return &Background{log: log}
}

// Go schedules fn. Errors and panics are logged, never propagated. Work
// submitted after Shutdown started is dropped.
func (b *Background) Go(name string, fn func(ctx context.Context) error) {
	b.mu.Lock()
	if b.shutdown {
		b.mu.Unlock()
		b.log.WithField("task", name).Warn("background task dropped: shutting down")
		return
	}
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				b.log.WithField("task", name).Errorf("background task panic: %v", rec)
			}
		}()

		if err := fn(context.Background()); err != nil {
			b.log.WithField("task", name).Errorf("background task failed: %v", err)
		}
	}()
}

// Shutdown stops accepting work and waits for running tasks or ctx expiry.
func (b *Background) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	b.shutdown = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for background tasks: %w", ctx.Err())
	}
}
