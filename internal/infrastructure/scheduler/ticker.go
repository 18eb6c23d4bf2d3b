// Package scheduler provides the wall-clock tick driver behind the
// orchestrator's periodic schedule scan.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"autoblogger/internal/ports"
)

const defaultInterval = time.Minute

// Ticker fires the job on a fixed interval. The first invocation happens
// immediately on Start so a restart does not delay overdue schedules by
// a full period.
type Ticker struct {
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

var _ ports.TickDriver = (*Ticker)(nil)

func NewTicker(interval time.Duration, logger *slog.Logger) *Ticker {
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ticker{interval: interval, logger: logger}
}

// Start launches the tick loop. Calling Start on a running ticker is an
// error.
func (t *Ticker) Start(ctx context.Context, job func(time.Time)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		return fmt.Errorf("ticker already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})

	go t.loop(runCtx, job)

	t.logger.Info("tick driver started", "interval", t.interval)
	return nil
}

func (t *Ticker) loop(ctx context.Context, job func(time.Time)) {
	defer close(t.done)

	job(time.Now())

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			job(now)
		}
	}
}

// Stop cancels the loop and waits for an in-flight tick to finish, up to
// the context deadline.
func (t *Ticker) Stop(ctx context.Context) error {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel = nil
	t.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for tick loop: %w", ctx.Err())
	}
}
