// Package sync runs the two long-lived background tasks of the chain
// synchronization subsystem: the Sync Worker and the Cleanup Worker
// (spec.md §4.6, §4.7), sharing the same start/stop contract.
package sync

import (
	"context"
	"sync"
	"time"
)

// lifecycle gives both workers the same graceful-start/graceful-stop
// contract: start() registers a cancellable background task, stop()
// signals cancellation and awaits termination within a bounded grace
// period, in the style of core.DistributedCoordinator's ctx/cancel pair.
type lifecycle struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func (l *lifecycle) start(parent context.Context, run func(context.Context)) {
	l.mu.Lock()
	if l.cancel != nil {
		l.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	l.cancel, l.done = cancel, done
	l.mu.Unlock()

	go func() {
		defer close(done)
		run(ctx)
	}()
}

func (l *lifecycle) stop(grace time.Duration) {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel = nil
	l.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	select {
	case <-done:
	case <-time.After(grace):
	}
}
