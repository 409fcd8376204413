package sync

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"synnergy-network/internal/store"
)

// CleanupWorker periodically deletes expired sessions. It shares the
// Sync Worker's graceful-start/graceful-stop lifecycle contract but is
// otherwise unrelated to chain state (spec.md §4.7).
type CleanupWorker struct {
	lifecycle

	sessions *store.SessionStore
	interval time.Duration
	log      *logrus.Entry
}

// NewCleanupWorker constructs a Cleanup Worker.
func NewCleanupWorker(sessions *store.SessionStore, interval time.Duration, log *logrus.Entry) *CleanupWorker {
	return &CleanupWorker{sessions: sessions, interval: interval, log: log}
}

// Start launches the cleanup loop.
func (c *CleanupWorker) Start(ctx context.Context) {
	c.lifecycle.start(ctx, c.run)
	c.log.Info("cleanup worker started")
}

// Stop cancels the cleanup loop and waits up to grace for it to drain.
func (c *CleanupWorker) Stop(grace time.Duration) {
	c.lifecycle.stop(grace)
	c.log.Info("cleanup worker stopped")
}

func (c *CleanupWorker) run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := c.sessions.DeleteExpired(ctx)
			if err != nil {
				c.log.WithError(err).Warn("session cleanup failed")
				continue
			}
			if n > 0 {
				c.log.WithField("deleted", n).Info("expired sessions cleaned up")
			}
		}
	}
}
