package repository

import (
	"context"
	"log/slog"
	"time"
)

const DefaultPruneInterval = 5 * time.Minute

// StartPruner runs a background goroutine that periodically removes sessions
// idle for longer than idleFor. The returned channel closes once the worker
// has stopped after ctx is cancelled.
func StartPruner(ctx context.Context, store Store, idleFor, interval time.Duration, logger *slog.Logger) <-chan struct{} {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultPruneInterval
	}
	done := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		logger.Info("session pruner started", "interval", interval, "idle_for", idleFor)

		for {
			select {
			case <-ticker.C:
				pruneOnce(ctx, store, idleFor, logger)
			case <-ctx.Done():
				logger.Info("session pruner shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
	return done
}

func pruneOnce(ctx context.Context, store Store, idleFor time.Duration, logger *slog.Logger) {
	removed, err := store.Prune(ctx, idleFor)
	if err != nil {
		logger.Error("session prune failed", "error", err)
		return
	}
	if removed > 0 {
		logger.Info("pruned idle sessions", "count", removed)
	}
}
