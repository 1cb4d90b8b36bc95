// Package maintenance runs periodic background tasks as Go tickers. The API
// server is long-running anyway, so archive housekeeping lives here rather
// than in pg_cron.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/albapepper/copa-sim/internal/events"
)

// Pruner deletes archived runs older than a cutoff.
type Pruner interface {
	PruneRuns(ctx context.Context, cutoff time.Time) (int64, error)
}

// Config controls maintenance task intervals. Zero duration disables a task.
type Config struct {
	PruneInterval time.Duration // how often old runs are deleted
	Retention     time.Duration // runs older than this are deleted
}

// Start launches all configured maintenance tickers. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, store Pruner, pub events.Publisher, cfg Config, logger *slog.Logger) {
	logger.Info("Maintenance tickers started",
		"prune", cfg.PruneInterval,
		"retention", cfg.Retention)

	tickers := make([]*time.Ticker, 0, 1)
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
	}()

	// Prune: drop runs past retention
	if cfg.PruneInterval > 0 && cfg.Retention > 0 {
		t := time.NewTicker(cfg.PruneInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, "prune", func() {
			_, _ = Prune(ctx, store, pub, cfg.Retention, logger)
		})
	}

	<-ctx.Done()
	logger.Info("Maintenance tickers stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, name string, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// --------------------------------------------------------------------------
// Task implementations
// --------------------------------------------------------------------------

// Prune deletes runs older than retention and announces the count when
// anything was removed.
func Prune(ctx context.Context, store Pruner, pub events.Publisher, retention time.Duration, logger *slog.Logger) (int64, error) {
	cutoff := time.Now().Add(-retention)
	n, err := store.PruneRuns(ctx, cutoff)
	if err != nil {
		logger.Warn("Prune: failed to delete old runs", "error", err)
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}

	logger.Info("Prune: deleted old runs", "count", n, "cutoff", cutoff.Format(time.RFC3339))
	if pub != nil {
		e := events.Event{Type: events.TypeRunsPruned, Count: n, Timestamp: time.Now().UTC()}
		if err := pub.Publish(ctx, e); err != nil {
			logger.Warn("Prune: failed to publish event", "error", err)
		}
	}
	return n, nil
}
