package maintenance

import (
	"context"
	"log/slog"
	"time"

	"slowlooking/pkg/store"
)

const lastPruneStateKey = "ledger_pruned_at"

// pruneInterval limits how often the ledger is swept.
const pruneInterval = 24 * time.Hour

// Run prunes ledger rows older than retention, at most once per day.
// A zero retention keeps everything. Failures are logged, never returned to
// the caller's command.
func Run(ctx context.Context, s store.Store, retention time.Duration) {
	if retention <= 0 {
		return
	}

	now := time.Now().UTC()
	if last, ok := s.GetState(ctx, lastPruneStateKey); ok {
		if t, err := time.Parse(time.RFC3339, last); err == nil && now.Sub(t) < pruneInterval {
			return
		}
	}

	n, err := s.PruneAttempts(ctx, retention)
	if err != nil {
		slog.Error("Ledger pruning failed", "error", err)
		return
	}
	if err := s.SetState(ctx, lastPruneStateKey, now.Format(time.RFC3339)); err != nil {
		slog.Warn("Failed to record prune time", "error", err)
	}
	slog.Debug("Ledger pruning completed", "removed", n)
}
