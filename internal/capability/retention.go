package capability

import (
	"context"
	"log/slog"
	"time"

	"github.com/Fib3301/HeadHunterAssistant/internal/store"
)

// retentionWorkerInterval is how often old audit snapshots are purged.
const retentionWorkerInterval = time.Hour

// StartRetentionWorker purges audit snapshots older than retention until ctx
// is done. A non-positive retention disables the worker.
func StartRetentionWorker(ctx context.Context, repo store.Repository, retention time.Duration) {
	if retention <= 0 {
		slog.Info("Audit retention worker disabled")
		return
	}
	ticker := time.NewTicker(retentionWorkerInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("Audit retention worker started", "interval", retentionWorkerInterval, "retention", retention)

		for {
			select {
			case <-ticker.C:
				purgeAuditSnapshots(ctx, repo, retention)
			case <-ctx.Done():
				slog.Info("Audit retention worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func purgeAuditSnapshots(ctx context.Context, repo store.Repository, retention time.Duration) int64 {
	n, err := repo.CleanupAuditSnapshots(ctx, retention)
	if err != nil {
		if ctx.Err() != nil {
			slog.Debug("Audit retention worker: context canceled during cleanup", "error", err)
			return 0
		}
		slog.Error("Audit retention worker failed", "error", err)
		return 0
	}
	if n > 0 {
		slog.Info("Audit retention worker removed snapshots", "count", n, "retention", retention)
	}
	return n
}
