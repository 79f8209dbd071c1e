package ingest

import (
	"context"
	"time"

	"go.trai.ch/ims/internal/core/domain"
	"go.trai.ch/ims/internal/core/ports"
)

// Reporter periodically logs the sync status when it changed since the last report.
type Reporter struct {
	status   *domain.SyncStatus
	logger   ports.Logger
	interval time.Duration
}

// NewReporter creates a Reporter that checks status every interval.
func NewReporter(status *domain.SyncStatus, logger ports.Logger, interval time.Duration) *Reporter {
	return &Reporter{status: status, logger: logger, interval: interval}
}

// Run reports until ctx is cancelled.
func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	var last domain.SyncSnapshot
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := r.status.Snapshot()
			if snap == last {
				continue
			}
			last = snap
			r.logger.Info("sync status", "phase", string(snap.Phase), "length", snap.Length, "seq", snap.Seq)
		}
	}
}
