package scheduler

import (
	"context"
	"time"

	"deal_insights_backend/platform/config"
	"deal_insights_backend/platform/logger"
)

const (
	defaultSnapshotCleanupInterval  = time.Hour
	defaultExpiredSnapshotRetention = 24 * time.Hour
)

// ExpiredSnapshotDeleter removes snapshots whose TTL ended before a cutoff.
type ExpiredSnapshotDeleter interface {
	DeleteExpiredBefore(ctx context.Context, before time.Time) (int64, error)
}

// SnapshotCleanup periodically removes snapshots that expired a while ago.
// Readers never depend on it: expired snapshots are ignored either way.
type SnapshotCleanup struct {
	store     ExpiredSnapshotDeleter
	log       *logger.Logger
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

func NewSnapshotCleanup(store ExpiredSnapshotDeleter, log *logger.Logger, cfg config.SnapshotCleanupConfig) *SnapshotCleanup {
	interval := cfg.GetSnapshotCleanupInterval()
	retention := cfg.GetSnapshotRetention()
	if interval <= 0 {
		interval = defaultSnapshotCleanupInterval
	}
	if retention <= 0 {
		retention = defaultExpiredSnapshotRetention
	}

	return &SnapshotCleanup{
		store:     store,
		log:       log,
		interval:  interval,
		retention: retention,
		now:       time.Now,
	}
}

func (c *SnapshotCleanup) Run(ctx context.Context) {
	if c == nil || c.store == nil {
		return
	}

	c.cleanup(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *SnapshotCleanup) cleanup(ctx context.Context) {
	deleted, err := c.store.DeleteExpiredBefore(ctx, c.now().Add(-c.retention))
	if err != nil {
		c.log.Warn("snapshot cleanup failed", "error", err)
		return
	}

	if deleted > 0 {
		c.log.Info("snapshot cleanup deleted expired snapshots", "deleted", deleted)
	}
}
