package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/confession-hub/confession-bot/internal/infrastructure/persistence/postgres"
)

// ══════════════════════════════════════════════════════════════════════════════
// STORAGE HEALTH JOB
// ══════════════════════════════════════════════════════════════════════════════

// DatabaseHealth reports connection pool health. Implemented by
// postgres.Connection.
type DatabaseHealth interface {
	Health(ctx context.Context) (*postgres.HealthStatus, error)
}

// CachePinger checks cache liveness. Implemented by the Redis cache;
// nil when caching is disabled.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// StorageHealthJob periodically verifies the storage backends and logs
// connection pool statistics. An unhealthy database fails the run so the
// scheduler records it; a dead cache only degrades leaderboard reads and
// is logged as a warning.
type StorageHealthJob struct {
	db     DatabaseHealth
	cache  CachePinger
	logger *slog.Logger
}

// NewStorageHealthJob creates the health job. The cache may be nil.
func NewStorageHealthJob(db DatabaseHealth, cache CachePinger, logger *slog.Logger) *StorageHealthJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &StorageHealthJob{
		db:     db,
		cache:  cache,
		logger: logger.With("job", "storage_health"),
	}
}

// Name implements scheduler.Job.
func (j *StorageHealthJob) Name() string {
	return "storage_health"
}

// Description implements scheduler.Job.
func (j *StorageHealthJob) Description() string {
	return "checks postgres and redis liveness and logs pool statistics"
}

// Run implements scheduler.Job.
func (j *StorageHealthJob) Run(ctx context.Context) error {
	status, err := j.db.Health(ctx)
	if err != nil {
		return fmt.Errorf("postgres health: %w", err)
	}
	if !status.Healthy {
		return fmt.Errorf("postgres unhealthy: %s", status.Error)
	}

	j.logger.Info("storage healthy",
		"ping_latency", status.PingLatency,
		"total_conns", status.TotalConns,
		"idle_conns", status.IdleConns,
		"acquired_conns", status.AcquiredConns,
	)

	if j.cache != nil {
		if err := j.cache.Ping(ctx); err != nil {
			j.logger.Warn("redis ping failed, leaderboard reads fall through to postgres",
				"error", err,
			)
		}
	}

	return nil
}
