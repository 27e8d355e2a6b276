// Package jobs contains the scheduled jobs of the confession bot.
package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/confession-hub/confession-bot/internal/domain/ranking"
	"github.com/confession-hub/confession-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// WINDOW RESET JOB
// ══════════════════════════════════════════════════════════════════════════════

// BoardInvalidator drops cached leaderboards for a window after a reset.
// Implemented by the Redis leaderboard cache; nil when caching is disabled.
type BoardInvalidator interface {
	Invalidate(ctx context.Context, window ranking.Window)
}

// ResetWindowJob clears the weekly or monthly point counters for all users.
// Registered twice: weekly on Monday 00:00 UTC and monthly on the 1st.
//
// The reset is a bulk UPDATE, not a ledger operation: transaction history
// and all-time totals are untouched.
type ResetWindowJob struct {
	window      ranking.Window
	repo        ranking.LeaderboardRepository
	invalidator BoardInvalidator
	publisher   shared.EventPublisher
	logger      *slog.Logger
}

// NewResetWindowJob creates a reset job for the given window.
// The invalidator and publisher may be nil.
func NewResetWindowJob(
	window ranking.Window,
	repo ranking.LeaderboardRepository,
	invalidator BoardInvalidator,
	publisher shared.EventPublisher,
	logger *slog.Logger,
) *ResetWindowJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResetWindowJob{
		window:      window,
		repo:        repo,
		invalidator: invalidator,
		publisher:   publisher,
		logger:      logger.With("job", "reset_"+window.String()),
	}
}

// Name implements scheduler.Job.
func (j *ResetWindowJob) Name() string {
	return "reset_" + j.window.String() + "_window"
}

// Description implements scheduler.Job.
func (j *ResetWindowJob) Description() string {
	return fmt.Sprintf("clears %s leaderboard counters for all users", j.window)
}

// Run implements scheduler.Job.
func (j *ResetWindowJob) Run(ctx context.Context) error {
	affected, err := j.repo.ResetWindow(ctx, j.window)
	if err != nil {
		return fmt.Errorf("reset %s window: %w", j.window, err)
	}

	j.logger.Info("window counters reset",
		"window", j.window.String(),
		"users_affected", affected,
	)

	if j.invalidator != nil {
		j.invalidator.Invalidate(ctx, j.window)
	}

	if j.publisher != nil {
		event := shared.NewWindowResetEvent(j.window.String(), affected)
		if err := j.publisher.Publish(event); err != nil {
			// The reset itself succeeded; a lost event only delays observers.
			j.logger.Warn("failed to publish window reset event", "error", err)
		}
	}

	return nil
}
