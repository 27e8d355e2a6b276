package ranking

import (
	"context"
	"time"
)

// StreakResult reports the outcome of advancing a user's daily streak.
type StreakResult struct {
	// Current is the streak length after the update.
	Current int

	// Advanced is true when the streak grew by one day.
	Advanced bool

	// Broken is true when a lapsed streak was reset to 1.
	Broken bool

	// Previous is the streak length before a reset (meaningful when Broken).
	Previous int
}

// LedgerRepository persists point transactions and the per-user aggregate.
//
// Implementations must apply AppendTransaction as a single atomic unit:
// the transaction row and the aggregate increments land together or not at
// all, and concurrent appends for the same user must serialize on the
// aggregate row (relative increments, never read-then-write).
type LedgerRepository interface {
	// InitializeUser creates a zero-point state at the lowest rank if the
	// user has none. Idempotent.
	InitializeUser(ctx context.Context, userID UserID, lowest RankID) error

	// AppendTransaction inserts the transaction and atomically increments
	// total, weekly, and monthly points by its delta. Returns the assigned
	// transaction ID and the updated aggregate state.
	AppendTransaction(ctx context.Context, tx PointTransaction) (TransactionID, UserRankingState, error)

	// GetState returns the user's aggregate state.
	GetState(ctx context.Context, userID UserID) (UserRankingState, error)

	// AdvanceStreak advances the consecutive-day streak for activity on
	// the given day: +1 when the previous activity was the prior day,
	// reset to 1 when the streak lapsed, unchanged for same-day activity.
	AdvanceStreak(ctx context.Context, userID UserID, day time.Time) (StreakResult, error)

	// CommitRankUp applies an upward rank transition with compare-and-set
	// semantics on the current rank, raises highest_rank_achieved, and
	// writes the RankTransition audit row in the same storage transaction.
	// Returns false without error when another writer already moved the
	// user past oldRank.
	CommitRankUp(ctx context.Context, userID UserID, oldRank, newRank RankID, pointsAtChange int, reason string) (bool, error)

	// ListTransactions returns the user's most recent transactions,
	// newest first.
	ListTransactions(ctx context.Context, userID UserID, limit int) ([]PointTransaction, error)
}

// AchievementRepository persists achievement grants and derives the
// aggregates predicates evaluate against.
type AchievementRepository interface {
	// InsertGrant inserts a grant unless one already exists for the
	// (user, achievement) pair. Returns false when the pair was already
	// granted - a benign race, not an error. Also bumps the user's
	// achievement count when inserted.
	InsertGrant(ctx context.Context, grant AchievementGrant) (bool, error)

	// HasGrant reports whether the user already holds the achievement.
	HasGrant(ctx context.Context, userID UserID, id AchievementID) (bool, error)

	// ListGrants returns the user's grants, newest first.
	ListGrants(ctx context.Context, userID UserID, limit int) ([]AchievementGrant, error)

	// GetStats derives the per-user counters used by predicates.
	GetStats(ctx context.Context, userID UserID) (UserStats, error)
}

// LeaderboardRepository answers windowed ranking queries.
type LeaderboardRepository interface {
	// TopUsers returns up to limit users with points strictly greater
	// than zero over the window, descending, ties broken by user ID
	// ascending.
	TopUsers(ctx context.Context, window Window, limit int) ([]RankedUser, error)

	// ResetWindow clears the weekly or monthly counters for all users and
	// returns the number of rows affected. WindowAllTime is not resettable.
	ResetWindow(ctx context.Context, window Window) (int64, error)
}
