package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/confession-hub/confession-bot/internal/domain/ranking"
	"github.com/confession-hub/confession-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardRepo implements ranking.LeaderboardRepository on PostgreSQL.
// It reads the windowed counters from user_ranking_state; anonymization
// happens above this layer, so the rows it returns are the last place a
// user ID appears on the read path.
type LeaderboardRepo struct {
	conn   *Connection
	logger *slog.Logger
}

// NewLeaderboardRepo creates a new LeaderboardRepo.
func NewLeaderboardRepo(conn *Connection, logger *slog.Logger) *LeaderboardRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &LeaderboardRepo{
		conn:   conn,
		logger: logger.With("repo", "leaderboard"),
	}
}

func windowColumn(window ranking.Window) (string, error) {
	switch window {
	case ranking.WindowWeekly:
		return "weekly_points", nil
	case ranking.WindowMonthly:
		return "monthly_points", nil
	case ranking.WindowAllTime:
		return "total_points", nil
	default:
		return "", shared.ErrInvalidWindow
	}
}

// TopUsers returns up to limit users with strictly positive points over the
// window, descending, ties broken by user ID ascending.
func (r *LeaderboardRepo) TopUsers(ctx context.Context, window ranking.Window, limit int) ([]ranking.RankedUser, error) {
	column, err := windowColumn(window)
	if err != nil {
		return nil, err
	}

	// column comes from the switch above, never from input.
	query := fmt.Sprintf(`
		SELECT s.user_id, s.%s, d.name, d.emoji
		FROM user_ranking_state s
		JOIN rank_definitions d ON d.id = s.current_rank_id
		WHERE s.%s > 0
		ORDER BY s.%s DESC, s.user_id ASC
		LIMIT $1
	`, column, column, column)

	rows, err := r.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: failed to query top users: %w", err)
	}
	defer rows.Close()

	var users []ranking.RankedUser
	for rows.Next() {
		var u ranking.RankedUser
		if err := rows.Scan(&u.UserID, &u.Points, &u.RankName, &u.RankEmoji); err != nil {
			return nil, fmt.Errorf("leaderboard: failed to scan row: %w", err)
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

// ResetWindow clears the weekly or monthly counters for all users.
// The all-time window is not resettable.
func (r *LeaderboardRepo) ResetWindow(ctx context.Context, window ranking.Window) (int64, error) {
	var column string
	switch window {
	case ranking.WindowWeekly:
		column = "weekly_points"
	case ranking.WindowMonthly:
		column = "monthly_points"
	default:
		return 0, shared.ErrInvalidWindow
	}

	query := fmt.Sprintf(`
		UPDATE user_ranking_state
		SET %s = 0, updated_at = NOW()
		WHERE %s <> 0
	`, column, column)

	tag, err := r.conn.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("leaderboard: failed to reset %s window: %w", window, err)
	}

	r.logger.Info("window reset",
		"window", window.String(),
		"rows", tag.RowsAffected(),
	)

	return tag.RowsAffected(), nil
}

// Compile-time interface check.
var _ ranking.LeaderboardRepository = (*LeaderboardRepo)(nil)
