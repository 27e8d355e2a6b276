package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/confession-hub/confession-bot/internal/domain/ranking"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// AchievementRepo implements ranking.AchievementRepository on PostgreSQL.
//
// Grant idempotency rests on UNIQUE(user_id, achievement_id): the in-memory
// HasGrant check in the award path is only an optimization, the constraint
// is what actually prevents double grants.
type AchievementRepo struct {
	conn   *Connection
	logger *slog.Logger
}

// NewAchievementRepo creates a new AchievementRepo.
func NewAchievementRepo(conn *Connection, logger *slog.Logger) *AchievementRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &AchievementRepo{
		conn:   conn,
		logger: logger.With("repo", "achievement"),
	}
}

// InsertGrant inserts a grant unless the (user, achievement) pair already
// exists. Bumps the user's achievement count only when a row was inserted.
func (r *AchievementRepo) InsertGrant(ctx context.Context, grant ranking.AchievementGrant) (bool, error) {
	if err := grant.Validate(); err != nil {
		return false, err
	}

	inserted := false

	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(dbTx pgx.Tx) error {
		insertQuery := `
			INSERT INTO achievement_grants (user_id, achievement_id, name, description, points_awarded, is_special)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (user_id, achievement_id) DO NOTHING
		`
		tag, err := dbTx.Exec(ctx, insertQuery,
			int64(grant.UserID),
			string(grant.AchievementID),
			grant.Name,
			grant.Description,
			grant.PointsAwarded,
			grant.IsSpecial,
		)
		if err != nil {
			return fmt.Errorf("failed to insert grant: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		countQuery := `
			UPDATE user_ranking_state
			SET achievement_count = achievement_count + 1,
			    updated_at = NOW()
			WHERE user_id = $1
		`
		if _, err := dbTx.Exec(ctx, countQuery, int64(grant.UserID)); err != nil {
			return fmt.Errorf("failed to bump achievement count: %w", err)
		}

		inserted = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return inserted, nil
}

// HasGrant reports whether the user already holds the achievement.
func (r *AchievementRepo) HasGrant(ctx context.Context, userID ranking.UserID, id ranking.AchievementID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM achievement_grants
			WHERE user_id = $1 AND achievement_id = $2
		)
	`

	var exists bool
	if err := r.conn.QueryRow(ctx, query, int64(userID), string(id)).Scan(&exists); err != nil {
		return false, fmt.Errorf("achievement: failed to check grant: %w", err)
	}

	return exists, nil
}

// ListGrants returns the user's grants, newest first.
func (r *AchievementRepo) ListGrants(ctx context.Context, userID ranking.UserID, limit int) ([]ranking.AchievementGrant, error) {
	query := `
		SELECT id, user_id, achievement_id, name, description, points_awarded, is_special, granted_at
		FROM achievement_grants
		WHERE user_id = $1
		ORDER BY granted_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, int64(userID), limit)
	if err != nil {
		return nil, fmt.Errorf("achievement: failed to list grants: %w", err)
	}
	defer rows.Close()

	var grants []ranking.AchievementGrant
	for rows.Next() {
		var g ranking.AchievementGrant
		var achievementID string

		if err := rows.Scan(&g.ID, &g.UserID, &achievementID, &g.Name, &g.Description, &g.PointsAwarded, &g.IsSpecial, &g.GrantedAt); err != nil {
			return nil, fmt.Errorf("achievement: failed to scan grant: %w", err)
		}

		g.AchievementID = ranking.AchievementID(achievementID)
		grants = append(grants, g)
	}

	return grants, rows.Err()
}

// GetStats derives the per-user counters predicates evaluate against.
// Counters are computed from the ledger, not stored: the ledger is the
// source of truth, and predicate evaluation happens at most twice per award.
func (r *AchievementRepo) GetStats(ctx context.Context, userID ranking.UserID) (ranking.UserStats, error) {
	var stats ranking.UserStats

	countersQuery := `
		SELECT
			COUNT(*) FILTER (WHERE activity_type = 'confession_approved'),
			COUNT(*) FILTER (WHERE activity_type = 'comment_posted'),
			COUNT(*) FILTER (WHERE activity_type = 'comment_liked'),
			COUNT(*) FILTER (WHERE activity_type = 'quality_comment'),
			COUNT(*) FILTER (WHERE activity_type = 'confession_submitted'
				AND EXTRACT(HOUR FROM created_at AT TIME ZONE 'UTC') < 8),
			COUNT(*) FILTER (WHERE activity_type = 'confession_submitted'
				AND EXTRACT(HOUR FROM created_at AT TIME ZONE 'UTC') >= 22)
		FROM point_transactions
		WHERE user_id = $1
	`

	err := r.conn.QueryRow(ctx, countersQuery, int64(userID)).Scan(
		&stats.ApprovedConfessions,
		&stats.CommentsPosted,
		&stats.CommentLikesReceived,
		&stats.QualityComments,
		&stats.EarlyBirdConfessions,
		&stats.NightOwlConfessions,
	)
	if err != nil {
		return ranking.UserStats{}, fmt.Errorf("achievement: failed to derive counters: %w", err)
	}

	// Monthly leaderboard position, 0 when unranked this month.
	positionQuery := `
		SELECT position FROM (
			SELECT user_id,
			       ROW_NUMBER() OVER (ORDER BY monthly_points DESC, user_id ASC) AS position
			FROM user_ranking_state
			WHERE monthly_points > 0
		) ranked
		WHERE user_id = $1
	`

	if err := r.conn.QueryRow(ctx, positionQuery, int64(userID)).Scan(&stats.MonthlyPosition); err != nil && !IsNoRows(err) {
		return ranking.UserStats{}, fmt.Errorf("achievement: failed to derive monthly position: %w", err)
	}

	return stats, nil
}

// Compile-time interface check.
var _ ranking.AchievementRepository = (*AchievementRepo)(nil)
