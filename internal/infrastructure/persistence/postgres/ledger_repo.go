package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/confession-hub/confession-bot/internal/domain/ranking"
	"github.com/confession-hub/confession-bot/internal/domain/shared"
	"github.com/confession-hub/confession-bot/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEDGER REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// LedgerRepo implements ranking.LedgerRepository on PostgreSQL.
//
// All aggregate updates are relative (SET total_points = total_points + $n):
// two concurrent awards for the same user serialize on the row lock and both
// increments survive. The repo never reads a total and writes it back.
type LedgerRepo struct {
	conn   *Connection
	logger *slog.Logger
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(conn *Connection, logger *slog.Logger) *LedgerRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerRepo{
		conn:   conn,
		logger: logger.With("repo", "ledger"),
	}
}

const stateColumns = `user_id, total_points, weekly_points, monthly_points,
	current_rank_id, highest_rank_achieved, consecutive_active_days,
	achievement_count, last_activity_at, created_at, updated_at`

func scanState(row pgx.Row) (ranking.UserRankingState, error) {
	var s ranking.UserRankingState
	var lastActivity *time.Time
	err := row.Scan(
		&s.UserID,
		&s.TotalPoints,
		&s.WeeklyPoints,
		&s.MonthlyPoints,
		&s.CurrentRankID,
		&s.HighestRankAchieved,
		&s.ConsecutiveActiveDays,
		&s.AchievementCount,
		&lastActivity,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return ranking.UserRankingState{}, err
	}
	if lastActivity != nil {
		s.LastActivityAt = *lastActivity
	}
	return s, nil
}

// InitializeUser creates a zero-point state at the lowest rank if the user
// has none. Idempotent via ON CONFLICT DO NOTHING.
func (r *LedgerRepo) InitializeUser(ctx context.Context, userID ranking.UserID, lowest ranking.RankID) error {
	query := `
		INSERT INTO user_ranking_state (user_id, current_rank_id, highest_rank_achieved, last_activity_at)
		VALUES ($1, $2, $2, NOW())
		ON CONFLICT (user_id) DO NOTHING
	`

	_, err := r.conn.Exec(ctx, query, int64(userID), int(lowest))
	if err != nil {
		return fmt.Errorf("ledger: failed to initialize user %d: %w", userID, err)
	}

	return nil
}

// AppendTransaction inserts the transaction row and applies its delta to the
// total, weekly, and monthly counters in one storage transaction.
func (r *LedgerRepo) AppendTransaction(ctx context.Context, tx ranking.PointTransaction) (ranking.TransactionID, ranking.UserRankingState, error) {
	var txID ranking.TransactionID
	var state ranking.UserRankingState

	var refID *int64
	var refKind *string
	if !tx.Reference.IsZero() {
		refID = &tx.Reference.TargetID
		refKind = &tx.Reference.TargetKind
	}

	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(dbTx pgx.Tx) error {
		insertQuery := `
			INSERT INTO point_transactions (user_id, activity_type, points, reference_id, reference_kind, description)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`
		if err := dbTx.QueryRow(ctx, insertQuery,
			int64(tx.UserID),
			tx.ActivityType.String(),
			tx.PointsDelta,
			refID,
			refKind,
			tx.Description,
		).Scan(&txID); err != nil {
			return fmt.Errorf("failed to insert transaction: %w", err)
		}

		updateQuery := `
			UPDATE user_ranking_state
			SET total_points = total_points + $2,
			    weekly_points = weekly_points + $2,
			    monthly_points = monthly_points + $2,
			    last_activity_at = NOW(),
			    updated_at = NOW()
			WHERE user_id = $1
			RETURNING ` + stateColumns

		updated, err := scanState(dbTx.QueryRow(ctx, updateQuery, int64(tx.UserID), tx.PointsDelta))
		if err != nil {
			if IsNoRows(err) {
				return shared.ErrUserStateNotFound
			}
			return fmt.Errorf("failed to update aggregate: %w", err)
		}
		state = updated
		return nil
	})
	if err != nil {
		return 0, ranking.UserRankingState{}, err
	}

	return txID, state, nil
}

// GetState returns the user's aggregate state.
func (r *LedgerRepo) GetState(ctx context.Context, userID ranking.UserID) (ranking.UserRankingState, error) {
	query := `SELECT ` + stateColumns + ` FROM user_ranking_state WHERE user_id = $1`

	state, err := scanState(r.conn.QueryRow(ctx, query, int64(userID)))
	if err != nil {
		if IsNoRows(err) {
			return ranking.UserRankingState{}, shared.ErrUserStateNotFound
		}
		return ranking.UserRankingState{}, fmt.Errorf("ledger: failed to get state for user %d: %w", userID, err)
	}

	return state, nil
}

// AdvanceStreak advances the consecutive-day streak. The row is locked for
// the duration so concurrent daily logins cannot double-advance.
//
// The streak is tracked against last_streak_day, a column written only
// here. last_activity_at cannot serve: AppendTransaction stamps it on
// every award, so by the time the streak is evaluated it already reads
// "today" regardless of when the user was last seen.
func (r *LedgerRepo) AdvanceStreak(ctx context.Context, userID ranking.UserID, day time.Time) (ranking.StreakResult, error) {
	var result ranking.StreakResult

	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(dbTx pgx.Tx) error {
		var prevStreak int
		var lastStreakDay *time.Time

		selectQuery := `
			SELECT consecutive_active_days, last_streak_day
			FROM user_ranking_state
			WHERE user_id = $1
			FOR UPDATE
		`
		if err := dbTx.QueryRow(ctx, selectQuery, int64(userID)).Scan(&prevStreak, &lastStreakDay); err != nil {
			if IsNoRows(err) {
				return shared.ErrUserStateNotFound
			}
			return fmt.Errorf("failed to lock state row: %w", err)
		}

		switch {
		case lastStreakDay != nil && timeutil.SameDay(*lastStreakDay, day) && prevStreak > 0:
			// Already counted today.
			result = ranking.StreakResult{Current: prevStreak}
			return nil
		case lastStreakDay != nil && timeutil.IsYesterday(*lastStreakDay, day):
			result = ranking.StreakResult{Current: prevStreak + 1, Advanced: true}
		default:
			result = ranking.StreakResult{
				Current:  1,
				Advanced: prevStreak == 0,
				Broken:   prevStreak > 1,
				Previous: prevStreak,
			}
		}

		updateQuery := `
			UPDATE user_ranking_state
			SET consecutive_active_days = $2,
			    last_streak_day = $3,
			    updated_at = NOW()
			WHERE user_id = $1
		`
		if _, err := dbTx.Exec(ctx, updateQuery, int64(userID), result.Current, timeutil.StartOfDay(day)); err != nil {
			return fmt.Errorf("failed to update streak: %w", err)
		}

		return nil
	})
	if err != nil {
		return ranking.StreakResult{}, err
	}

	return result, nil
}

// CommitRankUp applies an upward rank transition with compare-and-set
// semantics and writes the audit row in the same storage transaction.
func (r *LedgerRepo) CommitRankUp(ctx context.Context, userID ranking.UserID, oldRank, newRank ranking.RankID, pointsAtChange int, reason string) (bool, error) {
	committed := false

	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(dbTx pgx.Tx) error {
		casQuery := `
			UPDATE user_ranking_state
			SET current_rank_id = $3,
			    highest_rank_achieved = GREATEST(highest_rank_achieved, $3),
			    updated_at = NOW()
			WHERE user_id = $1 AND current_rank_id = $2
		`
		tag, err := dbTx.Exec(ctx, casQuery, int64(userID), int(oldRank), int(newRank))
		if err != nil {
			return fmt.Errorf("failed to commit rank change: %w", err)
		}
		if tag.RowsAffected() == 0 {
			// Lost the race: another writer already moved the user.
			return nil
		}

		auditQuery := `
			INSERT INTO rank_transitions (user_id, old_rank_id, new_rank_id, points_at_transition, reason)
			VALUES ($1, $2, $3, $4, $5)
		`
		if _, err := dbTx.Exec(ctx, auditQuery, int64(userID), int(oldRank), int(newRank), pointsAtChange, reason); err != nil {
			return fmt.Errorf("failed to record rank transition: %w", err)
		}

		committed = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if committed {
		r.logger.Info("rank up committed",
			"user_id", int64(userID),
			"old_rank_id", int(oldRank),
			"new_rank_id", int(newRank),
		)
	}

	return committed, nil
}

// ListTransactions returns the user's most recent transactions, newest first.
func (r *LedgerRepo) ListTransactions(ctx context.Context, userID ranking.UserID, limit int) ([]ranking.PointTransaction, error) {
	query := `
		SELECT id, user_id, activity_type, points, reference_id, reference_kind, description, created_at
		FROM point_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, int64(userID), limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []ranking.PointTransaction
	for rows.Next() {
		var tx ranking.PointTransaction
		var activity string
		var refID *int64
		var refKind *string

		if err := rows.Scan(&tx.ID, &tx.UserID, &activity, &tx.PointsDelta, &refID, &refKind, &tx.Description, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("ledger: failed to scan transaction: %w", err)
		}

		tx.ActivityType = ranking.ActivityType(activity)
		if refID != nil && refKind != nil {
			tx.Reference = ranking.Reference{TargetID: *refID, TargetKind: *refKind}
		}
		txs = append(txs, tx)
	}

	return txs, rows.Err()
}

// Compile-time interface check.
var _ ranking.LedgerRepository = (*LedgerRepo)(nil)
