package postgres

// Embedded schema migrations for the ranking engine.
//
// The point ledger (point_transactions) is append-only: rows are never
// updated or deleted by application code. user_ranking_state carries the
// derived aggregates and is only ever modified in the same transaction as
// a ledger append, a streak advance, or a rank commit.

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: POINT LEDGER
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS point_transactions (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL,
	activity_type TEXT NOT NULL,
	points INTEGER NOT NULL,
	reference_id BIGINT,
	reference_kind TEXT,
	description TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

	CONSTRAINT chk_user_id_positive CHECK (user_id > 0)
);

CREATE INDEX IF NOT EXISTS idx_point_tx_user_created
	ON point_transactions(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_point_tx_activity
	ON point_transactions(activity_type);
CREATE INDEX IF NOT EXISTS idx_point_tx_created_hour
	ON point_transactions(user_id, activity_type, created_at);

CREATE TABLE IF NOT EXISTS user_ranking_state (
	user_id BIGINT PRIMARY KEY,
	total_points INTEGER NOT NULL DEFAULT 0,
	weekly_points INTEGER NOT NULL DEFAULT 0,
	monthly_points INTEGER NOT NULL DEFAULT 0,
	current_rank_id INTEGER NOT NULL DEFAULT 1,
	highest_rank_achieved INTEGER NOT NULL DEFAULT 1,
	consecutive_active_days INTEGER NOT NULL DEFAULT 0,
	last_streak_day DATE,
	achievement_count INTEGER NOT NULL DEFAULT 0,
	last_activity_at TIMESTAMP WITH TIME ZONE,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

	CONSTRAINT chk_state_user_id_positive CHECK (user_id > 0),
	CONSTRAINT chk_rank_id_positive CHECK (current_rank_id > 0),
	CONSTRAINT chk_highest_rank_positive CHECK (highest_rank_achieved > 0),
	CONSTRAINT chk_streak_non_negative CHECK (consecutive_active_days >= 0)
);

CREATE INDEX IF NOT EXISTS idx_state_weekly_points
	ON user_ranking_state(weekly_points DESC, user_id ASC);
CREATE INDEX IF NOT EXISTS idx_state_monthly_points
	ON user_ranking_state(monthly_points DESC, user_id ASC);
CREATE INDEX IF NOT EXISTS idx_state_total_points
	ON user_ranking_state(total_points DESC, user_id ASC);
`

const migration001Down = `
DROP TABLE IF EXISTS user_ranking_state;
DROP TABLE IF EXISTS point_transactions;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: RANK DEFINITIONS AND TRANSITIONS
// ══════════════════════════════════════════════════════════════════════════════

// The authoritative rank table lives in the domain layer (ranking.DefaultRanks);
// the seed below mirrors it for reporting and ad-hoc SQL only.
const migration002Up = `
CREATE TABLE IF NOT EXISTS rank_definitions (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	emoji TEXT NOT NULL,
	min_points INTEGER NOT NULL,

	CONSTRAINT chk_min_points_non_negative CHECK (min_points >= 0)
);

INSERT INTO rank_definitions (id, name, emoji, min_points) VALUES
	(1,  'New Confessor',      '🆕',    0),
	(2,  'First Timer',        '🌱',    50),
	(3,  'Regular',            '📝',    150),
	(4,  'Active Member',      '⚡',    300),
	(5,  'Community Helper',   '🤝',    500),
	(6,  'Trusted Confessor',  '🌟',    750),
	(7,  'Veteran',            '🏆',    1200),
	(8,  'Elite Confessor',    '💎',    2000),
	(9,  'Community Legend',   '👑',    3500),
	(10, 'Master Storyteller', '📚',    5000),
	(11, 'Community Guardian', '🛡️',   7500),
	(12, 'Confession Sage',    '🧙‍♂️', 10000)
ON CONFLICT (id) DO NOTHING;

CREATE TABLE IF NOT EXISTS rank_transitions (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL,
	old_rank_id INTEGER NOT NULL,
	new_rank_id INTEGER NOT NULL,
	points_at_transition INTEGER NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	occurred_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

	CONSTRAINT chk_transition_upward CHECK (new_rank_id > old_rank_id)
);

CREATE INDEX IF NOT EXISTS idx_rank_transitions_user
	ON rank_transitions(user_id, occurred_at DESC);
`

const migration002Down = `
DROP TABLE IF EXISTS rank_transitions;
DROP TABLE IF EXISTS rank_definitions;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: ACHIEVEMENT GRANTS
// ══════════════════════════════════════════════════════════════════════════════

// UNIQUE(user_id, achievement_id) is the last idempotency gate for grants;
// the application treats a conflict as "already granted", not an error.
const migration003Up = `
CREATE TABLE IF NOT EXISTS achievement_grants (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL,
	achievement_id TEXT NOT NULL,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	points_awarded INTEGER NOT NULL DEFAULT 0,
	is_special BOOLEAN NOT NULL DEFAULT FALSE,
	granted_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

	CONSTRAINT chk_grant_user_id_positive CHECK (user_id > 0),
	CONSTRAINT uq_grant_user_achievement UNIQUE (user_id, achievement_id)
);

CREATE INDEX IF NOT EXISTS idx_grants_user_granted
	ON achievement_grants(user_id, granted_at DESC);
`

const migration003Down = `
DROP TABLE IF EXISTS achievement_grants;
`

// GetMigrations returns all embedded migrations in order.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_point_ledger",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_ranks",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_achievements",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
	}
}
