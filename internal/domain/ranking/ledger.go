package ranking

import (
	"fmt"
	"time"
)

// TransactionID identifies a point transaction in the append-only ledger.
type TransactionID int64

// PointTransaction is an immutable record of a point-affecting event.
// Transactions are never updated or deleted; the log is the audit trail and
// the source of truth for user totals.
type PointTransaction struct {
	// ID is assigned by storage on insert.
	ID TransactionID

	// UserID is the user whose balance changed.
	UserID UserID

	// PointsDelta is the signed point change. Penalties are negative and
	// totals are not floored at zero.
	PointsDelta int

	// ActivityType categorizes what earned (or cost) the points.
	ActivityType ActivityType

	// Reference optionally points at the triggering content.
	Reference Reference

	// Description is a human-readable note for the audit trail.
	Description string

	// CreatedAt is when the transaction was recorded.
	CreatedAt time.Time
}

// Validate checks the transaction fields before it reaches storage.
func (t PointTransaction) Validate() error {
	if !t.UserID.IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidUserID, t.UserID)
	}
	if !t.ActivityType.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownActivity, t.ActivityType)
	}
	if err := t.Reference.Validate(); err != nil {
		return err
	}
	return nil
}

// UserRankingState is the per-user aggregate maintained transactionally
// alongside every ledger append.
//
// Invariants:
//   - TotalPoints equals the sum of PointsDelta over the user's transactions.
//   - CurrentRankID is the highest tier whose threshold <= TotalPoints,
//     and is monotonically non-decreasing under organic point accrual.
type UserRankingState struct {
	UserID UserID

	// TotalPoints is the all-time signed point total. Can go negative.
	TotalPoints int

	// CurrentRankID is the user's current tier.
	CurrentRankID RankID

	// WeeklyPoints and MonthlyPoints are additive window counters, reset
	// by the scheduler rather than by the engine.
	WeeklyPoints  int
	MonthlyPoints int

	// ConsecutiveActiveDays is the current daily streak.
	ConsecutiveActiveDays int

	// LastActivityAt is when the user last earned points.
	LastActivityAt time.Time

	// HighestRankAchieved never decreases, even across administrative
	// overrides not modeled here.
	HighestRankAchieved RankID

	// AchievementCount is the number of achievements granted to the user.
	AchievementCount int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUserRankingState returns the zero-value state for a freshly
// initialized user: no points, lowest tier.
func NewUserRankingState(userID UserID, lowest RankID, now time.Time) UserRankingState {
	return UserRankingState{
		UserID:              userID,
		CurrentRankID:       lowest,
		HighestRankAchieved: lowest,
		LastActivityAt:      now,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// RankTransition is an immutable audit record written for every upward
// tier change.
type RankTransition struct {
	ID             int64
	UserID         UserID
	OldRankID      RankID
	NewRankID      RankID
	PointsAtChange int
	Reason         string
	CreatedAt      time.Time
}

// Validate checks the transition is upward and well-formed.
func (t RankTransition) Validate() error {
	if !t.UserID.IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidUserID, t.UserID)
	}
	if t.NewRankID <= t.OldRankID {
		return fmt.Errorf("ranking: transition must be upward: %d -> %d", t.OldRankID, t.NewRankID)
	}
	return nil
}

// RankSummary is the read model returned by get_user_rank.
type RankSummary struct {
	UserID         UserID
	TotalPoints    int
	CurrentRankID  RankID
	RankName       string
	RankEmoji      string
	RankProgress   float64 // ratio toward the next tier, 1.0 at the terminal tier
	NextRankPoints int     // threshold of the next tier, 0 at the terminal tier
	PointsToNext   int     // clamped at 0
	Perks          Perks
	IsSpecialRank  bool
}

// BuildRankSummary assembles the read model from state and the registry.
func BuildRankSummary(state UserRankingState, reg *Registry) (RankSummary, error) {
	def, err := reg.ByID(state.CurrentRankID)
	if err != nil {
		return RankSummary{}, err
	}

	summary := RankSummary{
		UserID:        state.UserID,
		TotalPoints:   state.TotalPoints,
		CurrentRankID: def.ID,
		RankName:      def.Name,
		RankEmoji:     def.Emoji,
		RankProgress:  reg.Progress(def, state.TotalPoints),
		Perks:         def.Perks,
		IsSpecialRank: def.IsSpecial,
	}

	if next, ok := reg.Next(def.ID); ok {
		summary.NextRankPoints = next.PointsRequired
		if toNext := next.PointsRequired - state.TotalPoints; toNext > 0 {
			summary.PointsToNext = toNext
		}
	}

	return summary, nil
}
