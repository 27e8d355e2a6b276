package ranking

import (
	"fmt"
	"time"
)

// AchievementID identifies an achievement rule.
type AchievementID string

// PredicateKind is the closed set of qualifier variants. Rules carry typed
// parameters for their kind instead of dispatching on strings.
type PredicateKind int

const (
	// PredicateFirstOccurrence qualifies on the first award of a given
	// activity type. The once-only guarantee comes from the grant
	// uniqueness check, not from counting.
	PredicateFirstOccurrence PredicateKind = iota

	// PredicateCountThreshold qualifies when a derivable per-user counter
	// reaches a threshold.
	PredicateCountThreshold

	// PredicateMetricThreshold qualifies when a derived metric (streak
	// length, like count on a single post, leaderboard position) reaches
	// a threshold.
	PredicateMetricThreshold
)

// CounterKind names the per-user counters derivable from stored history.
type CounterKind int

const (
	CounterApprovedConfessions CounterKind = iota
	CounterCommentsPosted
	CounterCommentLikesReceived
	CounterQualityComments
	CounterEarlyBirdConfessions
	CounterNightOwlConfessions
)

// MetricKind names the derived metrics available to predicates.
type MetricKind int

const (
	// MetricTargetLikeCount is the like count on the content that
	// triggered the current award (from the activity context).
	MetricTargetLikeCount MetricKind = iota

	// MetricConsecutiveDays is the user's current daily streak.
	MetricConsecutiveDays

	// MetricMonthlyPosition is the user's current monthly leaderboard
	// position (0 when unranked). Lower is better.
	MetricMonthlyPosition
)

// Predicate is the tagged qualifier attached to an achievement rule.
// Exactly the fields for its Kind are meaningful.
type Predicate struct {
	Kind PredicateKind

	// Activity is the triggering activity type (first-occurrence).
	Activity ActivityType

	// Counter and Threshold parameterize count-threshold predicates.
	Counter   CounterKind
	Threshold int

	// Metric and MetricMin parameterize metric-threshold predicates.
	// For MetricMonthlyPosition the predicate matches positions in
	// [1, MetricMin] instead (top-N semantics).
	Metric    MetricKind
	MetricMin int
}

// AchievementRule is a static catalog entry: read-only at runtime.
type AchievementRule struct {
	ID            AchievementID
	Name          string
	Description   string
	PointsAwarded int
	IsSpecial     bool
	Predicate     Predicate
}

// AchievementGrant is the immutable record of a rule being satisfied.
// At most one grant exists per (user, achievement) pair.
type AchievementGrant struct {
	ID            int64
	UserID        UserID
	AchievementID AchievementID
	Name          string
	Description   string
	PointsAwarded int
	IsSpecial     bool
	GrantedAt     time.Time
}

// Validate checks the grant fields before it reaches storage.
func (g AchievementGrant) Validate() error {
	if !g.UserID.IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidUserID, g.UserID)
	}
	if g.AchievementID == "" {
		return fmt.Errorf("ranking: achievement ID is required")
	}
	return nil
}

// UserStats carries the derivable aggregates predicates evaluate against.
// Storage fills it from the ledger and content tables per evaluation.
type UserStats struct {
	ApprovedConfessions  int
	CommentsPosted       int
	CommentLikesReceived int
	QualityComments      int
	EarlyBirdConfessions int
	NightOwlConfessions  int

	// MonthlyPosition is the current monthly leaderboard position,
	// 0 when the user is unranked.
	MonthlyPosition int
}

// Counter returns the value of a named counter.
func (s UserStats) Counter(kind CounterKind) int {
	switch kind {
	case CounterApprovedConfessions:
		return s.ApprovedConfessions
	case CounterCommentsPosted:
		return s.CommentsPosted
	case CounterCommentLikesReceived:
		return s.CommentLikesReceived
	case CounterQualityComments:
		return s.QualityComments
	case CounterEarlyBirdConfessions:
		return s.EarlyBirdConfessions
	case CounterNightOwlConfessions:
		return s.NightOwlConfessions
	default:
		return 0
	}
}

// EvaluationInput is everything a predicate may inspect for one award.
type EvaluationInput struct {
	Activity ActivityType
	Context  ActivityContext
	State    UserRankingState
	Stats    UserStats
}

// Matches is the single dispatch point for all predicate kinds.
func (p Predicate) Matches(in EvaluationInput) bool {
	switch p.Kind {
	case PredicateFirstOccurrence:
		return in.Activity == p.Activity

	case PredicateCountThreshold:
		return in.Stats.Counter(p.Counter) >= p.Threshold

	case PredicateMetricThreshold:
		switch p.Metric {
		case MetricTargetLikeCount:
			return in.Context.LikeCount >= p.MetricMin
		case MetricConsecutiveDays:
			return in.State.ConsecutiveActiveDays >= p.MetricMin
		case MetricMonthlyPosition:
			return in.Stats.MonthlyPosition >= 1 && in.Stats.MonthlyPosition <= p.MetricMin
		}
	}
	return false
}

// Catalog is the ordered, read-only list of achievement rules. Order is
// irrelevant for correctness (rules are independent) but stable for
// deterministic testing.
type Catalog struct {
	rules []AchievementRule
	byID  map[AchievementID]AchievementRule
}

// NewCatalog builds a catalog preserving rule order.
func NewCatalog(rules []AchievementRule) (*Catalog, error) {
	byID := make(map[AchievementID]AchievementRule, len(rules))
	for _, r := range rules {
		if r.ID == "" {
			return nil, fmt.Errorf("ranking: catalog rule %q has empty ID", r.Name)
		}
		if _, dup := byID[r.ID]; dup {
			return nil, fmt.Errorf("ranking: duplicate achievement ID %q", r.ID)
		}
		byID[r.ID] = r
	}
	ordered := make([]AchievementRule, len(rules))
	copy(ordered, rules)
	return &Catalog{rules: ordered, byID: byID}, nil
}

// MustCatalog builds a catalog and panics on invalid rules.
func MustCatalog(rules []AchievementRule) *Catalog {
	c, err := NewCatalog(rules)
	if err != nil {
		panic(err)
	}
	return c
}

// Rules returns the rules in declaration order.
func (c *Catalog) Rules() []AchievementRule {
	out := make([]AchievementRule, len(c.rules))
	copy(out, c.rules)
	return out
}

// ByID returns a rule by ID.
func (c *Catalog) ByID(id AchievementID) (AchievementRule, bool) {
	r, ok := c.byID[id]
	return r, ok
}

// DefaultCatalog returns the built-in achievement rules.
func DefaultCatalog() []AchievementRule {
	return []AchievementRule{
		// First-time achievements
		{ID: "first_confession", Name: "🎯 First Confession", Description: "Posted your first confession", PointsAwarded: 50,
			Predicate: Predicate{Kind: PredicateFirstOccurrence, Activity: ActivityConfessionApproved}},
		{ID: "first_comment", Name: "💬 First Comment", Description: "Made your first comment", PointsAwarded: 20,
			Predicate: Predicate{Kind: PredicateFirstOccurrence, Activity: ActivityCommentPosted}},
		{ID: "first_like", Name: "👍 First Like", Description: "Received your first like", PointsAwarded: 10,
			Predicate: Predicate{Kind: PredicateFirstOccurrence, Activity: ActivityConfessionLiked}},

		// Confession milestones
		{ID: "confession_milestone_10", Name: "📝 Storyteller", Description: "Posted 10 confessions", PointsAwarded: 100,
			Predicate: Predicate{Kind: PredicateCountThreshold, Counter: CounterApprovedConfessions, Threshold: 10}},
		{ID: "confession_milestone_50", Name: "📚 Author", Description: "Posted 50 confessions", PointsAwarded: 300,
			Predicate: Predicate{Kind: PredicateCountThreshold, Counter: CounterApprovedConfessions, Threshold: 50}},
		{ID: "confession_milestone_100", Name: "✍️ Master Writer", Description: "Posted 100 confessions", PointsAwarded: 500, IsSpecial: true,
			Predicate: Predicate{Kind: PredicateCountThreshold, Counter: CounterApprovedConfessions, Threshold: 100}},

		// Comment milestones
		{ID: "comment_milestone_50", Name: "💬 Conversationalist", Description: "Made 50 comments", PointsAwarded: 100,
			Predicate: Predicate{Kind: PredicateCountThreshold, Counter: CounterCommentsPosted, Threshold: 50}},
		{ID: "comment_milestone_200", Name: "🗣️ Community Voice", Description: "Made 200 comments", PointsAwarded: 300,
			Predicate: Predicate{Kind: PredicateCountThreshold, Counter: CounterCommentsPosted, Threshold: 200}},
		{ID: "comment_milestone_500", Name: "🎙️ Discussion Leader", Description: "Made 500 comments", PointsAwarded: 500, IsSpecial: true,
			Predicate: Predicate{Kind: PredicateCountThreshold, Counter: CounterCommentsPosted, Threshold: 500}},

		// Engagement achievements
		{ID: "popular_confession", Name: "🔥 Viral Post", Description: "Got 100+ likes on a confession", PointsAwarded: 200, IsSpecial: true,
			Predicate: Predicate{Kind: PredicateMetricThreshold, Metric: MetricTargetLikeCount, MetricMin: 100}},
		{ID: "helpful_commenter", Name: "🤝 Helper", Description: "Received 50+ likes on comments", PointsAwarded: 150,
			Predicate: Predicate{Kind: PredicateCountThreshold, Counter: CounterCommentLikesReceived, Threshold: 50}},
		{ID: "community_favorite", Name: "⭐ Community Star", Description: "Top 10 on monthly leaderboard", PointsAwarded: 300, IsSpecial: true,
			Predicate: Predicate{Kind: PredicateMetricThreshold, Metric: MetricMonthlyPosition, MetricMin: 10}},

		// Streak achievements
		{ID: "week_streak", Name: "🔥 Week Warrior", Description: "7 consecutive days active", PointsAwarded: 100,
			Predicate: Predicate{Kind: PredicateMetricThreshold, Metric: MetricConsecutiveDays, MetricMin: 7}},
		{ID: "month_streak", Name: "💪 Monthly Master", Description: "30 consecutive days active", PointsAwarded: 500, IsSpecial: true,
			Predicate: Predicate{Kind: PredicateMetricThreshold, Metric: MetricConsecutiveDays, MetricMin: 30}},
		{ID: "quarter_streak", Name: "👑 Quarter Champion", Description: "90 consecutive days active", PointsAwarded: 1000, IsSpecial: true,
			Predicate: Predicate{Kind: PredicateMetricThreshold, Metric: MetricConsecutiveDays, MetricMin: 90}},

		// Special achievements
		{ID: "early_bird", Name: "🌅 Early Bird", Description: "Posted 10 confessions before 8 AM", PointsAwarded: 100,
			Predicate: Predicate{Kind: PredicateCountThreshold, Counter: CounterEarlyBirdConfessions, Threshold: 10}},
		{ID: "night_owl", Name: "🦉 Night Owl", Description: "Posted 10 confessions after 10 PM", PointsAwarded: 100,
			Predicate: Predicate{Kind: PredicateCountThreshold, Counter: CounterNightOwlConfessions, Threshold: 10}},
		{ID: "quality_contributor", Name: "💎 Quality Contributor", Description: "10 high-quality posts", PointsAwarded: 250, IsSpecial: true,
			Predicate: Predicate{Kind: PredicateCountThreshold, Counter: CounterQualityComments, Threshold: 10}},
	}
}

// NewGrant materializes a grant from a rule.
func NewGrant(userID UserID, rule AchievementRule, now time.Time) AchievementGrant {
	return AchievementGrant{
		UserID:        userID,
		AchievementID: rule.ID,
		Name:          rule.Name,
		Description:   rule.Description,
		PointsAwarded: rule.PointsAwarded,
		IsSpecial:     rule.IsSpecial,
		GrantedAt:     now,
	}
}
