package ranking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredicate_FirstOccurrence(t *testing.T) {
	p := Predicate{Kind: PredicateFirstOccurrence, Activity: ActivityConfessionApproved}

	assert.True(t, p.Matches(EvaluationInput{Activity: ActivityConfessionApproved}))
	assert.False(t, p.Matches(EvaluationInput{Activity: ActivityCommentPosted}))
}

func TestPredicate_CountThreshold(t *testing.T) {
	p := Predicate{Kind: PredicateCountThreshold, Counter: CounterApprovedConfessions, Threshold: 10}

	assert.False(t, p.Matches(EvaluationInput{Stats: UserStats{ApprovedConfessions: 9}}))
	assert.True(t, p.Matches(EvaluationInput{Stats: UserStats{ApprovedConfessions: 10}}))
	assert.True(t, p.Matches(EvaluationInput{Stats: UserStats{ApprovedConfessions: 11}}))
}

func TestPredicate_MetricThreshold(t *testing.T) {
	t.Run("target like count", func(t *testing.T) {
		p := Predicate{Kind: PredicateMetricThreshold, Metric: MetricTargetLikeCount, MetricMin: 100}
		assert.False(t, p.Matches(EvaluationInput{Context: ActivityContext{LikeCount: 99}}))
		assert.True(t, p.Matches(EvaluationInput{Context: ActivityContext{LikeCount: 100}}))
	})

	t.Run("consecutive days", func(t *testing.T) {
		p := Predicate{Kind: PredicateMetricThreshold, Metric: MetricConsecutiveDays, MetricMin: 7}
		assert.False(t, p.Matches(EvaluationInput{State: UserRankingState{ConsecutiveActiveDays: 6}}))
		assert.True(t, p.Matches(EvaluationInput{State: UserRankingState{ConsecutiveActiveDays: 7}}))
	})

	t.Run("monthly position is top-N", func(t *testing.T) {
		p := Predicate{Kind: PredicateMetricThreshold, Metric: MetricMonthlyPosition, MetricMin: 10}
		assert.True(t, p.Matches(EvaluationInput{Stats: UserStats{MonthlyPosition: 1}}))
		assert.True(t, p.Matches(EvaluationInput{Stats: UserStats{MonthlyPosition: 10}}))
		assert.False(t, p.Matches(EvaluationInput{Stats: UserStats{MonthlyPosition: 11}}))
		assert.False(t, p.Matches(EvaluationInput{Stats: UserStats{MonthlyPosition: 0}}), "unranked never matches")
	})
}

func TestUserStats_Counter(t *testing.T) {
	stats := UserStats{
		ApprovedConfessions:  1,
		CommentsPosted:       2,
		CommentLikesReceived: 3,
		QualityComments:      4,
		EarlyBirdConfessions: 5,
		NightOwlConfessions:  6,
	}

	assert.Equal(t, 1, stats.Counter(CounterApprovedConfessions))
	assert.Equal(t, 2, stats.Counter(CounterCommentsPosted))
	assert.Equal(t, 3, stats.Counter(CounterCommentLikesReceived))
	assert.Equal(t, 4, stats.Counter(CounterQualityComments))
	assert.Equal(t, 5, stats.Counter(CounterEarlyBirdConfessions))
	assert.Equal(t, 6, stats.Counter(CounterNightOwlConfessions))
	assert.Equal(t, 0, stats.Counter(CounterKind(99)))
}

func TestNewCatalog_Validation(t *testing.T) {
	t.Run("empty rule ID", func(t *testing.T) {
		_, err := NewCatalog([]AchievementRule{{Name: "Nameless"}})
		assert.Error(t, err)
	})

	t.Run("duplicate rule ID", func(t *testing.T) {
		_, err := NewCatalog([]AchievementRule{
			{ID: "dup", Name: "A"},
			{ID: "dup", Name: "B"},
		})
		assert.Error(t, err)
	})

	t.Run("order preserved", func(t *testing.T) {
		c, err := NewCatalog([]AchievementRule{
			{ID: "b", Name: "B"},
			{ID: "a", Name: "A"},
		})
		require.NoError(t, err)
		rules := c.Rules()
		assert.Equal(t, AchievementID("b"), rules[0].ID)
		assert.Equal(t, AchievementID("a"), rules[1].ID)
	})
}

func TestDefaultCatalog_IsValid(t *testing.T) {
	c, err := NewCatalog(DefaultCatalog())
	require.NoError(t, err)
	assert.Len(t, c.Rules(), 18)

	rule, ok := c.ByID("first_confession")
	require.True(t, ok)
	assert.Equal(t, PredicateFirstOccurrence, rule.Predicate.Kind)
	assert.Equal(t, 50, rule.PointsAwarded)
}

func TestNewGrant(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	rule := AchievementRule{
		ID:            "week_streak",
		Name:          "Week Warrior",
		Description:   "7 consecutive days active",
		PointsAwarded: 100,
		IsSpecial:     true,
	}

	grant := NewGrant(42, rule, now)

	assert.Equal(t, UserID(42), grant.UserID)
	assert.Equal(t, AchievementID("week_streak"), grant.AchievementID)
	assert.Equal(t, 100, grant.PointsAwarded)
	assert.True(t, grant.IsSpecial)
	assert.Equal(t, now, grant.GrantedAt)
	assert.NoError(t, grant.Validate())
}

func TestAchievementGrant_Validate(t *testing.T) {
	assert.ErrorIs(t, AchievementGrant{UserID: 0, AchievementID: "x"}.Validate(), ErrInvalidUserID)
	assert.Error(t, AchievementGrant{UserID: 1}.Validate())
}
