package command

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confession-hub/confession-bot/internal/domain/ranking"
	"github.com/confession-hub/confession-bot/internal/domain/shared"
	"github.com/confession-hub/confession-bot/pkg/logger"
	"github.com/confession-hub/confession-bot/pkg/timeutil"
)

// ──────────────────────────────────────────────────────────────────────────────
// In-memory fakes
// ──────────────────────────────────────────────────────────────────────────────

type fakeLedger struct {
	states       map[ranking.UserID]*ranking.UserRankingState
	streakDays   map[ranking.UserID]time.Time // mirrors the last_streak_day column
	transactions []ranking.PointTransaction
	rankUpDenied bool // simulate losing the compare-and-set race
	transitions  int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		states:     make(map[ranking.UserID]*ranking.UserRankingState),
		streakDays: make(map[ranking.UserID]time.Time),
	}
}

func (f *fakeLedger) InitializeUser(_ context.Context, userID ranking.UserID, lowest ranking.RankID) error {
	if _, ok := f.states[userID]; ok {
		return nil
	}
	state := ranking.NewUserRankingState(userID, lowest, time.Now().UTC())
	f.states[userID] = &state
	return nil
}

func (f *fakeLedger) AppendTransaction(_ context.Context, tx ranking.PointTransaction) (ranking.TransactionID, ranking.UserRankingState, error) {
	state, ok := f.states[tx.UserID]
	if !ok {
		return 0, ranking.UserRankingState{}, shared.ErrUserStateNotFound
	}
	tx.ID = ranking.TransactionID(len(f.transactions) + 1)
	tx.CreatedAt = time.Now().UTC()
	f.transactions = append(f.transactions, tx)

	state.TotalPoints += tx.PointsDelta
	state.WeeklyPoints += tx.PointsDelta
	state.MonthlyPoints += tx.PointsDelta
	state.LastActivityAt = tx.CreatedAt
	return tx.ID, *state, nil
}

func (f *fakeLedger) GetState(_ context.Context, userID ranking.UserID) (ranking.UserRankingState, error) {
	state, ok := f.states[userID]
	if !ok {
		return ranking.UserRankingState{}, shared.ErrUserStateNotFound
	}
	return *state, nil
}

// AdvanceStreak mirrors the repository: the streak is tracked against a
// dedicated day marker, not LastActivityAt, which AppendTransaction
// overwrites on every award.
func (f *fakeLedger) AdvanceStreak(_ context.Context, userID ranking.UserID, day time.Time) (ranking.StreakResult, error) {
	state, ok := f.states[userID]
	if !ok {
		return ranking.StreakResult{}, shared.ErrUserStateNotFound
	}
	prev := state.ConsecutiveActiveDays
	last, seen := f.streakDays[userID]

	var result ranking.StreakResult
	switch {
	case seen && timeutil.SameDay(last, day) && prev > 0:
		return ranking.StreakResult{Current: prev}, nil
	case seen && timeutil.IsYesterday(last, day):
		result = ranking.StreakResult{Current: prev + 1, Advanced: true}
	default:
		result = ranking.StreakResult{
			Current:  1,
			Advanced: prev == 0,
			Broken:   prev > 1,
			Previous: prev,
		}
	}

	state.ConsecutiveActiveDays = result.Current
	f.streakDays[userID] = timeutil.StartOfDay(day)
	return result, nil
}

func (f *fakeLedger) CommitRankUp(_ context.Context, userID ranking.UserID, oldRank, newRank ranking.RankID, _ int, _ string) (bool, error) {
	if f.rankUpDenied {
		return false, nil
	}
	state, ok := f.states[userID]
	if !ok || state.CurrentRankID != oldRank {
		return false, nil
	}
	state.CurrentRankID = newRank
	if newRank > state.HighestRankAchieved {
		state.HighestRankAchieved = newRank
	}
	f.transitions++
	return true, nil
}

func (f *fakeLedger) ListTransactions(_ context.Context, userID ranking.UserID, limit int) ([]ranking.PointTransaction, error) {
	var out []ranking.PointTransaction
	for i := len(f.transactions) - 1; i >= 0 && len(out) < limit; i-- {
		if f.transactions[i].UserID == userID {
			out = append(out, f.transactions[i])
		}
	}
	return out, nil
}

// countByActivity tallies appended transactions of a given type.
func (f *fakeLedger) countByActivity(activity ranking.ActivityType) int {
	n := 0
	for _, tx := range f.transactions {
		if tx.ActivityType == activity {
			n++
		}
	}
	return n
}

type fakeAchievements struct {
	grants     map[string]ranking.AchievementGrant
	stats      ranking.UserStats
	denyInsert bool // simulate a concurrent award winning the insert race
}

func newFakeAchievements() *fakeAchievements {
	return &fakeAchievements{grants: make(map[string]ranking.AchievementGrant)}
}

func grantKey(userID ranking.UserID, id ranking.AchievementID) string {
	return fmt.Sprintf("%d/%s", userID, id)
}

func (f *fakeAchievements) InsertGrant(_ context.Context, grant ranking.AchievementGrant) (bool, error) {
	if f.denyInsert {
		return false, nil
	}
	key := grantKey(grant.UserID, grant.AchievementID)
	if _, ok := f.grants[key]; ok {
		return false, nil
	}
	f.grants[key] = grant
	return true, nil
}

func (f *fakeAchievements) HasGrant(_ context.Context, userID ranking.UserID, id ranking.AchievementID) (bool, error) {
	_, ok := f.grants[grantKey(userID, id)]
	return ok, nil
}

func (f *fakeAchievements) ListGrants(_ context.Context, userID ranking.UserID, _ int) ([]ranking.AchievementGrant, error) {
	var out []ranking.AchievementGrant
	for _, g := range f.grants {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeAchievements) GetStats(_ context.Context, _ ranking.UserID) (ranking.UserStats, error) {
	return f.stats, nil
}

type capturingPublisher struct {
	events []shared.Event
}

func (p *capturingPublisher) Publish(event shared.Event) error {
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) typesSeen() []shared.EventType {
	out := make([]shared.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

// ──────────────────────────────────────────────────────────────────────────────
// Test harness
// ──────────────────────────────────────────────────────────────────────────────

// Small tier table so rank-ups are cheap to trigger.
func testRegistry() *ranking.Registry {
	return ranking.MustRegistry([]ranking.RankDefinition{
		{ID: 1, Name: "Newcomer", Emoji: "🆕", PointsRequired: 0},
		{ID: 2, Name: "Regular", Emoji: "📝", PointsRequired: 50},
		{ID: 3, Name: "Veteran", Emoji: "🏆", PointsRequired: 150},
	})
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard})
}

func newTestHandler(ledger *fakeLedger, ach *fakeAchievements, rules []ranking.AchievementRule, pub *capturingPublisher) *AwardPointsHandler {
	return NewAwardPointsHandler(
		ledger,
		ach,
		testRegistry(),
		ranking.MustCatalog(rules),
		pub,
		quietLogger(),
		AwardPointsConfig{
			EvaluationPasses:  2,
			MinStreakForBonus: 3,
			RankUpReason:      "Points threshold reached",
		},
	)
}

// seedStreak backdates the user's streak marker by daysAgo whole days.
func seedStreak(ledger *fakeLedger, userID ranking.UserID, streak, daysAgo int) {
	ledger.states[userID].ConsecutiveActiveDays = streak
	ledger.streakDays[userID] = timeutil.StartOfDay(time.Now().UTC()).AddDate(0, 0, -daysAgo)
}

func seedUser(ledger *fakeLedger, userID ranking.UserID, points int, rank ranking.RankID) {
	state := ranking.NewUserRankingState(userID, 1, time.Now().UTC())
	state.TotalPoints = points
	state.WeeklyPoints = points
	state.MonthlyPoints = points
	state.CurrentRankID = rank
	state.HighestRankAchieved = rank
	ledger.states[userID] = &state
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────────────────────────────────

func TestAwardPoints_FirstAwardInitializesUser(t *testing.T) {
	ledger := newFakeLedger()
	pub := &capturingPublisher{}
	h := newTestHandler(ledger, newFakeAchievements(), nil, pub)

	result, err := h.Handle(context.Background(), AwardPointsCommand{
		UserID:   42,
		Activity: ranking.ActivityConfessionSubmitted,
	})
	require.NoError(t, err)

	assert.Equal(t, 10, result.PointsDelta)
	assert.Equal(t, 10, result.TotalPoints)
	assert.False(t, result.RankChanged)

	state, err := ledger.GetState(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, ranking.RankID(1), state.CurrentRankID)
	assert.Equal(t, 10, state.WeeklyPoints)
	assert.Equal(t, 10, state.MonthlyPoints)

	assert.Contains(t, pub.typesSeen(), shared.EventPointsAwarded)
}

func TestAwardPoints_ValidationRejectsBeforeAnyWrite(t *testing.T) {
	ledger := newFakeLedger()
	h := newTestHandler(ledger, newFakeAchievements(), nil, &capturingPublisher{})

	tests := []struct {
		name string
		cmd  AwardPointsCommand
	}{
		{"invalid user", AwardPointsCommand{UserID: 0, Activity: ranking.ActivityCommentPosted}},
		{"unknown activity", AwardPointsCommand{UserID: 1, Activity: "made_up"}},
		{"incomplete reference", AwardPointsCommand{
			UserID: 1, Activity: ranking.ActivityCommentPosted,
			Reference: ranking.Reference{TargetID: 5},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Handle(context.Background(), tt.cmd)
			assert.ErrorIs(t, err, shared.ErrValidation)
			assert.Empty(t, ledger.transactions)
		})
	}
}

func TestAwardPoints_RankUpAppendsBonusAndPublishes(t *testing.T) {
	ledger := newFakeLedger()
	pub := &capturingPublisher{}
	h := newTestHandler(ledger, newFakeAchievements(), nil, pub)
	seedUser(ledger, 42, 40, 1)

	result, err := h.Handle(context.Background(), AwardPointsCommand{
		UserID:   42,
		Activity: ranking.ActivityConfessionApproved, // +25 -> 65, crosses 50
	})
	require.NoError(t, err)

	assert.True(t, result.RankChanged)
	assert.Equal(t, ranking.RankID(2), result.NewRank.ID)

	// 40 + 25 (award) + 50 (rank-up bonus) = 115, still below tier 3.
	assert.Equal(t, 115, result.TotalPoints)
	assert.Equal(t, 1, ledger.countByActivity(ranking.ActivityRankUpBonus))
	assert.Equal(t, 1, ledger.transitions)

	state, _ := ledger.GetState(context.Background(), 42)
	assert.Equal(t, ranking.RankID(2), state.CurrentRankID)
	assert.Equal(t, ranking.RankID(2), state.HighestRankAchieved)

	assert.Contains(t, pub.typesSeen(), shared.EventRankUp)
}

func TestAwardPoints_AchievementRewardCascadesIntoSecondRankUp(t *testing.T) {
	ledger := newFakeLedger()
	pub := &capturingPublisher{}
	rules := []ranking.AchievementRule{{
		ID:            "first_confession",
		Name:          "First Confession",
		PointsAwarded: 100,
		Predicate:     ranking.Predicate{Kind: ranking.PredicateFirstOccurrence, Activity: ranking.ActivityConfessionApproved},
	}}
	h := newTestHandler(ledger, newFakeAchievements(), rules, pub)
	seedUser(ledger, 42, 40, 1)

	result, err := h.Handle(context.Background(), AwardPointsCommand{
		UserID:   42,
		Activity: ranking.ActivityConfessionApproved,
	})
	require.NoError(t, err)

	// 40 +25 -> rank 2 (+50) -> 115; reward +100 -> 215 -> rank 3 (+50) = 265.
	// The second transition comes from the bounded re-evaluation pass.
	require.Len(t, result.Achievements, 1)
	assert.True(t, result.RankChanged)
	assert.Equal(t, 265, result.TotalPoints)
	assert.Equal(t, 2, ledger.transitions)
	assert.Equal(t, 2, ledger.countByActivity(ranking.ActivityRankUpBonus))
	assert.Equal(t, 1, ledger.countByActivity(ranking.ActivityAchievementReward))

	state, _ := ledger.GetState(context.Background(), 42)
	assert.Equal(t, ranking.RankID(3), state.CurrentRankID)

	assert.Contains(t, pub.typesSeen(), shared.EventAchievementGranted)
}

func TestAwardPoints_DuplicateGrantRaceIsBenign(t *testing.T) {
	ledger := newFakeLedger()
	ach := newFakeAchievements()
	ach.denyInsert = true
	rules := []ranking.AchievementRule{{
		ID:        "first_comment",
		Name:      "First Comment",
		Predicate: ranking.Predicate{Kind: ranking.PredicateFirstOccurrence, Activity: ranking.ActivityCommentPosted},
	}}
	h := newTestHandler(ledger, ach, rules, &capturingPublisher{})

	result, err := h.Handle(context.Background(), AwardPointsCommand{
		UserID:   42,
		Activity: ranking.ActivityCommentPosted,
	})
	require.NoError(t, err)

	assert.Empty(t, result.Achievements)
	assert.Equal(t, 0, ledger.countByActivity(ranking.ActivityAchievementReward))
}

func TestAwardPoints_AlreadyGrantedRuleIsSkipped(t *testing.T) {
	ledger := newFakeLedger()
	ach := newFakeAchievements()
	rules := []ranking.AchievementRule{{
		ID:        "first_comment",
		Name:      "First Comment",
		Predicate: ranking.Predicate{Kind: ranking.PredicateFirstOccurrence, Activity: ranking.ActivityCommentPosted},
	}}
	h := newTestHandler(ledger, ach, rules, &capturingPublisher{})

	_, err := h.Handle(context.Background(), AwardPointsCommand{UserID: 42, Activity: ranking.ActivityCommentPosted})
	require.NoError(t, err)

	result, err := h.Handle(context.Background(), AwardPointsCommand{UserID: 42, Activity: ranking.ActivityCommentPosted})
	require.NoError(t, err)

	assert.Empty(t, result.Achievements, "second occurrence must not re-grant")
	assert.Len(t, ach.grants, 1)
}

func TestAwardPoints_PenaltyCanDriveTotalNegative(t *testing.T) {
	ledger := newFakeLedger()
	h := newTestHandler(ledger, newFakeAchievements(), nil, &capturingPublisher{})
	seedUser(ledger, 42, 10, 1)

	result, err := h.Handle(context.Background(), AwardPointsCommand{
		UserID:   42,
		Activity: ranking.ActivitySpamDetected, // -15
	})
	require.NoError(t, err)

	assert.Equal(t, -15, result.PointsDelta)
	assert.Equal(t, -5, result.TotalPoints)
	assert.False(t, result.RankChanged)

	state, _ := ledger.GetState(context.Background(), 42)
	assert.Equal(t, -5, state.TotalPoints, "totals are not floored at zero")
	assert.Equal(t, ranking.RankID(1), state.CurrentRankID, "tier never moves down")
}

func TestAwardPoints_LostRankUpRaceLeavesStateConsistent(t *testing.T) {
	ledger := newFakeLedger()
	ledger.rankUpDenied = true
	h := newTestHandler(ledger, newFakeAchievements(), nil, &capturingPublisher{})
	seedUser(ledger, 42, 40, 1)

	result, err := h.Handle(context.Background(), AwardPointsCommand{
		UserID:   42,
		Activity: ranking.ActivityConfessionApproved,
	})
	require.NoError(t, err)

	assert.False(t, result.RankChanged)
	assert.Equal(t, 0, ledger.countByActivity(ranking.ActivityRankUpBonus),
		"no bonus without a committed transition")
}

func TestAwardPoints_DailyLoginStreakBonus(t *testing.T) {
	ledger := newFakeLedger()
	pub := &capturingPublisher{}
	h := newTestHandler(ledger, newFakeAchievements(), nil, pub)
	seedUser(ledger, 42, 0, 1)
	seedStreak(ledger, 42, 2, 1) // logged in yesterday, about to hit day 3

	result, err := h.Handle(context.Background(), AwardPointsCommand{
		UserID:   42,
		Activity: ranking.ActivityDailyLogin,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Streak.Current)
	assert.True(t, result.Streak.Advanced)

	// 2 for the login plus the base streak bonus of 5.
	assert.Equal(t, 7, result.TotalPoints)
	assert.Equal(t, 1, ledger.countByActivity(ranking.ActivityConsecutiveDaysBonus))
	assert.Contains(t, pub.typesSeen(), shared.EventStreakAdvanced)
}

func TestAwardPoints_ShortStreakGetsNoBonus(t *testing.T) {
	ledger := newFakeLedger()
	h := newTestHandler(ledger, newFakeAchievements(), nil, &capturingPublisher{})
	seedUser(ledger, 42, 0, 1)
	seedStreak(ledger, 42, 1, 1)

	result, err := h.Handle(context.Background(), AwardPointsCommand{
		UserID:   42,
		Activity: ranking.ActivityDailyLogin,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Streak.Current)
	assert.Equal(t, 2, result.TotalPoints)
	assert.Equal(t, 0, ledger.countByActivity(ranking.ActivityConsecutiveDaysBonus))
}

func TestAwardPoints_NextDayLoginAdvancesStreak(t *testing.T) {
	ledger := newFakeLedger()
	h := newTestHandler(ledger, newFakeAchievements(), nil, &capturingPublisher{})
	seedUser(ledger, 42, 0, 1)
	seedStreak(ledger, 42, 1, 1)

	// An award earlier the same day stamps LastActivityAt before the login
	// is scored; the streak must still read yesterday's day marker.
	_, err := h.Handle(context.Background(), AwardPointsCommand{
		UserID:   42,
		Activity: ranking.ActivityCommentPosted,
	})
	require.NoError(t, err)

	result, err := h.Handle(context.Background(), AwardPointsCommand{
		UserID:   42,
		Activity: ranking.ActivityDailyLogin,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Streak.Current)
	assert.True(t, result.Streak.Advanced)
	assert.False(t, result.Streak.Broken)
}

func TestAwardPoints_SecondLoginSameDayDoesNotAdvanceStreak(t *testing.T) {
	ledger := newFakeLedger()
	h := newTestHandler(ledger, newFakeAchievements(), nil, &capturingPublisher{})

	first, err := h.Handle(context.Background(), AwardPointsCommand{UserID: 42, Activity: ranking.ActivityDailyLogin})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Streak.Current)
	assert.True(t, first.Streak.Advanced)

	second, err := h.Handle(context.Background(), AwardPointsCommand{UserID: 42, Activity: ranking.ActivityDailyLogin})
	require.NoError(t, err)
	assert.Equal(t, 1, second.Streak.Current)
	assert.False(t, second.Streak.Advanced)
}

func TestAwardPoints_BrokenStreakPublishesEvent(t *testing.T) {
	ledger := newFakeLedger()
	pub := &capturingPublisher{}
	h := newTestHandler(ledger, newFakeAchievements(), nil, pub)
	seedUser(ledger, 42, 0, 1)
	seedStreak(ledger, 42, 9, 3) // last login three days ago

	result, err := h.Handle(context.Background(), AwardPointsCommand{
		UserID:   42,
		Activity: ranking.ActivityDailyLogin,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Streak.Current)
	assert.True(t, result.Streak.Broken)
	assert.Equal(t, 9, result.Streak.Previous)
	assert.Contains(t, pub.typesSeen(), shared.EventStreakBroken)
}

// Interface checks keep the fakes honest.
var (
	_ ranking.LedgerRepository      = (*fakeLedger)(nil)
	_ ranking.AchievementRepository = (*fakeAchievements)(nil)
	_ shared.EventPublisher         = (*capturingPublisher)(nil)
)
