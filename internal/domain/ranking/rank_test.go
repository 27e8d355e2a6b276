package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRanks() []RankDefinition {
	return []RankDefinition{
		{ID: 1, Name: "Bronze", PointsRequired: 0},
		{ID: 2, Name: "Silver", PointsRequired: 100},
		{ID: 3, Name: "Gold", PointsRequired: 500},
	}
}

func TestNewRegistry_Validation(t *testing.T) {
	t.Run("empty definitions", func(t *testing.T) {
		_, err := NewRegistry(nil)
		assert.ErrorIs(t, err, ErrNoRanks)
	})

	t.Run("non-increasing thresholds", func(t *testing.T) {
		_, err := NewRegistry([]RankDefinition{
			{ID: 1, PointsRequired: 0},
			{ID: 2, PointsRequired: 100},
			{ID: 3, PointsRequired: 100},
		})
		assert.ErrorIs(t, err, ErrNonMonotonicRanks)
	})

	t.Run("duplicate IDs", func(t *testing.T) {
		_, err := NewRegistry([]RankDefinition{
			{ID: 1, PointsRequired: 0},
			{ID: 1, PointsRequired: 100},
		})
		assert.ErrorIs(t, err, ErrNonMonotonicRanks)
	})

	t.Run("lowest tier must start at zero", func(t *testing.T) {
		_, err := NewRegistry([]RankDefinition{
			{ID: 1, PointsRequired: 10},
			{ID: 2, PointsRequired: 100},
		})
		assert.ErrorIs(t, err, ErrNonMonotonicRanks)
	})

	t.Run("unsorted input is accepted", func(t *testing.T) {
		reg, err := NewRegistry([]RankDefinition{
			{ID: 3, PointsRequired: 500},
			{ID: 1, PointsRequired: 0},
			{ID: 2, PointsRequired: 100},
		})
		require.NoError(t, err)
		assert.Equal(t, RankID(1), reg.Lowest().ID)
		assert.Equal(t, RankID(3), reg.Highest().ID)
	})
}

func TestRegistry_ForPoints(t *testing.T) {
	reg := MustRegistry(testRanks())

	tests := []struct {
		name   string
		points int
		want   RankID
	}{
		{"negative total maps to lowest", -50, 1},
		{"zero", 0, 1},
		{"below first threshold", 99, 1},
		{"exactly at threshold", 100, 2},
		{"between tiers", 499, 2},
		{"top tier", 500, 3},
		{"beyond top tier", 1_000_000, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reg.ForPoints(tt.points).ID)
		})
	}
}

func TestRegistry_Next(t *testing.T) {
	reg := MustRegistry(testRanks())

	next, ok := reg.Next(1)
	require.True(t, ok)
	assert.Equal(t, RankID(2), next.ID)

	_, ok = reg.Next(3)
	assert.False(t, ok, "terminal tier has no next")

	_, ok = reg.Next(99)
	assert.False(t, ok)
}

func TestRegistry_Progress(t *testing.T) {
	reg := MustRegistry(testRanks())
	silver, err := reg.ByID(2)
	require.NoError(t, err)

	assert.InDelta(t, 0.0, reg.Progress(silver, 100), 1e-9)
	assert.InDelta(t, 0.5, reg.Progress(silver, 300), 1e-9)
	assert.InDelta(t, 1.0, reg.Progress(silver, 9999), 1e-9)

	gold, err := reg.ByID(3)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, reg.Progress(gold, 500), 1e-9, "terminal tier always reports 1")
}

func TestDefaultRanks_AreValid(t *testing.T) {
	reg, err := NewRegistry(DefaultRanks())
	require.NoError(t, err)

	all := reg.All()
	assert.Len(t, all, 12)
	assert.Equal(t, "New Confessor", reg.Lowest().Name)
	assert.Equal(t, "Confession Sage", reg.Highest().Name)
	assert.Equal(t, 10000, reg.Highest().PointsRequired)
}

func TestBuildRankSummary(t *testing.T) {
	reg := MustRegistry(testRanks())

	state := UserRankingState{
		UserID:        7,
		TotalPoints:   250,
		CurrentRankID: 2,
	}

	summary, err := BuildRankSummary(state, reg)
	require.NoError(t, err)

	assert.Equal(t, UserID(7), summary.UserID)
	assert.Equal(t, "Silver", summary.RankName)
	assert.Equal(t, 500, summary.NextRankPoints)
	assert.Equal(t, 250, summary.PointsToNext)
	assert.InDelta(t, 0.375, summary.RankProgress, 1e-9)
}

func TestBuildRankSummary_TerminalTier(t *testing.T) {
	reg := MustRegistry(testRanks())

	summary, err := BuildRankSummary(UserRankingState{UserID: 7, TotalPoints: 900, CurrentRankID: 3}, reg)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.NextRankPoints)
	assert.Equal(t, 0, summary.PointsToNext)
	assert.InDelta(t, 1.0, summary.RankProgress, 1e-9)
}

func TestBuildRankSummary_UnknownRank(t *testing.T) {
	reg := MustRegistry(testRanks())

	_, err := BuildRankSummary(UserRankingState{UserID: 7, CurrentRankID: 42}, reg)
	assert.ErrorIs(t, err, ErrRankNotFound)
}
