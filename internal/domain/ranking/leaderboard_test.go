package ranking

import (
	"math/rand"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWindow(t *testing.T) {
	for _, s := range []string{"weekly", "monthly", "all_time"} {
		w, err := ParseWindow(s)
		require.NoError(t, err)
		assert.Equal(t, s, w.String())
	}

	_, err := ParseWindow("yearly")
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestAnonymizer_Name(t *testing.T) {
	anon := NewAnonymizer(rand.New(rand.NewSource(1)))

	for i := 0; i < 50; i++ {
		name := anon.Name()
		parts := strings.SplitN(name, " ", 2)
		require.Len(t, parts, 2, "name %q must be adjective + noun", name)
		assert.Contains(t, anonAdjectives, parts[0])
		assert.Contains(t, anonNouns, parts[1])
	}
}

func TestAnonymizer_Deterministic(t *testing.T) {
	a := NewAnonymizer(rand.New(rand.NewSource(7)))
	b := NewAnonymizer(rand.New(rand.NewSource(7)))

	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Name(), b.Name())
	}
}

// One Anonymizer serves every leaderboard query; concurrent draws must be
// safe. Run with -race to catch regressions.
func TestAnonymizer_ConcurrentDraws(t *testing.T) {
	anon := NewAnonymizer(rand.New(rand.NewSource(1)))

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if anon.Name() == "" {
					t.Error("empty name drawn")
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestAnonymizer_PoolSize(t *testing.T) {
	anon := NewAnonymizer(rand.New(rand.NewSource(1)))
	assert.Equal(t, len(anonAdjectives)*len(anonNouns), anon.PoolSize())
	assert.GreaterOrEqual(t, anon.PoolSize(), 100)
}

func TestBuildLeaderboard(t *testing.T) {
	anon := NewAnonymizer(rand.New(rand.NewSource(1)))

	users := []RankedUser{
		{UserID: 100, Points: 900, RankName: "Gold", RankEmoji: "🥇"},
		{UserID: 200, Points: 450, RankName: "Silver", RankEmoji: "🥈"},
		{UserID: 300, Points: 120, RankName: "Bronze", RankEmoji: "🥉"},
	}

	entries := BuildLeaderboard(users, anon)
	require.Len(t, entries, 3)

	for i, e := range entries {
		assert.Equal(t, i+1, e.Position)
		assert.Equal(t, users[i].Points, e.Points)
		assert.Equal(t, users[i].RankName, e.RankName)
		assert.NotEmpty(t, e.DisplayName)
	}
}

func TestBuildLeaderboard_Empty(t *testing.T) {
	anon := NewAnonymizer(rand.New(rand.NewSource(1)))
	entries := BuildLeaderboard(nil, anon)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

// Guards the anonymity property at the type level: if a user identifier
// ever gets added to LeaderboardEntry this fails and forces a review.
func TestLeaderboardEntry_CarriesNoUserID(t *testing.T) {
	typ := reflect.TypeOf(LeaderboardEntry{})
	for i := 0; i < typ.NumField(); i++ {
		name := strings.ToLower(typ.Field(i).Name)
		assert.NotContains(t, name, "userid")
		assert.NotContains(t, name, "user_id")
	}
}
