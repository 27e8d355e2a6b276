package ranking

import (
	"fmt"
	"math/rand"
	"sync"
)

// Window is the time range a leaderboard aggregates over.
type Window string

const (
	WindowWeekly  Window = "weekly"
	WindowMonthly Window = "monthly"
	WindowAllTime Window = "all_time"
)

// IsValid reports whether the window is one of the supported ranges.
func (w Window) IsValid() bool {
	switch w {
	case WindowWeekly, WindowMonthly, WindowAllTime:
		return true
	}
	return false
}

// String returns the string representation of the window.
func (w Window) String() string {
	return string(w)
}

// ParseWindow parses a window name.
func ParseWindow(s string) (Window, error) {
	w := Window(s)
	if !w.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidWindow, s)
	}
	return w, nil
}

// LeaderboardEntry is a derived, ephemeral row of a leaderboard.
//
// It deliberately has no user ID field: the display name is sampled fresh
// per query and no mapping between users and names is ever persisted, so
// identity cannot be recovered from leaderboard output.
type LeaderboardEntry struct {
	// Position is the 1-based rank position.
	Position int

	// DisplayName is a throwaway anonymous name, e.g. "Mysterious Dreamer".
	DisplayName string

	// Points is the point total over the selected window.
	Points int

	// RankName and RankEmoji describe the user's current tier.
	RankName  string
	RankEmoji string
}

// Anonymous name pool components.
var (
	anonAdjectives = []string{
		"Mysterious", "Silent", "Thoughtful", "Wise", "Clever", "Brave",
		"Gentle", "Creative", "Curious", "Humble", "Witty", "Bold",
		"Peaceful", "Bright", "Swift", "Noble", "Kind", "Cheerful",
	}
	anonNouns = []string{
		"Confessor", "Student", "Dreamer", "Thinker", "Writer", "Scholar",
		"Observer", "Listener", "Helper", "Friend", "Sage", "Storyteller",
		"Guardian", "Seeker", "Wanderer", "Explorer", "Creator", "Mentor",
	}
)

// Anonymizer samples display names from a fixed adjective+noun pool.
// Sampling is with replacement: the same name may appear twice in one
// board and the same user gets a different name on every query.
//
// One Anonymizer is shared across all leaderboard queries; rand.Rand is
// not safe for concurrent use, so Name serializes draws with a mutex.
type Anonymizer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewAnonymizer creates an Anonymizer with the given source of randomness.
// Pass a seeded source in tests for determinism.
func NewAnonymizer(rng *rand.Rand) *Anonymizer {
	return &Anonymizer{rng: rng}
}

// Name returns one sampled anonymous display name.
func (a *Anonymizer) Name() string {
	a.mu.Lock()
	adj := anonAdjectives[a.rng.Intn(len(anonAdjectives))]
	noun := anonNouns[a.rng.Intn(len(anonNouns))]
	a.mu.Unlock()
	return adj + " " + noun
}

// PoolSize returns the number of distinct names in the pool.
func (a *Anonymizer) PoolSize() int {
	return len(anonAdjectives) * len(anonNouns)
}

// RankedUser is the storage-level result of a window query, before
// anonymization. It carries the user ID only as far as the aggregator;
// it must never reach leaderboard output.
type RankedUser struct {
	UserID    UserID
	Points    int
	RankName  string
	RankEmoji string
}

// BuildLeaderboard converts ranked users into anonymized entries.
// Input is expected ordered descending by points with ties already broken
// deterministically (by user ID) at the query layer.
func BuildLeaderboard(users []RankedUser, anon *Anonymizer) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(users))
	for i, u := range users {
		entries = append(entries, LeaderboardEntry{
			Position:    i + 1,
			DisplayName: anon.Name(),
			Points:      u.Points,
			RankName:    u.RankName,
			RankEmoji:   u.RankEmoji,
		})
	}
	return entries
}
