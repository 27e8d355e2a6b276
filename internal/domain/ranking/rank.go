package ranking

import (
	"fmt"
	"sort"
)

// RankID identifies a rank tier. Tiers are ordered: a higher RankID always
// requires strictly more points.
type RankID int

// IsValid checks that the rank ID is positive.
func (r RankID) IsValid() bool {
	return r > 0
}

// Perks is the structured, typed perk configuration for a rank tier.
// Decoded once at load time; replaces the original ad-hoc JSON blob so a
// key typo fails at startup instead of silently at render time.
type Perks struct {
	// DailyConfessions is the daily submission allowance (0 = default allowance).
	DailyConfessions int `json:"daily_confessions,omitempty"`

	// UnlimitedDaily removes the daily submission allowance entirely.
	UnlimitedDaily bool `json:"unlimited_daily,omitempty"`

	// PriorityReview places submissions ahead of the moderation queue.
	PriorityReview bool `json:"priority_review,omitempty"`

	// CommentHighlight renders the user's comments highlighted.
	CommentHighlight bool `json:"comment_highlight,omitempty"`

	// FeaturedChance is the probability of being auto-featured (0..1).
	FeaturedChance float64 `json:"featured_chance,omitempty"`

	// ExclusiveCategories unlocks restricted confession categories.
	ExclusiveCategories bool `json:"exclusive_categories,omitempty"`

	// CustomEmoji allows custom reaction emoji.
	CustomEmoji bool `json:"custom_emoji,omitempty"`

	// Badge is a named badge shown next to the anonymous rank label,
	// e.g. "legend", "guardian", "sage".
	Badge string `json:"badge,omitempty"`

	// ModerationAssist grants access to community moderation tooling.
	ModerationAssist bool `json:"moderation_assist,omitempty"`

	// StoryHighlight lets featured confessions stay pinned longer.
	StoryHighlight bool `json:"story_highlight,omitempty"`
}

// RankDefinition is a static rank tier: loaded once, never mutated at runtime.
type RankDefinition struct {
	// ID is the ordered, unique tier identifier (1..N).
	ID RankID

	// Name is the display name of the tier.
	Name string

	// Emoji is the display emoji of the tier.
	Emoji string

	// PointsRequired is the cumulative point threshold. Strictly increasing
	// with ID; tier 1 requires 0.
	PointsRequired int

	// Color is the display color (hex).
	Color string

	// Perks are the typed perks unlocked at this tier.
	Perks Perks

	// Description is a short tier description.
	Description string

	// IsSpecial marks prestige tiers.
	IsSpecial bool
}

// DefaultRanks returns the twelve built-in rank tiers.
func DefaultRanks() []RankDefinition {
	return []RankDefinition{
		// Beginner tiers
		{ID: 1, Name: "New Confessor", Emoji: "🆕", PointsRequired: 0, Color: "#808080",
			Description: "Welcome to the community!"},
		{ID: 2, Name: "First Timer", Emoji: "🌱", PointsRequired: 50, Color: "#90EE90",
			Perks: Perks{DailyConfessions: 2}, Description: "Getting started with confessions"},
		{ID: 3, Name: "Regular", Emoji: "📝", PointsRequired: 150, Color: "#87CEEB",
			Perks: Perks{DailyConfessions: 3}, Description: "Regular community member"},

		// Intermediate tiers
		{ID: 4, Name: "Active Member", Emoji: "⚡", PointsRequired: 300, Color: "#FFD700",
			Perks: Perks{DailyConfessions: 4, PriorityReview: true}, Description: "Active in the community"},
		{ID: 5, Name: "Community Helper", Emoji: "🤝", PointsRequired: 500, Color: "#FF6347",
			Perks: Perks{DailyConfessions: 5, CommentHighlight: true}, Description: "Helps others with thoughtful comments"},
		{ID: 6, Name: "Trusted Confessor", Emoji: "🌟", PointsRequired: 750, Color: "#FF69B4",
			Perks: Perks{DailyConfessions: 6, FeaturedChance: 0.2}, Description: "Trusted community member"},

		// Advanced tiers
		{ID: 7, Name: "Veteran", Emoji: "🏆", PointsRequired: 1200, Color: "#8A2BE2",
			Perks: Perks{DailyConfessions: 8, ExclusiveCategories: true}, Description: "Long-time community veteran"},
		{ID: 8, Name: "Elite Confessor", Emoji: "💎", PointsRequired: 2000, Color: "#DC143C",
			Perks: Perks{DailyConfessions: 10, CustomEmoji: true}, Description: "Elite community member"},
		{ID: 9, Name: "Community Legend", Emoji: "👑", PointsRequired: 3500, Color: "#B8860B",
			Perks: Perks{DailyConfessions: 15, Badge: "legend"}, Description: "Legendary status achieved", IsSpecial: true},

		// Prestige tiers
		{ID: 10, Name: "Master Storyteller", Emoji: "📚", PointsRequired: 5000, Color: "#4B0082",
			Perks: Perks{UnlimitedDaily: true, StoryHighlight: true}, Description: "Master of confession storytelling", IsSpecial: true},
		{ID: 11, Name: "Community Guardian", Emoji: "🛡️", PointsRequired: 7500, Color: "#800000",
			Perks: Perks{UnlimitedDaily: true, ModerationAssist: true, Badge: "guardian"}, Description: "Helps maintain community standards", IsSpecial: true},
		{ID: 12, Name: "Confession Sage", Emoji: "🧙‍♂️", PointsRequired: 10000, Color: "#FFD700",
			Perks: Perks{UnlimitedDaily: true, ModerationAssist: true, Badge: "sage"}, Description: "Ultimate community wisdom", IsSpecial: true},
	}
}

// Registry is the ordered, read-only table of rank tiers. It is built once
// at startup and safe for concurrent reads without locking.
type Registry struct {
	ranks []RankDefinition // sorted by PointsRequired ascending
	byID  map[RankID]RankDefinition
}

// NewRegistry builds a Registry from rank definitions, validating that
// thresholds strictly increase with tier ID and that tier 1 starts at zero.
func NewRegistry(defs []RankDefinition) (*Registry, error) {
	if len(defs) == 0 {
		return nil, ErrNoRanks
	}

	ranks := make([]RankDefinition, len(defs))
	copy(ranks, defs)
	sort.Slice(ranks, func(i, j int) bool { return ranks[i].ID < ranks[j].ID })

	byID := make(map[RankID]RankDefinition, len(ranks))
	for i, r := range ranks {
		if !r.ID.IsValid() {
			return nil, fmt.Errorf("%w: rank %q has non-positive ID %d", ErrNonMonotonicRanks, r.Name, r.ID)
		}
		if i > 0 && ranks[i-1].PointsRequired >= r.PointsRequired {
			return nil, fmt.Errorf("%w: rank %d (%d pts) does not exceed rank %d (%d pts)",
				ErrNonMonotonicRanks, r.ID, r.PointsRequired, ranks[i-1].ID, ranks[i-1].PointsRequired)
		}
		if _, dup := byID[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate rank ID %d", ErrNonMonotonicRanks, r.ID)
		}
		byID[r.ID] = r
	}

	if ranks[0].PointsRequired != 0 {
		return nil, fmt.Errorf("%w: lowest rank must require 0 points, got %d",
			ErrNonMonotonicRanks, ranks[0].PointsRequired)
	}

	return &Registry{ranks: ranks, byID: byID}, nil
}

// MustRegistry builds a Registry and panics on invalid definitions.
// Intended for the built-in seed data in the composition root.
func MustRegistry(defs []RankDefinition) *Registry {
	reg, err := NewRegistry(defs)
	if err != nil {
		panic(err)
	}
	return reg
}

// ByID returns the rank definition for the given ID.
func (reg *Registry) ByID(id RankID) (RankDefinition, error) {
	r, ok := reg.byID[id]
	if !ok {
		return RankDefinition{}, fmt.Errorf("%w: id=%d", ErrRankNotFound, id)
	}
	return r, nil
}

// Lowest returns the initial tier for newly initialized users.
func (reg *Registry) Lowest() RankDefinition {
	return reg.ranks[0]
}

// Highest returns the terminal tier.
func (reg *Registry) Highest() RankDefinition {
	return reg.ranks[len(reg.ranks)-1]
}

// ForPoints returns the highest tier whose threshold does not exceed the
// given total. Negative totals map to the lowest tier.
func (reg *Registry) ForPoints(totalPoints int) RankDefinition {
	current := reg.ranks[0]
	for _, r := range reg.ranks[1:] {
		if r.PointsRequired > totalPoints {
			break
		}
		current = r
	}
	return current
}

// Next returns the tier after the given one, or false at the terminal tier.
func (reg *Registry) Next(id RankID) (RankDefinition, bool) {
	for i, r := range reg.ranks {
		if r.ID == id && i+1 < len(reg.ranks) {
			return reg.ranks[i+1], true
		}
	}
	return RankDefinition{}, false
}

// All returns the tiers in ascending threshold order.
func (reg *Registry) All() []RankDefinition {
	out := make([]RankDefinition, len(reg.ranks))
	copy(out, reg.ranks)
	return out
}

// Progress reports how far the total is toward the next tier as a ratio in
// [0, 1]. The terminal tier always reports 1.
func (reg *Registry) Progress(current RankDefinition, totalPoints int) float64 {
	next, ok := reg.Next(current.ID)
	if !ok {
		return 1.0
	}
	span := next.PointsRequired - current.PointsRequired
	if span <= 0 {
		return 1.0
	}
	gained := totalPoints - current.PointsRequired
	if gained <= 0 {
		return 0.0
	}
	ratio := float64(gained) / float64(span)
	if ratio > 1.0 {
		ratio = 1.0
	}
	return ratio
}
