// Package ranking contains the domain model of the gamification engine:
// point transactions, rank tiers, achievements, and leaderboards.
// This is a pure domain layer with zero external dependencies.
package ranking

import (
	"errors"
	"fmt"
)

// Domain errors for the ranking package.
var (
	ErrInvalidUserID      = errors.New("ranking: invalid user ID")
	ErrUnknownActivity    = errors.New("ranking: unknown activity type")
	ErrIncompleteRef      = errors.New("ranking: reference requires both target ID and kind")
	ErrNoRanks            = errors.New("ranking: rank registry is empty")
	ErrRankNotFound       = errors.New("ranking: rank not found")
	ErrNonMonotonicRanks  = errors.New("ranking: rank thresholds must be strictly increasing")
	ErrDuplicateGrant     = errors.New("ranking: achievement already granted")
	ErrInvalidWindow      = errors.New("ranking: invalid leaderboard window")
	ErrInvalidLimit       = errors.New("ranking: limit must be positive")
)

// UserID represents a unique identifier for a bot user (Telegram user ID).
type UserID int64

// IsValid checks that the user ID is positive.
func (u UserID) IsValid() bool {
	return u > 0
}

// ActivityType defines a named category of user action that may affect points.
type ActivityType string

const (
	// Confession activities
	ActivityConfessionSubmitted ActivityType = "confession_submitted"
	ActivityConfessionApproved  ActivityType = "confession_approved"
	ActivityConfessionFeatured  ActivityType = "confession_featured"
	ActivityConfessionLiked     ActivityType = "confession_liked"
	ActivityConfession100Likes  ActivityType = "confession_100_likes"
	ActivityConfessionPopular   ActivityType = "confession_popular"

	// Comment activities
	ActivityCommentPosted        ActivityType = "comment_posted"
	ActivityCommentLiked         ActivityType = "comment_liked"
	ActivityCommentHelpful       ActivityType = "comment_helpful"
	ActivityCommentThreadStarter ActivityType = "comment_thread_starter"
	ActivityQualityComment       ActivityType = "quality_comment"

	// Engagement activities
	ActivityDailyLogin           ActivityType = "daily_login"
	ActivityConsecutiveDaysBonus ActivityType = "consecutive_days_bonus"
	ActivityWeekStreak           ActivityType = "week_streak"
	ActivityMonthStreak          ActivityType = "month_streak"

	// Social activities
	ActivityReactionGiven       ActivityType = "reaction_given"
	ActivityHelpingOthers       ActivityType = "helping_others"
	ActivityPositiveInteraction ActivityType = "positive_interaction"

	// Special activities
	ActivityFirstConfession       ActivityType = "first_confession"
	ActivityFirstComment          ActivityType = "first_comment"
	ActivityMilestoneReached      ActivityType = "milestone_reached"
	ActivityCommunityContribution ActivityType = "community_contribution"

	// Internal activities - generated by the engine, not by collaborators.
	ActivityRankUpBonus       ActivityType = "rank_up_bonus"
	ActivityAchievementReward ActivityType = "achievement"

	// Penalty activities (negative deltas)
	ActivityContentRejected      ActivityType = "content_rejected"
	ActivitySpamDetected         ActivityType = "spam_detected"
	ActivityInappropriateContent ActivityType = "inappropriate_content"
)

// basePoints maps each activity type to its base point value.
// Penalties carry negative values; no floor is applied to totals.
var basePoints = map[ActivityType]int{
	ActivityConfessionSubmitted: 10,
	ActivityConfessionApproved:  25,
	ActivityConfessionFeatured:  50,
	ActivityConfessionLiked:     2,
	ActivityConfession100Likes:  100,
	ActivityConfessionPopular:   75,

	ActivityCommentPosted:        5,
	ActivityCommentLiked:         1,
	ActivityCommentHelpful:       15,
	ActivityCommentThreadStarter: 10,
	ActivityQualityComment:       20,

	ActivityDailyLogin:           2,
	ActivityConsecutiveDaysBonus: 5,
	ActivityWeekStreak:           25,
	ActivityMonthStreak:          100,

	ActivityReactionGiven:       1,
	ActivityHelpingOthers:       10,
	ActivityPositiveInteraction: 5,

	ActivityFirstConfession:       50,
	ActivityFirstComment:          20,
	ActivityMilestoneReached:      100,
	ActivityCommunityContribution: 30,

	ActivityRankUpBonus:       50,
	ActivityAchievementReward: 0, // reward value comes from the achievement rule

	ActivityContentRejected:      -5,
	ActivitySpamDetected:         -15,
	ActivityInappropriateContent: -25,
}

// IsValid reports whether the activity type is known to the engine.
func (a ActivityType) IsValid() bool {
	_, ok := basePoints[a]
	return ok
}

// IsPenalty reports whether the activity type deducts points.
func (a ActivityType) IsPenalty() bool {
	return basePoints[a] < 0
}

// BasePoints returns the base point value for the activity type.
func (a ActivityType) BasePoints() int {
	return basePoints[a]
}

// String returns the string representation of the activity type.
func (a ActivityType) String() string {
	return string(a)
}

// ActivityContext carries contextual data that modifies point derivation.
// Zero values mean "not applicable".
type ActivityContext struct {
	// LikeCount is the total like count on the target content
	// (for confession_liked).
	LikeCount int

	// CommentLength is the comment length in characters
	// (for quality_comment).
	CommentLength int

	// ConsecutiveDays is the current streak length
	// (for consecutive_days_bonus).
	ConsecutiveDays int
}

// Contextual multiplier boundaries. Streak tiers are checked from the
// highest boundary down so the 30-day tier is reachable.
const (
	popularLikeThreshold = 20
	viralLikeThreshold   = 50

	qualityCommentLength = 200
	qualityCommentBonus  = 10

	weekStreakBoundary  = 7
	monthStreakBoundary = 30
)

// CalculatePoints derives the point delta for an activity. It is a pure
// function of (activity type, context) with no side effects. Unknown
// activity types yield zero; callers validate before awarding.
func CalculatePoints(activity ActivityType, ctx ActivityContext) int {
	base, ok := basePoints[activity]
	if !ok {
		return 0
	}

	switch activity {
	case ActivityConsecutiveDaysBonus:
		if ctx.ConsecutiveDays >= monthStreakBoundary {
			return base * 3
		}
		if ctx.ConsecutiveDays >= weekStreakBoundary {
			return base * 2
		}

	case ActivityQualityComment:
		if ctx.CommentLength > qualityCommentLength {
			return base + qualityCommentBonus
		}

	case ActivityConfessionLiked:
		if ctx.LikeCount >= viralLikeThreshold {
			return base * 3
		}
		if ctx.LikeCount >= popularLikeThreshold {
			return base * 2
		}
	}

	return base
}

// Reference points a transaction at the content that triggered it.
type Reference struct {
	// TargetID is the ID of the referenced content (post, comment, reaction).
	TargetID int64

	// TargetKind is the kind of referenced content, e.g. "confession", "comment".
	TargetKind string
}

// IsZero reports whether the reference is absent.
func (r Reference) IsZero() bool {
	return r.TargetID == 0 && r.TargetKind == ""
}

// Validate checks that the reference is either absent or complete.
func (r Reference) Validate() error {
	if r.IsZero() {
		return nil
	}
	if r.TargetID <= 0 || r.TargetKind == "" {
		return fmt.Errorf("%w: target_id=%d target_kind=%q", ErrIncompleteRef, r.TargetID, r.TargetKind)
	}
	return nil
}
