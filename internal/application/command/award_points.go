// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/confession-hub/confession-bot/internal/domain/ranking"
	"github.com/confession-hub/confession-bot/internal/domain/shared"
	"github.com/confession-hub/confession-bot/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// AWARD POINTS COMMAND
// The single write path of the gamification engine: appends a point
// transaction, advances streaks, re-evaluates rank and achievements, and
// publishes the resulting domain events.
// ══════════════════════════════════════════════════════════════════════════════

// AwardPointsCommand contains the data to award (or deduct) points.
type AwardPointsCommand struct {
	// UserID is the Telegram user receiving the points.
	UserID ranking.UserID

	// Activity is the type of activity being rewarded.
	Activity ranking.ActivityType

	// Reference optionally points at the triggering content.
	Reference ranking.Reference

	// Description is a human-readable note for the audit trail.
	// Defaults to "Points for <activity>" when empty.
	Description string

	// Context carries contextual data for point derivation and
	// achievement predicates (like counts, comment length, streaks).
	Context ranking.ActivityContext

	// CorrelationID for tracing. Generated when empty.
	CorrelationID string
}

// Validate validates the command. Validation failures reject the award
// before any write.
func (c AwardPointsCommand) Validate() error {
	if !c.UserID.IsValid() {
		return shared.WrapError("ledger", "Validate", shared.ErrValidation,
			"user ID must be positive", ranking.ErrInvalidUserID)
	}
	if !c.Activity.IsValid() {
		return shared.WrapError("ledger", "Validate", shared.ErrValidation,
			fmt.Sprintf("unknown activity type %q", c.Activity), ranking.ErrUnknownActivity)
	}
	if err := c.Reference.Validate(); err != nil {
		return shared.WrapError("ledger", "Validate", shared.ErrValidation,
			"malformed reference", err)
	}
	return nil
}

// AwardPointsResult contains the outcome of a fully processed award.
type AwardPointsResult struct {
	// PointsDelta is the signed delta applied by the primary transaction
	// (bonuses and achievement rewards are separate ledger entries).
	PointsDelta int

	// TotalPoints is the user's total after the primary transaction.
	TotalPoints int

	// TransactionID identifies the primary ledger entry.
	TransactionID ranking.TransactionID

	// RankChanged is true when the award crossed a tier threshold.
	RankChanged bool

	// NewRank is the tier after the award (valid when RankChanged).
	NewRank ranking.RankDefinition

	// Achievements lists the grants earned by this award.
	Achievements []ranking.AchievementGrant

	// Streak reports streak movement (daily_login awards only).
	Streak ranking.StreakResult

	// Events contains the domain events that were published.
	Events []shared.Event

	// AwardedAt is when the primary transaction was recorded.
	AwardedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// AwardPointsHandler handles the AwardPointsCommand.
//
// Ordering guarantees: the ledger append is the durable source of truth and
// commits first. Rank and achievement evaluation are derived state,
// re-evaluated from scratch on every award; a transient failure in either
// is isolated from the other and from the committed append, and heals on
// the user's next activity.
type AwardPointsHandler struct {
	ledgerRepo      ranking.LedgerRepository
	achievementRepo ranking.AchievementRepository
	registry        *ranking.Registry
	catalog         *ranking.Catalog
	eventPublisher  shared.EventPublisher
	log             *logger.Logger

	config AwardPointsConfig
}

// AwardPointsConfig contains configuration for the handler.
type AwardPointsConfig struct {
	// EvaluationPasses bounds the rank/achievement re-evaluation loop so
	// reward-triggered rank-ups terminate even if future rules introduce
	// a cycle.
	EvaluationPasses int

	// MinStreakForBonus is the streak length at which daily streak
	// bonuses start.
	MinStreakForBonus int

	// RankUpReason is the audit reason recorded on transitions.
	RankUpReason string
}

// DefaultAwardPointsConfig returns default configuration.
func DefaultAwardPointsConfig() AwardPointsConfig {
	return AwardPointsConfig{
		EvaluationPasses:  2,
		MinStreakForBonus: 3,
		RankUpReason:      "Points threshold reached",
	}
}

// NewAwardPointsHandler creates a new AwardPointsHandler.
func NewAwardPointsHandler(
	ledgerRepo ranking.LedgerRepository,
	achievementRepo ranking.AchievementRepository,
	registry *ranking.Registry,
	catalog *ranking.Catalog,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
	config AwardPointsConfig,
) *AwardPointsHandler {
	if config.EvaluationPasses <= 0 {
		config = DefaultAwardPointsConfig()
	}
	if log == nil {
		log = logger.Default()
	}

	return &AwardPointsHandler{
		ledgerRepo:      ledgerRepo,
		achievementRepo: achievementRepo,
		registry:        registry,
		catalog:         catalog,
		eventPublisher:  eventPublisher,
		log:             log.With(logger.Component("award_points")),
		config:          config,
	}
}

// Handle executes the award. It returns an error only for validation
// failures and for a failed primary ledger append; derived-state failures
// are logged and absorbed.
func (h *AwardPointsHandler) Handle(ctx context.Context, cmd AwardPointsCommand) (*AwardPointsResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	correlationID := cmd.CorrelationID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	// Auto-initialize: first award for a user creates their state at the
	// lowest tier. Idempotent.
	lowest := h.registry.Lowest()
	if err := h.ledgerRepo.InitializeUser(ctx, cmd.UserID, lowest.ID); err != nil {
		return nil, shared.WrapError("ledger", "Initialize", shared.ErrLedger,
			"failed to initialize user ranking state", err)
	}

	delta := ranking.CalculatePoints(cmd.Activity, cmd.Context)
	description := cmd.Description
	if description == "" {
		description = "Points for " + cmd.Activity.String()
	}

	// Primary append: transaction row and aggregate increments commit as
	// one atomic unit or not at all.
	txID, state, err := h.ledgerRepo.AppendTransaction(ctx, ranking.PointTransaction{
		UserID:       cmd.UserID,
		PointsDelta:  delta,
		ActivityType: cmd.Activity,
		Reference:    cmd.Reference,
		Description:  description,
	})
	if err != nil {
		return nil, shared.WrapError("ledger", "Append", shared.ErrLedger,
			"failed to append point transaction", err)
	}

	result := &AwardPointsResult{
		PointsDelta:   delta,
		TotalPoints:   state.TotalPoints,
		TransactionID: txID,
		AwardedAt:     time.Now().UTC(),
	}

	awardedEvent := shared.NewPointsAwardedEvent(int64(cmd.UserID), cmd.Activity.String(), delta, state.TotalPoints)
	awardedEvent.CorrelationID = correlationID
	h.publish(result, awardedEvent)

	// Streak bookkeeping for daily logins. Bonus appends mutate totals and
	// are absorbed by the evaluation passes below.
	if cmd.Activity == ranking.ActivityDailyLogin {
		state = h.advanceStreak(ctx, cmd, state, result, correlationID)
	}

	// Bounded re-evaluation: pass one absorbs the rank-up bonus, pass two
	// picks up rank-ups caused by achievement rewards.
	for pass := 0; pass < h.config.EvaluationPasses; pass++ {
		var changed bool
		state, changed = h.evaluateRank(ctx, cmd.UserID, state, result, correlationID)

		grants := h.evaluateAchievements(ctx, cmd, state, result, correlationID)
		if len(grants) > 0 {
			// Reward appends changed the totals; refresh for the next pass.
			if refreshed, err := h.ledgerRepo.GetState(ctx, cmd.UserID); err == nil {
				state = refreshed
			}
			changed = true
		}

		if !changed {
			break
		}
	}

	result.TotalPoints = state.TotalPoints

	h.log.Info("points awarded",
		logger.UserID(int64(cmd.UserID)),
		logger.Activity(cmd.Activity.String()),
		logger.Points(delta),
		logger.Int("total_points", state.TotalPoints),
		logger.Bool("rank_changed", result.RankChanged),
		logger.Int("achievements", len(result.Achievements)),
	)

	return result, nil
}

// advanceStreak updates the consecutive-day counter and appends the streak
// bonus once the streak is long enough. Failures are logged and absorbed:
// streaks are derived state, never worth failing an award over.
func (h *AwardPointsHandler) advanceStreak(
	ctx context.Context,
	cmd AwardPointsCommand,
	state ranking.UserRankingState,
	result *AwardPointsResult,
	correlationID string,
) ranking.UserRankingState {
	streak, err := h.ledgerRepo.AdvanceStreak(ctx, cmd.UserID, time.Now().UTC())
	if err != nil {
		h.log.Error("failed to advance streak",
			logger.UserID(int64(cmd.UserID)), logger.Err(err))
		return state
	}
	result.Streak = streak
	state.ConsecutiveActiveDays = streak.Current

	switch {
	case streak.Broken:
		brokenEvent := shared.NewStreakBrokenEvent(int64(cmd.UserID), streak.Previous)
		brokenEvent.CorrelationID = correlationID
		h.publish(result, brokenEvent)
	case streak.Advanced:
		advancedEvent := shared.NewStreakAdvancedEvent(int64(cmd.UserID), streak.Current)
		advancedEvent.CorrelationID = correlationID
		h.publish(result, advancedEvent)
	}

	if streak.Advanced && streak.Current >= h.config.MinStreakForBonus {
		bonus := ranking.CalculatePoints(ranking.ActivityConsecutiveDaysBonus,
			ranking.ActivityContext{ConsecutiveDays: streak.Current})
		_, updated, err := h.ledgerRepo.AppendTransaction(ctx, ranking.PointTransaction{
			UserID:       cmd.UserID,
			PointsDelta:  bonus,
			ActivityType: ranking.ActivityConsecutiveDaysBonus,
			Description:  fmt.Sprintf("Consecutive days bonus: %d days", streak.Current),
		})
		if err != nil {
			h.log.Error("failed to append streak bonus",
				logger.UserID(int64(cmd.UserID)), logger.Err(err))
			return state
		}
		streakDays := state.ConsecutiveActiveDays
		state = updated
		state.ConsecutiveActiveDays = streakDays
	}

	return state
}

// evaluateRank transitions the user to the highest qualifying tier.
// The transition commits before the bonus append so a bonus failure never
// loses the rank change; the bonus itself is absorbed by the next pass.
func (h *AwardPointsHandler) evaluateRank(
	ctx context.Context,
	userID ranking.UserID,
	state ranking.UserRankingState,
	result *AwardPointsResult,
	correlationID string,
) (ranking.UserRankingState, bool) {
	target := h.registry.ForPoints(state.TotalPoints)
	if target.ID <= state.CurrentRankID {
		return state, false
	}

	applied, err := h.ledgerRepo.CommitRankUp(ctx, userID, state.CurrentRankID, target.ID,
		state.TotalPoints, h.config.RankUpReason)
	if err != nil {
		h.log.Error("failed to commit rank transition",
			logger.UserID(int64(userID)),
			logger.Int("old_rank", int(state.CurrentRankID)),
			logger.Int("new_rank", int(target.ID)),
			logger.Err(err))
		return state, false
	}
	if !applied {
		// Another writer already moved this user. Re-read and move on.
		if refreshed, err := h.ledgerRepo.GetState(ctx, userID); err == nil {
			return refreshed, false
		}
		return state, false
	}

	oldRank := state.CurrentRankID
	state.CurrentRankID = target.ID
	if target.ID > state.HighestRankAchieved {
		state.HighestRankAchieved = target.ID
	}
	result.RankChanged = true
	result.NewRank = target

	rankUpEvent := shared.NewRankUpEvent(int64(userID), int(oldRank), int(target.ID),
		target.Name, target.Emoji, state.TotalPoints)
	rankUpEvent.CorrelationID = correlationID
	h.publish(result, rankUpEvent)

	// Fixed rank-up bonus. The transition above is already durable; a
	// bonus failure degrades to "no bonus this time".
	_, updated, err := h.ledgerRepo.AppendTransaction(ctx, ranking.PointTransaction{
		UserID:       userID,
		PointsDelta:  ranking.ActivityRankUpBonus.BasePoints(),
		ActivityType: ranking.ActivityRankUpBonus,
		Description:  fmt.Sprintf("Ranked up to %s", target.Name),
	})
	if err != nil {
		h.log.Error("failed to append rank-up bonus",
			logger.UserID(int64(userID)), logger.Err(err))
		return state, true
	}
	streakDays := state.ConsecutiveActiveDays
	rank := state.CurrentRankID
	highest := state.HighestRankAchieved
	state = updated
	state.ConsecutiveActiveDays = streakDays
	state.CurrentRankID = rank
	state.HighestRankAchieved = highest

	return state, true
}

// evaluateAchievements grants every catalog rule the user newly qualifies
// for. The grant insert is the last gate before the reward append; a
// duplicate detected there is a benign race and skips silently.
func (h *AwardPointsHandler) evaluateAchievements(
	ctx context.Context,
	cmd AwardPointsCommand,
	state ranking.UserRankingState,
	result *AwardPointsResult,
	correlationID string,
) []ranking.AchievementGrant {
	stats, err := h.achievementRepo.GetStats(ctx, cmd.UserID)
	if err != nil {
		h.log.Error("failed to load achievement stats",
			logger.UserID(int64(cmd.UserID)), logger.Err(err))
		return nil
	}

	input := ranking.EvaluationInput{
		Activity: cmd.Activity,
		Context:  cmd.Context,
		State:    state,
		Stats:    stats,
	}

	var granted []ranking.AchievementGrant
	for _, rule := range h.catalog.Rules() {
		has, err := h.achievementRepo.HasGrant(ctx, cmd.UserID, rule.ID)
		if err != nil {
			h.log.Error("failed to check achievement grant",
				logger.UserID(int64(cmd.UserID)),
				logger.String("achievement_id", string(rule.ID)),
				logger.Err(err))
			continue
		}
		if has || !rule.Predicate.Matches(input) {
			continue
		}

		grant := ranking.NewGrant(cmd.UserID, rule, time.Now().UTC())
		inserted, err := h.achievementRepo.InsertGrant(ctx, grant)
		if err != nil {
			if errors.Is(err, shared.ErrDuplicateGrant) {
				continue
			}
			h.log.Error("failed to insert achievement grant",
				logger.UserID(int64(cmd.UserID)),
				logger.String("achievement_id", string(rule.ID)),
				logger.Err(err))
			continue
		}
		if !inserted {
			// Concurrent award won the race. No-op.
			continue
		}

		if _, _, err := h.ledgerRepo.AppendTransaction(ctx, ranking.PointTransaction{
			UserID:       cmd.UserID,
			PointsDelta:  rule.PointsAwarded,
			ActivityType: ranking.ActivityAchievementReward,
			Description:  fmt.Sprintf("Achievement: %s", rule.Name),
		}); err != nil {
			h.log.Error("failed to append achievement reward",
				logger.UserID(int64(cmd.UserID)),
				logger.String("achievement_id", string(rule.ID)),
				logger.Err(err))
		}

		granted = append(granted, grant)
		result.Achievements = append(result.Achievements, grant)

		grantEvent := shared.NewAchievementGrantedEvent(int64(cmd.UserID),
			string(rule.ID), rule.Name, rule.Description, rule.PointsAwarded, rule.IsSpecial)
		grantEvent.CorrelationID = correlationID
		h.publish(result, grantEvent)
	}

	return granted
}

// publish sends an event fire-and-forget; delivery failures only log.
func (h *AwardPointsHandler) publish(result *AwardPointsResult, event shared.Event) {
	result.Events = append(result.Events, event)
	if h.eventPublisher == nil {
		return
	}
	if err := h.eventPublisher.Publish(event); err != nil {
		h.log.Warn("failed to publish event",
			logger.String("event_type", string(event.EventType())),
			logger.Err(err))
	}
}
