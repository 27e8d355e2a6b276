// Package application wires commands and queries behind the ranking facade,
// the single entry point collaborators use to talk to the gamification
// engine.
package application

import (
	"context"

	"github.com/confession-hub/confession-bot/internal/application/command"
	"github.com/confession-hub/confession-bot/internal/application/query"
	"github.com/confession-hub/confession-bot/internal/domain/ranking"
	"github.com/confession-hub/confession-bot/pkg/logger"
)

// RankingFacade is the boundary between business actions (approving a
// confession, posting a comment) and the gamification engine.
//
// Award failures never propagate: approving a confession must succeed even
// when point accrual does not, so AwardPoints degrades to (false, 0) and a
// log line. Rank-up and achievement side effects surface as domain events
// on the bus, not as return values.
type RankingFacade struct {
	awardPoints      *command.AwardPointsHandler
	userRank         *query.GetUserRankHandler
	leaderboard      *query.GetLeaderboardHandler
	userAchievements *query.GetUserAchievementsHandler
	log              *logger.Logger
}

// NewRankingFacade creates a new RankingFacade. Constructed once at process
// startup and passed by reference to every collaborator that needs it;
// there is deliberately no package-level instance.
func NewRankingFacade(
	awardPoints *command.AwardPointsHandler,
	userRank *query.GetUserRankHandler,
	leaderboard *query.GetLeaderboardHandler,
	userAchievements *query.GetUserAchievementsHandler,
	log *logger.Logger,
) *RankingFacade {
	if log == nil {
		log = logger.Default()
	}
	return &RankingFacade{
		awardPoints:      awardPoints,
		userRank:         userRank,
		leaderboard:      leaderboard,
		userAchievements: userAchievements,
		log:              log.With(logger.Component("ranking_facade")),
	}
}

// AwardPoints awards (or deducts) points for an activity. Returns whether
// the ledger append committed and the applied delta. All failures -
// validation included - are logged and swallowed here.
func (f *RankingFacade) AwardPoints(
	ctx context.Context,
	userID ranking.UserID,
	activity ranking.ActivityType,
	ref ranking.Reference,
	actx ranking.ActivityContext,
	description string,
) (bool, int) {
	result, err := f.awardPoints.Handle(ctx, command.AwardPointsCommand{
		UserID:      userID,
		Activity:    activity,
		Reference:   ref,
		Description: description,
		Context:     actx,
	})
	if err != nil {
		f.log.Error("point award failed",
			logger.UserID(int64(userID)),
			logger.Activity(activity.String()),
			logger.Err(err),
		)
		return false, 0
	}
	return true, result.PointsDelta
}

// GetUserRank returns the user's rank summary, initializing first-time
// users at the lowest tier.
func (f *RankingFacade) GetUserRank(ctx context.Context, userID ranking.UserID) (*ranking.RankSummary, error) {
	return f.userRank.Handle(ctx, query.GetUserRankQuery{UserID: userID})
}

// GetLeaderboard returns the anonymized top-N for a window.
func (f *RankingFacade) GetLeaderboard(ctx context.Context, window ranking.Window, limit int) ([]ranking.LeaderboardEntry, error) {
	return f.leaderboard.Handle(ctx, query.GetLeaderboardQuery{Window: window, Limit: limit})
}

// GetUserAchievements returns the user's achievement grants, newest first.
func (f *RankingFacade) GetUserAchievements(ctx context.Context, userID ranking.UserID, limit int) ([]ranking.AchievementGrant, error) {
	return f.userAchievements.Handle(ctx, query.GetUserAchievementsQuery{UserID: userID, Limit: limit})
}
