package query

import (
	"context"

	"github.com/confession-hub/confession-bot/internal/domain/ranking"
	"github.com/confession-hub/confession-bot/internal/domain/shared"
	"github.com/confession-hub/confession-bot/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET USER ACHIEVEMENTS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// DefaultAchievementsLimit is used when the caller passes no limit.
const DefaultAchievementsLimit = 20

// GetUserAchievementsQuery contains the query parameters.
type GetUserAchievementsQuery struct {
	// UserID is the user whose achievements are requested.
	UserID ranking.UserID

	// Limit is the maximum number of grants to return (default 20).
	Limit int
}

// Validate validates the query.
func (q GetUserAchievementsQuery) Validate() error {
	if !q.UserID.IsValid() {
		return shared.WrapError("achievement", "Validate", shared.ErrValidation,
			"user ID must be positive", ranking.ErrInvalidUserID)
	}
	if q.Limit < 0 {
		return shared.WrapError("achievement", "Validate", shared.ErrValueOutOfRange,
			"limit must not be negative", ranking.ErrInvalidLimit)
	}
	return nil
}

// GetUserAchievementsHandler handles the GetUserAchievementsQuery.
type GetUserAchievementsHandler struct {
	achievementRepo ranking.AchievementRepository
	log             *logger.Logger
}

// NewGetUserAchievementsHandler creates a new GetUserAchievementsHandler.
func NewGetUserAchievementsHandler(
	achievementRepo ranking.AchievementRepository,
	log *logger.Logger,
) *GetUserAchievementsHandler {
	if log == nil {
		log = logger.Default()
	}
	return &GetUserAchievementsHandler{
		achievementRepo: achievementRepo,
		log:             log.With(logger.Component("get_user_achievements")),
	}
}

// Handle executes the query, returning grants newest first. A user with no
// achievements gets an empty list.
func (h *GetUserAchievementsHandler) Handle(ctx context.Context, q GetUserAchievementsQuery) ([]ranking.AchievementGrant, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit == 0 {
		limit = DefaultAchievementsLimit
	}

	grants, err := h.achievementRepo.ListGrants(ctx, q.UserID, limit)
	if err != nil {
		return nil, shared.WrapError("achievement", "List", shared.ErrLedger,
			"failed to list achievement grants", err)
	}

	return grants, nil
}
