// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"

	"github.com/confession-hub/confession-bot/internal/domain/ranking"
	"github.com/confession-hub/confession-bot/internal/domain/shared"
	"github.com/confession-hub/confession-bot/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET USER RANK QUERY
// Returns the user's rank summary: tier, points, progress toward the next
// tier, and perks.
// ══════════════════════════════════════════════════════════════════════════════

// GetUserRankQuery contains the query parameters.
type GetUserRankQuery struct {
	// UserID is the user whose rank is requested.
	UserID ranking.UserID
}

// Validate validates the query.
func (q GetUserRankQuery) Validate() error {
	if !q.UserID.IsValid() {
		return shared.WrapError("rank", "Validate", shared.ErrValidation,
			"user ID must be positive", ranking.ErrInvalidUserID)
	}
	return nil
}

// GetUserRankHandler handles the GetUserRankQuery.
type GetUserRankHandler struct {
	ledgerRepo ranking.LedgerRepository
	registry   *ranking.Registry
	log        *logger.Logger
}

// NewGetUserRankHandler creates a new GetUserRankHandler.
func NewGetUserRankHandler(
	ledgerRepo ranking.LedgerRepository,
	registry *ranking.Registry,
	log *logger.Logger,
) *GetUserRankHandler {
	if log == nil {
		log = logger.Default()
	}
	return &GetUserRankHandler{
		ledgerRepo: ledgerRepo,
		registry:   registry,
		log:        log.With(logger.Component("get_user_rank")),
	}
}

// Handle executes the query. Users never seen before are initialized at
// the lowest tier so the first /myrank always answers.
func (h *GetUserRankHandler) Handle(ctx context.Context, q GetUserRankQuery) (*ranking.RankSummary, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	state, err := h.ledgerRepo.GetState(ctx, q.UserID)
	if errors.Is(err, shared.ErrNotFound) {
		lowest := h.registry.Lowest()
		if err := h.ledgerRepo.InitializeUser(ctx, q.UserID, lowest.ID); err != nil {
			return nil, shared.WrapError("rank", "Initialize", shared.ErrLedger,
				"failed to initialize user ranking state", err)
		}
		state, err = h.ledgerRepo.GetState(ctx, q.UserID)
	}
	if err != nil {
		return nil, shared.WrapError("rank", "Get", shared.ErrLedger,
			"failed to load user ranking state", err)
	}

	summary, err := ranking.BuildRankSummary(state, h.registry)
	if err != nil {
		return nil, shared.WrapError("rank", "Build", shared.ErrInvalidState,
			"user references unknown rank", err)
	}

	return &summary, nil
}
