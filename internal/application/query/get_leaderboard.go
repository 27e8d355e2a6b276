package query

import (
	"context"

	"github.com/confession-hub/confession-bot/internal/domain/ranking"
	"github.com/confession-hub/confession-bot/internal/domain/shared"
	"github.com/confession-hub/confession-bot/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Computes the anonymized top-N over a rolling window. Display names are
// sampled fresh per query; no identity survives into the output.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultLeaderboardLimit is used when the caller passes no limit.
const DefaultLeaderboardLimit = 10

// MaxLeaderboardLimit caps the board size.
const MaxLeaderboardLimit = 100

// GetLeaderboardQuery contains the query parameters.
type GetLeaderboardQuery struct {
	// Window is the aggregation range: weekly, monthly, or all_time.
	Window ranking.Window

	// Limit is the maximum number of entries (default 10, capped at 100).
	Limit int
}

// Validate validates the query.
func (q GetLeaderboardQuery) Validate() error {
	if !q.Window.IsValid() {
		return shared.WrapError("leaderboard", "Validate", shared.ErrInvalidInput,
			"invalid window", ranking.ErrInvalidWindow)
	}
	if q.Limit < 0 {
		return shared.WrapError("leaderboard", "Validate", shared.ErrValueOutOfRange,
			"limit must not be negative", ranking.ErrInvalidLimit)
	}
	return nil
}

// LeaderboardCache caches fully rendered (already anonymized) boards.
// Caching entries rather than users keeps the privacy property intact:
// the cache never holds a user ID.
type LeaderboardCache interface {
	Get(ctx context.Context, window ranking.Window, limit int) ([]ranking.LeaderboardEntry, bool)
	Set(ctx context.Context, window ranking.Window, limit int, entries []ranking.LeaderboardEntry)
}

// GetLeaderboardHandler handles the GetLeaderboardQuery.
type GetLeaderboardHandler struct {
	leaderboardRepo ranking.LeaderboardRepository
	anonymizer      *ranking.Anonymizer
	cache           LeaderboardCache // optional
	log             *logger.Logger
}

// NewGetLeaderboardHandler creates a new GetLeaderboardHandler.
// The cache may be nil.
func NewGetLeaderboardHandler(
	leaderboardRepo ranking.LeaderboardRepository,
	anonymizer *ranking.Anonymizer,
	cache LeaderboardCache,
	log *logger.Logger,
) *GetLeaderboardHandler {
	if log == nil {
		log = logger.Default()
	}
	return &GetLeaderboardHandler{
		leaderboardRepo: leaderboardRepo,
		anonymizer:      anonymizer,
		cache:           cache,
		log:             log.With(logger.Component("get_leaderboard")),
	}
}

// Handle executes the query. Fewer qualifying users than the limit yields
// a shorter board; zero qualifying users yields an empty one, not an error.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, q GetLeaderboardQuery) ([]ranking.LeaderboardEntry, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit == 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}

	if h.cache != nil {
		if entries, ok := h.cache.Get(ctx, q.Window, limit); ok {
			return entries, nil
		}
	}

	users, err := h.leaderboardRepo.TopUsers(ctx, q.Window, limit)
	if err != nil {
		return nil, shared.WrapError("leaderboard", "Query", shared.ErrLedger,
			"failed to query leaderboard", err)
	}

	entries := ranking.BuildLeaderboard(users, h.anonymizer)

	if h.cache != nil {
		h.cache.Set(ctx, q.Window, limit, entries)
	}

	h.log.Debug("leaderboard computed",
		logger.String("window", q.Window.String()),
		logger.Int("entries", len(entries)),
	)

	return entries, nil
}
