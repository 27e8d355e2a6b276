package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/confession-hub/confession-bot/internal/domain/ranking"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
// ══════════════════════════════════════════════════════════════════════════════

// TTLLeaderboard is how long a rendered board stays cached. Short on
// purpose: the board is a vanity view, a couple of minutes of staleness is
// invisible to users and shields PostgreSQL from per-message queries.
const TTLLeaderboard = 2 * time.Minute

// keyLeaderboard is the key prefix for cached boards.
const keyLeaderboard = "leaderboard:board:"

// LeaderboardCache caches fully rendered, anonymized leaderboards keyed by
// (window, limit). The entries stored here contain display names sampled at
// render time and no user IDs, so a Redis dump leaks no identities.
//
// Implements query.LeaderboardCache. All failures degrade to a cache miss;
// the query layer falls back to PostgreSQL.
type LeaderboardCache struct {
	cache  *Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewLeaderboardCache creates a new LeaderboardCache with the default TTL.
func NewLeaderboardCache(cache *Cache, logger *slog.Logger) *LeaderboardCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &LeaderboardCache{
		cache:  cache,
		ttl:    TTLLeaderboard,
		logger: logger.With("cache", "leaderboard"),
	}
}

// WithTTL overrides the board TTL.
func (c *LeaderboardCache) WithTTL(ttl time.Duration) *LeaderboardCache {
	c.ttl = ttl
	return c
}

func boardKey(window ranking.Window, limit int) string {
	return fmt.Sprintf("%s%s:%d", keyLeaderboard, window, limit)
}

// Get returns the cached board for (window, limit), or false on miss.
func (c *LeaderboardCache) Get(ctx context.Context, window ranking.Window, limit int) ([]ranking.LeaderboardEntry, bool) {
	var entries []ranking.LeaderboardEntry
	err := c.cache.Get(ctx, boardKey(window, limit), &entries)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.logger.Warn("leaderboard cache read failed", "window", window, "error", err)
		}
		return nil, false
	}
	return entries, true
}

// Set stores the rendered board for (window, limit).
func (c *LeaderboardCache) Set(ctx context.Context, window ranking.Window, limit int, entries []ranking.LeaderboardEntry) {
	if err := c.cache.Set(ctx, boardKey(window, limit), entries, c.ttl); err != nil {
		c.logger.Warn("leaderboard cache write failed", "window", window, "error", err)
	}
}

// Invalidate drops every cached board for a window. Called after a window
// reset so users never see pre-reset scores on a fresh board.
func (c *LeaderboardCache) Invalidate(ctx context.Context, window ranking.Window) {
	pattern := fmt.Sprintf("%s%s:*", keyLeaderboard, window)
	if err := c.cache.DeleteByPattern(ctx, pattern); err != nil {
		c.logger.Warn("leaderboard cache invalidation failed", "window", window, "error", err)
	}
}
