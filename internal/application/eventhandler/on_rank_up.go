// Package eventhandler contains domain event handlers. They are the
// reactive part of the system: they observe what the engine committed and
// trigger side effects such as user notifications. The ranking core never
// calls the transport directly.
package eventhandler

import (
	"context"
	"log/slog"

	"github.com/confession-hub/confession-bot/internal/domain/shared"
)

// Notifier delivers user-facing notifications. Implemented by the Telegram
// notification service; the handlers neither know nor care how delivery
// happens.
type Notifier interface {
	// NotifyRankUp tells a user they reached a new rank tier.
	NotifyRankUp(ctx context.Context, userID int64, rankName, rankEmoji string) error

	// NotifyAchievement tells a user they earned an achievement.
	NotifyAchievement(ctx context.Context, userID int64, name, description string, points int) error
}

// ══════════════════════════════════════════════════════════════════════════════
// ON RANK UP HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// OnRankUpHandler notifies users about rank transitions.
// Delivery is fire-and-forget: a failed notification is logged, never
// retried into the award path.
type OnRankUpHandler struct {
	notifier Notifier
	logger   *slog.Logger
}

// NewOnRankUpHandler creates a new OnRankUpHandler.
func NewOnRankUpHandler(notifier Notifier, logger *slog.Logger) *OnRankUpHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnRankUpHandler{
		notifier: notifier,
		logger:   logger.With("handler", "on_rank_up"),
	}
}

// Handle processes a RankUpEvent. Implements shared.EventHandler.
func (h *OnRankUpHandler) Handle(event shared.Event) error {
	rankEvent, ok := event.(shared.RankUpEvent)
	if !ok {
		h.logger.Warn("received non-RankUpEvent", "event_type", event.EventType())
		return nil
	}

	h.logger.Info("processing rank up",
		"user_id", rankEvent.UserID,
		"old_rank_id", rankEvent.OldRankID,
		"new_rank_id", rankEvent.NewRankID,
		"new_rank_name", rankEvent.NewRankName,
	)

	ctx := context.Background()
	if err := h.notifier.NotifyRankUp(ctx, rankEvent.UserID, rankEvent.NewRankName, rankEvent.NewRankEmoji); err != nil {
		h.logger.Error("failed to send rank up notification",
			"user_id", rankEvent.UserID,
			"error", err,
		)
		// Notification delivery is best-effort; the transition itself is durable.
		return nil
	}

	return nil
}
