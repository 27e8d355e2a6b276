package eventhandler

import (
	"context"
	"log/slog"

	"github.com/confession-hub/confession-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ON ACHIEVEMENT GRANTED HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// OnAchievementGrantedHandler notifies users about earned achievements.
type OnAchievementGrantedHandler struct {
	notifier Notifier
	logger   *slog.Logger
}

// NewOnAchievementGrantedHandler creates a new OnAchievementGrantedHandler.
func NewOnAchievementGrantedHandler(notifier Notifier, logger *slog.Logger) *OnAchievementGrantedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnAchievementGrantedHandler{
		notifier: notifier,
		logger:   logger.With("handler", "on_achievement_granted"),
	}
}

// Handle processes an AchievementGrantedEvent. Implements shared.EventHandler.
func (h *OnAchievementGrantedHandler) Handle(event shared.Event) error {
	grantEvent, ok := event.(shared.AchievementGrantedEvent)
	if !ok {
		h.logger.Warn("received non-AchievementGrantedEvent", "event_type", event.EventType())
		return nil
	}

	h.logger.Info("processing achievement grant",
		"user_id", grantEvent.UserID,
		"achievement_id", grantEvent.AchievementID,
		"points", grantEvent.PointsAwarded,
	)

	ctx := context.Background()
	if err := h.notifier.NotifyAchievement(ctx, grantEvent.UserID,
		grantEvent.Name, grantEvent.Description, grantEvent.PointsAwarded); err != nil {
		h.logger.Error("failed to send achievement notification",
			"user_id", grantEvent.UserID,
			"achievement_id", grantEvent.AchievementID,
			"error", err,
		)
		return nil
	}

	return nil
}
