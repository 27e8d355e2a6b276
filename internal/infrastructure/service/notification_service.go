// Package service contains infrastructure adapters that implement
// application-layer interfaces.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/confession-hub/confession-bot/internal/infrastructure/external/telegram"
)

// ══════════════════════════════════════════════════════════════════════════════
// TELEGRAM NOTIFICATION SERVICE
// ══════════════════════════════════════════════════════════════════════════════

// TelegramNotifier delivers ranking notifications to users via private
// message. Implements eventhandler.Notifier.
//
// A user who blocked the bot is dropped silently: the rank or achievement
// already committed, the message is just a courtesy.
type TelegramNotifier struct {
	client *telegram.Client
	logger *slog.Logger
}

// NewTelegramNotifier creates a new TelegramNotifier.
func NewTelegramNotifier(client *telegram.Client, logger *slog.Logger) *TelegramNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &TelegramNotifier{
		client: client,
		logger: logger.With("service", "telegram_notifier"),
	}
}

// NotifyRankUp tells a user they reached a new rank tier.
func (n *TelegramNotifier) NotifyRankUp(ctx context.Context, userID int64, rankName, rankEmoji string) error {
	text := fmt.Sprintf(
		"🎉 <b>Rank up!</b>\n\nYou are now %s <b>%s</b>. Keep confessing!",
		rankEmoji, rankName,
	)

	if _, err := n.client.SendHTML(ctx, userID, text); err != nil {
		if telegram.IsUserBlocked(err) {
			n.logger.Debug("skipping rank up notification, user blocked bot", "user_id", userID)
			return nil
		}
		return fmt.Errorf("notify rank up: %w", err)
	}

	return nil
}

// NotifyAchievement tells a user they earned an achievement.
func (n *TelegramNotifier) NotifyAchievement(ctx context.Context, userID int64, name, description string, points int) error {
	text := fmt.Sprintf(
		"🏆 <b>Achievement unlocked!</b>\n\n%s\n<i>%s</i>",
		name, description,
	)
	if points > 0 {
		text += fmt.Sprintf("\n\n+%d points", points)
	}

	if _, err := n.client.SendHTML(ctx, userID, text); err != nil {
		if telegram.IsUserBlocked(err) {
			n.logger.Debug("skipping achievement notification, user blocked bot", "user_id", userID)
			return nil
		}
		return fmt.Errorf("notify achievement: %w", err)
	}

	return nil
}
