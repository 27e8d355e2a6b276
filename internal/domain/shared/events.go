// Package shared contains common domain types, errors, and events that are
// used across all domain packages.
package shared

import (
	"encoding/json"
	"strconv"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Ledger events
	EventPointsAwarded  EventType = "ledger.points_awarded"
	EventPointsDeducted EventType = "ledger.points_deducted"

	// Rank events
	EventRankUp EventType = "rank.rank_up"

	// Achievement events
	EventAchievementGranted EventType = "achievement.granted"

	// Streak events
	EventStreakAdvanced EventType = "streak.advanced"
	EventStreakBroken   EventType = "streak.broken"

	// Leaderboard events
	EventWeeklyWindowReset  EventType = "leaderboard.weekly_reset"
	EventMonthlyWindowReset EventType = "leaderboard.monthly_reset"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Ledger Events
// ═══════════════════════════════════════════════════════════════════════════

// PointsAwardedEvent is emitted after a point transaction is committed.
// A negative delta produces EventPointsDeducted instead.
type PointsAwardedEvent struct {
	BaseEvent
	UserID       int64  `json:"user_id"`
	ActivityType string `json:"activity_type"`
	PointsDelta  int    `json:"points_delta"`
	TotalPoints  int    `json:"total_points"`
}

// Payload implements Event interface.
func (e PointsAwardedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":       e.UserID,
		"activity_type": e.ActivityType,
		"points_delta":  e.PointsDelta,
		"total_points":  e.TotalPoints,
	}
}

// NewPointsAwardedEvent creates a new PointsAwardedEvent.
func NewPointsAwardedEvent(userID int64, activityType string, delta, total int) PointsAwardedEvent {
	eventType := EventPointsAwarded
	if delta < 0 {
		eventType = EventPointsDeducted
	}
	return PointsAwardedEvent{
		BaseEvent:    NewBaseEvent(eventType, formatUserID(userID)),
		UserID:       userID,
		ActivityType: activityType,
		PointsDelta:  delta,
		TotalPoints:  total,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Rank Events
// ═══════════════════════════════════════════════════════════════════════════

// RankUpEvent is emitted when a user crosses a rank threshold.
// Transitions are upward only; there is no rank-down event.
type RankUpEvent struct {
	BaseEvent
	UserID         int64  `json:"user_id"`
	OldRankID      int    `json:"old_rank_id"`
	NewRankID      int    `json:"new_rank_id"`
	NewRankName    string `json:"new_rank_name"`
	NewRankEmoji   string `json:"new_rank_emoji"`
	PointsAtChange int    `json:"points_at_change"`
}

// Payload implements Event interface.
func (e RankUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":          e.UserID,
		"old_rank_id":      e.OldRankID,
		"new_rank_id":      e.NewRankID,
		"new_rank_name":    e.NewRankName,
		"new_rank_emoji":   e.NewRankEmoji,
		"points_at_change": e.PointsAtChange,
	}
}

// NewRankUpEvent creates a new RankUpEvent.
func NewRankUpEvent(userID int64, oldRankID, newRankID int, name, emoji string, points int) RankUpEvent {
	return RankUpEvent{
		BaseEvent:      NewBaseEvent(EventRankUp, formatUserID(userID)),
		UserID:         userID,
		OldRankID:      oldRankID,
		NewRankID:      newRankID,
		NewRankName:    name,
		NewRankEmoji:   emoji,
		PointsAtChange: points,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Achievement Events
// ═══════════════════════════════════════════════════════════════════════════

// AchievementGrantedEvent is emitted when a user earns an achievement.
// Each (user, achievement) pair produces this event at most once.
type AchievementGrantedEvent struct {
	BaseEvent
	UserID        int64  `json:"user_id"`
	AchievementID string `json:"achievement_id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	PointsAwarded int    `json:"points_awarded"`
	IsSpecial     bool   `json:"is_special"`
}

// Payload implements Event interface.
func (e AchievementGrantedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.UserID,
		"achievement_id": e.AchievementID,
		"name":           e.Name,
		"description":    e.Description,
		"points_awarded": e.PointsAwarded,
		"is_special":     e.IsSpecial,
	}
}

// NewAchievementGrantedEvent creates a new AchievementGrantedEvent.
func NewAchievementGrantedEvent(userID int64, achievementID, name, description string, points int, special bool) AchievementGrantedEvent {
	return AchievementGrantedEvent{
		BaseEvent:     NewBaseEvent(EventAchievementGranted, formatUserID(userID)),
		UserID:        userID,
		AchievementID: achievementID,
		Name:          name,
		Description:   description,
		PointsAwarded: points,
		IsSpecial:     special,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Streak Events
// ═══════════════════════════════════════════════════════════════════════════

// StreakAdvancedEvent is emitted when a user's consecutive-day streak grows.
type StreakAdvancedEvent struct {
	BaseEvent
	UserID        int64 `json:"user_id"`
	CurrentStreak int   `json:"current_streak"`
}

// Payload implements Event interface.
func (e StreakAdvancedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.UserID,
		"current_streak": e.CurrentStreak,
	}
}

// NewStreakAdvancedEvent creates a new StreakAdvancedEvent.
func NewStreakAdvancedEvent(userID int64, streak int) StreakAdvancedEvent {
	return StreakAdvancedEvent{
		BaseEvent:     NewBaseEvent(EventStreakAdvanced, formatUserID(userID)),
		UserID:        userID,
		CurrentStreak: streak,
	}
}

// StreakBrokenEvent is emitted when a user's streak lapses.
type StreakBrokenEvent struct {
	BaseEvent
	UserID         int64 `json:"user_id"`
	PreviousStreak int   `json:"previous_streak"`
}

// Payload implements Event interface.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":         e.UserID,
		"previous_streak": e.PreviousStreak,
	}
}

// NewStreakBrokenEvent creates a new StreakBrokenEvent.
func NewStreakBrokenEvent(userID int64, previous int) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:      NewBaseEvent(EventStreakBroken, formatUserID(userID)),
		UserID:         userID,
		PreviousStreak: previous,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Leaderboard Events
// ═══════════════════════════════════════════════════════════════════════════

// WindowResetEvent is emitted when the weekly or monthly point counters
// are cleared by the scheduler.
type WindowResetEvent struct {
	BaseEvent
	Window        string `json:"window"` // "weekly" or "monthly"
	UsersAffected int64  `json:"users_affected"`
}

// Payload implements Event interface.
func (e WindowResetEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"window":         e.Window,
		"users_affected": e.UsersAffected,
	}
}

// NewWindowResetEvent creates a new WindowResetEvent.
func NewWindowResetEvent(window string, usersAffected int64) WindowResetEvent {
	eventType := EventWeeklyWindowReset
	if window == "monthly" {
		eventType = EventMonthlyWindowReset
	}
	return WindowResetEvent{
		BaseEvent:     NewBaseEvent(eventType, "scheduler"),
		Window:        window,
		UsersAffected: usersAffected,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// formatUserID renders a Telegram user ID as an aggregate ID string.
func formatUserID(id int64) string {
	return "user:" + strconv.FormatInt(id, 10)
}
