package domain

import "context"

// Event topics published by the engine.
const (
	TopicCrisisDetected      = "session.crisis_detected"
	TopicSessionEnded        = "session.ended"
	TopicLevelUp             = "progress.level_up"
	TopicAchievementUnlocked = "progress.achievement_unlocked"
)

// Event is a domain notification. Payload must be JSON-serialisable.
type Event struct {
	Topic   string
	UserID  UserID
	Payload any
}

// EventPublisher delivers domain events to interested consumers.
type EventPublisher interface {
	Publish(ctx context.Context, evt Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
