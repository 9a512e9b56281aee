package domain

import (
	"context"
	"time"
)

// LLMClient defines how the core application interacts with a text-generation service.
// Its output is treated as an opaque string.
type LLMClient interface {
	GenerateReply(ctx context.Context, prompt string, convCtx ConversationContext) (string, error)
}

// ConversationContext gives the LLM minimal context about the conversation.
type ConversationContext struct {
	SessionID SessionID
	UserID    UserID
	History   []Message // ordered turns, oldest first
	Crisis    bool
	Emotion   EmotionType
	Topics    []string
}

// SentimentAnalyzer is the external sentiment collaborator.
type SentimentAnalyzer interface {
	AnalyzeSentiment(ctx context.Context, text, languageCode string) (Sentiment, error)
}

// Persister is the durable write collaborator. No read-modify-write atomicity is assumed.
type Persister interface {
	Save(ctx context.Context, userID UserID, category, filename string, payload []byte) error
}

// StreakStore persists one StreakRecord per user.
type StreakStore interface {
	GetStreak(ctx context.Context, userID UserID) (*StreakRecord, error)
	SaveStreak(ctx context.Context, rec *StreakRecord) error
}

// ProgressStore persists the per-user XP ledger and unlocked achievements.
type ProgressStore interface {
	GetProgress(ctx context.Context, userID UserID) (*UserProgress, error)
	SaveProgress(ctx context.Context, p *UserProgress) error
}

// Clock is the source of "now". Injected so day-boundary logic can be tested.
type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock returns the wall clock.
var SystemClock Clock = ClockFunc(time.Now)
