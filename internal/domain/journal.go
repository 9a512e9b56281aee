package domain

import (
	"context"
	"time"
)

// JournalEntryID identifies a journal entry
type JournalEntryID string

// JournalEntry is a free-form reflection written by the user outside a
// conversation. Mood and crisis signals come from the same classifiers
// used for chat messages.
type JournalEntry struct {
	ID        JournalEntryID `json:"id"`
	UserID    UserID         `json:"user_id"`
	CreatedAt time.Time      `json:"created_at"`

	Text string `json:"text"`

	Mood      EmotionType `json:"mood"`
	Intensity float64     `json:"intensity"`
	Score     float64     `json:"score"`
	Topics    []string    `json:"topics"`
	Crisis    bool        `json:"crisis"`
}

// JournalStore defines the minimum operations to persist the journal
type JournalStore interface {
	AppendJournalEntry(ctx context.Context, entry *JournalEntry) error
	ListJournalEntriesByUser(ctx context.Context, userID UserID, limit int) ([]*JournalEntry, error)
}
