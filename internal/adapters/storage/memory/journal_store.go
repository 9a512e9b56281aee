package memory

import (
	"context"
	"sync"

	"github.com/PabloGalante/farum-engine/internal/domain"
)

// JournalStore is a simple in-memory implementation of domain.JournalStore.
// It is NOT persistent and is only suitable for development / local mode.
type JournalStore struct {
	mu     sync.RWMutex
	byUser map[domain.UserID][]domain.JournalEntry
}

func NewJournalStore() *JournalStore {
	return &JournalStore{
		byUser: make(map[domain.UserID][]domain.JournalEntry),
	}
}

func (s *JournalStore) AppendJournalEntry(_ context.Context, entry *domain.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byUser[entry.UserID] = append(s.byUser[entry.UserID], *entry)
	return nil
}

// ListJournalEntriesByUser returns the last `limit` entries for a user,
// oldest first. If limit <= 0, returns all.
func (s *JournalStore) ListJournalEntriesByUser(_ context.Context, userID domain.UserID, limit int) ([]*domain.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.byUser[userID]
	if limit <= 0 || limit > len(entries) {
		limit = len(entries)
	}

	out := make([]*domain.JournalEntry, 0, limit)
	for _, e := range entries[len(entries)-limit:] {
		e := e
		out = append(out, &e)
	}
	return out, nil
}
