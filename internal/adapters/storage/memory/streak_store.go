package memory

import (
	"context"
	"sync"

	"github.com/PabloGalante/farum-engine/internal/domain"
)

type StreakStore struct {
	mu      sync.RWMutex
	streaks map[domain.UserID]domain.StreakRecord
}

func NewStreakStore() *StreakStore {
	return &StreakStore{
		streaks: make(map[domain.UserID]domain.StreakRecord),
	}
}

func (s *StreakStore) GetStreak(_ context.Context, userID domain.UserID) (*domain.StreakRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.streaks[userID]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return &rec, nil
}

func (s *StreakStore) SaveStreak(_ context.Context, rec *domain.StreakRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.streaks[rec.UserID] = *rec
	return nil
}
