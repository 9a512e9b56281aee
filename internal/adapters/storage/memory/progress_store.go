package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/PabloGalante/farum-engine/internal/domain"
)

// ProgressStore is an in-memory implementation of domain.ProgressStore.
// It is NOT persistent and is only suitable for development / local mode.
type ProgressStore struct {
	mu       sync.RWMutex
	progress map[domain.UserID]*domain.UserProgress
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{
		progress: make(map[domain.UserID]*domain.UserProgress),
	}
}

func (s *ProgressStore) GetProgress(_ context.Context, userID domain.UserID) (*domain.UserProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.progress[userID]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return copyProgress(p), nil
}

func (s *ProgressStore) SaveProgress(_ context.Context, p *domain.UserProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.progress[p.UserID] = copyProgress(p)
	return nil
}

// copies keep callers from mutating stored state outside the lock
func copyProgress(p *domain.UserProgress) *domain.UserProgress {
	out := *p
	out.Actions = append([]domain.XPAction(nil), p.Actions...)
	out.Unlocked = maps.Clone(p.Unlocked)
	if out.Unlocked == nil {
		out.Unlocked = make(map[domain.AchievementID]domain.Timestamp)
	}
	return &out
}
