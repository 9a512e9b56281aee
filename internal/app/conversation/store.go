package conversation

import (
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/PabloGalante/farum-engine/internal/domain"
)

// liveSession is one Active session. mu serialises every turn so messages
// are appended in arrival order.
type liveSession struct {
	mu         sync.Mutex
	session    *domain.Session
	ended      bool
	lastActive time.Time
}

// SessionStore holds the Active sessions. It is owned by whoever builds
// the Manager; there is no process-wide instance.
type SessionStore struct {
	sessions *xsync.Map[domain.SessionID, *liveSession]
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: xsync.NewMap[domain.SessionID, *liveSession](),
	}
}

func (s *SessionStore) put(ls *liveSession) {
	s.sessions.Store(ls.session.ID, ls)
}

func (s *SessionStore) get(id domain.SessionID) (*liveSession, bool) {
	return s.sessions.Load(id)
}

func (s *SessionStore) remove(id domain.SessionID) {
	s.sessions.Delete(id)
}

// Len returns the number of Active sessions.
func (s *SessionStore) Len() int {
	return s.sessions.Size()
}

// IDs returns the ids of all Active sessions.
func (s *SessionStore) IDs() []domain.SessionID {
	var ids []domain.SessionID
	s.sessions.Range(func(id domain.SessionID, _ *liveSession) bool {
		ids = append(ids, id)
		return true
	})
	return ids
}

// idleSince returns the sessions whose last turn happened at or before cutoff.
func (s *SessionStore) idleSince(cutoff time.Time) []domain.SessionID {
	var ids []domain.SessionID
	s.sessions.Range(func(id domain.SessionID, ls *liveSession) bool {
		ls.mu.Lock()
		idle := !ls.lastActive.After(cutoff)
		ls.mu.Unlock()
		if idle {
			ids = append(ids, id)
		}
		return true
	})
	return ids
}
