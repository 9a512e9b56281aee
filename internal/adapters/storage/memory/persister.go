package memory

import (
	"context"
	"path"
	"sync"

	"github.com/PabloGalante/farum-engine/internal/domain"
)

// Persister keeps persisted documents in memory, keyed by
// user/category/filename.
type Persister struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewPersister() *Persister {
	return &Persister{
		docs: make(map[string][]byte),
	}
}

func (p *Persister) Save(_ context.Context, userID domain.UserID, category, filename string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.docs[docKey(userID, category, filename)] = append([]byte(nil), payload...)
	return nil
}

// Load returns a previously saved document.
func (p *Persister) Load(userID domain.UserID, category, filename string) ([]byte, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	b, ok := p.docs[docKey(userID, category, filename)]
	return b, ok
}

// Len returns the number of stored documents.
func (p *Persister) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.docs)
}

func docKey(userID domain.UserID, category, filename string) string {
	return path.Join(string(userID), category, filename)
}
