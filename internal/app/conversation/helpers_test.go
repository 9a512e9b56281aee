package conversation_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alitto/pond/v2"

	"github.com/PabloGalante/farum-engine/internal/adapters/storage/memory"
	"github.com/PabloGalante/farum-engine/internal/app/conversation"
	"github.com/PabloGalante/farum-engine/internal/domain"
)

var start = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) count(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Topic == topic {
			n++
		}
	}
	return n
}

type failingPersister struct{}

func (failingPersister) Save(context.Context, domain.UserID, string, string, []byte) error {
	return errors.New("disk full")
}

type fixture struct {
	manager   *conversation.Manager
	persister *memory.Persister
	events    *recordingPublisher
	clock     *fakeClock
}

func newFixture(t *testing.T, persister domain.Persister) *fixture {
	t.Helper()

	pool := pond.NewPool(2)
	t.Cleanup(pool.StopAndWait)

	f := &fixture{
		persister: memory.NewPersister(),
		events:    &recordingPublisher{},
		clock:     &fakeClock{now: start},
	}
	if persister == nil {
		persister = f.persister
	}

	f.manager = conversation.NewManager(conversation.ManagerDeps{
		Persister: persister,
		Pool:      pool,
		Events:    f.events,
		Clock:     f.clock,
	})
	return f
}
