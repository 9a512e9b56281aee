package conversation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/farum-engine/internal/app/conversation"
)

func TestReaperSweepEndsOnlyIdleSessions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	idle, err := f.manager.CreateSession(ctx, "u1")
	require.NoError(t, err)

	f.clock.Advance(20 * time.Minute)

	active, err := f.manager.CreateSession(ctx, "u2")
	require.NoError(t, err)

	f.clock.Advance(15 * time.Minute)
	_, err = f.manager.AppendUserMessage(ctx, active.ID, "still here")
	require.NoError(t, err)

	r, err := conversation.NewReaper(f.manager, 30*time.Minute, "@every 1h")
	require.NoError(t, err)

	assert.Equal(t, 1, r.Sweep(ctx))

	_, err = f.manager.Session(ctx, idle.ID)
	assert.Error(t, err)
	_, err = f.manager.Session(ctx, active.ID)
	assert.NoError(t, err)

	assert.Equal(t, 0, r.Sweep(ctx))
}

func TestReaperRejectsBadSchedule(t *testing.T) {
	f := newFixture(t, nil)

	_, err := conversation.NewReaper(f.manager, time.Minute, "not a schedule")
	assert.Error(t, err)
}

func TestReaperStartStop(t *testing.T) {
	f := newFixture(t, nil)

	r, err := conversation.NewReaper(f.manager, time.Minute, "@every 1h")
	require.NoError(t, err)

	r.Start()
	r.Stop()
}
