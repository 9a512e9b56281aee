package progression_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Southclaws/fault/ftag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/farum-engine/internal/adapters/storage/memory"
	"github.com/PabloGalante/farum-engine/internal/app/progression"
	"github.com/PabloGalante/farum-engine/internal/domain"
)

func TestLedgerUnlocksOncePerUser(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	ledger := progression.NewLedger(memory.NewProgressStore(), progression.DefaultCatalog(), pub, newFakeClock(monday))

	res, err := ledger.AddXP(ctx, "u1", domain.XPAction{ID: "a1", Type: domain.ActionBreathing, XP: 10}, 1)
	require.NoError(t, err)

	require.Len(t, res.Unlocked, 2)
	assert.Equal(t, domain.AchievementID("first_steps"), res.Unlocked[0].ID)
	assert.Equal(t, domain.AchievementID("deep_breath"), res.Unlocked[1].ID)
	assert.NotNil(t, res.Unlocked[0].UnlockedAt)
	require.Len(t, res.Rewards, 2)
	assert.Equal(t, 30, res.NewXP)

	res, err = ledger.AddXP(ctx, "u1", domain.XPAction{ID: "a2", Type: domain.ActionBreathing, XP: 10}, 1)
	require.NoError(t, err)
	assert.Empty(t, res.Unlocked)
	assert.Equal(t, 40, res.NewXP)

	// another user's unlocks are their own
	res, err = ledger.AddXP(ctx, "u2", domain.XPAction{ID: "a1", Type: domain.ActionBreathing, XP: 10}, 1)
	require.NoError(t, err)
	assert.Len(t, res.Unlocked, 2)

	assert.Equal(t, []string{
		domain.TopicAchievementUnlocked,
		domain.TopicAchievementUnlocked,
		domain.TopicAchievementUnlocked,
		domain.TopicAchievementUnlocked,
	}, pub.topics())
}

func TestLedgerRejectsDuplicateActionID(t *testing.T) {
	ctx := context.Background()
	ledger := progression.NewLedger(memory.NewProgressStore(), emptyCatalog(t), nil, newFakeClock(monday))

	_, err := ledger.AddXP(ctx, "u1", domain.XPAction{ID: "dup", Type: domain.ActionChatSession, XP: 20}, 0)
	require.NoError(t, err)

	_, err = ledger.AddXP(ctx, "u1", domain.XPAction{ID: "dup", Type: domain.ActionChatSession, XP: 20}, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDuplicateAction))
	assert.Equal(t, ftag.AlreadyExists, ftag.Get(err))

	view, err := ledger.Progress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 20, view.TotalXP)
}

func TestLedgerConcurrentDuplicatesRecordOnce(t *testing.T) {
	ctx := context.Background()
	ledger := progression.NewLedger(memory.NewProgressStore(), progression.DefaultCatalog(), nil, newFakeClock(monday))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		unlocked  int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := ledger.AddXP(ctx, "u1", domain.XPAction{ID: "same", Type: domain.ActionChatSession, XP: 20}, 1)
			if err != nil {
				return
			}
			mu.Lock()
			successes++
			unlocked += len(res.Unlocked)
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, 2, unlocked)
}

func TestLedgerLevelUpEvent(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	ledger := progression.NewLedger(memory.NewProgressStore(), emptyCatalog(t), pub, newFakeClock(monday))

	res, err := ledger.AddXP(ctx, "u1", domain.XPAction{Type: domain.ActionChatSession, XP: 250}, 0)
	require.NoError(t, err)
	assert.False(t, res.LevelUp)

	res, err = ledger.AddXP(ctx, "u1", domain.XPAction{Type: domain.ActionChatSession, XP: 50}, 0)
	require.NoError(t, err)
	assert.True(t, res.LevelUp)
	assert.Equal(t, 300, res.NewXP)
	assert.Equal(t, 1, res.PreviousLevel)
	assert.Equal(t, 2, res.NewLevel)

	assert.Equal(t, []string{domain.TopicLevelUp}, pub.topics())
}

func TestLedgerDebitClamps(t *testing.T) {
	ctx := context.Background()
	ledger := progression.NewLedger(memory.NewProgressStore(), emptyCatalog(t), nil, newFakeClock(monday))

	_, err := ledger.AddXP(ctx, "u1", domain.XPAction{Type: domain.ActionChatSession, XP: 30}, 0)
	require.NoError(t, err)

	res, err := ledger.AddXP(ctx, "u1", domain.XPAction{Type: domain.ActionRedemption, XP: -50}, 0)
	require.NoError(t, err)
	assert.True(t, res.Clamped)
	assert.Equal(t, 0, res.NewXP)
}

func TestLedgerRejectsNegativeNonRedemption(t *testing.T) {
	ctx := context.Background()
	ledger := progression.NewLedger(memory.NewProgressStore(), emptyCatalog(t), nil, newFakeClock(monday))

	_, err := ledger.AddXP(ctx, "u1", domain.XPAction{Type: domain.ActionChatSession, XP: 30}, 0)
	require.NoError(t, err)

	_, err = ledger.AddXP(ctx, "u1", domain.XPAction{Type: domain.ActionChatSession, XP: -30}, 0)
	require.Error(t, err)
	assert.Equal(t, ftag.InvalidArgument, ftag.Get(err))

	_, err = ledger.AddXP(ctx, "u1", domain.XPAction{Type: domain.ActionMeditation, XP: progression.MaxActionXP + 1}, 0)
	require.Error(t, err)
	assert.Equal(t, ftag.InvalidArgument, ftag.Get(err))

	view, err := ledger.Progress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 30, view.TotalXP)
	assert.Len(t, view.RecentActions, 1)
}

func TestLedgerRewardsCascade(t *testing.T) {
	ctx := context.Background()
	catalog, err := progression.ParseCatalog([]byte(`
achievements:
  - {id: starter, title: Starter, xp_reward: 300, rule: {kind: action}}
  - {id: level_two, title: Level Two, xp_reward: 0, rule: {kind: level, threshold: 2}}
`))
	require.NoError(t, err)

	ledger := progression.NewLedger(memory.NewProgressStore(), catalog, nil, newFakeClock(monday))

	res, err := ledger.AddXP(ctx, "u1", domain.XPAction{Type: domain.ActionMoodCheckIn, XP: 5}, 0)
	require.NoError(t, err)

	ids := make([]domain.AchievementID, 0, len(res.Unlocked))
	for _, a := range res.Unlocked {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []domain.AchievementID{"starter", "level_two"}, ids)
	assert.Equal(t, 305, res.NewXP)
	assert.True(t, res.LevelUp)
}

func TestLedgerProgressView(t *testing.T) {
	ctx := context.Background()
	ledger := progression.NewLedger(memory.NewProgressStore(), progression.DefaultCatalog(), nil, newFakeClock(monday))

	for i := 0; i < 12; i++ {
		_, err := ledger.AddXP(ctx, "u1", domain.XPAction{ID: domain.ActionID(fmt.Sprintf("a%d", i)), Type: domain.ActionMoodCheckIn, XP: 5}, 1)
		require.NoError(t, err)
	}

	view, err := ledger.Progress(ctx, "u1")
	require.NoError(t, err)

	assert.Len(t, view.RecentActions, 10)
	assert.Len(t, view.Achievements, len(progression.DefaultCatalog().Achievements))

	unlocked := 0
	for _, a := range view.Achievements {
		if a.UnlockedAt != nil {
			unlocked++
			assert.Equal(t, domain.AchievementID("first_steps"), a.ID)
		}
	}
	assert.Equal(t, 1, unlocked)
	assert.Equal(t, 12*5+10, view.TotalXP)
}
