package progression_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/PabloGalante/farum-engine/internal/app/progression"
	"github.com/PabloGalante/farum-engine/internal/domain"
)

func TestXPForLevel(t *testing.T) {
	assert.Equal(t, 100, progression.XPForLevel(1))
	assert.Equal(t, 282, progression.XPForLevel(2))
	assert.Equal(t, 519, progression.XPForLevel(3))
	assert.Equal(t, 800, progression.XPForLevel(4))
}

func TestCalculateLevelMonotonic(t *testing.T) {
	prev := progression.CalculateLevel(0)
	assert.Equal(t, 1, prev)

	for xp := 1; xp <= 20000; xp++ {
		lvl := progression.CalculateLevel(xp)
		if lvl < prev {
			t.Fatalf("level decreased at xp=%d: %d -> %d", xp, prev, lvl)
		}
		prev = lvl
	}
}

func TestCalculateLevelAtThresholds(t *testing.T) {
	for level := 2; level <= 60; level++ {
		xp := progression.XPForLevel(level)
		assert.Equal(t, level, progression.CalculateLevel(xp), "level %d", level)
		assert.Equal(t, level-1, progression.CalculateLevel(xp-1), "just below level %d", level)
	}
	assert.Equal(t, 1, progression.CalculateLevel(281))
}

func TestGetLevelProgressBounds(t *testing.T) {
	for xp := 0; xp <= 10000; xp += 7 {
		p := progression.GetLevelProgress(xp)
		if p.Progress < 0 || p.Progress > 100 {
			t.Fatalf("progress out of range at xp=%d: %f", xp, p.Progress)
		}
		assert.GreaterOrEqual(t, p.XPToNextLevel, 0)
	}
}

func TestGetLevelProgress(t *testing.T) {
	p := progression.GetLevelProgress(400)

	assert.Equal(t, 2, p.CurrentLevel)
	assert.Equal(t, 400, p.CurrentXP)
	assert.Equal(t, 282, p.XPForCurrentLevel)
	assert.Equal(t, 519, p.XPForNextLevel)
	assert.Equal(t, 119, p.XPToNextLevel)
	assert.InDelta(t, float64(400-282)/float64(519-282)*100, p.Progress, 1e-9)

	// level 1 has no lower bound: below XPForLevel(1) progress clamps to 0
	low := progression.GetLevelProgress(50)
	assert.Equal(t, 1, low.CurrentLevel)
	assert.Zero(t, low.Progress)
}

func TestAddXPLevelUp(t *testing.T) {
	res := progression.AddXP(250, domain.XPAction{XP: 50}, nil, nil, 0)

	assert.Equal(t, 300, res.NewXP)
	assert.Equal(t, 1, res.OldLevel)
	assert.Equal(t, 2, res.NewLevel)
	assert.True(t, res.LevelUp)
	assert.Empty(t, res.Unlocked)
}

func TestAddXPNoLevelUp(t *testing.T) {
	res := progression.AddXP(0, domain.XPAction{XP: 50}, nil, nil, 0)

	assert.Equal(t, 50, res.NewXP)
	assert.Equal(t, 1, res.NewLevel)
	assert.False(t, res.LevelUp)
}

func TestAddXPClampsDebit(t *testing.T) {
	res := progression.AddXP(30, domain.XPAction{XP: -50, Type: domain.ActionRedemption}, nil, nil, 0)

	assert.Equal(t, 0, res.NewXP)
	assert.True(t, res.Clamped)
	assert.False(t, res.LevelUp)
}

func TestAddXPSkipsUnlockedAchievements(t *testing.T) {
	catalog := progression.DefaultCatalog()
	action := domain.XPAction{XP: 10, Type: domain.ActionBreathing}

	res := progression.AddXP(0, action, catalog, nil, 1)
	ids := make([]domain.AchievementID, 0, len(res.Unlocked))
	for _, a := range res.Unlocked {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []domain.AchievementID{"first_steps", "deep_breath"}, ids)

	unlocked := map[domain.AchievementID]domain.Timestamp{"first_steps": {}, "deep_breath": {}}
	res = progression.AddXP(10, action, catalog, unlocked, 1)
	assert.Empty(t, res.Unlocked)
}

func TestCalculateLevelMatchesThresholdWalk(t *testing.T) {
	walk := func(xp int) int {
		level := 1
		for xp >= progression.XPForLevel(level+1) {
			level++
		}
		return level
	}
	for _, xp := range []int{0, 281, 282, 283, 518, 519, 10_000, 123_456, 1_000_000, 99_999_999} {
		assert.Equal(t, walk(xp), progression.CalculateLevel(xp), "xp=%d", xp)
	}
	for l := 2; l <= 3000; l++ {
		assert.Equal(t, l, progression.CalculateLevel(progression.XPForLevel(l)))
		assert.Equal(t, l-1, progression.CalculateLevel(progression.XPForLevel(l)-1))
	}
}

func TestCalculateLevelLargeTotalsAreFast(t *testing.T) {
	start := time.Now()
	level := progression.CalculateLevel(10_000_000_000_000)
	assert.Equal(t, 21544346, level)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}
