package progression_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/farum-engine/internal/adapters/storage/memory"
	"github.com/PabloGalante/farum-engine/internal/app/progression"
	"github.com/PabloGalante/farum-engine/internal/domain"
)

var monday = time.Date(2026, time.March, 2, 9, 30, 0, 0, time.UTC)

const day = 24 * time.Hour

func TestStreakMultiplier(t *testing.T) {
	assert.Equal(t, 1.1, progression.StreakMultiplier(1))
	assert.Equal(t, 1.5, progression.StreakMultiplier(5))
	assert.Equal(t, 1.7, progression.StreakMultiplier(7))
	assert.Equal(t, 1.7, progression.StreakMultiplier(8))
	assert.Equal(t, 1.7, progression.StreakMultiplier(100))
}

func TestDaysBetweenIgnoresTimeOfDay(t *testing.T) {
	late := time.Date(2026, time.March, 2, 23, 59, 0, 0, time.UTC)
	early := time.Date(2026, time.March, 3, 0, 1, 0, 0, time.UTC)

	assert.Equal(t, 1, progression.DaysBetween(late, early))
	assert.Equal(t, 0, progression.DaysBetween(early, early.Add(20*time.Hour)))
	assert.Equal(t, -1, progression.DaysBetween(early, late))
}

func TestRecordActivitySameDayIsIdempotent(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(monday)
	tracker := progression.NewStreakTracker(memory.NewStreakStore(), clock)

	first, err := tracker.RecordActivity(ctx, "u1")
	require.NoError(t, err)

	clock.Advance(8 * time.Hour)
	second, err := tracker.RecordActivity(ctx, "u1")
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("same-day activity changed the record (-first +second):\n%s", diff)
	}
}

func TestRecordActivitySevenConsecutiveDays(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(monday)
	tracker := progression.NewStreakTracker(memory.NewStreakStore(), clock)

	var rec *domain.StreakRecord
	var err error
	for i := 0; i < 7; i++ {
		rec, err = tracker.RecordActivity(ctx, "u1")
		require.NoError(t, err)
		clock.Advance(day)
	}

	assert.Equal(t, 7, rec.CurrentStreak)
	assert.Equal(t, 7, rec.LongestStreak)
	assert.Equal(t, 1.7, rec.Multiplier)
}

func TestRecordActivityGapResets(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(monday)
	tracker := progression.NewStreakTracker(memory.NewStreakStore(), clock)

	for i := 0; i < 4; i++ {
		_, err := tracker.RecordActivity(ctx, "u1")
		require.NoError(t, err)
		clock.Advance(day)
	}

	// skip a day
	clock.Advance(day)
	rec, err := tracker.RecordActivity(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, 1, rec.CurrentStreak)
	assert.Equal(t, 1.0, rec.Multiplier)
	assert.Equal(t, 4, rec.LongestStreak)
}

func TestNextStreakClockSkewResets(t *testing.T) {
	rec := domain.StreakRecord{
		CurrentStreak:    3,
		LongestStreak:    5,
		LastActivityDate: progression.Day(monday),
		Multiplier:       1.3,
	}

	next, changed := progression.NextStreak(rec, monday.Add(-2*day))

	assert.True(t, changed)
	assert.Equal(t, 1, next.CurrentStreak)
	assert.Equal(t, 1.0, next.Multiplier)
	assert.Equal(t, 5, next.LongestStreak)
}

func TestNextStreakFirstActivity(t *testing.T) {
	next, changed := progression.NextStreak(domain.StreakRecord{UserID: "u1"}, monday)

	assert.True(t, changed)
	assert.Equal(t, 1, next.CurrentStreak)
	assert.Equal(t, 1, next.LongestStreak)
	assert.Equal(t, 1.0, next.Multiplier)
	assert.Equal(t, progression.Day(monday), next.LastActivityDate)
}

func TestRecordActivityUsersAreIndependent(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(monday)
	tracker := progression.NewStreakTracker(memory.NewStreakStore(), clock)

	_, err := tracker.RecordActivity(ctx, "u1")
	require.NoError(t, err)
	clock.Advance(day)
	_, err = tracker.RecordActivity(ctx, "u1")
	require.NoError(t, err)

	other, err := tracker.RecordActivity(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, other.CurrentStreak)

	mine, err := tracker.Streak(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, mine.CurrentStreak)
}

func TestRecordActivityConcurrentDevicesAdvanceOnce(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(monday)
	store := memory.NewStreakStore()
	tracker := progression.NewStreakTracker(store, clock)

	_, err := tracker.RecordActivity(ctx, "u1")
	require.NoError(t, err)

	clock.Advance(day)

	const devices = 32
	var wg sync.WaitGroup
	results := make([]*domain.StreakRecord, devices)
	errs := make([]error, devices)
	for i := range devices {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = tracker.RecordActivity(ctx, "u1")
		}()
	}
	wg.Wait()

	for i := range devices {
		require.NoError(t, errs[i])
		assert.Equal(t, 2, results[i].CurrentStreak)
		assert.Equal(t, 1.2, results[i].Multiplier)
	}

	rec, err := tracker.Streak(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.CurrentStreak)
	assert.Equal(t, 2, rec.LongestStreak)
}
