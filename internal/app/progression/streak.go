package progression

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"

	"github.com/PabloGalante/farum-engine/internal/domain"
	"github.com/PabloGalante/farum-engine/internal/observability"
	"github.com/PabloGalante/farum-engine/internal/syncx"
)

const (
	baseMultiplier = 1.0
	multiplierStep = 0.1
	maxMultiplier  = 1.7
	hoursPerCalDay = 24
)

// StreakMultiplier returns the XP multiplier for a streak length.
func StreakMultiplier(streak int) float64 {
	m := math.Min(baseMultiplier+multiplierStep*float64(streak), maxMultiplier)
	// one decimal keeps 1.7 from drifting to 1.7000000000000002
	return math.Round(m*10) / 10
}

// Day truncates t to its calendar date in t's location, expressed as UTC
// midnight so that day differences are exact multiples of 24h.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / hoursPerCalDay)
}

// NextStreak applies one activity on today to rec and reports whether the
// record changed. Same-day activity leaves the record untouched.
func NextStreak(rec domain.StreakRecord, today time.Time) (domain.StreakRecord, bool) {
	today = Day(today)

	if !rec.LastActivityDate.IsZero() {
		switch DaysBetween(rec.LastActivityDate, today) {
		case 0:
			return rec, false
		case 1:
			rec.CurrentStreak++
			rec.Multiplier = StreakMultiplier(rec.CurrentStreak)
			rec.LongestStreak = max(rec.LongestStreak, rec.CurrentStreak)
			rec.LastActivityDate = today
			return rec, true
		}
	}

	// first activity, a gap of two or more days, or a clock that went backwards
	rec.CurrentStreak = 1
	rec.Multiplier = baseMultiplier
	rec.LongestStreak = max(rec.LongestStreak, 1)
	rec.LastActivityDate = today
	return rec, true
}

// StreakTracker owns the per-user streak records.
type StreakTracker struct {
	store domain.StreakStore
	clock domain.Clock
	locks *syncx.KeyedMutex[domain.UserID]
}

func NewStreakTracker(store domain.StreakStore, clock domain.Clock) *StreakTracker {
	if clock == nil {
		clock = domain.SystemClock
	}
	return &StreakTracker{
		store: store,
		clock: clock,
		locks: syncx.NewKeyedMutex[domain.UserID](),
	}
}

// RecordActivity registers that the user was active today.
func (t *StreakTracker) RecordActivity(ctx context.Context, userID domain.UserID) (*domain.StreakRecord, error) {
	unlock := t.locks.Lock(userID)
	defer unlock()

	rec, err := t.get(ctx, userID)
	if err != nil {
		return nil, err
	}

	next, changed := NextStreak(*rec, t.clock.Now())
	if !changed {
		return rec, nil
	}

	if err := t.store.SaveStreak(ctx, &next); err != nil {
		return nil, fault.Wrap(err, fctx.With(ctx), fmsg.With("failed to save streak"))
	}

	observability.LoggerFromContext(ctx).Info("streak updated",
		"user_id", userID,
		"current_streak", next.CurrentStreak,
		"longest_streak", next.LongestStreak,
		"multiplier", next.Multiplier)

	return &next, nil
}

// Streak returns the stored record without modifying it.
func (t *StreakTracker) Streak(ctx context.Context, userID domain.UserID) (*domain.StreakRecord, error) {
	return t.get(ctx, userID)
}

func (t *StreakTracker) get(ctx context.Context, userID domain.UserID) (*domain.StreakRecord, error) {
	rec, err := t.store.GetStreak(ctx, userID)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return &domain.StreakRecord{UserID: userID, Multiplier: baseMultiplier}, nil
	}
	if err != nil {
		return nil, fault.Wrap(err, fctx.With(ctx), fmsg.With("failed to load streak"))
	}
	return rec, nil
}
