package progression

import (
	"context"
	"errors"
	"fmt"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/PabloGalante/farum-engine/internal/domain"
	"github.com/PabloGalante/farum-engine/internal/observability"
	"github.com/PabloGalante/farum-engine/internal/syncx"
)

const recentActionsLimit = 10

// Ledger is the append-only XP log for every user. Updates for the same
// user are serialised so a streak or an achievement can't fire twice when
// two devices report at the same time.
type Ledger struct {
	store   domain.ProgressStore
	catalog *Catalog
	events  domain.EventPublisher
	clock   domain.Clock
	locks   *syncx.KeyedMutex[domain.UserID]
}

func NewLedger(store domain.ProgressStore, catalog *Catalog, events domain.EventPublisher, clock domain.Clock) *Ledger {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if events == nil {
		events = domain.NopPublisher{}
	}
	if clock == nil {
		clock = domain.SystemClock
	}
	return &Ledger{
		store:   store,
		catalog: catalog,
		events:  events,
		clock:   clock,
		locks:   syncx.NewKeyedMutex[domain.UserID](),
	}
}

// LedgerResult summarises one AddXP call, including any achievement
// rewards credited as a consequence.
type LedgerResult struct {
	Action        domain.XPAction      `json:"action"`
	Rewards       []domain.XPAction    `json:"rewards,omitempty"`
	PreviousXP    int                  `json:"previous_xp"`
	NewXP         int                  `json:"new_xp"`
	PreviousLevel int                  `json:"previous_level"`
	NewLevel      int                  `json:"new_level"`
	LevelUp       bool                 `json:"level_up"`
	Unlocked      []domain.Achievement `json:"unlocked_achievements"`
	Clamped       bool                 `json:"clamped,omitempty"`
	Progress      domain.LevelProgress `json:"progress"`
}

// AddXP records action for userID. streak is the user's current streak and
// feeds streak-based achievement rules.
func (l *Ledger) AddXP(ctx context.Context, userID domain.UserID, action domain.XPAction, streak int) (*LedgerResult, error) {
	ctx = fctx.WithMeta(ctx, "user_id", string(userID))
	log := observability.LoggerFromContext(ctx).With("user_id", userID)

	unlock := l.locks.Lock(userID)
	defer unlock()

	p, err := l.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := l.clock.Now()
	if action.ID == "" {
		action.ID = domain.ActionID(uuid.NewString())
	}
	if action.Timestamp.IsZero() {
		action.Timestamp = now
	}
	if action.XP < 0 && action.Type != domain.ActionRedemption {
		return nil, fault.Wrap(fmt.Errorf("negative xp %d for %s", action.XP, action.Type),
			fctx.With(ctx),
			ftag.With(ftag.InvalidArgument),
			fmsg.With("only redemptions may debit xp"))
	}
	if action.XP > MaxActionXP || action.XP < -MaxActionXP {
		return nil, fault.Wrap(fmt.Errorf("xp %d outside ±%d", action.XP, MaxActionXP),
			fctx.With(ctx),
			ftag.With(ftag.InvalidArgument),
			fmsg.With("xp action too large"))
	}
	if p.HasAction(action.ID) {
		return nil, fault.Wrap(domain.ErrDuplicateAction,
			fctx.With(ctx),
			ftag.With(ftag.AlreadyExists),
			fmsg.With(fmt.Sprintf("action %s", action.ID)))
	}

	startXP := p.TotalXP
	startLevel := CalculateLevel(startXP)

	res := AddXP(p.TotalXP, action, l.catalog, p.Unlocked, streak)
	if res.Clamped {
		log.Warn("xp debit would go below zero, clamped",
			"action_id", action.ID, "current_xp", p.TotalXP, "delta", action.XP)
	}
	p.Actions = append(p.Actions, action)
	p.TotalXP = res.NewXP

	out := &LedgerResult{
		Action:        action,
		PreviousXP:    startXP,
		PreviousLevel: startLevel,
		Clamped:       res.Clamped,
	}

	// Credit rewards until no new achievement fires. Each achievement can
	// unlock at most once, so this terminates.
	pending := res.Unlocked
	for len(pending) > 0 {
		ach := pending[0]
		pending = pending[1:]

		if _, dup := p.Unlocked[ach.ID]; dup {
			log.Warn("achievement fired twice, discarding", "achievement_id", ach.ID)
			continue
		}
		p.Unlocked[ach.ID] = now
		unlockedAt := now
		ach.UnlockedAt = &unlockedAt
		out.Unlocked = append(out.Unlocked, ach)

		if ach.XPReward <= 0 {
			continue
		}
		reward := domain.XPAction{
			ID:          domain.ActionID("achievement:" + string(ach.ID)),
			Type:        domain.ActionAchievementReward,
			XP:          ach.XPReward,
			Description: "Achievement unlocked: " + ach.Title,
			Timestamp:   now,
			Metadata:    map[string]string{"achievement_id": string(ach.ID)},
		}
		r := AddXP(p.TotalXP, reward, l.catalog, p.Unlocked, streak)
		p.Actions = append(p.Actions, reward)
		p.TotalXP = r.NewXP
		out.Rewards = append(out.Rewards, reward)

		for _, next := range r.Unlocked {
			if !lo.ContainsBy(pending, func(a domain.Achievement) bool { return a.ID == next.ID }) {
				pending = append(pending, next)
			}
		}
	}

	out.NewXP = p.TotalXP
	out.NewLevel = CalculateLevel(p.TotalXP)
	out.LevelUp = out.NewLevel > startLevel
	out.Progress = GetLevelProgress(p.TotalXP)

	if err := l.store.SaveProgress(ctx, p); err != nil {
		return nil, fault.Wrap(err, fctx.With(ctx), fmsg.With("failed to save progress"))
	}

	log.Info("xp recorded",
		"action_id", action.ID,
		"action_type", action.Type,
		"xp", action.XP,
		"total_xp", out.NewXP,
		"level", out.NewLevel,
		"unlocked", len(out.Unlocked))

	l.publish(ctx, userID, out)

	return out, nil
}

// HasAction reports whether the user's ledger already contains id.
func (l *Ledger) HasAction(ctx context.Context, userID domain.UserID, id domain.ActionID) (bool, error) {
	p, err := l.load(ctx, userID)
	if err != nil {
		return false, err
	}
	return p.HasAction(id), nil
}

// ProgressView is the read model of a user's progression.
type ProgressView struct {
	UserID        domain.UserID        `json:"user_id"`
	TotalXP       int                  `json:"total_xp"`
	Level         domain.LevelProgress `json:"level"`
	Achievements  []domain.Achievement `json:"achievements"`
	RecentActions []domain.XPAction    `json:"recent_actions"`
}

// Progress returns the user's level, the full catalog with per-user unlock
// times and the most recent ledger entries.
func (l *Ledger) Progress(ctx context.Context, userID domain.UserID) (*ProgressView, error) {
	p, err := l.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	achievements := lo.Map(l.catalog.Achievements, func(def AchievementDef, _ int) domain.Achievement {
		a := def.achievement()
		if at, ok := p.Unlocked[def.ID]; ok {
			a.UnlockedAt = &at
		}
		return a
	})

	recent := p.Actions
	if len(recent) > recentActionsLimit {
		recent = recent[len(recent)-recentActionsLimit:]
	}

	return &ProgressView{
		UserID:        userID,
		TotalXP:       p.TotalXP,
		Level:         GetLevelProgress(p.TotalXP),
		Achievements:  achievements,
		RecentActions: append([]domain.XPAction(nil), recent...),
	}, nil
}

func (l *Ledger) load(ctx context.Context, userID domain.UserID) (*domain.UserProgress, error) {
	p, err := l.store.GetProgress(ctx, userID)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return domain.NewUserProgress(userID), nil
	}
	if err != nil {
		return nil, fault.Wrap(err, fctx.With(ctx), fmsg.With("failed to load progress"))
	}
	if p.Unlocked == nil {
		p.Unlocked = make(map[domain.AchievementID]domain.Timestamp)
	}
	return p, nil
}

func (l *Ledger) publish(ctx context.Context, userID domain.UserID, res *LedgerResult) {
	log := observability.LoggerFromContext(ctx)

	if res.LevelUp {
		evt := domain.Event{
			Topic:  domain.TopicLevelUp,
			UserID: userID,
			Payload: map[string]any{
				"user_id":        userID,
				"previous_level": res.PreviousLevel,
				"new_level":      res.NewLevel,
				"total_xp":       res.NewXP,
			},
		}
		if err := l.events.Publish(ctx, evt); err != nil {
			log.Warn("failed to publish level up", "error", err)
		}
	}

	for _, a := range res.Unlocked {
		evt := domain.Event{
			Topic:   domain.TopicAchievementUnlocked,
			UserID:  userID,
			Payload: a,
		}
		if err := l.events.Publish(ctx, evt); err != nil {
			log.Warn("failed to publish achievement", "error", err, "achievement_id", a.ID)
		}
	}
}
