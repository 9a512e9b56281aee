package progression

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"

	"github.com/PabloGalante/farum-engine/internal/domain"
	"github.com/PabloGalante/farum-engine/internal/observability"
)

// Service turns completed user activities into XP: it records the streak,
// applies the multiplier and writes to the ledger.
type Service struct {
	streaks *StreakTracker
	ledger  *Ledger
	catalog *Catalog
}

func NewService(streaks *StreakTracker, ledger *Ledger, catalog *Catalog) *Service {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Service{
		streaks: streaks,
		ledger:  ledger,
		catalog: catalog,
	}
}

type ActivityInput struct {
	UserID      domain.UserID
	ActionID    domain.ActionID // optional, generated when empty
	Type        domain.ActionType
	BaseXP      int // 0 means use the catalog value for Type
	BonusXP     int
	Description string
	Metadata    map[string]string
}

type ActivityResult struct {
	Streak     domain.StreakRecord `json:"streak"`
	Multiplier float64             `json:"multiplier"`
	AwardedXP  int                 `json:"awarded_xp"`
	Ledger     *LedgerResult       `json:"ledger"`
}

// MaxActivityXP caps the base and the bonus a caller may claim for one activity.
const MaxActivityXP = 1000

// FinalXP applies the streak multiplier: round((base + bonus) * multiplier).
// Negative inputs count as zero and the result saturates at MaxActionXP.
func FinalXP(baseXP, bonusXP int, multiplier float64) int {
	sum := float64(max(baseXP, 0)) + float64(max(bonusXP, 0))
	xp := math.Round(sum * max(multiplier, 0))
	if xp >= MaxActionXP {
		return MaxActionXP
	}
	return int(xp)
}

// CompleteActivity records a completed activity for a user.
func (s *Service) CompleteActivity(ctx context.Context, in ActivityInput) (*ActivityResult, error) {
	log := observability.LoggerFromContext(ctx).With(
		"user_id", in.UserID,
		"action_type", in.Type,
	)

	if in.UserID == "" || in.Type == "" {
		return nil, fault.Wrap(fmt.Errorf("user id and activity type are required"),
			fctx.With(ctx), ftag.With(ftag.InvalidArgument))
	}
	if in.Type == domain.ActionAchievementReward || in.Type == domain.ActionRedemption {
		return nil, fault.Wrap(fmt.Errorf("activity type %q is reserved", in.Type),
			fctx.With(ctx), ftag.With(ftag.InvalidArgument))
	}
	if in.BaseXP < 0 || in.BonusXP < 0 {
		return nil, fault.Wrap(fmt.Errorf("activity xp must not be negative"),
			fctx.With(ctx), ftag.With(ftag.InvalidArgument))
	}
	if in.BaseXP > MaxActivityXP || in.BonusXP > MaxActivityXP {
		return nil, fault.Wrap(fmt.Errorf("activity xp above %d", MaxActivityXP),
			fctx.With(ctx), ftag.With(ftag.InvalidArgument), fmsg.With("activity xp too large"))
	}

	base := in.BaseXP
	if base == 0 {
		xp, ok := s.catalog.BaseXP(in.Type)
		if !ok {
			return nil, fault.Wrap(fmt.Errorf("unknown activity type %q", in.Type),
				fctx.With(ctx), ftag.With(ftag.InvalidArgument))
		}
		base = xp
	}

	// A retried request must not touch the streak either.
	if in.ActionID != "" {
		seen, err := s.ledger.HasAction(ctx, in.UserID, in.ActionID)
		if err != nil {
			return nil, err
		}
		if seen {
			return nil, fault.Wrap(domain.ErrDuplicateAction,
				fctx.With(ctx), ftag.With(ftag.AlreadyExists))
		}
	}

	streak, err := s.streaks.RecordActivity(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	awarded := FinalXP(base, in.BonusXP, streak.Multiplier)

	description := in.Description
	if description == "" {
		description = string(in.Type)
	}

	res, err := s.ledger.AddXP(ctx, in.UserID, domain.XPAction{
		ID:          in.ActionID,
		Type:        in.Type,
		XP:          awarded,
		Description: description,
		Metadata:    in.Metadata,
	}, streak.CurrentStreak)
	if err != nil {
		return nil, err
	}

	log.Info("activity completed",
		"awarded_xp", awarded,
		"multiplier", streak.Multiplier,
		"streak", streak.CurrentStreak,
		"level_up", res.LevelUp)

	return &ActivityResult{
		Streak:     *streak,
		Multiplier: streak.Multiplier,
		AwardedXP:  awarded,
		Ledger:     res,
	}, nil
}

// Redeem spends XP on a reward. The ledger total never goes below zero.
func (s *Service) Redeem(ctx context.Context, userID domain.UserID, id domain.ActionID, cost int, description string) (*LedgerResult, error) {
	if cost <= 0 {
		return nil, fault.Wrap(fmt.Errorf("redemption cost must be positive"),
			fctx.With(ctx), ftag.With(ftag.InvalidArgument))
	}

	view, err := s.ledger.Progress(ctx, userID)
	if err != nil {
		return nil, err
	}
	if view.TotalXP < cost {
		return nil, fault.Wrap(fmt.Errorf("insufficient xp: have %d, need %d", view.TotalXP, cost),
			fctx.With(ctx), ftag.With(ftag.InvalidArgument), fmsg.With("insufficient xp"))
	}

	streak, err := s.streaks.Streak(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.ledger.AddXP(ctx, userID, domain.XPAction{
		ID:          id,
		Type:        domain.ActionRedemption,
		XP:          -cost,
		Description: description,
	}, streak.CurrentStreak)
}

// Progress returns the ledger view together with the streak record.
func (s *Service) Progress(ctx context.Context, userID domain.UserID) (*ProgressView, *domain.StreakRecord, error) {
	view, err := s.ledger.Progress(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	streak, err := s.streaks.Streak(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return view, streak, nil
}

// RewardSession credits a finished conversation as a chat_session activity.
// Only sessions where the user spoke earn XP. The action id is derived from
// the session id, so a replayed event is a no-op.
func (s *Service) RewardSession(ctx context.Context, note domain.SessionNote) (*ActivityResult, error) {
	if note.UserMessages == 0 {
		return nil, nil
	}

	res, err := s.CompleteActivity(ctx, ActivityInput{
		UserID:      note.UserID,
		ActionID:    domain.ActionID("session:" + string(note.SessionID)),
		Type:        domain.ActionChatSession,
		Description: "conversation session",
		Metadata:    map[string]string{"session_id": string(note.SessionID)},
	})
	if errors.Is(err, domain.ErrDuplicateAction) {
		return nil, nil
	}
	return res, err
}
