package journal

import (
	"context"
	"fmt"
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/ftag"
	"github.com/google/uuid"

	"github.com/PabloGalante/farum-engine/internal/app/classify"
	"github.com/PabloGalante/farum-engine/internal/app/progression"
	"github.com/PabloGalante/farum-engine/internal/domain"
	"github.com/PabloGalante/farum-engine/internal/observability"
)

const defaultLimit = 20

// Service writes and reads journal entries. Each entry is classified and
// credited as a journal_entry activity.
type Service struct {
	store    domain.JournalStore
	analyzer *classify.Analyzer
	progress *progression.Service
	events   domain.EventPublisher
	clock    domain.Clock
}

func NewService(
	store domain.JournalStore,
	analyzer *classify.Analyzer,
	progress *progression.Service,
	events domain.EventPublisher,
	clock domain.Clock,
) *Service {
	if analyzer == nil {
		analyzer = classify.NewAnalyzer(nil, "")
	}
	if events == nil {
		events = domain.NopPublisher{}
	}
	if clock == nil {
		clock = domain.SystemClock
	}
	return &Service{
		store:    store,
		analyzer: analyzer,
		progress: progress,
		events:   events,
		clock:    clock,
	}
}

type WriteEntryOutput struct {
	Entry    *domain.JournalEntry        `json:"entry"`
	Crisis   domain.CrisisAssessment     `json:"crisis"`
	Activity *progression.ActivityResult `json:"activity,omitempty"`
}

// WriteEntry stores a new entry for userID.
func (s *Service) WriteEntry(ctx context.Context, userID domain.UserID, text string) (*WriteEntryOutput, error) {
	if userID == "" || strings.TrimSpace(text) == "" {
		return nil, fault.Wrap(fmt.Errorf("user id and text are required"),
			fctx.With(ctx), ftag.With(ftag.InvalidArgument))
	}

	log := observability.LoggerFromContext(ctx).With("user_id", userID)

	res := s.analyzer.Classify(ctx, text)
	entry := &domain.JournalEntry{
		ID:        domain.JournalEntryID(uuid.NewString()),
		UserID:    userID,
		CreatedAt: s.clock.Now(),
		Text:      text,
		Mood:      res.Emotion.Primary.Type,
		Intensity: res.Emotion.Primary.Intensity,
		Score:     res.Emotion.Overall.Score,
		Topics:    res.Topics,
		Crisis:    res.Crisis.IsCrisis,
	}
	if entry.Topics == nil {
		entry.Topics = []string{}
	}

	if err := s.store.AppendJournalEntry(ctx, entry); err != nil {
		log.Warn("failed to append journal entry", "error", err)
		return nil, err
	}

	if res.Crisis.IsCrisis {
		log.Warn("crisis detected in journal entry", "severity", res.Crisis.Severity)
		evt := domain.Event{
			Topic:  domain.TopicCrisisDetected,
			UserID: userID,
			Payload: map[string]any{
				"journal_entry_id": entry.ID,
				"user_id":          userID,
				"assessment":       res.Crisis,
			},
		}
		if err := s.events.Publish(ctx, evt); err != nil {
			log.Warn("failed to publish crisis event", "error", err)
		}
	}

	out := &WriteEntryOutput{Entry: entry, Crisis: res.Crisis}

	if s.progress != nil {
		activity, err := s.progress.CompleteActivity(ctx, progression.ActivityInput{
			UserID:      userID,
			ActionID:    domain.ActionID("journal:" + string(entry.ID)),
			Type:        domain.ActionJournalEntry,
			Description: "journal entry",
		})
		if err != nil {
			// the entry is already stored
			log.Warn("failed to credit journal entry", "error", err)
		} else {
			out.Activity = activity
		}
	}

	log.Info("journal entry written", "entry_id", entry.ID, "mood", entry.Mood)
	return out, nil
}

// GetUserJournal returns the last `limit` journal entries for a user.
// If limit <= 0, a reasonable default value is used.
func (s *Service) GetUserJournal(ctx context.Context, userID domain.UserID, limit int) ([]*domain.JournalEntry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	return s.store.ListJournalEntriesByUser(ctx, userID, limit)
}
