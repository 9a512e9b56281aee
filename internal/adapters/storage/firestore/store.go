package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/farum-engine/internal/domain"
)

type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore store for the given project (FARUM_GCP_PROJECT).
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fault.New("projectID is required for Firestore store", ftag.With(ftag.InvalidArgument))
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fault.Wrap(err, fctx.With(ctx), fmsg.With("creating firestore client"))
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) userDoc(id domain.UserID) *firestore.DocumentRef {
	return s.client.Collection("users").Doc(string(id))
}

func (s *Store) documentRef(userID domain.UserID, category, filename string) *firestore.DocumentRef {
	return s.userDoc(userID).Collection(category).Doc(filename)
}

func (s *Store) streakDoc(id domain.UserID) *firestore.DocumentRef {
	return s.client.Collection("streaks").Doc(string(id))
}

func (s *Store) journalCol(id domain.UserID) *firestore.CollectionRef {
	return s.userDoc(id).Collection("journal")
}

func (s *Store) progressDoc(id domain.UserID) *firestore.DocumentRef {
	return s.client.Collection("progress").Doc(string(id))
}

func (s *Store) actionsCol(id domain.UserID) *firestore.CollectionRef {
	return s.progressDoc(id).Collection("actions")
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type persistedDoc struct {
	Payload string    `firestore:"payload"`
	SavedAt time.Time `firestore:"saved_at"`
}

type streakDoc struct {
	CurrentStreak    int       `firestore:"current_streak"`
	LongestStreak    int       `firestore:"longest_streak"`
	LastActivityDate time.Time `firestore:"last_activity_date"`
	Multiplier       float64   `firestore:"multiplier"`
}

type journalDoc struct {
	CreatedAt time.Time `firestore:"created_at"`
	Text      string    `firestore:"text"`
	Mood      string    `firestore:"mood"`
	Intensity float64   `firestore:"intensity"`
	Score     float64   `firestore:"score"`
	Topics    []string  `firestore:"topics"`
	Crisis    bool      `firestore:"crisis"`
}

// progressDoc holds the ledger totals. Actions live in the "actions"
// subcollection, one document per entry, so the parent stays small.
type progressDoc struct {
	TotalXP     int                  `firestore:"total_xp"`
	ActionCount int                  `firestore:"action_count"`
	Unlocked    map[string]time.Time `firestore:"unlocked"`
	UpdatedAt   time.Time            `firestore:"updated_at"`
}

type actionDoc struct {
	ID          string            `firestore:"id"`
	Type        string            `firestore:"type"`
	XP          int               `firestore:"xp"`
	Description string            `firestore:"description"`
	Timestamp   time.Time         `firestore:"timestamp"`
	Metadata    map[string]string `firestore:"metadata,omitempty"`
}

// ─────────────────────────────────────────
// Persister implementation
// ─────────────────────────────────────────

func (s *Store) Save(ctx context.Context, userID domain.UserID, category, filename string, payload []byte) error {
	doc := persistedDoc{
		Payload: string(payload),
		SavedAt: time.Now().UTC(),
	}

	if _, err := s.documentRef(userID, category, filename).Set(ctx, doc); err != nil {
		return fault.Wrap(err, fctx.With(ctx), fmsg.With("firestore Save "+category+"/"+filename))
	}
	return nil
}

// ─────────────────────────────────────────
// StreakStore implementation
// ─────────────────────────────────────────

func (s *Store) GetStreak(ctx context.Context, userID domain.UserID) (*domain.StreakRecord, error) {
	snap, err := s.streakDoc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fault.Wrap(err, fctx.With(ctx), fmsg.With("firestore GetStreak"))
	}

	var doc streakDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fault.Wrap(err, fctx.With(ctx), fmsg.With("firestore GetStreak decode"))
	}

	return &domain.StreakRecord{
		UserID:           userID,
		CurrentStreak:    doc.CurrentStreak,
		LongestStreak:    doc.LongestStreak,
		LastActivityDate: doc.LastActivityDate.UTC(),
		Multiplier:       doc.Multiplier,
	}, nil
}

func (s *Store) SaveStreak(ctx context.Context, rec *domain.StreakRecord) error {
	doc := streakDoc{
		CurrentStreak:    rec.CurrentStreak,
		LongestStreak:    rec.LongestStreak,
		LastActivityDate: rec.LastActivityDate,
		Multiplier:       rec.Multiplier,
	}

	if _, err := s.streakDoc(rec.UserID).Set(ctx, doc); err != nil {
		return fault.Wrap(err, fctx.With(ctx), fmsg.With("firestore SaveStreak"))
	}
	return nil
}

// ─────────────────────────────────────────
// ProgressStore implementation
// ─────────────────────────────────────────

func (s *Store) GetProgress(ctx context.Context, userID domain.UserID) (*domain.UserProgress, error) {
	snap, err := s.progressDoc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fault.Wrap(err, fctx.With(ctx), fmsg.With("firestore GetProgress"))
	}

	var doc progressDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fault.Wrap(err, fctx.With(ctx), fmsg.With("firestore GetProgress decode"))
	}

	p := &domain.UserProgress{
		UserID:   userID,
		TotalXP:  doc.TotalXP,
		Actions:  make([]domain.XPAction, 0, doc.ActionCount),
		Unlocked: make(map[domain.AchievementID]domain.Timestamp, len(doc.Unlocked)),
	}
	for id, at := range doc.Unlocked {
		p.Unlocked[domain.AchievementID(id)] = at
	}

	iter := s.actionsCol(userID).OrderBy(firestore.DocumentID, firestore.Asc).Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fault.Wrap(err, fctx.With(ctx), fmsg.With("firestore GetProgress actions"))
		}

		var a actionDoc
		if err := snap.DataTo(&a); err != nil {
			return nil, fault.Wrap(err, fctx.With(ctx), fmsg.With("decode actionDoc"))
		}
		p.Actions = append(p.Actions, domain.XPAction{
			ID:          domain.ActionID(a.ID),
			Type:        domain.ActionType(a.Type),
			XP:          a.XP,
			Description: a.Description,
			Timestamp:   a.Timestamp,
			Metadata:    a.Metadata,
		})
	}
	return p, nil
}

// SaveProgress appends the actions not yet stored and rewrites the totals in
// one transaction. The ledger is append-only, so the stored action count is
// the index of the first new action.
func (s *Store) SaveProgress(ctx context.Context, p *domain.UserProgress) error {
	ref := s.progressDoc(p.UserID)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		stored := 0
		snap, err := tx.Get(ref)
		switch {
		case status.Code(err) == codes.NotFound:
		case err != nil:
			return err
		default:
			var doc progressDoc
			if err := snap.DataTo(&doc); err != nil {
				return err
			}
			stored = doc.ActionCount
		}
		if stored > len(p.Actions) {
			return fault.Newf("ledger for %s has %d stored actions, got %d", p.UserID, stored, len(p.Actions))
		}

		for i := stored; i < len(p.Actions); i++ {
			a := p.Actions[i]
			err := tx.Create(s.actionsCol(p.UserID).Doc(actionDocID(i)), actionDoc{
				ID:          string(a.ID),
				Type:        string(a.Type),
				XP:          a.XP,
				Description: a.Description,
				Timestamp:   a.Timestamp,
				Metadata:    a.Metadata,
			})
			if err != nil {
				return err
			}
		}

		unlocked := make(map[string]time.Time, len(p.Unlocked))
		for id, at := range p.Unlocked {
			unlocked[string(id)] = at
		}
		return tx.Set(ref, progressDoc{
			TotalXP:     p.TotalXP,
			ActionCount: len(p.Actions),
			Unlocked:    unlocked,
			UpdatedAt:   time.Now().UTC(),
		})
	})
	if err != nil {
		return fault.Wrap(err, fctx.With(ctx), fmsg.With("firestore SaveProgress"))
	}
	return nil
}

// actionDocID orders action documents by their position in the ledger.
// Action ids are caller supplied and may not be valid document ids.
func actionDocID(i int) string {
	return fmt.Sprintf("%010d", i)
}

// ─────────────────────────────────────────
// JournalStore implementation
// ─────────────────────────────────────────

func (s *Store) AppendJournalEntry(ctx context.Context, entry *domain.JournalEntry) error {
	doc := journalDoc{
		CreatedAt: entry.CreatedAt,
		Text:      entry.Text,
		Mood:      string(entry.Mood),
		Intensity: entry.Intensity,
		Score:     entry.Score,
		Topics:    entry.Topics,
		Crisis:    entry.Crisis,
	}

	if _, err := s.journalCol(entry.UserID).Doc(string(entry.ID)).Create(ctx, doc); err != nil {
		return fault.Wrap(err, fctx.With(ctx), fmsg.With("firestore AppendJournalEntry"))
	}
	return nil
}

// ListJournalEntriesByUser returns the last `limit` entries, oldest first.
func (s *Store) ListJournalEntriesByUser(ctx context.Context, userID domain.UserID, limit int) ([]*domain.JournalEntry, error) {
	q := s.journalCol(userID).OrderBy("created_at", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fault.Wrap(err, fctx.With(ctx), fmsg.With("firestore ListJournalEntriesByUser"))
	}

	out := make([]*domain.JournalEntry, 0, len(snaps))
	for i := len(snaps) - 1; i >= 0; i-- {
		var doc journalDoc
		if err := snaps[i].DataTo(&doc); err != nil {
			return nil, fault.Wrap(err, fctx.With(ctx), fmsg.With("decode journalDoc"))
		}
		out = append(out, &domain.JournalEntry{
			ID:        domain.JournalEntryID(snaps[i].Ref.ID),
			UserID:    userID,
			CreatedAt: doc.CreatedAt,
			Text:      doc.Text,
			Mood:      domain.EmotionType(doc.Mood),
			Intensity: doc.Intensity,
			Score:     doc.Score,
			Topics:    doc.Topics,
			Crisis:    doc.Crisis,
		})
	}
	return out, nil
}
