package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	_ "modernc.org/sqlite"

	"github.com/PabloGalante/farum-engine/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	user_id  TEXT NOT NULL,
	category TEXT NOT NULL,
	filename TEXT NOT NULL,
	payload  BLOB NOT NULL,
	saved_at TEXT NOT NULL,
	PRIMARY KEY (user_id, category, filename)
);

CREATE TABLE IF NOT EXISTS streaks (
	user_id        TEXT PRIMARY KEY,
	current_streak INTEGER NOT NULL,
	longest_streak INTEGER NOT NULL,
	last_activity  TEXT NOT NULL,
	multiplier     REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS journal_entries (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	created_at TEXT NOT NULL,
	doc        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_journal_user ON journal_entries(user_id, created_at);

CREATE TABLE IF NOT EXISTS progress (
	user_id    TEXT PRIMARY KEY,
	total_xp   INTEGER NOT NULL,
	doc        TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

// Store implements domain.Persister, domain.StreakStore,
// domain.ProgressStore and domain.JournalStore on a single SQLite file.
type Store struct {
	db *sql.DB
}

func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fault.Wrap(err, fmsg.With("creating database directory"))
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fault.Wrap(err, fmsg.With("opening database"))
	}
	// one writer at a time
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fault.Wrap(err, fmsg.With("creating schema"))
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ─────────────────────────────────────────
// Persister
// ─────────────────────────────────────────

func (s *Store) Save(ctx context.Context, userID domain.UserID, category, filename string, payload []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents (user_id, category, filename, payload, saved_at) VALUES (?, ?, ?, ?, ?)`,
		string(userID), category, filename, payload, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fault.Wrap(err, fctx.With(ctx), fmsg.With("sqlite save "+category+"/"+filename))
	}
	return nil
}

// Load returns a document written by Save.
func (s *Store) Load(ctx context.Context, userID domain.UserID, category, filename string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM documents WHERE user_id = ? AND category = ? AND filename = ?`,
		string(userID), category, filename).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fault.Wrap(domain.ErrRecordNotFound, fctx.With(ctx), ftag.With(ftag.NotFound))
	}
	if err != nil {
		return nil, fault.Wrap(err, fctx.With(ctx), fmsg.With("sqlite load"))
	}
	return payload, nil
}

// ─────────────────────────────────────────
// StreakStore
// ─────────────────────────────────────────

func (s *Store) GetStreak(ctx context.Context, userID domain.UserID) (*domain.StreakRecord, error) {
	var (
		rec  = domain.StreakRecord{UserID: userID}
		last string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT current_streak, longest_streak, last_activity, multiplier FROM streaks WHERE user_id = ?`,
		string(userID)).Scan(&rec.CurrentStreak, &rec.LongestStreak, &last, &rec.Multiplier)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, fault.Wrap(err, fctx.With(ctx), fmsg.With("sqlite get streak"))
	}

	rec.LastActivityDate, err = time.Parse(time.RFC3339Nano, last)
	if err != nil {
		return nil, fault.Wrap(err, fctx.With(ctx), fmsg.With("decoding last activity date"))
	}
	return &rec, nil
}

func (s *Store) SaveStreak(ctx context.Context, rec *domain.StreakRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO streaks (user_id, current_streak, longest_streak, last_activity, multiplier)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			current_streak = excluded.current_streak,
			longest_streak = excluded.longest_streak,
			last_activity  = excluded.last_activity,
			multiplier     = excluded.multiplier`,
		string(rec.UserID), rec.CurrentStreak, rec.LongestStreak,
		rec.LastActivityDate.Format(time.RFC3339Nano), rec.Multiplier)
	if err != nil {
		return fault.Wrap(err, fctx.With(ctx), fmsg.With("sqlite save streak"))
	}
	return nil
}

// ─────────────────────────────────────────
// ProgressStore
// ─────────────────────────────────────────

func (s *Store) GetProgress(ctx context.Context, userID domain.UserID) (*domain.UserProgress, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM progress WHERE user_id = ?`, string(userID)).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, fault.Wrap(err, fctx.With(ctx), fmsg.With("sqlite get progress"))
	}

	var p domain.UserProgress
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return nil, fault.Wrap(err, fctx.With(ctx), fmsg.With("decoding progress"))
	}
	if p.Unlocked == nil {
		p.Unlocked = make(map[domain.AchievementID]domain.Timestamp)
	}
	return &p, nil
}

func (s *Store) SaveProgress(ctx context.Context, p *domain.UserProgress) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fault.Wrap(err, fctx.With(ctx), fmsg.With("encoding progress"))
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO progress (user_id, total_xp, doc, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			total_xp   = excluded.total_xp,
			doc        = excluded.doc,
			updated_at = excluded.updated_at`,
		string(p.UserID), p.TotalXP, string(doc), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fault.Wrap(err, fctx.With(ctx), fmsg.With("sqlite save progress"))
	}
	return nil
}

// ─────────────────────────────────────────
// JournalStore
// ─────────────────────────────────────────

func (s *Store) AppendJournalEntry(ctx context.Context, entry *domain.JournalEntry) error {
	doc, err := json.Marshal(entry)
	if err != nil {
		return fault.Wrap(err, fctx.With(ctx), fmsg.With("encoding journal entry"))
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO journal_entries (id, user_id, created_at, doc) VALUES (?, ?, ?, ?)`,
		string(entry.ID), string(entry.UserID), entry.CreatedAt.UTC().Format(time.RFC3339Nano), string(doc))
	if err != nil {
		return fault.Wrap(err, fctx.With(ctx), fmsg.With("sqlite append journal entry"))
	}
	return nil
}

// ListJournalEntriesByUser returns the last `limit` entries, oldest first.
func (s *Store) ListJournalEntriesByUser(ctx context.Context, userID domain.UserID, limit int) ([]*domain.JournalEntry, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM journal_entries WHERE user_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		string(userID), limit)
	if err != nil {
		return nil, fault.Wrap(err, fctx.With(ctx), fmsg.With("sqlite list journal entries"))
	}
	defer rows.Close()

	out := []*domain.JournalEntry{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fault.Wrap(err, fctx.With(ctx))
		}
		var e domain.JournalEntry
		if err := json.Unmarshal([]byte(doc), &e); err != nil {
			return nil, fault.Wrap(err, fctx.With(ctx), fmsg.With("decoding journal entry"))
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Wrap(err, fctx.With(ctx))
	}

	slices.Reverse(out)
	return out, nil
}
