package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/alitto/pond/v2"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/PabloGalante/farum-engine/internal/app/classify"
	"github.com/PabloGalante/farum-engine/internal/domain"
	"github.com/PabloGalante/farum-engine/internal/observability"
)

// Persistence categories used when a session ends.
const (
	CategorySessions     = "sessions"
	CategorySessionNotes = "session_notes"
)

// Manager is the per-conversation state machine. A session is Active
// from CreateSession until EndSession, after which every mutator returns
// domain.ErrSessionEnded (or ErrSessionNotFound once evicted).
type Manager struct {
	store     *SessionStore
	analyzer  *classify.Analyzer
	persister domain.Persister
	pool      pond.Pool
	events    domain.EventPublisher
	clock     domain.Clock
}

type ManagerDeps struct {
	Store     *SessionStore
	Analyzer  *classify.Analyzer
	Persister domain.Persister
	Pool      pond.Pool // runs end-of-session writes
	Events    domain.EventPublisher
	Clock     domain.Clock
}

func NewManager(deps ManagerDeps) *Manager {
	m := &Manager{
		store:     deps.Store,
		analyzer:  deps.Analyzer,
		persister: deps.Persister,
		pool:      deps.Pool,
		events:    deps.Events,
		clock:     deps.Clock,
	}
	if m.store == nil {
		m.store = NewSessionStore()
	}
	if m.analyzer == nil {
		m.analyzer = classify.NewAnalyzer(nil, "")
	}
	if m.pool == nil {
		m.pool = pond.NewPool(1)
	}
	if m.events == nil {
		m.events = domain.NopPublisher{}
	}
	if m.clock == nil {
		m.clock = domain.SystemClock
	}
	return m
}

// Store exposes the live session store.
func (m *Manager) Store() *SessionStore {
	return m.store
}

// CreateSession starts a fresh Active session for userID.
func (m *Manager) CreateSession(ctx context.Context, userID domain.UserID) (*domain.Session, error) {
	if userID == "" {
		return nil, fault.Wrap(fmt.Errorf("user id is required"),
			fctx.With(ctx), ftag.With(ftag.InvalidArgument))
	}

	now := m.clock.Now()
	sess := &domain.Session{
		ID:             domain.SessionID(uuid.NewString()),
		UserID:         userID,
		Messages:       []domain.Message{},
		EmotionSamples: []domain.EmotionSample{},
		Topics:         []string{},
		TechniquesUsed: []domain.Technique{},
		StartTime:      now,
		UpdatedAt:      now,
	}

	m.store.put(&liveSession{session: sess, lastActive: now})

	observability.LoggerFromContext(ctx).Info("session created",
		"session_id", sess.ID, "user_id", userID)

	return sess.Clone(), nil
}

// UserTurn is the result of ingesting one user utterance.
type UserTurn struct {
	Message domain.Message
	Emotion domain.EmotionAnalysis
	Crisis  domain.CrisisAssessment
	Topics  []string

	// CrisisTransition is true only for the message that first flagged the session.
	CrisisTransition bool
}

// AppendUserMessage classifies text and appends it to the session.
func (m *Manager) AppendUserMessage(ctx context.Context, id domain.SessionID, text string) (*UserTurn, error) {
	ls, unlock, err := m.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	res := m.analyzer.Classify(ctx, text)
	now := m.clock.Now()
	sess := ls.session

	msg := domain.Message{
		ID:        domain.MessageID(uuid.NewString()),
		Role:      domain.RoleUser,
		Content:   text,
		Timestamp: now,
		Emotion: &domain.MessageEmotion{
			Type:      res.Emotion.Primary.Type,
			Intensity: res.Emotion.Primary.Intensity,
		},
	}
	sess.Messages = append(sess.Messages, msg)
	sess.EmotionSamples = append(sess.EmotionSamples, domain.EmotionSample{
		Timestamp: now,
		Score:     res.Emotion.Overall.Score,
		Magnitude: res.Emotion.Overall.Magnitude,
		Primary:   res.Emotion.Primary.Type,
		Intensity: res.Emotion.Primary.Intensity,
	})

	transition := res.Crisis.IsCrisis && !sess.CrisisDetected
	sess.CrisisDetected = sess.CrisisDetected || res.Crisis.IsCrisis

	var added []string
	for _, topic := range res.Topics {
		if !lo.Contains(sess.Topics, topic) {
			sess.Topics = append(sess.Topics, topic)
			added = append(added, topic)
		}
	}

	sess.UpdatedAt = now
	ls.lastActive = now

	log := observability.LoggerFromContext(ctx).With("session_id", sess.ID, "user_id", sess.UserID)
	log.Info("user message appended",
		"emotion", res.Emotion.Primary.Type,
		"severity", res.Crisis.Severity,
		"degraded", res.Emotion.Degraded)

	if transition {
		log.Warn("crisis detected", "severity", res.Crisis.Severity, "indicators", res.Crisis.Indicators)
		evt := domain.Event{
			Topic:  domain.TopicCrisisDetected,
			UserID: sess.UserID,
			Payload: map[string]any{
				"session_id": sess.ID,
				"user_id":    sess.UserID,
				"assessment": res.Crisis,
			},
		}
		if err := m.events.Publish(ctx, evt); err != nil {
			log.Warn("failed to publish crisis event", "error", err)
		}
	}

	return &UserTurn{
		Message:          msg,
		Emotion:          res.Emotion,
		Crisis:           res.Crisis,
		Topics:           added,
		CrisisTransition: transition,
	}, nil
}

// AssistantTurn is the result of appending a generated reply.
type AssistantTurn struct {
	Message   domain.Message
	Technique domain.Technique
}

// AppendAssistantMessage appends a generated reply and tags its technique.
func (m *Manager) AppendAssistantMessage(ctx context.Context, id domain.SessionID, text string) (*AssistantTurn, error) {
	ls, unlock, err := m.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := m.clock.Now()
	sess := ls.session
	technique := classify.DetectTechnique(text)

	msg := domain.Message{
		ID:        domain.MessageID(uuid.NewString()),
		Role:      domain.RoleAssistant,
		Content:   text,
		Timestamp: now,
	}
	sess.Messages = append(sess.Messages, msg)
	if !lo.Contains(sess.TechniquesUsed, technique) {
		sess.TechniquesUsed = append(sess.TechniquesUsed, technique)
	}
	sess.UpdatedAt = now
	ls.lastActive = now

	observability.LoggerFromContext(ctx).Info("assistant message appended",
		"session_id", sess.ID, "technique", technique)

	return &AssistantTurn{Message: msg, Technique: technique}, nil
}

// Session returns a snapshot of an Active session.
func (m *Manager) Session(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	ls, unlock, err := m.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return ls.session.Clone(), nil
}

// ComputeSessionNote aggregates the session without modifying it.
func (m *Manager) ComputeSessionNote(ctx context.Context, id domain.SessionID) (*domain.SessionNote, error) {
	ls, unlock, err := m.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	note := BuildNote(ls.session, m.clock.Now())
	return &note, nil
}

// BuildNote summarises a session as of now.
func BuildNote(sess *domain.Session, now time.Time) domain.SessionNote {
	note := domain.SessionNote{
		SessionID:       sess.ID,
		UserID:          sess.UserID,
		AverageScore:    lo.MeanBy(sess.EmotionSamples, func(s domain.EmotionSample) float64 { return s.Score }),
		TechniquesUsed:  append([]domain.Technique{}, sess.TechniquesUsed...),
		Topics:          append([]string{}, sess.Topics...),
		CrisisDetected:  sess.CrisisDetected,
		DurationMinutes: int(now.Sub(sess.StartTime).Minutes()),
		MessageCount:    len(sess.Messages),
		UserMessages:    lo.CountBy(sess.Messages, func(m domain.Message) bool { return m.Role == domain.RoleUser }),
		CreatedAt:       now,
	}
	if n := len(sess.EmotionSamples); n > 0 {
		note.LastEmotion = sess.EmotionSamples[n-1].Primary
	}
	return note
}

// EndResult reports the outcome of an EndSession call. The session is
// already ended when it is returned; Wait blocks until persistence finishes.
type EndResult struct {
	Session *domain.Session
	Note    domain.SessionNote
	task    pond.Task
}

// Wait blocks until the session has been persisted and returns the write error, if any.
func (r *EndResult) Wait() error {
	return r.task.Wait()
}

// Done is closed once persistence has finished.
func (r *EndResult) Done() <-chan struct{} {
	return r.task.Done()
}

// EndSession evicts the session and hands it to the persistence
// collaborator in the background. A failed write is logged and returned
// from Wait; it is not retried and does not resurrect the session.
func (m *Manager) EndSession(ctx context.Context, id domain.SessionID) (*EndResult, error) {
	ls, unlock, err := m.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	ls.ended = true
	m.store.remove(id)
	snapshot := ls.session.Clone()
	unlock()

	note := BuildNote(snapshot, m.clock.Now())

	log := observability.LoggerFromContext(ctx).With("session_id", snapshot.ID, "user_id", snapshot.UserID)
	log.Info("session ended",
		"messages", note.MessageCount,
		"crisis_detected", note.CrisisDetected,
		"duration_minutes", note.DurationMinutes)

	// the write must outlive the request that ended the session
	persistCtx := context.WithoutCancel(ctx)
	task := m.pool.SubmitErr(func() error {
		err := m.persist(persistCtx, snapshot, note)
		if err != nil {
			log.Warn("failed to persist ended session", "error", err)
			return err
		}
		log.Info("session persisted")
		return nil
	})

	evt := domain.Event{
		Topic:   domain.TopicSessionEnded,
		UserID:  snapshot.UserID,
		Payload: note,
	}
	if err := m.events.Publish(ctx, evt); err != nil {
		log.Warn("failed to publish session ended", "error", err)
	}

	return &EndResult{Session: snapshot, Note: note, task: task}, nil
}

func (m *Manager) persist(ctx context.Context, sess *domain.Session, note domain.SessionNote) error {
	if m.persister == nil {
		return nil
	}

	sessJSON, err := json.Marshal(sess)
	if err != nil {
		return fault.Wrap(err, fctx.With(ctx), fmsg.With("encoding session"))
	}
	noteJSON, err := json.Marshal(note)
	if err != nil {
		return fault.Wrap(err, fctx.With(ctx), fmsg.With("encoding session note"))
	}

	filename := string(sess.ID) + ".json"

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return m.persister.Save(gctx, sess.UserID, CategorySessions, filename, sessJSON)
	})
	g.Go(func() error {
		return m.persister.Save(gctx, sess.UserID, CategorySessionNotes, filename, noteJSON)
	})
	if err := g.Wait(); err != nil {
		return fault.Wrap(err, fctx.With(ctx), fmsg.With("persisting session"))
	}
	return nil
}

// EndIdle ends every session idle for at least idleFor. Zero ends them all.
func (m *Manager) EndIdle(ctx context.Context, idleFor time.Duration) []*EndResult {
	cutoff := m.clock.Now().Add(-idleFor)

	var out []*EndResult
	for _, id := range m.store.idleSince(cutoff) {
		res, err := m.EndSession(ctx, id)
		if err != nil {
			// ended concurrently by its owner
			continue
		}
		out = append(out, res)
	}
	return out
}

// acquire locks an Active session. The returned unlock must be called.
func (m *Manager) acquire(ctx context.Context, id domain.SessionID) (*liveSession, func(), error) {
	ls, ok := m.store.get(id)
	if !ok {
		return nil, nil, fault.Wrap(domain.ErrSessionNotFound,
			fctx.With(ctx), ftag.With(ftag.NotFound), fmsg.With(fmt.Sprintf("session %s", id)))
	}

	ls.mu.Lock()
	if ls.ended {
		ls.mu.Unlock()
		return nil, nil, fault.Wrap(domain.ErrSessionEnded,
			fctx.With(ctx), ftag.With(ftag.InvalidArgument), fmsg.With(fmt.Sprintf("session %s", id)))
	}
	return ls, ls.mu.Unlock, nil
}
