package conversation_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Southclaws/fault/ftag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/farum-engine/internal/app/conversation"
	"github.com/PabloGalante/farum-engine/internal/domain"
)

func TestCreateSessionRequiresUser(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.manager.CreateSession(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, ftag.InvalidArgument, ftag.Get(err))
}

func TestAppendUserMessageTracksEmotionAndTopics(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	sess, err := f.manager.CreateSession(ctx, "u1")
	require.NoError(t, err)

	turn, err := f.manager.AppendUserMessage(ctx, sess.ID, "I am so worried about work")
	require.NoError(t, err)

	assert.Equal(t, domain.RoleUser, turn.Message.Role)
	assert.Equal(t, domain.EmotionAnxiety, turn.Emotion.Primary.Type)
	assert.False(t, turn.Crisis.IsCrisis)
	assert.Equal(t, []string{"worried", "work"}, turn.Topics)

	// topics already present are not reported again
	turn, err = f.manager.AppendUserMessage(ctx, sess.ID, "work again")
	require.NoError(t, err)
	assert.Empty(t, turn.Topics)

	got, err := f.manager.Session(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 2)
	assert.Len(t, got.EmotionSamples, 2)
	assert.Equal(t, []string{"worried", "work"}, got.Topics)
	require.NotNil(t, got.Messages[0].Emotion)
	assert.Equal(t, domain.EmotionAnxiety, got.Messages[0].Emotion.Type)
}

func TestCrisisFlagIsStickyAndPublishedOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	sess, err := f.manager.CreateSession(ctx, "u1")
	require.NoError(t, err)

	turn, err := f.manager.AppendUserMessage(ctx, sess.ID, "I want to kill myself")
	require.NoError(t, err)
	assert.True(t, turn.CrisisTransition)
	assert.Equal(t, domain.SeverityCritical, turn.Crisis.Severity)

	turn, err = f.manager.AppendUserMessage(ctx, sess.ID, "I want to die")
	require.NoError(t, err)
	assert.True(t, turn.Crisis.IsCrisis)
	assert.False(t, turn.CrisisTransition)

	turn, err = f.manager.AppendUserMessage(ctx, sess.ID, "things are fine now")
	require.NoError(t, err)
	assert.False(t, turn.Crisis.IsCrisis)

	got, err := f.manager.Session(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, got.CrisisDetected)
	assert.Equal(t, 1, f.events.count(domain.TopicCrisisDetected))
}

func TestAppendAssistantMessageTagsTechniqueOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	sess, err := f.manager.CreateSession(ctx, "u1")
	require.NoError(t, err)

	turn, err := f.manager.AppendAssistantMessage(ctx, sess.ID, "Let's breathe together.")
	require.NoError(t, err)
	assert.Equal(t, domain.TechniqueMindfulness, turn.Technique)
	assert.Equal(t, domain.RoleAssistant, turn.Message.Role)

	_, err = f.manager.AppendAssistantMessage(ctx, sess.ID, "Breathe in again.")
	require.NoError(t, err)
	_, err = f.manager.AppendAssistantMessage(ctx, sess.ID, "That makes sense.")
	require.NoError(t, err)

	got, err := f.manager.Session(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.Technique{domain.TechniqueMindfulness, domain.TechniqueValidation}, got.TechniquesUsed)
	assert.Empty(t, got.EmotionSamples)
}

func TestComputeSessionNote(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	sess, err := f.manager.CreateSession(ctx, "u1")
	require.NoError(t, err)

	_, err = f.manager.AppendUserMessage(ctx, sess.ID, "I am so worried about work")
	require.NoError(t, err)
	_, err = f.manager.AppendAssistantMessage(ctx, sess.ID, "That makes sense.")
	require.NoError(t, err)

	f.clock.Advance(12*time.Minute + 30*time.Second)

	note, err := f.manager.ComputeSessionNote(ctx, sess.ID)
	require.NoError(t, err)

	assert.Equal(t, sess.ID, note.SessionID)
	assert.Equal(t, 2, note.MessageCount)
	assert.Equal(t, 1, note.UserMessages)
	assert.Equal(t, 12, note.DurationMinutes)
	assert.Equal(t, domain.EmotionAnxiety, note.LastEmotion)
	assert.InDelta(t, -1.0/6.0, note.AverageScore, 1e-9)
	assert.Equal(t, []domain.Technique{domain.TechniqueValidation}, note.TechniquesUsed)
	assert.False(t, note.CrisisDetected)

	// computing a note does not change the session
	got, err := f.manager.Session(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 2)
}

func TestBuildNoteOnEmptySession(t *testing.T) {
	note := conversation.BuildNote(&domain.Session{ID: "s", UserID: "u", StartTime: start}, start)

	assert.Zero(t, note.AverageScore)
	assert.Empty(t, note.LastEmotion)
	assert.Zero(t, note.MessageCount)
	assert.Zero(t, note.DurationMinutes)
}

func TestEndSessionPersistsAndEvicts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	sess, err := f.manager.CreateSession(ctx, "u1")
	require.NoError(t, err)
	_, err = f.manager.AppendUserMessage(ctx, sess.ID, "hello there")
	require.NoError(t, err)

	res, err := f.manager.EndSession(ctx, sess.ID)
	require.NoError(t, err)
	require.NoError(t, res.Wait())

	assert.Equal(t, 1, res.Note.MessageCount)
	assert.Equal(t, 0, f.manager.Store().Len())
	assert.Equal(t, 1, f.events.count(domain.TopicSessionEnded))

	raw, ok := f.persister.Load("u1", conversation.CategorySessions, string(sess.ID)+".json")
	require.True(t, ok)
	var stored domain.Session
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, sess.ID, stored.ID)
	assert.Len(t, stored.Messages, 1)

	_, ok = f.persister.Load("u1", conversation.CategorySessionNotes, string(sess.ID)+".json")
	assert.True(t, ok)

	_, err = f.manager.AppendUserMessage(ctx, sess.ID, "still there?")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Equal(t, ftag.NotFound, ftag.Get(err))

	_, err = f.manager.EndSession(ctx, sess.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestEndSessionReportsPersistenceFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, failingPersister{})

	sess, err := f.manager.CreateSession(ctx, "u1")
	require.NoError(t, err)

	res, err := f.manager.EndSession(ctx, sess.ID)
	require.NoError(t, err)

	err = res.Wait()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	// the session stays ended
	_, err = f.manager.Session(ctx, sess.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestEndSessionSurvivesCancelledRequest(t *testing.T) {
	f := newFixture(t, nil)

	sess, err := f.manager.CreateSession(context.Background(), "u1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	res, err := f.manager.EndSession(ctx, sess.ID)
	require.NoError(t, err)
	cancel()

	require.NoError(t, res.Wait())
	assert.Equal(t, 2, f.persister.Len())
}

func TestConcurrentAppendsKeepEveryMessage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	sess, err := f.manager.CreateSession(ctx, "u1")
	require.NoError(t, err)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.manager.AppendUserMessage(ctx, sess.ID, fmt.Sprintf("message %d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := f.manager.Session(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, n)
	assert.Len(t, got.EmotionSamples, n)
}

func TestUnknownSession(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.manager.ComputeSessionNote(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Equal(t, ftag.NotFound, ftag.Get(err))
}

func TestEndIdleZeroEndsSessionsTouchedThisInstant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	sess, err := f.manager.CreateSession(ctx, "u1")
	require.NoError(t, err)
	_, err = f.manager.AppendUserMessage(ctx, sess.ID, "one more thing")
	require.NoError(t, err)

	results := f.manager.EndIdle(ctx, 0)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Wait())
	assert.Equal(t, 1, results[0].Note.UserMessages)
	assert.Zero(t, f.manager.Store().Len())
}
