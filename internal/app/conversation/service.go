package conversation

import (
	"context"
	"fmt"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/ftag"

	"github.com/PabloGalante/farum-engine/internal/app/agentflow"
	"github.com/PabloGalante/farum-engine/internal/domain"
	"github.com/PabloGalante/farum-engine/internal/observability"
)

const (
	historyLimit = 20
	welcomeText  = "Hi, I'm Farum. What would you like to talk about today?"
)

// Service runs full conversation turns on top of the Manager.
type Service struct {
	manager      *Manager
	orchestrator *agentflow.Orchestrator
}

func NewService(manager *Manager, llm domain.LLMClient) *Service {
	return &Service{
		manager:      manager,
		orchestrator: agentflow.NewDefaultOrchestrator(llm),
	}
}

type StartSessionInput struct {
	UserID domain.UserID
}

type StartSessionOutput struct {
	Session *domain.Session
	Welcome string
}

func (s *Service) StartSession(ctx context.Context, in StartSessionInput) (*StartSessionOutput, error) {
	log := observability.LoggerFromContext(ctx).With("user_id", in.UserID)
	log.Info("starting new session")

	session, err := s.manager.CreateSession(ctx, in.UserID)
	if err != nil {
		log.Warn("failed to create session", "error", err)
		return nil, err
	}

	// The welcome text is not part of the transcript.
	return &StartSessionOutput{
		Session: session,
		Welcome: welcomeText,
	}, nil
}

type SendMessageInput struct {
	SessionID domain.SessionID
	UserID    domain.UserID
	Text      string
}

type SendMessageOutput struct {
	UserMessage  domain.Message
	AgentMessage domain.Message
	Emotion      domain.EmotionAnalysis
	Crisis       domain.CrisisAssessment
	Technique    domain.Technique
	Degraded     bool // reply generation failed and the safe reply was used
}

func (s *Service) SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageOutput, error) {
	if _, err := s.owned(ctx, in.SessionID, in.UserID); err != nil {
		return nil, err
	}

	log := observability.LoggerFromContext(ctx).With(
		"session_id", in.SessionID,
		"user_id", in.UserID,
	)
	log.Info("sending message")

	turn, err := s.manager.AppendUserMessage(ctx, in.SessionID, in.Text)
	if err != nil {
		return nil, err
	}

	session, err := s.manager.Session(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}

	history := session.Messages
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}

	convCtx := domain.ConversationContext{
		SessionID: session.ID,
		UserID:    session.UserID,
		History:   history,
		Crisis:    session.CrisisDetected,
		Emotion:   turn.Emotion.Primary.Type,
		Topics:    session.Topics,
	}

	degraded := false
	replyText, err := s.orchestrator.Run(ctx, in.Text, convCtx)
	if err != nil || replyText == "" {
		log.Warn("reply generation failed, using safe reply", "error", err)
		replyText = agentflow.SafeReply(session.CrisisDetected)
		degraded = true
	}

	reply, err := s.manager.AppendAssistantMessage(ctx, in.SessionID, replyText)
	if err != nil {
		return nil, err
	}

	log.Info("send message completed", "technique", reply.Technique, "crisis", session.CrisisDetected)

	return &SendMessageOutput{
		UserMessage:  turn.Message,
		AgentMessage: reply.Message,
		Emotion:      turn.Emotion,
		Crisis:       turn.Crisis,
		Technique:    reply.Technique,
		Degraded:     degraded,
	}, nil
}

// GetSessionTimeline returns the Active session with its running note.
func (s *Service) GetSessionTimeline(ctx context.Context, sessionID domain.SessionID) (*domain.Session, *domain.SessionNote, error) {
	session, err := s.manager.Session(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	note, err := s.manager.ComputeSessionNote(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	observability.LoggerFromContext(ctx).Debug("fetched session timeline",
		"session_id", sessionID, "message_count", len(session.Messages))

	return session, note, nil
}

type EndSessionInput struct {
	SessionID domain.SessionID
	UserID    domain.UserID
}

// EndSession ends the session; persistence continues in the background.
func (s *Service) EndSession(ctx context.Context, in EndSessionInput) (*EndResult, error) {
	if _, err := s.owned(ctx, in.SessionID, in.UserID); err != nil {
		return nil, err
	}
	return s.manager.EndSession(ctx, in.SessionID)
}

// owned checks that the session belongs to userID. An empty userID skips the check.
func (s *Service) owned(ctx context.Context, id domain.SessionID, userID domain.UserID) (*domain.Session, error) {
	session, err := s.manager.Session(ctx, id)
	if err != nil {
		return nil, err
	}
	if userID != "" && session.UserID != userID {
		return nil, fault.Wrap(fmt.Errorf("session %s does not belong to user %s", id, userID),
			fctx.With(ctx), ftag.With(ftag.PermissionDenied))
	}
	return session, nil
}
