package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/Southclaws/fault/ftag"

	"github.com/PabloGalante/farum-engine/internal/app/conversation"
	"github.com/PabloGalante/farum-engine/internal/app/journal"
	"github.com/PabloGalante/farum-engine/internal/app/progression"
	"github.com/PabloGalante/farum-engine/internal/domain"
	"github.com/PabloGalante/farum-engine/internal/observability"
)

type Server struct {
	conv     *conversation.Service
	progress *progression.Service
	journal  *journal.Service
}

func NewServer(conv *conversation.Service, progress *progression.Service, journalSvc *journal.Service) http.Handler {
	s := &Server{conv: conv, progress: progress, journal: journalSvc}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)

	mux.HandleFunc("POST /sessions", s.handleCreateSession)
	mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	mux.HandleFunc("POST /sessions/{id}/messages", s.handleSendMessage)
	mux.HandleFunc("POST /sessions/{id}/end", s.handleEndSession)

	mux.HandleFunc("POST /users/{id}/activities", s.handleCompleteActivity)
	mux.HandleFunc("POST /users/{id}/redemptions", s.handleRedeem)
	mux.HandleFunc("GET /users/{id}/progress", s.handleGetProgress)

	mux.HandleFunc("POST /users/{id}/journal", s.handleWriteJournal)
	mux.HandleFunc("GET /users/{id}/journal", s.handleGetJournal)

	return chainMiddlewares(mux, withLogging, withRequestID, withCORS)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type createSessionRequest struct {
	UserID string `json:"user_id"`
}

type createSessionResponse struct {
	Session *domain.Session `json:"session"`
	Welcome string          `json:"welcome_message"`
}

type getSessionResponse struct {
	Session *domain.Session     `json:"session"`
	Note    *domain.SessionNote `json:"note"`
}

type sendMessageRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

type sendMessageResponse struct {
	UserMessage  domain.Message          `json:"user_message"`
	AgentMessage domain.Message          `json:"agent_message"`
	Emotion      domain.EmotionAnalysis  `json:"emotion"`
	Crisis       domain.CrisisAssessment `json:"crisis"`
	Technique    domain.Technique        `json:"technique"`
	Degraded     bool                    `json:"degraded,omitempty"`
}

type endSessionRequest struct {
	UserID string `json:"user_id"`
}

type endSessionResponse struct {
	Note domain.SessionNote `json:"note"`
}

type activityRequest struct {
	ActionID    string            `json:"action_id,omitempty"`
	Type        string            `json:"type"`
	BaseXP      int               `json:"base_xp,omitempty"`
	BonusXP     int               `json:"bonus_xp,omitempty"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type redemptionRequest struct {
	ID          string `json:"id,omitempty"`
	Cost        int    `json:"cost"`
	Description string `json:"description,omitempty"`
}

type journalRequest struct {
	Text string `json:"text"`
}

type journalResponse struct {
	Entries []*domain.JournalEntry `json:"entries"`
}

type progressResponse struct {
	Progress *progression.ProgressView `json:"progress"`
	Streak   *domain.StreakRecord      `json:"streak"`
}

// ─────────────────────────────────────────────
// Conversation handlers
// ─────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	if req.UserID == "" {
		badRequest(w, "user_id is required")
		return
	}

	out, err := s.conv.StartSession(r.Context(), conversation.StartSessionInput{
		UserID: domain.UserID(req.UserID),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, createSessionResponse{
		Session: out.Session,
		Welcome: out.Welcome,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, note, err := s.conv.GetSessionTimeline(r.Context(), domain.SessionID(r.PathValue("id")))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, getSessionResponse{Session: session, Note: note})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	if req.UserID == "" {
		badRequest(w, "user_id is required")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		badRequest(w, "text is required")
		return
	}

	out, err := s.conv.SendMessage(r.Context(), conversation.SendMessageInput{
		SessionID: domain.SessionID(r.PathValue("id")),
		UserID:    domain.UserID(req.UserID),
		Text:      req.Text,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sendMessageResponse{
		UserMessage:  out.UserMessage,
		AgentMessage: out.AgentMessage,
		Emotion:      out.Emotion,
		Crisis:       out.Crisis,
		Technique:    out.Technique,
		Degraded:     out.Degraded,
	})
}

// handleEndSession answers as soon as the session is ended; persistence
// continues in the background.
func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	var req endSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	res, err := s.conv.EndSession(r.Context(), conversation.EndSessionInput{
		SessionID: domain.SessionID(r.PathValue("id")),
		UserID:    domain.UserID(req.UserID),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, endSessionResponse{Note: res.Note})
}

// ─────────────────────────────────────────────
// Progression handlers
// ─────────────────────────────────────────────

func (s *Server) handleCompleteActivity(w http.ResponseWriter, r *http.Request) {
	var req activityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	out, err := s.progress.CompleteActivity(r.Context(), progression.ActivityInput{
		UserID:      domain.UserID(r.PathValue("id")),
		ActionID:    domain.ActionID(req.ActionID),
		Type:        domain.ActionType(req.Type),
		BaseXP:      req.BaseXP,
		BonusXP:     req.BonusXP,
		Description: req.Description,
		Metadata:    req.Metadata,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req redemptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	out, err := s.progress.Redeem(r.Context(),
		domain.UserID(r.PathValue("id")),
		domain.ActionID(req.ID),
		req.Cost,
		req.Description,
	)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	view, streak, err := s.progress.Progress(r.Context(), domain.UserID(r.PathValue("id")))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, progressResponse{Progress: view, Streak: streak})
}

// ─────────────────────────────────────────────
// Journal handlers
// ─────────────────────────────────────────────

func (s *Server) handleWriteJournal(w http.ResponseWriter, r *http.Request) {
	var req journalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	out, err := s.journal.WriteEntry(r.Context(), domain.UserID(r.PathValue("id")), req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleGetJournal(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			badRequest(w, "limit must be an integer")
			return
		}
		limit = n
	}

	entries, err := s.journal.GetUserJournal(r.Context(), domain.UserID(r.PathValue("id")), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, journalResponse{Entries: entries})
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

// writeError maps the fault tag on err to a status code. Internal errors
// are logged and never echoed to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		observability.LoggerFromContext(r.Context()).Error("request failed", "error", err)
		writeJSON(w, status, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch ftag.Get(err) {
	case ftag.NotFound:
		return http.StatusNotFound
	case ftag.AlreadyExists:
		return http.StatusConflict
	case ftag.InvalidArgument:
		return http.StatusBadRequest
	case ftag.PermissionDenied:
		return http.StatusForbidden
	}

	// untagged sentinels from the stores
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateAction):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
