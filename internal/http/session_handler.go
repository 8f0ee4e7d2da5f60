package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/example/exit-interview/internal/application"
)

type sessionResolver interface {
	ResolveOrCreateSession(ctx context.Context, interviewID string) (application.Session, error)
}

type turnService interface {
	Turn(ctx context.Context, params application.TurnParams) (application.TurnResult, error)
}

// SessionHandler exposes the respondent facing session and chat endpoints.
type SessionHandler struct {
	sessions      sessionResolver
	conversations turnService
	responder     responder
	logger        *slog.Logger
}

func NewSessionHandler(sessions sessionResolver, conversations turnService, logger *slog.Logger) *SessionHandler {
	base := defaultLogger(logger)
	return &SessionHandler{
		sessions:      sessions,
		conversations: conversations,
		responder:     newResponder(base),
		logger:        base,
	}
}

func (h *SessionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "SessionHandler", operation, attrs...)
}

// Resolve returns the live session for an interview, creating it when needed.
func (h *SessionHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.sessions == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Resolve", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode session request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Resolve", "interview_id", req.InterviewID)
	session, err := h.sessions.ResolveOrCreateSession(r.Context(), req.InterviewID)
	if err != nil {
		logger.ErrorContext(r.Context(), "session resolution failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("session_id", session.ID).InfoContext(r.Context(), "session resolved")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{
		Success:     true,
		SessionID:   session.ID,
		InterviewID: session.InterviewID,
		SubjectID:   session.SubjectID,
		Stage:       session.Stage,
		ChatHistory: toTurnDTOs(session.ChatHistory),
	})
}

// Chat processes one respondent turn.
func (h *SessionHandler) Chat(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.conversations == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Chat", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode chat request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Chat", "session_id", req.SessionID)
	result, err := h.conversations.Turn(r.Context(), application.TurnParams{SessionID: req.SessionID, Answer: req.Answer})
	if err != nil {
		logger.ErrorContext(r.Context(), "chat turn failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "chat turn processed", "stage", result.Stage)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, chatResponse{
		Success: true,
		Stage:   result.Stage,
		Text:    result.Text,
		Summary: result.Summary,
	})
}

type sessionRequest struct {
	InterviewID string `json:"interview_id"`
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
}

type sessionResponse struct {
	Success     bool              `json:"success"`
	SessionID   string            `json:"session_id"`
	InterviewID string            `json:"interview_id"`
	SubjectID   string            `json:"subject_id"`
	Stage       application.Stage `json:"stage"`
	ChatHistory []turnDTO         `json:"chat_history"`
	Error       *string           `json:"error"`
}

type chatResponse struct {
	Success bool                      `json:"success"`
	Stage   application.Stage         `json:"stage"`
	Text    string                    `json:"text"`
	Summary *application.FinalSummary `json:"summary,omitempty"`
	Error   *string                   `json:"error"`
}
