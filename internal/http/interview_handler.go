package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/exit-interview/internal/application"
)

type interviewService interface {
	Schedule(ctx context.Context, params application.ScheduleParams) (application.Interview, error)
	Flag(ctx context.Context, params application.FlagParams) (application.Interview, error)
	Status(ctx context.Context, interviewID string) (application.Status, error)
	GetInterview(ctx context.Context, interviewID string) (application.InterviewView, error)
	ListBySubject(ctx context.Context, subjectID string) ([]application.InterviewView, error)
}

// InterviewHandler serves scheduling, status and operator endpoints.
type InterviewHandler struct {
	service   interviewService
	responder responder
	logger    *slog.Logger
}

func NewInterviewHandler(service interviewService, logger *slog.Logger) *InterviewHandler {
	base := defaultLogger(logger)
	return &InterviewHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *InterviewHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "InterviewHandler", operation, attrs...)
}

func (h *InterviewHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Schedule", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode schedule request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Schedule", "exit_request_id", req.ExitRequestID)
	interview, err := h.service.Schedule(r.Context(), application.ScheduleParams{ExitRequestID: req.ExitRequestID})
	if err != nil {
		logger.ErrorContext(r.Context(), "interview scheduling failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("interview_id", interview.ID).InfoContext(r.Context(), "interview scheduled")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, scheduleResponse{Success: true, InterviewID: interview.ID})
}

func (h *InterviewHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	interviewID, ok := h.interviewID(w, r, "Status")
	if !ok {
		return
	}

	status, err := h.service.Status(r.Context(), interviewID)
	if errors.Is(err, application.ErrNotFound) && status == application.StatusNotFound {
		message := "指定された面談が見つかりません。"
		h.responder.writeJSON(r.Context(), w, http.StatusNotFound, statusResponse{Success: false, Status: status, Error: &message})
		return
	}
	if err != nil {
		h.log(r.Context(), "Status", "interview_id", interviewID).ErrorContext(r.Context(), "status lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, statusResponse{Success: true, Status: status})
}

func (h *InterviewHandler) Record(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	interviewID, ok := h.interviewID(w, r, "Record")
	if !ok {
		return
	}

	view, err := h.service.GetInterview(r.Context(), interviewID)
	if err != nil {
		h.log(r.Context(), "Record", "interview_id", interviewID).ErrorContext(r.Context(), "record lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, recordResponse{Success: true, Interview: toInterviewDTO(view)})
}

func (h *InterviewHandler) Flag(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	interviewID, ok := h.interviewID(w, r, "Flag")
	if !ok {
		return
	}

	var req flagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Flag", "interview_id", interviewID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode flag request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Flag", "interview_id", interviewID)
	if _, err := h.service.Flag(r.Context(), application.FlagParams{InterviewID: interviewID, Remarks: req.Remarks}); err != nil {
		logger.ErrorContext(r.Context(), "flag failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "interview flagged")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, successResponse{Success: true})
}

func (h *InterviewHandler) ListBySubject(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	subjectID, ok := SubjectIDFromContext(r.Context())
	if !ok || strings.TrimSpace(subjectID) == "" {
		h.log(r.Context(), "ListBySubject", "error_kind", "bad_request").ErrorContext(r.Context(), "missing subject id")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSubjectID)
		return
	}

	views, err := h.service.ListBySubject(r.Context(), subjectID)
	if err != nil {
		h.log(r.Context(), "ListBySubject", "subject_id", subjectID).ErrorContext(r.Context(), "listing interviews failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	items := make([]interviewDTO, 0, len(views))
	for _, view := range views {
		items = append(items, toInterviewDTO(view))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listResponse{Success: true, Interviews: items})
}

func (h *InterviewHandler) interviewID(w http.ResponseWriter, r *http.Request, operation string) (string, bool) {
	interviewID, ok := InterviewIDFromContext(r.Context())
	if !ok || strings.TrimSpace(interviewID) == "" {
		h.log(r.Context(), operation, "error_kind", "bad_request").ErrorContext(r.Context(), "missing interview id")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidInterviewID)
		return "", false
	}
	return interviewID, true
}

type scheduleRequest struct {
	ExitRequestID string `json:"exit_request_id"`
}

type flagRequest struct {
	Remarks string `json:"remarks"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type scheduleResponse struct {
	Success     bool    `json:"success"`
	InterviewID string  `json:"interview_id"`
	Error       *string `json:"error"`
}

type statusResponse struct {
	Success bool               `json:"success"`
	Status  application.Status `json:"status"`
	Error   *string            `json:"error"`
}

type recordResponse struct {
	Success   bool         `json:"success"`
	Interview interviewDTO `json:"interview"`
}

type listResponse struct {
	Success    bool           `json:"success"`
	Interviews []interviewDTO `json:"interviews"`
}

type turnDTO struct {
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
}

type interviewDTO struct {
	ID                  string                    `json:"id"`
	SubjectID           string                    `json:"subject_id"`
	ExitRequestID       string                    `json:"exit_request_id"`
	Stage               application.Stage         `json:"stage"`
	Status              application.Status        `json:"status"`
	ScheduledAt         time.Time                 `json:"scheduled_at"`
	StartedAt           *time.Time                `json:"started_at,omitempty"`
	CompletedAt         *time.Time                `json:"completed_at,omitempty"`
	FlaggedAt           *time.Time                `json:"flagged_at,omitempty"`
	ConversationHistory []turnDTO                 `json:"conversation_history"`
	FinalSummary        *application.FinalSummary `json:"final_summary,omitempty"`
	FlaggedRemarks      *string                   `json:"flagged_remarks,omitempty"`
}

func toTurnDTOs(turns []application.Turn) []turnDTO {
	out := make([]turnDTO, len(turns))
	for i, turn := range turns {
		out[i] = turnDTO{Question: turn.Question, Answer: turn.Answer}
	}
	return out
}

func toInterviewDTO(view application.InterviewView) interviewDTO {
	interview := view.Interview
	return interviewDTO{
		ID:                  interview.ID,
		SubjectID:           interview.SubjectID,
		ExitRequestID:       interview.ExitRequestID,
		Stage:               interview.Stage,
		Status:              view.Status,
		ScheduledAt:         interview.ScheduledAt,
		StartedAt:           interview.StartedAt,
		CompletedAt:         interview.CompletedAt,
		FlaggedAt:           interview.FlaggedAt,
		ConversationHistory: toTurnDTOs(interview.ConversationHistory),
		FinalSummary:        interview.FinalSummary,
		FlaggedRemarks:      interview.FlaggedRemarks,
	}
}
