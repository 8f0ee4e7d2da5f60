package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/exit-interview/internal/application"
)

type directoryService interface {
	RegisterSubject(ctx context.Context, input application.SubjectInput) (application.Subject, error)
	RegisterExitRequest(ctx context.Context, input application.ExitRequestInput) (application.ExitRequest, error)
}

// DirectoryHandler registers subjects and exit requests.
type DirectoryHandler struct {
	service   directoryService
	responder responder
	logger    *slog.Logger
}

func NewDirectoryHandler(service directoryService, logger *slog.Logger) *DirectoryHandler {
	base := defaultLogger(logger)
	return &DirectoryHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *DirectoryHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "DirectoryHandler", operation, attrs...)
}

func (h *DirectoryHandler) CreateSubject(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req subjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "CreateSubject", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode subject request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	subject, err := h.service.RegisterSubject(r.Context(), application.SubjectInput{
		FullName:   req.FullName,
		Email:      req.Email,
		Position:   req.Position,
		Department: req.Department,
	})
	if err != nil {
		h.log(r.Context(), "CreateSubject").ErrorContext(r.Context(), "subject registration failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "CreateSubject", "subject_id", subject.ID).InfoContext(r.Context(), "subject registered")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, subjectResponse{Success: true, SubjectID: subject.ID})
}

func (h *DirectoryHandler) CreateExitRequest(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req exitRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "CreateExitRequest", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode exit request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input := application.ExitRequestInput{SubjectID: req.SubjectID, Reason: req.Reason}
	if day := strings.TrimSpace(req.LastWorkingDay); day != "" {
		parsed, err := time.Parse(time.DateOnly, day)
		if err != nil {
			vErr := &application.ValidationError{FieldErrors: map[string]string{"last_working_day": "invalid"}}
			h.responder.handleServiceError(r.Context(), w, vErr)
			return
		}
		input.LastWorkingDay = &parsed
	}

	request, err := h.service.RegisterExitRequest(r.Context(), input)
	if err != nil {
		h.log(r.Context(), "CreateExitRequest", "subject_id", req.SubjectID).ErrorContext(r.Context(), "exit request registration failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "CreateExitRequest", "exit_request_id", request.ID).InfoContext(r.Context(), "exit request registered")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, exitRequestResponse{Success: true, ExitRequestID: request.ID})
}

type subjectRequest struct {
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Position   string `json:"position"`
	Department string `json:"department"`
}

type subjectResponse struct {
	Success   bool   `json:"success"`
	SubjectID string `json:"subject_id"`
}

type exitRequestRequest struct {
	SubjectID      string `json:"subject_id"`
	Reason         string `json:"reason"`
	LastWorkingDay string `json:"last_working_day"`
}

type exitRequestResponse struct {
	Success       bool   `json:"success"`
	ExitRequestID string `json:"exit_request_id"`
}
