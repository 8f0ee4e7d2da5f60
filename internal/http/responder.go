package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/exit-interview/internal/application"
)

var (
	errBadRequestBody     = errors.New("無効なリクエスト形式です。")
	errInvalidInterviewID = errors.New("無効な面談 ID です。")
	errInvalidSubjectID   = errors.New("無効な対象者 ID です。")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: defaultLogger(logger)}
}

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	logger := LoggerFromContext(ctx)
	if logger == nil {
		logger = defaultLogger(fallback)
	}
	pairs := append([]any{"handler", handlerName, "operation", operation}, attrs...)
	return logger.With(pairs...)
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{ErrorCode: "BAD_REQUEST", Message: message})
}

// serviceErrorStatus maps an application error onto a status code, a stable
// error code and a localized message. Composite errors resolve to the first
// matching case, so an absent session that is also transient reads as 404.
func serviceErrorStatus(err error) (int, string, string) {
	switch {
	case errors.Is(err, application.ErrInvalidState):
		if errors.Is(err, application.ErrNotScheduled) {
			return http.StatusConflict, "NOT_SCHEDULED", "この面談は現在開始できません。"
		}
		return http.StatusConflict, "INVALID_STATE", "面談の現在の状態ではこの操作を実行できません。"
	case errors.Is(err, application.ErrSessionNotFound):
		return http.StatusNotFound, "SESSION_NOT_FOUND", "セッションが見つからないか期限切れです。面談を再開してください。"
	case errors.Is(err, application.ErrSubjectNotFound):
		return http.StatusNotFound, "SUBJECT_NOT_FOUND", "対象者が見つかりません。"
	case errors.Is(err, application.ErrNotScheduled):
		return http.StatusNotFound, "NOT_SCHEDULED", "指定された面談は予定されていません。"
	case errors.Is(err, application.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "指定されたリソースが見つかりません。"
	case errors.Is(err, application.ErrTransient):
		return http.StatusServiceUnavailable, "TRANSIENT", "一時的なエラーが発生しました。しばらくしてから再試行してください。"
	case errors.Is(err, application.ErrCollaboratorFailure):
		return http.StatusBadGateway, "COLLABORATOR_FAILURE", "応答の生成に失敗しました。再試行してください。"
	}
	return http.StatusInternalServerError, "INTERNAL", "サーバー内部でエラーが発生しました。"
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "VALIDATION",
			Message:   "入力内容に誤りがあります。",
			Errors:    localizeValidationErrors(vErr),
		})
		return
	}

	status, code, message := serviceErrorStatus(err)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	r.writeJSON(ctx, w, status, errorResponse{ErrorCode: code, Message: message})
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "リクエスト内容が正しくありません。"
	case http.StatusNotFound:
		return "指定されたリソースが見つかりません。"
	case http.StatusConflict:
		return "要求はリソースの現在の状態と競合しています。"
	case http.StatusUnprocessableEntity:
		return "入力内容に誤りがあります。"
	case http.StatusServiceUnavailable:
		return "サービスが一時的に利用できません。"
	default:
		return "サーバー内部でエラーが発生しました。"
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(field, msg)
	}
	return translated
}

var fieldLabels = map[string]string{
	"answer":           "回答",
	"remarks":          "コメント",
	"interview_id":     "面談 ID",
	"exit_request_id":  "退職申請 ID",
	"subject_id":       "対象者 ID",
	"full_name":        "氏名",
	"email":            "メールアドレス",
	"last_working_day": "最終出社日",
}

func translateValidationMessage(field, message string) string {
	label, ok := fieldLabels[field]
	if !ok {
		label = field
	}
	switch message {
	case "required":
		return label + "は必須です。"
	case "invalid":
		return label + "の形式が不正です。"
	}
	return message
}

type errorResponse struct {
	Success   bool              `json:"success"`
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"error"`
	Errors    map[string]string `json:"errors,omitempty"`
}
