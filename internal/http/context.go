package http

import (
	"context"
	"log/slog"

	"github.com/example/exit-interview/internal/logging"
)

type contextKey string

const (
	interviewIDContextKey contextKey = "interview_id"
	subjectIDContextKey   contextKey = "subject_id"
)

// ContextWithLogger returns a derived context carrying the request-scoped logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext extracts the request-scoped logger, if any.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

// ContextWithInterviewID injects the interview identifier resolved from the request path.
func ContextWithInterviewID(ctx context.Context, interviewID string) context.Context {
	return context.WithValue(ctx, interviewIDContextKey, interviewID)
}

// InterviewIDFromContext extracts an interview identifier previously associated with the context.
func InterviewIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(interviewIDContextKey).(string)
	return id, ok
}

// ContextWithSubjectID injects the subject identifier resolved from the request path.
func ContextWithSubjectID(ctx context.Context, subjectID string) context.Context {
	return context.WithValue(ctx, subjectIDContextKey, subjectID)
}

// SubjectIDFromContext extracts a subject identifier previously associated with the context.
func SubjectIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(subjectIDContextKey).(string)
	return id, ok
}
