package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/exit-interview/internal/persistence"
)

// InterviewRepository captures the durable store operations the engine needs.
// Implementations return ErrNotFound for unknown ids and persistence-level
// conflict errors when an update guard does not hold.
type InterviewRepository interface {
	CreateInterview(ctx context.Context, interview Interview) error
	GetInterview(ctx context.Context, id string) (Interview, error)
	UpdateInterview(ctx context.Context, id string, update InterviewUpdate) error
	FindBySubject(ctx context.Context, subjectID string) ([]Interview, error)
}

// DirectoryRepository exposes subjects and exit requests.
type DirectoryRepository interface {
	CreateSubject(ctx context.Context, subject Subject) error
	GetSubject(ctx context.Context, id string) (Subject, error)
	CreateExitRequest(ctx context.Context, request ExitRequest) error
	GetExitRequest(ctx context.Context, id string) (ExitRequest, error)
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound)
}

func isConflict(err error) bool {
	return errors.Is(err, persistence.ErrConflict)
}

// mapRepoError converts persistence sentinels into application errors.
func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case isNotFound(err):
		return ErrNotFound
	case isConflict(err):
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	return err
}
