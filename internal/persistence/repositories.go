package persistence

import "context"

// InterviewRepository stores interview records. Every operation touches a
// single record; there are no cross-record transactions.
type InterviewRepository interface {
	CreateInterview(ctx context.Context, interview Interview) error
	GetInterview(ctx context.Context, id string) (Interview, error)
	UpdateInterview(ctx context.Context, id string, update InterviewUpdate) error
	FindBySubject(ctx context.Context, subjectID string) ([]Interview, error)
}

// DirectoryRepository exposes the subject and exit request records owned by HR.
type DirectoryRepository interface {
	CreateSubject(ctx context.Context, subject Subject) error
	GetSubject(ctx context.Context, id string) (Subject, error)
	CreateExitRequest(ctx context.Context, request ExitRequest) error
	GetExitRequest(ctx context.Context, id string) (ExitRequest, error)
}
