package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
)

// DirectoryService registers the subjects and exit requests that interviews
// are scheduled from.
type DirectoryService struct {
	directory   DirectoryRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewDirectoryService constructs a directory service with the provided dependencies.
func NewDirectoryService(directory DirectoryRepository, idGenerator func() string, now func() time.Time) *DirectoryService {
	return NewDirectoryServiceWithLogger(directory, idGenerator, now, nil)
}

// NewDirectoryServiceWithLogger constructs a directory service with a specified logger.
func NewDirectoryServiceWithLogger(directory DirectoryRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *DirectoryService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &DirectoryService{directory: directory, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *DirectoryService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "DirectoryService", operation, attrs...)
}

// RegisterSubject validates and stores a departing employee.
func (s *DirectoryService) RegisterSubject(ctx context.Context, input SubjectInput) (subject Subject, err error) {
	logger := s.loggerWith(ctx, "RegisterSubject")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to register subject", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("subject_id", subject.ID).InfoContext(ctx, "subject registered")
	}()

	vErr := validateSubjectInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	subject = Subject{
		ID:         s.idGenerator(),
		FullName:   strings.TrimSpace(input.FullName),
		Email:      strings.TrimSpace(input.Email),
		Position:   strings.TrimSpace(input.Position),
		Department: strings.TrimSpace(input.Department),
		CreatedAt:  s.now(),
	}
	if err = s.directory.CreateSubject(ctx, subject); err != nil {
		err = mapRepoError(err)
	}
	return
}

// RegisterExitRequest stores an exit request for an existing subject.
func (s *DirectoryService) RegisterExitRequest(ctx context.Context, input ExitRequestInput) (request ExitRequest, err error) {
	logger := s.loggerWith(ctx, "RegisterExitRequest", "subject_id", input.SubjectID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to register exit request", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("exit_request_id", request.ID).InfoContext(ctx, "exit request registered")
	}()

	if strings.TrimSpace(input.SubjectID) == "" {
		vErr := &ValidationError{}
		vErr.add("subject_id", "required")
		err = vErr
		return
	}
	if _, err = s.directory.GetSubject(ctx, input.SubjectID); err != nil {
		if isNotFound(err) {
			err = fmt.Errorf("%w: %w", ErrSubjectNotFound, ErrNotFound)
		}
		return
	}

	request = ExitRequest{
		ID:             s.idGenerator(),
		SubjectID:      input.SubjectID,
		Reason:         strings.TrimSpace(input.Reason),
		LastWorkingDay: input.LastWorkingDay,
		CreatedAt:      s.now(),
	}
	if err = s.directory.CreateExitRequest(ctx, request); err != nil {
		err = mapRepoError(err)
	}
	return
}

func validateSubjectInput(input SubjectInput) *ValidationError {
	vErr := &ValidationError{}
	if strings.TrimSpace(input.FullName) == "" {
		vErr.add("full_name", "required")
	}
	email := strings.TrimSpace(input.Email)
	if email == "" {
		vErr.add("email", "required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		vErr.add("email", "invalid")
	}
	return vErr
}
