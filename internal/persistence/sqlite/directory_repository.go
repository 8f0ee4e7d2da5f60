package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/example/exit-interview/internal/persistence"
)

// DirectoryRepository implements persistence.DirectoryRepository using SQLite.
type DirectoryRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewDirectoryRepository creates a new SQLite directory repository.
func NewDirectoryRepository(pool *ConnectionPool) *DirectoryRepository {
	return &DirectoryRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateSubject inserts an employee record.
func (r *DirectoryRepository) CreateSubject(ctx context.Context, subject persistence.Subject) error {
	if subject.ID == "" || strings.TrimSpace(subject.FullName) == "" || strings.TrimSpace(subject.Email) == "" {
		return persistence.ErrConstraintViolation
	}
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO employees (id, full_name, email, position, department, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.helper.Exec(ctx, query,
		subject.ID,
		subject.FullName,
		subject.Email,
		subject.Position,
		subject.Department,
		formatTime(subject.CreatedAt),
	)
	return r.mapper.MapError(err)
}

// GetSubject retrieves an employee record by ID.
func (r *DirectoryRepository) GetSubject(ctx context.Context, id string) (persistence.Subject, error) {
	if id == "" {
		return persistence.Subject{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, full_name, email, position, department, created_at
		FROM employees
		WHERE id = ?
	`
	var subject persistence.Subject
	var createdAt string
	err := r.helper.QueryRow(ctx, query, id).Scan(
		&subject.ID,
		&subject.FullName,
		&subject.Email,
		&subject.Position,
		&subject.Department,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Subject{}, persistence.ErrNotFound
		}
		return persistence.Subject{}, r.mapper.MapError(err)
	}
	if subject.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Subject{}, err
	}
	return subject, nil
}

// CreateExitRequest inserts an exit request. The referenced employee must exist.
func (r *DirectoryRepository) CreateExitRequest(ctx context.Context, request persistence.ExitRequest) error {
	if request.ID == "" || request.SubjectID == "" {
		return persistence.ErrConstraintViolation
	}
	if request.CreatedAt.IsZero() {
		request.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO exit_requests (id, employee_id, reason, last_working_day, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.helper.Exec(ctx, query,
		request.ID,
		request.SubjectID,
		request.Reason,
		formatNullableTime(request.LastWorkingDay),
		formatTime(request.CreatedAt),
	)
	return r.mapper.MapError(err)
}

// GetExitRequest retrieves an exit request by ID.
func (r *DirectoryRepository) GetExitRequest(ctx context.Context, id string) (persistence.ExitRequest, error) {
	if id == "" {
		return persistence.ExitRequest{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, employee_id, reason, last_working_day, created_at
		FROM exit_requests
		WHERE id = ?
	`
	var request persistence.ExitRequest
	var lastWorkingDay sql.NullString
	var createdAt string
	err := r.helper.QueryRow(ctx, query, id).Scan(
		&request.ID,
		&request.SubjectID,
		&request.Reason,
		&lastWorkingDay,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.ExitRequest{}, persistence.ErrNotFound
		}
		return persistence.ExitRequest{}, r.mapper.MapError(err)
	}
	if request.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.ExitRequest{}, err
	}
	if request.LastWorkingDay, err = parseNullableTime(lastWorkingDay); err != nil {
		return persistence.ExitRequest{}, err
	}
	return request, nil
}
