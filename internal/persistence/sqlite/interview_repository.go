package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/exit-interview/internal/persistence"
)

// InterviewRepository implements persistence.InterviewRepository using SQLite.
// Conversation history and the final summary are stored as JSON columns.
type InterviewRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewInterviewRepository creates a new SQLite interview repository.
func NewInterviewRepository(pool *ConnectionPool) *InterviewRepository {
	return &InterviewRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

const interviewColumns = `id, employee_id, exit_request_id, stage, scheduled_at, started_at, completed_at, flagged_at,
	conversation_history, final_summary, flagged_remarks, created_at, updated_at`

// CreateInterview inserts a new interview record.
func (r *InterviewRepository) CreateInterview(ctx context.Context, interview persistence.Interview) error {
	if interview.ID == "" || interview.SubjectID == "" || interview.ExitRequestID == "" {
		return persistence.ErrConstraintViolation
	}
	if interview.Stage == "" {
		interview.Stage = persistence.StageScheduled
	}
	if interview.CreatedAt.IsZero() {
		interview.CreatedAt = time.Now().UTC()
	}
	if interview.UpdatedAt.IsZero() {
		interview.UpdatedAt = interview.CreatedAt
	}

	history, err := encodeHistory(interview.ConversationHistory)
	if err != nil {
		return err
	}
	summary, err := encodeSummary(interview.FinalSummary)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO interviews (id, employee_id, exit_request_id, stage, scheduled_at, started_at, completed_at, flagged_at,
			conversation_history, turn_count, final_summary, flagged_remarks, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	// The exit request must belong to the same employee as the interview.
	err = r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var owner string
		err := tx.QueryRowContext(ctx, `SELECT employee_id FROM exit_requests WHERE id = ?`, interview.ExitRequestID).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: exit request %s", persistence.ErrForeignKeyViolation, interview.ExitRequestID)
		}
		if err != nil {
			return r.mapper.MapError(err)
		}
		if owner != interview.SubjectID {
			return fmt.Errorf("%w: exit request %s belongs to %s", persistence.ErrConstraintViolation, interview.ExitRequestID, owner)
		}

		_, err = tx.ExecContext(ctx, query,
			interview.ID,
			interview.SubjectID,
			interview.ExitRequestID,
			string(interview.Stage),
			formatTime(interview.ScheduledAt),
			formatNullableTime(interview.StartedAt),
			formatNullableTime(interview.CompletedAt),
			formatNullableTime(interview.FlaggedAt),
			history,
			len(interview.ConversationHistory),
			summary,
			nullableString(interview.FlaggedRemarks),
			formatTime(interview.CreatedAt),
			formatTime(interview.UpdatedAt),
		)
		return r.mapper.MapError(err)
	})
	return err
}

// GetInterview retrieves an interview by ID.
func (r *InterviewRepository) GetInterview(ctx context.Context, id string) (persistence.Interview, error) {
	if id == "" {
		return persistence.Interview{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+interviewColumns+` FROM interviews WHERE id = ?`, id)
	interview, err := scanInterview(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Interview{}, persistence.ErrNotFound
		}
		return persistence.Interview{}, r.mapper.MapError(err)
	}
	return interview, nil
}

// UpdateInterview applies a field-level update in a single statement. Stage
// guards and the history length guard are evaluated in the WHERE clause so
// the update is atomic with respect to concurrent writers. When no row
// matches, the record is re-read to tell ErrNotFound apart from ErrConflict.
func (r *InterviewRepository) UpdateInterview(ctx context.Context, id string, update persistence.InterviewUpdate) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	if update.UpdatedAt.IsZero() {
		update.UpdatedAt = time.Now().UTC()
	}

	sets := []string{"updated_at = ?"}
	args := []any{formatTime(update.UpdatedAt)}
	var where []string
	var whereArgs []any

	if update.Stage != nil {
		sets = append(sets, "stage = ?")
		args = append(args, string(*update.Stage))
	}
	if update.StartedAt != nil {
		sets = append(sets, "started_at = COALESCE(started_at, ?)")
		args = append(args, formatTime(*update.StartedAt))
	}
	if update.CompletedAt != nil {
		sets = append(sets, "completed_at = ?")
		args = append(args, formatTime(*update.CompletedAt))
	}
	if update.FlaggedAt != nil {
		sets = append(sets, "flagged_at = ?")
		args = append(args, formatTime(*update.FlaggedAt))
	}
	if update.ConversationHistory != nil {
		history, err := encodeHistory(update.ConversationHistory)
		if err != nil {
			return err
		}
		sets = append(sets, "conversation_history = ?", "turn_count = ?")
		args = append(args, history, len(update.ConversationHistory))
		// History never shrinks in the durable record.
		where = append(where, "turn_count <= ?")
		whereArgs = append(whereArgs, len(update.ConversationHistory))
	}
	if update.FinalSummary != nil {
		summary, err := encodeSummary(update.FinalSummary)
		if err != nil {
			return err
		}
		sets = append(sets, "final_summary = ?")
		args = append(args, summary)
	}
	if update.FlaggedRemarks != nil {
		sets = append(sets, "flagged_remarks = ?")
		args = append(args, *update.FlaggedRemarks)
	}
	if len(update.ExpectedStages) > 0 {
		placeholders := make([]string, len(update.ExpectedStages))
		for i, stage := range update.ExpectedStages {
			placeholders[i] = "?"
			whereArgs = append(whereArgs, string(stage))
		}
		where = append(where, "stage IN ("+strings.Join(placeholders, ", ")+")")
	}
	if update.ExcludedStage != nil {
		where = append(where, "stage != ?")
		whereArgs = append(whereArgs, string(*update.ExcludedStage))
	}
	if update.ExpectedTurnCount != nil {
		where = append(where, "turn_count = ?")
		whereArgs = append(whereArgs, *update.ExpectedTurnCount)
	}

	query := "UPDATE interviews SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	args = append(args, id)
	if len(where) > 0 {
		query += " AND " + strings.Join(where, " AND ")
		args = append(args, whereArgs...)
	}

	var rowsAffected int64
	err := r.retry.WithRetry(ctx, func() error {
		result, err := r.helper.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		rowsAffected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return r.mapper.MapError(err)
	}
	if rowsAffected > 0 {
		return nil
	}

	var exists int
	if err := r.helper.QueryRow(ctx, `SELECT 1 FROM interviews WHERE id = ?`, id).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.ErrNotFound
		}
		return r.mapper.MapError(err)
	}
	return persistence.ErrConflict
}

// FindBySubject lists a subject's interviews, oldest first.
func (r *InterviewRepository) FindBySubject(ctx context.Context, subjectID string) ([]persistence.Interview, error) {
	rows, err := r.helper.Query(ctx,
		`SELECT `+interviewColumns+` FROM interviews WHERE employee_id = ? ORDER BY scheduled_at ASC, id ASC`, subjectID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var interviews []persistence.Interview
	for rows.Next() {
		interview, err := scanInterview(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		interviews = append(interviews, interview)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return interviews, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInterview(row rowScanner) (persistence.Interview, error) {
	var (
		interview                              persistence.Interview
		stage, scheduledAt, createdAt, updated string
		startedAt, completedAt, flaggedAt      sql.NullString
		history                                string
		summary, remarks                       sql.NullString
	)
	if err := row.Scan(
		&interview.ID,
		&interview.SubjectID,
		&interview.ExitRequestID,
		&stage,
		&scheduledAt,
		&startedAt,
		&completedAt,
		&flaggedAt,
		&history,
		&summary,
		&remarks,
		&createdAt,
		&updated,
	); err != nil {
		return persistence.Interview{}, err
	}

	interview.Stage = persistence.Stage(stage)
	var err error
	if interview.ScheduledAt, err = parseTime(scheduledAt); err != nil {
		return persistence.Interview{}, err
	}
	if interview.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Interview{}, err
	}
	if interview.UpdatedAt, err = parseTime(updated); err != nil {
		return persistence.Interview{}, err
	}
	if interview.StartedAt, err = parseNullableTime(startedAt); err != nil {
		return persistence.Interview{}, err
	}
	if interview.CompletedAt, err = parseNullableTime(completedAt); err != nil {
		return persistence.Interview{}, err
	}
	if interview.FlaggedAt, err = parseNullableTime(flaggedAt); err != nil {
		return persistence.Interview{}, err
	}
	if err := json.Unmarshal([]byte(history), &interview.ConversationHistory); err != nil {
		return persistence.Interview{}, fmt.Errorf("failed to decode conversation history: %w", err)
	}
	if summary.Valid && summary.String != "" {
		var decoded persistence.FinalSummary
		if err := json.Unmarshal([]byte(summary.String), &decoded); err != nil {
			return persistence.Interview{}, fmt.Errorf("failed to decode final summary: %w", err)
		}
		interview.FinalSummary = &decoded
	}
	if remarks.Valid {
		value := remarks.String
		interview.FlaggedRemarks = &value
	}
	return interview, nil
}

func encodeHistory(history []persistence.Turn) (string, error) {
	if history == nil {
		history = []persistence.Turn{}
	}
	data, err := json.Marshal(history)
	if err != nil {
		return "", fmt.Errorf("failed to encode conversation history: %w", err)
	}
	return string(data), nil
}

func encodeSummary(summary *persistence.FinalSummary) (sql.NullString, error) {
	if summary == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode final summary: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullableString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}
