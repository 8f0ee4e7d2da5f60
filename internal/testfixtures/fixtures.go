package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/exit-interview/internal/persistence"
)

var (
	subjectCounter     uint64
	exitRequestCounter uint64
	interviewCounter   uint64
)

// ---------------------------- Subject fixtures ----------------------------

// SubjectOption configures a generated subject.
type SubjectOption func(*persistence.Subject)

// NewSubject returns a deterministic subject record with optional overrides.
func NewSubject(opts ...SubjectOption) persistence.Subject {
	idx := atomic.AddUint64(&subjectCounter, 1)
	id := fmt.Sprintf("subject-%03d", idx)
	subject := persistence.Subject{
		ID:        id,
		FullName:  fmt.Sprintf("Subject %03d", idx),
		Email:     fmt.Sprintf("%s@example.com", id),
		Position:  "Engineer",
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&subject)
	}
	return subject
}

// WithSubjectID overrides the generated subject ID.
func WithSubjectID(id string) SubjectOption {
	return func(s *persistence.Subject) {
		s.ID = id
	}
}

// WithSubjectName overrides the subject's full name.
func WithSubjectName(name string) SubjectOption {
	return func(s *persistence.Subject) {
		s.FullName = name
	}
}

// WithSubjectEmail overrides the subject's email address.
func WithSubjectEmail(email string) SubjectOption {
	return func(s *persistence.Subject) {
		s.Email = email
	}
}

// WithSubjectPosition sets position and department.
func WithSubjectPosition(position, department string) SubjectOption {
	return func(s *persistence.Subject) {
		s.Position = position
		s.Department = department
	}
}

// -------------------------- Exit request fixtures -------------------------

// ExitRequestOption configures a generated exit request.
type ExitRequestOption func(*persistence.ExitRequest)

// NewExitRequest returns a deterministic exit request for the given subject.
func NewExitRequest(subjectID string, opts ...ExitRequestOption) persistence.ExitRequest {
	idx := atomic.AddUint64(&exitRequestCounter, 1)
	request := persistence.ExitRequest{
		ID:        fmt.Sprintf("exit-%03d", idx),
		SubjectID: subjectID,
		Reason:    "career change",
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&request)
	}
	return request
}

// WithExitRequestID overrides the generated exit request ID.
func WithExitRequestID(id string) ExitRequestOption {
	return func(r *persistence.ExitRequest) {
		r.ID = id
	}
}

// WithExitReason overrides the stated reason for leaving.
func WithExitReason(reason string) ExitRequestOption {
	return func(r *persistence.ExitRequest) {
		r.Reason = reason
	}
}

// WithLastWorkingDay sets the last working day.
func WithLastWorkingDay(day time.Time) ExitRequestOption {
	return func(r *persistence.ExitRequest) {
		r.LastWorkingDay = &day
	}
}

// --------------------------- Interview fixtures ---------------------------

// InterviewOption configures a generated interview record.
type InterviewOption func(*persistence.Interview)

// NewInterview returns a scheduled interview for the given exit request.
func NewInterview(request persistence.ExitRequest, opts ...InterviewOption) persistence.Interview {
	idx := atomic.AddUint64(&interviewCounter, 1)
	interview := persistence.Interview{
		ID:            fmt.Sprintf("interview-%03d", idx),
		SubjectID:     request.SubjectID,
		ExitRequestID: request.ID,
		Stage:         persistence.StageScheduled,
		ScheduledAt:   referenceTime,
		CreatedAt:     referenceTime,
		UpdatedAt:     referenceTime,
	}
	for _, opt := range opts {
		opt(&interview)
	}
	return interview
}

// WithInterviewID overrides the generated interview ID.
func WithInterviewID(id string) InterviewOption {
	return func(i *persistence.Interview) {
		i.ID = id
	}
}

// WithScheduledAt moves the scheduling instant, which drives expiry.
func WithScheduledAt(t time.Time) InterviewOption {
	return func(i *persistence.Interview) {
		i.ScheduledAt = t
		i.CreatedAt = t
		i.UpdatedAt = t
	}
}

// WithStage sets the stage and the timestamp the stage implies.
func WithStage(stage persistence.Stage) InterviewOption {
	return func(i *persistence.Interview) {
		i.Stage = stage
		at := i.ScheduledAt.Add(time.Hour)
		switch stage {
		case persistence.StageOngoing:
			i.StartedAt = &at
		case persistence.StageCompleted:
			i.StartedAt = &at
			done := at.Add(30 * time.Minute)
			i.CompletedAt = &done
		case persistence.StageFlagged:
			i.FlaggedAt = &at
		}
	}
}

// WithHistory sets the conversation history.
func WithHistory(turns ...persistence.Turn) InterviewOption {
	return func(i *persistence.Interview) {
		i.ConversationHistory = append([]persistence.Turn(nil), turns...)
	}
}

// AnsweredTurns builds n answered turns with predictable text.
func AnsweredTurns(n int) []persistence.Turn {
	turns := make([]persistence.Turn, n)
	for i := range turns {
		turns[i] = persistence.Turn{
			Question: fmt.Sprintf("Question %d?", i+1),
			Answer:   fmt.Sprintf("Answer %d", i+1),
		}
	}
	return turns
}
