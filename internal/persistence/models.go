package persistence

import "time"

// Stage is the persisted lifecycle position of an interview. Expiry is never
// stored; it is derived at read time from ScheduledAt.
type Stage string

const (
	StageScheduled Stage = "scheduled"
	StageOngoing   Stage = "ongoing"
	StageCompleted Stage = "completed"
	StageFlagged   Stage = "flagged"
)

// Turn is one question/answer exchange.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
}

// FinalSummary is the structured evaluation stored on completion.
type FinalSummary struct {
	ClosingText    string `json:"closing_text"`
	Summary        string `json:"summary"`
	Recommendation string `json:"recommendation"`
	ReturnIntent   string `json:"return_intent"`
	Rating         int    `json:"rating"`
}

// Interview is the durable record of one exit interview.
type Interview struct {
	ID                  string
	SubjectID           string
	ExitRequestID       string
	Stage               Stage
	ScheduledAt         time.Time
	StartedAt           *time.Time
	CompletedAt         *time.Time
	FlaggedAt           *time.Time
	ConversationHistory []Turn
	FinalSummary        *FinalSummary
	FlaggedRemarks      *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// InterviewUpdate is a field-level update. Nil fields are left untouched.
// ExpectedStages, when non-empty, guards the update on the current stage and
// ExcludedStage rejects the update when the record is already in that stage.
// ExpectedTurnCount, when set, requires the stored history to hold exactly
// that many turns.
type InterviewUpdate struct {
	Stage               *Stage
	StartedAt           *time.Time
	CompletedAt         *time.Time
	FlaggedAt           *time.Time
	ConversationHistory []Turn
	FinalSummary        *FinalSummary
	FlaggedRemarks      *string
	ExpectedStages      []Stage
	ExcludedStage       *Stage
	ExpectedTurnCount   *int
	UpdatedAt           time.Time
}

// Subject is the employee an interview is conducted with.
type Subject struct {
	ID         string
	FullName   string
	Email      string
	Position   string
	Department string
	CreatedAt  time.Time
}

// ExitRequest is the originating request an interview is scheduled from.
type ExitRequest struct {
	ID             string
	SubjectID      string
	Reason         string
	LastWorkingDay *time.Time
	CreatedAt      time.Time
}
