package application

import "time"

// Stage is the persisted lifecycle position of an interview.
type Stage string

const (
	StageScheduled Stage = "scheduled"
	StageOngoing   Stage = "ongoing"
	StageCompleted Stage = "completed"
	StageFlagged   Stage = "flagged"
)

// Terminal reports whether no further conversation turns are accepted.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageFlagged
}

// Status is the read-time view of an interview. It extends Stage with the
// derived expired value and not_found.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
	StatusFlagged   Status = "flagged"
	StatusExpired   Status = "expired"
	StatusNotFound  Status = "not_found"
)

// Turn is one question/answer exchange.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
}

// Recommendation is whether the departing employee would recommend the company.
type Recommendation string

const (
	RecommendationWould    Recommendation = "would_recommend"
	RecommendationWouldNot Recommendation = "would_not_recommend"
	RecommendationNeutral  Recommendation = "neutral"
)

// ReturnIntent is whether the departing employee would consider returning.
type ReturnIntent string

const (
	ReturnIntentWould    ReturnIntent = "would_return"
	ReturnIntentWouldNot ReturnIntent = "would_not_return"
	ReturnIntentUnstated ReturnIntent = "unstated"
)

// FinalSummary is the structured evaluation produced on completion.
type FinalSummary struct {
	ClosingText    string         `json:"closing_text"`
	Summary        string         `json:"summary"`
	Recommendation Recommendation `json:"recommendation"`
	ReturnIntent   ReturnIntent   `json:"return_intent"`
	Rating         int            `json:"rating"`
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

// InterviewUpdate is a field-level update. Nil fields are left untouched;
// ExpectedStages and ExcludedStage guard the update on the stored stage and
// ExpectedTurnCount on the number of stored turns.
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

// InterviewView pairs a record with its read-time status.
type InterviewView struct {
	Interview Interview
	Status    Status
}

// Subject is the departing employee.
type Subject struct {
	ID         string
	FullName   string
	Email      string
	Position   string
	Department string
	CreatedAt  time.Time
}

// ExitRequest is the HR request an interview is scheduled from.
type ExitRequest struct {
	ID             string
	SubjectID      string
	Reason         string
	LastWorkingDay *time.Time
	CreatedAt      time.Time
}

// SubjectContext is the profile information handed to the generation collaborator.
type SubjectContext struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Position   string `json:"position"`
	Department string `json:"department,omitempty"`
	ExitReason string `json:"exit_reason,omitempty"`
}

// Session is the result of resolving a session for an interview.
type Session struct {
	ID          string
	InterviewID string
	SubjectID   string
	Stage       Stage
	ChatHistory []Turn
}

// ScheduleParams identifies the exit request to schedule an interview for.
type ScheduleParams struct {
	ExitRequestID string
}

// FlagParams carries an operator's flag action.
type FlagParams struct {
	InterviewID string
	Remarks     string
}

// TurnParams carries one chat turn from the respondent.
type TurnParams struct {
	SessionID string
	Answer    string
}

// TurnResult is the interviewer's reply to a chat turn.
type TurnResult struct {
	Stage   Stage
	Text    string
	Summary *FinalSummary
}

// SubjectInput captures caller provided subject fields.
type SubjectInput struct {
	FullName   string
	Email      string
	Position   string
	Department string
}

// ExitRequestInput captures caller provided exit request fields.
type ExitRequestInput struct {
	SubjectID      string
	Reason         string
	LastWorkingDay *time.Time
}
