package application

import "context"

// Phase is the conversational phase derived from history.
type Phase string

const (
	PhaseOpening     Phase = "opening"
	PhaseQuestioning Phase = "questioning"
	PhaseClosing     Phase = "closing"
)

// GenerationRequest is the bounded context handed to the generation collaborator.
type GenerationRequest struct {
	InterviewID  string         `json:"interview_id"`
	Phase        Phase          `json:"phase"`
	Subject      SubjectContext `json:"subject"`
	History      []Turn         `json:"history"`
	Answer       string         `json:"answer,omitempty"`
	Answered     int            `json:"answered"`
	MaxQuestions int            `json:"max_questions"`
}

// GenerationResult is the collaborator's reply. Stage is either ongoing with
// the next question in Text, or completed with a Summary.
type GenerationResult struct {
	Stage   Stage         `json:"stage"`
	Text    string        `json:"text"`
	Summary *FinalSummary `json:"summary,omitempty"`
}

// Generator produces the next interviewer turn or the final evaluation.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (GenerationResult, error)
}

// NotificationKind names the events that trigger an outbound notification.
type NotificationKind string

const (
	NotificationScheduled NotificationKind = "interview_scheduled"
	NotificationCompleted NotificationKind = "interview_completed"
	NotificationFlagged   NotificationKind = "interview_flagged"
)

// Notification is an outbound message request.
type Notification struct {
	Kind        NotificationKind  `json:"type"`
	To          string            `json:"to"`
	Subject     string            `json:"subject"`
	InterviewID string            `json:"interview_id"`
	Data        map[string]string `json:"data,omitempty"`
}

// Notifier dispatches notifications without blocking the caller. Delivery
// failures are the notifier's concern and never reach the service.
type Notifier interface {
	Notify(ctx context.Context, notification Notification)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Notification) {}
