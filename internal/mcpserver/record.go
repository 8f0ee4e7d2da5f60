package mcpserver

import (
	"time"

	"github.com/example/exit-interview/internal/application"
)

type record struct {
	ID             string                    `json:"id"`
	SubjectID      string                    `json:"subject_id"`
	ExitRequestID  string                    `json:"exit_request_id"`
	Status         application.Status        `json:"status"`
	ScheduledAt    time.Time                 `json:"scheduled_at"`
	CompletedAt    *time.Time                `json:"completed_at,omitempty"`
	FlaggedAt      *time.Time                `json:"flagged_at,omitempty"`
	History        []application.Turn        `json:"conversation_history"`
	FinalSummary   *application.FinalSummary `json:"final_summary,omitempty"`
	FlaggedRemarks *string                   `json:"flagged_remarks,omitempty"`
}

func toRecord(view application.InterviewView) record {
	interview := view.Interview
	history := interview.ConversationHistory
	if history == nil {
		history = []application.Turn{}
	}
	return record{
		ID:             interview.ID,
		SubjectID:      interview.SubjectID,
		ExitRequestID:  interview.ExitRequestID,
		Status:         view.Status,
		ScheduledAt:    interview.ScheduledAt,
		CompletedAt:    interview.CompletedAt,
		FlaggedAt:      interview.FlaggedAt,
		History:        history,
		FinalSummary:   interview.FinalSummary,
		FlaggedRemarks: interview.FlaggedRemarks,
	}
}
