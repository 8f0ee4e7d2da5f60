package bootstrap

import (
	"context"

	"github.com/example/exit-interview/internal/application"
	"github.com/example/exit-interview/internal/persistence"
)

type interviewRepositoryAdapter struct {
	repo persistence.InterviewRepository
}

func newInterviewRepositoryAdapter(repo persistence.InterviewRepository) *interviewRepositoryAdapter {
	return &interviewRepositoryAdapter{repo: repo}
}

func (a *interviewRepositoryAdapter) CreateInterview(ctx context.Context, interview application.Interview) error {
	return a.repo.CreateInterview(ctx, toPersistenceInterview(interview))
}

func (a *interviewRepositoryAdapter) GetInterview(ctx context.Context, id string) (application.Interview, error) {
	stored, err := a.repo.GetInterview(ctx, id)
	if err != nil {
		return application.Interview{}, err
	}
	return toApplicationInterview(stored), nil
}

func (a *interviewRepositoryAdapter) UpdateInterview(ctx context.Context, id string, update application.InterviewUpdate) error {
	return a.repo.UpdateInterview(ctx, id, toPersistenceUpdate(update))
}

func (a *interviewRepositoryAdapter) FindBySubject(ctx context.Context, subjectID string) ([]application.Interview, error) {
	models, err := a.repo.FindBySubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	interviews := make([]application.Interview, 0, len(models))
	for _, model := range models {
		interviews = append(interviews, toApplicationInterview(model))
	}
	return interviews, nil
}

type directoryRepositoryAdapter struct {
	repo persistence.DirectoryRepository
}

func newDirectoryRepositoryAdapter(repo persistence.DirectoryRepository) *directoryRepositoryAdapter {
	return &directoryRepositoryAdapter{repo: repo}
}

func (a *directoryRepositoryAdapter) CreateSubject(ctx context.Context, subject application.Subject) error {
	return a.repo.CreateSubject(ctx, persistence.Subject{
		ID:         subject.ID,
		FullName:   subject.FullName,
		Email:      subject.Email,
		Position:   subject.Position,
		Department: subject.Department,
		CreatedAt:  subject.CreatedAt,
	})
}

func (a *directoryRepositoryAdapter) GetSubject(ctx context.Context, id string) (application.Subject, error) {
	stored, err := a.repo.GetSubject(ctx, id)
	if err != nil {
		return application.Subject{}, err
	}
	return application.Subject{
		ID:         stored.ID,
		FullName:   stored.FullName,
		Email:      stored.Email,
		Position:   stored.Position,
		Department: stored.Department,
		CreatedAt:  stored.CreatedAt,
	}, nil
}

func (a *directoryRepositoryAdapter) CreateExitRequest(ctx context.Context, request application.ExitRequest) error {
	return a.repo.CreateExitRequest(ctx, persistence.ExitRequest{
		ID:             request.ID,
		SubjectID:      request.SubjectID,
		Reason:         request.Reason,
		LastWorkingDay: request.LastWorkingDay,
		CreatedAt:      request.CreatedAt,
	})
}

func (a *directoryRepositoryAdapter) GetExitRequest(ctx context.Context, id string) (application.ExitRequest, error) {
	stored, err := a.repo.GetExitRequest(ctx, id)
	if err != nil {
		return application.ExitRequest{}, err
	}
	return application.ExitRequest{
		ID:             stored.ID,
		SubjectID:      stored.SubjectID,
		Reason:         stored.Reason,
		LastWorkingDay: stored.LastWorkingDay,
		CreatedAt:      stored.CreatedAt,
	}, nil
}

func toPersistenceInterview(interview application.Interview) persistence.Interview {
	return persistence.Interview{
		ID:                  interview.ID,
		SubjectID:           interview.SubjectID,
		ExitRequestID:       interview.ExitRequestID,
		Stage:               persistence.Stage(interview.Stage),
		ScheduledAt:         interview.ScheduledAt,
		StartedAt:           interview.StartedAt,
		CompletedAt:         interview.CompletedAt,
		FlaggedAt:           interview.FlaggedAt,
		ConversationHistory: toPersistenceTurns(interview.ConversationHistory),
		FinalSummary:        toPersistenceSummary(interview.FinalSummary),
		FlaggedRemarks:      interview.FlaggedRemarks,
		CreatedAt:           interview.CreatedAt,
		UpdatedAt:           interview.UpdatedAt,
	}
}

func toApplicationInterview(model persistence.Interview) application.Interview {
	return application.Interview{
		ID:                  model.ID,
		SubjectID:           model.SubjectID,
		ExitRequestID:       model.ExitRequestID,
		Stage:               application.Stage(model.Stage),
		ScheduledAt:         model.ScheduledAt,
		StartedAt:           model.StartedAt,
		CompletedAt:         model.CompletedAt,
		FlaggedAt:           model.FlaggedAt,
		ConversationHistory: toApplicationTurns(model.ConversationHistory),
		FinalSummary:        toApplicationSummary(model.FinalSummary),
		FlaggedRemarks:      model.FlaggedRemarks,
		CreatedAt:           model.CreatedAt,
		UpdatedAt:           model.UpdatedAt,
	}
}

func toPersistenceUpdate(update application.InterviewUpdate) persistence.InterviewUpdate {
	out := persistence.InterviewUpdate{
		StartedAt:           update.StartedAt,
		CompletedAt:         update.CompletedAt,
		FlaggedAt:           update.FlaggedAt,
		ConversationHistory: toPersistenceTurns(update.ConversationHistory),
		FinalSummary:        toPersistenceSummary(update.FinalSummary),
		FlaggedRemarks:      update.FlaggedRemarks,
		ExpectedTurnCount:   update.ExpectedTurnCount,
		UpdatedAt:           update.UpdatedAt,
	}
	if update.Stage != nil {
		stage := persistence.Stage(*update.Stage)
		out.Stage = &stage
	}
	if update.ExcludedStage != nil {
		stage := persistence.Stage(*update.ExcludedStage)
		out.ExcludedStage = &stage
	}
	for _, stage := range update.ExpectedStages {
		out.ExpectedStages = append(out.ExpectedStages, persistence.Stage(stage))
	}
	return out
}

func toPersistenceTurns(turns []application.Turn) []persistence.Turn {
	if turns == nil {
		return nil
	}
	out := make([]persistence.Turn, len(turns))
	for i, turn := range turns {
		out[i] = persistence.Turn{Question: turn.Question, Answer: turn.Answer}
	}
	return out
}

func toApplicationTurns(turns []persistence.Turn) []application.Turn {
	out := make([]application.Turn, len(turns))
	for i, turn := range turns {
		out[i] = application.Turn{Question: turn.Question, Answer: turn.Answer}
	}
	return out
}

func toPersistenceSummary(summary *application.FinalSummary) *persistence.FinalSummary {
	if summary == nil {
		return nil
	}
	return &persistence.FinalSummary{
		ClosingText:    summary.ClosingText,
		Summary:        summary.Summary,
		Recommendation: string(summary.Recommendation),
		ReturnIntent:   string(summary.ReturnIntent),
		Rating:         summary.Rating,
	}
}

func toApplicationSummary(summary *persistence.FinalSummary) *application.FinalSummary {
	if summary == nil {
		return nil
	}
	return &application.FinalSummary{
		ClosingText:    summary.ClosingText,
		Summary:        summary.Summary,
		Recommendation: application.Recommendation(summary.Recommendation),
		ReturnIntent:   application.ReturnIntent(summary.ReturnIntent),
		Rating:         summary.Rating,
	}
}
