package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultGenerationTimeout bounds one call to the generation collaborator.
const DefaultGenerationTimeout = 30 * time.Second

// ConversationOptions tunes a ConversationService. Zero values select defaults.
type ConversationOptions struct {
	WindowTurns       int
	MaxQuestions      int
	GenerationTimeout time.Duration
	Now               func() time.Time
	Logger            *slog.Logger
}

// ConversationService runs chat turns: it folds the respondent's answer into
// the session, asks the generation collaborator for the next step, and
// applies the validated result to the cache and the durable store.
type ConversationService struct {
	sessions   *SessionManager
	interviews InterviewRepository
	generator  Generator
	notifier   Notifier
	opts       ConversationOptions
	logger     *slog.Logger
}

// NewConversationService constructs a conversation service.
func NewConversationService(sessions *SessionManager, interviews InterviewRepository, generator Generator, notifier Notifier, opts ConversationOptions) *ConversationService {
	if opts.WindowTurns <= 0 {
		opts.WindowTurns = DefaultWindowTurns
	}
	if opts.MaxQuestions <= 0 {
		opts.MaxQuestions = DefaultMaxQuestions
	}
	if opts.GenerationTimeout <= 0 {
		opts.GenerationTimeout = DefaultGenerationTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &ConversationService{
		sessions:   sessions,
		interviews: interviews,
		generator:  generator,
		notifier:   notifier,
		opts:       opts,
		logger:     defaultLogger(opts.Logger),
	}
}

func (s *ConversationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ConversationService", operation, attrs...)
}

// Turn processes one chat turn. Any failure before the result is applied
// leaves the cached session untouched so the same turn can be resubmitted.
func (s *ConversationService) Turn(ctx context.Context, params TurnParams) (result TurnResult, err error) {
	if s == nil {
		err = fmt.Errorf("ConversationService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Turn", "session_id", params.SessionID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "chat turn failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "chat turn processed", "stage", result.Stage)
	}()

	entry, err := s.sessions.LoadSession(ctx, params.SessionID)
	if err != nil {
		return
	}
	logger = logger.With("interview_id", entry.InterviewID)
	if entry.Terminal || entry.Stage.Terminal() {
		err = fmt.Errorf("%w: interview is %s", ErrInvalidState, entry.Stage)
		return
	}

	answer := SanitizeAnswer(params.Answer)
	if awaitingAnswer(entry.History) && answer == "" {
		vErr := &ValidationError{}
		vErr.add("answer", "required")
		err = vErr
		return
	}

	working := entry.clone()
	working.History = foldAnswer(working.History, answer)
	phase := PhaseOf(working.History, s.opts.MaxQuestions)

	generated, err := s.generate(ctx, working, phase, answer)
	if err != nil {
		return
	}

	storedTurns := len(entry.History)
	if generated.Stage == StageCompleted {
		result, err = s.complete(ctx, working, storedTurns, generated)
		return
	}
	result, err = s.advance(ctx, working, storedTurns, generated)
	return
}

func (s *ConversationService) generate(ctx context.Context, working SessionEntry, phase Phase, answer string) (GenerationResult, error) {
	if s.generator == nil {
		return GenerationResult{}, fmt.Errorf("%w: generator not configured", ErrCollaboratorFailure)
	}

	genCtx, cancel := context.WithTimeout(ctx, s.opts.GenerationTimeout)
	defer cancel()

	generated, err := s.generator.Generate(genCtx, GenerationRequest{
		InterviewID:  working.InterviewID,
		Phase:        phase,
		Subject:      working.Subject,
		History:      Window(working.History, s.opts.WindowTurns),
		Answer:       answer,
		Answered:     AnsweredTurns(working.History),
		MaxQuestions: s.opts.MaxQuestions,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(genCtx.Err(), context.DeadlineExceeded) {
			return GenerationResult{}, fmt.Errorf("%w: %w: generation timed out", ErrCollaboratorFailure, ErrTransient)
		}
		return GenerationResult{}, fmt.Errorf("%w: %v", ErrCollaboratorFailure, err)
	}
	if err := ValidateGenerationResult(phase, working.History, generated); err != nil {
		return GenerationResult{}, err
	}
	return generated, nil
}

// advance appends the next question, records history in the durable store
// and refreshes the cached session. The durable write is guarded on the turn
// count the session was loaded with; the cache is refreshed only after it
// succeeds.
func (s *ConversationService) advance(ctx context.Context, working SessionEntry, storedTurns int, generated GenerationResult) (TurnResult, error) {
	now := s.opts.Now()
	working.History = append(working.History, Turn{Question: generated.Text})
	working.Stage = StageOngoing

	ongoing := StageOngoing
	err := s.interviews.UpdateInterview(ctx, working.InterviewID, InterviewUpdate{
		Stage:               &ongoing,
		StartedAt:           &now,
		ConversationHistory: working.History,
		ExpectedStages:      []Stage{StageScheduled, StageOngoing},
		ExpectedTurnCount:   &storedTurns,
		UpdatedAt:           now,
	})
	if err != nil {
		return TurnResult{}, s.handleDurableConflict(ctx, working, err)
	}

	if err := s.sessions.RefreshSession(ctx, working); err != nil {
		return TurnResult{}, err
	}
	return TurnResult{Stage: StageOngoing, Text: generated.Text}, nil
}

// complete writes the terminal state to the durable store in one guarded
// update, then retires the cached session and notifies the subject.
func (s *ConversationService) complete(ctx context.Context, working SessionEntry, storedTurns int, generated GenerationResult) (TurnResult, error) {
	now := s.opts.Now()
	summary := *generated.Summary
	if summary.ClosingText == "" {
		summary.ClosingText = generated.Text
	}

	completed := StageCompleted
	err := s.interviews.UpdateInterview(ctx, working.InterviewID, InterviewUpdate{
		Stage:               &completed,
		StartedAt:           &now,
		CompletedAt:         &now,
		ConversationHistory: working.History,
		FinalSummary:        &summary,
		ExpectedStages:      []Stage{StageScheduled, StageOngoing},
		ExpectedTurnCount:   &storedTurns,
		UpdatedAt:           now,
	})
	if err != nil {
		return TurnResult{}, s.handleDurableConflict(ctx, working, err)
	}

	s.sessions.MarkTerminal(ctx, working.InterviewID, StageCompleted)

	if working.Subject.Email != "" {
		s.notifier.Notify(ctx, Notification{
			Kind:        NotificationCompleted,
			To:          working.Subject.Email,
			Subject:     "Exit Interview Completed",
			InterviewID: working.InterviewID,
			Data: map[string]string{
				"name":  working.Subject.Name,
				"title": working.Subject.Position,
			},
		})
	}

	text := generated.Text
	if text == "" {
		text = summary.ClosingText
	}
	return TurnResult{Stage: StageCompleted, Text: text, Summary: &summary}, nil
}

// handleDurableConflict classifies a failed guarded update. The cached
// session is never refreshed after a failed write:
//   - a missing record ends the session;
//   - a terminal record marks the session terminal and reports InvalidState;
//   - a record whose history moved past the session retires the session so
//     the client re-resolves from the durable history;
//   - any other store failure is transient and the turn can be resubmitted.
func (s *ConversationService) handleDurableConflict(ctx context.Context, working SessionEntry, updateErr error) error {
	logger := s.loggerWith(ctx, "handleDurableConflict", "interview_id", working.InterviewID, "session_id", working.SessionID)

	if isNotFound(updateErr) {
		return fmt.Errorf("%w: interview record missing", ErrSessionNotFound)
	}
	if !isConflict(updateErr) {
		return fmt.Errorf("%w: persist turn: %v", ErrTransient, updateErr)
	}

	current, err := s.interviews.GetInterview(ctx, working.InterviewID)
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: interview record missing", ErrSessionNotFound)
		}
		return fmt.Errorf("%w: re-read interview after conflict: %v", ErrTransient, err)
	}
	if current.Stage.Terminal() {
		s.sessions.MarkTerminal(ctx, working.InterviewID, current.Stage)
		return fmt.Errorf("%w: interview is %s", ErrInvalidState, current.Stage)
	}

	stale := fmt.Errorf("%w: %w: durable history has %d turns, session is behind", ErrSessionNotFound, ErrTransient, len(current.ConversationHistory))
	logger.WarnContext(ctx, "session is behind the durable record", "stored_turns", len(current.ConversationHistory))
	s.sessions.Retire(ctx, working, stale)
	return stale
}
