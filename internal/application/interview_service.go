package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// InterviewOptions tunes an InterviewService. Zero values select defaults.
type InterviewOptions struct {
	ExpiryWindow    time.Duration
	FrontendBaseURL string
	HREmail         string
	IDGenerator     func() string
	Now             func() time.Time
	Logger          *slog.Logger
}

// InterviewService schedules interviews and serves operator actions and
// status reads against the durable store.
type InterviewService struct {
	interviews InterviewRepository
	directory  DirectoryRepository
	sessions   *SessionManager
	notifier   Notifier
	opts       InterviewOptions
	logger     *slog.Logger
}

// NewInterviewService constructs an interview service. sessions may be nil,
// in which case flagging does not retire cached sessions.
func NewInterviewService(interviews InterviewRepository, directory DirectoryRepository, sessions *SessionManager, notifier Notifier, opts InterviewOptions) *InterviewService {
	if opts.ExpiryWindow <= 0 {
		opts.ExpiryWindow = DefaultExpiryWindow
	}
	if opts.IDGenerator == nil {
		opts.IDGenerator = func() string { return "" }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &InterviewService{
		interviews: interviews,
		directory:  directory,
		sessions:   sessions,
		notifier:   notifier,
		opts:       opts,
		logger:     defaultLogger(opts.Logger),
	}
}

func (s *InterviewService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "InterviewService", operation, attrs...)
}

// Schedule creates a scheduled interview for an exit request and notifies the
// subject with a link to start it.
func (s *InterviewService) Schedule(ctx context.Context, params ScheduleParams) (interview Interview, err error) {
	if s == nil {
		err = fmt.Errorf("InterviewService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Schedule", "exit_request_id", params.ExitRequestID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to schedule interview", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("interview_id", interview.ID).InfoContext(ctx, "interview scheduled")
	}()

	exitRequestID := strings.TrimSpace(params.ExitRequestID)
	if exitRequestID == "" {
		vErr := &ValidationError{}
		vErr.add("exit_request_id", "required")
		err = vErr
		return
	}

	request, err := s.directory.GetExitRequest(ctx, exitRequestID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	subject, err := s.directory.GetSubject(ctx, request.SubjectID)
	if err != nil {
		if isNotFound(err) {
			err = fmt.Errorf("%w: %w", ErrSubjectNotFound, ErrNotFound)
		}
		return
	}

	now := s.opts.Now()
	interview = Interview{
		ID:            s.opts.IDGenerator(),
		SubjectID:     subject.ID,
		ExitRequestID: request.ID,
		Stage:         StageScheduled,
		ScheduledAt:   now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err = s.interviews.CreateInterview(ctx, interview); err != nil {
		err = mapRepoError(err)
		return
	}

	s.notifier.Notify(ctx, Notification{
		Kind:        NotificationScheduled,
		To:          subject.Email,
		Subject:     "Exit Interview Scheduled",
		InterviewID: interview.ID,
		Data: map[string]string{
			"name":  subject.FullName,
			"title": subject.Position,
			"link":  s.interviewLink(interview.ID),
		},
	})
	return
}

// Flag marks an interview as flagged with operator remarks. Completed
// interviews may be flagged retroactively; flagging twice is rejected and
// leaves the original remarks in place.
func (s *InterviewService) Flag(ctx context.Context, params FlagParams) (interview Interview, err error) {
	if s == nil {
		err = fmt.Errorf("InterviewService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Flag", "interview_id", params.InterviewID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to flag interview", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "interview flagged")
	}()

	vErr := &ValidationError{}
	if strings.TrimSpace(params.InterviewID) == "" {
		vErr.add("interview_id", "required")
	}
	remarks := strings.TrimSpace(params.Remarks)
	if remarks == "" {
		vErr.add("remarks", "required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.opts.Now()
	flagged := StageFlagged
	err = s.interviews.UpdateInterview(ctx, params.InterviewID, InterviewUpdate{
		Stage:          &flagged,
		FlaggedAt:      &now,
		FlaggedRemarks: &remarks,
		ExcludedStage:  &flagged,
		UpdatedAt:      now,
	})
	if err != nil {
		if isConflict(err) {
			err = fmt.Errorf("%w: interview already flagged", ErrInvalidState)
			return
		}
		err = mapRepoError(err)
		return
	}

	if s.sessions != nil {
		s.sessions.MarkTerminal(ctx, params.InterviewID, StageFlagged)
	}

	interview, err = s.interviews.GetInterview(ctx, params.InterviewID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	if s.opts.HREmail != "" {
		s.notifier.Notify(ctx, Notification{
			Kind:        NotificationFlagged,
			To:          s.opts.HREmail,
			Subject:     "Exit Interview Flagged",
			InterviewID: interview.ID,
			Data: map[string]string{
				"remarks":    remarks,
				"subject_id": interview.SubjectID,
			},
		})
	}
	return
}

// Status classifies an interview for read-time display. Unknown ids return
// StatusNotFound together with ErrNotFound.
func (s *InterviewService) Status(ctx context.Context, interviewID string) (Status, error) {
	interview, err := s.interviews.GetInterview(ctx, interviewID)
	if err != nil {
		if isNotFound(err) {
			return StatusNotFound, ErrNotFound
		}
		s.loggerWith(ctx, "Status", "interview_id", interviewID).ErrorContext(ctx, "failed to read interview", "error", err)
		return "", err
	}
	return ClassifyStatus(interview, s.opts.Now(), s.opts.ExpiryWindow), nil
}

// GetInterview returns the full durable record with its read-time status.
func (s *InterviewService) GetInterview(ctx context.Context, interviewID string) (InterviewView, error) {
	interview, err := s.interviews.GetInterview(ctx, interviewID)
	if err != nil {
		return InterviewView{}, mapRepoError(err)
	}
	return InterviewView{Interview: interview, Status: ClassifyStatus(interview, s.opts.Now(), s.opts.ExpiryWindow)}, nil
}

// ListBySubject returns every interview held for a subject, oldest first.
func (s *InterviewService) ListBySubject(ctx context.Context, subjectID string) ([]InterviewView, error) {
	if _, err := s.directory.GetSubject(ctx, subjectID); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %w", ErrSubjectNotFound, ErrNotFound)
		}
		return nil, err
	}
	interviews, err := s.interviews.FindBySubject(ctx, subjectID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	now := s.opts.Now()
	views := make([]InterviewView, 0, len(interviews))
	for _, interview := range interviews {
		views = append(views, InterviewView{Interview: interview, Status: ClassifyStatus(interview, now, s.opts.ExpiryWindow)})
	}
	return views, nil
}

func (s *InterviewService) interviewLink(interviewID string) string {
	base := strings.TrimRight(s.opts.FrontendBaseURL, "/")
	if base == "" {
		return interviewID
	}
	return base + "/" + interviewID
}
