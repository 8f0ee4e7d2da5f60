package application

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/example/exit-interview/internal/persistence"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(start time.Time) *testClock {
	return &testClock{now: start}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// interviewRepoStub keeps records in memory and enforces the same update
// guards as the SQLite repository.
type interviewRepoStub struct {
	mu      sync.Mutex
	records map[string]Interview
	updates int

	getErr    error
	updateErr error
}

func newInterviewRepoStub(records ...Interview) *interviewRepoStub {
	repo := &interviewRepoStub{records: make(map[string]Interview)}
	for _, record := range records {
		repo.records[record.ID] = record
	}
	return repo
}

func (r *interviewRepoStub) CreateInterview(ctx context.Context, interview Interview) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[interview.ID]; exists {
		return persistence.ErrDuplicate
	}
	r.records[interview.ID] = interview
	return nil
}

func (r *interviewRepoStub) GetInterview(ctx context.Context, id string) (Interview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return Interview{}, r.getErr
	}
	record, ok := r.records[id]
	if !ok {
		return Interview{}, persistence.ErrNotFound
	}
	record.ConversationHistory = slices.Clone(record.ConversationHistory)
	return record, nil
}

func (r *interviewRepoStub) UpdateInterview(ctx context.Context, id string, update InterviewUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	record, ok := r.records[id]
	if !ok {
		return persistence.ErrNotFound
	}
	if len(update.ExpectedStages) > 0 && !slices.Contains(update.ExpectedStages, record.Stage) {
		return fmt.Errorf("%w: stage is %s", persistence.ErrConflict, record.Stage)
	}
	if update.ExcludedStage != nil && record.Stage == *update.ExcludedStage {
		return fmt.Errorf("%w: stage is %s", persistence.ErrConflict, record.Stage)
	}
	if update.ExpectedTurnCount != nil && len(record.ConversationHistory) != *update.ExpectedTurnCount {
		return fmt.Errorf("%w: stored history has %d turns", persistence.ErrConflict, len(record.ConversationHistory))
	}
	if update.ConversationHistory != nil && len(record.ConversationHistory) > len(update.ConversationHistory) {
		return fmt.Errorf("%w: history would shrink", persistence.ErrConflict)
	}

	if update.Stage != nil {
		record.Stage = *update.Stage
	}
	if update.StartedAt != nil && record.StartedAt == nil {
		started := *update.StartedAt
		record.StartedAt = &started
	}
	if update.CompletedAt != nil {
		record.CompletedAt = update.CompletedAt
	}
	if update.FlaggedAt != nil {
		record.FlaggedAt = update.FlaggedAt
	}
	if update.ConversationHistory != nil {
		record.ConversationHistory = slices.Clone(update.ConversationHistory)
	}
	if update.FinalSummary != nil {
		summary := *update.FinalSummary
		record.FinalSummary = &summary
	}
	if update.FlaggedRemarks != nil {
		remarks := *update.FlaggedRemarks
		record.FlaggedRemarks = &remarks
	}
	record.UpdatedAt = update.UpdatedAt
	r.records[id] = record
	r.updates++
	return nil
}

func (r *interviewRepoStub) FindBySubject(ctx context.Context, subjectID string) ([]Interview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Interview
	for _, record := range r.records {
		if record.SubjectID == subjectID {
			out = append(out, record)
		}
	}
	slices.SortFunc(out, func(a, b Interview) int {
		if c := a.ScheduledAt.Compare(b.ScheduledAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		return 1
	})
	return out, nil
}

func (r *interviewRepoStub) record(id string) Interview {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[id]
}

type directoryRepoStub struct {
	mu       sync.Mutex
	subjects map[string]Subject
	requests map[string]ExitRequest
}

func newDirectoryRepoStub() *directoryRepoStub {
	return &directoryRepoStub{
		subjects: make(map[string]Subject),
		requests: make(map[string]ExitRequest),
	}
}

func (d *directoryRepoStub) CreateSubject(ctx context.Context, subject Subject) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.subjects[subject.ID]; exists {
		return persistence.ErrDuplicate
	}
	d.subjects[subject.ID] = subject
	return nil
}

func (d *directoryRepoStub) GetSubject(ctx context.Context, id string) (Subject, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	subject, ok := d.subjects[id]
	if !ok {
		return Subject{}, persistence.ErrNotFound
	}
	return subject, nil
}

func (d *directoryRepoStub) CreateExitRequest(ctx context.Context, request ExitRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requests[request.ID] = request
	return nil
}

func (d *directoryRepoStub) GetExitRequest(ctx context.Context, id string) (ExitRequest, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	request, ok := d.requests[id]
	if !ok {
		return ExitRequest{}, persistence.ErrNotFound
	}
	return request, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (n *recordingNotifier) Notify(ctx context.Context, notification Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
}

func (n *recordingNotifier) notifications() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.sent)
}

type generatorFunc func(ctx context.Context, req GenerationRequest) (GenerationResult, error)

func (f generatorFunc) Generate(ctx context.Context, req GenerationRequest) (GenerationResult, error) {
	return f(ctx, req)
}

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func testSubject() Subject {
	return Subject{
		ID:         "subject-1",
		FullName:   "Hanako Yamada",
		Email:      "hanako@example.com",
		Position:   "Engineer",
		Department: "Platform",
		CreatedAt:  baseTime,
	}
}

func testExitRequest() ExitRequest {
	return ExitRequest{ID: "exit-1", SubjectID: "subject-1", Reason: "relocation", CreatedAt: baseTime}
}

func scheduledInterview(id string) Interview {
	return Interview{
		ID:            id,
		SubjectID:     "subject-1",
		ExitRequestID: "exit-1",
		Stage:         StageScheduled,
		ScheduledAt:   baseTime,
		CreatedAt:     baseTime,
		UpdatedAt:     baseTime,
	}
}

func newTestDirectory() *directoryRepoStub {
	directory := newDirectoryRepoStub()
	directory.subjects["subject-1"] = testSubject()
	directory.requests["exit-1"] = testExitRequest()
	return directory
}
