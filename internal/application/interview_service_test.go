package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newInterviewHarness(t *testing.T, records ...Interview) (*InterviewService, *sessionHarness, *recordingNotifier) {
	t.Helper()
	h := newSessionHarness(t, records...)
	notifier := &recordingNotifier{}
	svc := NewInterviewService(h.interviews, h.directory, h.manager, notifier, InterviewOptions{
		FrontendBaseURL: "https://interviews.example.com/",
		HREmail:         "hr@example.com",
		IDGenerator:     func() string { return "iv-new" },
		Now:             h.clock.Now,
	})
	return svc, h, notifier
}

func TestInterviewService_Schedule(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a scheduled interview and notifies the subject", func(t *testing.T) {
		svc, h, notifier := newInterviewHarness(t)

		interview, err := svc.Schedule(ctx, ScheduleParams{ExitRequestID: "exit-1"})
		if err != nil {
			t.Fatalf("Schedule returned error: %v", err)
		}
		if interview.ID != "iv-new" || interview.Stage != StageScheduled || !interview.ScheduledAt.Equal(baseTime) {
			t.Fatalf("unexpected interview: %+v", interview)
		}
		if stored := h.interviews.record("iv-new"); stored.SubjectID != "subject-1" || stored.ExitRequestID != "exit-1" {
			t.Fatalf("unexpected stored interview: %+v", stored)
		}

		sent := notifier.notifications()
		if len(sent) != 1 {
			t.Fatalf("expected one notification, got %d", len(sent))
		}
		if sent[0].Kind != NotificationScheduled || sent[0].To != "hanako@example.com" {
			t.Fatalf("unexpected notification: %+v", sent[0])
		}
		if link := sent[0].Data["link"]; link != "https://interviews.example.com/iv-new" {
			t.Fatalf("unexpected link %q", link)
		}
	})

	t.Run("requires an exit request id", func(t *testing.T) {
		svc, _, _ := newInterviewHarness(t)
		_, err := svc.Schedule(ctx, ScheduleParams{ExitRequestID: " "})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("unknown exit request", func(t *testing.T) {
		svc, _, notifier := newInterviewHarness(t)
		_, err := svc.Schedule(ctx, ScheduleParams{ExitRequestID: "exit-404"})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if len(notifier.notifications()) != 0 {
			t.Fatalf("expected no notification")
		}
	})

	t.Run("exit request for a missing subject", func(t *testing.T) {
		svc, h, _ := newInterviewHarness(t)
		h.directory.requests["exit-2"] = ExitRequest{ID: "exit-2", SubjectID: "ghost"}
		_, err := svc.Schedule(ctx, ScheduleParams{ExitRequestID: "exit-2"})
		if !errors.Is(err, ErrSubjectNotFound) {
			t.Fatalf("expected ErrSubjectNotFound, got %v", err)
		}
	})
}

func TestInterviewService_Flag(t *testing.T) {
	ctx := context.Background()

	t.Run("requires remarks", func(t *testing.T) {
		svc, _, _ := newInterviewHarness(t, scheduledInterview("iv-1"))
		_, err := svc.Flag(ctx, FlagParams{InterviewID: "iv-1", Remarks: "  "})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["remarks"]; !ok {
			t.Fatalf("expected remarks error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("flags and notifies hr", func(t *testing.T) {
		svc, _, notifier := newInterviewHarness(t, scheduledInterview("iv-1"))

		interview, err := svc.Flag(ctx, FlagParams{InterviewID: "iv-1", Remarks: "abusive language"})
		if err != nil {
			t.Fatalf("Flag returned error: %v", err)
		}
		if interview.Stage != StageFlagged || interview.FlaggedRemarks == nil || *interview.FlaggedRemarks != "abusive language" {
			t.Fatalf("unexpected interview: %+v", interview)
		}
		sent := notifier.notifications()
		if len(sent) != 1 || sent[0].Kind != NotificationFlagged || sent[0].To != "hr@example.com" {
			t.Fatalf("expected hr notification, got %+v", sent)
		}
	})

	t.Run("second flag is rejected and keeps original remarks", func(t *testing.T) {
		svc, h, _ := newInterviewHarness(t, scheduledInterview("iv-1"))
		if _, err := svc.Flag(ctx, FlagParams{InterviewID: "iv-1", Remarks: "first"}); err != nil {
			t.Fatalf("Flag returned error: %v", err)
		}

		_, err := svc.Flag(ctx, FlagParams{InterviewID: "iv-1", Remarks: "second"})
		if !errors.Is(err, ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState, got %v", err)
		}
		if remarks := h.interviews.record("iv-1").FlaggedRemarks; remarks == nil || *remarks != "first" {
			t.Fatalf("expected original remarks, got %v", remarks)
		}
	})

	t.Run("completed interview can be flagged", func(t *testing.T) {
		record := scheduledInterview("iv-1")
		record.Stage = StageCompleted
		svc, _, _ := newInterviewHarness(t, record)

		interview, err := svc.Flag(ctx, FlagParams{InterviewID: "iv-1", Remarks: "late review"})
		if err != nil {
			t.Fatalf("Flag returned error: %v", err)
		}
		if interview.Stage != StageFlagged {
			t.Fatalf("expected flagged, got %s", interview.Stage)
		}
	})

	t.Run("unknown interview", func(t *testing.T) {
		svc, _, _ := newInterviewHarness(t)
		_, err := svc.Flag(ctx, FlagParams{InterviewID: "nope", Remarks: "x"})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("retires the live session", func(t *testing.T) {
		svc, h, _ := newInterviewHarness(t, scheduledInterview("iv-1"))
		session, err := h.manager.ResolveOrCreateSession(ctx, "iv-1")
		if err != nil {
			t.Fatalf("ResolveOrCreateSession returned error: %v", err)
		}
		if _, err := svc.Flag(ctx, FlagParams{InterviewID: "iv-1", Remarks: "stop"}); err != nil {
			t.Fatalf("Flag returned error: %v", err)
		}

		entry, err := h.manager.LoadSession(ctx, session.ID)
		if err != nil {
			t.Fatalf("LoadSession returned error: %v", err)
		}
		if !entry.Terminal {
			t.Fatalf("expected session marked terminal")
		}
		_, err = h.manager.ResolveOrCreateSession(ctx, "iv-1")
		if !errors.Is(err, ErrNotScheduled) || !errors.Is(err, ErrInvalidState) {
			t.Fatalf("expected ErrNotScheduled after flag, got %v", err)
		}
	})
}

func TestInterviewService_Status(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		stage   Stage
		elapsed time.Duration
		want    Status
	}{
		{name: "scheduled inside window", stage: StageScheduled, elapsed: 71 * time.Hour, want: StatusScheduled},
		{name: "scheduled at the boundary", stage: StageScheduled, elapsed: 72 * time.Hour, want: StatusScheduled},
		{name: "scheduled past window", stage: StageScheduled, elapsed: 73 * time.Hour, want: StatusExpired},
		{name: "ongoing never expires", stage: StageOngoing, elapsed: 200 * time.Hour, want: StatusOngoing},
		{name: "completed", stage: StageCompleted, elapsed: 200 * time.Hour, want: StatusCompleted},
		{name: "flagged", stage: StageFlagged, elapsed: time.Hour, want: StatusFlagged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := scheduledInterview("iv-1")
			record.Stage = tt.stage
			svc, h, _ := newInterviewHarness(t, record)
			h.clock.Advance(tt.elapsed)

			got, err := svc.Status(ctx, "iv-1")
			if err != nil {
				t.Fatalf("Status returned error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
			if h.interviews.record("iv-1").Stage != tt.stage {
				t.Fatalf("status read must not change the stored stage")
			}
		})
	}

	t.Run("unknown interview", func(t *testing.T) {
		svc, _, _ := newInterviewHarness(t)
		got, err := svc.Status(ctx, "nope")
		if !errors.Is(err, ErrNotFound) || got != StatusNotFound {
			t.Fatalf("expected not_found, got %s / %v", got, err)
		}
	})
}

func TestInterviewService_ListBySubject(t *testing.T) {
	ctx := context.Background()
	older := scheduledInterview("iv-b")
	newer := scheduledInterview("iv-a")
	newer.ScheduledAt = baseTime.Add(time.Hour)
	svc, h, _ := newInterviewHarness(t, newer, older)
	h.clock.Advance(72*time.Hour + 30*time.Minute)

	views, err := svc.ListBySubject(ctx, "subject-1")
	if err != nil {
		t.Fatalf("ListBySubject returned error: %v", err)
	}
	if len(views) != 2 || views[0].Interview.ID != "iv-b" || views[1].Interview.ID != "iv-a" {
		t.Fatalf("unexpected order: %+v", views)
	}
	if views[0].Status != StatusExpired || views[1].Status != StatusScheduled {
		t.Fatalf("unexpected statuses: %s, %s", views[0].Status, views[1].Status)
	}

	if _, err := svc.ListBySubject(ctx, "ghost"); !errors.Is(err, ErrSubjectNotFound) {
		t.Fatalf("expected ErrSubjectNotFound, got %v", err)
	}
}

func TestInterviewService_GetInterview(t *testing.T) {
	svc, _, _ := newInterviewHarness(t, scheduledInterview("iv-1"))

	view, err := svc.GetInterview(context.Background(), "iv-1")
	if err != nil {
		t.Fatalf("GetInterview returned error: %v", err)
	}
	if view.Interview.ID != "iv-1" || view.Status != StatusScheduled {
		t.Fatalf("unexpected view: %+v", view)
	}
	if _, err := svc.GetInterview(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
