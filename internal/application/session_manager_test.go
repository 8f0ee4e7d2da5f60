package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/example/exit-interview/internal/cache"
)

type sessionHarness struct {
	clock      *testClock
	store      *cache.MemoryStore
	interviews *interviewRepoStub
	directory  *directoryRepoStub
	manager    *SessionManager
}

func newSessionHarness(t *testing.T, records ...Interview) *sessionHarness {
	t.Helper()
	clock := newTestClock(baseTime)
	store := cache.NewMemoryStore(0, clock.Now)
	interviews := newInterviewRepoStub(records...)
	directory := newTestDirectory()
	manager := NewSessionManager(store, interviews, directory, SessionManagerOptions{
		TTL:         time.Hour,
		WindowTurns: 6,
		Now:         clock.Now,
	})
	return &sessionHarness{clock: clock, store: store, interviews: interviews, directory: directory, manager: manager}
}

func TestSessionManager_ResolveOrCreateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the same session on repeated calls", func(t *testing.T) {
		h := newSessionHarness(t, scheduledInterview("iv-1"))

		first, err := h.manager.ResolveOrCreateSession(ctx, "iv-1")
		if err != nil {
			t.Fatalf("ResolveOrCreateSession returned error: %v", err)
		}
		second, err := h.manager.ResolveOrCreateSession(ctx, "iv-1")
		if err != nil {
			t.Fatalf("second ResolveOrCreateSession returned error: %v", err)
		}
		if first.ID == "" || first.ID != second.ID {
			t.Fatalf("expected stable session id, got %q and %q", first.ID, second.ID)
		}
		if first.SubjectID != "subject-1" || first.Stage != StageScheduled {
			t.Fatalf("unexpected session: %+v", first)
		}
		if h.store.Len() != 2 {
			t.Fatalf("expected index and entry keys only, got %d", h.store.Len())
		}
	})

	t.Run("custom session id generator keeps sessions stable", func(t *testing.T) {
		h := newSessionHarness(t, scheduledInterview("iv-1"))
		counter := 0
		manager := NewSessionManager(h.store, h.interviews, h.directory, SessionManagerOptions{
			TTL: time.Hour,
			NewSessionID: func() string {
				counter++
				return fmt.Sprintf("session-%d", counter)
			},
			Now: h.clock.Now,
		})

		first, err := manager.ResolveOrCreateSession(ctx, "iv-1")
		if err != nil {
			t.Fatalf("ResolveOrCreateSession returned error: %v", err)
		}
		second, err := manager.ResolveOrCreateSession(ctx, "iv-1")
		if err != nil {
			t.Fatalf("second ResolveOrCreateSession returned error: %v", err)
		}
		if first.ID != "session-1" || second.ID != "session-1" {
			t.Fatalf("expected session-1 twice, got %q and %q", first.ID, second.ID)
		}
		if counter != 1 {
			t.Fatalf("expected one generated id, got %d", counter)
		}
		if h.store.Len() != 2 {
			t.Fatalf("expected index and entry keys only, got %d", h.store.Len())
		}
		if _, err := manager.LoadSession(ctx, "session-1"); err != nil {
			t.Fatalf("LoadSession returned error: %v", err)
		}
	})

	t.Run("absent interview is not scheduled", func(t *testing.T) {
		h := newSessionHarness(t)

		_, err := h.manager.ResolveOrCreateSession(ctx, "missing")
		if !errors.Is(err, ErrNotScheduled) || !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotScheduled and ErrNotFound, got %v", err)
		}
	})

	t.Run("terminal interview is not scheduled", func(t *testing.T) {
		record := scheduledInterview("iv-1")
		record.Stage = StageCompleted
		h := newSessionHarness(t, record)

		_, err := h.manager.ResolveOrCreateSession(ctx, "iv-1")
		if !errors.Is(err, ErrNotScheduled) || !errors.Is(err, ErrInvalidState) {
			t.Fatalf("expected ErrNotScheduled and ErrInvalidState, got %v", err)
		}
		if errors.Is(err, ErrNotFound) {
			t.Fatalf("terminal interview must not read as not found: %v", err)
		}
		if h.store.Len() != 0 {
			t.Fatalf("expected no cache writes, got %d keys", h.store.Len())
		}
	})

	t.Run("missing subject is reported", func(t *testing.T) {
		record := scheduledInterview("iv-1")
		record.SubjectID = "ghost"
		h := newSessionHarness(t, record)

		_, err := h.manager.ResolveOrCreateSession(ctx, "iv-1")
		if !errors.Is(err, ErrSubjectNotFound) {
			t.Fatalf("expected ErrSubjectNotFound, got %v", err)
		}
	})

	t.Run("seeds from durable history and windows chat history", func(t *testing.T) {
		record := scheduledInterview("iv-1")
		record.Stage = StageOngoing
		for i := 0; i < 9; i++ {
			record.ConversationHistory = append(record.ConversationHistory, Turn{Question: "q", Answer: "a"})
		}
		record.ConversationHistory = append(record.ConversationHistory, Turn{Question: "last"})
		h := newSessionHarness(t, record)

		session, err := h.manager.ResolveOrCreateSession(ctx, "iv-1")
		if err != nil {
			t.Fatalf("ResolveOrCreateSession returned error: %v", err)
		}
		if len(session.ChatHistory) != 6 {
			t.Fatalf("expected 6 windowed turns, got %d", len(session.ChatHistory))
		}
		if session.ChatHistory[5].Question != "last" {
			t.Fatalf("expected most recent turn last, got %+v", session.ChatHistory[5])
		}

		entry, err := h.manager.LoadSession(ctx, session.ID)
		if err != nil {
			t.Fatalf("LoadSession returned error: %v", err)
		}
		if len(entry.History) != 10 {
			t.Fatalf("expected full history in entry, got %d", len(entry.History))
		}
		if entry.Subject.ExitReason != "relocation" || entry.Subject.Email != "hanako@example.com" {
			t.Fatalf("expected subject context, got %+v", entry.Subject)
		}
	})

	t.Run("replaces an index that points at a missing entry", func(t *testing.T) {
		h := newSessionHarness(t, scheduledInterview("iv-1"))
		first, err := h.manager.ResolveOrCreateSession(ctx, "iv-1")
		if err != nil {
			t.Fatalf("ResolveOrCreateSession returned error: %v", err)
		}
		if err := h.store.Delete(ctx, sessionKey(first.ID)); err != nil {
			t.Fatalf("Delete returned error: %v", err)
		}

		second, err := h.manager.ResolveOrCreateSession(ctx, "iv-1")
		if err != nil {
			t.Fatalf("ResolveOrCreateSession returned error: %v", err)
		}
		if second.ID == first.ID {
			t.Fatalf("expected a fresh session id")
		}
		if h.store.Len() != 2 {
			t.Fatalf("expected orphan purged, got %d keys", h.store.Len())
		}
	})

	t.Run("replaces a corrupt entry", func(t *testing.T) {
		h := newSessionHarness(t, scheduledInterview("iv-1"))
		first, err := h.manager.ResolveOrCreateSession(ctx, "iv-1")
		if err != nil {
			t.Fatalf("ResolveOrCreateSession returned error: %v", err)
		}
		if err := h.store.Set(ctx, sessionKey(first.ID), []byte("garbage that is not a session"), time.Hour); err != nil {
			t.Fatalf("Set returned error: %v", err)
		}

		second, err := h.manager.ResolveOrCreateSession(ctx, "iv-1")
		if err != nil {
			t.Fatalf("ResolveOrCreateSession returned error: %v", err)
		}
		if second.ID == first.ID {
			t.Fatalf("expected corrupt session to be replaced")
		}
		if _, err := h.store.Get(ctx, sessionKey(first.ID)); !errors.Is(err, cache.ErrMiss) {
			t.Fatalf("expected corrupt entry purged, got %v", err)
		}
	})

	t.Run("replaces a corrupt index value", func(t *testing.T) {
		h := newSessionHarness(t, scheduledInterview("iv-1"))
		if err := h.store.Set(ctx, interviewIndexKey("iv-1"), []byte("not-a-uuid"), time.Hour); err != nil {
			t.Fatalf("Set returned error: %v", err)
		}

		session, err := h.manager.ResolveOrCreateSession(ctx, "iv-1")
		if err != nil {
			t.Fatalf("ResolveOrCreateSession returned error: %v", err)
		}
		raw, err := h.store.Get(ctx, interviewIndexKey("iv-1"))
		if err != nil {
			t.Fatalf("Get returned error: %v", err)
		}
		if string(raw) != session.ID {
			t.Fatalf("expected index to point at %q, got %q", session.ID, raw)
		}
	})

	t.Run("expired session is rebuilt from the durable store", func(t *testing.T) {
		record := scheduledInterview("iv-1")
		record.Stage = StageOngoing
		record.ConversationHistory = []Turn{{Question: "q1", Answer: "a1"}, {Question: "q2"}}
		h := newSessionHarness(t, record)

		first, err := h.manager.ResolveOrCreateSession(ctx, "iv-1")
		if err != nil {
			t.Fatalf("ResolveOrCreateSession returned error: %v", err)
		}
		h.clock.Advance(2 * time.Hour)

		second, err := h.manager.ResolveOrCreateSession(ctx, "iv-1")
		if err != nil {
			t.Fatalf("ResolveOrCreateSession returned error: %v", err)
		}
		if second.ID == first.ID {
			t.Fatalf("expected a new session after expiry")
		}
		if len(second.ChatHistory) != 2 || second.ChatHistory[1].Question != "q2" {
			t.Fatalf("expected durable history, got %+v", second.ChatHistory)
		}
	})

	t.Run("concurrent callers converge on one session", func(t *testing.T) {
		h := newSessionHarness(t, scheduledInterview("iv-1"))

		const callers = 16
		ids := make([]string, callers)
		errs := make([]error, callers)
		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				session, err := h.manager.ResolveOrCreateSession(ctx, "iv-1")
				ids[i], errs[i] = session.ID, err
			}(i)
		}
		wg.Wait()

		for i := 0; i < callers; i++ {
			if errs[i] != nil {
				t.Fatalf("caller %d returned error: %v", i, errs[i])
			}
			if ids[i] != ids[0] {
				t.Fatalf("caller %d got session %q, want %q", i, ids[i], ids[0])
			}
		}
		if h.store.Len() != 2 {
			t.Fatalf("expected losing entries deleted, got %d keys", h.store.Len())
		}
	})
}

func TestSessionManager_LoadSession(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown session", func(t *testing.T) {
		h := newSessionHarness(t)
		if _, err := h.manager.LoadSession(ctx, "nope"); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("corrupt entry is purged", func(t *testing.T) {
		h := newSessionHarness(t)
		if err := h.store.Set(ctx, sessionKey("sess-1"), []byte("{}"), time.Hour); err != nil {
			t.Fatalf("Set returned error: %v", err)
		}
		if _, err := h.manager.LoadSession(ctx, "sess-1"); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
		if h.store.Len() != 0 {
			t.Fatalf("expected corrupt entry purged, got %d keys", h.store.Len())
		}
	})
}

func TestSessionManager_RefreshSession(t *testing.T) {
	ctx := context.Background()

	t.Run("extends the session ttl", func(t *testing.T) {
		h := newSessionHarness(t, scheduledInterview("iv-1"))
		session, err := h.manager.ResolveOrCreateSession(ctx, "iv-1")
		if err != nil {
			t.Fatalf("ResolveOrCreateSession returned error: %v", err)
		}
		entry, err := h.manager.LoadSession(ctx, session.ID)
		if err != nil {
			t.Fatalf("LoadSession returned error: %v", err)
		}

		h.clock.Advance(50 * time.Minute)
		if err := h.manager.RefreshSession(ctx, entry); err != nil {
			t.Fatalf("RefreshSession returned error: %v", err)
		}
		h.clock.Advance(50 * time.Minute)

		if _, err := h.manager.LoadSession(ctx, session.ID); err != nil {
			t.Fatalf("expected refreshed session to survive, got %v", err)
		}
		again, err := h.manager.ResolveOrCreateSession(ctx, "iv-1")
		if err != nil {
			t.Fatalf("ResolveOrCreateSession returned error: %v", err)
		}
		if again.ID != session.ID {
			t.Fatalf("expected index refreshed with the entry")
		}
	})

	t.Run("vanished entry is not recreated", func(t *testing.T) {
		h := newSessionHarness(t, scheduledInterview("iv-1"))
		session, err := h.manager.ResolveOrCreateSession(ctx, "iv-1")
		if err != nil {
			t.Fatalf("ResolveOrCreateSession returned error: %v", err)
		}
		entry, err := h.manager.LoadSession(ctx, session.ID)
		if err != nil {
			t.Fatalf("LoadSession returned error: %v", err)
		}
		if err := h.store.Delete(ctx, sessionKey(session.ID)); err != nil {
			t.Fatalf("Delete returned error: %v", err)
		}

		err = h.manager.RefreshSession(ctx, entry)
		if !errors.Is(err, ErrSessionNotFound) || !errors.Is(err, ErrTransient) {
			t.Fatalf("expected ErrSessionNotFound and ErrTransient, got %v", err)
		}
		if _, err := h.store.Get(ctx, sessionKey(session.ID)); !errors.Is(err, cache.ErrMiss) {
			t.Fatalf("expected entry to stay absent, got %v", err)
		}
	})
}

func TestSessionManager_MarkTerminal(t *testing.T) {
	ctx := context.Background()
	h := newSessionHarness(t, scheduledInterview("iv-1"))
	session, err := h.manager.ResolveOrCreateSession(ctx, "iv-1")
	if err != nil {
		t.Fatalf("ResolveOrCreateSession returned error: %v", err)
	}

	h.manager.MarkTerminal(ctx, "iv-1", StageFlagged)

	entry, err := h.manager.LoadSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("LoadSession returned error: %v", err)
	}
	if !entry.Terminal || entry.Stage != StageFlagged {
		t.Fatalf("expected terminal flagged entry, got %+v", entry)
	}
}
