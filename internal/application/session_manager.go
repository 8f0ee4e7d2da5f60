package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/exit-interview/internal/cache"
	"github.com/google/uuid"
)

// DefaultSessionTTL is the inactivity window after which a session expires.
const DefaultSessionTTL = 24 * time.Hour

// SessionManager issues, loads and refreshes cache-resident sessions. The
// durable store stays the system of record; the cache only speeds up turns.
// The per-interview index is written with SetIfAbsent so concurrent session
// starts converge on a single session id.
type SessionManager struct {
	cache        cache.Store
	interviews   InterviewRepository
	directory    DirectoryRepository
	ttl          time.Duration
	windowTurns  int
	newSessionID func() string
	now          func() time.Time
	logger       *slog.Logger
}

// SessionManagerOptions tunes a SessionManager. Zero values select defaults.
type SessionManagerOptions struct {
	TTL          time.Duration
	WindowTurns  int
	NewSessionID func() string
	Now          func() time.Time
	Logger       *slog.Logger
}

// NewSessionManager constructs a session manager.
func NewSessionManager(store cache.Store, interviews InterviewRepository, directory DirectoryRepository, opts SessionManagerOptions) *SessionManager {
	if opts.TTL <= 0 {
		opts.TTL = DefaultSessionTTL
	}
	if opts.WindowTurns <= 0 {
		opts.WindowTurns = DefaultWindowTurns
	}
	if opts.NewSessionID == nil {
		opts.NewSessionID = func() string { return uuid.NewString() }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &SessionManager{
		cache:        store,
		interviews:   interviews,
		directory:    directory,
		ttl:          opts.TTL,
		windowTurns:  opts.WindowTurns,
		newSessionID: opts.NewSessionID,
		now:          opts.Now,
		logger:       defaultLogger(opts.Logger),
	}
}

func (m *SessionManager) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, m.logger, "SessionManager", operation, attrs...)
}

// ResolveOrCreateSession returns the live session for an interview, creating
// one seeded from the durable history when none exists. Corrupt or orphaned
// cache entries are purged and replaced transparently.
func (m *SessionManager) ResolveOrCreateSession(ctx context.Context, interviewID string) (session Session, err error) {
	logger := m.loggerWith(ctx, "ResolveOrCreateSession", "interview_id", interviewID)
	created := false
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to resolve session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "session resolved", "session_id", session.ID, "created", created)
	}()

	if interviewID == "" {
		err = fmt.Errorf("%w: %w", ErrNotScheduled, ErrNotFound)
		return
	}

	entry, found, err := m.lookupByInterview(ctx, interviewID)
	if err != nil {
		return
	}
	if found && !entry.Terminal {
		session = m.toSession(entry)
		return
	}

	entry, err = m.createSession(ctx, interviewID, found)
	if err != nil {
		return
	}
	created = true
	session = m.toSession(entry)
	return
}

// lookupByInterview follows the index to a session entry. An unreadable index
// value, an index pointing at a missing entry, or an entry that fails to
// decode is purged and reported as not found.
func (m *SessionManager) lookupByInterview(ctx context.Context, interviewID string) (SessionEntry, bool, error) {
	indexKey := interviewIndexKey(interviewID)
	raw, err := m.cache.Get(ctx, indexKey)
	if errors.Is(err, cache.ErrMiss) {
		return SessionEntry{}, false, nil
	}
	if err != nil {
		return SessionEntry{}, false, fmt.Errorf("%w: read session index: %v", ErrTransient, err)
	}

	sessionID, err := decodeSessionIndex(raw)
	if err != nil {
		m.purge(ctx, err, indexKey)
		return SessionEntry{}, false, nil
	}

	entry, err := m.readEntry(ctx, sessionID)
	switch {
	case err == nil && entry.InterviewID != interviewID:
		m.purge(ctx, fmt.Errorf("%w: entry belongs to interview %s", ErrCorruptSession, entry.InterviewID), indexKey)
		return SessionEntry{}, false, nil
	case err == nil:
		return entry, true, nil
	case errors.Is(err, ErrCorruptSession), errors.Is(err, ErrSessionNotFound):
		m.purge(ctx, err, indexKey, sessionKey(sessionID))
		return SessionEntry{}, false, nil
	default:
		return SessionEntry{}, false, err
	}
}

// createSession seeds a new entry from the durable record. When the index
// still points at a terminal entry, that entry is replaced only if the
// durable record is back in a conversational stage.
func (m *SessionManager) createSession(ctx context.Context, interviewID string, replaceTerminal bool) (SessionEntry, error) {
	interview, err := m.interviews.GetInterview(ctx, interviewID)
	if err != nil {
		if isNotFound(err) {
			return SessionEntry{}, fmt.Errorf("%w: %w", ErrNotScheduled, ErrNotFound)
		}
		return SessionEntry{}, fmt.Errorf("%w: read interview: %v", ErrTransient, err)
	}
	if interview.Stage != StageScheduled && interview.Stage != StageOngoing {
		return SessionEntry{}, fmt.Errorf("%w: %w: interview is %s", ErrNotScheduled, ErrInvalidState, interview.Stage)
	}

	subject, err := m.directory.GetSubject(ctx, interview.SubjectID)
	if err != nil {
		if isNotFound(err) {
			return SessionEntry{}, fmt.Errorf("%w: %w", ErrSubjectNotFound, ErrNotFound)
		}
		return SessionEntry{}, fmt.Errorf("%w: read subject: %v", ErrTransient, err)
	}
	subjectContext := SubjectContext{
		Name:       subject.FullName,
		Email:      subject.Email,
		Position:   subject.Position,
		Department: subject.Department,
	}
	if request, err := m.directory.GetExitRequest(ctx, interview.ExitRequestID); err == nil {
		subjectContext.ExitReason = request.Reason
	}

	now := m.now()
	entry := SessionEntry{
		SessionID:   m.newSessionID(),
		InterviewID: interview.ID,
		SubjectID:   interview.SubjectID,
		Subject:     subjectContext,
		Stage:       interview.Stage,
		History:     Window(interview.ConversationHistory, 0),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	blob, err := encodeSessionEntry(entry)
	if err != nil {
		return SessionEntry{}, err
	}
	if err := m.cache.Set(ctx, sessionKey(entry.SessionID), blob, m.ttl); err != nil {
		return SessionEntry{}, fmt.Errorf("%w: store session: %v", ErrTransient, err)
	}

	indexKey := interviewIndexKey(interviewID)
	if replaceTerminal {
		if err := m.cache.Set(ctx, indexKey, []byte(entry.SessionID), m.ttl); err != nil {
			return SessionEntry{}, fmt.Errorf("%w: store session index: %v", ErrTransient, err)
		}
		return entry, nil
	}

	won, err := m.cache.SetIfAbsent(ctx, indexKey, []byte(entry.SessionID), m.ttl)
	if err != nil {
		_ = m.cache.Delete(ctx, sessionKey(entry.SessionID))
		return SessionEntry{}, fmt.Errorf("%w: store session index: %v", ErrTransient, err)
	}
	if won {
		return entry, nil
	}

	// Another caller created a session first; adopt theirs.
	_ = m.cache.Delete(ctx, sessionKey(entry.SessionID))
	winner, found, err := m.lookupByInterview(ctx, interviewID)
	if err != nil {
		return SessionEntry{}, err
	}
	if !found || winner.Terminal {
		return SessionEntry{}, fmt.Errorf("%w: concurrent session creation did not settle", ErrTransient)
	}
	return winner, nil
}

// LoadSession reads a session entry by id. A corrupt entry is purged along
// with its index and reported as ErrSessionNotFound.
func (m *SessionManager) LoadSession(ctx context.Context, sessionID string) (SessionEntry, error) {
	if sessionID == "" {
		return SessionEntry{}, ErrSessionNotFound
	}
	entry, err := m.readEntry(ctx, sessionID)
	if errors.Is(err, ErrCorruptSession) {
		m.purge(ctx, err, sessionKey(sessionID))
		return SessionEntry{}, fmt.Errorf("%w: %v", ErrSessionNotFound, err)
	}
	return entry, err
}

// RefreshSession overwrites an existing entry and resets its TTL in one
// atomic write. If the key vanished since it was read the write is refused
// and the caller gets ErrSessionNotFound wrapped with ErrTransient.
func (m *SessionManager) RefreshSession(ctx context.Context, entry SessionEntry) error {
	entry.UpdatedAt = m.now()
	blob, err := encodeSessionEntry(entry)
	if err != nil {
		return err
	}
	ok, err := m.cache.SetIfPresent(ctx, sessionKey(entry.SessionID), blob, m.ttl)
	if err != nil {
		return fmt.Errorf("%w: refresh session: %v", ErrTransient, err)
	}
	if !ok {
		return fmt.Errorf("%w: %w: session expired during turn", ErrSessionNotFound, ErrTransient)
	}
	// The index shares the entry's TTL. Losing this refresh only costs a
	// durable read on the next session start.
	if _, err := m.cache.SetIfPresent(ctx, interviewIndexKey(entry.InterviewID), []byte(entry.SessionID), m.ttl); err != nil {
		m.loggerWith(ctx, "RefreshSession", "session_id", entry.SessionID).WarnContext(ctx, "failed to refresh session index", "error", err)
	}
	return nil
}

// MarkTerminal records that the interview behind a cached session reached a
// terminal stage. It is best-effort: the durable store is already authoritative.
func (m *SessionManager) MarkTerminal(ctx context.Context, interviewID string, stage Stage) {
	entry, found, err := m.lookupByInterview(ctx, interviewID)
	if err != nil || !found {
		return
	}
	entry.Stage = stage
	entry.Terminal = true
	if err := m.RefreshSession(ctx, entry); err != nil {
		m.loggerWith(ctx, "MarkTerminal", "interview_id", interviewID).WarnContext(ctx, "failed to mark session terminal", "error", err)
	}
}

// Retire drops a session whose history fell behind the durable record. The
// index is removed only while it still points at this session, so the next
// ResolveOrCreateSession reseeds from the durable history.
func (m *SessionManager) Retire(ctx context.Context, entry SessionEntry, cause error) {
	keys := []string{sessionKey(entry.SessionID)}
	indexKey := interviewIndexKey(entry.InterviewID)
	if raw, err := m.cache.Get(ctx, indexKey); err == nil {
		if id, err := decodeSessionIndex(raw); err != nil || id == entry.SessionID {
			keys = append(keys, indexKey)
		}
	}
	m.purge(ctx, cause, keys...)
}

func (m *SessionManager) readEntry(ctx context.Context, sessionID string) (SessionEntry, error) {
	blob, err := m.cache.Get(ctx, sessionKey(sessionID))
	if errors.Is(err, cache.ErrMiss) {
		return SessionEntry{}, ErrSessionNotFound
	}
	if err != nil {
		return SessionEntry{}, fmt.Errorf("%w: read session: %v", ErrTransient, err)
	}
	entry, err := decodeSessionEntry(blob)
	if err != nil {
		return SessionEntry{}, err
	}
	if entry.SessionID != sessionID {
		return SessionEntry{}, fmt.Errorf("%w: entry stored under foreign key", ErrCorruptSession)
	}
	return entry, nil
}

func (m *SessionManager) purge(ctx context.Context, cause error, keys ...string) {
	logger := m.loggerWith(ctx, "purge")
	if err := m.cache.Delete(ctx, keys...); err != nil {
		logger.ErrorContext(ctx, "failed to purge session keys", "keys", keys, "error", err)
		return
	}
	logger.WarnContext(ctx, "purged unusable session keys", "keys", keys, "reason", cause.Error())
}

func (m *SessionManager) toSession(entry SessionEntry) Session {
	return Session{
		ID:          entry.SessionID,
		InterviewID: entry.InterviewID,
		SubjectID:   entry.SubjectID,
		Stage:       entry.Stage,
		ChatHistory: Window(entry.History, m.windowTurns),
	}
}
