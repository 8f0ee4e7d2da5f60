package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/exit-interview/internal/persistence"
	"github.com/example/exit-interview/internal/persistence/sqlite"
	"github.com/example/exit-interview/internal/persistence/sqlite/migration"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// storage instance with migrations applied.
type SQLiteHarness struct {
	Storage    *sqlite.Storage
	Interviews persistence.InterviewRepository
	Directory  persistence.DirectoryRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file. The
// harness registers its own cleanup with tb.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "exit_interview.db")
	storage, err := sqlite.OpenWithConfig(context.Background(), migration.TempFileTestSQLiteConfig(path), nil)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := storage.Migrate(context.Background()); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage:    storage,
		Interviews: storage,
		Directory:  storage,
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// Seed stores a subject, an exit request and a scheduled interview built from
// the fixture defaults plus opts, and returns the interview.
func (h *SQLiteHarness) Seed(tb testing.TB, opts ...InterviewOption) persistence.Interview {
	tb.Helper()
	ctx := context.Background()

	subject := NewSubject()
	if err := h.Directory.CreateSubject(ctx, subject); err != nil {
		tb.Fatalf("failed to create subject: %v", err)
	}
	request := NewExitRequest(subject.ID)
	if err := h.Directory.CreateExitRequest(ctx, request); err != nil {
		tb.Fatalf("failed to create exit request: %v", err)
	}
	interview := NewInterview(request, opts...)
	if err := h.Interviews.CreateInterview(ctx, interview); err != nil {
		tb.Fatalf("failed to create interview: %v", err)
	}
	return interview
}
