package migration

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func openTestDB(t *testing.T) *SQLiteExecutor {
	t.Helper()
	db, err := Open(context.Background(), TempFileTestSQLiteConfig(filepath.Join(t.TempDir(), "migrate.db")))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQLiteExecutor(db)
}

func TestManager_RunMigrations(t *testing.T) {
	t.Parallel()

	files := fstest.MapFS{
		"m/001_create.sql": {Data: []byte("CREATE TABLE widgets (id TEXT PRIMARY KEY);")},
		"m/002_seed.sql":   {Data: []byte("INSERT INTO widgets (id) VALUES ('a');\nINSERT INTO widgets (id) VALUES ('b');")},
	}

	t.Run("applies pending migrations once", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		executor := openTestDB(t)
		manager := NewManager(NewScanner(files, "m"), executor, nil)

		if err := manager.RunMigrations(ctx); err != nil {
			t.Fatalf("RunMigrations returned error: %v", err)
		}
		if err := manager.RunMigrations(ctx); err != nil {
			t.Fatalf("second RunMigrations returned error: %v", err)
		}

		var count int
		if err := executor.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM widgets").Scan(&count); err != nil {
			t.Fatalf("count query failed: %v", err)
		}
		if count != 2 {
			t.Fatalf("expected seed to run once, got %d rows", count)
		}

		status, err := manager.Status(ctx)
		if err != nil {
			t.Fatalf("Status returned error: %v", err)
		}
		if status.CurrentVersion != "002" || status.PendingCount != 0 {
			t.Fatalf("unexpected status: %+v", status)
		}
	})

	t.Run("rolls back a failing migration", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		executor := openTestDB(t)
		broken := fstest.MapFS{
			"m/001_create.sql": {Data: []byte("CREATE TABLE widgets (id TEXT PRIMARY KEY);\nINSERT INTO missing_table VALUES (1);")},
		}
		manager := NewManager(NewScanner(broken, "m"), executor, nil)

		err := manager.RunMigrations(ctx)
		if !errors.Is(err, ErrMigrationFailed) {
			t.Fatalf("expected ErrMigrationFailed, got %v", err)
		}
		applied, err := executor.GetAppliedVersions(ctx)
		if err != nil {
			t.Fatalf("GetAppliedVersions returned error: %v", err)
		}
		if len(applied) != 0 {
			t.Fatalf("expected no applied versions, got %d", len(applied))
		}
		var name string
		err = executor.db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='widgets'").Scan(&name)
		if err == nil {
			t.Fatal("expected widgets table to be rolled back")
		}
	})

	t.Run("detects gaps and edited files", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		executor := openTestDB(t)

		gap := fstest.MapFS{
			"m/001_a.sql": {Data: []byte("CREATE TABLE a (id TEXT);")},
			"m/003_c.sql": {Data: []byte("CREATE TABLE c (id TEXT);")},
		}
		if err := NewManager(NewScanner(gap, "m"), executor, nil).RunMigrations(ctx); !errors.Is(err, ErrVersionConflict) {
			t.Fatalf("expected ErrVersionConflict, got %v", err)
		}

		original := fstest.MapFS{"m/001_a.sql": {Data: []byte("CREATE TABLE a (id TEXT);")}}
		if err := NewManager(NewScanner(original, "m"), executor, nil).RunMigrations(ctx); err != nil {
			t.Fatalf("RunMigrations returned error: %v", err)
		}
		edited := fstest.MapFS{"m/001_a.sql": {Data: []byte("CREATE TABLE a (id TEXT, extra TEXT);")}}
		if err := NewManager(NewScanner(edited, "m"), executor, nil).RunMigrations(ctx); !errors.Is(err, ErrChecksumMismatch) {
			t.Fatalf("expected ErrChecksumMismatch, got %v", err)
		}
	})
}

func TestSQLiteConfig_Validate(t *testing.T) {
	t.Parallel()

	if err := DefaultSQLiteConfig("data/app.db").Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	cfg := DefaultSQLiteConfig("data/app.db")
	cfg.JournalMode = "BOGUS"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected invalid journal mode to be rejected")
	}
	if err := DefaultSQLiteConfig(" ").Validate(); err == nil {
		t.Fatal("expected empty path to be rejected")
	}
}
