package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/example/exit-interview/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Storage bundles the SQLite-backed repositories behind one connection pool.
type Storage struct {
	*InterviewRepository
	*DirectoryRepository

	pool   *ConnectionPool
	logger *slog.Logger
}

// Open connects to the database file at path with production settings.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Storage, error) {
	return OpenWithConfig(ctx, migration.DefaultSQLiteConfig(path), logger)
}

// OpenWithConfig connects using an explicit SQLite configuration.
func OpenWithConfig(ctx context.Context, cfg migration.SQLiteConfig, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	pool, err := NewConnectionPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Storage{
		InterviewRepository: NewInterviewRepository(pool),
		DirectoryRepository: NewDirectoryRepository(pool),
		pool:                pool,
		logger:              logger,
	}, nil
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	if err := s.migrations().RunMigrations(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// SchemaStatus reports the applied schema version and any embedded
// migrations the database has not run yet.
func (s *Storage) SchemaStatus(ctx context.Context) (migration.Status, error) {
	status, err := s.migrations().Status(ctx)
	if err != nil {
		return migration.Status{}, fmt.Errorf("sqlite: schema status: %w", err)
	}
	return status, nil
}

func (s *Storage) migrations() *migration.Manager {
	return migration.NewManager(
		migration.NewScanner(migrationFiles, "migrations"),
		migration.NewSQLiteExecutor(s.pool.DB()),
		s.logger,
	)
}

// Ping verifies the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}
