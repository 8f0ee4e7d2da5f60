// Package bootstrap assembles the exit interview engine from configuration:
// the SQLite durable store, the session cache, the generation collaborator
// and the notification dispatcher.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/exit-interview/internal/application"
	"github.com/example/exit-interview/internal/cache"
	"github.com/example/exit-interview/internal/config"
	"github.com/example/exit-interview/internal/generation"
	"github.com/example/exit-interview/internal/notification"
	"github.com/example/exit-interview/internal/persistence/sqlite"
	"github.com/google/uuid"
)

// Options carries configuration plus optional overrides used by tests and
// alternative front ends.
type Options struct {
	Config config.Config
	Logger *slog.Logger

	// Cache replaces the cache selected from Config.
	Cache cache.Store
	// Generator replaces the generator selected from Config.
	Generator application.Generator
	// Sender replaces the notification sender selected from Config.
	Sender notification.Sender
	// HTTPClient is used for outbound calls to collaborators.
	HTTPClient *http.Client

	Now   func() time.Time
	NewID func() string
}

// Engine holds the wired application services.
type Engine struct {
	Sessions      *application.SessionManager
	Conversations *application.ConversationService
	Interviews    *application.InterviewService
	Directory     *application.DirectoryService

	storage    *sqlite.Storage
	cache      cache.Store
	dispatcher *notification.Dispatcher
	logger     *slog.Logger
}

// Open connects to the durable store, applies migrations and wires the services.
func Open(ctx context.Context, opts Options) (*Engine, error) {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	storage, err := sqlite.Open(ctx, cfg.SQLitePath, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := storage.Migrate(ctx); err != nil {
		_ = storage.Close()
		return nil, fmt.Errorf("migrate storage: %w", err)
	}

	store := opts.Cache
	if store == nil {
		store = newCache(cfg, now)
	}
	generator := opts.Generator
	if generator == nil {
		generator = newGenerator(cfg, opts.HTTPClient, logger)
	}
	sender := opts.Sender
	if sender == nil {
		sender = newSender(cfg, opts.HTTPClient, logger)
	}
	dispatcher := notification.NewDispatcher(sender, notification.DispatcherOptions{Logger: logger})

	interviews := newInterviewRepositoryAdapter(storage)
	directory := newDirectoryRepositoryAdapter(storage)

	sessions := application.NewSessionManager(store, interviews, directory, application.SessionManagerOptions{
		TTL:         cfg.SessionTTL,
		WindowTurns: cfg.WindowTurns,
		Now:         now,
		Logger:      logger,
	})

	return &Engine{
		Sessions: sessions,
		Conversations: application.NewConversationService(sessions, interviews, generator, dispatcher, application.ConversationOptions{
			WindowTurns:       cfg.WindowTurns,
			MaxQuestions:      cfg.MaxQuestions,
			GenerationTimeout: cfg.GenerationTimeout,
			Now:               now,
			Logger:            logger,
		}),
		Interviews: application.NewInterviewService(interviews, directory, sessions, dispatcher, application.InterviewOptions{
			ExpiryWindow:    cfg.ExpiryWindow,
			FrontendBaseURL: cfg.FrontendBaseURL,
			HREmail:         cfg.HREmail,
			IDGenerator:     newID,
			Now:             now,
			Logger:          logger,
		}),
		Directory:  application.NewDirectoryServiceWithLogger(directory, newID, now, logger),
		storage:    storage,
		cache:      store,
		dispatcher: dispatcher,
		logger:     logger,
	}, nil
}

func newCache(cfg config.Config, now func() time.Time) cache.Store {
	if cfg.RedisAddr == "" {
		return cache.NewMemoryStore(cfg.CacheMaxEntries, now)
	}
	return cache.NewRedisStore(cache.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func newGenerator(cfg config.Config, client *http.Client, logger *slog.Logger) application.Generator {
	if cfg.GenerationURL == "" {
		logger.Warn("no generation service configured; using scripted interviewer")
		return generation.NewScripted()
	}
	return generation.NewClient(cfg.GenerationURL, client, logger)
}

func newSender(cfg config.Config, client *http.Client, logger *slog.Logger) notification.Sender {
	if cfg.NotificationURL == "" {
		return notification.LogSender{Logger: logger}
	}
	return notification.NewHTTPSender(cfg.NotificationURL, client)
}

// Check pings the durable store and the cache and confirms the schema is
// current. The map holds one entry per dependency; a nil value means healthy.
func (e *Engine) Check(ctx context.Context) map[string]error {
	return map[string]error{
		"database": e.storage.Ping(ctx),
		"schema":   e.checkSchema(ctx),
		"cache":    e.cache.Ping(ctx),
	}
}

func (e *Engine) checkSchema(ctx context.Context) error {
	status, err := e.storage.SchemaStatus(ctx)
	if err != nil {
		return err
	}
	if status.PendingCount > 0 {
		return fmt.Errorf("schema at version %q has %d pending migrations", status.CurrentVersion, status.PendingCount)
	}
	return nil
}

// Close drains pending notifications and releases the store and cache.
func (e *Engine) Close(ctx context.Context) error {
	var errs []error
	if err := e.dispatcher.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("drain notifications: %w", err))
	}
	if closer, ok := e.cache.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}
	if err := e.storage.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close storage: %w", err))
	}
	return errors.Join(errs...)
}
