package testfixtures

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/exit-interview/internal/application"
	"github.com/example/exit-interview/internal/bootstrap"
	"github.com/example/exit-interview/internal/cache"
	"github.com/example/exit-interview/internal/config"
	"github.com/example/exit-interview/internal/notification"
)

// ServiceFactory assists tests with constructing a fully wired engine using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Config      config.Config
	Generator   application.Generator
	Sender      notification.Sender
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults: the scripted
// generator, an in-process cache, a log-only sender and a two question bank.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Config:      DefaultConfig(),
		Logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// DefaultConfig returns the configuration used by test engines.
func DefaultConfig() config.Config {
	return config.Config{
		CacheMaxEntries:   100,
		SessionTTL:        time.Hour,
		ExpiryWindow:      application.DefaultExpiryWindow,
		WindowTurns:       application.DefaultWindowTurns,
		MaxQuestions:      2,
		GenerationTimeout: 5 * time.Second,
		HREmail:           "hr@example.com",
		FrontendBaseURL:   "https://interviews.example.com",
		LogLevel:          "info",
		LogFormat:         "json",
	}
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithConfig overrides the engine configuration. SQLitePath is always replaced
// with a temporary file.
func WithConfig(cfg config.Config) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Config = cfg
	}
}

// WithGenerator overrides the generation collaborator.
func WithGenerator(generator application.Generator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Generator = generator
	}
}

// WithSender overrides the notification sender.
func WithSender(sender notification.Sender) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Sender = sender
	}
}

// NewEngine opens an engine over a temporary SQLite file and an in-process
// cache driven by the factory clock. The engine is closed when the test ends.
func (f *ServiceFactory) NewEngine(tb testing.TB) *bootstrap.Engine {
	tb.Helper()

	cfg := f.Config
	cfg.SQLitePath = filepath.Join(tb.TempDir(), "engine.db")

	var store cache.Store
	if cfg.RedisAddr == "" {
		store = cache.NewMemoryStore(cfg.CacheMaxEntries, f.Clock.NowFunc())
	}

	engine, err := bootstrap.Open(context.Background(), bootstrap.Options{
		Config:    cfg,
		Logger:    f.Logger,
		Cache:     store,
		Generator: f.Generator,
		Sender:    f.Sender,
		Now:       f.Clock.NowFunc(),
		NewID:     f.IDGenerator.NextFunc(),
	})
	if err != nil {
		tb.Fatalf("failed to open engine: %v", err)
	}
	tb.Cleanup(func() {
		if err := engine.Close(context.Background()); err != nil {
			tb.Errorf("failed to close engine: %v", err)
		}
	})
	return engine
}

// ScheduleInterview registers a subject and exit request through the engine
// and schedules an interview for them.
func ScheduleInterview(tb testing.TB, engine *bootstrap.Engine) application.Interview {
	tb.Helper()
	ctx := context.Background()

	subject, err := engine.Directory.RegisterSubject(ctx, application.SubjectInput{
		FullName: "Hanako Yamada",
		Email:    "hanako@example.com",
		Position: "Engineer",
	})
	if err != nil {
		tb.Fatalf("failed to register subject: %v", err)
	}
	request, err := engine.Directory.RegisterExitRequest(ctx, application.ExitRequestInput{SubjectID: subject.ID, Reason: "relocation"})
	if err != nil {
		tb.Fatalf("failed to register exit request: %v", err)
	}
	interview, err := engine.Interviews.Schedule(ctx, application.ScheduleParams{ExitRequestID: request.ID})
	if err != nil {
		tb.Fatalf("failed to schedule interview: %v", err)
	}
	return interview
}
