package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/example/exit-interview/internal/application"
)

const (
	defaultQueueSize   = 64
	defaultWorkers     = 2
	defaultSendTimeout = 10 * time.Second
)

// DispatcherOptions tunes a Dispatcher. Zero values select defaults.
type DispatcherOptions struct {
	QueueSize   int
	Workers     int
	SendTimeout time.Duration
	Logger      *slog.Logger
}

// Dispatcher queues notifications and delivers them from a fixed set of
// worker goroutines. When the queue is full new notifications are dropped.
type Dispatcher struct {
	sender  Sender
	queue   chan application.Notification
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher starts the worker goroutines. Close must be called to stop them.
func NewDispatcher(sender Sender, opts DispatcherOptions) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = defaultSendTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	d := &Dispatcher{
		sender:  sender,
		queue:   make(chan application.Notification, opts.QueueSize),
		timeout: opts.SendTimeout,
		logger:  opts.Logger.With("component", "notification_dispatcher"),
	}
	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	return d
}

// Notify enqueues n without blocking. It implements application.Notifier.
func (d *Dispatcher) Notify(ctx context.Context, n application.Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.WarnContext(ctx, "dispatcher closed; notification dropped", "type", string(n.Kind), "interview_id", n.InterviewID)
		return
	}
	select {
	case d.queue <- n:
	default:
		d.logger.WarnContext(ctx, "notification queue full; notification dropped", "type", string(n.Kind), "interview_id", n.InterviewID)
	}
}

// Close stops accepting notifications and waits for queued ones to be
// delivered or for ctx to end, whichever comes first.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for n := range d.queue {
		d.deliver(n)
	}
}

func (d *Dispatcher) deliver(n application.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	logger := d.logger.With("type", string(n.Kind), "interview_id", n.InterviewID)
	if err := d.sender.Send(ctx, n); err != nil {
		logger.ErrorContext(ctx, "notification delivery failed", "error", err)
		return
	}
	logger.DebugContext(ctx, "notification delivered")
}
