package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/example/exit-interview/internal/application"
)

type recordingSender struct {
	mu    sync.Mutex
	sent  []application.Notification
	err   error
	block chan struct{}
}

func (s *recordingSender) Send(ctx context.Context, n application.Notification) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, n)
	return s.err
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func TestDispatcherDeliversQueuedNotifications(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, DispatcherOptions{Workers: 2})

	for i := 0; i < 5; i++ {
		d.Notify(context.Background(), application.Notification{Kind: application.NotificationScheduled, To: "a@example.com"})
	}
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if sender.count() != 5 {
		t.Fatalf("expected 5 deliveries, got %d", sender.count())
	}

	d.Notify(context.Background(), application.Notification{To: "late@example.com"})
	if sender.count() != 5 {
		t.Fatalf("expected notifications after close to be dropped")
	}
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	sender := &recordingSender{block: make(chan struct{})}
	d := NewDispatcher(sender, DispatcherOptions{Workers: 1, QueueSize: 1})

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.Notify(context.Background(), application.Notification{To: "a@example.com"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Notify blocked on a full queue")
	}

	close(sender.block)
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if got := sender.count(); got < 1 || got > 2 {
		t.Fatalf("expected at most worker + queue deliveries, got %d", got)
	}
}

func TestDispatcherSwallowsSendErrors(t *testing.T) {
	sender := &recordingSender{err: errors.New("boom")}
	d := NewDispatcher(sender, DispatcherOptions{})
	d.Notify(context.Background(), application.Notification{To: "a@example.com"})
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if sender.count() != 1 {
		t.Fatalf("expected one attempt, got %d", sender.count())
	}
}

func TestDispatcherCloseHonoursContext(t *testing.T) {
	sender := &recordingSender{block: make(chan struct{})}
	defer close(sender.block)
	d := NewDispatcher(sender, DispatcherOptions{Workers: 1, SendTimeout: time.Minute})
	d.Notify(context.Background(), application.Notification{To: "a@example.com"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Close(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestHTTPSenderSend(t *testing.T) {
	var got application.Notification
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/notifications" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender := NewHTTPSender(srv.URL, srv.Client())
	err := sender.Send(context.Background(), application.Notification{
		Kind:        application.NotificationFlagged,
		To:          "hr@example.com",
		InterviewID: "iv-1",
		Data:        map[string]string{"remarks": "x"},
	})
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if got.Kind != application.NotificationFlagged || got.To != "hr@example.com" || got.Data["remarks"] != "x" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestHTTPSenderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sender := NewHTTPSender(srv.URL, srv.Client())
	if err := sender.Send(context.Background(), application.Notification{To: "a@example.com"}); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if err := sender.Send(context.Background(), application.Notification{}); err == nil {
		t.Fatalf("expected missing recipient error")
	}
	if err := NewHTTPSender("", nil).Send(context.Background(), application.Notification{To: "a"}); err == nil {
		t.Fatalf("expected missing base url error")
	}
}
