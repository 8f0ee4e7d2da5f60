package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/exit-interview/internal/application"
)

// ErrRejected is returned when the notification service answers with a non-2xx status.
var ErrRejected = errors.New("notification: rejected by service")

// Sender performs one synchronous delivery attempt.
type Sender interface {
	Send(ctx context.Context, n application.Notification) error
}

// HTTPSender posts notifications as JSON to {BaseURL}/notifications.
type HTTPSender struct {
	BaseURL string
	HTTP    *http.Client
}

// NewHTTPSender constructs a sender for the service at baseURL.
func NewHTTPSender(baseURL string, httpClient *http.Client) *HTTPSender {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPSender{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: httpClient}
}

func (s *HTTPSender) Send(ctx context.Context, n application.Notification) error {
	if s.BaseURL == "" {
		return fmt.Errorf("notification: missing base url")
	}
	if n.To == "" {
		return fmt.Errorf("notification: missing recipient")
	}

	body, err := json.Marshal(n)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/notifications", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := s.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 64<<10))

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrRejected, res.StatusCode)
	}
	return nil
}

// LogSender records notifications in the log instead of delivering them. It
// is used when no notification service is configured.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(ctx context.Context, n application.Notification) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification not delivered: no notification service configured",
		"type", string(n.Kind),
		"to", n.To,
		"interview_id", n.InterviewID,
	)
	return nil
}
