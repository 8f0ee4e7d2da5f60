// Package apiclient speaks the exit interview HTTP API on behalf of a
// respondent: resolving a session and exchanging chat turns.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxResponseBytes = 1 << 20

// Error is a non-2xx answer from the API.
type Error struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api: %d: %s", e.StatusCode, e.Message)
}

// Retryable reports whether resubmitting the same request may succeed.
func (e *Error) Retryable() bool {
	return e.StatusCode == http.StatusServiceUnavailable || e.StatusCode == http.StatusBadGateway
}

// SessionExpired reports whether the session must be resolved again.
func (e *Error) SessionExpired() bool {
	return e.Code == "SESSION_NOT_FOUND"
}

// IsRetryable reports whether err is an API error that can be resubmitted.
func IsRetryable(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Retryable()
}

// IsSessionExpired reports whether err means the session is gone.
func IsSessionExpired(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.SessionExpired()
}

type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
}

type Summary struct {
	ClosingText    string `json:"closing_text"`
	Summary        string `json:"summary"`
	Recommendation string `json:"recommendation"`
	ReturnIntent   string `json:"return_intent"`
	Rating         int    `json:"rating"`
}

// Session is the resolved chat session for an interview.
type Session struct {
	SessionID   string `json:"session_id"`
	InterviewID string `json:"interview_id"`
	SubjectID   string `json:"subject_id"`
	Stage       string `json:"stage"`
	ChatHistory []Turn `json:"chat_history"`
}

// Reply is the interviewer's answer to one chat turn.
type Reply struct {
	Stage   string   `json:"stage"`
	Text    string   `json:"text"`
	Summary *Summary `json:"summary,omitempty"`
}

// Completed reports whether the interview ended with this reply.
func (r Reply) Completed() bool {
	return r.Stage == "completed"
}

// Client calls the exit interview API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 90 * time.Second}
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: httpClient}
}

// StartSession resolves or creates the session for an interview.
func (c *Client) StartSession(ctx context.Context, interviewID string) (Session, error) {
	var session Session
	err := c.post(ctx, "/sessions", map[string]string{"interview_id": interviewID}, &session)
	return session, err
}

// Send submits one answer. An empty answer opens the interview.
func (c *Client) Send(ctx context.Context, sessionID, answer string) (Reply, error) {
	var reply Reply
	err := c.post(ctx, "/chat", map[string]string{"session_id": sessionID, "answer": answer}, &reply)
	return reply, err
}

type envelope struct {
	Success   bool   `json:"success"`
	ErrorCode string `json:"error_code"`
	Error     string `json:"error"`
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("api: read body: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(data, &env)
	if res.StatusCode < 200 || res.StatusCode >= 300 || !env.Success {
		apiErr := &Error{StatusCode: res.StatusCode, Message: http.StatusText(res.StatusCode)}
		if decodeErr == nil {
			apiErr.Code = env.ErrorCode
			if env.Error != "" {
				apiErr.Message = env.Error
			}
		}
		return apiErr
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("api: decode body: %w", err)
	}
	return nil
}
