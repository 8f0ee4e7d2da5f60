package generation

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

// ErrRemote is returned when the generation service answers with a non-2xx
// status or an unreadable body.
var ErrRemote = errors.New("generation: remote service error")

const maxResponseBytes = 1 << 20

// Client calls a remote generation service over HTTP. The caller's context
// deadline bounds each request.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Logger  *slog.Logger
}

// NewClient constructs a client for the service at baseURL.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: httpClient, Logger: logger}
}

type turnRequest struct {
	InterviewID  string                     `json:"interview_id"`
	Phase        application.Phase          `json:"phase"`
	Subject      application.SubjectContext `json:"subject"`
	History      []application.Turn         `json:"history"`
	Answer       string                     `json:"answer,omitempty"`
	Answered     int                        `json:"answered"`
	MaxQuestions int                        `json:"max_questions"`
}

type turnResponse struct {
	Stage   application.Stage         `json:"stage"`
	Text    string                    `json:"text"`
	Summary *application.FinalSummary `json:"summary,omitempty"`
	Error   string                    `json:"error,omitempty"`
}

// Generate posts the request to {BaseURL}/turns and decodes the reply. The
// reply is returned as-is; validating it against the conversation is the
// caller's responsibility.
func (c *Client) Generate(ctx context.Context, req application.GenerationRequest) (application.GenerationResult, error) {
	if c.BaseURL == "" {
		return application.GenerationResult{}, fmt.Errorf("generation: missing base url")
	}

	history := req.History
	if history == nil {
		history = []application.Turn{}
	}
	body, err := json.Marshal(turnRequest{
		InterviewID:  req.InterviewID,
		Phase:        req.Phase,
		Subject:      req.Subject,
		History:      history,
		Answer:       req.Answer,
		Answered:     req.Answered,
		MaxQuestions: req.MaxQuestions,
	})
	if err != nil {
		return application.GenerationResult{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/turns", bytes.NewReader(body))
	if err != nil {
		return application.GenerationResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	started := time.Now()
	res, err := c.HTTP.Do(httpReq)
	if err != nil {
		return application.GenerationResult{}, err
	}
	defer res.Body.Close()

	logger := c.Logger.With("interview_id", req.InterviewID, "phase", string(req.Phase))
	logger.DebugContext(ctx, "generation service responded", "status", res.StatusCode, "duration", time.Since(started))

	payload, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return application.GenerationResult{}, fmt.Errorf("%w: read body: %v", ErrRemote, err)
	}

	var decoded turnResponse
	decodeErr := json.Unmarshal(payload, &decoded)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg := http.StatusText(res.StatusCode)
		if decodeErr == nil && decoded.Error != "" {
			msg = decoded.Error
		}
		return application.GenerationResult{}, fmt.Errorf("%w: status %d: %s", ErrRemote, res.StatusCode, msg)
	}
	if decodeErr != nil {
		return application.GenerationResult{}, fmt.Errorf("%w: decode body: %v", ErrRemote, decodeErr)
	}

	return application.GenerationResult{
		Stage:   decoded.Stage,
		Text:    decoded.Text,
		Summary: decoded.Summary,
	}, nil
}
