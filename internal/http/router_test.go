package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/exit-interview/internal/application"
	"github.com/example/exit-interview/internal/bootstrap"
	"github.com/example/exit-interview/internal/config"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := config.Config{
		SQLitePath:        filepath.Join(t.TempDir(), "http.db"),
		CacheMaxEntries:   100,
		SessionTTL:        time.Hour,
		ExpiryWindow:      72 * time.Hour,
		WindowTurns:       6,
		MaxQuestions:      2,
		GenerationTimeout: 5 * time.Second,
		HREmail:           "hr@example.com",
		FrontendBaseURL:   "https://interviews.example.com",
	}
	logger := slog.New(slog.DiscardHandler)
	engine, err := bootstrap.Open(context.Background(), bootstrap.Options{Config: cfg, Logger: logger})
	if err != nil {
		t.Fatalf("bootstrap.Open returned error: %v", err)
	}
	t.Cleanup(func() {
		if err := engine.Close(context.Background()); err != nil {
			t.Errorf("engine.Close returned error: %v", err)
		}
	})

	router := NewRouter(RouterConfig{
		Interviews: NewInterviewHandler(engine.Interviews, logger),
		Sessions:   NewSessionHandler(engine.Sessions, engine.Conversations, logger),
		Directory:  NewDirectoryHandler(engine.Directory, logger),
		Health:     NewHealthHandler(engine, logger),
		Middleware: []func(http.Handler) http.Handler{RequestLogger(logger), Recoverer(logger)},
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, server *httptest.Server, method, path string, payload any, out any) int {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}
	req, err := http.NewRequest(method, server.URL+path, &body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func scheduleViaAPI(t *testing.T, server *httptest.Server) (subjectID, interviewID string) {
	t.Helper()

	var subject subjectResponse
	if status := doJSON(t, server, http.MethodPost, "/subjects", subjectRequest{FullName: "Hanako Yamada", Email: "hanako@example.com", Position: "Engineer"}, &subject); status != http.StatusCreated {
		t.Fatalf("POST /subjects status = %d", status)
	}
	var request exitRequestResponse
	if status := doJSON(t, server, http.MethodPost, "/exit-requests", exitRequestRequest{SubjectID: subject.SubjectID, Reason: "relocation", LastWorkingDay: "2024-03-31"}, &request); status != http.StatusCreated {
		t.Fatalf("POST /exit-requests status = %d", status)
	}
	var scheduled scheduleResponse
	if status := doJSON(t, server, http.MethodPost, "/interviews", scheduleRequest{ExitRequestID: request.ExitRequestID}, &scheduled); status != http.StatusCreated {
		t.Fatalf("POST /interviews status = %d", status)
	}
	if !scheduled.Success || scheduled.InterviewID == "" {
		t.Fatalf("unexpected schedule response: %+v", scheduled)
	}
	return subject.SubjectID, scheduled.InterviewID
}

func TestRouterInterviewLifecycle(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	subjectID, interviewID := scheduleViaAPI(t, server)

	var status statusResponse
	if code := doJSON(t, server, http.MethodGet, "/interviews/"+interviewID, nil, &status); code != http.StatusOK || status.Status != application.StatusScheduled {
		t.Fatalf("GET status = %d %+v", code, status)
	}

	var session sessionResponse
	if code := doJSON(t, server, http.MethodPost, "/sessions", sessionRequest{InterviewID: interviewID}, &session); code != http.StatusOK {
		t.Fatalf("POST /sessions status = %d", code)
	}
	if session.SessionID == "" || session.SubjectID != subjectID || session.Stage != application.StageScheduled {
		t.Fatalf("unexpected session response: %+v", session)
	}

	var again sessionResponse
	doJSON(t, server, http.MethodPost, "/sessions", sessionRequest{InterviewID: interviewID}, &again)
	if again.SessionID != session.SessionID {
		t.Fatalf("session id changed: %s -> %s", session.SessionID, again.SessionID)
	}

	answers := []string{"", "I am relocating", "Yes, I would recommend it"}
	var reply chatResponse
	for i, answer := range answers {
		if code := doJSON(t, server, http.MethodPost, "/chat", chatRequest{SessionID: session.SessionID, Answer: answer}, &reply); code != http.StatusOK {
			t.Fatalf("turn %d status = %d", i+1, code)
		}
		if reply.Text == "" {
			t.Fatalf("turn %d returned empty text", i+1)
		}
	}
	if reply.Stage != application.StageCompleted || reply.Summary == nil {
		t.Fatalf("final reply = %+v, want completed with summary", reply)
	}

	var record recordResponse
	if code := doJSON(t, server, http.MethodGet, "/interviews/"+interviewID+"/record", nil, &record); code != http.StatusOK {
		t.Fatalf("GET record status = %d", code)
	}
	if record.Interview.Status != application.StatusCompleted || len(record.Interview.ConversationHistory) != 2 {
		t.Fatalf("unexpected record: %+v", record.Interview)
	}

	var closed errorResponse
	if code := doJSON(t, server, http.MethodPost, "/chat", chatRequest{SessionID: session.SessionID, Answer: "more"}, &closed); code != http.StatusNotFound && code != http.StatusConflict {
		t.Fatalf("chat after completion status = %d", code)
	}

	var flagged successResponse
	if code := doJSON(t, server, http.MethodPost, "/interviews/"+interviewID+"/flag", flagRequest{Remarks: "follow up"}, &flagged); code != http.StatusOK || !flagged.Success {
		t.Fatalf("flag status = %d %+v", code, flagged)
	}

	var conflict errorResponse
	if code := doJSON(t, server, http.MethodPost, "/interviews/"+interviewID+"/flag", flagRequest{Remarks: "again"}, &conflict); code != http.StatusConflict {
		t.Fatalf("second flag status = %d, want 409", code)
	}
	if conflict.ErrorCode != "INVALID_STATE" {
		t.Fatalf("second flag error code = %s", conflict.ErrorCode)
	}

	var list listResponse
	if code := doJSON(t, server, http.MethodGet, "/subjects/"+subjectID+"/interviews", nil, &list); code != http.StatusOK {
		t.Fatalf("list status = %d", code)
	}
	if len(list.Interviews) != 1 || list.Interviews[0].Status != application.StatusFlagged {
		t.Fatalf("unexpected list: %+v", list.Interviews)
	}
}

func TestRouterErrors(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)

	t.Run("unknown interview status", func(t *testing.T) {
		var status statusResponse
		if code := doJSON(t, server, http.MethodGet, "/interviews/missing", nil, &status); code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", code)
		}
		if status.Success || status.Status != application.StatusNotFound {
			t.Fatalf("unexpected body: %+v", status)
		}
	})

	t.Run("session for unknown interview", func(t *testing.T) {
		var body errorResponse
		if code := doJSON(t, server, http.MethodPost, "/sessions", sessionRequest{InterviewID: "missing"}, &body); code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", code)
		}
		if body.ErrorCode != "NOT_SCHEDULED" {
			t.Fatalf("error code = %s", body.ErrorCode)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		var body errorResponse
		if code := doJSON(t, server, http.MethodPost, "/chat", chatRequest{SessionID: "nope", Answer: "hi"}, &body); code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", code)
		}
		if body.ErrorCode != "SESSION_NOT_FOUND" {
			t.Fatalf("error code = %s", body.ErrorCode)
		}
	})

	t.Run("invalid subject payload", func(t *testing.T) {
		var body errorResponse
		if code := doJSON(t, server, http.MethodPost, "/subjects", subjectRequest{Email: "not-an-address"}, &body); code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want 422", code)
		}
		if body.Errors["full_name"] == "" || body.Errors["email"] == "" {
			t.Fatalf("expected field errors, got %+v", body.Errors)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, server.URL+"/interviews", bytes.NewBufferString("{"))
		resp, err := server.Client().Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		resp, err := server.Client().Get(server.URL + "/chat")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed || resp.Header.Get("Allow") != http.MethodPost {
			t.Fatalf("status = %d allow = %q", resp.StatusCode, resp.Header.Get("Allow"))
		}
	})

	t.Run("unknown action", func(t *testing.T) {
		resp, err := server.Client().Get(server.URL + "/interviews/abc/unknown")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", resp.StatusCode)
		}
	})

	t.Run("health", func(t *testing.T) {
		var body healthResponse
		if code := doJSON(t, server, http.MethodGet, "/healthz", nil, &body); code != http.StatusOK {
			t.Fatalf("status = %d, want 200", code)
		}
		if body.Checks["database"] != "ok" || body.Checks["schema"] != "ok" || body.Checks["cache"] != "ok" {
			t.Fatalf("unexpected checks: %+v", body.Checks)
		}
	})
}

func TestRouterSuccessBodiesCarryNullError(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	_, interviewID := scheduleViaAPI(t, server)

	var record recordResponse
	if code := doJSON(t, server, http.MethodGet, "/interviews/"+interviewID+"/record", nil, &record); code != http.StatusOK {
		t.Fatalf("GET record status = %d", code)
	}
	var session sessionResponse
	if code := doJSON(t, server, http.MethodPost, "/sessions", sessionRequest{InterviewID: interviewID}, &session); code != http.StatusOK {
		t.Fatalf("POST /sessions status = %d", code)
	}

	tests := []struct {
		name    string
		method  string
		path    string
		payload any
	}{
		{name: "schedule", method: http.MethodPost, path: "/interviews", payload: scheduleRequest{ExitRequestID: record.Interview.ExitRequestID}},
		{name: "status", method: http.MethodGet, path: "/interviews/" + interviewID},
		{name: "session", method: http.MethodPost, path: "/sessions", payload: sessionRequest{InterviewID: interviewID}},
		{name: "chat", method: http.MethodPost, path: "/chat", payload: chatRequest{SessionID: session.SessionID}},
	}
	for _, tt := range tests {
		var body map[string]json.RawMessage
		code := doJSON(t, server, tt.method, tt.path, tt.payload, &body)
		if code != http.StatusOK && code != http.StatusCreated {
			t.Fatalf("%s: status = %d", tt.name, code)
		}
		raw, ok := body["error"]
		if !ok || string(raw) != "null" {
			t.Errorf("%s: expected \"error\": null, got %q (present=%v)", tt.name, raw, ok)
		}
		if string(body["success"]) != "true" {
			t.Errorf("%s: expected success true, got %s", tt.name, body["success"])
		}
	}
}

func TestSplitResourcePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path       string
		wantID     string
		wantAction string
		wantOK     bool
	}{
		{path: "/interviews/abc", wantID: "abc", wantOK: true},
		{path: "/interviews/abc/", wantID: "abc", wantOK: true},
		{path: "/interviews/abc/flag", wantID: "abc", wantAction: "flag", wantOK: true},
		{path: "/interviews/", wantOK: false},
		{path: "/interviews/a/b/c", wantOK: false},
	}
	for _, tc := range tests {
		id, action, ok := splitResourcePath(tc.path, "/interviews/")
		if id != tc.wantID || action != tc.wantAction || ok != tc.wantOK {
			t.Errorf("splitResourcePath(%q) = (%q, %q, %v)", tc.path, id, action, ok)
		}
	}
}
