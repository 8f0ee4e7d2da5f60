// Package http exposes the exit interview engine over HTTP.
//
// The router serves the following endpoints. Every JSON response carries a
// boolean `success`; failures add a localized `error` message and a stable
// `error_code`.
//   - POST /interviews {"exit_request_id"}: schedules an interview and returns
//     its `interview_id`.
//   - GET /interviews/{id}: returns the read-time `status` (scheduled, ongoing,
//     completed, flagged, expired or not_found).
//   - GET /interviews/{id}/record: returns the full durable record.
//   - POST /interviews/{id}/flag {"remarks"}: flags the interview.
//   - POST /sessions {"interview_id"}: resolves or creates the chat session and
//     returns `session_id`, `stage` and the windowed `chat_history`.
//   - POST /chat {"session_id","answer"}: runs one conversation turn and returns
//     `stage`, `text` and, on completion, `summary`.
//   - POST /subjects, POST /exit-requests: register departing employees and their
//     exit requests.
//   - GET /subjects/{id}/interviews: lists a subject's interviews.
//   - GET /healthz: pings the durable store and the session cache.
//
// Request/response DTOs live alongside their handlers.
package http
