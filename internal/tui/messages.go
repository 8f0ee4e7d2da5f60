package tui

import "github.com/example/exit-interview/internal/apiclient"

// sessionResolvedMsg carries the session returned by POST /sessions.
type sessionResolvedMsg struct {
	Session apiclient.Session
}

// replyMsg carries the interviewer's reply to a submitted answer.
type replyMsg struct {
	Reply apiclient.Reply
}

// errMsg reports a failed API call. Answer is the text that was being sent,
// so it can be restored into the input for a retry.
type errMsg struct {
	Err    error
	Answer string
}
