package application

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/blake2b"
)

// SessionEntry is the cache-resident state of one live session.
type SessionEntry struct {
	SessionID   string         `json:"session_id"`
	InterviewID string         `json:"interview_id"`
	SubjectID   string         `json:"subject_id"`
	Subject     SubjectContext `json:"subject"`
	Stage       Stage          `json:"stage"`
	// History is the full conversation; windowing is applied when the
	// generation request is built.
	History []Turn `json:"history"`
	// Terminal marks an entry whose interview reached completed or flagged.
	// Such entries are no longer authoritative.
	Terminal  bool      `json:"terminal,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e SessionEntry) clone() SessionEntry {
	out := e
	out.History = make([]Turn, len(e.History))
	copy(out.History, e.History)
	return out
}

const checksumSize = blake2b.Size256

const maxSessionIDLength = 128

// encodeSessionEntry serializes an entry as blake2b-256(payload) || payload.
func encodeSessionEntry(entry SessionEntry) ([]byte, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("encode session entry: %w", err)
	}
	sum := blake2b.Sum256(payload)
	blob := make([]byte, 0, checksumSize+len(payload))
	blob = append(blob, sum[:]...)
	return append(blob, payload...), nil
}

// decodeSessionEntry reverses encodeSessionEntry. Any truncation, checksum
// mismatch, malformed JSON or missing identity field is ErrCorruptSession.
func decodeSessionEntry(blob []byte) (SessionEntry, error) {
	if len(blob) <= checksumSize {
		return SessionEntry{}, fmt.Errorf("%w: blob too short", ErrCorruptSession)
	}
	payload := blob[checksumSize:]
	sum := blake2b.Sum256(payload)
	if !bytes.Equal(sum[:], blob[:checksumSize]) {
		return SessionEntry{}, fmt.Errorf("%w: checksum mismatch", ErrCorruptSession)
	}
	var entry SessionEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return SessionEntry{}, fmt.Errorf("%w: %v", ErrCorruptSession, err)
	}
	if entry.SessionID == "" || entry.InterviewID == "" {
		return SessionEntry{}, fmt.Errorf("%w: missing identity", ErrCorruptSession)
	}
	return entry, nil
}

// decodeSessionIndex validates an index value as a session id. Ids come from
// a configurable generator, so only the shape of a cache key is checked; the
// entry's own SessionID and InterviewID catch a foreign pointer.
func decodeSessionIndex(value []byte) (string, error) {
	id := strings.TrimSpace(string(value))
	switch {
	case id == "":
		return "", fmt.Errorf("%w: index value is empty", ErrCorruptSession)
	case len(id) > maxSessionIDLength:
		return "", fmt.Errorf("%w: index value exceeds %d bytes", ErrCorruptSession, maxSessionIDLength)
	case strings.IndexFunc(id, unicode.IsSpace) >= 0 || !utf8.ValidString(id):
		return "", fmt.Errorf("%w: index value is not a session id", ErrCorruptSession)
	}
	return id, nil
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID
}

func interviewIndexKey(interviewID string) string {
	return "exit_interview:" + interviewID
}
