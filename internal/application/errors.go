package application

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrNotScheduled is returned when a session is requested for an interview
	// that is absent or no longer accepting conversation turns.
	ErrNotScheduled = errors.New("application: interview not scheduled")
	// ErrSubjectNotFound is returned when the interview's subject record is missing.
	ErrSubjectNotFound = errors.New("application: subject not found")
	// ErrSessionNotFound is returned when a session key is unknown or has expired.
	ErrSessionNotFound = errors.New("application: session not found")
	// ErrInvalidState is returned when an action is not permitted in the current stage.
	ErrInvalidState = errors.New("application: invalid state")
	// ErrCorruptSession marks a cache entry that could not be decoded. It is
	// handled internally by purging the entry.
	ErrCorruptSession = errors.New("application: corrupt session")
	// ErrTransient marks failures the caller may retry with the same input.
	ErrTransient = errors.New("application: transient failure")
	// ErrCollaboratorFailure is returned when the generation collaborator fails
	// or returns a result that violates the transition table.
	ErrCollaboratorFailure = errors.New("application: collaborator failure")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}
