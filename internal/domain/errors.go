package domain

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound indicates a referenced user, store or rating does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidValue indicates malformed input, including out-of-range ratings.
	ErrInvalidValue = errors.New("invalid value")
	// ErrConflict indicates the operation clashes with existing state, such as
	// a duplicate email or deleting a user who still has ratings.
	ErrConflict = errors.New("conflict")
	// ErrInvalidCredentials is returned when an email/password pair does not match.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// FieldError describes a single rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every failing field of a request. It matches
// ErrInvalidValue under errors.Is.
type ValidationError struct {
	Fields []FieldError
}

// Add records a failure for field.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Err returns nil when no field failed, otherwise the error itself.
func (e *ValidationError) Err() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidValue
}
