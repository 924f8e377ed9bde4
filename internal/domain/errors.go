package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every *ValidationError via errors.Is.
	ErrValidation = errors.New("validation failed")
	// ErrEmptyExam is returned when an exam has no questions to start or score.
	ErrEmptyExam = errors.New("exam has no questions")
	// ErrNotFound is the parent of every not-found error below.
	ErrNotFound = errors.New("not found")
	// ErrPersistence marks a storage write that could not be completed.
	ErrPersistence = errors.New("persistence failure")

	ErrShareNotFound     = fmt.Errorf("shared exam %w", ErrNotFound)
	ErrResultNotFound    = fmt.Errorf("result %w", ErrNotFound)
	ErrAttemptNotFound   = fmt.Errorf("attempt %w", ErrNotFound)
	ErrBankEntryNotFound = fmt.Errorf("bank entry %w", ErrNotFound)
	ErrUserNotFound      = fmt.Errorf("user %w", ErrNotFound)
	// ErrQuestionNotFound indicates a question ID that is not part of the exam.
	ErrQuestionNotFound = fmt.Errorf("question %w", ErrNotFound)
	// ErrOptionNotFound indicates an option that the question does not offer.
	ErrOptionNotFound = fmt.Errorf("option %w", ErrNotFound)

	// ErrAttemptClosed is returned when a terminal attempt is submitted or quit again.
	ErrAttemptClosed = errors.New("attempt already closed")
	// ErrUnauthorized covers bad credentials and missing or invalid tokens.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUsernameTaken is returned on registration with an existing username.
	ErrUsernameTaken = errors.New("username already taken")
)

// ValidationError describes malformed input. Index is the offending element
// of a batch, or -1 when the input is not a batch.
type ValidationError struct {
	Index int
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Index >= 0 && e.Field != "":
		return fmt.Sprintf("question %d: %s: %s", e.Index+1, e.Field, e.Msg)
	case e.Index >= 0:
		return fmt.Sprintf("question %d: %s", e.Index+1, e.Msg)
	case e.Field != "":
		return e.Field + ": " + e.Msg
	default:
		return e.Msg
	}
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a non-batch ValidationError.
func Invalid(field, msg string) *ValidationError {
	return &ValidationError{Index: -1, Field: field, Msg: msg}
}

// PersistenceError wraps the storage error behind a failed write.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}
