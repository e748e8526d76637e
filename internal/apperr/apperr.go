// Package apperr defines the error categories shared by the command runner
// and the database probe. Callers classify failures with errors.Is against
// the category sentinels; concrete errors carry the diagnostic payload.
package apperr

import (
	"errors"
	"fmt"
)

// Error categories
var (
	// ErrConfiguration marks caller mistakes (unsupported dialect, missing driver, missing shell).
	ErrConfiguration = errors.New("configuration error")
	// ErrTimeout marks operations that exceeded their wall-clock bound.
	ErrTimeout = errors.New("timeout")
	// ErrExecution marks failures of the operation itself (non-zero exit, I/O, refused connection).
	ErrExecution = errors.New("execution error")
	// ErrInterrupted marks cancellation from the caller.
	ErrInterrupted = errors.New("interrupted")
)

// Error is a categorised failure of a named operation.
type Error struct {
	Kind    error
	Op      string
	Message string
	Err     error
}

// New returns an Error of the given category.
func New(kind error, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap returns an Error of the given category wrapping err.
func Wrap(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Op == "" {
		return fmt.Sprintf("%v: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, msg)
}

// Unwrap exposes both the category and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the category sentinel of err, or nil when err is uncategorised.
func KindOf(err error) error {
	for _, kind := range []error{ErrConfiguration, ErrTimeout, ErrInterrupted, ErrExecution} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
