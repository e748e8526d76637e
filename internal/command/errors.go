package command

import (
	"errors"
	"fmt"
	"time"

	"sentinel/internal/apperr"
)

// Runner errors
var (
	ErrShellUnavailable = fmt.Errorf("%w: host command interpreter not found", apperr.ErrConfiguration)
	ErrInterrupted      = fmt.Errorf("%w: command cancelled", apperr.ErrInterrupted)
)

// TimeoutError is returned when a command outlives its timeout. The process
// tree has been killed by the time the error is returned.
type TimeoutError struct {
	Command string
	Timeout time.Duration
	// Output read before the process was killed
	Output string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command timed out after %s: %s", e.Timeout, e.Command)
}

func (e *TimeoutError) Unwrap() error { return apperr.ErrTimeout }

// ExitError is returned when a command terminates with a non-zero status.
type ExitError struct {
	Code   int
	Output string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command exited with code %d", e.Code)
}

func (e *ExitError) Unwrap() error { return apperr.ErrExecution }

// IOError is returned when the command's output or process state cannot be read.
type IOError struct {
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("command i/o failure: %v", e.Err)
}

func (e *IOError) Unwrap() []error { return []error{apperr.ErrExecution, e.Err} }

// outcome labels err for metrics
func outcome(err error) string {
	var (
		exitErr    *ExitError
		timeoutErr *TimeoutError
		ioErr      *IOError
	)
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &exitErr):
		return "exit_error"
	case errors.As(err, &timeoutErr):
		return "timeout"
	case errors.As(err, &ioErr):
		return "io_error"
	case errors.Is(err, ErrInterrupted):
		return "interrupted"
	case errors.Is(err, ErrShellUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
