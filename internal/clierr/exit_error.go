// Package clierr carries process exit codes through ordinary error values so
// that main can stay a two-liner.
package clierr

import (
	"errors"
	"fmt"
)

// Exit statuses used by the dailyreport binary.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitPanic       = 2
	ExitInterrupted = 130
)

type ExitCoder interface {
	error
	ExitCode() int
}

// ExitError is an error that carries an explicit process exit code.
// It supports wrapping via Unwrap so errors.Is/As work as expected.
type ExitError struct {
	code  int
	msg   string
	cause error
}

func (e *ExitError) Error() string {
	if e.cause == nil {
		return e.msg
	}
	return fmt.Sprintf("%s: %v", e.msg, e.cause)
}

func (e *ExitError) ExitCode() int { return e.code }

func (e *ExitError) Unwrap() error { return e.cause }

// New creates an ExitError with a message.
func New(code int, msg string) error {
	return &ExitError{code: normalize(code), msg: msg}
}

// Wrap creates an ExitError that wraps an underlying cause.
func Wrap(code int, msg string, cause error) error {
	if cause == nil {
		return New(code, msg)
	}
	return &ExitError{code: normalize(code), msg: msg, cause: cause}
}

// Interrupted reports a user interrupt (SIGINT/SIGTERM).
func Interrupted(cause error) error {
	return Wrap(ExitInterrupted, "interrupted", cause)
}

// IsInterrupted reports whether err carries the interrupt exit status.
func IsInterrupted(err error) bool {
	return ExitCodeOf(err) == ExitInterrupted
}

// ExitCodeOf extracts an exit code from any error, defaulting to 1.
func ExitCodeOf(err error) int {
	if err == nil {
		return ExitOK
	}
	var ec ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return ExitFailure
}

func normalize(code int) int {
	// Exit code 0 means success; errors should never be 0.
	if code <= 0 {
		return ExitFailure
	}
	return code
}
