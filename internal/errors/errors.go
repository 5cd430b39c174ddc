package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorizing errors
const (
	ErrConfig   = "CONFIG"
	ErrSSH      = "SSH"
	ErrExec     = "EXEC"
	ErrParse    = "PARSE"
	ErrStore    = "STORE"
	ErrNotFound = "NOT_FOUND"
	ErrConflict = "CONFLICT"
)

// Error represents a structured error with code, message, suggestion, and optional cause.
// Rendered for operators as:
//
//	✗ <What failed>
//
//	  <Why it failed - technical details>
//
//	  <How to fix it - actionable steps>
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// New creates a new structured error with the given code, message, and suggestion.
func New(code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Wrap wraps an existing error with a message, defaulting to ErrSSH code.
func Wrap(err error, message string) *Error {
	return &Error{
		Code:    ErrSSH,
		Message: message,
		Cause:   err,
	}
}

// WrapWithCode wraps an existing error with a specific code, message, and suggestion.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("✗ %s\n", e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Cause.Error()))
	}

	if e.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Suggestion))
	}

	return b.String()
}

// Short returns the message and cause on a single line, for log fields and
// API responses where the multi-line rendering is unwanted.
func (e *Error) Short() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + strings.TrimSpace(firstLine(e.Cause))
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// coder is implemented by domain errors that classify themselves without
// being an *Error, such as a per-host collection failure.
type coder interface {
	Code() string
}

// IsCode checks if an error carries the given code.
// The outermost structured error or coder in the chain decides.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	got, ok := codeOf(err)
	return ok && got == code
}

// Code returns the code of the outermost structured error or coder in the
// chain, or an empty string when there is none.
func Code(err error) string {
	got, _ := codeOf(err)
	return got
}

func codeOf(err error) (string, bool) {
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch v := e.(type) {
		case *Error:
			return v.Code, true
		case coder:
			return v.Code(), true
		}
	}
	// Joined errors don't unwrap to a single chain.
	var lwErr *Error
	if errors.As(err, &lwErr) {
		return lwErr.Code, true
	}
	return "", false
}

// Summary renders any error on a single line.
func Summary(err error) string {
	if err == nil {
		return ""
	}
	var lwErr *Error
	if errors.As(err, &lwErr) {
		return lwErr.Short()
	}
	return firstLine(err)
}

func firstLine(err error) string {
	var short interface{ Short() string }
	if errors.As(err, &short) {
		return short.Short()
	}
	msg := strings.TrimSpace(err.Error())
	msg = strings.TrimPrefix(msg, "✗ ")
	if idx := strings.Index(msg, "\n"); idx >= 0 {
		return msg[:idx]
	}
	return msg
}

// ExitError carries a process exit code out of a command without printing
// an additional error message.
type ExitError struct {
	Code int
}

// NewExitError creates an ExitError with the given code.
func NewExitError(code int) *ExitError {
	return &ExitError{Code: code}
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// GetExitCode extracts the exit code from an ExitError in the chain.
func GetExitCode(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}
