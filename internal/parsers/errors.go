package parsers

import "fmt"

// ParseError reports diagnostic output that could not be understood.
type ParseError struct {
	// Metric is "load" or "memory".
	Metric string

	// Reason says what was wrong with the input.
	Reason string

	// Input is the offending text, truncated for logging.
	Input string

	Err error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parse %s: %s", e.Metric, e.Reason)
	if e.Input != "" {
		msg += fmt.Sprintf(" (input %q)", e.Input)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

const maxInputInError = 80

func newParseError(metric, reason, input string, err error) *ParseError {
	if len(input) > maxInputInError {
		input = input[:maxInputInError] + "..."
	}
	return &ParseError{Metric: metric, Reason: reason, Input: input, Err: err}
}
