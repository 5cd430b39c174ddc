package collector

import (
	"fmt"

	"github.com/rileyhilliard/loadwatch/internal/errors"
)

// Stage names the step of a collection that failed.
type Stage string

const (
	StageConnect       Stage = "connect"
	StageLoadCommand   Stage = "load command"
	StageMemoryCommand Stage = "memory command"
)

// CollectionError is the only error Collect returns. It is never fatal to a
// cycle; the scheduler logs it and moves on to the next host.
type CollectionError struct {
	Host  string
	Stage Stage
	Cause error
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("collect %s: %s: %s", e.Host, e.Stage, errors.Summary(e.Cause))
}

func (e *CollectionError) Unwrap() error {
	return e.Cause
}

// Code maps the stage onto the error taxonomy: connection problems are
// SSH errors, command problems are EXEC errors.
func (e *CollectionError) Code() string {
	if e.Stage == StageConnect {
		return errors.ErrSSH
	}
	return errors.ErrExec
}

// Short returns a single-line description suitable for logs and tables.
func (e *CollectionError) Short() string {
	return fmt.Sprintf("%s failed: %s", e.Stage, errors.Summary(e.Cause))
}

// commandFailure describes a command that ran but did not produce usable output.
type commandFailure struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (f *commandFailure) Error() string {
	if f.ExitCode != 0 {
		msg := fmt.Sprintf("%q exited with status %d", f.Command, f.ExitCode)
		if f.Stderr != "" {
			msg += ": " + f.Stderr
		}
		return msg
	}
	return fmt.Sprintf("%q printed nothing", f.Command)
}
