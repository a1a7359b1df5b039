package pipeline

import (
	"errors"
	"fmt"

	"safaribuild/internal/shell"
)

// ProcessFailureError reports an external command that exited non-zero.
// Fatal: the pipeline stops and nothing is retried.
type ProcessFailureError struct {
	Stage    Stage
	Command  string
	ExitCode int
	Cause    error
}

func (e *ProcessFailureError) Error() string {
	if e == nil {
		return ""
	}
	if e.ExitCode != 0 {
		return fmt.Sprintf("%s failed (exit %d): %s", e.Stage, e.ExitCode, e.Command)
	}
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Cause)
}

func (e *ProcessFailureError) Unwrap() error { return e.Cause }

// PreconditionError reports a stage whose required input is absent, such as
// the project file the converter should have produced.
type PreconditionError struct {
	Stage   Stage
	Path    string
	Message string
	Cause   error
}

func (e *PreconditionError) Error() string {
	if e == nil {
		return ""
	}
	if e.Path != "" {
		return fmt.Sprintf("%s precondition failed: %s: %s", e.Stage, e.Message, e.Path)
	}
	return fmt.Sprintf("%s precondition failed: %s", e.Stage, e.Message)
}

func (e *PreconditionError) Unwrap() error { return e.Cause }

func processFailure(stage Stage, cmd shell.Command, err error) *ProcessFailureError {
	pf := &ProcessFailureError{Stage: stage, Command: cmd.String(), Cause: err}
	var exitErr *shell.ExitError
	if errors.As(err, &exitErr) {
		pf.ExitCode = exitErr.ExitCode
	}
	return pf
}
