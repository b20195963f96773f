package workflow

import (
	"errors"
	"fmt"
)

// InvalidTaskError rejects a task before a run starts. The run state
// is never created for an invalid task.
type InvalidTaskError struct {
	Reason string
}

func (e *InvalidTaskError) Error() string {
	return fmt.Sprintf("invalid task: %s", e.Reason)
}

// ParseError reports that a role's output did not follow the artifact
// convention. It is always recovered locally by storing the whole
// output as a fallback artifact, never escalated to the caller.
type ParseError struct {
	Role   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s output: %s", e.Role, e.Reason)
}

// ErrCancelled terminates a run cleanly when cancellation is requested
// between steps. It is distinct from failure: prior artifacts are
// retained and the run status is RunCancelled.
var ErrCancelled = errors.New("run cancelled")

// ErrRunActive is returned by Start when the engine already owns a
// non-terminal run.
var ErrRunActive = errors.New("a run is already active")
