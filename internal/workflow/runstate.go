// Package workflow drives the sequential execution of a role crew
// against one task: context construction, generation, artifact
// extraction, retry, and termination.
package workflow

import (
	"time"

	"github.com/devcrew-io/devcrew/internal/role"
	"github.com/devcrew-io/devcrew/internal/workspace"
)

// StepStatus is the lifecycle state of one role's step.
type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepRunning StepStatus = "running"
	StepDone    StepStatus = "done"
	StepFailed  StepStatus = "failed"
)

// RunStatus is the overall state of a run.
type RunStatus string

const (
	// RunNotStarted means Start has not been called.
	RunNotStarted RunStatus = "not_started"
	// RunRunning means at least one step remains and none has failed.
	RunRunning RunStatus = "running"
	// RunCompleted means every step finished done.
	RunCompleted RunStatus = "completed"
	// RunFailed means a step exhausted its retries or hit a fatal error.
	RunFailed RunStatus = "failed"
	// RunCancelled means the run was cancelled between steps.
	RunCancelled RunStatus = "cancelled"
)

// Terminal reports whether the status admits no further steps.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunFailed || s == RunCancelled
}

// Verdict is the reviewer's judgement extracted from a step's output.
type Verdict string

const (
	VerdictNone        Verdict = ""
	VerdictApproved    Verdict = "approved"
	VerdictFixRequired Verdict = "fix_required"
)

// StepState records the progress of one role in the sequence.
type StepState struct {
	// Role is the acting role's name.
	Role string
	// Status is the step's lifecycle state.
	Status StepStatus
	// Attempts is how many client calls this step made (including the
	// successful one).
	Attempts int
	// Verdict is set when the role's output carried an APPROVED or
	// FIX_REQUIRED keyword.
	Verdict Verdict
	// Fallback is true when the output was unparsable and stored as a
	// single fallback artifact.
	Fallback bool
	// Error holds the failure message for a failed step.
	Error string
	// StartedAt and FinishedAt bracket the step's execution.
	StartedAt  time.Time
	FinishedAt time.Time
}

// Run is the sole unit of mutable state for one workflow execution.
// It is owned by the engine that created it and must only be mutated
// through the engine's Step function.
type Run struct {
	// ID uniquely identifies the run.
	ID string
	// Task is the user's request, immutable once the run starts.
	Task string
	// Roles is the fixed sequence for this run.
	Roles role.Sequence
	// Steps mirrors Roles one to one; its length and order never
	// change for the run's lifetime.
	Steps []StepState
	// Current is the index of the next step to execute.
	Current int
	// Status is the overall run state.
	Status RunStatus
	// Reason describes why the run terminated, for failed and
	// cancelled runs.
	Reason string
	// Workspace accumulates this run's artifacts.
	Workspace *workspace.Workspace
	// StartedAt and FinishedAt bracket the run.
	StartedAt  time.Time
	FinishedAt time.Time
}

// Done counts steps that finished successfully.
func (r *Run) Done() int {
	n := 0
	for _, s := range r.Steps {
		if s.Status == StepDone {
			n++
		}
	}
	return n
}

// CurrentRole returns the role about to act, if the run is not terminal.
func (r *Run) CurrentRole() (role.Role, bool) {
	if r.Status.Terminal() || r.Current >= len(r.Roles) {
		return role.Role{}, false
	}
	return r.Roles[r.Current], true
}
