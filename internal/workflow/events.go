package workflow

import (
	"log"
	"sync/atomic"
	"time"
)

// EventType identifies what happened in a run.
type EventType string

const (
	// EventRunStarted fires once when Start succeeds.
	EventRunStarted EventType = "run_started"
	// EventStepStarted fires when a role begins executing.
	EventStepStarted EventType = "step_started"
	// EventStepRetried fires before each retry attempt.
	EventStepRetried EventType = "step_retried"
	// EventStepCompleted fires when a role's step finishes done.
	EventStepCompleted EventType = "step_completed"
	// EventStepFailed fires when a step exhausts retries or hits a
	// fatal provider error.
	EventStepFailed EventType = "step_failed"
	// EventArtifactWritten fires per artifact written to the workspace.
	EventArtifactWritten EventType = "artifact_written"
	// EventRunCompleted fires when the last step finishes.
	EventRunCompleted EventType = "run_completed"
	// EventRunFailed fires when the run terminates on a failed step.
	EventRunFailed EventType = "run_failed"
	// EventRunCancelled fires when cancellation ends the run.
	EventRunCancelled EventType = "run_cancelled"
)

// Event is one observation of run progress. Events carry everything a
// presentation layer needs so it never has to reach into the run.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// RunID identifies the run.
	RunID string
	// Role is the acting role's name, if applicable.
	Role string
	// StepIndex is the zero-based position of the acting role.
	StepIndex int
	// Attempt is the client-call attempt number for retry events.
	Attempt int
	// Artifact is the artifact name for artifact_written events.
	Artifact string
	// Revision is the artifact revision for artifact_written events.
	Revision int
	// Message provides additional context.
	Message string
	// Err carries failure details for failed events.
	Err error
	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// Emitter fans run events out to one observing channel. Emission never
// blocks the engine for long: if the observer stops draining, events
// are dropped and counted rather than stalling the run.
type Emitter struct {
	events       chan Event
	droppedCount atomic.Uint64
}

// NewEmitter creates an Emitter with the given buffer size.
func NewEmitter(bufferSize int) *Emitter {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Emitter{events: make(chan Event, bufferSize)}
}

// Emit sends an event, waiting briefly for a full buffer to drain
// before dropping.
func (e *Emitter) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case e.events <- event:
		return
	default:
	}

	select {
	case e.events <- event:
	case <-time.After(100 * time.Millisecond):
		count := e.droppedCount.Add(1)
		if count%10 == 1 { // log every 10th drop to avoid spam
			log.Printf("[workflow] event buffer full, dropped event (total dropped: %d): type=%s", count, event.Type)
		}
	}
}

// DroppedCount returns how many events have been dropped.
func (e *Emitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Events returns the read side for observers.
func (e *Emitter) Events() <-chan Event {
	return e.events
}

// Close closes the event channel. Call only after the run is terminal.
func (e *Emitter) Close() {
	close(e.events)
}
