package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/devcrew-io/devcrew/internal/llm"
	"github.com/devcrew-io/devcrew/internal/role"
	"github.com/devcrew-io/devcrew/internal/workspace"
)

// Options tunes one engine. Zero values are replaced by defaults.
type Options struct {
	// MaxRetries is the maximum number of client calls per step,
	// including the first. A step fails once this many attempts have
	// failed.
	MaxRetries int
	// Backoff is the delay policy between attempts.
	Backoff Backoff
	// MaxArtifactContextChars bounds how much of each prior artifact is
	// included in a role's context.
	MaxArtifactContextChars int
	// MaxTaskChars bounds the task description length.
	MaxTaskChars int
	// MaxTokens bounds each generation.
	MaxTokens int64
	// Temperature is passed through to the client.
	Temperature float64
	// StepTimeout bounds each individual client call. Zero disables
	// the per-call timeout.
	StepTimeout time.Duration
	// EventBuffer sizes the event channel.
	EventBuffer int
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		MaxRetries:              3,
		Backoff:                 Backoff{Policy: BackoffExponential, Base: 2 * time.Second, Max: 30 * time.Second},
		MaxArtifactContextChars: 6000,
		MaxTaskChars:            5000,
		MaxTokens:               8192,
		Temperature:             0.7,
		StepTimeout:             5 * time.Minute,
		EventBuffer:             128,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.MaxRetries <= 0 {
		o.MaxRetries = def.MaxRetries
	}
	if o.Backoff.Base <= 0 {
		o.Backoff = def.Backoff
	}
	if o.MaxArtifactContextChars == 0 {
		o.MaxArtifactContextChars = def.MaxArtifactContextChars
	}
	if o.MaxTaskChars == 0 {
		o.MaxTaskChars = def.MaxTaskChars
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = def.MaxTokens
	}
	if o.EventBuffer <= 0 {
		o.EventBuffer = def.EventBuffer
	}
	return o
}

// Engine executes one run at a time through a fixed role sequence.
// Steps are strictly sequential: each role's context is built from the
// workspace as left by the roles before it, so a role can never see
// output from a role scheduled later.
type Engine struct {
	roles   role.Sequence
	client  llm.Generator
	opts    Options
	emitter *Emitter

	mu  sync.Mutex
	run *Run
}

// New creates an engine for the given role sequence and client.
func New(roles role.Sequence, client llm.Generator, opts Options) (*Engine, error) {
	if err := roles.Validate(); err != nil {
		return nil, fmt.Errorf("invalid role sequence: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("nil language model client")
	}
	opts = opts.withDefaults()
	return &Engine{
		roles:   roles,
		client:  client,
		opts:    opts,
		emitter: NewEmitter(opts.EventBuffer),
	}, nil
}

// Events returns the engine's event stream for observers.
func (e *Engine) Events() <-chan Event {
	return e.emitter.Events()
}

// CloseEvents closes the event stream. Call once the run is terminal
// and no further Start is coming.
func (e *Engine) CloseEvents() {
	e.emitter.Close()
}

// State returns the engine's current run, or nil before Start.
func (e *Engine) State() *Run {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.run
}

// Start validates the task and initializes a fresh run: step 0, all
// steps pending, empty workspace. It fails with *InvalidTaskError for
// a bad task and ErrRunActive if a non-terminal run exists.
func (e *Engine) Start(task string) (*Run, error) {
	if err := ValidateTask(task, e.opts.MaxTaskChars); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.run != nil && !e.run.Status.Terminal() {
		return nil, ErrRunActive
	}

	steps := make([]StepState, len(e.roles))
	for i, r := range e.roles {
		steps[i] = StepState{Role: r.Name, Status: StepPending}
	}

	run := &Run{
		ID:        uuid.New().String(),
		Task:      strings.TrimSpace(task),
		Roles:     e.roles,
		Steps:     steps,
		Current:   0,
		Status:    RunRunning,
		Workspace: workspace.New(),
		StartedAt: time.Now(),
	}
	e.run = run

	log.Printf("[workflow] run %s started: %d roles, task %q", shortID(run.ID), len(e.roles), truncateForLog(run.Task))
	e.emitter.Emit(Event{Type: EventRunStarted, RunID: run.ID, Message: fmt.Sprintf("%d roles", len(e.roles))})
	return run, nil
}

// Step advances the run by exactly one role. Cancellation is checked
// before any work; a cancelled step discards in-flight results and
// ends the run with RunCancelled. On a failed step the run transitions
// to RunFailed and no further steps execute.
func (e *Engine) Step(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	run := e.run
	if run == nil {
		return fmt.Errorf("no active run")
	}
	if run.Status.Terminal() {
		return fmt.Errorf("run already %s", run.Status)
	}

	if err := ctx.Err(); err != nil {
		e.cancelRun(run, err)
		return ErrCancelled
	}

	acting := run.Roles[run.Current]
	step := &run.Steps[run.Current]
	step.Status = StepRunning
	step.StartedAt = time.Now()
	e.emitter.Emit(Event{Type: EventStepStarted, RunID: run.ID, Role: acting.Name, StepIndex: run.Current, Message: acting.Activity})
	log.Printf("[workflow] run %s step %d/%d: %s", shortID(run.ID), run.Current+1, len(run.Steps), acting.Name)

	req, err := e.buildRequest(run, acting)
	if err != nil {
		// Templates are validated at New; reaching this means the role
		// data changed underneath us. Not retryable.
		e.failStep(run, step, err)
		return err
	}

	resp, err := e.generateWithRetry(ctx, run, step, acting, req)
	if err != nil {
		if errors.Is(err, ErrCancelled) {
			e.cancelRun(run, context.Canceled)
			return ErrCancelled
		}
		e.failStep(run, step, err)
		return err
	}

	e.applyOutput(run, step, acting, resp.Text)

	step.Status = StepDone
	step.FinishedAt = time.Now()
	e.emitter.Emit(Event{Type: EventStepCompleted, RunID: run.ID, Role: acting.Name, StepIndex: run.Current, Attempt: step.Attempts})

	run.Current++
	if run.Current == len(run.Steps) {
		run.Status = RunCompleted
		run.FinishedAt = time.Now()
		e.emitter.Emit(Event{Type: EventRunCompleted, RunID: run.ID, Message: fmt.Sprintf("%d artifacts", run.Workspace.Len())})
		log.Printf("[workflow] run %s completed: %d artifacts", shortID(run.ID), run.Workspace.Len())
	}
	return nil
}

// Run composes Start and repeated Step until the run is terminal.
// The returned run carries whatever artifacts were produced, for
// completed, failed, and cancelled terminations alike.
func (e *Engine) Run(ctx context.Context, task string) (*Run, error) {
	run, err := e.Start(task)
	if err != nil {
		return nil, err
	}
	for !run.Status.Terminal() {
		if err := e.Step(ctx); err != nil {
			return run, err
		}
	}
	return run, nil
}

// buildRequest renders the acting role's context: the task, the role's
// instruction template, and the bounded workspace rendering.
func (e *Engine) buildRequest(run *Run, acting role.Role) (llm.Request, error) {
	artifacts := workspace.Render(run.Workspace.Snapshot(), e.opts.MaxArtifactContextChars)
	prompt, err := acting.RenderInstructions(role.PromptData{Task: run.Task, Artifacts: artifacts})
	if err != nil {
		return llm.Request{}, err
	}
	system := fmt.Sprintf("You are the %s of a software generation crew. %s.", acting.Name, acting.Responsibility)
	return llm.Request{
		System:      system,
		Prompt:      prompt,
		MaxTokens:   e.opts.MaxTokens,
		Temperature: e.opts.Temperature,
	}, nil
}

// generateWithRetry invokes the client with bounded retries and
// backoff. Only retryable provider errors and per-call timeouts are
// retried; fatal provider errors fail the step on the spot.
func (e *Engine) generateWithRetry(ctx context.Context, run *Run, step *StepState, acting role.Role, req llm.Request) (*llm.Response, error) {
	var lastErr error
	for attempt := 1; attempt <= e.opts.MaxRetries; attempt++ {
		step.Attempts = attempt

		callCtx := ctx
		var cancel context.CancelFunc
		if e.opts.StepTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, e.opts.StepTimeout)
		}
		resp, err := e.client.Generate(callCtx, req)
		if cancel != nil {
			cancel()
		}

		if err == nil {
			return resp, nil
		}

		// Run-level cancellation: abandon the call and discard any
		// partial result.
		if ctx.Err() != nil {
			return nil, ErrCancelled
		}

		lastErr = err
		timedOut := errors.Is(err, context.DeadlineExceeded)
		if !timedOut && !llm.IsRetryable(err) {
			return nil, fmt.Errorf("%s: %w", acting.Name, err)
		}
		if attempt == e.opts.MaxRetries {
			break
		}

		delay := e.opts.Backoff.Delay(attempt)
		log.Printf("[workflow] run %s step %s attempt %d failed, retrying in %s: %v", shortID(run.ID), acting.Name, attempt, delay, err)
		e.emitter.Emit(Event{Type: EventStepRetried, RunID: run.ID, Role: acting.Name, StepIndex: run.Current, Attempt: attempt, Err: err})
		if err := sleep(ctx, delay); err != nil {
			return nil, ErrCancelled
		}
	}
	return nil, fmt.Errorf("%s: %d attempts exhausted: %w", acting.Name, e.opts.MaxRetries, lastErr)
}

// applyOutput parses the response into artifacts and writes them.
// Unparsable output becomes a single fallback artifact named for the
// role: a successful generation always changes the workspace.
func (e *Engine) applyOutput(run *Run, step *StepState, acting role.Role, output string) {
	files, perr := ExtractArtifacts(acting.Name, output)
	if perr != nil {
		log.Printf("[workflow] run %s: %v, storing fallback artifact", shortID(run.ID), perr)
		files = []ParsedFile{{Name: FallbackName(acting.Name), Content: strings.TrimSpace(output)}}
		step.Fallback = true
	}

	if verdict := DetectVerdict(output); verdict != VerdictNone {
		step.Verdict = verdict
		if verdict == VerdictFixRequired {
			log.Printf("[workflow] run %s: %s flagged FIX_REQUIRED; later roles see the review and proceed", shortID(run.ID), acting.Name)
		}
	}

	for _, f := range files {
		art := run.Workspace.Put(f.Name, f.Content, acting.Name)
		e.emitter.Emit(Event{Type: EventArtifactWritten, RunID: run.ID, Role: acting.Name, StepIndex: run.Current, Artifact: art.Name, Revision: art.Revision})
	}
}

func (e *Engine) failStep(run *Run, step *StepState, cause error) {
	step.Status = StepFailed
	step.Error = cause.Error()
	step.FinishedAt = time.Now()
	run.Status = RunFailed
	run.Reason = cause.Error()
	run.FinishedAt = time.Now()

	e.emitter.Emit(Event{Type: EventStepFailed, RunID: run.ID, Role: step.Role, StepIndex: run.Current, Attempt: step.Attempts, Err: cause})
	e.emitter.Emit(Event{Type: EventRunFailed, RunID: run.ID, Err: cause})
	log.Printf("[workflow] run %s failed at %s: %v", shortID(run.ID), step.Role, cause)
}

func (e *Engine) cancelRun(run *Run, cause error) {
	run.Status = RunCancelled
	run.Reason = cause.Error()
	run.FinishedAt = time.Now()
	e.emitter.Emit(Event{Type: EventRunCancelled, RunID: run.ID, Err: cause})
	log.Printf("[workflow] run %s cancelled after %d done steps", shortID(run.ID), run.Done())
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncateForLog(s string) string {
	if len(s) > 80 {
		return s[:80] + "..."
	}
	return s
}
