package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/devcrew-io/devcrew/internal/llm"
	"github.com/devcrew-io/devcrew/internal/role"
)

const testTask = "build a calculator app with basic arithmetic operations"

// scriptedCall is one canned client response.
type scriptedCall struct {
	text string
	err  error
}

// scriptedClient returns canned responses in order and records every
// request it receives.
type scriptedClient struct {
	mu       sync.Mutex
	script   []scriptedCall
	requests []llm.Request
}

func (c *scriptedClient) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if len(c.script) == 0 {
		return nil, errors.New("script exhausted")
	}
	call := c.script[0]
	c.script = c.script[1:]
	if call.err != nil {
		return nil, call.err
	}
	return &llm.Response{Text: call.text}, nil
}

func (c *scriptedClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func fileBlock(name, content string) string {
	return fmt.Sprintf("===BEGIN_FILE:%s===\n%s\n===END_FILE===\n", name, content)
}

func testRoles(names ...string) role.Sequence {
	seq := make(role.Sequence, 0, len(names))
	for _, n := range names {
		seq = append(seq, role.Role{
			Name:           n,
			Responsibility: "test role",
			Activity:       "working",
			Instructions:   "Do the " + n + " work for {{.Task}}.\n{{if .Artifacts}}Prior:\n{{.Artifacts}}{{end}}",
		})
	}
	return seq
}

func fastOptions() Options {
	return Options{
		MaxRetries: 3,
		Backoff:    Backoff{Policy: BackoffFixed, Base: time.Millisecond},
	}
}

func retryableErr() error {
	return &llm.ProviderError{StatusCode: 429, Retryable: true, Err: errors.New("rate limited")}
}

func fatalErr() error {
	return &llm.ProviderError{StatusCode: 401, Retryable: false, Err: errors.New("invalid credentials")}
}

func TestRun_ThreeRolesComplete(t *testing.T) {
	client := &scriptedClient{script: []scriptedCall{
		{text: fileBlock("REQUIREMENTS.md", "reqs")},
		{text: fileBlock("main.py", "code")},
		{text: "APPROVED\n" + fileBlock("REVIEW.md", "looks good")},
	}}
	eng, err := New(testRoles("analyst", "engineer", "reviewer"), client, fastOptions())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	run, err := eng.Run(context.Background(), testTask)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if run.Status != RunCompleted {
		t.Fatalf("status = %s, want completed", run.Status)
	}
	if run.Done() != 3 {
		t.Errorf("done steps = %d, want 3", run.Done())
	}

	snap := run.Workspace.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("artifact count = %d, want 3", len(snap))
	}
	byName := map[string]string{}
	for _, a := range snap {
		byName[a.Name] = a.ProducedBy
		if a.Revision != 1 {
			t.Errorf("artifact %s revision = %d, want 1", a.Name, a.Revision)
		}
	}
	if byName["REQUIREMENTS.md"] != "analyst" || byName["main.py"] != "engineer" || byName["REVIEW.md"] != "reviewer" {
		t.Errorf("producedBy wrong: %v", byName)
	}
	if run.Steps[2].Verdict != VerdictApproved {
		t.Errorf("reviewer verdict = %q, want approved", run.Steps[2].Verdict)
	}
}

func TestRun_StepsExecuteInConfiguredOrder(t *testing.T) {
	names := []string{"analyst", "engineer", "reviewer", "tech_writer", "qa_engineer", "devops_engineer", "ux_designer"}
	var script []scriptedCall
	for i := range names {
		script = append(script, scriptedCall{text: fileBlock(fmt.Sprintf("out_%d.md", i), "x")})
	}
	client := &scriptedClient{script: script}
	eng, _ := New(testRoles(names...), client, fastOptions())

	run, err := eng.Run(context.Background(), testTask)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Status != RunCompleted || run.Done() != len(names) {
		t.Fatalf("status=%s done=%d", run.Status, run.Done())
	}

	// Each role's prompt must include all earlier outputs and none of
	// the later ones: the ordering guarantee of the whole system.
	for i, req := range client.requests {
		for j := 0; j < len(names); j++ {
			name := fmt.Sprintf("out_%d.md", j)
			has := strings.Contains(req.Prompt, name)
			if j < i && !has {
				t.Errorf("step %d prompt missing earlier artifact %s", i, name)
			}
			if j >= i && has {
				t.Errorf("step %d prompt leaked later artifact %s", i, name)
			}
		}
	}
}

func TestRun_RetriesThenSucceeds(t *testing.T) {
	client := &scriptedClient{script: []scriptedCall{
		{text: fileBlock("REQUIREMENTS.md", "reqs")},
		{err: retryableErr()},
		{err: retryableErr()},
		{text: fileBlock("main.py", "code")},
		{text: fileBlock("REVIEW.md", "ok")},
	}}
	eng, _ := New(testRoles("analyst", "engineer", "reviewer"), client, fastOptions())

	run, err := eng.Run(context.Background(), testTask)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Status != RunCompleted {
		t.Fatalf("status = %s, want completed", run.Status)
	}
	if run.Steps[1].Attempts != 3 {
		t.Errorf("engineer attempts = %d, want 3", run.Steps[1].Attempts)
	}
	if client.calls() != 5 {
		t.Errorf("total client calls = %d, want 5", client.calls())
	}
}

func TestRun_RetriesExhaustedFailsRun(t *testing.T) {
	client := &scriptedClient{script: []scriptedCall{
		{text: fileBlock("REQUIREMENTS.md", "reqs")},
		{err: retryableErr()},
		{err: retryableErr()},
		{err: retryableErr()},
	}}
	eng, _ := New(testRoles("analyst", "engineer", "reviewer"), client, fastOptions())

	run, err := eng.Run(context.Background(), testTask)
	if err == nil {
		t.Fatal("Run should report the failure")
	}
	if run.Status != RunFailed {
		t.Fatalf("status = %s, want failed", run.Status)
	}
	if run.Current != 1 {
		t.Errorf("current step = %d, must not advance past the failed step", run.Current)
	}
	if run.Steps[1].Status != StepFailed || run.Steps[1].Attempts != 3 {
		t.Errorf("engineer step = %+v", run.Steps[1])
	}
	if run.Steps[2].Status != StepPending {
		t.Errorf("reviewer should stay pending, got %s", run.Steps[2].Status)
	}
	// Prior artifacts stay intact and visible.
	if _, ok := run.Workspace.Get("REQUIREMENTS.md"); !ok {
		t.Error("analyst artifact lost on failure")
	}
}

func TestRun_FatalErrorEndsRunWithoutRetry(t *testing.T) {
	client := &scriptedClient{script: []scriptedCall{
		{err: fatalErr()},
	}}
	eng, _ := New(testRoles("analyst", "engineer"), client, fastOptions())

	run, err := eng.Run(context.Background(), testTask)
	if err == nil {
		t.Fatal("Run should fail")
	}
	if run.Status != RunFailed {
		t.Fatalf("status = %s, want failed", run.Status)
	}
	if client.calls() != 1 {
		t.Errorf("fatal error retried: %d calls", client.calls())
	}
}

func TestRun_UnparsableOutputStoresFallback(t *testing.T) {
	client := &scriptedClient{script: []scriptedCall{
		{text: "Here are some thoughts with no file blocks at all."},
		{text: fileBlock("main.py", "code")},
	}}
	eng, _ := New(testRoles("analyst", "engineer"), client, fastOptions())

	run, err := eng.Run(context.Background(), testTask)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	art, ok := run.Workspace.Get("analyst.md")
	if !ok {
		t.Fatal("fallback artifact analyst.md not created")
	}
	if art.ProducedBy != "analyst" || !strings.Contains(art.Content, "thoughts") {
		t.Errorf("fallback artifact = %+v", art)
	}
	if !run.Steps[0].Fallback {
		t.Error("step should be marked as fallback")
	}
	if run.Status != RunCompleted {
		t.Errorf("unparsable output must not fail the run: %s", run.Status)
	}
}

func TestRun_ArtifactOverwriteIncrementsRevision(t *testing.T) {
	client := &scriptedClient{script: []scriptedCall{
		{text: fileBlock("main.py", "v1")},
		{text: fileBlock("main.py", "v2 refined")},
	}}
	eng, _ := New(testRoles("engineer", "reviewer"), client, fastOptions())

	run, err := eng.Run(context.Background(), testTask)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	art, _ := run.Workspace.Get("main.py")
	if art.Revision != 2 || art.ProducedBy != "reviewer" {
		t.Errorf("latest main.py = %+v, want rev 2 by reviewer", art)
	}
	hist := run.Workspace.History()
	if len(hist) != 2 || hist[0].ProducedBy != "engineer" {
		t.Errorf("history = %+v", hist)
	}
}

func TestStep_CancelBetweenSteps(t *testing.T) {
	names := []string{"r1", "r2", "r3", "r4", "r5", "r6", "r7"}
	var script []scriptedCall
	for i := range names {
		script = append(script, scriptedCall{text: fileBlock(fmt.Sprintf("f%d.md", i), "x")})
	}
	client := &scriptedClient{script: script}
	eng, _ := New(testRoles(names...), client, fastOptions())

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := eng.Start(testTask); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := eng.Step(ctx); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}
	cancel()

	err := eng.Step(ctx)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("Step after cancel = %v, want ErrCancelled", err)
	}

	run := eng.State()
	if run.Status != RunCancelled {
		t.Fatalf("status = %s, want cancelled", run.Status)
	}
	if run.Done() != 3 {
		t.Errorf("done steps = %d, want 3", run.Done())
	}
	for i := 3; i < 7; i++ {
		if s := run.Steps[i].Status; s != StepPending {
			t.Errorf("step %d status = %s, want pending", i, s)
		}
	}
	if got := run.Workspace.Len(); got != 3 {
		t.Errorf("artifacts retained = %d, want 3", got)
	}
}

func TestStart_InvalidTask(t *testing.T) {
	eng, _ := New(testRoles("analyst"), &scriptedClient{}, fastOptions())

	for _, task := range []string{"", "   ", "short", "ok " + strings.Repeat("x", 6000)} {
		_, err := eng.Start(task)
		var ite *InvalidTaskError
		if !errors.As(err, &ite) {
			t.Errorf("Start(%q) = %v, want InvalidTaskError", truncateForLog(task), err)
		}
	}
	if eng.State() != nil {
		t.Error("invalid task must not create a run")
	}
}

func TestStart_RejectsSecondActiveRun(t *testing.T) {
	client := &scriptedClient{script: []scriptedCall{{text: fileBlock("a.md", "x")}}}
	eng, _ := New(testRoles("analyst"), client, fastOptions())

	if _, err := eng.Start(testTask); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := eng.Start(testTask); !errors.Is(err, ErrRunActive) {
		t.Fatalf("second Start = %v, want ErrRunActive", err)
	}

	// After the run terminates, a new one may start.
	if err := eng.Step(context.Background()); err != nil {
		t.Fatalf("Step: %v", err)
	}
	client.mu.Lock()
	client.script = []scriptedCall{{text: fileBlock("b.md", "y")}}
	client.mu.Unlock()
	if _, err := eng.Start(testTask); err != nil {
		t.Fatalf("Start after terminal run: %v", err)
	}
}

func TestRun_AtMostOneRunningStep(t *testing.T) {
	client := &scriptedClient{script: []scriptedCall{
		{text: fileBlock("a.md", "x")},
		{text: fileBlock("b.md", "y")},
	}}
	eng, _ := New(testRoles("analyst", "engineer"), client, fastOptions())

	if _, err := eng.Start(testTask); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for eng.State().Status == RunRunning {
		running := 0
		for _, s := range eng.State().Steps {
			if s.Status == StepRunning {
				running++
			}
		}
		if running > 1 {
			t.Fatalf("%d steps running at once", running)
		}
		if err := eng.Step(context.Background()); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}
}

func TestRun_EmitsLifecycleEvents(t *testing.T) {
	client := &scriptedClient{script: []scriptedCall{
		{err: retryableErr()},
		{text: fileBlock("a.md", "x")},
	}}
	eng, _ := New(testRoles("analyst"), client, fastOptions())

	var mu sync.Mutex
	var seen []EventType
	rep := Observe(eng.Events(), func(ev Event) {
		mu.Lock()
		seen = append(seen, ev.Type)
		mu.Unlock()
	})

	if _, err := eng.Run(context.Background(), testTask); err != nil {
		t.Fatalf("Run: %v", err)
	}
	eng.CloseEvents()
	rep.Wait()

	want := []EventType{EventRunStarted, EventStepStarted, EventStepRetried, EventArtifactWritten, EventStepCompleted, EventRunCompleted}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != len(want) {
		t.Fatalf("events = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("event[%d] = %s, want %s", i, seen[i], want[i])
		}
	}
}
