package tui

import (
	"strings"
	"testing"

	"github.com/devcrew-io/devcrew/internal/role"
	"github.com/devcrew-io/devcrew/internal/workflow"
)

func testModel() *Model {
	return NewModel("build a calculator", role.Sequence{
		{Name: "analyst", Activity: "analyzing"},
		{Name: "engineer", Activity: "implementing"},
	})
}

func TestModel_InitialView(t *testing.T) {
	m := testModel()

	view := m.View()
	if !strings.Contains(view, "analyst") || !strings.Contains(view, "engineer") {
		t.Errorf("view missing roles:\n%s", view)
	}
	if !strings.Contains(view, "build a calculator") {
		t.Errorf("view missing task:\n%s", view)
	}
}

func TestModel_AppliesEvents(t *testing.T) {
	m := testModel()

	m.apply(workflow.Event{Type: workflow.EventStepStarted, StepIndex: 0})
	if m.steps[0].status != workflow.StepRunning {
		t.Errorf("step 0 = %s, want running", m.steps[0].status)
	}

	m.apply(workflow.Event{Type: workflow.EventStepRetried, StepIndex: 0, Attempt: 1})
	if m.steps[0].attempts != 2 {
		t.Errorf("attempts = %d, want 2", m.steps[0].attempts)
	}

	m.apply(workflow.Event{Type: workflow.EventArtifactWritten, StepIndex: 0, Artifact: "REQUIREMENTS.md", Revision: 1})
	m.apply(workflow.Event{Type: workflow.EventStepCompleted, StepIndex: 0})
	m.apply(workflow.Event{Type: workflow.EventStepFailed, StepIndex: 1})

	if m.steps[0].status != workflow.StepDone || m.steps[1].status != workflow.StepFailed {
		t.Errorf("statuses = %s, %s", m.steps[0].status, m.steps[1].status)
	}

	view := m.View()
	if !strings.Contains(view, "REQUIREMENTS.md") {
		t.Errorf("view missing artifact:\n%s", view)
	}
}

func TestModel_OutOfRangeEventIgnored(t *testing.T) {
	m := testModel()
	m.apply(workflow.Event{Type: workflow.EventStepStarted, StepIndex: 99})
	for i, s := range m.steps {
		if s.status != workflow.StepPending {
			t.Errorf("step %d mutated by out-of-range event", i)
		}
	}
}

func TestModel_DoneMsg(t *testing.T) {
	m := testModel()
	updated, _ := m.Update(DoneMsg{Success: true})

	view := updated.(*Model).View()
	if !strings.Contains(view, "run completed") {
		t.Errorf("done view missing completion:\n%s", view)
	}
}
