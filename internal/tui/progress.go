// Package tui provides the live terminal view of a running crew.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/devcrew-io/devcrew/internal/role"
	"github.com/devcrew-io/devcrew/internal/workflow"
)

// EventMsg wraps a workflow event for the TUI.
type EventMsg struct {
	Event workflow.Event
}

// DoneMsg signals that the run has reached a terminal state.
type DoneMsg struct {
	Success bool
	Message string
}

type stepView struct {
	role     string
	activity string
	status   workflow.StepStatus
	attempts int
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	taskStyle      = lipgloss.NewStyle().Faint(true)
	statusPending  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	statusRunning  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	statusDone     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	statusFailed   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	artifactStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	footerStyle    = lipgloss.NewStyle().Faint(true)
	resultOkStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	resultBadStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// Model is the bubbletea model for a single run.
type Model struct {
	task      string
	steps     []stepView
	artifacts []string
	spinner   spinner.Model
	done      bool
	success   bool
	message   string
	quitting  bool
	width     int
}

// NewModel creates a progress model for the given task and role
// sequence.
func NewModel(task string, roles role.Sequence) *Model {
	steps := make([]stepView, len(roles))
	for i, r := range roles {
		activity := r.Activity
		if activity == "" {
			activity = "working"
		}
		steps[i] = stepView{role: r.Name, activity: activity, status: workflow.StepPending}
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = statusRunning

	return &Model{task: task, steps: steps, spinner: sp}
}

// NewProgram wraps the model in a tea.Program.
func NewProgram(task string, roles role.Sequence) (*tea.Program, *Model) {
	m := NewModel(task, roles)
	return tea.NewProgram(m), m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case EventMsg:
		m.apply(msg.Event)

	case DoneMsg:
		m.done = true
		m.success = msg.Success
		m.message = msg.Message
	}
	return m, nil
}

func (m *Model) apply(ev workflow.Event) {
	switch ev.Type {
	case workflow.EventStepStarted:
		m.setStatus(ev.StepIndex, workflow.StepRunning, 1)
	case workflow.EventStepRetried:
		m.setStatus(ev.StepIndex, workflow.StepRunning, ev.Attempt+1)
	case workflow.EventStepCompleted:
		m.setStatus(ev.StepIndex, workflow.StepDone, ev.Attempt)
	case workflow.EventStepFailed:
		m.setStatus(ev.StepIndex, workflow.StepFailed, ev.Attempt)
	case workflow.EventArtifactWritten:
		label := ev.Artifact
		if ev.Revision > 1 {
			label = fmt.Sprintf("%s (rev %d)", ev.Artifact, ev.Revision)
		}
		m.artifacts = append(m.artifacts, label)
	}
}

func (m *Model) setStatus(idx int, status workflow.StepStatus, attempts int) {
	if idx < 0 || idx >= len(m.steps) {
		return
	}
	m.steps[idx].status = status
	if attempts > m.steps[idx].attempts {
		m.steps[idx].attempts = attempts
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("devcrew"))
	b.WriteString("  ")
	b.WriteString(taskStyle.Render(truncate(m.task, 70)))
	b.WriteString("\n\n")

	for _, s := range m.steps {
		b.WriteString("  ")
		switch s.status {
		case workflow.StepPending:
			b.WriteString(statusPending.Render("○ " + s.role))
		case workflow.StepRunning:
			line := fmt.Sprintf("%s %s (%s)", m.spinner.View(), s.role, s.activity)
			if s.attempts > 1 {
				line += fmt.Sprintf(" [attempt %d]", s.attempts)
			}
			b.WriteString(statusRunning.Render(line))
		case workflow.StepDone:
			b.WriteString(statusDone.Render("✓ " + s.role))
		case workflow.StepFailed:
			b.WriteString(statusFailed.Render("✗ " + s.role))
		}
		b.WriteString("\n")
	}

	if len(m.artifacts) > 0 {
		b.WriteString("\n  ")
		b.WriteString(artifactStyle.Render(fmt.Sprintf("artifacts: %s", strings.Join(m.artifacts, ", "))))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.done {
		if m.success {
			b.WriteString(resultOkStyle.Render("  run completed"))
		} else {
			b.WriteString(resultBadStyle.Render("  run ended: " + m.message))
		}
		b.WriteString(footerStyle.Render("  — press q to exit"))
	} else {
		b.WriteString(footerStyle.Render("  press q to abort the display (the run continues)"))
	}
	b.WriteString("\n")
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
