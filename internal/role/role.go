// Package role defines the specialized agent roles that make up a
// generation crew and the ordered sequence they execute in.
package role

import (
	"fmt"
	"strings"
	"text/template"
)

// Role is an immutable descriptor for one specialized agent.
// Roles are constructed once at startup and never mutated during a run.
type Role struct {
	// Name uniquely identifies the role within a sequence (e.g. "reviewer").
	Name string `yaml:"name"`
	// Responsibility is a human-readable description of what the role does.
	Responsibility string `yaml:"responsibility"`
	// Activity is the present-tense label shown while the role is running
	// (e.g. "reviewing").
	Activity string `yaml:"activity"`
	// Instructions is a text/template source. It receives a PromptData and
	// renders the role's system instructions for one step.
	Instructions string `yaml:"instructions"`
}

// PromptData is the data passed to a role's instruction template.
type PromptData struct {
	// Task is the user's application request.
	Task string
	// Artifacts is the bounded rendering of the current workspace.
	Artifacts string
}

// Template parses the role's instruction template.
func (r Role) Template() (*template.Template, error) {
	return template.New(r.Name).Parse(r.Instructions)
}

// RenderInstructions executes the role's instruction template with the
// given task and artifact excerpt.
func (r Role) RenderInstructions(data PromptData) (string, error) {
	tmpl, err := r.Template()
	if err != nil {
		return "", fmt.Errorf("role %s: parse instructions: %w", r.Name, err)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("role %s: render instructions: %w", r.Name, err)
	}
	return b.String(), nil
}

// Sequence is the ordered list of roles for a run. The order is data,
// not control flow: the engine walks it front to back and never
// reorders it.
type Sequence []Role

// Validate checks that the sequence is usable: at least one role, each
// with a unique non-empty name and a parseable instruction template.
func (s Sequence) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("role sequence is empty")
	}
	seen := make(map[string]bool, len(s))
	for i, r := range s {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			return fmt.Errorf("role at index %d has an empty name", i)
		}
		if seen[name] {
			return fmt.Errorf("duplicate role name %q", name)
		}
		seen[name] = true
		if strings.TrimSpace(r.Instructions) == "" {
			return fmt.Errorf("role %q has empty instructions", name)
		}
		if _, err := r.Template(); err != nil {
			return fmt.Errorf("role %q: invalid instruction template: %w", name, err)
		}
	}
	return nil
}

// Names returns the role names in sequence order.
func (s Sequence) Names() []string {
	names := make([]string, len(s))
	for i, r := range s {
		names[i] = r.Name
	}
	return names
}

// Find returns the role with the given name, or false if absent.
func (s Sequence) Find(name string) (Role, bool) {
	for _, r := range s {
		if r.Name == name {
			return r, true
		}
	}
	return Role{}, false
}

// Reorder returns a new sequence containing the named roles in the
// given order. Every name must exist in the sequence.
func (s Sequence) Reorder(names []string) (Sequence, error) {
	out := make(Sequence, 0, len(names))
	for _, name := range names {
		r, ok := s.Find(name)
		if !ok {
			return nil, fmt.Errorf("unknown role %q in role order", name)
		}
		out = append(out, r)
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}
