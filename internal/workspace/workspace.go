// Package workspace stores the artifacts accumulated over one
// generation run: a live latest-revision view plus an append-only
// history recording which role produced what.
package workspace

import (
	"sort"
	"sync"
	"time"
)

// Artifact is one named, versioned output of a role.
type Artifact struct {
	// Name is the logical filename (e.g. "main.py").
	Name string
	// Content is the artifact body.
	Content string
	// ProducedBy is the name of the role that wrote this revision.
	ProducedBy string
	// Revision starts at 1 and increments each time the same name is
	// overwritten. Revisions never decrease.
	Revision int
	// CreatedAt is when this revision was written.
	CreatedAt time.Time
}

// Workspace is owned by exactly one run. The engine is the only
// writer; the mutex exists because observers (TUI, persistence) may
// snapshot while a run is live.
type Workspace struct {
	mu      sync.RWMutex
	current map[string]Artifact
	history []Artifact
}

// New creates an empty workspace.
func New() *Workspace {
	return &Workspace{current: make(map[string]Artifact)}
}

// Put writes an artifact. An existing name gets revision previous+1,
// a new name gets revision 1. Put never fails: the workspace is
// format-agnostic storage. The stored artifact is returned.
func (w *Workspace) Put(name, content, producedBy string) Artifact {
	w.mu.Lock()
	defer w.mu.Unlock()

	rev := 1
	if prev, ok := w.current[name]; ok {
		rev = prev.Revision + 1
	}
	art := Artifact{
		Name:       name,
		Content:    content,
		ProducedBy: producedBy,
		Revision:   rev,
		CreatedAt:  time.Now(),
	}
	w.current[name] = art
	w.history = append(w.history, art)
	return art
}

// Restore reinstates an artifact at an exact revision, appending to
// history as usual. It is used when loading a persisted run and must
// never be mixed with Put for the same name out of order.
func (w *Workspace) Restore(art Artifact) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if prev, ok := w.current[art.Name]; !ok || art.Revision >= prev.Revision {
		w.current[art.Name] = art
	}
	w.history = append(w.history, art)
}

// Get returns the latest revision of the named artifact.
func (w *Workspace) Get(name string) (Artifact, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	art, ok := w.current[name]
	return art, ok
}

// Snapshot returns a consistent copy of all latest-revision artifacts,
// sorted by name. The copy is detached: later writes do not affect it.
func (w *Workspace) Snapshot() []Artifact {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]Artifact, 0, len(w.current))
	for _, art := range w.current {
		out = append(out, art)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// History returns a copy of the append-only write log in write order.
func (w *Workspace) History() []Artifact {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Artifact, len(w.history))
	copy(out, w.history)
	return out
}

// Len returns the number of distinct artifact names.
func (w *Workspace) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.current)
}
