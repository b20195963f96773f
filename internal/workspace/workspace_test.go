package workspace

import (
	"fmt"
	"testing"
)

func TestPut_NewArtifact(t *testing.T) {
	ws := New()

	art := ws.Put("main.py", "print('hi')", "engineer")

	if art.Revision != 1 {
		t.Errorf("first revision = %d, want 1", art.Revision)
	}
	if art.ProducedBy != "engineer" {
		t.Errorf("producedBy = %q, want engineer", art.ProducedBy)
	}
	got, ok := ws.Get("main.py")
	if !ok || got.Content != "print('hi')" {
		t.Errorf("Get returned %+v, ok=%v", got, ok)
	}
}

func TestPut_RevisionsIncrease(t *testing.T) {
	ws := New()

	for i := 1; i <= 5; i++ {
		art := ws.Put("main.py", fmt.Sprintf("v%d", i), "engineer")
		if art.Revision != i {
			t.Fatalf("revision after put %d = %d, want %d", i, art.Revision, i)
		}
	}

	got, _ := ws.Get("main.py")
	if got.Content != "v5" || got.Revision != 5 {
		t.Errorf("latest = %+v, want v5 rev 5", got)
	}
	if len(ws.History()) != 5 {
		t.Errorf("history length = %d, want 5", len(ws.History()))
	}
}

func TestPut_IndependentNames(t *testing.T) {
	ws := New()

	ws.Put("a.py", "a", "engineer")
	ws.Put("b.py", "b", "engineer")
	art := ws.Put("a.py", "a2", "reviewer")

	if art.Revision != 2 {
		t.Errorf("a.py revision = %d, want 2", art.Revision)
	}
	b, _ := ws.Get("b.py")
	if b.Revision != 1 {
		t.Errorf("b.py revision = %d, want 1", b.Revision)
	}
}

func TestSnapshot_SortedAndDetached(t *testing.T) {
	ws := New()
	ws.Put("z.py", "z", "engineer")
	ws.Put("a.py", "a", "engineer")

	snap := ws.Snapshot()
	if len(snap) != 2 || snap[0].Name != "a.py" || snap[1].Name != "z.py" {
		t.Fatalf("snapshot not sorted: %+v", snap)
	}

	// Later writes must not leak into an existing snapshot.
	ws.Put("a.py", "changed", "reviewer")
	if snap[0].Content != "a" {
		t.Error("snapshot mutated by later Put")
	}
}

func TestHistory_AuthorshipChain(t *testing.T) {
	ws := New()
	ws.Put("main.py", "v1", "engineer")
	ws.Put("main.py", "v2", "reviewer")

	hist := ws.History()
	if len(hist) != 2 {
		t.Fatalf("history length = %d, want 2", len(hist))
	}
	if hist[0].ProducedBy != "engineer" || hist[1].ProducedBy != "reviewer" {
		t.Errorf("authorship chain wrong: %+v", hist)
	}
	if hist[0].Revision != 1 || hist[1].Revision != 2 {
		t.Errorf("history revisions wrong: %+v", hist)
	}
}

func TestRestore_RoundTrip(t *testing.T) {
	ws := New()
	ws.Put("main.py", "v1", "engineer")
	ws.Put("main.py", "v2", "reviewer")
	ws.Put("doc.md", "d", "tech_writer")

	restored := New()
	for _, art := range ws.History() {
		restored.Restore(art)
	}

	if restored.Len() != ws.Len() {
		t.Fatalf("restored %d names, want %d", restored.Len(), ws.Len())
	}
	for _, want := range ws.Snapshot() {
		got, ok := restored.Get(want.Name)
		if !ok || got.Revision != want.Revision || got.Content != want.Content {
			t.Errorf("restored %s = %+v, want %+v", want.Name, got, want)
		}
	}
}
