package workspace

import (
	"strings"
	"testing"
)

func TestTruncate_ShortUnchanged(t *testing.T) {
	s := "short content"
	if got := Truncate(s, 100); got != s {
		t.Errorf("Truncate changed short input: %q", got)
	}
	if got := Truncate(s, 0); got != s {
		t.Errorf("Truncate with max 0 should be a no-op: %q", got)
	}
}

func TestTruncate_KeepsHeadAndTail(t *testing.T) {
	s := strings.Repeat("a", 50) + strings.Repeat("b", 50) + strings.Repeat("c", 50)

	got := Truncate(s, 40)

	if !strings.HasPrefix(got, strings.Repeat("a", 20)) {
		t.Errorf("head not kept: %q", got[:30])
	}
	if !strings.HasSuffix(got, strings.Repeat("c", 20)) {
		t.Errorf("tail not kept: %q", got[len(got)-30:])
	}
	if !strings.Contains(got, "[truncated 110 characters]") {
		t.Errorf("missing truncation marker: %q", got)
	}
}

func TestRender_Empty(t *testing.T) {
	if got := Render(nil, 100); got != "" {
		t.Errorf("Render(nil) = %q, want empty", got)
	}
}

func TestRender_HeadersAndTruncation(t *testing.T) {
	ws := New()
	ws.Put("main.py", strings.Repeat("x", 500), "engineer")
	ws.Put("README.md", "docs", "tech_writer")

	out := Render(ws.Snapshot(), 100)

	if !strings.Contains(out, "### README.md (by tech_writer, rev 1)") {
		t.Errorf("missing README header:\n%s", out)
	}
	if !strings.Contains(out, "### main.py (by engineer, rev 1)") {
		t.Errorf("missing main.py header:\n%s", out)
	}
	if !strings.Contains(out, "[truncated 400 characters]") {
		t.Errorf("long artifact not truncated:\n%s", out)
	}
	if strings.Index(out, "README.md") > strings.Index(out, "main.py") {
		t.Error("artifacts not rendered in name order")
	}
}
