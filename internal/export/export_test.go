package export

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/devcrew-io/devcrew/internal/workspace"
)

func sampleSnapshot() []workspace.Artifact {
	ws := workspace.New()
	ws.Put("main.py", "print('hi')", "engineer")
	ws.Put("docs/README.md", "# App", "tech_writer")
	return ws.Snapshot()
}

func TestWriteDir(t *testing.T) {
	dir := t.TempDir()

	if err := WriteDir(sampleSnapshot(), dir); err != nil {
		t.Fatalf("WriteDir: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "main.py"))
	if err != nil {
		t.Fatalf("read main.py: %v", err)
	}
	if string(data) != "print('hi')" {
		t.Errorf("main.py = %q", data)
	}
	if _, err := os.Stat(filepath.Join(dir, "docs", "README.md")); err != nil {
		t.Errorf("nested artifact not written: %v", err)
	}
}

func TestWriteDir_RejectsTraversal(t *testing.T) {
	arts := []workspace.Artifact{{Name: "../escape.txt", Content: "x"}}
	if err := WriteDir(arts, t.TempDir()); err == nil {
		t.Error("parent traversal should be rejected")
	}
}

func TestWriteZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.zip")

	if err := WriteZip(sampleSnapshot(), path); err != nil {
		t.Fatalf("WriteZip: %v", err)
	}

	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer r.Close()

	names := map[string]bool{}
	for _, f := range r.File {
		names[f.Name] = true
	}
	if len(names) != 2 || !names["main.py"] || !names["docs/README.md"] {
		t.Errorf("archive entries = %v", names)
	}
}

func TestSafeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"main.py", "main.py", true},
		{" spaced.py ", "spaced.py", true},
		{"/abs/path.py", filepath.FromSlash("abs/path.py"), true},
		{"a/../../b", "", false},
		{"..", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := safeName(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("safeName(%q) = %q,%v want %q,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
