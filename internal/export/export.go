// Package export writes a run's artifacts to disk, either as a
// directory tree or a zip archive, for the user to take away.
package export

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/devcrew-io/devcrew/internal/workspace"
)

// WriteDir writes each artifact in the snapshot to dir, creating it if
// needed. Artifact names are sanitized so a hostile name cannot escape
// the directory.
func WriteDir(snapshot []workspace.Artifact, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	for _, art := range snapshot {
		name, ok := safeName(art.Name)
		if !ok {
			return fmt.Errorf("artifact name %q is not exportable", art.Name)
		}
		path := filepath.Join(dir, name)
		if sub := filepath.Dir(path); sub != dir {
			if err := os.MkdirAll(sub, 0755); err != nil {
				return fmt.Errorf("create %s: %w", sub, err)
			}
		}
		if err := os.WriteFile(path, []byte(art.Content), 0644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

// WriteZip writes the snapshot as a zip archive at path.
func WriteZip(snapshot []workspace.Artifact, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, art := range snapshot {
		name, ok := safeName(art.Name)
		if !ok {
			zw.Close()
			return fmt.Errorf("artifact name %q is not exportable", art.Name)
		}
		w, err := zw.Create(name)
		if err != nil {
			zw.Close()
			return fmt.Errorf("add %s: %w", name, err)
		}
		if _, err := w.Write([]byte(art.Content)); err != nil {
			zw.Close()
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}

// safeName normalizes an artifact name to a relative path that stays
// inside the export root. Absolute paths and parent traversal are
// rejected.
func safeName(name string) (string, bool) {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return "", false
	}
	clean := filepath.Clean(filepath.FromSlash(name))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", false
	}
	return clean, true
}
