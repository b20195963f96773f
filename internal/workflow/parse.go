package workflow

import (
	"fmt"
	"regexp"
	"strings"
)

// Artifact blocks in model output follow the convention:
//
//	===BEGIN_FILE:<name>===
//	<content>
//	===END_FILE===
//
// Text between blocks is commentary and is discarded when at least one
// block parses. Output with no blocks at all becomes a single fallback
// artifact named for the producing role.
var fileBlockRe = regexp.MustCompile(`(?s)===BEGIN_FILE:([^\s=]+)===\s*\n(.*?)\n?===END_FILE===`)

// ParsedFile is one extracted artifact, not yet written to a workspace.
type ParsedFile struct {
	Name    string
	Content string
}

// ExtractArtifacts splits model output into named files. A nil error
// means at least one file was found. A *ParseError means none were;
// the caller recovers by storing the fallback.
func ExtractArtifacts(roleName, output string) ([]ParsedFile, error) {
	matches := fileBlockRe.FindAllStringSubmatch(output, -1)
	if len(matches) == 0 {
		return nil, &ParseError{Role: roleName, Reason: "no artifact blocks found"}
	}

	var files []ParsedFile
	seen := make(map[string]int)
	for _, m := range matches {
		name := strings.TrimSpace(m[1])
		content := strings.TrimSpace(m[2])
		if name == "" {
			continue
		}
		if i, dup := seen[name]; dup {
			// A later block with the same name within one response wins.
			files[i].Content = content
			continue
		}
		seen[name] = len(files)
		files = append(files, ParsedFile{Name: name, Content: content})
	}
	if len(files) == 0 {
		return nil, &ParseError{Role: roleName, Reason: "artifact blocks had no usable names"}
	}
	return files, nil
}

// FallbackName is the artifact name used when a role's output is
// unparsable.
func FallbackName(roleName string) string {
	return fmt.Sprintf("%s.md", strings.ToLower(roleName))
}

// DetectVerdict scans output for the review keywords. FIX_REQUIRED
// wins over APPROVED when both appear, matching how a reviewer phrases
// a rejection ("not APPROVED: FIX_REQUIRED ...").
func DetectVerdict(output string) Verdict {
	if strings.Contains(output, "FIX_REQUIRED") {
		return VerdictFixRequired
	}
	if strings.Contains(output, "APPROVED") {
		return VerdictApproved
	}
	return VerdictNone
}
