package workspace

import (
	"fmt"
	"strings"
)

// Render formats a snapshot for inclusion in a prompt. Each artifact is
// truncated to maxChars to bound prompt size; the sum is therefore
// bounded by len(snapshot)*maxChars plus headers. maxChars <= 0 means
// no truncation.
func Render(snapshot []Artifact, maxChars int) string {
	if len(snapshot) == 0 {
		return ""
	}
	var b strings.Builder
	for i, art := range snapshot {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "### %s (by %s, rev %d)\n", art.Name, art.ProducedBy, art.Revision)
		b.WriteString(Truncate(art.Content, maxChars))
		b.WriteString("\n")
	}
	return b.String()
}

// Truncate bounds s to roughly max characters by keeping the beginning
// and end and dropping the middle, with an explicit marker noting how
// much was dropped. Prompts need both the head (imports, signatures)
// and the tail (the part the previous role most recently wrote).
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	dropped := len(s) - max
	marker := fmt.Sprintf("\n... [truncated %d characters] ...\n", dropped)

	head := max / 2
	tail := max - head
	return s[:head] + marker + s[len(s)-tail:]
}
