package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Offline is a Generator that fabricates plausible single-file output
// without touching the network. It backs the CLI's --dry-run mode so
// the whole pipeline can be exercised end to end for free.
type Offline struct {
	mu    sync.Mutex
	calls int
}

// NewOffline creates an offline generator.
func NewOffline() *Offline {
	return &Offline{}
}

// Generate returns a canned artifact derived from the system prompt's
// first line, so each role still produces a distinct file.
func (o *Offline) Generate(_ context.Context, req Request) (*Response, error) {
	o.mu.Lock()
	o.calls++
	n := o.calls
	o.mu.Unlock()

	name := fmt.Sprintf("step_%d.md", n)
	summary := firstLine(req.System)

	text := fmt.Sprintf("===BEGIN_FILE:%s===\n# Offline output %d\n\nRole: %s\n===END_FILE===\n", name, n, summary)
	return &Response{Text: text, InputTokens: int64(len(req.Prompt) / 4), OutputTokens: int64(len(text) / 4)}, nil
}

// Calls returns how many generations were served.
func (o *Offline) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}
