// Package llm abstracts the language-model capability the workflow
// engine consumes: a single Generate call plus an error taxonomy that
// tells the engine whether a failure is worth retrying.
package llm

import "context"

// Request is one generation request.
type Request struct {
	// System is the role's rendered instructions.
	System string
	// Prompt is the user-turn content (task plus workspace rendering).
	Prompt string
	// MaxTokens bounds the response length.
	MaxTokens int64
	// Temperature controls sampling. Values outside [0, 1] use the
	// provider default.
	Temperature float64
}

// Response is the result of a successful generation.
type Response struct {
	// Text is the generated output.
	Text string
	// InputTokens and OutputTokens report usage for cost tracking.
	InputTokens  int64
	OutputTokens int64
}

// Generator is the capability interface the engine depends on. The
// call blocks until the provider responds or ctx is done. Failures are
// reported as *ProviderError where the provider is reachable, and as
// plain errors otherwise.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}
