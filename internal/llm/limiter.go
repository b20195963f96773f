package llm

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// Limited caps how many Generate calls are in flight at once across
// all runs sharing it, so concurrent runs cannot overwhelm the
// provider's rate limits. It wraps any Generator.
type Limited struct {
	inner Generator
	sem   *semaphore.Weighted
}

// Limit wraps gen with an admission cap of n concurrent calls.
// n <= 0 returns gen unwrapped.
func Limit(gen Generator, n int) Generator {
	if n <= 0 {
		return gen
	}
	return &Limited{inner: gen, sem: semaphore.NewWeighted(int64(n))}
}

// Generate waits for an admission slot, then delegates. Waiting
// respects ctx, so a cancelled run never blocks on the gate.
func (l *Limited) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("admission wait: %w", err)
	}
	defer l.sem.Release(1)
	return l.inner.Generate(ctx, req)
}
