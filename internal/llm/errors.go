package llm

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/anthropics/anthropic-sdk-go"
)

// ProviderError wraps a failure reported by the language-model
// provider. The engine treats all provider failures uniformly and
// only inspects Retryable.
type ProviderError struct {
	// StatusCode is the HTTP status, or 0 for transport-level failures.
	StatusCode int
	// Retryable indicates a bounded retry may succeed (rate limits,
	// server faults, network). Auth and request errors are fatal.
	Retryable bool
	// Err is the underlying error.
	Err error
}

func (e *ProviderError) Error() string {
	kind := "fatal"
	if e.Retryable {
		kind = "retryable"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider error (%s, status %d): %v", kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider error (%s): %v", kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a provider error worth retrying.
// Errors that are not provider errors (including context
// cancellation) are never retryable.
func IsRetryable(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Retryable
}

// classify converts an SDK or transport error into a *ProviderError.
// Context errors pass through untouched so cancellation stays
// distinguishable from provider faults.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &ProviderError{
			StatusCode: apiErr.StatusCode,
			Retryable:  retryableStatus(apiErr.StatusCode),
			Err:        err,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &ProviderError{Retryable: true, Err: err}
	}

	// Unknown transport-level failure. Treat as retryable: the request
	// never produced a definitive provider verdict.
	return &ProviderError{Retryable: true, Err: err}
}

// retryableStatus reports whether an HTTP status from the provider
// indicates a transient condition.
func retryableStatus(status int) bool {
	switch {
	case status == 408 || status == 429:
		return true
	case status >= 500:
		return true
	default:
		// 400 bad request, 401/403 auth, 404: retrying cannot help.
		return false
	}
}
