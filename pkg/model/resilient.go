package model

import (
	"context"
	"errors"
	"time"
)

// Resilient wraps a Client with bounded exponential-backoff retries. Retry
// lives out here with the adapters: nothing inside the kernel retries.
type Resilient struct {
	inner       Client
	maxAttempts int
	baseDelay   time.Duration
}

// NewResilient wraps a client. maxAttempts counts the first try; values
// below 1 read as 1.
func NewResilient(inner Client, maxAttempts int, baseDelay time.Duration) *Resilient {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &Resilient{inner: inner, maxAttempts: maxAttempts, baseDelay: baseDelay}
}

func (r *Resilient) ModelName() string { return r.inner.ModelName() }
func (r *Resilient) Provider() string  { return r.inner.Provider() }

// Complete retries retryable provider errors, doubling the delay between
// attempts. Context cancellation wins over the remaining attempts.
func (r *Resilient) Complete(ctx context.Context, systemPrompt, userPrompt string) (*Reply, error) {
	delay := r.baseDelay
	var lastErr error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		reply, err := r.inner.Complete(ctx, systemPrompt, userPrompt)
		if err == nil {
			return reply, nil
		}
		lastErr = err

		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, err
		}
	}
	return nil, lastErr
}
