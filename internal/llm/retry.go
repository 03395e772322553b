package llm

import (
	"context"
	"time"
)

// retrySleepFunc is the sleep function used between retries (injectable for tests)
var retrySleepFunc = func(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Throttle gates calls to a provider. The worker package's rate limiter
// satisfies this, keyed by provider name.
type Throttle interface {
	Wait(ctx context.Context, key string) error
}

// RetryingGenerator wraps a generator with bounded exponential backoff for
// transient failures and an optional call throttle. The retry count is a
// per-call infrastructure bound, distinct from the revision-cycle bound.
type RetryingGenerator struct {
	inner      Generator
	maxRetries int
	throttle   Throttle
}

// WithRetry wraps gen. maxRetries <= 0 defaults to 3. throttle may be nil.
func WithRetry(gen Generator, maxRetries int, throttle Throttle) *RetryingGenerator {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &RetryingGenerator{inner: gen, maxRetries: maxRetries, throttle: throttle}
}

// Name returns the wrapped provider's name.
func (r *RetryingGenerator) Name() string {
	return r.inner.Name()
}

// IsAvailable delegates to the wrapped provider.
func (r *RetryingGenerator) IsAvailable(ctx context.Context) bool {
	return r.inner.IsAvailable(ctx)
}

// Generate calls the wrapped provider, retrying transient failures with
// exponential backoff. Non-transient failures return immediately.
func (r *RetryingGenerator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	var lastErr error

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		if r.throttle != nil {
			if err := r.throttle.Wait(ctx, r.inner.Name()); err != nil {
				return nil, err
			}
		}

		resp, err := r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !IsTransient(err) {
			return nil, err
		}

		lastErr = err
		if attempt < r.maxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			if err := retrySleepFunc(ctx, backoff); err != nil {
				return nil, err
			}
		}
	}

	return nil, lastErr
}
