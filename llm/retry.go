package llm

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy controls how Retry and RetryMiddleware back off between
// attempts.
type RetryPolicy struct {
	MaxRetries int           // attempts after the first call
	BaseDelay  time.Duration // delay before the first retry
	MaxDelay   time.Duration // cap for computed delays; a longer Retry-After is not waited for
	Multiplier float64
	Jitter     bool // scale each delay by a random factor in [0.5, 1.5)
	OnRetry    func(err error, attempt int, delay time.Duration)
}

// DefaultRetryPolicy retries twice, starting at one second and doubling.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		BaseDelay:  time.Second,
		MaxDelay:   time.Minute,
		Multiplier: 2,
		Jitter:     true,
	}
}

// Delay returns the backoff before retry number attempt (0-indexed).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.Jitter {
		d *= 0.5 + rand.Float64()
	}
	return time.Duration(d)
}

// wait decides whether err may be retried and how long to wait first. A
// provider-supplied Retry-After wins over the computed backoff.
func (p RetryPolicy) wait(err error, attempt int) (time.Duration, bool) {
	if !IsRetryable(err) {
		return 0, false
	}
	var ge *GatewayError
	if errors.As(err, &ge) && ge.RetryAfter != nil {
		d := time.Duration(*ge.RetryAfter * float64(time.Second))
		if p.MaxDelay > 0 && d > p.MaxDelay {
			return 0, false
		}
		return d, true
	}
	return p.Delay(attempt), true
}

// Retry calls fn until it succeeds, fails with a non-retryable error, or the
// policy runs out of retries. The last error is returned unchanged.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if attempt >= policy.MaxRetries {
			return zero, err
		}
		delay, ok := policy.wait(err, attempt)
		if !ok {
			return zero, err
		}
		if policy.OnRetry != nil {
			policy.OnRetry(err, attempt+1, delay)
		}
		if cerr := sleepCtx(ctx, delay); cerr != nil {
			return zero, newGatewayError(CategoryAborted, "", 0, "cancelled while waiting to retry", cerr)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryMiddleware retries retryable gateway failures with backoff.
func RetryMiddleware(policy RetryPolicy) Middleware {
	return func(ctx context.Context, req Request, next GenerateFunc) (*Response, error) {
		return Retry(ctx, policy, func(ctx context.Context) (*Response, error) {
			return next(ctx, req)
		})
	}
}
