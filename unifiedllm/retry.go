package unifiedllm

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy configures retry behavior with exponential backoff.
type RetryPolicy struct {
	MaxRetries        int     // total retry attempts (not counting initial)
	BaseDelay         float64 // initial delay in seconds
	MaxDelay          float64 // maximum delay between retries
	BackoffMultiplier float64 // exponential backoff factor
	Jitter            bool    // randomize each delay by +/- 50%
	OnRetry           func(err error, attempt int, delay time.Duration)
}

// DefaultRetryPolicy returns the default retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        2,
		BaseDelay:         1.0,
		MaxDelay:          60.0,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (p RetryPolicy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = seconds(p.BaseDelay)
	b.MaxInterval = seconds(p.MaxDelay)
	b.Multiplier = p.BackoffMultiplier
	if b.Multiplier < 1 {
		b.Multiplier = 1
	}
	b.RandomizationFactor = 0
	if p.Jitter {
		b.RandomizationFactor = 0.5
	}
	return b
}

// retryAfterBackOff prefers a provider-supplied Retry-After over the
// exponential schedule for the next wait only.
type retryAfterBackOff struct {
	*backoff.ExponentialBackOff
	override time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.ExponentialBackOff.NextBackOff()
	if b.override > 0 {
		next, b.override = b.override, 0
	}
	return next
}

// Retry executes fn with the configured retry policy.
// Only retryable errors are retried.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	bo := &retryAfterBackOff{ExponentialBackOff: policy.backOff()}
	attempt := 0

	op := func() (T, error) {
		res, err := fn(ctx)
		if err == nil {
			return res, nil
		}
		if !IsRetryable(err) {
			return res, backoff.Permanent(err)
		}
		if after, ok := retryAfter(err); ok {
			if after > policy.MaxDelay {
				// Retry-After exceeds max_delay; raise immediately.
				return res, backoff.Permanent(err)
			}
			bo.override = seconds(after)
		}
		return res, err
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(max(policy.MaxRetries, 0) + 1)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, delay time.Duration) {
			attempt++
			if policy.OnRetry != nil {
				policy.OnRetry(err, attempt, delay)
			}
		}),
	}

	res, err := backoff.Retry(ctx, op, opts...)
	if err == nil {
		return res, nil
	}
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		var zero T
		return zero, &AbortError{SDKError: SDKError{Message: "request cancelled during retry", Cause: err}}
	}
	return res, err
}

// WithRetry returns middleware that retries retryable backend failures.
func WithRetry(policy RetryPolicy) Middleware {
	return func(ctx context.Context, req Request, next Handler) (*GenerationResult, error) {
		return Retry(ctx, policy, func(ctx context.Context) (*GenerationResult, error) {
			return next(ctx, req)
		})
	}
}
