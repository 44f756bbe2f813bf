// Package retry provides an explicit retry policy value and a small
// combinator for wrapping fallible operations against external services.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

const (
	defaultMaxAttempts = 3
	defaultBackoffStep = time.Second
)

// StatusError is returned by client implementations when the remote service
// answers with a non-success status.
type StatusError struct {
	StatusCode int
	Operation  string
}

func (e StatusError) Error() string {
	return fmt.Sprintf("retry: %s returned status %d", e.Operation, e.StatusCode)
}

// BackoffFunc maps a 1-based attempt number to the delay before the next
// attempt.
type BackoffFunc func(attempt int) time.Duration

// LinearBackoff grows the delay by a fixed step per attempt: step, 2*step,
// 3*step, ...
func LinearBackoff(step time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		if step <= 0 {
			step = defaultBackoffStep
		}
		return step * time.Duration(attempt)
	}
}

// Policy bounds how an operation is retried: total attempt ceiling, backoff
// between attempts, and the classifier deciding whether a failure is
// transient. Non-transient failures stop the loop immediately.
type Policy struct {
	MaxAttempts int
	Backoff     BackoffFunc
	Classify    func(error) bool
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: defaultMaxAttempts,
		Backoff:     LinearBackoff(defaultBackoffStep),
		Classify:    IsTransient,
	}
}

func (p Policy) maxAttempts() int {
	if p.MaxAttempts < 1 {
		return defaultMaxAttempts
	}
	return p.MaxAttempts
}

func (p Policy) backoff(attempt int) time.Duration {
	if p.Backoff == nil {
		return LinearBackoff(defaultBackoffStep)(attempt)
	}
	return p.Backoff(attempt)
}

func (p Policy) transient(err error) bool {
	if p.Classify == nil {
		return IsTransient(err)
	}
	return p.Classify(err)
}

// IsTransient recognizes failures worth retrying: non-success statuses,
// network timeouts, and context deadline expiry surfaced by a transport.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var statusErr StatusError
	if errors.As(err, &statusErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// Do runs op up to the policy's attempt ceiling, sleeping between attempts
// and checking for cancellation cooperatively. The zero T and the last error
// are returned when every attempt fails; callers degrade that to a warning
// rather than aborting a run.
func Do[T any](ctx context.Context, policy Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	maxAttempts := policy.maxAttempts()
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !policy.transient(err) || attempt == maxAttempts {
			return zero, lastErr
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(policy.backoff(attempt)):
		}
	}
	return zero, lastErr
}
