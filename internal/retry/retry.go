// Package retry is the shared resilience policy for network calls:
// bounded attempts with exponential backoff, final failure surfaced.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Policy retries an operation up to MaxAttempts times, doubling the
// delay after each failure starting from BaseDelay.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Jitter      bool
}

// Default matches the platform-wide contract: attempt immediately, then
// back off 500ms, 1s, for 3 total attempts.
func Default() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond}
}

// Permanent marks err as not worth retrying: Do stops at once and
// returns err unwrapped from the marker.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err}
}

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Do runs op until it succeeds, attempts are exhausted, or ctx is done.
// The last error is returned wrapped with the attempt count; it is never
// swallowed.
func (p Policy) Do(ctx context.Context, op func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.BaseDelay
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		var perm permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}
		if i == attempts-1 {
			break
		}
		d := delay
		if p.Jitter {
			if half := int64(d) / 2; half > 0 {
				d += time.Duration(rand.Int63n(half))
			}
		}
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
	return fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}
