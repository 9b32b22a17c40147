// Package retry provides the provider call retry policy.
//
// The default policy performs a single attempt, preserving the
// surface-the-failure behaviour the bot ships with; deployments can raise
// MaxAttempts to get exponential backoff between attempts.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy configures how provider calls are retried.
type Policy struct {
	// MaxAttempts is the total number of attempts, minimum 1.
	MaxAttempts int

	// InitialBackoff is the first wait between attempts.
	InitialBackoff time.Duration
}

// Default is a single attempt with no backoff.
var Default = Policy{MaxAttempts: 1}

// Permanent marks err as non-retryable; Do and DoValue return it immediately.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

func (p Policy) backoff(ctx context.Context) backoff.BackOff {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	bo := backoff.NewExponentialBackOff()
	if p.InitialBackoff > 0 {
		bo.InitialInterval = p.InitialBackoff
	}
	return backoff.WithContext(backoff.WithMaxRetries(bo, uint64(attempts-1)), ctx)
}

// Do runs op under the policy.
func (p Policy) Do(ctx context.Context, op func() error) error {
	return backoff.Retry(op, p.backoff(ctx))
}

// DoValue runs op under the policy and returns its result.
func DoValue[T any](ctx context.Context, p Policy, op func() (T, error)) (T, error) {
	return backoff.RetryWithData(op, p.backoff(ctx))
}
