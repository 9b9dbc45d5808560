// file: internal/freshbooks/retry.go
package freshbooks

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"

	"github.com/dkoosis/freshbooks-mcp/internal/mcperror"
)

// hintedBackOff is an exponential schedule that yields to an upstream Retry-After hint
// for the next wait when one was seen.
type hintedBackOff struct {
	exp  *backoff.ExponentialBackOff
	hint *time.Duration
}

func (b *hintedBackOff) NextBackOff() time.Duration {
	if b.hint != nil {
		d := *b.hint
		b.hint = nil
		return d
	}
	return b.exp.NextBackOff()
}

func (b *hintedBackOff) Reset() {
	b.hint = nil
	b.exp.Reset()
}

// retryable reports whether err came back from FreshBooks or the network. Local
// failures (token store, encoding, decoding a 2xx body) fail the same way every time.
func retryable(err error) bool {
	var (
		netErr    *mcperror.NetworkFailure
		apiErr    *mcperror.APIFailure
		statusErr *mcperror.HTTPStatusFailure
	)
	return errors.As(err, &netErr) || errors.As(err, &apiErr) || errors.As(err, &statusErr)
}

// withRetry runs op until it succeeds, fails with a non-recoverable error, or the
// retry budget is spent. Only upstream failures are retried, and only while their
// normalized form is recoverable.
func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.retryInitial
	exp.MaxInterval = c.maxRetryWait
	exp.MaxElapsedTime = 0
	exp.RandomizationFactor = 0.1

	schedule := &hintedBackOff{exp: exp}
	policy := backoff.WithContext(backoff.WithMaxRetries(schedule, uint64(max(c.maxRetries, 0))), ctx)

	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		normalized := mcperror.Normalize(err, mcperror.Context{})
		delay, recoverable := mcperror.RetryDelay(normalized)
		// Auth failures are recoverable by the user, not by repeating the call.
		if !recoverable || normalized.Code.Kind() == mcperror.KindAuth {
			return backoff.Permanent(err)
		}
		if normalized.Data.RetryAfterSeconds != nil {
			schedule.hint = &delay
			if delay > c.maxRetryWait {
				*schedule.hint = c.maxRetryWait
			}
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		c.logger.Warn("Retrying FreshBooks request.", "op", op, "attempt", attempt, "wait", wait, "error", err)
	})
}
