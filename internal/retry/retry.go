// Package retry runs external calls with per-attempt timeouts and exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"legal-assistant/internal/contextutil"
)

// Policy describes how an external call is retried. The zero value makes a single
// attempt without a timeout.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
	// Jitter is the backoff randomization factor in [0,1].
	Jitter float64
	// CallTimeout bounds each attempt; zero means no per-attempt timeout.
	CallTimeout time.Duration
	// Retryable classifies errors; nil retries everything.
	Retryable func(error) bool
}

// ExhaustedError is returned when every attempt failed or retrying was abandoned.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempt(s): %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Do calls op until it succeeds, returns a non-retryable error, the attempts run out,
// or ctx is done. Failures are reported as *ExhaustedError.
func (p Policy) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	logger := contextutil.LoggerFromContext(ctx)

	attempts := 0
	var lastErr error
	operation := func() error {
		attempts++
		callCtx, cancel := p.callContext(ctx)
		defer cancel()

		err := op(callCtx)
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, delay time.Duration) {
		logger.Warn("external call failed, retrying",
			"op", name,
			"attempt", attempts,
			"delay", delay,
			"error", err,
		)
	}

	err := backoff.RetryNotify(operation, p.backOff(ctx), notify)
	if err == nil {
		return nil
	}
	if lastErr == nil {
		lastErr = err
	} else if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(lastErr, ctxErr) {
		lastErr = errors.Join(lastErr, ctxErr)
	}
	return &ExhaustedError{Op: name, Attempts: attempts, Err: lastErr}
}

// Value is Do for operations that produce a result.
func Value[T any](ctx context.Context, p Policy, name string, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, name, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func (p Policy) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.CallTimeout > 0 {
		return context.WithTimeout(ctx, p.CallTimeout)
	}
	return context.WithCancel(ctx)
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.Multiplier = p.Multiplier
	if b.Multiplier < 1 {
		b.Multiplier = 1
	}
	b.MaxInterval = p.MaxDelay
	if b.MaxInterval <= 0 {
		b.MaxInterval = time.Minute
	}
	b.RandomizationFactor = p.Jitter
	b.MaxElapsedTime = 0
	b.Reset()

	retries := p.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}
