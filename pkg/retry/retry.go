// Package retry wraps a single outbound call with bounded retries and exponential backoff.
//
// Only transient failures (connection errors, timeouts) are retried. A call that
// returns a well-formed response, whatever its status code, is not a failure from
// the executor's point of view; status handling belongs to the caller.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ErrContextCancelled is returned when the caller's context ends during a backoff wait.
var ErrContextCancelled = errors.New("context cancelled during retry backoff")

// Policy holds the retry configuration.
type Policy struct {
	// MaxRetries is the number of additional attempts after the first call.
	MaxRetries int

	// BaseDelay is multiplied by 2^attempt to get the wait before retry attempt.
	BaseDelay time.Duration
}

// DefaultPolicy returns 3 retries waiting 2s, 4s and 8s.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
	}
}

// Delay returns the wait before the given retry attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(int64(1)<<attempt)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Executor runs calls under a Policy.
type Executor struct {
	policy    Policy
	logger    zerolog.Logger
	sleep     Sleeper
	transient func(error) bool
}

// Option configures an Executor.
type Option func(*Executor)

// WithSleeper replaces the real wait, mainly for tests.
func WithSleeper(s Sleeper) Option {
	return func(e *Executor) {
		e.sleep = s
	}
}

// WithClassifier replaces IsTransient as the retry predicate.
func WithClassifier(fn func(error) bool) Option {
	return func(e *Executor) {
		e.transient = fn
	}
}

// New creates an executor.
func New(policy Policy, logger zerolog.Logger, opts ...Option) *Executor {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	e := &Executor{
		policy:    policy,
		logger:    logger,
		sleep:     sleepContext,
		transient: IsTransient,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the executor's policy.
func (e *Executor) Policy() Policy {
	return e.policy
}

// Do executes fn, retrying transient failures. After the retries are exhausted the
// last failure is returned unchanged. Non-transient failures are returned at once.
func (e *Executor) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				e.logger.Info().
					Int("attempt", attempt+1).
					Msg("Provider call succeeded after retry")
			}
			return nil
		}

		// Caller gave up, or the failure is not ours to retry
		if ctx.Err() != nil || !e.transient(err) {
			return err
		}

		class := errorClass(err)
		if attempt >= e.policy.MaxRetries {
			retryExhaustedTotal.WithLabelValues(class).Inc()
			e.logger.Warn().
				Err(err).
				Str("error_class", class).
				Int("max_retries", e.policy.MaxRetries).
				Msg("Retry attempts exhausted")
			return err
		}

		retryAttempt := attempt + 1
		delay := e.policy.Delay(retryAttempt)

		retriesTotal.WithLabelValues(class).Inc()
		retryBackoffSeconds.WithLabelValues(class).Observe(delay.Seconds())

		e.logger.Warn().
			Err(err).
			Str("error_class", class).
			Int("attempt", retryAttempt).
			Dur("delay", delay).
			Msg("Retrying provider call after backoff")

		if err := e.sleep(ctx, delay); err != nil {
			e.logger.Warn().
				Int("attempt", retryAttempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %w", ErrContextCancelled, err)
		}
	}
}

// sleepContext waits for d with context cancellation support.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
