// Package retry bounds individual external calls with a fixed delay
// schedule. It wraps single operations, never whole phases, so a retried
// call can't replay work that already landed in the store.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"powerplay/internal/logging"
)

// Sleeper performs the inter-attempt wait. Tests override it to avoid
// real delays.
type Sleeper func(ctx context.Context, d time.Duration) error

// Option customizes an Executor.
type Option func(*Executor)

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(s Sleeper) Option {
	return func(e *Executor) {
		if s != nil {
			e.sleep = s
		}
	}
}

// permanentError marks a failure that retrying cannot fix.
type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps an error so the executor fails immediately instead of
// exhausting the schedule.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether the error was marked non-retryable.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Executor runs operations under a fixed retry schedule. An executor with
// N delays allows N+1 attempts.
type Executor struct {
	delays []time.Duration
	logger *slog.Logger
	sleep  Sleeper
}

// NewExecutor builds an executor from a delay schedule.
func NewExecutor(delays []time.Duration, logger *slog.Logger, opts ...Option) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	e := &Executor{
		delays: append([]time.Duration{}, delays...),
		logger: logging.NewComponentLogger(logger, "retry"),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FromSeconds converts a configured schedule of whole seconds into delays.
func FromSeconds(seconds []int) []time.Duration {
	delays := make([]time.Duration, 0, len(seconds))
	for _, s := range seconds {
		delays = append(delays, time.Duration(s)*time.Second)
	}
	return delays
}

// Attempts returns the total number of attempts the schedule allows.
func (e *Executor) Attempts() int {
	return len(e.delays) + 1
}

// Do runs fn until it succeeds, the schedule is exhausted, the error is
// permanent, or the context ends.
func (e *Executor) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	attempts := e.Attempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if IsPermanent(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}
		delay := e.delays[attempt-1]
		e.logger.Warn("operation failed, retrying",
			logging.String("operation", op),
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(lastErr))
		if err := e.sleep(ctx, delay); err != nil {
			return err
		}
	}
	return fmt.Errorf("%s: %d attempts exhausted: %w", op, attempts, lastErr)
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](e *Executor, ctx context.Context, op string, fn func(context.Context) (T, error)) (T, error) {
	var result T
	err := e.Do(ctx, op, func(ctx context.Context) error {
		value, err := fn(ctx)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
