// Package retry runs rate-limited calls with server-dictated backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultMaxRetries is the number of rate-limited retries tolerated for one call.
const DefaultMaxRetries = 20

// ErrRetriesExhausted is returned when a call stays rate limited past the retry ceiling.
var ErrRetriesExhausted = errors.New("rate limit retries exhausted")

// Status classifies the outcome of one attempt.
type Status int

const (
	StatusSuccess Status = iota
	StatusRateLimited
	StatusFatal
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusRateLimited:
		return "rate_limited"
	case StatusFatal:
		return "fatal"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is the outcome of one attempt of a protected call.
type Result[T any] struct {
	Status     Status
	Value      T
	RetryAfter int // seconds, set when rate limited
	Err        error
}

// Success wraps a successful value.
func Success[T any](v T) Result[T] {
	return Result[T]{Status: StatusSuccess, Value: v}
}

// RateLimited reports that the server asked to wait retryAfter seconds.
// err is what gets returned if the retry ceiling is exceeded.
func RateLimited[T any](retryAfter int, err error) Result[T] {
	return Result[T]{Status: StatusRateLimited, RetryAfter: max(retryAfter, 0), Err: err}
}

// Fatal reports an error that must not be retried.
func Fatal[T any](err error) Result[T] {
	return Result[T]{Status: StatusFatal, Err: err}
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the default Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Observer is told about every wait before it happens.
type Observer func(attempt int, wait time.Duration)

// Executor retries rate-limited calls. The zero value is not usable; use New.
type Executor struct {
	maxRetries int
	sleep      Sleeper
	observe    Observer
}

// Option configures an Executor.
type Option func(*Executor)

// WithMaxRetries overrides DefaultMaxRetries.
func WithMaxRetries(n int) Option {
	return func(e *Executor) { e.maxRetries = n }
}

// WithSleeper replaces the wall-clock sleep, mostly for tests.
func WithSleeper(s Sleeper) Option {
	return func(e *Executor) { e.sleep = s }
}

// WithObserver installs a callback invoked before each wait.
func WithObserver(o Observer) Option {
	return func(e *Executor) { e.observe = o }
}

// New creates an Executor.
func New(opts ...Option) *Executor {
	e := &Executor{
		maxRetries: DefaultMaxRetries,
		sleep:      Sleep,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MaxRetries returns the configured ceiling.
func (e *Executor) MaxRetries() int {
	return e.maxRetries
}

// Do runs op until it succeeds, fails fatally, or has been rate limited more
// than the retry ceiling allows. Each rate-limited attempt waits RetryAfter+1
// seconds before the next one. The wait blocks the caller.
func Do[T any](ctx context.Context, e *Executor, op func(ctx context.Context) Result[T]) (T, error) {
	var zero T
	retries := 0

	for {
		res := op(ctx)

		switch res.Status {
		case StatusSuccess:
			return res.Value, nil
		case StatusRateLimited:
			if retries > e.maxRetries {
				return zero, fmt.Errorf("%w after %d retries: %w", ErrRetriesExhausted, retries, res.Err)
			}

			wait := time.Duration(res.RetryAfter+1) * time.Second
			if e.observe != nil {
				e.observe(retries+1, wait)
			}
			if err := e.sleep(ctx, wait); err != nil {
				return zero, fmt.Errorf("waiting to retry: %w", err)
			}
			retries++
		default:
			if res.Err == nil {
				return zero, errors.New("operation failed without an error")
			}
			return zero, res.Err
		}
	}
}

// Classify turns a (value, error) pair into a Result, using isRateLimited to
// recognize rate-limit errors and extract their retry-after hint.
func Classify[T any](v T, err error, isRateLimited func(error) (int, bool)) Result[T] {
	if err == nil {
		return Success(v)
	}
	if secs, ok := isRateLimited(err); ok {
		return RateLimited[T](secs, err)
	}
	return Fatal[T](err)
}
