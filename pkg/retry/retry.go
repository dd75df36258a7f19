// Package retry provides reusable retry policies and a generic retryable
// operation wrapper. A Policy is a plain value: how many retries follow
// the initial attempt and how long to wait before each one.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	// ErrExhausted is returned when every retry has failed.
	ErrExhausted = errors.New("retry attempts exhausted")

	// ErrCancelled is returned when the context ends during a backoff wait.
	ErrCancelled = errors.New("context cancelled")
)

// Policy is a retry policy. Delay receives the 1-based retry number.
type Policy struct {
	// MaxRetries is the number of retries allowed after the initial attempt.
	MaxRetries int

	// Delay computes the wait before the given retry.
	Delay func(retry int) time.Duration
}

// Allows reports whether the given 1-based retry is permitted.
func (p Policy) Allows(retry int) bool {
	return retry >= 1 && retry <= p.MaxRetries
}

// DelayFor returns the wait before the given retry, or 0 without a Delay func.
func (p Policy) DelayFor(retry int) time.Duration {
	if p.Delay == nil {
		return 0
	}
	return p.Delay(retry)
}

// Schedule lists the delays of every allowed retry.
func (p Policy) Schedule() []time.Duration {
	out := make([]time.Duration, 0, p.MaxRetries)
	for n := 1; n <= p.MaxRetries; n++ {
		out = append(out, p.DelayFor(n))
	}
	return out
}

// Exponential returns a policy waiting base * 2^retry before each retry.
func Exponential(base time.Duration, maxRetries int) Policy {
	return Policy{
		MaxRetries: maxRetries,
		Delay: func(retry int) time.Duration {
			return base * time.Duration(1<<uint(retry))
		},
	}
}

// Backoff returns a policy waiting initial * multiplier^(retry-1), capped at max.
func Backoff(initial, max time.Duration, multiplier float64, maxRetries int) Policy {
	return Policy{
		MaxRetries: maxRetries,
		Delay: func(retry int) time.Duration {
			d := time.Duration(float64(initial) * math.Pow(multiplier, float64(retry-1)))
			if max > 0 && d > max {
				return max
			}
			return d
		},
	}
}

// WithJitter spreads each delay uniformly within ±frac of its value.
func (p Policy) WithJitter(frac float64) Policy {
	inner := p.Delay
	p.Delay = func(retry int) time.Duration {
		if inner == nil {
			return 0
		}
		d := inner(retry)
		return time.Duration(float64(d) * (1 - frac + rand.Float64()*2*frac))
	}
	return p
}

// Policies for the incremental page engine.
var (
	// EmptyBatch retries an empty page after 200ms, 400ms and 800ms.
	EmptyBatch = Exponential(100*time.Millisecond, 3)

	// NetworkError retries a rejected page fetch after 2s, 4s and 8s.
	NetworkError = Exponential(time.Second, 3)
)

// Sleeper waits for d or until ctx ends.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the default Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	case <-timer.C:
		return nil
	}
}

type options struct {
	retryIf func(error) bool
	sleep   Sleeper
	onRetry func(retry int, delay time.Duration, err error)
}

// Option configures Do.
type Option func(*options)

// RetryIf restricts retries to errors accepted by fn.
func RetryIf(fn func(error) bool) Option {
	return func(o *options) { o.retryIf = fn }
}

// WithSleeper replaces the backoff sleeper.
func WithSleeper(s Sleeper) Option {
	return func(o *options) { o.sleep = s }
}

// OnRetry registers a callback invoked before every backoff wait.
func OnRetry(fn func(retry int, delay time.Duration, err error)) Option {
	return func(o *options) { o.onRetry = fn }
}

// Do runs fn, retrying per the policy while it fails with a retryable error.
// A non-retryable error is returned unchanged.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error, opts ...Option) error {
	o := options{
		retryIf: func(error) bool { return true },
		sleep:   Sleep,
	}
	for _, opt := range opts {
		opt(&o)
	}

	var lastErr error
	for retry := 0; ; retry++ {
		err := fn(ctx)
		if err == nil {
			if retry > 0 {
				log.Debug().Int("retries", retry).Msg("Operation succeeded after retry")
			}
			return nil
		}
		lastErr = err

		if !o.retryIf(err) {
			return err
		}

		next := retry + 1
		if !p.Allows(next) {
			break
		}

		delay := p.DelayFor(next)
		if o.onRetry != nil {
			o.onRetry(next, delay, err)
		}
		log.Debug().
			Int("attempt", next).
			Dur("delay", delay).
			Err(err).
			Msg("Retrying after backoff")

		if err := o.sleep(ctx, delay); err != nil {
			if errors.Is(err, ErrCancelled) {
				return err
			}
			return fmt.Errorf("%w: %w", ErrCancelled, err)
		}
	}

	return fmt.Errorf("%w after %d retries: %w", ErrExhausted, p.MaxRetries, lastErr)
}
