// Package retry runs operations under exponential backoff with jitter,
// keeping a full per-operation trace of every attempt.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/forgeflow/autoland/internal/core/fault"
	"github.com/forgeflow/autoland/internal/resilience/classify"
	"github.com/forgeflow/autoland/internal/resilience/metrics"
)

// Operation is one retryable unit of work. The same trace is passed to
// every attempt so the operation can adjust behavior on later tries.
type Operation[T any] func(ctx context.Context, rc *Context) (T, error)

// Policy pairs a backoff Config with per-operation hooks. The zero value
// retries nothing; most callers start from one of the Config presets.
type Policy struct {
	Config Config

	// Operation names the call in logs and metrics.
	Operation string

	// ShouldRetry overrides error classification when set. When nil the
	// decision comes from classify.Classify.
	ShouldRetry func(err error) bool

	// OnRetry fires after each failed attempt that will be retried,
	// before the backoff wait begins.
	OnRetry func(attempt int, err error, delay time.Duration)

	// OnExhausted fires once when the operation permanently fails, after
	// the trace has been marked failed.
	OnExhausted func(rc *Context)
}

// Detailed bundles the result of a retried operation with its trace.
type Detailed[T any] struct {
	Result        T
	Trace         *Context
	TotalAttempts int
	TotalDuration time.Duration
}

// Do runs op under policy and returns its result.
func Do[T any](ctx context.Context, policy Policy, op Operation[T]) (T, error) {
	d, err := DoDetailed(ctx, policy, op)
	return d.Result, err
}

// DoDetailed runs op under policy, retrying retryable errors with
// backoff until MaxRetries is exhausted. Cancelling ctx stops the loop
// immediately, whether it is waiting out a delay or about to start an
// attempt, and the aborted wait does not count as an attempt.
func DoDetailed[T any](ctx context.Context, policy Policy, op Operation[T]) (Detailed[T], error) {
	var zero T
	rc := NewContext(policy.Config.MaxRetries)
	operation := policy.Operation
	if operation == "" {
		operation = "unknown"
	}

	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			aborted := abortFault(ctxErr)
			rc.fail(aborted)
			metrics.RetryAttempts.WithLabelValues(operation, "aborted").Inc()
			return Detailed[T]{Result: zero, Trace: rc, TotalAttempts: rc.Attempt, TotalDuration: rc.Elapsed()}, aborted
		}

		result, err := op(ctx, rc)
		if err == nil {
			metrics.RetryAttempts.WithLabelValues(operation, "success").Inc()
			return Detailed[T]{Result: result, Trace: rc, TotalAttempts: rc.Attempt + 1, TotalDuration: rc.Elapsed()}, nil
		}

		cls := classify.Classify(err)
		retryable := cls.Retryable
		if policy.ShouldRetry != nil {
			retryable = policy.ShouldRetry(err)
		}

		if !retryable || rc.Attempt >= policy.Config.MaxRetries {
			rc.record(err, 0, cls)
			rc.fail(err)
			metrics.RetryAttempts.WithLabelValues(operation, "exhausted").Inc()
			if policy.OnExhausted != nil {
				policy.OnExhausted(rc)
			}
			return Detailed[T]{Result: zero, Trace: rc, TotalAttempts: rc.Attempt + 1, TotalDuration: rc.Elapsed()}, err
		}

		// A server-supplied retry-after hint beats the computed backoff.
		delay := BackoffDelay(rc.Attempt, policy.Config)
		if cls.RetryAfter > 0 {
			delay = cls.RetryAfter
		}

		rc.record(err, delay, cls)
		metrics.RetryAttempts.WithLabelValues(operation, "retry").Inc()
		if policy.OnRetry != nil {
			policy.OnRetry(rc.Attempt, err, delay)
		}

		select {
		case <-ctx.Done():
			aborted := abortFault(ctx.Err())
			rc.fail(aborted)
			metrics.RetryAttempts.WithLabelValues(operation, "aborted").Inc()
			return Detailed[T]{Result: zero, Trace: rc, TotalAttempts: rc.Attempt + 1, TotalDuration: rc.Elapsed()}, aborted
		case <-time.After(delay):
		}
		rc.Attempt++
	}
}

func abortFault(cause error) *fault.Fault {
	return fault.Generic(fault.CodeAborted, "operation aborted").
		WithCause(cause).
		WithRetryable(false)
}

// BackoffDelay computes the delay before retrying attempt (zero-based):
// BaseDelay * Multiplier^attempt, clamped to MaxDelay, with uniform
// jitter of up to ±JitterFactor applied after clamping. A non-positive
// BaseDelay disables waiting entirely.
func BackoffDelay(attempt int, cfg Config) time.Duration {
	if cfg.BaseDelay <= 0 {
		return 0
	}

	delay := float64(cfg.BaseDelay) * math.Pow(cfg.Multiplier, float64(attempt))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}

	if cfg.JitterEnabled {
		factor := cfg.JitterFactor
		if factor <= 0 {
			factor = DefaultJitterFactor
		}
		delay *= 1 - factor + rand.Float64()*2*factor
	}

	return time.Duration(delay)
}

// ProgressiveTimeout returns the per-attempt timeout for attempt
// (zero-based): InitialTimeout * TimeoutIncreaseFactor^attempt, clamped
// to MaxTimeout. When progressive timeouts are disabled every attempt
// gets InitialTimeout.
func ProgressiveTimeout(attempt int, cfg Config) time.Duration {
	initial := cfg.InitialTimeout
	if initial <= 0 {
		initial = DefaultConfig.InitialTimeout
	}
	if !cfg.ProgressiveTimeout {
		return initial
	}

	timeout := float64(initial) * math.Pow(cfg.TimeoutIncreaseFactor, float64(attempt))
	if cfg.MaxTimeout > 0 && timeout > float64(cfg.MaxTimeout) {
		timeout = float64(cfg.MaxTimeout)
	}
	return time.Duration(timeout)
}
