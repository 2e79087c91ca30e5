// Package resilience provides fault handling for calls to external services.
//
// This package hardens every outbound dependency with:
//   - Error classification (structured faults, HTTP, network, heuristics)
//   - Exponential backoff retry with jitter and progressive timeouts
//   - Circuit breakers with a shared registry
//   - Daily quota tracking with graduated throttling
//   - Health monitoring over all of the above
//
// # Quick Start
//
//	import "github.com/forgeflow/autoland/internal/resilience"
//
//	// Setup
//	br := resilience.ForReasonerQuery()
//	tracker := resilience.NewTracker(10000, map[string]float64{"claude.query": 0.8})
//
//	// Make calls
//	out, err := resilience.CallWithRetry(ctx, br, 3, func(ctx context.Context) (string, error) {
//	    tracker.Record("claude.query", "query")
//	    return client.Query(ctx, prompt)
//	})
//
// # Package Structure
//
// The package is organized into sub-packages for maintainability:
//
//   - classify/ - Failure classification and retryability verdicts
//   - retry/    - Backoff computation and the generic retry loop
//   - breaker/  - Circuit breakers, registry, breaker-gated calls
//   - quota/    - Daily budget tracking and throttle delays
//   - health/   - Aggregated health reports and the HTTP endpoint
//
// Most types are re-exported at the root level for convenience.
package resilience

import (
	"context"

	"github.com/forgeflow/autoland/internal/resilience/breaker"
	"github.com/forgeflow/autoland/internal/resilience/classify"
	"github.com/forgeflow/autoland/internal/resilience/quota"
	"github.com/forgeflow/autoland/internal/resilience/retry"
)

// =============================================================================
// Re-exported types from classify package
// =============================================================================

// Classification is the normalized verdict for a failure.
type Classification = classify.Classification

// Kind identifies which classification rule matched.
type Kind = classify.Kind

// HTTPError is the canonical shape client glue wraps raw HTTP failures into.
type HTTPError = classify.HTTPError

// Classification kind constants
const (
	KindStructured = classify.KindStructured
	KindHTTP       = classify.KindHTTP
	KindNetwork    = classify.KindNetwork
	KindUnknown    = classify.KindUnknown
)

// Classify turns an arbitrary error into a Classification.
var Classify = classify.Classify

// IsHTTPStatusRetryable reports whether an HTTP status is worth retrying.
var IsHTTPStatusRetryable = classify.IsHTTPStatusRetryable

// RetryAfterHint extracts a server-provided wait hint from an error.
var RetryAfterHint = classify.RetryAfterHint

// =============================================================================
// Re-exported types from retry package
// =============================================================================

// RetryConfig defines backoff and timeout behavior for a retried operation.
type RetryConfig = retry.Config

// RetryPolicy bundles a config with per-operation hooks.
type RetryPolicy = retry.Policy

// RetryContext carries state across the attempts of one logical operation.
type RetryContext = retry.Context

// AttemptRecord describes a single failed attempt.
type AttemptRecord = retry.AttemptRecord

// Retry config presets
var (
	DefaultRetryConfig     = retry.DefaultConfig
	NetworkRetryConfig     = retry.NetworkConfig
	RateLimitedRetryConfig = retry.RateLimitedConfig
	ReasoningRetryConfig   = retry.ReasoningConfig
	DatabaseRetryConfig    = retry.DatabaseConfig
)

// BackoffDelay computes the backoff delay for a zero-based attempt index.
var BackoffDelay = retry.BackoffDelay

// ProgressiveTimeout computes the per-attempt timeout for an attempt index.
var ProgressiveTimeout = retry.ProgressiveTimeout

// Retry runs op under the given policy until success, a non-retryable
// failure, or retry exhaustion.
func Retry[T any](ctx context.Context, policy RetryPolicy, op retry.Operation[T]) (T, error) {
	return retry.Do(ctx, policy, op)
}

// =============================================================================
// Re-exported types from breaker package
// =============================================================================

// Breaker is a three-state circuit breaker guarding one dependency.
type Breaker = breaker.Breaker

// BreakerConfig holds circuit breaker tuning.
type BreakerConfig = breaker.Config

// BreakerHealth is a point-in-time snapshot of one breaker.
type BreakerHealth = breaker.Health

// BreakerState identifies a circuit breaker state.
type BreakerState = breaker.State

// Registry holds named breakers so call sites share circuit state.
type Registry = breaker.Registry

// Breaker state constants
const (
	StateClosed   = breaker.StateClosed
	StateOpen     = breaker.StateOpen
	StateHalfOpen = breaker.StateHalfOpen
)

// DefaultBreakerConfig provides sensible breaker defaults.
var DefaultBreakerConfig = breaker.DefaultConfig

// NewBreaker creates a breaker with the given name and config.
var NewBreaker = breaker.New

// NewRegistry creates an empty breaker registry.
var NewRegistry = breaker.NewRegistry

// DefaultRegistry is the process-wide registry.
var DefaultRegistry = breaker.Default

// ForReasonerQuery returns the shared breaker guarding analysis queries.
var ForReasonerQuery = breaker.ForReasonerQuery

// ForReasonerRun returns the shared breaker guarding execution runs.
var ForReasonerRun = breaker.ForReasonerRun

// Call executes fn through the breaker without retries.
func Call[T any](ctx context.Context, b *Breaker, fn func(context.Context) (T, error)) (T, error) {
	return breaker.Call(ctx, b, fn)
}

// CallWithRetry executes fn through the breaker with breaker-aware retries.
func CallWithRetry[T any](ctx context.Context, b *Breaker, maxRetries int, fn func(context.Context) (T, error)) (T, error) {
	return breaker.CallWithRetry(ctx, b, maxRetries, fn)
}

// =============================================================================
// Re-exported types from quota package
// =============================================================================

// Tracker manages daily call quota and rate limiting.
type Tracker = quota.Tracker

// DefaultTracker implements Tracker with per-dependency allocations.
type DefaultTracker = quota.DefaultTracker

// UsageStats holds quota usage statistics.
type UsageStats = quota.UsageStats

// NewTracker creates a quota tracker with a daily limit and allocations.
var NewTracker = quota.NewTracker
