// Package breaker guards calls to one named remote dependency, refusing
// work after repeated failures and probing for recovery after a timeout.
package breaker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/forgeflow/autoland/internal/core/fault"
	"github.com/forgeflow/autoland/internal/resilience/metrics"
	"github.com/forgeflow/autoland/internal/resilience/retry"
)

// State is the circuit position.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Config tunes one breaker. Zero fields take the package defaults.
type Config struct {
	// FailureThreshold is the consecutive-failure count that opens the
	// circuit from closed.
	FailureThreshold int `yaml:"failure_threshold"`

	// SuccessThreshold is the consecutive-success count that closes the
	// circuit from half_open.
	SuccessThreshold int `yaml:"success_threshold"`

	// ResetTimeout is how long an open circuit waits before allowing a
	// half_open probe.
	ResetTimeout time.Duration `yaml:"reset_timeout"`

	// Backoff settings used when retrying through the breaker.
	BaseDelay    time.Duration `yaml:"base_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Multiplier   float64       `yaml:"multiplier"`
	JitterFactor float64       `yaml:"jitter_factor"`
}

// DefaultConfig is the stock breaker tuning.
var DefaultConfig = Config{
	FailureThreshold: 5,
	SuccessThreshold: 1,
	ResetTimeout:     60 * time.Second,
	BaseDelay:        100 * time.Millisecond,
	MaxDelay:         30 * time.Second,
	Multiplier:       2,
	JitterFactor:     0.1,
}

func (c Config) withDefaults() Config {
	d := DefaultConfig
	if c.FailureThreshold > 0 {
		d.FailureThreshold = c.FailureThreshold
	}
	if c.SuccessThreshold > 0 {
		d.SuccessThreshold = c.SuccessThreshold
	}
	if c.ResetTimeout > 0 {
		d.ResetTimeout = c.ResetTimeout
	}
	if c.BaseDelay > 0 {
		d.BaseDelay = c.BaseDelay
	}
	if c.MaxDelay > 0 {
		d.MaxDelay = c.MaxDelay
	}
	if c.Multiplier > 0 {
		d.Multiplier = c.Multiplier
	}
	if c.JitterFactor > 0 {
		d.JitterFactor = c.JitterFactor
	}
	return d
}

// Health is a point-in-time snapshot of one breaker.
type Health struct {
	State                State         `json:"state"`
	ConsecutiveFailures  int           `json:"consecutive_failures"`
	ConsecutiveSuccesses int           `json:"consecutive_successes"`
	TotalFailures        int           `json:"total_failures"`
	TotalSuccesses       int           `json:"total_successes"`
	LastFailure          *time.Time    `json:"last_failure,omitempty"`
	LastSuccess          *time.Time    `json:"last_success,omitempty"`
	LastError            string        `json:"last_error,omitempty"`
	StateChanges         int           `json:"state_changes"`
	TimeInCurrentState   time.Duration `json:"time_in_current_state"`
}

// Breaker tracks the health of one named dependency. Safe for use from
// multiple goroutines.
type Breaker struct {
	name string
	cfg  Config

	mu                   sync.Mutex
	state                State
	stateEnteredAt       time.Time
	consecutiveFailures  int
	consecutiveSuccesses int
	totalFailures        int
	totalSuccesses       int
	lastFailure          time.Time
	lastSuccess          time.Time
	lastError            string
	stateChanges         int
}

// New creates a closed breaker for the named dependency.
func New(name string, cfg Config) *Breaker {
	b := &Breaker{
		name:           name,
		cfg:            cfg.withDefaults(),
		state:          StateClosed,
		stateEnteredAt: time.Now(),
	}
	metrics.BreakerState.WithLabelValues(name).Set(stateValue(StateClosed))
	return b
}

// Name returns the dependency this breaker guards.
func (b *Breaker) Name() string { return b.name }

// Config returns the effective (default-filled) configuration.
func (b *Breaker) Config() Config { return b.cfg }

// CanExecute reports whether a call may proceed. An open circuit whose
// reset timeout has elapsed flips to half_open here, on demand, so a
// quiet period never needs a background timer to recover.
func (b *Breaker) CanExecute() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.canExecuteLocked()
}

func (b *Breaker) canExecuteLocked() bool {
	if b.state == StateOpen && time.Since(b.stateEnteredAt) >= b.cfg.ResetTimeout {
		b.transitionLocked(StateHalfOpen)
	}
	return b.state != StateOpen
}

// State returns the current circuit position without evaluating the
// lazy open→half_open transition.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// RecordSuccess notes a successful call against the dependency.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveSuccesses++
	b.totalSuccesses++
	b.consecutiveFailures = 0
	b.lastSuccess = time.Now()

	if b.state == StateHalfOpen && b.consecutiveSuccesses >= b.cfg.SuccessThreshold {
		b.transitionLocked(StateClosed)
	}
}

// RecordFailure notes a failed call against the dependency.
func (b *Breaker) RecordFailure(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures++
	b.totalFailures++
	b.consecutiveSuccesses = 0
	b.lastFailure = time.Now()
	if err != nil {
		b.lastError = err.Error()
	}

	switch {
	case b.state == StateHalfOpen:
		// Any failure while probing re-opens immediately.
		b.transitionLocked(StateOpen)
	case b.state == StateClosed && b.consecutiveFailures >= b.cfg.FailureThreshold:
		b.transitionLocked(StateOpen)
	}
}

// Reset force-returns the breaker to closed with all counters zeroed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateClosed {
		b.transitionLocked(StateClosed)
	}
	b.consecutiveFailures = 0
	b.consecutiveSuccesses = 0
	b.totalFailures = 0
	b.totalSuccesses = 0
	b.lastFailure = time.Time{}
	b.lastSuccess = time.Time{}
	b.lastError = ""
	slog.Info("circuit breaker reset", "dependency", b.name)
}

// Health returns a snapshot of the breaker's counters and state.
func (b *Breaker) Health() Health {
	b.mu.Lock()
	defer b.mu.Unlock()

	h := Health{
		State:                b.state,
		ConsecutiveFailures:  b.consecutiveFailures,
		ConsecutiveSuccesses: b.consecutiveSuccesses,
		TotalFailures:        b.totalFailures,
		TotalSuccesses:       b.totalSuccesses,
		LastError:            b.lastError,
		StateChanges:         b.stateChanges,
		TimeInCurrentState:   time.Since(b.stateEnteredAt),
	}
	if !b.lastFailure.IsZero() {
		t := b.lastFailure
		h.LastFailure = &t
	}
	if !b.lastSuccess.IsZero() {
		t := b.lastSuccess
		h.LastSuccess = &t
	}
	return h
}

func (b *Breaker) transitionLocked(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.stateEnteredAt = time.Now()
	b.stateChanges++

	metrics.BreakerState.WithLabelValues(b.name).Set(stateValue(to))
	metrics.BreakerTransitions.WithLabelValues(b.name, string(from), string(to)).Inc()

	switch to {
	case StateOpen:
		slog.Warn("circuit opened",
			"dependency", b.name,
			"consecutive_failures", b.consecutiveFailures,
			"last_error", b.lastError)
	case StateHalfOpen:
		slog.Info("circuit half-open, probing", "dependency", b.name)
	case StateClosed:
		slog.Info("circuit closed", "dependency", b.name)
	}
}

func stateValue(s State) float64 {
	switch s {
	case StateHalfOpen:
		return 1
	case StateOpen:
		return 2
	default:
		return 0
	}
}

// Execute runs fn through the breaker. When the circuit is open the
// call is rejected with a non-retryable CIRCUIT_BREAKER_OPEN fault and
// fn is never invoked.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	_, err := Call(ctx, b, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// ExecuteWithRetry layers the retry engine under Execute so every
// attempt is breaker-gated: if the circuit opens mid-loop, the next
// attempt fails fast instead of re-invoking the remote call.
func (b *Breaker) ExecuteWithRetry(ctx context.Context, maxRetries int, fn func(context.Context) error) error {
	_, err := CallWithRetry(ctx, b, maxRetries, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Call runs fn through the breaker and returns its result.
func Call[T any](ctx context.Context, b *Breaker, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	b.mu.Lock()
	if !b.canExecuteLocked() {
		openErr := b.openFaultLocked()
		b.mu.Unlock()
		metrics.BreakerRejections.WithLabelValues(b.name).Inc()
		return zero, openErr
	}
	b.mu.Unlock()

	result, err := fn(ctx)
	if err != nil {
		b.RecordFailure(err)
		return zero, err
	}
	b.RecordSuccess()
	return result, nil
}

// CallWithRetry runs fn through the breaker under the breaker's own
// backoff settings, retrying up to maxRetries times.
func CallWithRetry[T any](ctx context.Context, b *Breaker, maxRetries int, fn func(context.Context) (T, error)) (T, error) {
	policy := retry.Policy{
		Config:    b.RetryConfig(maxRetries),
		Operation: b.name,
	}
	return retry.Do(ctx, policy, func(ctx context.Context, _ *retry.Context) (T, error) {
		return Call(ctx, b, fn)
	})
}

// RetryConfig derives a retry configuration from the breaker's backoff
// settings.
func (b *Breaker) RetryConfig(maxRetries int) retry.Config {
	return retry.Config{
		MaxRetries:    maxRetries,
		BaseDelay:     b.cfg.BaseDelay,
		MaxDelay:      b.cfg.MaxDelay,
		Multiplier:    b.cfg.Multiplier,
		JitterEnabled: b.cfg.JitterFactor > 0,
		JitterFactor:  b.cfg.JitterFactor,
	}
}

func (b *Breaker) openFaultLocked() *fault.Fault {
	remaining := b.cfg.ResetTimeout - time.Since(b.stateEnteredAt)
	if remaining < 0 {
		remaining = 0
	}
	return fault.Newf(fault.DomainGeneric, fault.CodeCircuitOpen, "circuit breaker %q is open", b.name).
		WithRetryable(false).
		WithContext("operation", b.name).
		WithContext("circuit_state", string(b.state)).
		WithContext("consecutive_failures", b.consecutiveFailures).
		WithContext("ms_until_retry", remaining.Milliseconds()).
		WithRecovery("wait for the reset timeout, then a probe call is allowed", true)
}
