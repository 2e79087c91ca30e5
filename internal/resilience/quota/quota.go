// Package quota meters daily call budgets for the remote dependencies
// (hosting API, reasoning service) and slows callers down as a budget
// nears exhaustion.
package quota

import (
	"sync"
	"time"

	"github.com/forgeflow/autoland/internal/resilience/metrics"
)

// UsageStats holds quota usage for one dependency.
type UsageStats struct {
	TotalCalls              int       `json:"total_calls"`
	CallsPerHour            int       `json:"calls_per_hour"`
	DailyLimit              int       `json:"daily_limit"`
	RemainingCalls          int       `json:"remaining_calls"`
	UsagePercentage         float64   `json:"usage_percentage"`
	NextResetAt             time.Time `json:"next_reset_at"`
	PredictedExhaustionMins int       `json:"predicted_exhaustion_mins"`
}

// Tracker meters calls against per-dependency daily budgets.
type Tracker interface {
	Record(dependency, operation string)
	Usage(dependency string) UsageStats
	CanCall(dependency string) bool
	ThrottleDelay(dependency string) time.Duration
	Reset()
}

type dependencyBudget struct {
	totalCalls      int
	callsThisHour   int
	hourStartTime   time.Time
	operationCalls  map[string]int
	dailyAllocation int
}

// DefaultTracker implements Tracker with per-dependency tracking and a
// midnight rollover.
type DefaultTracker struct {
	mu         sync.RWMutex
	usage      map[string]*dependencyBudget
	dailyLimit int
	resetTime  time.Time
}

// NewTracker creates a tracker that splits dailyLimit across the given
// dependencies by fraction. Dependencies not listed get a tenth of the
// daily limit on first use.
func NewTracker(dailyLimit int, allocation map[string]float64) *DefaultTracker {
	now := time.Now()
	t := &DefaultTracker{
		usage:      make(map[string]*dependencyBudget),
		dailyLimit: dailyLimit,
		resetTime:  nextMidnight(now),
	}

	for dependency, fraction := range allocation {
		t.usage[dependency] = &dependencyBudget{
			dailyAllocation: int(float64(dailyLimit) * fraction),
			hourStartTime:   now,
			operationCalls:  make(map[string]int),
		}
	}
	return t
}

// Record counts one call for quota purposes.
func (t *DefaultTracker) Record(dependency, operation string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if time.Now().After(t.resetTime) {
		t.resetLocked()
	}

	budget, ok := t.usage[dependency]
	if !ok {
		budget = &dependencyBudget{
			dailyAllocation: t.dailyLimit / 10,
			hourStartTime:   time.Now(),
			operationCalls:  make(map[string]int),
		}
		t.usage[dependency] = budget
	}

	if time.Since(budget.hourStartTime) >= time.Hour {
		budget.callsThisHour = 0
		budget.hourStartTime = time.Now()
	}

	budget.totalCalls++
	budget.callsThisHour++
	budget.operationCalls[operation]++
	metrics.QuotaCalls.WithLabelValues(dependency).Inc()
}

// Usage returns usage statistics for a dependency.
func (t *DefaultTracker) Usage(dependency string) UsageStats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.usageLocked(dependency)
}

func (t *DefaultTracker) usageLocked(dependency string) UsageStats {
	budget, ok := t.usage[dependency]
	if !ok {
		defaultLimit := t.dailyLimit / 10
		return UsageStats{
			DailyLimit:     defaultLimit,
			RemainingCalls: defaultLimit,
			NextResetAt:    t.resetTime,
		}
	}

	remaining := budget.dailyAllocation - budget.totalCalls
	if remaining < 0 {
		remaining = 0
	}

	usagePercentage := 0.0
	if budget.dailyAllocation > 0 {
		usagePercentage = float64(budget.totalCalls) / float64(budget.dailyAllocation) * 100
	}

	return UsageStats{
		TotalCalls:              budget.totalCalls,
		CallsPerHour:            budget.callsThisHour,
		DailyLimit:              budget.dailyAllocation,
		RemainingCalls:          remaining,
		UsagePercentage:         usagePercentage,
		NextResetAt:             t.resetTime,
		PredictedExhaustionMins: predictExhaustion(remaining, budget.callsThisHour, budget.hourStartTime),
	}
}

// predictExhaustion extrapolates the current hour's call rate over the
// remaining budget. Zero means no exhaustion is in sight.
func predictExhaustion(remaining, callsThisHour int, hourStart time.Time) int {
	if remaining <= 0 {
		return 0
	}
	elapsed := time.Since(hourStart).Minutes()
	if elapsed < 1 || callsThisHour == 0 {
		return 0
	}
	perMinute := float64(callsThisHour) / elapsed
	if perMinute <= 0 {
		return 0
	}
	return int(float64(remaining) / perMinute)
}

// CanCall reports whether a dependency still has budget today.
func (t *DefaultTracker) CanCall(dependency string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	budget, ok := t.usage[dependency]
	if !ok {
		return true
	}
	return budget.totalCalls < budget.dailyAllocation
}

// ThrottleDelay returns how long a caller should wait before its next
// call, growing as the budget is consumed. At 100% it is the time
// until the midnight reset.
func (t *DefaultTracker) ThrottleDelay(dependency string) time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if _, ok := t.usage[dependency]; !ok {
		return 0
	}

	usage := t.usageLocked(dependency)
	switch {
	case usage.UsagePercentage < 50:
		return 0
	case usage.UsagePercentage < 70:
		return 1 * time.Second
	case usage.UsagePercentage < 90:
		return 3 * time.Second
	case usage.UsagePercentage < 100:
		return 10 * time.Second
	}
	return time.Until(t.resetTime)
}

// SetAllocation overrides the daily allocation for one dependency.
func (t *DefaultTracker) SetAllocation(dependency string, allocation int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	budget, ok := t.usage[dependency]
	if !ok {
		budget = &dependencyBudget{
			hourStartTime:  time.Now(),
			operationCalls: make(map[string]int),
		}
		t.usage[dependency] = budget
	}
	budget.dailyAllocation = allocation
}

// Reset zeroes all usage counters and schedules the next rollover.
func (t *DefaultTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked()
}

func (t *DefaultTracker) resetLocked() {
	for _, budget := range t.usage {
		budget.totalCalls = 0
		budget.callsThisHour = 0
		budget.hourStartTime = time.Now()
		budget.operationCalls = make(map[string]int)
	}
	t.resetTime = nextMidnight(time.Now())
}

func nextMidnight(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
}
