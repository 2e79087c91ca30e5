package health

import (
	"context"
	"sync"
	"time"

	"github.com/forgeflow/autoland/internal/landing/queue"
	"github.com/forgeflow/autoland/internal/resilience/breaker"
	"github.com/forgeflow/autoland/internal/resilience/quota"
)

// checkInterval rate-limits health computation so HTTP probes and the
// metrics ticker never hammer the underlying components.
const checkInterval = 10 * time.Second

// Monitor aggregates health status from breakers, quota budgets and
// the merge queue.
type Monitor struct {
	registry *breaker.Registry
	tracker  quota.Tracker
	queue    *queue.Queue

	mu         sync.Mutex
	lastCheck  time.Time
	lastReport *Report
}

// NewMonitor creates a health monitor. tracker and q may be nil when a
// deployment runs without quota metering or a merge queue.
func NewMonitor(registry *breaker.Registry, tracker quota.Tracker, q *queue.Queue) *Monitor {
	return &Monitor{
		registry: registry,
		tracker:  tracker,
		queue:    q,
	}
}

// CheckHealth builds the current report, reusing a cached one when the
// last check is fresh enough.
func (m *Monitor) CheckHealth(ctx context.Context) Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastReport != nil && time.Since(m.lastCheck) < checkInterval {
		return *m.lastReport
	}

	report := Report{
		SystemStatus: StatusHealthy,
		Dependencies: make(map[string]DependencyHealth),
	}

	for name, bh := range m.registry.AllHealth() {
		dep := DependencyHealth{
			Name:                name,
			Status:              StatusHealthy,
			CircuitState:        string(bh.State),
			ConsecutiveFailures: bh.ConsecutiveFailures,
			LastError:           bh.LastError,
		}

		switch bh.State {
		case breaker.StateOpen:
			dep.Status = StatusCritical
		case breaker.StateHalfOpen:
			dep.Status = StatusDegraded
		}

		if m.tracker != nil {
			usage := m.tracker.Usage(name)
			dep.QuotaUsedPercent = usage.UsagePercentage
			switch {
			case usage.UsagePercentage >= 100:
				dep.Status = StatusCritical
			case usage.UsagePercentage >= 90 && dep.Status == StatusHealthy:
				dep.Status = StatusDegraded
			}
		}

		if worse(dep.Status, report.SystemStatus) {
			report.SystemStatus = dep.Status
		}
		report.Dependencies[name] = dep
	}

	if m.queue != nil {
		stats := m.queue.Stats()
		qh := QueueHealth{
			Status:   StatusHealthy,
			Depth:    stats.Depth,
			Landed:   stats.Landed,
			Failed:   stats.Failed,
			Requeued: stats.Requeued,
		}
		switch {
		case stats.Depth > 100 || stats.Failed > 50:
			qh.Status = StatusCritical
		case stats.Depth > 10 || stats.Failed > 0:
			qh.Status = StatusDegraded
		}
		if worse(qh.Status, report.SystemStatus) {
			report.SystemStatus = qh.Status
		}
		report.Queue = qh
	}

	m.lastCheck = time.Now()
	m.lastReport = &report
	return report
}

// Invalidate drops the cached report so the next check recomputes,
// used after operator actions like a breaker reset.
func (m *Monitor) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastReport = nil
}
