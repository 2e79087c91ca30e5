package health

import (
	"context"
	"errors"
	"testing"

	"github.com/forgeflow/autoland/internal/landing/queue"
	"github.com/forgeflow/autoland/internal/resilience/breaker"
	"github.com/forgeflow/autoland/internal/resilience/quota"
	"github.com/forgeflow/autoland/internal/resilience/retry"
)

func trip(b *breaker.Breaker) {
	for i := 0; i < b.Config().FailureThreshold; i++ {
		b.RecordFailure(errors.New("boom"))
	}
}

func TestCheckHealthAllHealthy(t *testing.T) {
	reg := breaker.NewRegistry()
	reg.Get("github", breaker.DefaultConfig)
	reg.Get("claude.query", breaker.DefaultConfig)

	m := NewMonitor(reg, quota.NewTracker(1000, nil), queue.New(retry.Config{}))
	report := m.CheckHealth(context.Background())

	if report.SystemStatus != StatusHealthy {
		t.Errorf("SystemStatus = %s, want healthy", report.SystemStatus)
	}
	if len(report.Dependencies) != 2 {
		t.Errorf("Dependencies = %d entries, want 2", len(report.Dependencies))
	}
	for name, dep := range report.Dependencies {
		if dep.Status != StatusHealthy {
			t.Errorf("dependency %s status = %s, want healthy", name, dep.Status)
		}
	}
}

func TestCheckHealthOpenBreakerIsCritical(t *testing.T) {
	reg := breaker.NewRegistry()
	trip(reg.Get("github", breaker.DefaultConfig))

	m := NewMonitor(reg, nil, nil)
	report := m.CheckHealth(context.Background())

	if report.SystemStatus != StatusCritical {
		t.Errorf("SystemStatus = %s, want critical", report.SystemStatus)
	}
	dep := report.Dependencies["github"]
	if dep.Status != StatusCritical || dep.CircuitState != string(breaker.StateOpen) {
		t.Errorf("github dependency = %+v, want critical/open", dep)
	}
	if dep.LastError == "" {
		t.Error("LastError not surfaced in report")
	}
}

func TestCheckHealthQuotaThresholds(t *testing.T) {
	reg := breaker.NewRegistry()
	reg.Get("claude.query", breaker.DefaultConfig)

	tracker := quota.NewTracker(10, map[string]float64{"claude.query": 1})
	for i := 0; i < 9; i++ {
		tracker.Record("claude.query", "query")
	}

	m := NewMonitor(reg, tracker, nil)
	report := m.CheckHealth(context.Background())
	if got := report.Dependencies["claude.query"].Status; got != StatusDegraded {
		t.Errorf("status at 90%% quota = %s, want degraded", got)
	}

	tracker.Record("claude.query", "query")
	m.Invalidate()
	report = m.CheckHealth(context.Background())
	if got := report.Dependencies["claude.query"].Status; got != StatusCritical {
		t.Errorf("status at 100%% quota = %s, want critical", got)
	}
}

func TestCheckHealthQueueDegradation(t *testing.T) {
	reg := breaker.NewRegistry()
	q := queue.New(retry.Config{})
	q.RecordFailed()

	m := NewMonitor(reg, nil, q)
	report := m.CheckHealth(context.Background())

	if report.Queue.Status != StatusDegraded {
		t.Errorf("queue status = %s, want degraded after a permanent failure", report.Queue.Status)
	}
	if report.SystemStatus != StatusDegraded {
		t.Errorf("SystemStatus = %s, want degraded", report.SystemStatus)
	}
}

func TestCheckHealthCachesReports(t *testing.T) {
	reg := breaker.NewRegistry()
	b := reg.Get("github", breaker.DefaultConfig)

	m := NewMonitor(reg, nil, nil)
	first := m.CheckHealth(context.Background())
	if first.SystemStatus != StatusHealthy {
		t.Fatalf("baseline = %s, want healthy", first.SystemStatus)
	}

	trip(b)

	// Within the cache window the stale report comes back.
	cached := m.CheckHealth(context.Background())
	if cached.SystemStatus != StatusHealthy {
		t.Errorf("cached SystemStatus = %s, want stale healthy", cached.SystemStatus)
	}

	m.Invalidate()
	fresh := m.CheckHealth(context.Background())
	if fresh.SystemStatus != StatusCritical {
		t.Errorf("post-invalidate SystemStatus = %s, want critical", fresh.SystemStatus)
	}
}
