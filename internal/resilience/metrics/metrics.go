package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RetryAttempts tracks retry-engine attempts per operation and outcome
	// (success, retry, exhausted, aborted).
	RetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoland_retry_attempts_total",
			Help: "Total retry engine attempts",
		},
		[]string{"operation", "outcome"},
	)

	// BreakerState exposes the current circuit state per dependency
	// (0 = closed, 1 = half_open, 2 = open).
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "autoland_breaker_state",
			Help: "Current circuit breaker state",
		},
		[]string{"dependency"},
	)

	// BreakerTransitions counts state changes per dependency.
	BreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoland_breaker_transitions_total",
			Help: "Total circuit breaker state transitions",
		},
		[]string{"dependency", "from", "to"},
	)

	// BreakerRejections counts calls refused while a circuit was open.
	BreakerRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoland_breaker_rejections_total",
			Help: "Total calls rejected by an open circuit",
		},
		[]string{"dependency"},
	)

	// MergeAttempts counts merge attempts per strategy and outcome.
	MergeAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoland_merge_attempts_total",
			Help: "Total merge attempts",
		},
		[]string{"strategy", "outcome"},
	)

	// QueueDepth is the number of branches waiting in the merge queue.
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "autoland_merge_queue_depth",
			Help: "Branches currently waiting in the merge queue",
		},
	)

	// TasksFiltered counts tasks removed from a batch (duplicate, conflict).
	TasksFiltered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoland_tasks_filtered_total",
			Help: "Total tasks filtered out of a batch",
		},
		[]string{"reason"},
	)

	// QuotaCalls counts metered calls per remote dependency.
	QuotaCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoland_quota_calls_total",
			Help: "Total metered calls per dependency",
		},
		[]string{"dependency"},
	)
)
