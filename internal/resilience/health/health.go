// Package health provides system health monitoring and status reporting.
package health

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// worse reports whether a outranks b in severity.
func worse(a, b SystemStatus) bool {
	rank := map[SystemStatus]int{
		StatusHealthy:  0,
		StatusDegraded: 1,
		StatusCritical: 2,
	}
	return rank[a] > rank[b]
}

// DependencyHealth contains health metrics for one remote dependency.
type DependencyHealth struct {
	Name                string       `json:"name"`
	Status              SystemStatus `json:"status"`
	CircuitState        string       `json:"circuit_state"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
	QuotaUsedPercent    float64      `json:"quota_used_percent"`
	LastError           string       `json:"last_error,omitempty"`
}

// QueueHealth summarizes the merge queue.
type QueueHealth struct {
	Status   SystemStatus `json:"status"`
	Depth    int          `json:"depth"`
	Landed   int          `json:"landed"`
	Failed   int          `json:"failed"`
	Requeued int          `json:"requeued"`
}

// Report contains the full system health report.
type Report struct {
	SystemStatus SystemStatus                `json:"system_status"`
	Dependencies map[string]DependencyHealth `json:"dependencies"`
	Queue        QueueHealth                 `json:"queue"`
}
