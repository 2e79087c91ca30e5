package dedup

import (
	"fmt"
	"sort"

	"github.com/forgeflow/autoland/internal/core/domain"
)

// Risk increments per contributing factor. The sum clamps to [0, 1].
const (
	criticalFileRisk     = 0.25
	conflictingIssueRisk = 0.20
)

// ConflictPrediction estimates how likely a task is to collide with
// critical files or with work already tracked in open issues.
type ConflictPrediction struct {
	HasHighConflictRisk   bool     `json:"has_high_conflict_risk"`
	RiskScore             float64  `json:"risk_score"`
	Reasons               []string `json:"reasons,omitempty"`
	ConflictingIssues     []int    `json:"conflicting_issues,omitempty"`
	CriticalFilesModified []string `json:"critical_files_modified,omitempty"`
}

// PredictConflict scores one task against the open-issue landscape.
// issuePaths carries each issue's mined path set, keyed by number; pass
// the map built by DeduplicateTasks or mine bodies with ExtractIssuePaths.
func (d *Deduplicator) PredictConflict(task domain.DiscoveredTask, issues []domain.Issue, issuePaths map[int][]string) ConflictPrediction {
	taskPaths := normalizePathSet(task.AffectedPaths)
	taskSet := make(map[string]bool, len(taskPaths))
	for _, p := range taskPaths {
		taskSet[p] = true
	}

	critical := d.critical.filter(taskPaths)

	var conflicting []int
	for _, issue := range issues {
		if issue.State != domain.StateOpen {
			continue
		}
		for _, p := range issuePaths[issue.Number] {
			if taskSet[NormalizePath(p)] {
				conflicting = append(conflicting, issue.Number)
				break
			}
		}
	}
	sort.Ints(conflicting)

	risk := criticalFileRisk*float64(len(critical)) + conflictingIssueRisk*float64(len(conflicting))
	if risk > 1 {
		risk = 1
	}

	var reasons []string
	for _, f := range critical {
		reasons = append(reasons, fmt.Sprintf("touches critical file %s", f))
	}
	for _, n := range conflicting {
		reasons = append(reasons, fmt.Sprintf("overlaps files with open issue #%d", n))
	}

	return ConflictPrediction{
		HasHighConflictRisk:   len(critical) >= 2 || len(conflicting) > 0,
		RiskScore:             risk,
		Reasons:               reasons,
		ConflictingIssues:     conflicting,
		CriticalFilesModified: critical,
	}
}
