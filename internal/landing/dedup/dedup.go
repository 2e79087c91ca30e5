// Package dedup filters and orders machine-generated tasks before they
// are submitted: near-duplicate detection against the batch and the
// open-issue backlog, conflict-risk prediction over shared and critical
// files, and a conflict-safe execution ordering.
package dedup

import (
	"math"
	"sort"

	"github.com/forgeflow/autoland/internal/core/domain"
	"github.com/forgeflow/autoland/internal/resilience/metrics"
)

// Config tunes the deduplicator. Zero thresholds take defaults.
type Config struct {
	// SimilarityThreshold marks a task as a potential duplicate when
	// its best similarity score reaches it.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`

	// RelatedThreshold links a task to an issue at a lower bar than
	// duplication.
	RelatedThreshold float64 `yaml:"related_threshold"`

	AdditionalCriticalFiles       []string `yaml:"additional_critical_files"`
	AdditionalCriticalDirectories []string `yaml:"additional_critical_directories"`
}

const (
	defaultSimilarityThreshold = 0.7
	defaultRelatedThreshold    = 0.3
)

// Deduplicator analyzes batches of discovered tasks.
type Deduplicator struct {
	cfg      Config
	critical criticalSet
}

// New creates a deduplicator.
func New(cfg Config) *Deduplicator {
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = defaultSimilarityThreshold
	}
	if cfg.RelatedThreshold <= 0 {
		cfg.RelatedThreshold = defaultRelatedThreshold
	}
	return &Deduplicator{
		cfg:      cfg,
		critical: newCriticalSet(cfg.AdditionalCriticalFiles, cfg.AdditionalCriticalDirectories),
	}
}

// DeduplicatedTask is a DiscoveredTask annotated with everything the
// scheduler needs: duplicate flags, issue links, conflict risk and a
// derived execution priority (lower schedules first).
type DeduplicatedTask struct {
	domain.DiscoveredTask

	RelatedIssues        []int              `json:"related_issues,omitempty"`
	MaxSimilarityScore   float64            `json:"max_similarity_score"`
	IsPotentialDuplicate bool               `json:"is_potential_duplicate"`
	ConflictPrediction   ConflictPrediction `json:"conflict_prediction"`
	ExecutionPriority    int                `json:"execution_priority"`
}

// DeduplicateTasks annotates every task in the batch against its
// siblings and the open issues, returning the batch sorted by
// execution priority ascending.
func (d *Deduplicator) DeduplicateTasks(tasks []domain.DiscoveredTask, issues []domain.Issue) []DeduplicatedTask {
	issuePaths := make(map[int][]string, len(issues))
	for _, issue := range issues {
		issuePaths[issue.Number] = ExtractIssuePaths(issue.Body)
	}

	out := make([]DeduplicatedTask, 0, len(tasks))
	for i, task := range tasks {
		maxScore := 0.0

		for j, other := range tasks {
			if i == j {
				continue
			}
			if score := d.CalculateTaskSimilarity(task, other).Score; score > maxScore {
				maxScore = score
			}
		}

		var related []int
		for _, issue := range issues {
			sim := d.similarity(task.Title, task.AffectedPaths, issue.Title, issuePaths[issue.Number])
			if sim.Score > maxScore {
				maxScore = sim.Score
			}
			if sim.Score >= d.cfg.RelatedThreshold {
				related = append(related, issue.Number)
			}
		}
		sort.Ints(related)

		prediction := d.PredictConflict(task, issues, issuePaths)

		out = append(out, DeduplicatedTask{
			DiscoveredTask:       task,
			RelatedIssues:        related,
			MaxSimilarityScore:   maxScore,
			IsPotentialDuplicate: maxScore >= d.cfg.SimilarityThreshold,
			ConflictPrediction:   prediction,
			ExecutionPriority:    executionPriority(task, prediction.RiskScore),
		})
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].ExecutionPriority < out[b].ExecutionPriority
	})
	return out
}

// executionPriority derives the scheduling key: declared priority
// dominates, complexity breaks ties, conflict risk pushes work later.
func executionPriority(task domain.DiscoveredTask, risk float64) int {
	priorityWeight, ok := domain.PriorityWeight[task.Priority]
	if !ok {
		priorityWeight = domain.PriorityWeight[domain.PriorityMedium]
	}
	complexityWeight, ok := domain.ComplexityWeight[task.EstimatedComplexity]
	if !ok {
		complexityWeight = domain.ComplexityWeight[domain.ComplexityModerate]
	}
	return priorityWeight + complexityWeight + int(math.Round(risk*50))
}

// FilterDuplicates drops potential duplicates, preserving the relative
// order of the rest.
func (d *Deduplicator) FilterDuplicates(tasks []DeduplicatedTask) []DeduplicatedTask {
	out := make([]DeduplicatedTask, 0, len(tasks))
	for _, t := range tasks {
		if t.IsPotentialDuplicate {
			metrics.TasksFiltered.WithLabelValues("duplicate").Inc()
			continue
		}
		out = append(out, t)
	}
	return out
}

// ConflictSafeOrder returns a copy with every low-risk task ahead of
// every high-risk one, keeping execution priority within each band.
// The input slice is never mutated.
func (d *Deduplicator) ConflictSafeOrder(tasks []DeduplicatedTask) []DeduplicatedTask {
	out := make([]DeduplicatedTask, len(tasks))
	copy(out, tasks)

	sort.SliceStable(out, func(a, b int) bool {
		ra, rb := out[a].ConflictPrediction.HasHighConflictRisk, out[b].ConflictPrediction.HasHighConflictRisk
		if ra != rb {
			return !ra
		}
		return out[a].ExecutionPriority < out[b].ExecutionPriority
	})
	return out
}

// ParallelSafeTasks selects tasks safe to run concurrently: not
// duplicates, and no high conflict risk.
func (d *Deduplicator) ParallelSafeTasks(tasks []DeduplicatedTask) []DeduplicatedTask {
	var out []DeduplicatedTask
	for _, t := range tasks {
		if !t.IsPotentialDuplicate && !t.ConflictPrediction.HasHighConflictRisk {
			out = append(out, t)
		}
	}
	return out
}

// GroupByConflict buckets tasks that transitively share related
// issues; unlinked tasks form singleton groups. Groups come back in
// order of their first member.
func (d *Deduplicator) GroupByConflict(tasks []DeduplicatedTask) [][]DeduplicatedTask {
	parent := make([]int, len(tasks))
	for i := range parent {
		parent[i] = i
	}

	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		if rb < ra {
			ra, rb = rb, ra
		}
		parent[rb] = ra
	}

	firstWithIssue := make(map[int]int)
	for i, t := range tasks {
		for _, issue := range t.RelatedIssues {
			if j, ok := firstWithIssue[issue]; ok {
				union(i, j)
			} else {
				firstWithIssue[issue] = i
			}
		}
	}

	members := make(map[int][]DeduplicatedTask)
	var roots []int
	for i, t := range tasks {
		root := find(i)
		if _, ok := members[root]; !ok {
			roots = append(roots, root)
		}
		members[root] = append(members[root], t)
	}

	groups := make([][]DeduplicatedTask, 0, len(roots))
	for _, root := range roots {
		groups = append(groups, members[root])
	}
	return groups
}
