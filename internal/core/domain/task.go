package domain

// Priority is the declared urgency of a discovered task.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// PriorityWeight maps a priority to its scheduling weight (lower = earlier).
var PriorityWeight = map[Priority]int{
	PriorityCritical: 0,
	PriorityHigh:     100,
	PriorityMedium:   200,
	PriorityLow:      300,
}

// IsValid reports whether p is a known priority.
func (p Priority) IsValid() bool {
	_, ok := PriorityWeight[p]
	return ok
}

// Category is the kind of work a task represents.
type Category string

const (
	CategorySecurity Category = "security"
	CategoryBugfix   Category = "bugfix"
	CategoryFeature  Category = "feature"
	CategoryRefactor Category = "refactor"
	CategoryDocs     Category = "docs"
	CategoryTest     Category = "test"
	CategoryChore    Category = "chore"
)

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	switch c {
	case CategorySecurity, CategoryBugfix, CategoryFeature,
		CategoryRefactor, CategoryDocs, CategoryTest, CategoryChore:
		return true
	}
	return false
}

// Complexity is the estimated implementation effort of a task.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// ComplexityWeight maps a complexity to its scheduling weight (lower = earlier).
var ComplexityWeight = map[Complexity]int{
	ComplexitySimple:   0,
	ComplexityModerate: 10,
	ComplexityComplex:  20,
}

// IsValid reports whether c is a known complexity.
func (c Complexity) IsValid() bool {
	_, ok := ComplexityWeight[c]
	return ok
}

// DiscoveredTask is a unit of machine-generated work proposed upstream.
// It is consumed read-only by the deduplicator.
type DiscoveredTask struct {
	Title                    string     `json:"title"                      yaml:"title"`
	Description              string     `json:"description"                yaml:"description"`
	Priority                 Priority   `json:"priority"                   yaml:"priority"`
	Category                 Category   `json:"category"                   yaml:"category"`
	EstimatedComplexity      Complexity `json:"estimated_complexity"       yaml:"estimated_complexity"`
	EstimatedDurationMinutes int        `json:"estimated_duration_minutes" yaml:"estimated_duration_minutes"`
	AffectedPaths            []string   `json:"affected_paths"             yaml:"affected_paths"`
}
