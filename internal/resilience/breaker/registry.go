package breaker

import (
	"sort"
	"sync"
	"time"
)

// Registry owns the process-wide set of named breakers. Breakers are
// created lazily on first access; the config supplied on that first
// call sticks for the life of the instance.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{breakers: make(map[string]*Breaker)}
}

// Get returns the breaker for name, creating it with cfg if it does
// not exist yet. Config on later calls is ignored.
func (r *Registry) Get(name string, cfg Config) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[name]; ok {
		return b
	}
	b := New(name, cfg)
	r.breakers[name] = b
	return b
}

// Lookup returns the breaker for name without creating one.
func (r *Registry) Lookup(name string) (*Breaker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[name]
	return b, ok
}

// Names returns the registered dependency names, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllHealth snapshots every registered breaker by name.
func (r *Registry) AllHealth() map[string]Health {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]Health, len(r.breakers))
	for name, b := range r.breakers {
		out[name] = b.Health()
	}
	return out
}

// ResetAll force-closes every registered breaker.
func (r *Registry) ResetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range r.breakers {
		b.Reset()
	}
}

// Reset force-closes one breaker by name.
func (r *Registry) Reset(name string) bool {
	r.mu.Lock()
	b, ok := r.breakers[name]
	r.mu.Unlock()
	if ok {
		b.Reset()
	}
	return ok
}

// Default is the process-wide registry used by the reasoning-service
// accessors below. Components take a *Registry, so tests can swap in
// their own instead of sharing this one.
var Default = NewRegistry()

// Names of the two reasoning-service access patterns. Interactive
// queries fail fast; long autonomous runs are expensive to restart, so
// their breaker trips sooner and rests longer.
const (
	ReasonerQueryBreaker = "claude.query"
	ReasonerRunBreaker   = "claude.run"
)

// ForReasonerQuery returns the shared breaker guarding interactive
// reasoning-service queries.
func ForReasonerQuery() *Breaker {
	return Default.Get(ReasonerQueryBreaker, DefaultConfig)
}

// ForReasonerRun returns the shared breaker guarding long-running
// reasoning-service executions.
func ForReasonerRun() *Breaker {
	return Default.Get(ReasonerRunBreaker, Config{
		FailureThreshold: 3,
		ResetTimeout:     2 * time.Minute,
	})
}
