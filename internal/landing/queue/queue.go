// Package queue holds branches waiting to land and feeds them to the
// merge resolver one at a time, backing off requeued failures.
package queue

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/forgeflow/autoland/internal/resilience/metrics"
	"github.com/forgeflow/autoland/internal/resilience/retry"
)

// Item is one branch waiting in the merge queue.
type Item struct {
	ID          string    `json:"id"`
	Branch      string    `json:"branch"`
	PRNumber    int       `json:"pr_number,omitempty"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
	Attempts    int       `json:"attempts"`
	LastAttempt time.Time `json:"last_attempt,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
}

// Stats is a point-in-time view of queue activity.
type Stats struct {
	Depth    int `json:"depth"`
	Landed   int `json:"landed"`
	Failed   int `json:"failed"`
	Requeued int `json:"requeued"`
}

// Queue is a FIFO of branches, one entry per branch. Requeued items
// carry a backoff gate: they are not handed out again until the delay
// for their attempt count has elapsed.
type Queue struct {
	mu      sync.Mutex
	items   []*Item
	backoff retry.Config

	landed   int
	failed   int
	requeued int
}

// New creates a queue whose requeue gates follow backoff. A zero
// backoff falls back to the package default.
func New(backoff retry.Config) *Queue {
	if backoff.BaseDelay == 0 {
		backoff = defaultBackoff
	}
	return &Queue{backoff: backoff}
}

// Enqueue adds a branch. A branch already waiting is not added twice;
// the existing item is returned.
func (q *Queue) Enqueue(branch string, prNumber int) *Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, item := range q.items {
		if item.Branch == branch {
			return item
		}
	}

	item := &Item{
		ID:         uuid.NewString(),
		Branch:     branch,
		PRNumber:   prNumber,
		EnqueuedAt: time.Now(),
	}
	q.items = append(q.items, item)
	metrics.QueueDepth.Set(float64(len(q.items)))
	return item
}

// Next pops the first item whose backoff gate has elapsed, or nil when
// nothing is ready. Fresh items are always ready.
func (q *Queue) Next() *Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, item := range q.items {
		if !q.readyLocked(item) {
			continue
		}
		q.items = append(q.items[:i], q.items[i+1:]...)
		metrics.QueueDepth.Set(float64(len(q.items)))
		return item
	}
	return nil
}

func (q *Queue) readyLocked(item *Item) bool {
	if item.Attempts == 0 {
		return true
	}
	gate := retry.BackoffDelay(item.Attempts-1, q.backoff)
	return !time.Now().Before(item.LastAttempt.Add(gate))
}

// Requeue puts a failed item back with an incremented attempt count.
func (q *Queue) Requeue(item *Item, cause string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item.Attempts++
	item.LastAttempt = time.Now()
	item.LastError = cause
	q.items = append(q.items, item)
	q.requeued++
	metrics.QueueDepth.Set(float64(len(q.items)))
}

// RecordLanded counts a successfully landed item.
func (q *Queue) RecordLanded() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.landed++
}

// RecordFailed counts an item dropped for good.
func (q *Queue) RecordFailed() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.failed++
}

// Depth returns how many items are waiting.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Items returns a snapshot of the waiting items in order.
func (q *Queue) Items() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Item, len(q.items))
	for i, item := range q.items {
		out[i] = *item
	}
	return out
}

// Stats returns queue counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Depth:    len(q.items),
		Landed:   q.landed,
		Failed:   q.failed,
		Requeued: q.requeued,
	}
}
