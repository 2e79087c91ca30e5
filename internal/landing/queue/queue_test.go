package queue

import (
	"testing"
	"time"

	"github.com/forgeflow/autoland/internal/resilience/retry"
)

func testBackoff() retry.Config {
	return retry.Config{
		BaseDelay:  50 * time.Millisecond,
		MaxDelay:   time.Second,
		Multiplier: 2,
	}
}

func TestEnqueueDeduplicatesByBranch(t *testing.T) {
	q := New(testBackoff())

	first := q.Enqueue("feature/a", 0)
	second := q.Enqueue("feature/a", 7)

	if first.ID != second.ID {
		t.Error("enqueueing the same branch twice created two items")
	}
	if q.Depth() != 1 {
		t.Errorf("Depth = %d, want 1", q.Depth())
	}
}

func TestNextIsFIFO(t *testing.T) {
	q := New(testBackoff())
	q.Enqueue("one", 0)
	q.Enqueue("two", 0)

	if got := q.Next(); got == nil || got.Branch != "one" {
		t.Fatalf("first Next = %+v, want branch one", got)
	}
	if got := q.Next(); got == nil || got.Branch != "two" {
		t.Fatalf("second Next = %+v, want branch two", got)
	}
	if got := q.Next(); got != nil {
		t.Fatalf("empty queue Next = %+v, want nil", got)
	}
}

func TestRequeueGatesOnBackoff(t *testing.T) {
	q := New(testBackoff())
	q.Enqueue("feature/a", 0)

	item := q.Next()
	q.Requeue(item, "merge declined")

	// Within the 50ms base delay the item is not ready.
	if got := q.Next(); got != nil {
		t.Fatalf("Next during backoff window = %+v, want nil", got)
	}

	time.Sleep(60 * time.Millisecond)
	got := q.Next()
	if got == nil || got.Branch != "feature/a" {
		t.Fatalf("Next after backoff = %+v, want the requeued item", got)
	}
	if got.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", got.Attempts)
	}
	if got.LastError != "merge declined" {
		t.Errorf("LastError = %q", got.LastError)
	}
	if got.ID != item.ID {
		t.Error("requeue changed the item identity")
	}
}

func TestNextSkipsGatedButServesReady(t *testing.T) {
	q := New(testBackoff())
	q.Enqueue("gated", 0)

	gated := q.Next()
	q.Requeue(gated, "conflict")
	q.Enqueue("fresh", 0)

	// The gated item sits at the head, the fresh one behind it.
	got := q.Next()
	if got == nil || got.Branch != "fresh" {
		t.Fatalf("Next = %+v, want the fresh item past the gated head", got)
	}
	if q.Depth() != 1 {
		t.Errorf("Depth = %d, want the gated item still waiting", q.Depth())
	}
}

func TestStats(t *testing.T) {
	q := New(testBackoff())
	q.Enqueue("a", 0)
	q.Enqueue("b", 0)

	item := q.Next()
	q.Requeue(item, "merge declined")
	q.RecordLanded()
	q.RecordFailed()

	s := q.Stats()
	if s.Depth != 2 {
		t.Errorf("Depth = %d, want 2", s.Depth)
	}
	if s.Landed != 1 || s.Failed != 1 || s.Requeued != 1 {
		t.Errorf("Stats = %+v, want 1/1/1", s)
	}
}

func TestItemsSnapshot(t *testing.T) {
	q := New(testBackoff())
	q.Enqueue("a", 1)
	q.Enqueue("b", 2)

	items := q.Items()
	if len(items) != 2 || items[0].Branch != "a" || items[1].Branch != "b" {
		t.Fatalf("Items = %+v, want [a b] in order", items)
	}

	// Mutating the snapshot must not touch the queue.
	items[0].Branch = "mutated"
	if q.Items()[0].Branch != "a" {
		t.Error("snapshot mutation leaked into the queue")
	}
}
