package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/forgeflow/autoland/internal/landing/merge"
	"github.com/forgeflow/autoland/internal/resilience/retry"
)

// Config tunes the worker's polling and retry behavior.
type Config struct {
	// PollInterval is the base wait between queue polls when the queue
	// is idle.
	PollInterval    time.Duration `yaml:"poll_interval"`
	MinPollInterval time.Duration `yaml:"min_poll_interval"`
	MaxPollInterval time.Duration `yaml:"max_poll_interval"`

	// Depth thresholds for adaptive polling: a backed-up queue is
	// drained faster than an idle one.
	DepthNormalThreshold int `yaml:"depth_normal_threshold"`
	DepthBurstThreshold  int `yaml:"depth_burst_threshold"`

	// Adaptive enables depth-based poll speedup.
	Adaptive bool `yaml:"adaptive"`

	// MaxItemRetries bounds how often one branch is requeued before it
	// is dropped for good.
	MaxItemRetries int `yaml:"max_item_retries"`

	// Backoff gates how soon a requeued branch may be retried.
	Backoff retry.Config `yaml:"backoff"`
}

// defaultBackoff gates requeued branches when no backoff is configured.
var defaultBackoff = retry.Config{
	MaxRetries: 3,
	BaseDelay:  10 * time.Second,
	MaxDelay:   5 * time.Minute,
	Multiplier: 2,
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 30 * time.Second
	}
	if c.MinPollInterval <= 0 {
		c.MinPollInterval = 5 * time.Second
	}
	if c.MaxPollInterval <= 0 {
		c.MaxPollInterval = 2 * time.Minute
	}
	if c.DepthNormalThreshold <= 0 {
		c.DepthNormalThreshold = 3
	}
	if c.DepthBurstThreshold <= 0 {
		c.DepthBurstThreshold = 10
	}
	if c.MaxItemRetries <= 0 {
		c.MaxItemRetries = 3
	}
	if c.Backoff.BaseDelay == 0 {
		c.Backoff = defaultBackoff
		c.Backoff.MaxRetries = c.MaxItemRetries
	}
	return c
}

// Worker drains the merge queue through the conflict resolver.
type Worker struct {
	queue    *Queue
	resolver *merge.Resolver
	cfg      Config
}

// NewWorker wires a worker to its queue and resolver.
func NewWorker(q *Queue, resolver *merge.Resolver, cfg Config) *Worker {
	return &Worker{
		queue:    q,
		resolver: resolver,
		cfg:      cfg.withDefaults(),
	}
}

// ComputeInterval picks the next poll delay from queue depth.
//
// Algorithm:
//   - depth 0: base interval (idle, save API calls)
//   - depth < normal threshold: base interval / 2
//   - depth < burst threshold: min interval * 2
//   - depth >= burst threshold: min interval (drain at full speed)
func (w *Worker) ComputeInterval(depth int) time.Duration {
	if !w.cfg.Adaptive {
		return w.cfg.PollInterval
	}

	var interval time.Duration
	switch {
	case depth <= 0:
		interval = w.cfg.PollInterval
	case depth < w.cfg.DepthNormalThreshold:
		interval = w.cfg.PollInterval / 2
	case depth < w.cfg.DepthBurstThreshold:
		interval = w.cfg.MinPollInterval * 2
	default:
		interval = w.cfg.MinPollInterval
	}

	if interval < w.cfg.MinPollInterval {
		interval = w.cfg.MinPollInterval
	}
	if interval > w.cfg.MaxPollInterval {
		interval = w.cfg.MaxPollInterval
	}
	return interval
}

// Run polls the queue until ctx is cancelled, landing one branch per
// cycle so base-branch state stays deterministic between merges.
func (w *Worker) Run(ctx context.Context) {
	slog.Info("merge queue worker started",
		"poll_interval", w.cfg.PollInterval, "adaptive", w.cfg.Adaptive)

	for {
		select {
		case <-ctx.Done():
			slog.Info("merge queue worker stopped")
			return
		case <-time.After(w.ComputeInterval(w.queue.Depth())):
		}
		w.ProcessNext(ctx)
	}
}

// ProcessNext lands the next ready branch, if any. Failures that can
// still succeed later are requeued with backoff; dead ends are dropped.
func (w *Worker) ProcessNext(ctx context.Context) {
	item := w.queue.Next()
	if item == nil {
		return
	}

	res, err := w.resolver.AttemptMerge(ctx, item.Branch, item.PRNumber)
	if err != nil {
		w.retryOrDrop(item, err.Error())
		return
	}

	if res.Success {
		w.queue.RecordLanded()
		return
	}

	if res.Fatal() {
		slog.Warn("dropping branch from merge queue",
			"branch", item.Branch, "reason", res.Error)
		w.queue.RecordFailed()
		return
	}
	w.retryOrDrop(item, res.Error)
}

func (w *Worker) retryOrDrop(item *Item, cause string) {
	if item.Attempts+1 >= w.cfg.MaxItemRetries {
		slog.Warn("branch exhausted queue retries",
			"branch", item.Branch, "attempts", item.Attempts+1, "error", cause)
		w.queue.RecordFailed()
		return
	}
	w.queue.Requeue(item, cause)
	slog.Info("requeued branch", "branch", item.Branch,
		"attempts", item.Attempts, "error", cause)
}
