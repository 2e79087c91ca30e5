package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/forgeflow/autoland/internal/core/config"
	"github.com/forgeflow/autoland/internal/core/domain"
	"github.com/forgeflow/autoland/internal/core/fault"
	"github.com/forgeflow/autoland/internal/infra/hosting"
	"github.com/forgeflow/autoland/internal/landing/dedup"
	"github.com/forgeflow/autoland/internal/landing/merge"
	"github.com/forgeflow/autoland/internal/landing/queue"
	"github.com/forgeflow/autoland/internal/resilience"
	"github.com/forgeflow/autoland/internal/resilience/breaker"
	"github.com/forgeflow/autoland/internal/resilience/health"
	"github.com/forgeflow/autoland/internal/resilience/metrics"
	"github.com/forgeflow/autoland/internal/resilience/retry"

	"golang.org/x/sync/errgroup"
)

// Hosting bundles the injected hosting-service collaborators.
type Hosting struct {
	PullRequests hosting.PullRequestManager
	Branches     hosting.BranchManager
}

// Pilot is the main application struct that manages the landing lifecycle.
type Pilot struct {
	cfg          *config.AppConfig
	registry     *breaker.Registry
	queryBreaker *breaker.Breaker
	runBreaker   *breaker.Breaker
	tracker      resilience.Tracker
	dedup        *dedup.Deduplicator
	resolver     *merge.Resolver
	queue        *queue.Queue
	worker       *queue.Worker
	healthMon    *health.Monitor
	healthServer *health.Server
	log          *slog.Logger
}

// Dependency names registered with the breaker registry.
const (
	HostingDependency = "github"
)

// New creates a new Pilot instance with all dependencies initialized.
func New(cfg *config.AppConfig, host Hosting) (*Pilot, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if host.PullRequests == nil || host.Branches == nil {
		return nil, fmt.Errorf("hosting collaborators are required")
	}

	// 1. Initialize Circuit Breakers
	registry := breaker.NewRegistry()
	queryBreaker := registry.Get(breaker.ReasonerQueryBreaker, cfg.Breakers.Query)
	runBreaker := registry.Get(breaker.ReasonerRunBreaker, cfg.Breakers.Run)
	registry.Get(HostingDependency, cfg.Breakers.Hosting)

	// 2. Initialize Quota Tracker
	allocation := cfg.Quota.Allocation
	if len(allocation) == 0 {
		allocation = map[string]float64{
			breaker.ReasonerQueryBreaker: 0.7,
			breaker.ReasonerRunBreaker:   0.3,
		}
	}
	tracker := resilience.NewTracker(cfg.Quota.DailyLimit, allocation)

	// 3. Initialize Deduplicator
	deduplicator := dedup.New(cfg.Dedup)

	// 4. Initialize Merge Resolver
	resolver := merge.NewResolver(host.PullRequests, host.Branches, cfg.Merge)

	// 5. Initialize Merge Queue and Worker
	q := queue.New(cfg.Queue.Backoff)
	worker := queue.NewWorker(q, resolver, cfg.Queue)

	// 6. Initialize Health Monitor and Server
	healthMon := health.NewMonitor(registry, tracker, q)
	healthServer := health.NewServer(healthMon, registry, cfg.Server.Port)

	return &Pilot{
		cfg:          cfg,
		registry:     registry,
		queryBreaker: queryBreaker,
		runBreaker:   runBreaker,
		tracker:      tracker,
		dedup:        deduplicator,
		resolver:     resolver,
		queue:        q,
		worker:       worker,
		healthMon:    healthMon,
		healthServer: healthServer,
		log:          slog.Default(),
	}, nil
}

// Registry exposes the breaker registry for operational surfaces.
func (p *Pilot) Registry() *breaker.Registry { return p.registry }

// Tracker exposes the quota tracker.
func (p *Pilot) Tracker() resilience.Tracker { return p.tracker }

// Queue exposes the merge queue.
func (p *Pilot) Queue() *queue.Queue { return p.queue }

// Monitor exposes the health monitor.
func (p *Pilot) Monitor() *health.Monitor { return p.healthMon }

// Start starts the pilot and all its components.
func (p *Pilot) Start(ctx context.Context) error {
	// Start Health Server
	go func() {
		if err := p.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.log.Error("Health server failed", "error", err)
		}
	}()

	// Start Merge Queue Worker
	p.log.Info("Starting merge queue worker")
	go p.worker.Run(ctx)

	// Start Metrics Updater
	go p.runMetricsUpdater(ctx)

	p.log.Info("Pilot started", "port", p.cfg.Server.Port)
	return nil
}

// Stop stops the pilot.
func (p *Pilot) Stop(ctx context.Context) error {
	p.log.Info("Stopping Pilot...")

	// The worker and metrics updater stop with the Start context; the
	// health server needs an explicit shutdown.
	return p.healthServer.Stop(ctx)
}

// Plan is the outcome of deduplicating one discovered batch.
type Plan struct {
	Tasks        []dedup.DeduplicatedTask `json:"tasks"`
	Duplicates   int                      `json:"duplicates"`
	HighRisk     int                      `json:"high_risk"`
	ParallelSafe int                      `json:"parallel_safe"`
}

// PlanTasks runs the deduplication pipeline over a discovered batch,
// returning tasks in execution order with a summary.
func (p *Pilot) PlanTasks(tasks []domain.DiscoveredTask, issues []domain.Issue) Plan {
	annotated := p.dedup.DeduplicateTasks(tasks, issues)

	plan := Plan{
		Tasks:        annotated,
		ParallelSafe: len(p.dedup.ParallelSafeTasks(annotated)),
	}
	for _, t := range annotated {
		if t.IsPotentialDuplicate {
			plan.Duplicates++
		}
		if t.ConflictPrediction.HasHighConflictRisk {
			plan.HighRisk++
		}
	}

	p.log.Info("Planned task batch",
		"tasks", len(annotated),
		"duplicates", plan.Duplicates,
		"high_risk", plan.HighRisk,
		"parallel_safe", plan.ParallelSafe)
	return plan
}

// SubmitBranches enqueues branches for the background worker to land.
// Branches already queued are skipped; returns the number enqueued.
func (p *Pilot) SubmitBranches(requests []merge.BranchRequest) int {
	enqueued := 0
	for _, req := range requests {
		if item := p.queue.Enqueue(req.Branch, req.PRNumber); item != nil {
			enqueued++
		}
	}
	p.log.Info("Submitted branches", "requested", len(requests), "enqueued", enqueued)
	return enqueued
}

// LandBranches lands branches synchronously in the given order,
// bypassing the queue.
func (p *Pilot) LandBranches(ctx context.Context, requests []merge.BranchRequest) map[string]*merge.Result {
	return p.resolver.MergeSequentially(ctx, requests)
}

// ExecuteParallelSafe runs fn over the parallel-safe subset of tasks
// with bounded concurrency, returning the first error.
func (p *Pilot) ExecuteParallelSafe(
	ctx context.Context,
	tasks []dedup.DeduplicatedTask,
	fn func(context.Context, dedup.DeduplicatedTask) error,
	maxConcurrent int,
) error {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	safe := p.dedup.ParallelSafeTasks(tasks)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	for _, task := range safe {
		g.Go(func() error {
			return fn(gctx, task)
		})
	}
	return g.Wait()
}

// QueryReasoner runs one reasoning-service query through the full
// resilience stack: quota gate, throttle delay, circuit breaker,
// classified retries.
func (p *Pilot) QueryReasoner(ctx context.Context, fn func(context.Context) (string, error)) (string, error) {
	return p.reasonerCall(ctx, p.queryBreaker, "query", fn)
}

// RunReasoner is QueryReasoner for the execution access pattern, which
// fails over to its own breaker and quota bucket.
func (p *Pilot) RunReasoner(ctx context.Context, fn func(context.Context) (string, error)) (string, error) {
	return p.reasonerCall(ctx, p.runBreaker, "run", fn)
}

func (p *Pilot) reasonerCall(
	ctx context.Context,
	b *breaker.Breaker,
	operation string,
	fn func(context.Context) (string, error),
) (string, error) {
	dep := b.Name()

	if !p.tracker.CanCall(dep) {
		usage := p.tracker.Usage(dep)
		return "", fault.Claude(fault.CodeRateLimit, "daily call budget exhausted").
			WithContext("dependency", dep).
			WithContext("total_calls", usage.TotalCalls).
			WithRetryAfter(time.Until(usage.NextResetAt))
	}

	if delay := p.tracker.ThrottleDelay(dep); delay > 0 {
		p.log.Debug("Throttling reasoner call", "dependency", dep, "delay", delay)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}

	p.tracker.Record(dep, operation)
	return resilience.CallWithRetry(ctx, b, retry.ReasoningConfig.MaxRetries, fn)
}

// runMetricsUpdater keeps the queue depth gauge and the cached health
// report fresh while the pilot runs.
func (p *Pilot) runMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.QueueDepth.Set(float64(p.queue.Depth()))
			report := p.healthMon.CheckHealth(ctx)
			p.log.Debug("Updated health report", "status", report.SystemStatus)
		}
	}
}
