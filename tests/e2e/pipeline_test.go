package e2e

import (
	"context"
	"testing"
	"time"

	"github.com/forgeflow/autoland/internal/control"
	"github.com/forgeflow/autoland/internal/core/config"
	"github.com/forgeflow/autoland/internal/core/domain"
	"github.com/forgeflow/autoland/internal/infra/hosting/memory"
	"github.com/forgeflow/autoland/internal/landing/merge"
	"github.com/forgeflow/autoland/internal/landing/queue"
	"github.com/forgeflow/autoland/internal/resilience/health"
	"github.com/forgeflow/autoland/internal/resilience/retry"
)

// pipelineConfig shrinks every interval so the worker drains the queue
// within the test deadline.
func pipelineConfig() *config.AppConfig {
	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Queue = queue.Config{
		PollInterval:    20 * time.Millisecond,
		MinPollInterval: 5 * time.Millisecond,
		MaxPollInterval: 40 * time.Millisecond,
		Adaptive:        true,
		MaxItemRetries:  2,
		Backoff: retry.Config{
			MaxRetries: 2,
			BaseDelay:  time.Millisecond,
			MaxDelay:   5 * time.Millisecond,
			Multiplier: 2,
		},
	}
	return cfg
}

func TestLandingPipeline(t *testing.T) {
	host := memory.NewHost()
	cleanPR := host.SeedPR("autoland/add-rate-limit", "main", "Add rate limiting to API", 0)
	conflictedPR := host.SeedPR("autoland/session-refactor", "main", "Refactor session storage", 1)
	host.SeedBranch("autoland/orphan") // branch without a PR
	host.SeedIssue(domain.Issue{
		Number: 7,
		Title:  "API lacks rate limiting",
		Body:   "Affected paths:\n- `api/middleware.go`",
		State:  domain.StateOpen,
	})

	app, err := control.New(pipelineConfig(), control.Hosting{PullRequests: host, Branches: host})
	if err != nil {
		t.Fatalf("Failed to create pilot: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := app.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Plan a batch against the open issues before landing anything.
	plan := app.PlanTasks([]domain.DiscoveredTask{
		{
			Title:               "Add rate limiting to API",
			Priority:            domain.PriorityHigh,
			EstimatedComplexity: domain.ComplexityModerate,
			AffectedPaths:       []string{"api/middleware.go"},
		},
		{
			Title:               "Refactor session storage",
			Priority:            domain.PriorityLow,
			EstimatedComplexity: domain.ComplexityComplex,
			AffectedPaths:       []string{"sessions/store.go"},
		},
	}, host.OpenIssues())

	if len(plan.Tasks) != 2 {
		t.Fatalf("plan has %d tasks, want 2", len(plan.Tasks))
	}
	if plan.Tasks[0].Title != "Add rate limiting to API" {
		t.Errorf("first planned task = %q, want the high-priority one", plan.Tasks[0].Title)
	}
	if len(plan.Tasks[0].RelatedIssues) == 0 {
		t.Error("rate-limit task not linked to issue #7")
	}

	// Submit all three branches and let the worker drain the queue.
	enqueued := app.SubmitBranches([]merge.BranchRequest{
		{Branch: "autoland/add-rate-limit"},
		{Branch: "autoland/session-refactor"},
		{Branch: "autoland/orphan"},
	})
	if enqueued != 3 {
		t.Fatalf("enqueued %d branches, want 3", enqueued)
	}

	deadline := time.After(5 * time.Second)
	for {
		stats := app.Queue().Stats()
		if stats.Landed == 2 && stats.Failed == 1 && stats.Depth == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("queue never drained: %+v", app.Queue().Stats())
		case <-time.After(10 * time.Millisecond):
		}
	}

	// Both PRs must be merged on the host, and the landed head branches
	// cleaned up.
	for _, pr := range []int{cleanPR.Number, conflictedPR.Number} {
		got, err := host.GetPR(ctx, pr)
		if err != nil {
			t.Fatalf("GetPR(%d) failed: %v", pr, err)
		}
		if got == nil || !got.Merged {
			t.Errorf("PR %d not merged: %+v", pr, got)
		}
	}
	if exists, _ := host.BranchExists(ctx, "autoland/add-rate-limit"); exists {
		t.Error("landed branch not deleted")
	}

	// The dropped orphan shows up as a permanent failure in health.
	report := app.Monitor().CheckHealth(ctx)
	if report.Queue.Landed != 2 || report.Queue.Failed != 1 {
		t.Errorf("health queue = %+v, want landed 2 failed 1", report.Queue)
	}
	if report.SystemStatus != health.StatusDegraded {
		t.Errorf("system status = %s, want degraded after a permanent failure", report.SystemStatus)
	}

	cancel()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}

func TestSequentialLandingAdvancesBase(t *testing.T) {
	host := memory.NewHost()
	first := host.SeedPR("autoland/first", "main", "First change", 0)
	second := host.SeedPR("autoland/second", "main", "Second change", 0)

	app, err := control.New(pipelineConfig(), control.Hosting{PullRequests: host, Branches: host})
	if err != nil {
		t.Fatalf("Failed to create pilot: %v", err)
	}

	results := app.LandBranches(context.Background(), []merge.BranchRequest{
		{Branch: "autoland/first"},
		{Branch: "autoland/second"},
	})

	for _, branch := range []string{"autoland/first", "autoland/second"} {
		if res := results[branch]; !res.Merged {
			t.Errorf("branch %s not merged: %+v", branch, res)
		}
	}

	// Each merge moved the base branch to a fresh commit.
	base, err := host.GetBranch(context.Background(), "main")
	if err != nil {
		t.Fatalf("GetBranch failed: %v", err)
	}
	if base.SHA == first.Base.SHA || base.SHA == second.Base.SHA {
		t.Error("base branch SHA did not advance after merges")
	}
	if results["autoland/first"].SHA == results["autoland/second"].SHA {
		t.Error("both merges reported the same SHA")
	}
}
