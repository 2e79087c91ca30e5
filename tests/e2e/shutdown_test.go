package e2e

import (
	"context"
	"testing"
	"time"

	"github.com/forgeflow/autoland/internal/control"
	"github.com/forgeflow/autoland/internal/infra/hosting/memory"
	"github.com/forgeflow/autoland/internal/landing/merge"
)

func TestGracefulShutdown(t *testing.T) {
	host := memory.NewHost()
	host.SeedPR("autoland/in-flight", "main", "In-flight change", 0)

	app, err := control.New(pipelineConfig(), control.Hosting{PullRequests: host, Branches: host})
	if err != nil {
		t.Fatalf("Failed to create pilot: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	if err := app.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Give the worker something to chew on, then let it run briefly.
	app.SubmitBranches([]merge.BranchRequest{{Branch: "autoland/in-flight"}})
	time.Sleep(100 * time.Millisecond)

	// Trigger shutdown
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()

	if err := app.Stop(stopCtx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}

	// A second stop must not panic or hang on the closed server.
	if err := app.Stop(stopCtx); err != nil {
		t.Errorf("second Stop failed: %v", err)
	}
}
