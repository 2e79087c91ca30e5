package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/forgeflow/autoland/internal/control"
	"github.com/forgeflow/autoland/internal/core/domain"
	"github.com/forgeflow/autoland/internal/infra/hosting/memory"
	"github.com/forgeflow/autoland/internal/landing/merge"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the full landing pipeline against the in-memory host",
	Long: `Demo seeds the in-memory hosting double with branches, pull requests
and open issues, plans a small task batch, lands the branches in order and
prints the outcome together with circuit breaker health.`,
	Run: runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	initLogging(cfg)

	// Seed the host: one clean PR, one that conflicts until its branch
	// is refreshed from base, and an open issue overlapping a task.
	host := memory.NewHost()
	host.SeedPR("autoland/fix-login-timeout", "main", "Fix login timeout handling", 0)
	host.SeedPR("autoland/harden-webhook-retries", "main", "Harden webhook retry loop", 1)
	host.SeedIssue(domain.Issue{
		Number: 41,
		Title:  "Login requests time out under load",
		Body:   "Affected paths:\n- `auth/login.go`\n- `auth/session.go`",
		State:  domain.StateOpen,
	})

	app, err := control.New(cfg, control.Hosting{PullRequests: host, Branches: host})
	if err != nil {
		slog.Error("Failed to initialize Pilot", "error", err)
		os.Exit(1)
	}

	tasks := []domain.DiscoveredTask{
		{
			Title:               "Fix login timeout handling",
			Priority:            domain.PriorityHigh,
			Category:            domain.CategoryBugfix,
			EstimatedComplexity: domain.ComplexityModerate,
			AffectedPaths:       []string{"auth/login.go"},
		},
		{
			Title:               "Harden webhook retry loop",
			Priority:            domain.PriorityMedium,
			Category:            domain.CategoryBugfix,
			EstimatedComplexity: domain.ComplexitySimple,
			AffectedPaths:       []string{"webhooks/retry.go", "go.mod"},
		},
		{
			Title:               "Fix login timeout handling in auth",
			Priority:            domain.PriorityLow,
			Category:            domain.CategoryBugfix,
			EstimatedComplexity: domain.ComplexitySimple,
			AffectedPaths:       []string{"auth/login.go"},
		},
	}

	plan := app.PlanTasks(tasks, host.OpenIssues())

	fmt.Printf("Plan: %d tasks, %d duplicates, %d high risk, %d parallel safe\n\n",
		len(plan.Tasks), plan.Duplicates, plan.HighRisk, plan.ParallelSafe)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "TITLE\tPRIORITY\tRISK\tDUPLICATE")
	for _, task := range plan.Tasks {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.2f\t%v\n",
			task.Title, task.Priority, task.ConflictPrediction.RiskScore, task.IsPotentialDuplicate)
	}
	_ = w.Flush()

	results := app.LandBranches(context.Background(), []merge.BranchRequest{
		{Branch: "autoland/fix-login-timeout"},
		{Branch: "autoland/harden-webhook-retries"},
		{Branch: "autoland/nonexistent"},
	})

	fmt.Println("\nLanding results:")
	branches := make([]string, 0, len(results))
	for branch := range results {
		branches = append(branches, branch)
	}
	sort.Strings(branches)
	for _, branch := range branches {
		res := results[branch]
		switch {
		case res.Merged:
			fmt.Printf("  %s: merged as %s after %d attempt(s)\n", branch, res.SHA, res.Attempts)
		default:
			fmt.Printf("  %s: %s\n", branch, res.Error)
		}
	}

	fmt.Println("\nBreaker health:")
	for name, h := range app.Registry().AllHealth() {
		fmt.Printf("  %s: %s (failures %d)\n", name, h.State, h.TotalFailures)
	}
}
