package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/forgeflow/autoland/internal/core/domain"
	"github.com/forgeflow/autoland/internal/landing/dedup"
)

var planInput string

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Deduplicate and order a task batch offline",
	Long: `Plan runs the deduplication pipeline over a YAML batch of discovered
tasks and open issues, printing the conflict-safe execution order with
duplicates and risks annotated. Nothing is submitted anywhere.`,
	Run: runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planInput, "input", "", "YAML file with tasks and issues (required)")
	_ = planCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(planCmd)
}

// planBatch is the YAML input shape for the plan command.
type planBatch struct {
	Tasks  []domain.DiscoveredTask `yaml:"tasks"`
	Issues []domain.Issue          `yaml:"issues"`
}

func runPlan(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	initLogging(cfg)

	data, err := os.ReadFile(planInput)
	if err != nil {
		slog.Error("Failed to read input batch", "error", err)
		os.Exit(1)
	}

	var batch planBatch
	if err := yaml.Unmarshal(data, &batch); err != nil {
		slog.Error("Failed to parse input batch", "error", err)
		os.Exit(1)
	}

	d := dedup.New(cfg.Dedup)
	ordered := d.ConflictSafeOrder(d.DeduplicateTasks(batch.Tasks, batch.Issues))

	fmt.Printf("Planned %d tasks (%d issues considered)\n\n", len(ordered), len(batch.Issues))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "#\tTITLE\tPRIORITY\tRISK\tDUPLICATE\tISSUES")
	for i, task := range ordered {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%v\t%s\n",
			i+1, task.Title, task.Priority, task.ConflictPrediction.RiskScore,
			task.IsPotentialDuplicate, joinInts(task.RelatedIssues))
	}
	_ = w.Flush()

	for _, task := range ordered {
		for _, reason := range task.ConflictPrediction.Reasons {
			fmt.Printf("note: %s: %s\n", task.Title, reason)
		}
	}
}

func joinInts(nums []int) string {
	if len(nums) == 0 {
		return "-"
	}
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = "#" + strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
