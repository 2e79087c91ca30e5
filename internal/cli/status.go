package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/forgeflow/autoland/internal/resilience/health"
)

var statusAddr string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the health of a running autoland instance",
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "http://localhost:8080", "base URL of the running instance")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(statusAddr + "/health/detailed")
	if err != nil {
		slog.Error("Failed to reach instance", "addr", statusAddr, "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var report health.Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		slog.Error("Failed to decode health report", "error", err)
		os.Exit(1)
	}

	fmt.Printf("System: %s\n\n", report.SystemStatus)

	names := make([]string, 0, len(report.Dependencies))
	for name := range report.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "DEPENDENCY\tSTATUS\tCIRCUIT\tFAILURES\tQUOTA%\tLAST ERROR")
	for _, name := range names {
		dep := report.Dependencies[name]
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.1f\t%s\n",
			dep.Name, dep.Status, dep.CircuitState, dep.ConsecutiveFailures,
			dep.QuotaUsedPercent, dep.LastError)
	}
	_ = w.Flush()

	fmt.Printf("\nQueue: %s (depth %d, landed %d, failed %d, requeued %d)\n",
		report.Queue.Status, report.Queue.Depth, report.Queue.Landed,
		report.Queue.Failed, report.Queue.Requeued)
}
