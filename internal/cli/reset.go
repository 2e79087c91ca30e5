package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	resetAddr string
	resetName string
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Force-close circuit breakers on a running instance",
	Long: `Reset clears circuit breaker state after an operator has confirmed the
underlying dependency recovered. Without --name every breaker is reset.`,
	Run: runReset,
}

func init() {
	resetCmd.Flags().StringVar(&resetAddr, "addr", "http://localhost:8080", "base URL of the running instance")
	resetCmd.Flags().StringVar(&resetName, "name", "", "reset only the named breaker")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) {
	target := resetAddr + "/breakers/reset"
	if resetName != "" {
		target += "?name=" + url.QueryEscape(resetName)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(target, "application/json", nil)
	if err != nil {
		slog.Error("Failed to reach instance", "addr", resetAddr, "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		slog.Error("Reset rejected", "status", resp.Status)
		os.Exit(1)
	}

	var body struct {
		Reset []string `json:"reset"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		slog.Error("Failed to decode response", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Reset breakers: %s\n", strings.Join(body.Reset, ", "))
}
