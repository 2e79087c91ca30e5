package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/forgeflow/autoland/internal/control"
	"github.com/forgeflow/autoland/internal/core/config"
	"github.com/forgeflow/autoland/internal/infra/hosting/memory"
)

var (
	cfgPath string
	isDebug bool
)

var rootCmd = &cobra.Command{
	Use:   "autoland",
	Short: "Autoland branch landing service",
	Long: `Autoland deduplicates machine-generated task batches and lands their
branches behind retries, circuit breakers, quota budgets and conflict handling.

The root command runs the landing service against the built-in in-memory
hosting double; real hosting integrations plug in through control.Hosting.`,
	Run: runServe,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
}

// loadConfig reads the configured file, falling back to defaults when
// it does not exist so every command runs out of the box.
func loadConfig() *config.AppConfig {
	if _, err := os.Stat(cfgPath); err != nil {
		return config.Default()
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogging(cfg *config.AppConfig) {
	slogLevel := slog.LevelInfo
	if isDebug || cfg.Logging.Level == "debug" {
		slogLevel = slog.LevelDebug
	}

	stylelog.InitDefault(&tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})
}

func runServe(cmd *cobra.Command, args []string) {
	_ = godotenv.Load()

	cfg := loadConfig()
	initLogging(cfg)

	host := memory.NewHost()
	app, err := control.New(cfg, control.Hosting{PullRequests: host, Branches: host})
	if err != nil {
		slog.Error("Failed to initialize Pilot", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := app.Start(ctx); err != nil {
		slog.Error("Failed to start Pilot", "error", err)
		os.Exit(1)
	}

	slog.Info("Autoland started", "config", cfgPath, "port", cfg.Server.Port)

	sig := <-sigChan
	slog.Info("Received signal, shutting down...", "signal", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.Stop(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Autoland stopped gracefully")
}
