package config

import (
	"github.com/forgeflow/autoland/internal/landing/dedup"
	"github.com/forgeflow/autoland/internal/landing/merge"
	"github.com/forgeflow/autoland/internal/landing/queue"
	"github.com/forgeflow/autoland/internal/resilience/breaker"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Merge    merge.Config   `yaml:"merge"`
	Queue    queue.Config   `yaml:"queue"`
	Dedup    dedup.Config   `yaml:"dedup"`
	Breakers BreakersConfig `yaml:"breakers"`
	Quota    QuotaConfig    `yaml:"quota"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// BreakersConfig tunes the reasoning-service circuit breakers and the
// hosting-provider breaker. Zero-valued fields fall back to breaker defaults.
type BreakersConfig struct {
	Query   breaker.Config `yaml:"query"`
	Run     breaker.Config `yaml:"run"`
	Hosting breaker.Config `yaml:"hosting"`
}

// QuotaConfig holds the daily reasoning-service call budget.
type QuotaConfig struct {
	DailyLimit int `yaml:"daily_limit"`
	// Allocation maps dependency name to its fraction of the daily limit.
	Allocation map[string]float64 `yaml:"allocation"`
}
