package retry

import "time"

// Config defines backoff and timeout behavior for a retried operation.
type Config struct {
	// MaxRetries is the number of retries after the first attempt, so
	// MaxRetries=2 allows at most 3 attempts in total.
	MaxRetries int `yaml:"max_retries"`

	BaseDelay  time.Duration `yaml:"base_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
	Multiplier float64       `yaml:"multiplier"`

	JitterEnabled bool    `yaml:"jitter_enabled"`
	JitterFactor  float64 `yaml:"jitter_factor"`

	// ProgressiveTimeout grows the per-attempt timeout with each retry.
	ProgressiveTimeout    bool          `yaml:"progressive_timeout"`
	InitialTimeout        time.Duration `yaml:"initial_timeout"`
	TimeoutIncreaseFactor float64       `yaml:"timeout_increase_factor"`
	MaxTimeout            time.Duration `yaml:"max_timeout"`
}

// DefaultJitterFactor bounds the uniform jitter applied to backoff delays.
const DefaultJitterFactor = 0.1

// Presets for the dependency classes the system talks to.
var (
	// DefaultConfig suits generic API calls.
	DefaultConfig = Config{
		MaxRetries:            3,
		BaseDelay:             time.Second,
		MaxDelay:              30 * time.Second,
		Multiplier:            2,
		JitterEnabled:         true,
		JitterFactor:          DefaultJitterFactor,
		InitialTimeout:        30 * time.Second,
		TimeoutIncreaseFactor: 1.5,
		MaxTimeout:            2 * time.Minute,
	}

	// NetworkConfig retries more aggressively with shorter delays.
	NetworkConfig = Config{
		MaxRetries:            5,
		BaseDelay:             500 * time.Millisecond,
		MaxDelay:              15 * time.Second,
		Multiplier:            2,
		JitterEnabled:         true,
		JitterFactor:          DefaultJitterFactor,
		InitialTimeout:        10 * time.Second,
		TimeoutIncreaseFactor: 1.5,
		MaxTimeout:            time.Minute,
	}

	// RateLimitedConfig backs off far enough for quota windows to reset.
	RateLimitedConfig = Config{
		MaxRetries:            4,
		BaseDelay:             5 * time.Second,
		MaxDelay:              2 * time.Minute,
		Multiplier:            2,
		JitterEnabled:         true,
		JitterFactor:          0.2,
		InitialTimeout:        30 * time.Second,
		TimeoutIncreaseFactor: 1.5,
		MaxTimeout:            2 * time.Minute,
	}

	// ReasoningConfig suits long-running reasoning-service calls, where a
	// retried attempt deserves a longer timeout than the one that failed.
	ReasoningConfig = Config{
		MaxRetries:            2,
		BaseDelay:             2 * time.Second,
		MaxDelay:              time.Minute,
		Multiplier:            2,
		JitterEnabled:         true,
		JitterFactor:          DefaultJitterFactor,
		ProgressiveTimeout:    true,
		InitialTimeout:        time.Minute,
		TimeoutIncreaseFactor: 1.5,
		MaxTimeout:            5 * time.Minute,
	}

	// DatabaseConfig retries fast: connection-pool hiccups clear quickly.
	DatabaseConfig = Config{
		MaxRetries:            3,
		BaseDelay:             200 * time.Millisecond,
		MaxDelay:              5 * time.Second,
		Multiplier:            2,
		JitterEnabled:         true,
		JitterFactor:          DefaultJitterFactor,
		InitialTimeout:        5 * time.Second,
		TimeoutIncreaseFactor: 1.5,
		MaxTimeout:            15 * time.Second,
	}
)
