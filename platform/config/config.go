// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// RedisConfig provides Redis connection settings.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// SchedulerConfig provides settings for the asynq refresh scheduler.
type SchedulerConfig interface {
	RedisConfig
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// TextGenerationConfig provides settings for the text-generation capability.
type TextGenerationConfig interface {
	GetMoonshotAPIKey() string
	GetMoonshotModel() string
	GetMoonshotBaseURL() string
	IsTextGenerationEnabled() bool
}

// InsightsConfig provides settings for the deal insights orchestrator.
type InsightsConfig interface {
	GetAIInsightsEnabled() bool
	GetInsightsFailurePolicy() string
	GetInsightsSnapshotTTL() time.Duration
	GetInsightsSnapshotStore() string
}

// SnapshotCleanupConfig provides settings for the expired snapshot sweep.
type SnapshotCleanupConfig interface {
	GetSnapshotCleanupInterval() time.Duration
	GetSnapshotRetention() time.Duration
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                   string
	DatabaseURL           string
	RedisURL              string
	RedisTLSInsecure      bool
	AsynqQueueName        string
	AsynqConcurrency      int
	MoonshotAPIKey        string
	MoonshotModel         string
	MoonshotBaseURL       string
	AIInsightsEnabled     bool
	InsightsFailurePolicy string
	InsightsSnapshotTTL   time.Duration
	InsightsSnapshotStore string
	WarmupRatePerSecond   float64

	SnapshotCleanupInterval time.Duration
	SnapshotRetention       time.Duration
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// RedisConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }
func (c *Config) IsSchedulerEnabled() bool  { return c.RedisURL != "" }

// TextGenerationConfig implementation
func (c *Config) GetMoonshotAPIKey() string     { return c.MoonshotAPIKey }
func (c *Config) GetMoonshotModel() string      { return c.MoonshotModel }
func (c *Config) GetMoonshotBaseURL() string    { return c.MoonshotBaseURL }
func (c *Config) IsTextGenerationEnabled() bool { return c.MoonshotAPIKey != "" }

// InsightsConfig implementation
func (c *Config) GetAIInsightsEnabled() bool {
	return c.AIInsightsEnabled && c.IsTextGenerationEnabled()
}
func (c *Config) GetInsightsFailurePolicy() string      { return c.InsightsFailurePolicy }
func (c *Config) GetInsightsSnapshotTTL() time.Duration { return c.InsightsSnapshotTTL }
func (c *Config) GetInsightsSnapshotStore() string      { return c.InsightsSnapshotStore }

// SnapshotCleanupConfig implementation
func (c *Config) GetSnapshotCleanupInterval() time.Duration { return c.SnapshotCleanupInterval }
func (c *Config) GetSnapshotRetention() time.Duration       { return c.SnapshotRetention }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:                   getEnv("APP_ENV", "development"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		RedisURL:              getEnv("REDIS_URL", ""),
		RedisTLSInsecure:      strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:        getEnv("ASYNQ_QUEUE", "deals"),
		AsynqConcurrency:      mustInt(getEnv("ASYNQ_CONCURRENCY", "5")),
		MoonshotAPIKey:        getEnv("MOONSHOT_API_KEY", ""),
		MoonshotModel:         getEnv("MOONSHOT_MODEL", "kimi-k2-turbo-preview"),
		MoonshotBaseURL:       getEnv("MOONSHOT_BASE_URL", "https://api.moonshot.ai/v1"),
		AIInsightsEnabled:     strings.EqualFold(getEnv("AI_INSIGHTS_ENABLED", "false"), "true"),
		InsightsFailurePolicy: strings.ToLower(strings.TrimSpace(getEnv("INSIGHTS_AI_FAILURE_POLICY", "raise"))),
		InsightsSnapshotTTL:   mustDuration(getEnv("INSIGHTS_SNAPSHOT_TTL", "30m")),
		InsightsSnapshotStore: strings.ToLower(strings.TrimSpace(getEnv("INSIGHTS_SNAPSHOT_STORE", "postgres"))),
		WarmupRatePerSecond:   mustFloat(getEnv("INSIGHTS_WARMUP_RATE", "5")),

		SnapshotCleanupInterval: mustDuration(getEnv("INSIGHTS_SNAPSHOT_CLEANUP_INTERVAL", "1h")),
		SnapshotRetention:       mustDuration(getEnv("INSIGHTS_SNAPSHOT_RETENTION", "24h")),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.InsightsFailurePolicy {
	case "raise", "fallback":
	default:
		return fmt.Errorf("INSIGHTS_AI_FAILURE_POLICY must be raise or fallback, got %q", c.InsightsFailurePolicy)
	}

	switch c.InsightsSnapshotStore {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when INSIGHTS_SNAPSHOT_STORE is postgres")
		}
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when INSIGHTS_SNAPSHOT_STORE is redis")
		}
	case "memory":
	default:
		return fmt.Errorf("INSIGHTS_SNAPSHOT_STORE must be postgres, redis or memory, got %q", c.InsightsSnapshotStore)
	}

	if c.InsightsSnapshotTTL <= 0 {
		return fmt.Errorf("INSIGHTS_SNAPSHOT_TTL must be a positive duration")
	}
	if c.SnapshotCleanupInterval <= 0 {
		return fmt.Errorf("INSIGHTS_SNAPSHOT_CLEANUP_INTERVAL must be a positive duration")
	}
	if c.SnapshotRetention <= 0 {
		return fmt.Errorf("INSIGHTS_SNAPSHOT_RETENTION must be a positive duration")
	}
	if c.WarmupRatePerSecond <= 0 {
		c.WarmupRatePerSecond = 1
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return result
}
