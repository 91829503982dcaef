// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Redis (queues, player state, control plane)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Ingestion batcher
	BatchSize    int
	BatchTimeout time.Duration

	// Scoring engine
	ModelPath   string
	ScoreEveryN int
	BatchWindow time.Duration

	// Feature store
	StateTTL time.Duration
}

// Defaults
const (
	DefaultPort         = "8090"
	DefaultEnv          = "development"
	DefaultLogLevel     = "info"
	DefaultRedisAddr    = "localhost:6379"
	DefaultBatchSize    = 50
	DefaultBatchTimeout = 500 * time.Millisecond
	DefaultModelPath    = "models/churn_v1.json"
	DefaultScoreEveryN  = 10
	DefaultBatchWindow  = 50 * time.Millisecond
	DefaultStateTTL     = 24 * time.Hour
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", DefaultPort),
		Env:           getEnv("ENV", DefaultEnv),
		LogLevel:      getEnv("LOG_LEVEL", DefaultLogLevel),
		RedisAddr:     getEnv("REDIS_ADDR", DefaultRedisAddr),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       int(getEnvInt64("REDIS_DB", 0)),
		DatabaseURL:   os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		BatchSize:     int(getEnvInt64("BATCH_SIZE", DefaultBatchSize)),
		BatchTimeout:  getEnvDuration("BATCH_TIMEOUT_MS", DefaultBatchTimeout),
		ModelPath:     getEnv("MODEL_PATH", DefaultModelPath),
		ScoreEveryN:   int(getEnvInt64("SCORE_EVERY_N_BETS", DefaultScoreEveryN)),
		BatchWindow:   getEnvDuration("BATCH_WINDOW_MS", DefaultBatchWindow),
		StateTTL:      getEnvDuration("STATE_TTL_MS", DefaultStateTTL),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all configuration values are usable
func (c *Config) Validate() error {
	if c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("BATCH_SIZE must be at least 1, got %d", c.BatchSize)
	}
	if c.BatchTimeout <= 0 {
		return fmt.Errorf("BATCH_TIMEOUT_MS must be positive")
	}
	if c.ScoreEveryN < 1 {
		return fmt.Errorf("SCORE_EVERY_N_BETS must be at least 1, got %d", c.ScoreEveryN)
	}
	if c.BatchWindow <= 0 {
		return fmt.Errorf("BATCH_WINDOW_MS must be positive")
	}
	if c.ModelPath == "" {
		return fmt.Errorf("MODEL_PATH is required")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvDuration reads a millisecond count from the environment.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if ms, err := strconv.ParseInt(value, 10, 64); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}
