package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Database DatabaseConfig
	Worker   WorkerConfig
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// WorkerConfig holds configuration for the recalculation worker.
type WorkerConfig struct {
	// RecalculationSchedule is a cron expression for the nightly
	// recalculation of unsubmitted dividends.
	RecalculationSchedule string
	// RecalculateOnStart triggers one recalculation run at startup.
	RecalculateOnStart bool
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/reclaim.db"),
		},
		Worker: WorkerConfig{
			RecalculationSchedule: getEnv("RECALC_SCHEDULE", "0 3 * * *"),
			RecalculateOnStart:    getEnv("RECALC_ON_START", "false") == "true",
		},
	}

	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
