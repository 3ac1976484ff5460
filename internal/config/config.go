// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration. All values are fixed at process
// start; there is no runtime reconfiguration surface.
type Config struct {
	DataDir  string // Base directory for the cache database (always absolute)
	Port     int
	LogLevel string
	DevMode  bool

	// Outbound identity for upstream requests
	UserAgent string

	// Upstream endpoints. Overridable so tests and alternative providers
	// can point the proxy at a different host.
	AuthBootstrapURL string // unauthenticated session-bootstrap endpoint
	AuthCrumbURL     string // short-lived token endpoint
	QueryBaseURL     string // base URL for all data endpoints

	// Retry policy for throttled upstream calls
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration

	// Minimum interval between outbound upstream dispatches
	RateMinInterval time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory, resolve to absolute path and ensure it exists
	dataDir := getEnv("QUOTEDECK_DATA_DIR", "./data")

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DevMode:  getEnvAsBool("DEV_MODE", false),

		UserAgent: getEnv("UPSTREAM_USER_AGENT",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"),

		AuthBootstrapURL: getEnv("UPSTREAM_AUTH_URL", "https://fc.yahoo.com"),
		AuthCrumbURL:     getEnv("UPSTREAM_CRUMB_URL", "https://query1.finance.yahoo.com/v1/test/getcrumb"),
		QueryBaseURL:     getEnv("UPSTREAM_QUERY_URL", "https://query1.finance.yahoo.com"),

		RetryMaxAttempts: getEnvAsInt("RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:   getEnvAsDuration("RETRY_BASE_DELAY_MS", 500*time.Millisecond),
		RetryMaxDelay:    getEnvAsDuration("RETRY_MAX_DELAY_MS", 10*time.Second),

		RateMinInterval: getEnvAsDuration("RATE_MIN_INTERVAL_MS", 300*time.Millisecond),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present and sane
func (c *Config) Validate() error {
	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be >= 1, got %d", c.RetryMaxAttempts)
	}
	if c.RetryBaseDelay <= 0 {
		return fmt.Errorf("RETRY_BASE_DELAY_MS must be positive")
	}
	if c.RetryMaxDelay < c.RetryBaseDelay {
		return fmt.Errorf("RETRY_MAX_DELAY_MS must be >= RETRY_BASE_DELAY_MS")
	}
	if c.RateMinInterval <= 0 {
		return fmt.Errorf("RATE_MIN_INTERVAL_MS must be positive")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvAsDuration reads a millisecond count from the environment.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if ms, err := strconv.Atoi(value); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}
