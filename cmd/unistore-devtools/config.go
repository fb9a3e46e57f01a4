package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/spetersoncode/unistore/retry"
	"github.com/spetersoncode/unistore/store"
)

// Config holds the server configuration loaded from environment variables.
type Config struct {
	// Server
	Port     string
	LogLevel string // debug, info, warn, error

	// Persistence
	DBPath          string
	PoliciesFile    string
	PersistInterval time.Duration
	RetryAttempts   int

	// Devtools
	HistorySize  int
	InitialState string // JSON object, optional
}

// LoadConfig loads configuration from environment variables.
// It loads a .env file if present (silent fail if not found).
func LoadConfig() (*Config, error) {
	godotenv.Load() // Load .env file if present

	cfg := &Config{
		Port:            getEnvOrDefault("UNISTORE_PORT", "8000"),
		LogLevel:        getEnvOrDefault("UNISTORE_LOG_LEVEL", "info"),
		DBPath:          getEnvOrDefault("UNISTORE_DB", "unistore.db"),
		PoliciesFile:    os.Getenv("UNISTORE_POLICIES"),
		PersistInterval: getEnvDurationOrDefault("UNISTORE_PERSIST_INTERVAL", store.DefaultPersistInterval),
		RetryAttempts:   getEnvIntOrDefault("UNISTORE_RETRY_ATTEMPTS", 3),
		HistorySize:     getEnvIntOrDefault("UNISTORE_HISTORY", 100),
		InitialState:    os.Getenv("UNISTORE_INITIAL_STATE"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}
	if c.PersistInterval <= 0 {
		return fmt.Errorf("UNISTORE_PERSIST_INTERVAL must be positive")
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("UNISTORE_RETRY_ATTEMPTS must be at least 1")
	}
	if c.HistorySize <= 0 {
		return fmt.Errorf("UNISTORE_HISTORY must be positive")
	}
	if c.PoliciesFile != "" && c.DBPath == "" {
		return fmt.Errorf("UNISTORE_DB is required when UNISTORE_POLICIES is set")
	}
	return nil
}

// Retry returns the backoff used for database calls.
func (c *Config) Retry() retry.Config {
	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = c.RetryAttempts
	return cfg
}

// LoadPolicies reads the policy file, if one is configured.
// A nil result disables persistence.
func (c *Config) LoadPolicies() (store.Policies, error) {
	if c.PoliciesFile == "" {
		return nil, nil
	}
	f, err := os.Open(c.PoliciesFile)
	if err != nil {
		return nil, fmt.Errorf("open policies: %w", err)
	}
	defer f.Close()
	return store.LoadPolicies(f)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
