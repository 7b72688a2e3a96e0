// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	Port     int
	LogLevel string
	DevMode  bool

	// RunSchedule is the cron expression for the periodic aggregation run.
	RunSchedule string

	// MinRiskReward is the default guardrail floor applied when an asset
	// does not carry its own minimum.
	MinRiskReward float64

	// RetentionDays bounds the decision history kept in the database.
	// Zero disables pruning.
	RetentionDays int

	Archive *ArchiveConfig
}

// ArchiveConfig holds S3-compatible snapshot archive configuration.
// Works with AWS S3 and Cloudflare R2 (set Endpoint for R2).
type ArchiveConfig struct {
	Enabled   bool
	Endpoint  string // Empty for AWS S3, custom endpoint for R2
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Prefix    string // Key prefix inside the bucket

	// RetentionDays bounds snapshot age in the bucket, zero keeps everything.
	// MinKeep snapshots always survive rotation regardless of age.
	RetentionDays int
	MinKeep       int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("CONFLUENCE_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:       absDataDir,
		Port:          getEnvAsInt("CONFLUENCE_PORT", 8010),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DevMode:       getEnvAsBool("DEV_MODE", false),
		RunSchedule:   getEnv("RUN_SCHEDULE", "*/15 * * * *"),
		MinRiskReward: getEnvAsFloat("MIN_RISK_REWARD", 1.5),
		RetentionDays: getEnvAsInt("RETENTION_DAYS", 90),
		Archive:       loadArchiveConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.MinRiskReward < 0 {
		return fmt.Errorf("MIN_RISK_REWARD must not be negative, got %v", c.MinRiskReward)
	}
	if c.Archive != nil && c.Archive.Enabled {
		if c.Archive.Bucket == "" {
			return fmt.Errorf("ARCHIVE_BUCKET is required when the archive is enabled")
		}
		if c.Archive.AccessKey == "" || c.Archive.SecretKey == "" {
			return fmt.Errorf("ARCHIVE_ACCESS_KEY and ARCHIVE_SECRET_KEY are required when the archive is enabled")
		}
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func loadArchiveConfig() *ArchiveConfig {
	return &ArchiveConfig{
		Enabled:       getEnvAsBool("ARCHIVE_ENABLED", false),
		Endpoint:      getEnv("ARCHIVE_ENDPOINT", ""),
		Region:        getEnv("ARCHIVE_REGION", "auto"),
		Bucket:        getEnv("ARCHIVE_BUCKET", ""),
		AccessKey:     getEnv("ARCHIVE_ACCESS_KEY", ""),
		SecretKey:     getEnv("ARCHIVE_SECRET_KEY", ""),
		Prefix:        getEnv("ARCHIVE_PREFIX", "runs"),
		RetentionDays: getEnvAsInt("ARCHIVE_RETENTION_DAYS", 365),
		MinKeep:       getEnvAsInt("ARCHIVE_MIN_KEEP", 10),
	}
}
