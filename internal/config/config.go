// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/aristath/dealdesk/internal/utils"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds application configuration
type Config struct {
	DataDir                string // Directory for the record store and backup staging (always absolute)
	LogLevel               string
	Port                   int
	DevMode                bool
	SeedDemoData           bool
	MaxInsights            int
	InsightRefreshSchedule string
	MaintenanceSchedule    string
	LiveOriginPatterns     []string // Extra origins allowed to open the live dashboard socket
	Backup                 *BackupConfig
}

// BackupConfig holds S3-compatible backup settings. Backups are disabled
// when no bucket is configured.
type BackupConfig struct {
	Bucket        string
	Endpoint      string // Empty means AWS; set for R2, MinIO and friends
	Region        string
	AccessKey     string
	SecretKey     string
	Schedule      string
	RetentionDays int
}

// Enabled reports whether a bucket is configured
func (c *BackupConfig) Enabled() bool {
	return c != nil && c.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	absDataDir, err := filepath.Abs(getEnv("DEALDESK_DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:                absDataDir,
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		Port:                   getEnvAsInt("PORT", 8080),
		DevMode:                getEnvAsBool("DEV_MODE", false),
		SeedDemoData:           getEnvAsBool("SEED_DEMO_DATA", true),
		MaxInsights:            getEnvAsInt("MAX_INSIGHTS", 5),
		InsightRefreshSchedule: getEnv("INSIGHT_REFRESH_SCHEDULE", "0 0 0 * * *"),
		MaintenanceSchedule:    getEnv("MAINTENANCE_SCHEDULE", "0 30 3 * * *"),
		LiveOriginPatterns:     getEnvAsList("LIVE_ORIGIN_PATTERNS"),
		Backup:                 loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that configured values are usable
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.MaxInsights <= 0 {
		return fmt.Errorf("MAX_INSIGHTS must be positive, got %d", c.MaxInsights)
	}

	schedules := map[string]string{
		"INSIGHT_REFRESH_SCHEDULE": c.InsightRefreshSchedule,
		"MAINTENANCE_SCHEDULE":     c.MaintenanceSchedule,
	}
	if c.Backup.Enabled() {
		schedules["BACKUP_SCHEDULE"] = c.Backup.Schedule
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for key, schedule := range schedules {
		if _, err := parser.Parse(schedule); err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, schedule, err)
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

func getEnvAsList(key string) []string {
	return utils.SplitList(os.Getenv(key))
}

func loadBackupConfig() *BackupConfig {
	return &BackupConfig{
		Bucket:        getEnv("BACKUP_S3_BUCKET", ""),
		Endpoint:      getEnv("BACKUP_S3_ENDPOINT", ""),
		Region:        getEnv("BACKUP_S3_REGION", "auto"),
		AccessKey:     getEnv("BACKUP_S3_ACCESS_KEY", ""),
		SecretKey:     getEnv("BACKUP_S3_SECRET_KEY", ""),
		Schedule:      getEnv("BACKUP_SCHEDULE", "0 0 2 * * *"),
		RetentionDays: getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
	}
}
