package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds the application configuration.
type Config struct {
	Environment   string
	LogLevel      string
	DatabasePath  string
	BackupDir     string
	MaxBackups    int
	RetentionDays int
	Compression   bool
	Encryption    bool // reserved, not acted on yet
	ExcludeTables []string
}

// Load loads configuration from environment variables or sets defaults.
func Load() (*Config, error) {
	maxBackups, err := getEnvInt("BACKUP_MAX_BACKUPS", 30)
	if err != nil {
		return nil, err
	}
	retentionDays, err := getEnvInt("BACKUP_RETENTION_DAYS", 30)
	if err != nil {
		return nil, err
	}

	return &Config{
		Environment:   getEnv("APP_ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabasePath:  getEnv("DATABASE_PATH", "./venuescout.db"),
		BackupDir:     getEnv("BACKUP_DIR", "./backups"),
		MaxBackups:    maxBackups,
		RetentionDays: retentionDays,
		Compression:   getEnvBool("BACKUP_COMPRESSION", true),
		Encryption:    getEnvBool("BACKUP_ENCRYPTION", false),
		ExcludeTables: getEnvList("BACKUP_EXCLUDE_TABLES", []string{"error_logs"}),
	}, nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback, nil
	}
	return strconv.Atoi(value)
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
