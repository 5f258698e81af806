package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port           string
	Environment    string
	AllowedOrigins []string

	// Database
	MongoDBURL  string
	MongoDBName string
	RedisURL    string

	// Identity
	JWTSecret string

	// Admin gate
	Debug       bool
	Maintenance bool
	AdminEmails []string

	// Profiles
	ViewHistoryMax   int
	HandleMaxRetries int
	ProfileCacheTTL  time.Duration

	// Retention cleanup
	RetentionDays    int
	CleanupHour      int
	CleanupEnabled   bool
	CleanupBatchWait time.Duration

	// Asset store
	AssetBaseURL    string
	AssetAPIKey     string
	AssetTimeoutSec int
}

func Load() (*Config, error) {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    getEnv("ENV", "development"),
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", nil),

		// Database
		MongoDBURL:  getEnv("MONGODB_URL", "mongodb://localhost:27017"),
		MongoDBName: getEnv("MONGODB_DATABASE", "recipeshare"),
		RedisURL:    getEnv("REDIS_URL", ""),

		// Identity
		JWTSecret: getEnv("JWT_SECRET", ""),

		// Admin gate
		Debug:       getEnvBool("DEBUG", false),
		Maintenance: getEnvBool("MAINTENANCE_MODE", false),
		AdminEmails: getEnvSlice("ADMIN_EMAILS", nil),

		// Profiles
		ViewHistoryMax:   getEnvInt("VIEW_HISTORY_MAX", 50),
		HandleMaxRetries: getEnvInt("HANDLE_MAX_RETRIES", 20),
		ProfileCacheTTL:  time.Duration(getEnvInt("PROFILE_CACHE_TTL_SEC", 300)) * time.Second,

		// Retention cleanup
		RetentionDays:    getEnvInt("RETENTION_DAYS", 7),
		CleanupHour:      getEnvInt("CLEANUP_HOUR", 2),
		CleanupEnabled:   getEnvBool("CLEANUP_ENABLED", true),
		CleanupBatchWait: time.Duration(getEnvInt("CLEANUP_BATCH_WAIT_MS", 0)) * time.Millisecond,

		// Asset store
		AssetBaseURL:    getEnv("ASSET_STORE_URL", ""),
		AssetAPIKey:     getEnv("ASSET_STORE_API_KEY", ""),
		AssetTimeoutSec: getEnvInt("ASSET_STORE_TIMEOUT_SEC", 15),
	}, nil
}

// RetentionHorizon returns the delay after soft-delete before an item
// becomes eligible for permanent deletion.
func (c *Config) RetentionHorizon() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return defaultValue
}
