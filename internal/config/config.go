package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config 应用配置
type Config struct {
	Port      string
	APIPrefix string
	DBPath    string
	LogLevel  string

	// Ingestion
	IngestInterval   time.Duration
	IngestWorkers    int
	DetectorURL      string
	DetectorTimeout  time.Duration
	DetectorConf     float64
	RejectStaleLive  bool
	IngestOnStartup  bool
	BucketInterval   time.Duration
	BucketTimezone   string
	SummerMonths     []time.Month
	ImageDirectory   string
	RegistryBaseURL  string
	RegistryTimeout  time.Duration
	RegistryRefresh  time.Duration
	LocationsFile    string
	RateLimit        int
	RateLimitWindow  time.Duration
	ShutdownDeadline time.Duration
}

// Load 加载配置. An optional .env file in the working directory is read first;
// variables already present in the environment win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:      getEnv("PORT", ":8080"),
		APIPrefix: strings.TrimRight(getEnv("API_PREFIX", ""), "/"),
		DBPath:    getEnv("DB_PATH", "./data/occupancy.db"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),

		IngestInterval:   getEnvAsDuration("INGEST_INTERVAL", 15*time.Minute),
		IngestWorkers:    getEnvAsInt("INGEST_WORKERS", 4),
		DetectorURL:      getEnv("DETECTOR_URL", "http://localhost:5001/detect"),
		DetectorTimeout:  getEnvAsDuration("DETECTOR_TIMEOUT", 30*time.Second),
		DetectorConf:     getEnvAsFloat("DETECTOR_CONFIDENCE", 0.15),
		RejectStaleLive:  getEnvAsBool("LIVE_STATE_REJECT_STALE", false),
		IngestOnStartup:  getEnvAsBool("INGEST_ON_STARTUP", true),
		BucketInterval:   getEnvAsDuration("BUCKET_INTERVAL", 30*time.Minute),
		BucketTimezone:   getEnv("BUCKET_TIMEZONE", "America/Phoenix"),
		SummerMonths:     getEnvAsMonths("SUMMER_MONTHS", []time.Month{time.May, time.June, time.July, time.August}),
		ImageDirectory:   getEnv("IMAGE_DIR", "./static"),
		RegistryBaseURL:  getEnv("REGISTRY_URL", "https://mkt-api.gcu.edu/linecam/api/v1"),
		RegistryTimeout:  getEnvAsDuration("REGISTRY_TIMEOUT", 20*time.Second),
		RegistryRefresh:  getEnvAsDuration("REGISTRY_REFRESH_INTERVAL", 24*time.Hour),
		LocationsFile:    getEnv("LOCATIONS_FILE", ""),
		RateLimit:        getEnvAsInt("RATE_LIMIT", 120),
		RateLimitWindow:  getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
		ShutdownDeadline: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

// getEnvAsMonths parses a comma separated list of month numbers ("5,6,7,8").
// Any invalid entry falls back to the default list.
func getEnvAsMonths(key string, defaultValue []time.Month) []time.Month {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var months []time.Month
	for _, part := range strings.Split(value, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 1 || n > 12 {
			return defaultValue
		}
		months = append(months, time.Month(n))
	}
	return months
}
