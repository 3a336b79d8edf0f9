package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	DatabaseURL         string
	ServerPort          string
	FrontendURL         string
	EnableHSTS          bool
	RedisURL            string
	RabbitMQURL         string
	RabbitMQPrefetch    int
	WorkerDebugMode     bool
	ServerDebugMode     bool
	OTELEnabled         bool
	OTELEndpoint        string
	OTELSampleRatio     float64
	MetricsEnabled      bool
	WorkerMetricsPort   string
	TuningFile          string
	RebuildInterval     time.Duration
	RebuildActiveWindow time.Duration
	RebuildEnqueueRate  float64 // jobs per second
	Tuning              Tuning
}

// Load loads configuration from environment variables and the optional tuning file
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		ServerPort:          getEnv("SERVER_PORT", "8080"),
		FrontendURL:         getEnv("FRONTEND_URL", "http://localhost:3000"),
		EnableHSTS:          getEnvBool("ENABLE_HSTS", false),
		RedisURL:            getEnv("REDIS_URL", ""),
		RabbitMQURL:         getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch:    getEnvInt("RABBITMQ_PREFETCH", 4),
		WorkerDebugMode:     getEnvBool("WORKER_DEBUG_MODE", false),
		ServerDebugMode:     getEnvBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:         getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:        getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELSampleRatio:     getEnvFloat("OTEL_SAMPLE_RATIO", 1),
		MetricsEnabled:      getEnvBool("METRICS_ENABLED", true),
		WorkerMetricsPort:   getEnv("WORKER_METRICS_PORT", "9091"),
		TuningFile:          getEnv("TUNING_FILE", ""),
		RebuildInterval:     getEnvDuration("REBUILD_INTERVAL", 6*time.Hour),
		RebuildActiveWindow: getEnvDuration("REBUILD_ACTIVE_WINDOW", 7*24*time.Hour),
		RebuildEnqueueRate:  getEnvFloat("REBUILD_ENQUEUE_RATE", 50),
	}

	if cfg.RabbitMQPrefetch <= 0 {
		return nil, fmt.Errorf("RABBITMQ_PREFETCH must be positive, got %d", cfg.RabbitMQPrefetch)
	}
	if cfg.RebuildInterval <= 0 {
		return nil, fmt.Errorf("REBUILD_INTERVAL must be positive")
	}
	if cfg.RebuildEnqueueRate <= 0 {
		return nil, fmt.Errorf("REBUILD_ENQUEUE_RATE must be positive")
	}

	tuning := DefaultTuning()
	if cfg.TuningFile != "" {
		loaded, err := LoadTuning(cfg.TuningFile)
		if err != nil {
			return nil, err
		}
		tuning = *loaded
	}
	cfg.Tuning = tuning

	return cfg, nil
}

// RequireDatabase returns an error when DATABASE_URL is not configured
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// RequireQueue returns an error when RABBITMQ_URL is not configured
func (c *Config) RequireQueue() error {
	if c.RabbitMQURL == "" {
		return fmt.Errorf("RABBITMQ_URL is required for profile rebuild jobs")
	}
	return nil
}

// AllowedOrigins splits FRONTEND_URL into a de-duplicated origin list
func (c *Config) AllowedOrigins() []string {
	var origins []string
	seen := make(map[string]struct{})
	for _, origin := range strings.Split(c.FrontendURL, ",") {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		origins = append(origins, trimmed)
	}
	return origins
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
