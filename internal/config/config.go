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
	DatabaseURL        string
	ServerPort         string
	FrontendURL        string
	ExtensionOrigins   []string
	JWTSecret          string
	AIAPIKey           string
	AIModel            string
	AIBaseURL          string
	AITimeout          time.Duration
	GoogleClientID     string
	GoogleClientSecret string
	MailTimeout        time.Duration
	RequestTimeout     time.Duration
	EnableHSTS         bool
	RedisURL           string
	RabbitMQURL        string
	RabbitMQPrefetch   int
	DLQGCInterval      time.Duration
	DLQRetention       time.Duration
	WorkerDebugMode    bool
	ServerDebugMode    bool
	OTELEnabled        bool
	OTELEndpoint       string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:3000"),
		ExtensionOrigins:   getEnvList("EXTENSION_ORIGINS"),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		AIAPIKey:           getEnv("AI_API_KEY", getEnv("GEMINI_API_KEY", "")),
		AIModel:            getEnv("AI_MODEL", ""),
		AIBaseURL:          getEnv("AI_BASE_URL", ""),
		AITimeout:          getEnvDuration("AI_TIMEOUT", 20*time.Second),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		MailTimeout:        getEnvDuration("MAIL_TIMEOUT", 15*time.Second),
		RequestTimeout:     getEnvDuration("REQUEST_TIMEOUT", 90*time.Second),
		EnableHSTS:         getEnvBool("ENABLE_HSTS", false),
		RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL:        getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch:   getEnvInt("RABBITMQ_PREFETCH", 1),
		DLQGCInterval:      getEnvDuration("DLQ_GC_INTERVAL", time.Hour),
		DLQRetention:       getEnvDuration("DLQ_RETENTION", 7*24*time.Hour),
		WorkerDebugMode:    getEnvBool("WORKER_DEBUG_MODE", false),
		ServerDebugMode:    getEnvBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:        getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required for session tokens")
	}

	return cfg, nil
}

// AllowedOrigins returns the CORS origins: every FRONTEND_URL entry plus the extension origins
func (c *Config) AllowedOrigins() []string {
	origins := make([]string, 0, len(c.ExtensionOrigins)+1)
	seen := make(map[string]bool)
	for _, o := range append(splitList(c.FrontendURL), c.ExtensionOrigins...) {
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		origins = append(origins, o)
	}
	return origins
}

// EnsureRequestTimeout raises RequestTimeout to floor when it is lower and
// reports whether it changed
func (c *Config) EnsureRequestTimeout(floor time.Duration) bool {
	if c.RequestTimeout >= floor {
		return false
	}
	c.RequestTimeout = floor
	return true
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	return splitList(os.Getenv(key))
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
