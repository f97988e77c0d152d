package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Server    ServerConfig
	Redis     RedisConfig
	Cache     CacheConfig
	OpenAI    OpenAIConfig
	Analysis  AnalysisConfig
	Assistant AssistantConfig
	RateLimit RateLimitConfig
	OTEL      OTELConfig
}

// AppConfig holds process-wide settings
type AppConfig struct {
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig bounds the in-process cache used when Redis is unavailable.
// TTL caps every entry's lifetime; shorter per-key expirations still apply.
type CacheConfig struct {
	MaxEntries int
	TTL        time.Duration
}

// OpenAIConfig holds configuration for the generative AI collaborator.
// A zero Timeout leaves the request bounded only by the remote service.
type OpenAIConfig struct {
	APIKey         string
	Model          string
	BaseURL        string
	Timeout        time.Duration
	RateLimitRPM   int
	RateLimitBurst int
}

// AnalysisConfig holds hazard image analysis configuration
type AnalysisConfig struct {
	MockDelay     time.Duration
	MaxImageBytes int
}

// AssistantConfig holds normative assistant configuration
type AssistantConfig struct {
	CacheTTL time.Duration
}

// RateLimitConfig bounds how often one client may call the AI-backed endpoints.
// TrustProxy keys clients on X-Forwarded-For / X-Real-IP instead of the
// socket address; enable it only behind a proxy that overwrites them.
type RateLimitConfig struct {
	Requests   int
	Window     time.Duration
	TrustProxy bool
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Env:            getEnv("APP_ENV", "development"),
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		},
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			MaxEntries: getEnvAsInt("CACHE_MEMORY_MAX_ENTRIES", 10000),
			TTL:        getEnvAsDuration("CACHE_MEMORY_TTL", time.Hour),
		},
		OpenAI: OpenAIConfig{
			APIKey:         getEnv("OPENAI_API_KEY", ""),
			Model:          getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			BaseURL:        getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Timeout:        getEnvAsDuration("OPENAI_TIMEOUT", 0),
			RateLimitRPM:   getEnvAsInt("OPENAI_RATE_LIMIT_RPM", 60),
			RateLimitBurst: getEnvAsInt("OPENAI_RATE_LIMIT_BURST", 5),
		},
		Analysis: AnalysisConfig{
			MockDelay:     getEnvAsDuration("ANALYSIS_MOCK_DELAY", 1500*time.Millisecond),
			MaxImageBytes: getEnvAsInt("ANALYSIS_MAX_IMAGE_BYTES", 10<<20),
		},
		Assistant: AssistantConfig{
			CacheTTL: getEnvAsDuration("ASSISTANT_CACHE_TTL", time.Hour),
		},
		RateLimit: RateLimitConfig{
			Requests:   getEnvAsInt("RATE_LIMIT_REQUESTS", 30),
			Window:     getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
			TrustProxy: getEnvAsBool("RATE_LIMIT_TRUST_PROXY", false),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "sisma-inspection"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid SERVER_PORT %d", c.Server.Port)
	}
	if c.Analysis.MaxImageBytes <= 0 {
		return fmt.Errorf("ANALYSIS_MAX_IMAGE_BYTES must be positive, got %d", c.Analysis.MaxImageBytes)
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("CACHE_MEMORY_MAX_ENTRIES must be positive, got %d", c.Cache.MaxEntries)
	}
	if c.RateLimit.Requests < 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must not be negative, got %d", c.RateLimit.Requests)
	}
	return nil
}

// Addr returns the listen address
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
