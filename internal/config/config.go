// Package config provides configuration loading for chunkopt.
//
// Configuration is loaded from environment variables with defaults, or from
// a YAML file overridden by environment variables (see LoadWithFile).
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Config holds the complete chunkopt configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Engine        EngineConfig        `koanf:"engine"`
	Auth          AuthConfig          `koanf:"auth"`
	RateLimit     RateLimitConfig     `koanf:"ratelimit"`
	Events        EventsConfig        `koanf:"events"`
	Observability ObservabilityConfig `koanf:"observability"`
	Log           LogConfig           `koanf:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"http_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	BodyLimit       string        `koanf:"body_limit"` // echo size notation, e.g. "4M"
}

// EngineConfig holds optimization engine settings.
type EngineConfig struct {
	Workers          int    `koanf:"workers"`            // Max chunks analyzed in parallel per request
	CacheSize        int    `koanf:"cache_size"`         // Metrics cache entries, <= 0 disables
	MaxContentLength int    `koanf:"max_content_length"` // In code points
	ProfilesFile     string `koanf:"profiles_file"`      // Optional TOML file with custom profiles
}

// AuthConfig holds API key authentication settings. An empty key disables
// authentication.
type AuthConfig struct {
	APIKey Secret `koanf:"api_key"`
}

// RateLimitConfig holds per-client request rate limits.
type RateLimitConfig struct {
	Enabled   bool `koanf:"enabled"`
	PerMinute int  `koanf:"per_minute"`
	Burst     int  `koanf:"burst"`
}

// EventsConfig holds NATS progress event settings. An empty URL disables
// event publishing.
type EventsConfig struct {
	NATSURL       string `koanf:"nats_url"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

// ObservabilityConfig holds OpenTelemetry configuration.
type ObservabilityConfig struct {
	EnableTelemetry bool   `koanf:"enable_telemetry"`
	ServiceName     string `koanf:"service_name"`
	OTLPEndpoint    string `koanf:"otlp_endpoint"`
	OTLPProtocol    string `koanf:"otlp_protocol"` // "grpc" or "http/protobuf"
	OTLPInsecure    bool   `koanf:"otlp_insecure"`
}

// LogConfig holds the logging settings exposed through configuration.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Defaults.
const (
	DefaultPort             = 8080
	DefaultShutdownTimeout  = 10 * time.Second
	DefaultCacheSize        = 1024
	DefaultMaxContentLength = 100_000
	DefaultRatePerMinute    = 600
	DefaultRateBurst        = 50
	DefaultSubjectPrefix    = "chunkopt"
	DefaultServiceName      = "chunkopt"
)

// Load loads configuration from environment variables with defaults.
//
// Environment variables:
//   - SERVER_HOST, SERVER_HTTP_PORT (default 8080), SERVER_SHUTDOWN_TIMEOUT (default 10s)
//   - SERVER_CORS_ORIGINS: comma separated (default *)
//   - ENGINE_WORKERS (default NumCPU), ENGINE_CACHE_SIZE (default 1024)
//   - ENGINE_MAX_CONTENT_LENGTH (default 100000), ENGINE_PROFILES_FILE
//   - AUTH_API_KEY
//   - RATELIMIT_ENABLED, RATELIMIT_PER_MINUTE (default 600), RATELIMIT_BURST (default 50)
//   - EVENTS_NATS_URL, EVENTS_SUBJECT_PREFIX (default chunkopt)
//   - OBSERVABILITY_ENABLE_TELEMETRY, OBSERVABILITY_SERVICE_NAME, OBSERVABILITY_OTLP_ENDPOINT
//   - LOG_LEVEL (default info), LOG_FORMAT (default json)
//
// Example:
//
//	cfg := config.Load()
//	fmt.Println("Server port:", cfg.Server.Port)
func Load() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", ""),
			Port:            getEnvInt("SERVER_HTTP_PORT", DefaultPort),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", DefaultShutdownTimeout),
			CORSOrigins:     getEnvList("SERVER_CORS_ORIGINS", []string{"*"}),
			BodyLimit:       getEnvString("SERVER_BODY_LIMIT", "4M"),
		},
		Engine: EngineConfig{
			Workers:          getEnvInt("ENGINE_WORKERS", runtime.NumCPU()),
			CacheSize:        getEnvInt("ENGINE_CACHE_SIZE", DefaultCacheSize),
			MaxContentLength: getEnvInt("ENGINE_MAX_CONTENT_LENGTH", DefaultMaxContentLength),
			ProfilesFile:     getEnvString("ENGINE_PROFILES_FILE", ""),
		},
		Auth: AuthConfig{
			APIKey: Secret(getEnvString("AUTH_API_KEY", "")),
		},
		RateLimit: RateLimitConfig{
			Enabled:   getEnvBool("RATELIMIT_ENABLED", false),
			PerMinute: getEnvInt("RATELIMIT_PER_MINUTE", DefaultRatePerMinute),
			Burst:     getEnvInt("RATELIMIT_BURST", DefaultRateBurst),
		},
		Events: EventsConfig{
			NATSURL:       getEnvString("EVENTS_NATS_URL", ""),
			SubjectPrefix: getEnvString("EVENTS_SUBJECT_PREFIX", DefaultSubjectPrefix),
		},
		Observability: ObservabilityConfig{
			EnableTelemetry: getEnvBool("OBSERVABILITY_ENABLE_TELEMETRY", false),
			ServiceName:     getEnvString("OBSERVABILITY_SERVICE_NAME", DefaultServiceName),
			OTLPEndpoint:    getEnvString("OBSERVABILITY_OTLP_ENDPOINT", "localhost:4317"),
			OTLPProtocol:    getEnvString("OBSERVABILITY_OTLP_PROTOCOL", "grpc"),
			OTLPInsecure:    getEnvBool("OBSERVABILITY_OTLP_INSECURE", true),
		},
		Log: LogConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
	}

	return cfg
}

// Addr returns the host:port the HTTP server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	if c.Engine.Workers < 1 {
		return fmt.Errorf("engine workers must be >= 1, got %d", c.Engine.Workers)
	}
	if c.Engine.MaxContentLength < 1 {
		return fmt.Errorf("engine max content length must be positive, got %d", c.Engine.MaxContentLength)
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.PerMinute < 1 {
			return fmt.Errorf("rate limit per_minute must be positive, got %d", c.RateLimit.PerMinute)
		}
		if c.RateLimit.Burst < 1 {
			return fmt.Errorf("rate limit burst must be positive, got %d", c.RateLimit.Burst)
		}
	}

	if c.Events.NATSURL != "" && strings.TrimSpace(c.Events.SubjectPrefix) == "" {
		return errors.New("events subject prefix required when nats_url is set")
	}

	if c.Observability.EnableTelemetry && c.Observability.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log format must be 'json' or 'console', got %q", c.Log.Format)
	}

	return nil
}

// Helper functions for environment variable parsing

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
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
