// Package server provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the chat service.
package server

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Tyrowin/ratechat/internal/audit"
	"github.com/Tyrowin/ratechat/internal/rates"
)

const (
	defaultAddr           = "localhost:8765"
	defaultMaxMessageSize = 4096
	defaultBurst          = 5
	defaultCommandTimeout = 30 * time.Second
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the server configuration settings.
type Config struct {
	Addr           string
	AllowedOrigins []string
	MaxMessageSize int64
	RateLimit      RateLimitConfig

	// RatesAPIURL is the base URL of the exchange rates archive API.
	RatesAPIURL string
	// RatesTimeout bounds every single-date API call.
	RatesTimeout time.Duration
	// CommandTimeout bounds a whole exchange command, all dates included.
	CommandTimeout time.Duration
	AuditLogPath   string
	LogLevel       string
}

func defaultConfig() Config {
	return Config{
		Addr: defaultAddr,
		AllowedOrigins: []string{
			"http://localhost:8765",
		},
		MaxMessageSize: defaultMaxMessageSize,
		RateLimit: RateLimitConfig{
			Burst:          defaultBurst,
			RefillInterval: time.Second,
		},
		RatesAPIURL:    rates.DefaultBaseURL,
		RatesTimeout:   rates.DefaultTimeout,
		CommandTimeout: defaultCommandTimeout,
		AuditLogPath:   audit.DefaultPath,
		LogLevel:       "info",
	}
}

// sanitizeConfig replaces unset or invalid values with defaults.
func sanitizeConfig(cfg Config) Config {
	defaults := defaultConfig()

	if cfg.Addr == "" {
		cfg.Addr = defaults.Addr
	}

	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaults.MaxMessageSize
	}

	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = defaults.RateLimit.Burst
	}

	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = defaults.RateLimit.RefillInterval
	}

	if cfg.RatesAPIURL == "" {
		cfg.RatesAPIURL = defaults.RatesAPIURL
	}

	if cfg.RatesTimeout <= 0 {
		cfg.RatesTimeout = defaults.RatesTimeout
	}

	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = defaults.CommandTimeout
	}

	if cfg.AuditLogPath == "" {
		cfg.AuditLogPath = defaults.AuditLogPath
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = defaults.LogLevel
	}

	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Falls back to default values if environment variables are not set.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()

	if addr := os.Getenv("SERVER_ADDR"); addr != "" {
		cfg.Addr = addr
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}

	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		cfg.MaxMessageSize = parseMaxMessageSize(maxSize, cfg.MaxMessageSize)
	}

	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		cfg.RateLimit.Burst = parseIntValue(burst, cfg.RateLimit.Burst)
	}

	if interval := os.Getenv("RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		cfg.RateLimit.RefillInterval = parseSeconds(interval, cfg.RateLimit.RefillInterval)
	}

	if apiURL := os.Getenv("RATES_API_URL"); apiURL != "" {
		cfg.RatesAPIURL = apiURL
	}

	if timeout := os.Getenv("RATES_TIMEOUT"); timeout != "" {
		cfg.RatesTimeout = parseSeconds(timeout, cfg.RatesTimeout)
	}

	if timeout := os.Getenv("COMMAND_TIMEOUT"); timeout != "" {
		cfg.CommandTimeout = parseSeconds(timeout, cfg.CommandTimeout)
	}

	if path := os.Getenv("AUDIT_LOG_PATH"); path != "" {
		cfg.AuditLogPath = path
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	return &cfg
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseMaxMessageSize(value string, defaultValue int64) int64 {
	if size, err := strconv.ParseInt(value, 10, 64); err == nil && size > 0 {
		return size
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseSeconds(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
