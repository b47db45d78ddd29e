// Package relay provides configuration helpers that define runtime defaults
// and validation for the chat relay service.
package relay

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// RateLimitConfig defines the parameters for per-session message flood
// limiting. A Burst of zero disables the limiter entirely.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the relay configuration. All values are supplied at process
// start; there is no runtime reconfiguration.
type Config struct {
	// Host and Port of the listening socket. An empty Host binds all
	// interfaces.
	Host string
	Port int

	// BufferSize is the read chunk size in bytes. A single recv's bytes are
	// treated as one message unit.
	BufferSize int

	// IdleThreshold is the inbound inactivity duration after which a session
	// is evicted.
	IdleThreshold time.Duration

	// PollInterval bounds the reactor's readiness wait and sets the idle
	// sweep cadence, so eviction latency is bounded by roughly one interval
	// past the threshold.
	PollInterval time.Duration

	// Encoding is the wire-text charset shared by all connections, by IANA
	// name. Defaults to utf-8; legacy deployments used gbk.
	Encoding string

	// EchoToSender controls whether a broadcast is delivered back to its own
	// sender.
	EchoToSender bool

	RateLimit RateLimitConfig
}

func defaultConfig() Config {
	return Config{
		Host:          "0.0.0.0",
		Port:          8888,
		BufferSize:    1024,
		IdleThreshold: 10 * time.Second,
		PollInterval:  time.Second,
		Encoding:      "utf-8",
		EchoToSender:  true,
		RateLimit: RateLimitConfig{
			Burst:          20,
			RefillInterval: time.Second,
		},
	}
}

func sanitizeConfig(cfg Config) Config {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		cfg.Port = 8888
	}

	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}

	if cfg.IdleThreshold <= 0 {
		cfg.IdleThreshold = 10 * time.Second
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}

	if cfg.Encoding == "" {
		cfg.Encoding = "utf-8"
	}

	if cfg.RateLimit.Burst < 0 {
		cfg.RateLimit.Burst = 0
	}

	if cfg.RateLimit.Burst > 0 && cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = time.Second
	}

	return cfg
}

// Addr returns the host:port pair the relay binds to.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NewConfig creates a Config instance populated with default values for all
// settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Falls back to default values if environment variables are not set.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()

	if host := os.Getenv("RELAY_HOST"); host != "" {
		cfg.Host = host
	}

	if port := os.Getenv("RELAY_PORT"); port != "" {
		cfg.Port = parseIntValue(port, cfg.Port)
	}

	if size := os.Getenv("RELAY_BUFFER_SIZE"); size != "" {
		cfg.BufferSize = parseIntValue(size, cfg.BufferSize)
	}

	if threshold := os.Getenv("RELAY_IDLE_THRESHOLD"); threshold != "" {
		cfg.IdleThreshold = parseSeconds(threshold, cfg.IdleThreshold)
	}

	if interval := os.Getenv("RELAY_POLL_INTERVAL"); interval != "" {
		cfg.PollInterval = parseSeconds(interval, cfg.PollInterval)
	}

	if enc := os.Getenv("RELAY_ENCODING"); enc != "" {
		cfg.Encoding = enc
	}

	if echo := os.Getenv("RELAY_ECHO_TO_SENDER"); echo != "" {
		cfg.EchoToSender = parseBoolValue(echo, cfg.EchoToSender)
	}

	if burst := os.Getenv("RELAY_RATE_BURST"); burst != "" {
		if parsed, err := strconv.Atoi(burst); err == nil && parsed >= 0 {
			cfg.RateLimit.Burst = parsed
		}
	}

	if interval := os.Getenv("RELAY_RATE_REFILL_INTERVAL"); interval != "" {
		cfg.RateLimit.RefillInterval = parseSeconds(interval, cfg.RateLimit.RefillInterval)
	}

	return &cfg
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseBoolValue(value string, defaultValue bool) bool {
	if parsed, err := strconv.ParseBool(value); err == nil {
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
