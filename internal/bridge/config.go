// Package bridge provides configuration helpers for the WebSocket gateway.
package bridge

import (
	"os"
	"strings"
)

// Config holds the gateway settings.
type Config struct {
	// ListenAddr is the HTTP listen address.
	ListenAddr string

	// RelayAddr is the TCP address of the relay the gateway dials for every
	// upgraded client.
	RelayAddr string

	// AllowedOrigins lists origins accepted for WebSocket upgrades. "*"
	// allows everything.
	AllowedOrigins []string
}

func defaultConfig() Config {
	return Config{
		ListenAddr: ":8080",
		RelayAddr:  "127.0.0.1:8888",
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
	}
}

func sanitizeConfig(cfg Config) Config {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.RelayAddr == "" {
		cfg.RelayAddr = "127.0.0.1:8888"
	}
	return cfg
}

// NewConfig creates a Config populated with defaults.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config from environment variables, falling back
// to defaults for anything unset.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()

	if addr := os.Getenv("BRIDGE_LISTEN_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}

	if addr := os.Getenv("BRIDGE_RELAY_ADDR"); addr != "" {
		cfg.RelayAddr = addr
	}

	if origins := os.Getenv("BRIDGE_ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
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
