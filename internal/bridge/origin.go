// Package bridge normalizes and validates HTTP origins for WebSocket
// upgrades to enforce the configured access control.
package bridge

import (
	"net/http"
	"net/url"
	"strings"
)

func (g *Gateway) buildOrigins(origins []string) {
	g.allowedOrigins = make(map[string]struct{}, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}

		if trimmed == "*" {
			g.allowAllOrigins = true
			continue
		}

		normalized, ok := normalizeOrigin(trimmed)
		if !ok {
			g.log.WithField("origin", origin).Warn("ignoring invalid origin in configuration")
			continue
		}

		g.allowedOrigins[normalized] = struct{}{}
	}
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil {
		return "", false
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}

	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

func (g *Gateway) isOriginAllowed(r *http.Request) bool {
	originHeader := r.Header.Get("Origin")
	if originHeader == "" {
		return false
	}

	normalized, ok := normalizeOrigin(originHeader)
	if !ok {
		return false
	}

	if g.allowAllOrigins {
		return true
	}

	_, exists := g.allowedOrigins[normalized]
	return exists
}

func (g *Gateway) checkOrigin(r *http.Request) bool {
	if g.isOriginAllowed(r) {
		return true
	}

	g.log.WithField("origin", r.Header.Get("Origin")).Warn("blocked WebSocket connection from disallowed origin")
	return false
}
