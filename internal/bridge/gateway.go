// Package bridge implements the WebSocket gateway: HTTP routing, upgrades,
// and the per-client proxy pumps onto the relay's TCP socket.
package bridge

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Gateway accepts WebSocket clients and proxies each onto its own TCP
// connection to the relay.
type Gateway struct {
	cfg      Config
	log      *logrus.Logger
	upgrader websocket.Upgrader

	allowedOrigins  map[string]struct{}
	allowAllOrigins bool
}

// New builds a Gateway from the configuration. Passing a nil config or
// logger selects the defaults.
func New(cfg *Config, log *logrus.Logger) *Gateway {
	if cfg == nil {
		cfg = NewConfig()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	g := &Gateway{
		cfg: sanitizeConfig(*cfg),
		log: log,
	}
	g.buildOrigins(g.cfg.AllowedOrigins)
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     g.checkOrigin,
	}
	return g
}

// Routes configures and returns the gateway's HTTP router with the health
// check and WebSocket endpoints.
func (g *Gateway) Routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", g.HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/ws", g.WebSocketHandler).Methods(http.MethodGet)
	return r
}

// Server creates an HTTP server for the gateway with production timeout
// settings.
func (g *Gateway) Server() *http.Server {
	return &http.Server{
		Addr:         g.cfg.ListenAddr,
		Handler:      g.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// HealthHandler provides a simple health check endpoint.
func (g *Gateway) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, "chatrelay bridge is running!")
}

// WebSocketHandler upgrades the request, dials the relay, and runs the proxy
// pumps until either side closes.
func (g *Gateway) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	relayConn, err := net.Dial("tcp", g.cfg.RelayAddr)
	if err != nil {
		g.log.WithField("relay", g.cfg.RelayAddr).WithError(err).Error("relay dial failed")
		_ = ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "relay unavailable"))
		ws.Close()
		return
	}

	g.log.WithFields(logrus.Fields{
		"client": r.RemoteAddr,
		"peer":   relayConn.LocalAddr().String(),
	}).Info("bridge client connected")

	g.proxy(ws, relayConn, r.RemoteAddr)
}

// proxy pumps WebSocket messages to the relay and relay bytes back as text
// messages. Closing either leg unblocks and stops the other.
func (g *Gateway) proxy(ws *websocket.Conn, relayConn net.Conn, client string) {
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer ws.Close()

		buf := make([]byte, 1024)
		for {
			n, err := relayConn.Read(buf)
			if n > 0 {
				if werr := ws.WriteMessage(websocket.TextMessage, buf[:n]); werr != nil {
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			if !isExpectedCloseError(err) {
				g.log.WithField("client", client).WithError(err).Warn("WebSocket read error")
			}
			break
		}
		if _, err := relayConn.Write(message); err != nil {
			break
		}
	}

	relayConn.Close()
	<-done

	g.log.WithField("client", client).Info("bridge client disconnected")
}

// isExpectedCloseError checks if an error is expected during connection
// closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
