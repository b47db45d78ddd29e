// Package relay tracks per-connection session state for the reactor.
package relay

import (
	"time"

	"github.com/eapache/queue"
)

// Session is the registry entry for one live connection. All fields are owned
// by the reactor goroutine.
type Session struct {
	conn Conn
	addr string

	// lastActivity is refreshed on every successful inbound read and drives
	// idle eviction.
	lastActivity time.Time

	// evictionPending is set the instant a session is chosen for teardown so
	// the router never delivers to a session mid-teardown.
	evictionPending bool

	// pending holds encoded payloads waiting for write readiness; pendingOff
	// is the consumed prefix of the head payload after a short write.
	pending    *queue.Queue
	pendingOff int

	limiter *limiter
}

func newSession(conn Conn, now time.Time, rl RateLimitConfig) *Session {
	return &Session{
		conn:         conn,
		addr:         conn.RemoteAddr(),
		lastActivity: now,
		pending:      queue.New(),
		limiter:      newLimiter(rl.Burst, rl.RefillInterval, now),
	}
}

// Addr returns the peer's ip:port, the addressable name in directed
// messaging.
func (s *Session) Addr() string {
	return s.addr
}

// Fd returns the session's registry key.
func (s *Session) Fd() int {
	return s.conn.Fd()
}
