// Package relay implements a line-oriented TCP chat relay built around a
// single-threaded readiness reactor.
//
// One goroutine owns the poll loop, the connection registry, and all client
// socket I/O. Inbound lines are either broadcast to every registered session
// or, using the "@ip:port payload" form, delivered to exactly one addressed
// peer. Sessions that stay silent beyond the configured idle threshold are
// evicted on the loop's timer cadence.
//
// The implementation is organized into specialized files for configuration,
// the wire-text codec, sessions and the registry, message routing, the
// readiness poller, raw sockets, and the reactor itself.
package relay
