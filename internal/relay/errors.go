// Package relay defines the error values shared across the transport, poller,
// and reactor code.
package relay

import (
	"errors"
	"fmt"
)

var (
	// ErrWouldBlock reports that a non-blocking socket operation could not
	// complete immediately. It is an expected condition, not a failure.
	ErrWouldBlock = errors.New("relay: operation would block")

	// ErrUnsupportedPlatform is returned by the raw-socket transport and the
	// readiness poller on platforms without epoll support.
	ErrUnsupportedPlatform = errors.New("relay: transport requires linux")
)

// BindError reports a failure to set up the listening socket, for example
// because the address is already in use. It is fatal: the process must report
// it and exit before entering the reactor loop.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("relay: bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}
