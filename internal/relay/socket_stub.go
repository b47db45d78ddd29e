//go:build !linux

// Package relay has no raw-socket transport outside linux; the reactor can
// still be driven through the Listener and Conn interfaces.
package relay

// Listen is unsupported on this platform.
func Listen(host string, port int) (Listener, error) {
	return nil, ErrUnsupportedPlatform
}
