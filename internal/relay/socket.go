// Package relay abstracts the stream transport so the reactor can be driven
// by raw sockets in production and by in-memory doubles in tests.
package relay

// Conn is one non-blocking stream connection.
type Conn interface {
	// Fd returns the handle used as the registry and poller key. It is
	// unique for the lifetime of the connection.
	Fd() int

	// RemoteAddr returns the peer's ip:port.
	RemoteAddr() string

	// Recv reads at most len(p) bytes without blocking. It returns
	// ErrWouldBlock when no data is available. A return of (0, nil) signals
	// orderly peer close and is not an error; a reset or broken pipe
	// surfaces as a non-nil error.
	Recv(p []byte) (int, error)

	// Send writes p without blocking and may write fewer bytes than given.
	// It returns ErrWouldBlock when the socket buffer is full.
	Send(p []byte) (int, error)

	Close() error
}

// Listener is the transport endpoint owning the listening socket.
type Listener interface {
	Fd() int

	// Addr returns the bound address, with the kernel-assigned port when the
	// configured port was zero.
	Addr() string

	// Accept returns the next pending connection, already switched to
	// non-blocking mode, or ErrWouldBlock when none is queued. Call it only
	// when the listening socket is readiness-signaled.
	Accept() (Conn, error)

	Close() error
}
