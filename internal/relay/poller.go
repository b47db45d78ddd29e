// Package relay defines the readiness poller the reactor multiplexes on.
package relay

import "time"

// Event reports readiness for one registered handle.
type Event struct {
	FD       int
	Readable bool
	Writable bool

	// Closed reports an error or hang-up condition on the handle; the
	// reactor tears the connection down without attempting I/O.
	Closed bool
}

// Poller multiplexes readiness across registered handles. Handles are
// subscribed for read interest; write interest is toggled only while a
// session has pending output.
type Poller interface {
	Add(fd int) error
	SetWritable(fd int, on bool) error
	Remove(fd int) error

	// Wait fills evs with ready handles, blocking at most timeout. An
	// interrupting signal is reported as zero events, not an error.
	Wait(evs []Event, timeout time.Duration) (int, error)

	Close() error
}
