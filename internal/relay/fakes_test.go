package relay

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

// fakeConn is an in-memory Conn double. Recv serves queued payloads one per
// call, then reports would-block, orderly close, or a configured error.
type fakeConn struct {
	fd   int
	addr string

	inbox   [][]byte
	peerEOF bool
	recvErr error

	out      bytes.Buffer
	sendErr  error
	sendMax  int
	sendFull bool

	closed bool
}

func (c *fakeConn) Fd() int            { return c.fd }
func (c *fakeConn) RemoteAddr() string { return c.addr }

func (c *fakeConn) Recv(p []byte) (int, error) {
	if len(c.inbox) > 0 {
		msg := c.inbox[0]
		c.inbox = c.inbox[1:]
		return copy(p, msg), nil
	}
	if c.recvErr != nil {
		return 0, c.recvErr
	}
	if c.peerEOF {
		return 0, nil
	}
	return 0, ErrWouldBlock
}

func (c *fakeConn) Send(p []byte) (int, error) {
	if c.sendErr != nil {
		return 0, c.sendErr
	}
	if c.sendFull {
		return 0, ErrWouldBlock
	}
	if c.sendMax > 0 && len(p) > c.sendMax {
		c.out.Write(p[:c.sendMax])
		return c.sendMax, nil
	}
	c.out.Write(p)
	return len(p), nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

// lines returns the complete newline-terminated lines written so far.
func (c *fakeConn) lines() []string {
	out := c.out.String()
	if out == "" {
		return nil
	}
	return strings.Split(strings.TrimRight(out, "\n"), "\n")
}

func (c *fakeConn) reset() {
	c.out.Reset()
}

type fakeListener struct {
	fd      int
	addr    string
	backlog []Conn
	closed  bool
}

func (l *fakeListener) Fd() int      { return l.fd }
func (l *fakeListener) Addr() string { return l.addr }

func (l *fakeListener) Accept() (Conn, error) {
	if len(l.backlog) == 0 {
		return nil, ErrWouldBlock
	}
	conn := l.backlog[0]
	l.backlog = l.backlog[1:]
	return conn, nil
}

func (l *fakeListener) Close() error {
	l.closed = true
	return nil
}

// fakePoller records subscriptions and serves scripted readiness rounds.
type fakePoller struct {
	added    map[int]bool
	writable map[int]bool
	rounds   [][]Event
	closed   bool
}

func newFakePoller() *fakePoller {
	return &fakePoller{
		added:    make(map[int]bool),
		writable: make(map[int]bool),
	}
}

func (p *fakePoller) Add(fd int) error {
	p.added[fd] = true
	return nil
}

func (p *fakePoller) SetWritable(fd int, on bool) error {
	p.writable[fd] = on
	return nil
}

func (p *fakePoller) Remove(fd int) error {
	delete(p.added, fd)
	delete(p.writable, fd)
	return nil
}

func (p *fakePoller) Wait(evs []Event, timeout time.Duration) (int, error) {
	if len(p.rounds) == 0 {
		// Keep a Serve loop from spinning hot in shutdown tests.
		time.Sleep(time.Millisecond)
		return 0, nil
	}
	round := p.rounds[0]
	p.rounds = p.rounds[1:]
	return copy(evs, round), nil
}

func (p *fakePoller) Close() error {
	p.closed = true
	return nil
}

// fakeClock drives the server's time source deterministically.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

// newTestServer builds a server wired to fakes, never touching real sockets.
func newTestServer(t *testing.T, cfg *Config) (*Server, *fakeListener, *fakePoller, *fakeClock) {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	srv, err := NewServer(cfg, log)
	if err != nil {
		t.Fatalf("NewServer() failed: %v", err)
	}

	ln := &fakeListener{fd: 3, addr: "127.0.0.1:8888"}
	poller := newFakePoller()
	clock := &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}

	srv.ln = ln
	srv.poller = poller
	srv.now = clock.now
	srv.lastSweep = clock.t
	_ = poller.Add(ln.Fd())

	return srv, ln, poller, clock
}

// joinPeer registers a fake connection directly with the reactor.
func joinPeer(t *testing.T, srv *Server, fd int, addr string) *fakeConn {
	t.Helper()

	conn := &fakeConn{fd: fd, addr: addr}
	srv.register(conn)
	if _, ok := srv.registry.lookup(fd); !ok {
		t.Fatalf("session %s was not registered", addr)
	}
	return conn
}
