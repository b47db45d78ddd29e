// Package relay implements the reactor: the single dispatch loop that owns
// the poller, the registry, and all client socket I/O.
package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// partReason describes how the relay parted with a session.
type partReason int

const (
	// partLeft is orderly peer close (zero-byte read).
	partLeft partReason = iota
	// partError is a reset, broken pipe, or failed delivery.
	partError
	// partEvicted is reaper-triggered idle eviction. It announces to the
	// survivors the same way partError does.
	partEvicted
)

// Server is the chat relay. Create it with NewServer, run it with
// ListenAndServe or Serve, and stop it with Shutdown.
//
// A single goroutine (the one running Serve) owns every field below; the
// only cross-goroutine signals are the shutdown context and done channel.
type Server struct {
	cfg   Config
	log   *logrus.Logger
	codec *Codec

	ln       Listener
	poller   Poller
	registry *registry

	buf    []byte
	events []Event

	// failed collects sessions whose delivery broke mid-sweep; they are torn
	// down after the sweep so the registry is never mutated under iteration.
	failed []*Session

	lastSweep time.Time
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewServer validates the configuration and builds a relay. Passing a nil
// config or logger selects the defaults.
func NewServer(cfg *Config, log *logrus.Logger) (*Server, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	sanitized := sanitizeConfig(*cfg)

	codec, err := NewCodec(sanitized.Encoding)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:      sanitized,
		log:      log,
		codec:    codec,
		registry: newRegistry(),
		buf:      make([]byte, sanitized.BufferSize),
		events:   make([]Event, 128),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}, nil
}

// ListenAndServe opens the listening socket and the poller, then runs the
// reactor loop until Shutdown. A bind failure is returned as *BindError and
// must be treated as fatal.
func (s *Server) ListenAndServe() error {
	ln, err := Listen(s.cfg.Host, s.cfg.Port)
	if err != nil {
		return err
	}

	poller, err := NewPoller()
	if err != nil {
		ln.Close()
		return err
	}

	return s.Serve(ln, poller)
}

// Serve runs the reactor loop over the given endpoint and poller. It returns
// nil after Shutdown, or the error that stopped the loop. Per-connection I/O
// failures never stop the loop; only the poller itself failing does.
func (s *Server) Serve(ln Listener, poller Poller) error {
	s.ln = ln
	s.poller = poller
	defer s.cleanup()

	if err := s.poller.Add(ln.Fd()); err != nil {
		return fmt.Errorf("relay: subscribe listener: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"addr":     ln.Addr(),
		"encoding": s.codec.Name(),
	}).Info("relay listening")

	s.lastSweep = s.now()

	for {
		select {
		case <-s.ctx.Done():
			return nil
		default:
		}

		n, err := s.poller.Wait(s.events, s.cfg.PollInterval)
		if err != nil {
			return err
		}

		for i := 0; i < n; i++ {
			s.dispatch(s.events[i])
			s.sweepFailed()
		}

		s.reapIdle()
		s.sweepFailed()
	}
}

// Shutdown stops the reactor and waits for the loop to finish tearing down
// all sessions, or until the timeout is reached.
func (s *Server) Shutdown(timeout time.Duration) error {
	s.cancel()

	select {
	case <-s.done:
		return nil
	case <-time.After(timeout):
		return context.DeadlineExceeded
	}
}

// dispatch invokes the handler bound to the ready handle: accept for the
// listening socket, read or pending-flush for client sockets.
func (s *Server) dispatch(ev Event) {
	if ev.FD == s.ln.Fd() {
		s.acceptReady()
		return
	}

	sess, ok := s.registry.lookup(ev.FD)
	if !ok {
		// Readiness for a handle torn down earlier in this round.
		return
	}

	if ev.Closed {
		s.teardown(sess, partError)
		return
	}
	if ev.Writable {
		s.flushPending(sess)
	}
	if ev.Readable {
		s.readReady(sess)
	}
}

func (s *Server) acceptReady() {
	for {
		conn, err := s.ln.Accept()
		if errors.Is(err, ErrWouldBlock) {
			return
		}
		if err != nil {
			// A failed accept affects no established session; keep serving.
			s.log.WithError(err).Error("accept failed")
			return
		}
		s.register(conn)
	}
}

// register creates the session, subscribes it for read readiness, and
// announces the join plus the refreshed roster to all other sessions.
func (s *Server) register(conn Conn) {
	sess := newSession(conn, s.now(), s.cfg.RateLimit)

	if !s.registry.add(sess) {
		s.log.WithField("addr", sess.addr).Error("duplicate session rejected")
		conn.Close()
		return
	}

	if err := s.poller.Add(conn.Fd()); err != nil {
		s.registry.remove(conn.Fd())
		conn.Close()
		s.log.WithField("addr", sess.addr).WithError(err).Error("subscribe failed")
		return
	}

	s.log.WithFields(logrus.Fields{
		"addr":    sess.addr,
		"clients": s.registry.len(),
	}).Info("client joined")

	s.announce(sess, sess.addr+" joined")
	s.announceRoster(sess)
}

// readReady performs one non-blocking read; one recv's bytes are one message
// unit.
func (s *Server) readReady(sess *Session) {
	n, err := sess.conn.Recv(s.buf)
	if n > 0 {
		s.registry.touch(sess.Fd(), s.now())
		s.route(sess, s.buf[:n])
	}

	switch {
	case err == nil && n == 0:
		s.log.WithField("addr", sess.addr).Info("client left")
		s.teardown(sess, partLeft)
	case err == nil, errors.Is(err, ErrWouldBlock):
	default:
		s.log.WithField("addr", sess.addr).WithError(err).Info("client disconnected")
		s.teardown(sess, partError)
	}
}

// deliver encodes line and sends it to sess, parking any unwritten remainder
// on the pending queue until the next writable-readiness event.
func (s *Server) deliver(sess *Session, line string) {
	payload := s.codec.Encode(line + "\n")

	if sess.pending.Length() > 0 {
		sess.pending.Add(payload)
		return
	}

	n, err := sess.conn.Send(payload)
	if err == nil && n == len(payload) {
		return
	}

	if err == nil || errors.Is(err, ErrWouldBlock) {
		sess.pending.Add(payload)
		sess.pendingOff = n
		if perr := s.poller.SetWritable(sess.Fd(), true); perr != nil {
			s.fail(sess)
		}
		return
	}

	s.fail(sess)
}

// flushPending drains the pending queue while the socket stays writable and
// drops write interest once empty.
func (s *Server) flushPending(sess *Session) {
	for sess.pending.Length() > 0 {
		head := sess.pending.Peek().([]byte)

		n, err := sess.conn.Send(head[sess.pendingOff:])
		if errors.Is(err, ErrWouldBlock) {
			return
		}
		if err != nil {
			s.fail(sess)
			return
		}

		sess.pendingOff += n
		if sess.pendingOff < len(head) {
			return
		}

		sess.pending.Remove()
		sess.pendingOff = 0
	}

	if err := s.poller.SetWritable(sess.Fd(), false); err != nil {
		s.fail(sess)
	}
}

// fail marks a session for teardown after the current delivery sweep.
func (s *Server) fail(sess *Session) {
	sess.evictionPending = true
	s.failed = append(s.failed, sess)
}

// sweepFailed tears down sessions whose delivery broke. Teardown announces to
// the survivors, which can fail more sessions, so the sweep loops until
// quiet.
func (s *Server) sweepFailed() {
	for len(s.failed) > 0 {
		failed := s.failed
		s.failed = nil
		for _, sess := range failed {
			// Guard against fd reuse: only tear down the exact session still
			// registered under this handle.
			if cur, ok := s.registry.lookup(sess.Fd()); ok && cur == sess {
				s.log.WithField("addr", sess.addr).Info("client dropped, delivery failed")
				s.teardown(sess, partError)
			}
		}
	}
}

// teardown destroys a session: unsubscribe, remove from the registry, close
// the socket, then announce the departure and refreshed roster to the
// remaining sessions. The order is fixed so no session outlives its socket
// and no socket closes while still registered.
func (s *Server) teardown(sess *Session, reason partReason) {
	cur, ok := s.registry.lookup(sess.Fd())
	if !ok || cur != sess {
		return
	}

	sess.evictionPending = true
	_ = s.poller.Remove(sess.Fd())
	s.registry.remove(sess.Fd())
	_ = sess.conn.Close()

	what := " disconnected"
	if reason == partLeft {
		what = " left"
	}
	s.announce(nil, sess.addr+what)
	s.announceRoster(nil)
}

// reapIdle evicts every session silent for longer than the idle threshold.
// It runs at most once per poll interval, so eviction latency is bounded by
// roughly one tick beyond the threshold.
func (s *Server) reapIdle() {
	now := s.now()
	if now.Sub(s.lastSweep) < s.cfg.PollInterval {
		return
	}
	s.lastSweep = now

	for _, sess := range s.registry.snapshot() {
		if sess.evictionPending || now.Sub(sess.lastActivity) <= s.cfg.IdleThreshold {
			continue
		}

		// The final notice is best effort: the socket closes right after.
		sess.evictionPending = true
		s.deliver(sess, adminPrefix+"you were disconnected for inactivity")

		s.log.WithFields(logrus.Fields{
			"addr": sess.addr,
			"idle": now.Sub(sess.lastActivity).Round(time.Millisecond).String(),
		}).Info("client evicted for inactivity")
		s.teardown(sess, partEvicted)
	}
}

// cleanup tears down every remaining session and releases the endpoint and
// poller when the loop exits.
func (s *Server) cleanup() {
	for _, sess := range s.registry.snapshot() {
		_ = s.poller.Remove(sess.Fd())
		s.registry.remove(sess.Fd())
		_ = sess.conn.Close()
	}

	_ = s.poller.Remove(s.ln.Fd())
	_ = s.ln.Close()
	_ = s.poller.Close()

	s.log.Info("relay stopped")
	close(s.done)
}
