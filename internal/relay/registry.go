// Package relay keeps the live connection registry. The reactor goroutine is
// the single writer, so the registry needs no locking; any multi-threaded
// deployment would have to funnel mutations through one owning goroutine
// instead.
package relay

import (
	"sort"
	"time"
)

// registry maps connection handles to sessions and maintains the address
// index used for directed delivery.
//
// Invariants: every read-subscribed fd has exactly one entry, addresses are
// unique at any instant, and removal happens in the same step as poller
// unsubscription (see Server.teardown).
type registry struct {
	byFd   map[int]*Session
	byAddr map[string]*Session
}

func newRegistry() *registry {
	return &registry{
		byFd:   make(map[int]*Session),
		byAddr: make(map[string]*Session),
	}
}

func (r *registry) len() int {
	return len(r.byFd)
}

// add inserts a session. It refuses duplicates on either key; address
// uniqueness otherwise holds by construction, one handle per accepted
// connection.
func (r *registry) add(s *Session) bool {
	if _, ok := r.byFd[s.Fd()]; ok {
		return false
	}
	if _, ok := r.byAddr[s.addr]; ok {
		return false
	}
	r.byFd[s.Fd()] = s
	r.byAddr[s.addr] = s
	return true
}

func (r *registry) remove(fd int) (*Session, bool) {
	s, ok := r.byFd[fd]
	if !ok {
		return nil, false
	}
	delete(r.byFd, fd)
	delete(r.byAddr, s.addr)
	return s, true
}

func (r *registry) lookup(fd int) (*Session, bool) {
	s, ok := r.byFd[fd]
	return s, ok
}

// resolve performs the exact-string address lookup for directed delivery.
// Sessions mid-teardown are not resolvable.
func (r *registry) resolve(addr string) (*Session, bool) {
	s, ok := r.byAddr[addr]
	if !ok || s.evictionPending {
		return nil, false
	}
	return s, true
}

// touch refreshes the session's activity timestamp; called on every
// successful inbound read.
func (r *registry) touch(fd int, now time.Time) {
	if s, ok := r.byFd[fd]; ok {
		s.lastActivity = now
	}
}

// snapshot returns the current sessions so handlers can keep mutating the
// registry while a delivery sweep iterates.
func (r *registry) snapshot() []*Session {
	sessions := make([]*Session, 0, len(r.byFd))
	for _, s := range r.byFd {
		sessions = append(sessions, s)
	}
	return sessions
}

// roster enumerates the live addresses in stable order for the admin roster
// line.
func (r *registry) roster() []string {
	addrs := make([]string, 0, len(r.byAddr))
	for addr, s := range r.byAddr {
		if s.evictionPending {
			continue
		}
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	return addrs
}
