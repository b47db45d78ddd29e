// Package relay routes inbound message units to the broadcast or directed
// delivery path and formats user and administrative lines.
package relay

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// adminPrefix marks server-generated lines, distinct from the "<address>:"
// prefix of user messages.
const adminPrefix = "admin: "

// parseDirected splits a directed message of the form "@address payload".
// ok is false when the line is not well formed, in which case the caller
// falls back to broadcast semantics.
func parseDirected(line string) (addr, payload string, ok bool) {
	if !strings.HasPrefix(line, "@") {
		return "", "", false
	}
	sp := strings.IndexByte(line, ' ')
	if sp <= 1 {
		// No space after the address token, or an empty token. Documented
		// fallback: the whole line broadcasts as-is.
		return "", "", false
	}
	return line[1:sp], line[sp+1:], true
}

// route classifies one inbound message unit from sender and delivers it.
// Malformed messages are dropped without closing the connection.
func (s *Server) route(sender *Session, raw []byte) {
	if !sender.limiter.allow(s.now()) {
		s.log.WithField("addr", sender.addr).Warn("flood limit exceeded; dropping message")
		return
	}

	line, err := s.codec.Decode(raw)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"addr":     sender.addr,
			"encoding": s.codec.Name(),
		}).WithError(err).Warn("dropping malformed message")
		return
	}

	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return
	}

	if addr, payload, ok := parseDirected(line); ok {
		s.directed(sender, addr, payload)
		return
	}

	s.broadcastFrom(sender, line)
}

// broadcastFrom delivers a user message to every registered session. Whether
// the sender receives its own echo is governed by EchoToSender.
func (s *Server) broadcastFrom(sender *Session, payload string) {
	line := sender.addr + ": " + payload
	for _, sess := range s.registry.snapshot() {
		if sess.evictionPending {
			continue
		}
		if sess == sender && !s.cfg.EchoToSender {
			continue
		}
		s.deliver(sess, line)
	}
}

// directed delivers a message to the single session whose address matches.
// When the address does not resolve, only the sender hears about it.
func (s *Server) directed(sender *Session, addr, payload string) {
	target, ok := s.registry.resolve(addr)
	if !ok {
		s.deliver(sender, adminPrefix+"directed delivery failed: "+addr+" not found")
		return
	}
	s.deliver(target, "from "+sender.addr+": "+payload)
}

// announce sends an administrative notice to every registered session except
// exclude (the subject of the notice, where applicable).
func (s *Server) announce(exclude *Session, text string) {
	line := adminPrefix + text
	for _, sess := range s.registry.snapshot() {
		if sess == exclude || sess.evictionPending {
			continue
		}
		s.deliver(sess, line)
	}
}

// announceRoster sends the refreshed roster, one line enumerating every live
// address, to all sessions except exclude.
func (s *Server) announceRoster(exclude *Session) {
	s.announce(exclude, "online: "+strings.Join(s.registry.roster(), ", "))
}
