// Package relay implements a token bucket flood limiter for per-session
// message throttling that protects the relay from abuse.
package relay

import "time"

// limiter is only ever touched by the reactor goroutine, so unlike a shared
// token bucket it needs no locking. A nil limiter allows everything.
type limiter struct {
	tokens   float64
	capacity float64
	rate     float64
	last     time.Time
}

func newLimiter(capacity int, interval time.Duration, now time.Time) *limiter {
	if capacity <= 0 {
		return nil
	}
	if interval <= 0 {
		interval = time.Second
	}

	rate := float64(capacity) / interval.Seconds()
	if rate <= 0 {
		rate = float64(capacity)
	}

	return &limiter{
		tokens:   float64(capacity),
		capacity: float64(capacity),
		rate:     rate,
		last:     now,
	}
}

func (l *limiter) allow(now time.Time) bool {
	if l == nil {
		return true
	}

	elapsed := now.Sub(l.last).Seconds()
	l.last = now

	if elapsed > 0 {
		l.tokens += elapsed * l.rate
		if l.tokens > l.capacity {
			l.tokens = l.capacity
		}
	}

	if l.tokens < 1 {
		return false
	}

	l.tokens--
	return true
}
