package relay

import (
	"testing"
	"time"
)

func TestLimiterAllowsBurstThenBlocks(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l := newLimiter(3, time.Second, now)

	for i := 0; i < 3; i++ {
		if !l.allow(now) {
			t.Fatalf("allow() = false within burst, message %d", i+1)
		}
	}
	if l.allow(now) {
		t.Error("allow() = true past the burst with no time elapsed")
	}
}

func TestLimiterRefillsOverTime(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l := newLimiter(2, time.Second, now)

	l.allow(now)
	l.allow(now)
	if l.allow(now) {
		t.Fatal("bucket should be empty")
	}

	now = now.Add(time.Second)
	if !l.allow(now) {
		t.Error("allow() = false after a full refill interval")
	}
}

func TestLimiterCapsAtCapacity(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l := newLimiter(2, time.Second, now)

	// A long idle period must not bank more than the burst capacity.
	now = now.Add(time.Minute)
	allowed := 0
	for i := 0; i < 5; i++ {
		if l.allow(now) {
			allowed++
		}
	}
	if allowed != 2 {
		t.Errorf("allowed %d messages after long idle, want 2", allowed)
	}
}

func TestNilLimiterAllowsEverything(t *testing.T) {
	var l *limiter
	for i := 0; i < 100; i++ {
		if !l.allow(time.Now()) {
			t.Fatal("nil limiter blocked a message")
		}
	}

	if newLimiter(0, time.Second, time.Now()) != nil {
		t.Error("newLimiter(0, ...) should disable the limiter")
	}
}
