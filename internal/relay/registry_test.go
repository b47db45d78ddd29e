package relay

import (
	"reflect"
	"testing"
	"time"
)

func testSession(fd int, addr string) *Session {
	return newSession(&fakeConn{fd: fd, addr: addr}, time.Now(), RateLimitConfig{})
}

func TestRegistryAddAndLookup(t *testing.T) {
	reg := newRegistry()
	sess := testSession(5, "10.0.0.1:5000")

	if !reg.add(sess) {
		t.Fatal("add() rejected a fresh session")
	}
	if reg.len() != 1 {
		t.Fatalf("len() = %d, want 1", reg.len())
	}

	got, ok := reg.lookup(5)
	if !ok || got != sess {
		t.Fatal("lookup() did not return the registered session")
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := newRegistry()
	if !reg.add(testSession(5, "10.0.0.1:5000")) {
		t.Fatal("add() rejected the first session")
	}

	if reg.add(testSession(5, "10.0.0.2:6000")) {
		t.Error("add() accepted a duplicate handle")
	}
	if reg.add(testSession(6, "10.0.0.1:5000")) {
		t.Error("add() accepted a duplicate address")
	}
	if reg.len() != 1 {
		t.Errorf("len() = %d after duplicate inserts, want 1", reg.len())
	}
}

func TestRegistryResolve(t *testing.T) {
	reg := newRegistry()
	sess := testSession(5, "10.0.0.1:5000")
	reg.add(sess)

	if got, ok := reg.resolve("10.0.0.1:5000"); !ok || got != sess {
		t.Fatal("resolve() did not find the registered address")
	}
	if _, ok := reg.resolve("10.0.0.9:9999"); ok {
		t.Error("resolve() found an unregistered address")
	}

	sess.evictionPending = true
	if _, ok := reg.resolve("10.0.0.1:5000"); ok {
		t.Error("resolve() returned a session mid-teardown")
	}
}

func TestRegistryRemove(t *testing.T) {
	reg := newRegistry()
	sess := testSession(5, "10.0.0.1:5000")
	reg.add(sess)

	removed, ok := reg.remove(5)
	if !ok || removed != sess {
		t.Fatal("remove() did not return the session")
	}
	if reg.len() != 0 {
		t.Errorf("len() = %d after remove, want 0", reg.len())
	}
	if _, ok := reg.resolve("10.0.0.1:5000"); ok {
		t.Error("address still resolvable after remove")
	}
	if _, ok := reg.remove(5); ok {
		t.Error("remove() succeeded twice for the same handle")
	}
}

func TestRegistryTouch(t *testing.T) {
	reg := newRegistry()
	sess := testSession(5, "10.0.0.1:5000")
	reg.add(sess)

	later := sess.lastActivity.Add(3 * time.Second)
	reg.touch(5, later)
	if !sess.lastActivity.Equal(later) {
		t.Errorf("lastActivity = %v, want %v", sess.lastActivity, later)
	}
}

func TestRegistryRosterSortedAndUnique(t *testing.T) {
	reg := newRegistry()
	reg.add(testSession(7, "10.0.0.3:7000"))
	reg.add(testSession(5, "10.0.0.1:5000"))
	reg.add(testSession(6, "10.0.0.2:6000"))

	want := []string{"10.0.0.1:5000", "10.0.0.2:6000", "10.0.0.3:7000"}
	if got := reg.roster(); !reflect.DeepEqual(got, want) {
		t.Errorf("roster() = %v, want %v", got, want)
	}

	sess, _ := reg.lookup(6)
	sess.evictionPending = true
	want = []string{"10.0.0.1:5000", "10.0.0.3:7000"}
	if got := reg.roster(); !reflect.DeepEqual(got, want) {
		t.Errorf("roster() with pending eviction = %v, want %v", got, want)
	}
}
