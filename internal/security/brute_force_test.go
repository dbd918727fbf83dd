package security

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestGuard() (*BruteForceGuard, *fakeClock) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}

	return newGuard(DefaultLockoutPolicy, log, clock.now), clock
}

func TestBruteForce_ResetClearsCount(t *testing.T) {
	guard, _ := newTestGuard()

	guard.RecordFailure("10.0.0.1")
	guard.RecordFailure("10.0.0.1")
	guard.Reset("10.0.0.1")

	for range 4 {
		guard.RecordFailure("10.0.0.1")
	}

	if guard.IsBlocked("10.0.0.1") {
		t.Fatal("subject should not be blocked after reset")
	}
}

func TestBruteForce_BlocksAtMax(t *testing.T) {
	guard, _ := newTestGuard()

	for range 4 {
		guard.RecordFailure("10.0.0.2")
	}
	if guard.IsBlocked("10.0.0.2") {
		t.Fatal("subject should not be blocked before max failures")
	}

	guard.RecordFailure("10.0.0.2")
	if !guard.IsBlocked("10.0.0.2") {
		t.Fatal("subject should be blocked after max failures")
	}
	if guard.IsBlocked("10.0.0.3") {
		t.Fatal("other subjects must not be affected")
	}
}

func TestBruteForce_LockoutExpires(t *testing.T) {
	guard, clock := newTestGuard()

	for range 5 {
		guard.RecordFailure("10.0.0.4")
	}

	clock.t = clock.t.Add(DefaultLockoutPolicy.Lockout)
	if guard.IsBlocked("10.0.0.4") {
		t.Fatal("lockout should expire")
	}

	guard.sweep()
	if len(guard.records) != 0 {
		t.Fatalf("sweep left %d records, want 0", len(guard.records))
	}
}

func TestBruteForce_WindowResets(t *testing.T) {
	guard, clock := newTestGuard()

	for range 4 {
		guard.RecordFailure("10.0.0.5")
	}

	clock.t = clock.t.Add(DefaultLockoutPolicy.Window + time.Second)
	guard.RecordFailure("10.0.0.5")

	if guard.IsBlocked("10.0.0.5") {
		t.Fatal("failures outside the window should not accumulate")
	}
}
