package recovery

import (
	"testing"
	"time"
)

func newTestReconnector() *Reconnector {
	return NewReconnector(ReconnectorConfig{
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     80 * time.Millisecond,
	})
}

func TestInitialAttemptIsImmediate(t *testing.T) {
	r := newTestReconnector()

	if r.State() != StateDisconnected {
		t.Fatalf("initial state = %v, want DISCONNECTED", r.State())
	}
	if !r.ShouldAttempt() {
		t.Error("first tick should attempt immediately")
	}
	if r.State() != StateConnecting {
		t.Errorf("state after first attempt = %v, want CONNECTING", r.State())
	}
}

func TestNoAttemptsWhileConnected(t *testing.T) {
	r := newTestReconnector()

	r.ShouldAttempt()
	r.OnSuccess()

	if r.State() != StateConnected {
		t.Fatalf("state = %v, want CONNECTED", r.State())
	}
	for i := 0; i < 3; i++ {
		if r.ShouldAttempt() {
			t.Fatal("connected state should suppress attempts")
		}
	}
}

func TestBackoffGatesAttempts(t *testing.T) {
	r := newTestReconnector()

	r.ShouldAttempt()
	r.OnFailure()

	if r.ShouldAttempt() {
		t.Error("attempt allowed before the backoff delay elapsed")
	}

	time.Sleep(15 * time.Millisecond)
	if !r.ShouldAttempt() {
		t.Error("attempt blocked after the backoff delay elapsed")
	}
}

func TestBackoffDoublesUpToCap(t *testing.T) {
	r := newTestReconnector()

	r.ShouldAttempt()

	expected := []time.Duration{
		20 * time.Millisecond,
		40 * time.Millisecond,
		80 * time.Millisecond,
		80 * time.Millisecond, // capped
		80 * time.Millisecond,
	}
	for i, want := range expected {
		r.OnFailure()
		if got := r.NextDelay(); got != want {
			t.Errorf("after failure %d: next delay = %v, want %v", i+1, got, want)
		}
	}
	if r.Attempts() != len(expected) {
		t.Errorf("attempts = %d, want %d", r.Attempts(), len(expected))
	}
}

func TestSuccessResetsBackoff(t *testing.T) {
	r := newTestReconnector()

	r.ShouldAttempt()
	r.OnFailure()
	r.OnFailure()
	r.OnSuccess()

	if r.NextDelay() != 10*time.Millisecond {
		t.Errorf("delay after success = %v, want the initial delay", r.NextDelay())
	}
	if r.Attempts() != 0 {
		t.Errorf("attempts after success = %d, want 0", r.Attempts())
	}
}

func TestLostSessionRestartsCycle(t *testing.T) {
	r := newTestReconnector()

	r.ShouldAttempt()
	r.OnSuccess()
	r.OnLost()

	if r.State() != StateDisconnected {
		t.Fatalf("state after loss = %v, want DISCONNECTED", r.State())
	}
	if !r.ShouldAttempt() {
		t.Error("tick after loss should attempt immediately")
	}
}

func TestConnStateString(t *testing.T) {
	cases := map[ConnState]string{
		StateDisconnected: "DISCONNECTED",
		StateConnecting:   "CONNECTING",
		StateConnected:    "CONNECTED",
		ConnState(99):     "UNKNOWN",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", state, got, want)
		}
	}
}
