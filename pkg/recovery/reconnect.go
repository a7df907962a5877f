package recovery

import (
	"sync"
	"time"
)

// ConnState represents the state of the reconnect state machine
type ConnState int

const (
	// StateDisconnected - no session, next tick may start an attempt
	StateDisconnected ConnState = iota
	// StateConnecting - an attempt is due or in flight
	StateConnecting
	// StateConnected - session established, attempts suspended
	StateConnected
)

// String returns the string representation of the connection state
func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	default:
		return "UNKNOWN"
	}
}

// Reconnector drives reconnection as an explicit state machine ticked by the
// control loop instead of a blocking retry loop, so the rest of the cycle is
// never starved while a session is down. Backoff between attempts grows
// exponentially up to a cap and resets on success.
type Reconnector struct {
	// Configuration
	initialDelay time.Duration // First retry delay
	maxDelay     time.Duration // Backoff cap

	// State
	state       ConnState
	delay       time.Duration
	nextAttempt time.Time
	attempts    int
	lastChange  time.Time

	// Thread safety
	mu sync.RWMutex
}

// ReconnectorConfig holds configuration for the reconnector
type ReconnectorConfig struct {
	InitialDelay time.Duration // Default: 5 seconds
	MaxDelay     time.Duration // Default: 80 seconds
}

// NewReconnector creates a new reconnect state machine in the disconnected state
func NewReconnector(config ReconnectorConfig) *Reconnector {
	if config.InitialDelay == 0 {
		config.InitialDelay = 5 * time.Second
	}
	if config.MaxDelay == 0 {
		config.MaxDelay = 80 * time.Second
	}

	return &Reconnector{
		initialDelay: config.InitialDelay,
		maxDelay:     config.MaxDelay,
		state:        StateDisconnected,
		delay:        config.InitialDelay,
		lastChange:   time.Now(),
	}
}

// ShouldAttempt reports whether a connection attempt is due on this tick.
// Returns false while connected or while the backoff delay has not elapsed.
func (r *Reconnector) ShouldAttempt() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case StateConnected:
		return false
	case StateDisconnected:
		r.state = StateConnecting
		r.nextAttempt = time.Time{}
		r.lastChange = time.Now()
		return true
	case StateConnecting:
		return r.nextAttempt.IsZero() || time.Now().After(r.nextAttempt)
	default:
		return false
	}
}

// OnSuccess records an established session and resets the backoff
func (r *Reconnector) OnSuccess() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state = StateConnected
	r.delay = r.initialDelay
	r.nextAttempt = time.Time{}
	r.attempts = 0
	r.lastChange = time.Now()
}

// OnFailure records a failed attempt and schedules the next one with
// exponential backoff up to the cap
func (r *Reconnector) OnFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state = StateConnecting
	r.attempts++
	r.nextAttempt = time.Now().Add(r.delay)
	r.lastChange = time.Now()

	r.delay *= 2
	if r.delay > r.maxDelay {
		r.delay = r.maxDelay
	}
}

// OnLost records a lost session; the next tick starts a fresh attempt cycle
func (r *Reconnector) OnLost() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateConnected {
		r.delay = r.initialDelay
	}
	r.state = StateDisconnected
	r.nextAttempt = time.Time{}
	r.lastChange = time.Now()
}

// State returns the current connection state
func (r *Reconnector) State() ConnState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Attempts returns the number of failed attempts since the last success
func (r *Reconnector) Attempts() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.attempts
}

// NextDelay returns the delay that will follow the next failure
func (r *Reconnector) NextDelay() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.delay
}

// TimeSinceLastChange returns the duration since the last state change
func (r *Reconnector) TimeSinceLastChange() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return time.Since(r.lastChange)
}
