package health

import (
	"sync"
	"time"
)

// Monitor tracks publish success/failure and decides when the device should
// be marked offline on the availability topic. Errors inside the grace
// period keep the status online to avoid oscillation on transient failures.
type Monitor struct {
	isOnline           bool
	consecutiveErrors  int
	firstErrorTime     time.Time
	lastSuccessTime    time.Time
	gracePeriod        time.Duration
	statusSetToOffline bool
	mu                 sync.RWMutex
}

// NewMonitor creates a monitor starting in the online state
func NewMonitor(gracePeriod time.Duration) *Monitor {
	if gracePeriod == 0 {
		gracePeriod = 15 * time.Second
	}
	return &Monitor{
		isOnline:    true,
		gracePeriod: gracePeriod,
	}
}

// IsOnline returns whether the device is currently considered online
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isOnline
}

// RecordSuccess records a successful publish. Returns true when this success
// brings the device back from offline, so the caller can announce recovery.
func (m *Monitor) RecordSuccess() (cameBackOnline bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.consecutiveErrors = 0
	m.firstErrorTime = time.Time{}
	m.statusSetToOffline = false
	m.lastSuccessTime = time.Now()

	if !m.isOnline {
		m.isOnline = true
		return true
	}
	return false
}

// RecordError records a failed publish. Returns true when the grace period
// has expired and the device should be marked offline (exactly once per
// error sequence).
func (m *Monitor) RecordError() (shouldMarkOffline bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.consecutiveErrors++
	if m.firstErrorTime.IsZero() {
		m.firstErrorTime = time.Now()
	}

	if m.statusSetToOffline {
		return false
	}
	if time.Since(m.firstErrorTime) < m.gracePeriod {
		return false
	}

	m.isOnline = false
	m.statusSetToOffline = true
	return true
}

// ConsecutiveErrors returns the current error streak length
func (m *Monitor) ConsecutiveErrors() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.consecutiveErrors
}

// LastSuccessTime returns the time of the last successful publish
func (m *Monitor) LastSuccessTime() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSuccessTime
}
