package settings

import (
	"sync"
)

// Credentials holds the network link credentials
type Credentials struct {
	SSID   string
	Secret string
}

// Snapshot is an immutable copy of the operating parameters, taken once per
// cycle by readers
type Snapshot struct {
	Threshold   float64
	Reverse     bool
	Hysteresis  float64
	Credentials Credentials
}

// Store owns the mutable operating parameters. There is exactly one writer
// (the settings handler); every other component reads through Snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// NewStore creates a store seeded with the startup defaults
func NewStore(defaults Snapshot) *Store {
	return &Store{snapshot: defaults}
}

// Snapshot returns a copy of the current parameters
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// SetThreshold overwrites the temperature threshold
func (s *Store) SetThreshold(threshold float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Threshold = threshold
}

// SetReverse overwrites the relay polarity
func (s *Store) SetReverse(reverse bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Reverse = reverse
}

// SetCredentials overwrites the link credentials
func (s *Store) SetCredentials(creds Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Credentials = creds
}
