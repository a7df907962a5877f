package netlink

import (
	"context"
	"net"
	"sync"
)

// SystemLink is the default Link implementation for host builds, where the
// operating system owns the physical association. Up and Down still track
// logical state so credential-swap semantics stay observable.
type SystemLink struct {
	mu sync.Mutex
	up bool
}

// NewSystemLink creates a system-backed link, initially down
func NewSystemLink() *SystemLink {
	return &SystemLink{}
}

// Up marks the link established. The host network stack is assumed to have
// already associated; credentials are accepted for protocol compatibility.
func (l *SystemLink) Up(ctx context.Context, ssid, secret string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.up = true
	return nil
}

// Down drops the logical link
func (l *SystemLink) Down() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.up = false
}

// IsUp reports the logical link state
func (l *SystemLink) IsUp() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.up
}

// Addr returns the first non-loopback unicast address of the host
func (l *SystemLink) Addr() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, addr := range addrs {
		if ipNet, ok := addr.(*net.IPNet); ok && !ipNet.IP.IsLoopback() && ipNet.IP.To4() != nil {
			return ipNet.IP.String()
		}
	}
	return ""
}
