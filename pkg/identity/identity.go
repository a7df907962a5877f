package identity

import (
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"mqtt-relay-controller/pkg/logger"
)

// initTimeout bounds how long the first derivation waits for the network
// stack to expose a hardware interface.
const initTimeout = 10 * time.Second

const pollInterval = 250 * time.Millisecond

var (
	once   sync.Once
	cached string
)

// Identity returns the stable device identifier derived from the first
// hardware network address: six bytes formatted as twelve uppercase hex
// digits separated by colons. The value is computed once and cached for the
// process lifetime; subsequent calls never recompute it.
//
// If no interface exposes a hardware address yet, the first call blocks up
// to initTimeout waiting for one, then falls back to the zero address.
func Identity() string {
	once.Do(func() {
		cached = derive()
		logger.LogStartup("Device identity: %s", cached)
	})
	return cached
}

func derive() string {
	deadline := time.Now().Add(initTimeout)
	for {
		if addr, ok := hardwareAddr(); ok {
			return Format(addr)
		}
		if time.Now().After(deadline) {
			logger.LogWarn("No hardware address available after %v, using zero address", initTimeout)
			return Format(make(net.HardwareAddr, 6))
		}
		time.Sleep(pollInterval)
	}
}

// hardwareAddr returns the first non-loopback interface hardware address
func hardwareAddr() (net.HardwareAddr, bool) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, false
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if len(iface.HardwareAddr) >= 6 {
			return iface.HardwareAddr, true
		}
	}
	return nil, false
}

// Format renders a hardware address as the canonical device identity string
func Format(addr net.HardwareAddr) string {
	parts := make([]string, 0, 6)
	for _, b := range addr[:6] {
		parts = append(parts, fmt.Sprintf("%02X", b))
	}
	return strings.Join(parts, ":")
}
