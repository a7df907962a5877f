package netlink

import (
	"context"
	"fmt"
	"sync"
	"time"

	devicerrors "mqtt-relay-controller/pkg/errors"
	"mqtt-relay-controller/pkg/logger"
	"mqtt-relay-controller/pkg/settings"
)

// Link is the underlying network stack collaborator (WiFi driver or
// equivalent). Implementations are expected to be slow and unreliable;
// the manager owns all retry policy.
type Link interface {
	// Up initiates an association with the given credentials and returns
	// once the link is established or the attempt failed
	Up(ctx context.Context, ssid, secret string) error

	// Down drops the current association
	Down()

	// IsUp reports whether the link is currently established
	IsUp() bool

	// Addr returns the current network address, empty while down
	Addr() string
}

// Manager keeps the network link up with the currently held credentials and
// performs the bounded credential hot-swap when they change.
type Manager struct {
	link       Link
	retryDelay time.Duration
	swapWait   time.Duration

	mu    sync.Mutex
	creds settings.Credentials
}

// NewManager creates a link manager seeded with the startup credentials
func NewManager(link Link, creds settings.Credentials, retryDelay, swapWait time.Duration) *Manager {
	if retryDelay == 0 {
		retryDelay = 5 * time.Second
	}
	if swapWait == 0 {
		swapWait = 10 * time.Second
	}
	return &Manager{
		link:       link,
		retryDelay: retryDelay,
		swapWait:   swapWait,
		creds:      creds,
	}
}

// IsUp reports whether the link is currently established
func (m *Manager) IsUp() bool {
	return m.link.IsUp()
}

// Addr returns the current network address
func (m *Manager) Addr() string {
	return m.link.Addr()
}

// Credentials returns the currently held credential pair
func (m *Manager) Credentials() settings.Credentials {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds
}

// EnsureUp brings the link up with the currently held credentials, retrying
// with a fixed delay until success or context cancellation. Failures are
// never fatal; they degrade to repeated retry.
func (m *Manager) EnsureUp(ctx context.Context) error {
	attempt := 1
	for {
		if m.link.IsUp() {
			return nil
		}

		creds := m.Credentials()
		logger.LogDebug("Bringing up link (ssid: %s, attempt %d)...", creds.SSID, attempt)

		if err := m.link.Up(ctx, creds.SSID, creds.Secret); err == nil && m.link.IsUp() {
			logger.LogInfo("✅ Link up (ssid: %s, addr: %s) after %d attempts", creds.SSID, m.link.Addr(), attempt)
			return nil
		} else if err != nil {
			logger.LogWarn("Link attempt %d failed: %v", attempt, err)
		}

		select {
		case <-ctx.Done():
			return devicerrors.NewLinkError("bring up link", ctx.Err(), creds.SSID)
		case <-time.After(m.retryDelay):
			attempt++
		}
	}
}

// TryUpOnce makes a single bounded bring-up attempt with the currently held
// credentials. Used by the non-blocking reconnect tick.
func (m *Manager) TryUpOnce(ctx context.Context) error {
	if m.link.IsUp() {
		return nil
	}

	creds := m.Credentials()
	if err := m.link.Up(ctx, creds.SSID, creds.Secret); err != nil {
		return devicerrors.NewLinkError("bring up link", err, creds.SSID)
	}
	if !m.link.IsUp() {
		return devicerrors.NewLinkError("bring up link", fmt.Errorf("link did not come up"), creds.SSID)
	}

	logger.LogInfo("✅ Link up (ssid: %s, addr: %s)", creds.SSID, m.link.Addr())
	return nil
}

// SwapCredentials drops the current link and reinitiates it with the new
// credentials, waiting up to the configured bound for success.
//
// There is deliberately no rollback: on timeout the link stays down and the
// steady-state reconnect loop keeps retrying with the new (possibly wrong)
// credentials. The device fails forward onto whatever it was last told.
func (m *Manager) SwapCredentials(creds settings.Credentials) error {
	m.mu.Lock()
	m.creds = creds
	m.mu.Unlock()

	logger.LogInfo("🔄 Credential hot-swap: reconnecting to ssid '%s'...", creds.SSID)
	m.link.Down()

	ctx, cancel := context.WithTimeout(context.Background(), m.swapWait)
	defer cancel()

	if err := m.link.Up(ctx, creds.SSID, creds.Secret); err != nil || !m.link.IsUp() {
		if err == nil {
			err = fmt.Errorf("link did not come up within %v", m.swapWait)
		}
		return devicerrors.NewLinkError("credential hot-swap", err, creds.SSID)
	}

	logger.LogInfo("✅ Credential hot-swap complete (addr: %s)", m.link.Addr())
	return nil
}
