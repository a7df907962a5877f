package connectivity

import (
	"context"
	"sync"

	devicerrors "mqtt-relay-controller/pkg/errors"
	"mqtt-relay-controller/pkg/logger"
	"mqtt-relay-controller/pkg/netlink"
	"mqtt-relay-controller/pkg/recovery"
	"mqtt-relay-controller/pkg/topics"
)

// inboundQueueSize bounds how many unserviced settings messages are carried
// between cycles. The queue only bridges async delivery to the synchronous
// cycle point; it is not a buffer.
const inboundQueueSize = 4

type inboundMessage struct {
	topic   string
	payload []byte
}

// IdentityFunc supplies the device identity; re-evaluated on every
// (re)connect attempt so the client id always follows it
type IdentityFunc func() string

// Manager keeps the two-layer connection (network link + broker session) up
// and exposes publish/subscribe primitives to the rest of the controller.
// Reconnection is driven by the non-blocking Tick so a downed broker never
// starves the control cycle.
type Manager struct {
	link        *netlink.Manager
	factory     SessionFactory
	reconnector *recovery.Reconnector
	identity    IdentityFunc

	settingsTopic     string
	availabilityTopic string
	broker            string

	// onConnected runs after every successful (re)connect + subscribe;
	// the application uses it for the recovery announcement publish
	onConnected func()

	mu      sync.Mutex
	session BrokerSession
	inbound chan inboundMessage
}

// NewManager creates a connectivity manager
func NewManager(link *netlink.Manager, factory SessionFactory, reconnector *recovery.Reconnector,
	identityFn IdentityFunc, broker, settingsTopic, availabilityTopic string) *Manager {
	return &Manager{
		link:              link,
		factory:           factory,
		reconnector:       reconnector,
		identity:          identityFn,
		settingsTopic:     settingsTopic,
		availabilityTopic: availabilityTopic,
		broker:            broker,
		inbound:           make(chan inboundMessage, inboundQueueSize),
	}
}

// SetOnConnected registers the callback invoked after every successful
// (re)connect. Must be called before the first Tick.
func (m *Manager) SetOnConnected(fn func()) {
	m.onConnected = fn
}

// State returns the current reconnect state
func (m *Manager) State() recovery.ConnState {
	return m.reconnector.State()
}

// LinkUp reports whether the underlying network link is established
func (m *Manager) LinkUp() bool {
	return m.link.IsUp()
}

// IsConnected reports whether the broker session is currently established
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	session := m.session
	m.mu.Unlock()
	return session != nil && session.IsConnected()
}

// Tick advances the reconnect state machine by at most one connect attempt.
// Called once per control cycle; returns the resulting state.
func (m *Manager) Tick(ctx context.Context) recovery.ConnState {
	if m.IsConnected() && m.link.IsUp() {
		return m.reconnector.State()
	}

	if m.IsConnected() && !m.link.IsUp() {
		// Link dropped under an established session; tear the session down
		// so the next attempt rebuilds both layers
		logger.LogWarn("Network link down, dropping broker session")
		m.dropSession()
		m.reconnector.OnLost()
	}

	if !m.reconnector.ShouldAttempt() {
		return m.reconnector.State()
	}

	if err := m.connectOnce(ctx); err != nil {
		m.reconnector.OnFailure()
		logger.LogWarn("Connect attempt %d failed (next delay %v): %v",
			m.reconnector.Attempts(), m.reconnector.NextDelay(), err)
		return m.reconnector.State()
	}

	m.reconnector.OnSuccess()
	return m.reconnector.State()
}

// connectOnce makes one attempt to bring up the link and broker session
func (m *Manager) connectOnce(ctx context.Context) error {
	if !m.link.IsUp() {
		if err := m.link.TryUpOnce(ctx); err != nil {
			return err
		}
	}

	// Re-derive the client id on every attempt
	clientID := topics.BuildClientID(m.identity())
	logger.LogDebug("Connecting to broker as '%s'...", clientID)

	session := m.factory(clientID, func(err error) {
		m.reconnector.OnLost()
	})

	if err := session.Connect(); err != nil {
		return devicerrors.NewBrokerError("connect session", err, m.broker)
	}

	if err := session.Subscribe(m.settingsTopic, 1, m.enqueueInbound); err != nil {
		session.Disconnect()
		return devicerrors.NewBrokerError("subscribe settings topic", err, m.broker)
	}

	m.mu.Lock()
	m.session = session
	m.mu.Unlock()

	logger.LogInfo("✅ Connected to broker as '%s', subscribed to %s", clientID, m.settingsTopic)

	if m.availabilityTopic != "" {
		if err := session.Publish(m.availabilityTopic, 1, true, []byte("online")); err != nil {
			logger.LogWarn("Error publishing online status: %v", err)
		}
	}

	// Recovery announcement: one immediate telemetry publish reflecting the
	// current sensor and relay state
	if m.onConnected != nil {
		m.onConnected()
	}

	return nil
}

// Publish sends one message on the given topic. Returns false (and logs,
// non-fatally) when the session is not established; callers do not queue or
// retry beyond the next scheduled cycle.
func (m *Manager) Publish(topic string, payload []byte) bool {
	m.mu.Lock()
	session := m.session
	m.mu.Unlock()

	if session == nil || !session.IsConnected() {
		logger.LogWarn("Publish to %s skipped: broker session not established", topic)
		return false
	}

	if err := session.Publish(topic, 0, false, payload); err != nil {
		logger.LogError("Error publishing to %s: %v", topic, err)
		return false
	}

	return true
}

// DrainInbound services pending inbound settings messages in arrival order
func (m *Manager) DrainInbound(handler MessageHandler) {
	for {
		select {
		case msg := <-m.inbound:
			handler(msg.topic, msg.payload)
		default:
			return
		}
	}
}

// PublishAvailability publishes an explicit availability state (retained)
func (m *Manager) PublishAvailability(state string) bool {
	if m.availabilityTopic == "" {
		return false
	}
	m.mu.Lock()
	session := m.session
	m.mu.Unlock()

	if session == nil || !session.IsConnected() {
		return false
	}
	if err := session.Publish(m.availabilityTopic, 1, true, []byte(state)); err != nil {
		logger.LogWarn("Error publishing availability '%s': %v", state, err)
		return false
	}
	return true
}

// RestartSession drops the current broker session so the next tick rebuilds
// it. Used after a credential hot-swap.
func (m *Manager) RestartSession() {
	m.dropSession()
	m.reconnector.OnLost()
}

// Disconnect closes the broker session for shutdown
func (m *Manager) Disconnect() {
	m.mu.Lock()
	session := m.session
	m.session = nil
	m.mu.Unlock()

	if session != nil {
		if session.IsConnected() {
			_ = session.Publish(m.availabilityTopic, 1, true, []byte("offline"))
		}
		session.Disconnect()
	}
}

// enqueueInbound carries an async broker delivery to the cycle's service
// point. When the queue is full the oldest message is dropped: state beyond
// the current cycle is never buffered.
func (m *Manager) enqueueInbound(topic string, payload []byte) {
	msg := inboundMessage{topic: topic, payload: payload}
	for {
		select {
		case m.inbound <- msg:
			return
		default:
			select {
			case dropped := <-m.inbound:
				logger.LogWarn("Inbound queue full, dropped message from %s", dropped.topic)
			default:
			}
		}
	}
}

func (m *Manager) dropSession() {
	m.mu.Lock()
	session := m.session
	m.session = nil
	m.mu.Unlock()

	if session != nil {
		session.Disconnect()
	}
}
