package metrics

// Collector defines the interface for collecting controller metrics.
// Implementations:
//   - TextMetrics: counters with Prometheus text exposition over HTTP
//   - NullMetrics: zero-overhead no-op when metrics are disabled
type Collector interface {
	// IncrementCycles increments the counter for completed control cycles
	IncrementCycles()

	// IncrementPublishes increments the counter for successful telemetry publishes
	IncrementPublishes()

	// IncrementPublishErrors increments the counter for failed telemetry publishes
	IncrementPublishErrors()

	// IncrementRelaySwitches increments the counter for physical relay transitions
	IncrementRelaySwitches()

	// IncrementSettingsApplied increments the counter for applied settings messages
	IncrementSettingsApplied()

	// IncrementSettingsDiscarded increments the counter for discarded settings messages
	IncrementSettingsDiscarded()

	// SetLinkStatus sets the current network link status gauge
	SetLinkStatus(up bool)

	// SetBrokerStatus sets the current broker session status gauge
	SetBrokerStatus(connected bool)

	// StartServer starts an HTTP server exposing the metrics (0 disables it)
	StartServer(port int) error
}

// NullMetrics is a no-op collector used when metrics are disabled
type NullMetrics struct{}

// NewNullMetrics creates a no-op metrics collector
func NewNullMetrics() *NullMetrics { return &NullMetrics{} }

func (n *NullMetrics) IncrementCycles()            {}
func (n *NullMetrics) IncrementPublishes()         {}
func (n *NullMetrics) IncrementPublishErrors()     {}
func (n *NullMetrics) IncrementRelaySwitches()     {}
func (n *NullMetrics) IncrementSettingsApplied()   {}
func (n *NullMetrics) IncrementSettingsDiscarded() {}
func (n *NullMetrics) SetLinkStatus(bool)          {}
func (n *NullMetrics) SetBrokerStatus(bool)        {}
func (n *NullMetrics) StartServer(int) error       { return nil }

// Compile-time verification that both implementations satisfy Collector
var (
	_ Collector = (*NullMetrics)(nil)
	_ Collector = (*TextMetrics)(nil)
)
