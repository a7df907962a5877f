package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"mqtt-relay-controller/pkg/logger"
)

// TextMetrics tracks controller metrics and exposes them in Prometheus text
// format over HTTP
type TextMetrics struct {
	// Counters
	cyclesTotal            int64
	publishesTotal         int64
	publishErrorsTotal     int64
	relaySwitchesTotal     int64
	settingsAppliedTotal   int64
	settingsDiscardedTotal int64

	// Gauges
	linkStatus   int64 // 1 = up, 0 = down
	brokerStatus int64 // 1 = connected, 0 = disconnected

	mu sync.RWMutex
}

// NewTextMetrics creates a new metrics collector
func NewTextMetrics() *TextMetrics {
	return &TextMetrics{}
}

// IncrementCycles increments the control cycle counter
func (m *TextMetrics) IncrementCycles() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cyclesTotal++
}

// IncrementPublishes increments the telemetry publish counter
func (m *TextMetrics) IncrementPublishes() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishesTotal++
}

// IncrementPublishErrors increments the failed publish counter
func (m *TextMetrics) IncrementPublishErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishErrorsTotal++
}

// IncrementRelaySwitches increments the relay transition counter
func (m *TextMetrics) IncrementRelaySwitches() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.relaySwitchesTotal++
}

// IncrementSettingsApplied increments the applied settings counter
func (m *TextMetrics) IncrementSettingsApplied() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settingsAppliedTotal++
}

// IncrementSettingsDiscarded increments the discarded settings counter
func (m *TextMetrics) IncrementSettingsDiscarded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settingsDiscardedTotal++
}

// SetLinkStatus sets the network link status gauge
func (m *TextMetrics) SetLinkStatus(up bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.linkStatus = boolToGauge(up)
}

// SetBrokerStatus sets the broker session status gauge
func (m *TextMetrics) SetBrokerStatus(connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.brokerStatus = boolToGauge(connected)
}

// StartServer starts the metrics HTTP server on the given port
func (m *TextMetrics) StartServer(port int) error {
	if port == 0 {
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", m.handleMetrics)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.LogInfo("📊 Metrics server listening on :%d", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.LogError("Metrics server error: %v", err)
		}
	}()

	return nil
}

// handleMetrics serves the Prometheus text exposition
func (m *TextMetrics) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprint(w, m.Render())
}

// Render produces the Prometheus text exposition of all metrics
func (m *TextMetrics) Render() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := ""
	out += "# HELP relay_controller_cycles_total Total control cycles executed\n"
	out += "# TYPE relay_controller_cycles_total counter\n"
	out += fmt.Sprintf("relay_controller_cycles_total %d\n", m.cyclesTotal)

	out += "# HELP relay_controller_publishes_total Total successful telemetry publishes\n"
	out += "# TYPE relay_controller_publishes_total counter\n"
	out += fmt.Sprintf("relay_controller_publishes_total %d\n", m.publishesTotal)

	out += "# HELP relay_controller_publish_errors_total Total failed telemetry publishes\n"
	out += "# TYPE relay_controller_publish_errors_total counter\n"
	out += fmt.Sprintf("relay_controller_publish_errors_total %d\n", m.publishErrorsTotal)

	out += "# HELP relay_controller_relay_switches_total Total physical relay transitions\n"
	out += "# TYPE relay_controller_relay_switches_total counter\n"
	out += fmt.Sprintf("relay_controller_relay_switches_total %d\n", m.relaySwitchesTotal)

	out += "# HELP relay_controller_settings_applied_total Total applied settings messages\n"
	out += "# TYPE relay_controller_settings_applied_total counter\n"
	out += fmt.Sprintf("relay_controller_settings_applied_total %d\n", m.settingsAppliedTotal)

	out += "# HELP relay_controller_settings_discarded_total Total discarded settings messages\n"
	out += "# TYPE relay_controller_settings_discarded_total counter\n"
	out += fmt.Sprintf("relay_controller_settings_discarded_total %d\n", m.settingsDiscardedTotal)

	out += "# HELP relay_controller_link_up Network link status (1 = up)\n"
	out += "# TYPE relay_controller_link_up gauge\n"
	out += fmt.Sprintf("relay_controller_link_up %d\n", m.linkStatus)

	out += "# HELP relay_controller_broker_connected Broker session status (1 = connected)\n"
	out += "# TYPE relay_controller_broker_connected gauge\n"
	out += fmt.Sprintf("relay_controller_broker_connected %d\n", m.brokerStatus)

	return out
}

func boolToGauge(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
