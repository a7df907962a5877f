package services

import (
	"context"
	"time"

	"mqtt-relay-controller/pkg/connectivity"
	"mqtt-relay-controller/pkg/health"
	"mqtt-relay-controller/pkg/logger"
	"mqtt-relay-controller/pkg/metrics"
	"mqtt-relay-controller/pkg/recovery"
	"mqtt-relay-controller/pkg/relay"
	"mqtt-relay-controller/pkg/sensors"
	"mqtt-relay-controller/pkg/settings"
	"mqtt-relay-controller/pkg/telemetry"
)

// Connectivity is the slice of the connectivity manager the cycle needs
type Connectivity interface {
	Tick(ctx context.Context) recovery.ConnState
	DrainInbound(handler connectivity.MessageHandler)
	IsConnected() bool
	LinkUp() bool
	PublishAvailability(state string) bool
}

// SettingsHandler consumes one inbound settings message
type SettingsHandler interface {
	OnMessage(topic string, payload []byte) settings.Result
}

// ReadingSource acquires one sanitized reading per cycle
type ReadingSource interface {
	Read() sensors.Reading
}

// CycleService executes one control cycle in the fixed order: sensor read,
// relay evaluation, telemetry publish, inbound settings service,
// connectivity tick. Inbound changes therefore take effect no earlier than
// the following cycle's relay evaluation.
type CycleService struct {
	source    ReadingSource
	relay     *relay.Controller
	store     *settings.Store
	publisher *telemetry.Publisher
	httpVar   *telemetry.HTTPClient // nil unless the HTTP variant is enabled
	handler   SettingsHandler
	conn      Connectivity
	monitor   *health.Monitor
	collector metrics.Collector

	// Summary tracking for quieter steady-state logs
	lastSummaryTime time.Time
	publishOK       int
	publishFailed   int
}

// NewCycleService wires one control cycle
func NewCycleService(source ReadingSource, relayCtrl *relay.Controller, store *settings.Store,
	publisher *telemetry.Publisher, httpVar *telemetry.HTTPClient, handler SettingsHandler,
	conn Connectivity, monitor *health.Monitor, collector metrics.Collector) *CycleService {
	if collector == nil {
		collector = metrics.NewNullMetrics()
	}
	return &CycleService{
		source:          source,
		relay:           relayCtrl,
		store:           store,
		publisher:       publisher,
		httpVar:         httpVar,
		handler:         handler,
		conn:            conn,
		monitor:         monitor,
		collector:       collector,
		lastSummaryTime: time.Now(),
	}
}

// RunCycle executes one control cycle
func (s *CycleService) RunCycle(ctx context.Context) {
	reading := s.source.Read()
	snapshot := s.store.Snapshot()

	// Relay evaluation reads the per-cycle snapshot, never live settings
	before := s.relay.Switches()
	relayOn := s.relay.Evaluate(reading.TemperatureC, snapshot.Threshold, snapshot.Reverse, snapshot.Hysteresis)
	if s.relay.Switches() != before {
		s.collector.IncrementRelaySwitches()
	}

	s.publishTelemetry(reading, snapshot, relayOn)
	s.runHTTPVariant(reading, snapshot, relayOn)

	// Service pending settings messages after the publish so inbound changes
	// never affect the cycle that received them
	s.conn.DrainInbound(func(topic string, payload []byte) {
		result := s.handler.OnMessage(topic, payload)
		if result.Applied {
			s.collector.IncrementSettingsApplied()
		} else {
			s.collector.IncrementSettingsDiscarded()
			logger.LogDebug("Settings message %s", result)
		}
	})

	state := s.conn.Tick(ctx)
	s.collector.SetLinkStatus(s.conn.LinkUp())
	s.collector.SetBrokerStatus(state == recovery.StateConnected)

	s.collector.IncrementCycles()
	s.logSummary()
}

// publishTelemetry emits the cycle's telemetry and tracks availability
func (s *CycleService) publishTelemetry(reading sensors.Reading, snapshot settings.Snapshot, relayOn bool) {
	if s.publisher.Tick(reading, snapshot, relayOn) {
		s.publishOK++
		s.collector.IncrementPublishes()
		if s.monitor.RecordSuccess() {
			logger.LogInfo("🟢 Device back ONLINE - publishing restored")
			s.conn.PublishAvailability("online")
		}
		return
	}

	s.publishFailed++
	s.collector.IncrementPublishErrors()
	if s.monitor.RecordError() {
		logger.LogError("🔴 Grace period expired after %d errors - marking device OFFLINE",
			s.monitor.ConsecutiveErrors())
		s.conn.PublishAvailability("offline")
	}
}

// runHTTPVariant posts telemetry to the HTTP endpoint and polls the remote
// threshold when the variant is enabled
func (s *CycleService) runHTTPVariant(reading sensors.Reading, snapshot settings.Snapshot, relayOn bool) {
	if s.httpVar == nil {
		return
	}

	msg := s.publisher.Build(reading, snapshot, relayOn)
	if err := s.httpVar.PostTelemetry(msg); err != nil {
		logger.LogWarn("HTTP telemetry failed: %v", err)
	}

	threshold, err := s.httpVar.FetchThreshold()
	if err != nil {
		logger.LogTrace("Threshold poll skipped: %v", err)
		return
	}
	if threshold != snapshot.Threshold {
		s.store.SetThreshold(threshold)
		logger.LogInfo("Threshold updated to %.2f°C from HTTP endpoint", threshold)
	}
}

// logSummary emits a periodic publish summary instead of per-cycle noise
func (s *CycleService) logSummary() {
	if time.Since(s.lastSummaryTime) < 30*time.Second {
		return
	}

	logger.LogInfo("📊 Summary - Published: %d, Failed: %d, Relay: %s, Last 30s",
		s.publishOK, s.publishFailed, relayStateString(s.relay.IsOn()))
	s.lastSummaryTime = time.Now()
	s.publishOK = 0
	s.publishFailed = 0
}

func relayStateString(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
