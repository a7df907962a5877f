package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"mqtt-relay-controller/pkg/connectivity"
	"mqtt-relay-controller/pkg/health"
	"mqtt-relay-controller/pkg/recovery"
	"mqtt-relay-controller/pkg/relay"
	"mqtt-relay-controller/pkg/sensors"
	"mqtt-relay-controller/pkg/settings"
	"mqtt-relay-controller/pkg/telemetry"
)

const testIdentity = "AA:BB:CC:DD:EE:FF"

type nullOutput struct{}

func (nullOutput) Set(bool) {}

// fakeConn stands in for the connectivity manager: inbound messages are
// queued by tests and drained by the cycle
type fakeConn struct {
	inbound      [][]byte
	availability []string
	ticks        int
}

func (f *fakeConn) Tick(ctx context.Context) recovery.ConnState {
	f.ticks++
	return recovery.StateConnected
}

func (f *fakeConn) DrainInbound(handler connectivity.MessageHandler) {
	pending := f.inbound
	f.inbound = nil
	for _, payload := range pending {
		handler("device/settings", payload)
	}
}

func (f *fakeConn) IsConnected() bool { return true }

func (f *fakeConn) LinkUp() bool { return true }

func (f *fakeConn) PublishAvailability(state string) bool {
	f.availability = append(f.availability, state)
	return true
}

type publishSink struct {
	payloads [][]byte
	fail     bool
}

func (s *publishSink) Publish(topic string, payload []byte) bool {
	if s.fail {
		return false
	}
	s.payloads = append(s.payloads, payload)
	return true
}

func (s *publishSink) lastMessage(t *testing.T) telemetry.Message {
	t.Helper()
	if len(s.payloads) == 0 {
		t.Fatal("no telemetry published")
	}
	var msg telemetry.Message
	if err := json.Unmarshal(s.payloads[len(s.payloads)-1], &msg); err != nil {
		t.Fatalf("telemetry payload is not valid JSON: %v", err)
	}
	return msg
}

type harness struct {
	sim     *sensors.SimulatedSource
	relay   *relay.Controller
	store   *settings.Store
	sink    *publishSink
	conn    *fakeConn
	monitor *health.Monitor
	service *CycleService
}

func newHarness(grace time.Duration) *harness {
	h := &harness{
		sim:  sensors.NewSimulatedSource(24.0, 230.0, 0.5),
		sink: &publishSink{},
		conn: &fakeConn{},
	}
	h.relay = relay.NewController(nullOutput{}, nullOutput{})
	h.store = settings.NewStore(settings.Snapshot{Threshold: 25.0})
	h.monitor = health.NewMonitor(grace)

	source := &sensors.Source{Temperature: h.sim, Meter: h.sim}
	publisher := telemetry.NewPublisher(h.sink, "device/data", testIdentity)
	handler := settings.NewHandler(h.store, testIdentity, nil)

	h.service = NewCycleService(source, h.relay, h.store, publisher, nil,
		handler, h.conn, h.monitor, nil)
	return h
}

func TestCycleBelowThresholdKeepsRelayOff(t *testing.T) {
	h := newHarness(0)
	h.sim.SetTemperature(24.0)

	h.service.RunCycle(context.Background())

	if h.relay.IsOn() {
		t.Error("relay should be off at 24.0 with threshold 25.0")
	}
	msg := h.sink.lastMessage(t)
	if msg.RelayState {
		t.Error("telemetry should report relay off")
	}
	if msg.Temperature != 24.0 || msg.TemperatureThreshold != 25.0 {
		t.Errorf("telemetry = %+v, want t=24.0 threshold=25.0", msg)
	}
	if h.conn.ticks != 1 {
		t.Errorf("connectivity ticks = %d, want 1", h.conn.ticks)
	}
}

func TestCycleAboveThresholdSwitchesRelayOn(t *testing.T) {
	h := newHarness(0)
	h.sim.SetTemperature(26.0)

	h.service.RunCycle(context.Background())

	if !h.relay.IsOn() {
		t.Error("relay should be on at 26.0 with threshold 25.0")
	}
	if !h.sink.lastMessage(t).RelayState {
		t.Error("telemetry should report relay on")
	}
}

func TestCycleReversedPolarity(t *testing.T) {
	h := newHarness(0)
	h.store.SetReverse(true)
	h.sim.SetTemperature(24.0)

	h.service.RunCycle(context.Background())

	if !h.relay.IsOn() {
		t.Error("reversed relay should be on below threshold")
	}
}

func TestSettingsTakeEffectNextCycle(t *testing.T) {
	h := newHarness(0)
	h.sim.SetTemperature(26.0)

	// The settings message arrives during this cycle, after the publish point
	h.conn.inbound = append(h.conn.inbound,
		[]byte(`{"deviceId":"AA:BB:CC:DD:EE:FF","threshold":30}`))
	h.service.RunCycle(context.Background())

	// The receiving cycle still evaluated and published on the old threshold
	if !h.relay.IsOn() {
		t.Error("relay should be on during the receiving cycle (threshold still 25)")
	}
	if msg := h.sink.lastMessage(t); msg.TemperatureThreshold != 25.0 {
		t.Errorf("receiving cycle published threshold %v, want 25.0", msg.TemperatureThreshold)
	}

	// The next cycle applies the new threshold: 26.0 < 30.0 switches off
	h.service.RunCycle(context.Background())
	if h.relay.IsOn() {
		t.Error("relay should be off once the new threshold applies")
	}
	if msg := h.sink.lastMessage(t); msg.TemperatureThreshold != 30.0 {
		t.Errorf("next cycle published threshold %v, want 30.0", msg.TemperatureThreshold)
	}
}

func TestForeignSettingsMessageIgnored(t *testing.T) {
	h := newHarness(0)

	h.conn.inbound = append(h.conn.inbound,
		[]byte(`{"deviceId":"11:22:33:44:55:66","threshold":30}`))
	h.service.RunCycle(context.Background())
	h.service.RunCycle(context.Background())

	if got := h.store.Snapshot().Threshold; got != 25.0 {
		t.Errorf("threshold = %v, want 25.0 untouched by foreign message", got)
	}
}

func TestPublishFailuresMarkOfflineAfterGrace(t *testing.T) {
	h := newHarness(time.Millisecond)
	h.sink.fail = true

	// First failure starts the grace window
	h.service.RunCycle(context.Background())
	if len(h.conn.availability) != 0 {
		t.Fatalf("availability published inside grace period: %v", h.conn.availability)
	}

	time.Sleep(5 * time.Millisecond)

	// Grace expired: exactly one offline publish across repeated failures
	h.service.RunCycle(context.Background())
	h.service.RunCycle(context.Background())

	if len(h.conn.availability) != 1 || h.conn.availability[0] != "offline" {
		t.Fatalf("availability = %v, want exactly one 'offline'", h.conn.availability)
	}
	if h.monitor.IsOnline() {
		t.Error("monitor should report offline")
	}

	// Recovery announces online again
	h.sink.fail = false
	h.service.RunCycle(context.Background())

	if len(h.conn.availability) != 2 || h.conn.availability[1] != "online" {
		t.Errorf("availability = %v, want 'online' after recovery", h.conn.availability)
	}
	if !h.monitor.IsOnline() {
		t.Error("monitor should report online after recovery")
	}
}
