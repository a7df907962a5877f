package telemetry

import (
	"encoding/json"
	"time"

	"mqtt-relay-controller/pkg/logger"
	"mqtt-relay-controller/pkg/sensors"
	"mqtt-relay-controller/pkg/settings"
)

// Message is the telemetry payload published every cycle.
// Timestamp is the device's monotonic uptime in milliseconds, not wall-clock
// time; downstream consumers must not assume epoch semantics.
type Message struct {
	DeviceID             string  `json:"deviceId"`
	Temperature          float64 `json:"temperature"`
	Voltage              float64 `json:"voltage"`
	Current              float64 `json:"current"`
	Power                float64 `json:"power"`
	RelayState           bool    `json:"relayState"`
	TemperatureThreshold float64 `json:"temperatureThreshold"`
	Timestamp            int64   `json:"timestamp"`
}

// Sink is where assembled telemetry goes; satisfied by the connectivity manager
type Sink interface {
	Publish(topic string, payload []byte) bool
}

// Publisher assembles and emits telemetry messages on the data topic
type Publisher struct {
	sink      Sink
	dataTopic string
	deviceID  string
	bootTime  time.Time
}

// NewPublisher creates a telemetry publisher for the given device identity
func NewPublisher(sink Sink, dataTopic, deviceID string) *Publisher {
	return &Publisher{
		sink:      sink,
		dataTopic: dataTopic,
		deviceID:  deviceID,
		bootTime:  time.Now(),
	}
}

// Build assembles one telemetry message from the cycle's inputs. Every
// reading field is sanitized before use.
func (p *Publisher) Build(reading sensors.Reading, snapshot settings.Snapshot, relayOn bool) Message {
	clean := sensors.SanitizeReading(reading)
	return Message{
		DeviceID:             p.deviceID,
		Temperature:          clean.TemperatureC,
		Voltage:              clean.Voltage,
		Current:              clean.Current,
		Power:                clean.Power,
		RelayState:           relayOn,
		TemperatureThreshold: snapshot.Threshold,
		Timestamp:            p.Uptime().Milliseconds(),
	}
}

// Tick publishes one telemetry message. A failed publish is logged and
// dropped; the next scheduled cycle is the retry mechanism.
func (p *Publisher) Tick(reading sensors.Reading, snapshot settings.Snapshot, relayOn bool) bool {
	msg := p.Build(reading, snapshot, relayOn)

	payload, err := json.Marshal(msg)
	if err != nil {
		logger.LogError("Error serializing telemetry: %v", err)
		return false
	}

	logger.LogTrace("Publishing telemetry: %s", payload)

	if !p.sink.Publish(p.dataTopic, payload) {
		logger.LogWarn("Telemetry publish failed, will retry next cycle")
		return false
	}

	return true
}

// Uptime returns the monotonic uptime since publisher creation
func (p *Publisher) Uptime() time.Duration {
	return time.Since(p.bootTime)
}
