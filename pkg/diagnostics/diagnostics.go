package diagnostics

import (
	"encoding/json"
	"time"

	"mqtt-relay-controller/pkg/logger"

	"github.com/google/uuid"
)

// Diagnostic codes published on the diagnostic topic
const (
	CodeOK              = 0
	CodeProvisionError  = 1
	CodeLinkError       = 2
	CodeBrokerError     = 3
	CodeCredentialSwap  = 4
	CodePublishDegraded = 5
)

// Message is a diagnostic event payload
type Message struct {
	DeviceID  string `json:"deviceId"`
	SessionID string `json:"sessionId"`
	Code      int    `json:"code"`
	Text      string `json:"message"`
	Uptime    int64  `json:"uptime"`
}

// Sink is where diagnostic messages go; satisfied by the connectivity manager
type Sink interface {
	Publish(topic string, payload []byte) bool
}

// Reporter publishes diagnostic events for one boot session. Each process
// gets a fresh session id so fleet-side logs can distinguish restarts from
// reconnects of the same boot.
type Reporter struct {
	sink      Sink
	topic     string
	deviceID  string
	sessionID string
	bootTime  time.Time
}

// NewReporter creates a diagnostic reporter with a fresh boot session id
func NewReporter(sink Sink, topic, deviceID string) *Reporter {
	sessionID := uuid.NewString()
	logger.LogStartup("Boot session: %s", sessionID)

	return &Reporter{
		sink:      sink,
		topic:     topic,
		deviceID:  deviceID,
		sessionID: sessionID,
		bootTime:  time.Now(),
	}
}

// SessionID returns the per-boot session identifier
func (r *Reporter) SessionID() string {
	return r.sessionID
}

// Report publishes one diagnostic event. Failures are non-fatal; diagnostics
// are best-effort.
func (r *Reporter) Report(code int, text string) {
	if r.topic == "" {
		return
	}

	msg := Message{
		DeviceID:  r.deviceID,
		SessionID: r.sessionID,
		Code:      code,
		Text:      text,
		Uptime:    time.Since(r.bootTime).Milliseconds(),
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		logger.LogError("Error serializing diagnostic: %v", err)
		return
	}

	if !r.sink.Publish(r.topic, payload) {
		logger.LogDebug("Diagnostic publish skipped (code %d)", code)
	}
}
