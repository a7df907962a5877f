package settings

import (
	"encoding/json"
	"fmt"

	devicerrors "mqtt-relay-controller/pkg/errors"
	"mqtt-relay-controller/pkg/logger"
)

// Message is the inbound settings payload. Every field except DeviceID is
// optional; absence means no change requested for that field.
type Message struct {
	DeviceID  *string  `json:"deviceId"`
	Threshold *float64 `json:"threshold,omitempty"`
	Reverse   *bool    `json:"reverseRelay,omitempty"`
	SSID      *string  `json:"ssid,omitempty"`
	Secret    *string  `json:"password,omitempty"`
}

// Result reports what a settings message changed. Discarded messages produce
// no state change; the reason is carried here instead of surfacing on the
// wire protocol.
type Result struct {
	Applied            bool
	ThresholdChanged   bool
	ReverseChanged     bool
	CredentialsChanged bool
	Discard            *devicerrors.SettingsError
}

// CredentialSwapper performs the bounded credential hot-swap when link
// credentials change
type CredentialSwapper interface {
	SwapCredentials(creds Credentials) error
}

// Handler consumes inbound settings messages, filters them by device
// identity, and applies validated changes to the store
type Handler struct {
	store    *Store
	identity string
	swapper  CredentialSwapper
}

// NewHandler creates a settings handler for the given device identity
func NewHandler(store *Store, identity string, swapper CredentialSwapper) *Handler {
	return &Handler{
		store:    store,
		identity: identity,
		swapper:  swapper,
	}
}

// OnMessage applies one inbound settings payload. Invalid or unaddressed
// messages leave the store untouched; the result carries the discard reason
// for callers and tests while the wire protocol stays silent.
func (h *Handler) OnMessage(topic string, payload []byte) Result {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return discard("parse settings payload", err, devicerrors.ReasonBadPayload)
	}

	if msg.DeviceID == nil {
		return discard("filter settings message", nil, devicerrors.ReasonMissingDeviceID)
	}
	if *msg.DeviceID != h.identity {
		logger.LogTrace("Settings message for %s ignored (this device is %s)", *msg.DeviceID, h.identity)
		return discard("filter settings message", nil, devicerrors.ReasonWrongDevice)
	}

	var result Result
	result.Applied = true

	if msg.Threshold != nil {
		if *msg.Threshold > 0 {
			h.store.SetThreshold(*msg.Threshold)
			result.ThresholdChanged = true
			logger.LogInfo("Threshold updated to %.2f°C", *msg.Threshold)
		} else {
			// Non-positive thresholds leave the prior value untouched
			logger.LogWarn("Ignoring non-positive threshold %.2f", *msg.Threshold)
		}
	}

	if msg.Reverse != nil {
		h.store.SetReverse(*msg.Reverse)
		result.ReverseChanged = true
		logger.LogInfo("Relay polarity reverse=%v", *msg.Reverse)
	}

	if changed, creds := h.mergeCredentials(msg); changed {
		h.store.SetCredentials(creds)
		result.CredentialsChanged = true
		logger.LogInfo("Link credentials updated (ssid: %s), swapping connection", creds.SSID)

		if h.swapper != nil {
			if err := h.swapper.SwapCredentials(creds); err != nil {
				// Fail-forward: the link stays down on the new credentials and
				// the steady-state reconnect loop keeps retrying with them.
				logger.LogError("Credential swap failed: %v", err)
			}
		}
	}

	return result
}

// mergeCredentials computes the new credential pair, overwriting only fields
// that actually differ so an unchanged ssid or secret never triggers a
// spurious reconnection
func (h *Handler) mergeCredentials(msg Message) (bool, Credentials) {
	current := h.store.Snapshot().Credentials
	next := current
	changed := false

	if msg.SSID != nil && *msg.SSID != current.SSID {
		next.SSID = *msg.SSID
		changed = true
	}
	if msg.Secret != nil && *msg.Secret != current.Secret {
		next.Secret = *msg.Secret
		changed = true
	}

	return changed, next
}

func discard(op string, err error, reason devicerrors.DiscardReason) Result {
	settingsErr := devicerrors.NewSettingsError(op, err, reason)
	if reason == devicerrors.ReasonBadPayload {
		logger.LogTrace("%v", settingsErr)
	}
	return Result{Discard: settingsErr}
}

// String renders a result for debug logging
func (r Result) String() string {
	if r.Discard != nil {
		return fmt.Sprintf("discarded (%s)", r.Discard.Reason)
	}
	return fmt.Sprintf("applied (threshold=%v reverse=%v credentials=%v)",
		r.ThresholdChanged, r.ReverseChanged, r.CredentialsChanged)
}
