package errors

import (
	"fmt"
)

// ErrorSeverity defines the severity level of an error
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

// String returns the string representation of the severity
func (s ErrorSeverity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// DeviceError is the base error type for all controller errors
type DeviceError struct {
	Op       string        // Operation that failed
	Err      error         // Underlying error
	Severity ErrorSeverity // Error severity
	Code     int           // Diagnostic code for MQTT
}

// Error implements the error interface
func (e *DeviceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Severity, e.Op, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Severity, e.Op)
}

// Unwrap returns the underlying error
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// LinkError represents errors from the network link layer
type LinkError struct {
	DeviceError
	SSID string
}

// NewLinkError creates a new network link error
func NewLinkError(op string, err error, ssid string) *LinkError {
	return &LinkError{
		DeviceError: DeviceError{
			Op:       op,
			Err:      err,
			Severity: SeverityError,
			Code:     2, // Link error diagnostic code
		},
		SSID: ssid,
	}
}

// Error implements the error interface
func (e *LinkError) Error() string {
	return fmt.Sprintf("[%s] Link '%s': %s: %v", e.Severity, e.SSID, e.Op, e.Err)
}

// BrokerError represents errors from MQTT broker operations
type BrokerError struct {
	DeviceError
	Broker string
	Topic  string
}

// NewBrokerError creates a new broker error
func NewBrokerError(op string, err error, broker string) *BrokerError {
	return &BrokerError{
		DeviceError: DeviceError{
			Op:       op,
			Err:      err,
			Severity: SeverityError,
			Code:     3, // Broker error diagnostic code
		},
		Broker: broker,
	}
}

// Error implements the error interface
func (e *BrokerError) Error() string {
	if e.Topic != "" {
		return fmt.Sprintf("[%s] Broker '%s' (topic: %s): %s: %v",
			e.Severity, e.Broker, e.Topic, e.Op, e.Err)
	}
	return fmt.Sprintf("[%s] Broker '%s': %s: %v",
		e.Severity, e.Broker, e.Op, e.Err)
}

// DiscardReason explains why an inbound settings message produced no state change.
// The wire protocol stays silent about these; they exist so handlers can report
// the outcome to callers and tests.
type DiscardReason int

const (
	ReasonNone DiscardReason = iota
	ReasonBadPayload
	ReasonMissingDeviceID
	ReasonWrongDevice
	ReasonInvalidThreshold
)

// String returns the string representation of the discard reason
func (r DiscardReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonBadPayload:
		return "bad payload"
	case ReasonMissingDeviceID:
		return "missing device id"
	case ReasonWrongDevice:
		return "wrong device"
	case ReasonInvalidThreshold:
		return "invalid threshold"
	default:
		return "unknown"
	}
}

// SettingsError represents a discarded inbound settings message
type SettingsError struct {
	DeviceError
	Reason DiscardReason
}

// NewSettingsError creates a new settings discard error
func NewSettingsError(op string, err error, reason DiscardReason) *SettingsError {
	return &SettingsError{
		DeviceError: DeviceError{
			Op:       op,
			Err:      err,
			Severity: SeverityWarning,
			Code:     4, // Settings error diagnostic code
		},
		Reason: reason,
	}
}

// Error implements the error interface
func (e *SettingsError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] Settings message discarded (%s): %s: %v",
			e.Severity, e.Reason, e.Op, e.Err)
	}
	return fmt.Sprintf("[%s] Settings message discarded (%s): %s",
		e.Severity, e.Reason, e.Op)
}

// ProvisionError represents a fatal provisioning flow failure
type ProvisionError struct {
	DeviceError
}

// NewProvisionError creates a new provisioning error
func NewProvisionError(op string, err error) *ProvisionError {
	return &ProvisionError{
		DeviceError: DeviceError{
			Op:       op,
			Err:      err,
			Severity: SeverityCritical, // Provisioning failures are fatal
			Code:     1,                // Provisioning error diagnostic code
		},
	}
}
