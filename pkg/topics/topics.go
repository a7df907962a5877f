package topics

import "fmt"

// BuildClientID constructs the broker client identifier from the device identity.
// Pattern: device_{identity}
func BuildClientID(identity string) string {
	return fmt.Sprintf("device_%s", identity)
}

// BuildAvailabilityTopic constructs the per-device availability topic when no
// explicit topic is configured.
// Pattern: device/{identity}/status
func BuildAvailabilityTopic(identity string) string {
	return fmt.Sprintf("device/%s/status", identity)
}

// BuildDiagnosticTopic constructs the per-device diagnostic topic when no
// explicit topic is configured.
// Pattern: device/{identity}/diagnostic
func BuildDiagnosticTopic(identity string) string {
	return fmt.Sprintf("device/%s/diagnostic", identity)
}

// BuildTelemetryURL constructs the HTTP variant telemetry endpoint.
// Pattern: {base_url}/{identity}
func BuildTelemetryURL(baseURL, identity string) string {
	return fmt.Sprintf("%s/%s", baseURL, identity)
}
