package relay

import (
	"mqtt-relay-controller/pkg/logger"
)

// LoggedOutput is an Output for host builds without GPIO access: every write
// is visible in the log instead of on a pin
type LoggedOutput struct {
	name string
}

// NewLoggedOutput creates a named logged output
func NewLoggedOutput(name string) *LoggedOutput {
	return &LoggedOutput{name: name}
}

// Set implements Output
func (o *LoggedOutput) Set(on bool) {
	logger.LogDebug("Output '%s' set %s", o.name, stateString(on))
}
