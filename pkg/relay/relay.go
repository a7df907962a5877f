package relay

import (
	"mqtt-relay-controller/pkg/logger"
)

// Output is a physical digital output collaborator (relay coil, indicator LED)
type Output interface {
	Set(on bool)
}

// Controller derives and applies the desired relay state from a sanitized
// temperature and the current operating parameters. The power output and the
// indicator output always carry the same logical value and are written
// together in one apply step.
type Controller struct {
	power     Output
	indicator Output
	isOn      bool
	switches  int64
}

// NewController creates a relay controller with both outputs off
func NewController(power, indicator Output) *Controller {
	c := &Controller{
		power:     power,
		indicator: indicator,
	}
	c.apply(false)
	return c
}

// DesiredState computes the target relay state for a temperature against the
// given parameters. Boundary equality switches on (non-reversed).
func DesiredState(t, threshold float64, reverse bool) bool {
	if reverse {
		return t < threshold
	}
	return t >= threshold
}

// Evaluate computes the desired state for the sanitized temperature and
// applies it if it differs from the current state. Re-evaluating at an
// unchanged temperature never re-issues output writes.
//
// A non-zero hysteresis margin keeps the current state until the temperature
// moves past the threshold by the margin in the releasing direction. The
// default margin of zero reproduces the original toggle-at-threshold
// behavior exactly.
func (c *Controller) Evaluate(t, threshold float64, reverse bool, hysteresis float64) bool {
	desired := DesiredState(t, threshold, reverse)

	if hysteresis > 0 && desired != c.isOn {
		if c.isOn && !withinRelease(t, threshold, reverse, hysteresis) {
			return c.isOn
		}
	}

	if desired != c.isOn {
		c.apply(desired)
		c.switches++
		logger.LogInfo("Relay switched %s (temperature %.2f°C, threshold %.2f°C, reverse=%v)",
			stateString(desired), t, threshold, reverse)
	}

	return c.isOn
}

// withinRelease reports whether the temperature has moved far enough past the
// threshold to release an energized relay
func withinRelease(t, threshold float64, reverse bool, margin float64) bool {
	if reverse {
		return t >= threshold+margin
	}
	return t < threshold-margin
}

// IsOn returns the current relay state
func (c *Controller) IsOn() bool {
	return c.isOn
}

// Switches returns the number of physical transitions applied so far
func (c *Controller) Switches() int64 {
	return c.switches
}

// apply writes both outputs with the new logical value
func (c *Controller) apply(on bool) {
	c.isOn = on
	if c.power != nil {
		c.power.Set(on)
	}
	if c.indicator != nil {
		c.indicator.Set(on)
	}
}

func stateString(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
