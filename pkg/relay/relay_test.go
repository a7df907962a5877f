package relay

import (
	"testing"
)

// mockOutput records physical writes for verification
type mockOutput struct {
	writes []bool
}

func (m *mockOutput) Set(on bool) {
	m.writes = append(m.writes, on)
}

func (m *mockOutput) last() bool {
	if len(m.writes) == 0 {
		return false
	}
	return m.writes[len(m.writes)-1]
}

func newTestController() (*Controller, *mockOutput, *mockOutput) {
	power := &mockOutput{}
	indicator := &mockOutput{}
	return NewController(power, indicator), power, indicator
}

func TestDesiredState(t *testing.T) {
	cases := []struct {
		name      string
		t         float64
		threshold float64
		reverse   bool
		want      bool
	}{
		{"below threshold", 24.0, 25.0, false, false},
		{"above threshold", 26.0, 25.0, false, true},
		{"boundary equality switches on", 25.0, 25.0, false, true},
		{"reversed below threshold", 24.0, 25.0, true, true},
		{"reversed above threshold", 26.0, 25.0, true, false},
		{"reversed boundary equality switches off", 25.0, 25.0, true, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DesiredState(tc.t, tc.threshold, tc.reverse); got != tc.want {
				t.Errorf("DesiredState(%v, %v, %v) = %v, want %v",
					tc.t, tc.threshold, tc.reverse, got, tc.want)
			}
		})
	}
}

func TestInitialStateOff(t *testing.T) {
	ctrl, power, indicator := newTestController()

	if ctrl.IsOn() {
		t.Error("controller should start off")
	}
	if power.last() || indicator.last() {
		t.Error("outputs should start off")
	}
}

func TestEvaluateSwitchesOn(t *testing.T) {
	ctrl, power, indicator := newTestController()

	on := ctrl.Evaluate(26.0, 25.0, false, 0)

	if !on || !ctrl.IsOn() {
		t.Error("relay should be on above threshold")
	}
	if !power.last() || !indicator.last() {
		t.Error("both outputs should be on")
	}
	if ctrl.Switches() != 1 {
		t.Errorf("switches = %d, want 1", ctrl.Switches())
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	ctrl, power, indicator := newTestController()

	ctrl.Evaluate(26.0, 25.0, false, 0)
	powerWrites := len(power.writes)
	indicatorWrites := len(indicator.writes)

	// Re-evaluating at an unchanged temperature must not re-issue writes
	ctrl.Evaluate(26.0, 25.0, false, 0)
	ctrl.Evaluate(26.0, 25.0, false, 0)

	if len(power.writes) != powerWrites {
		t.Errorf("power writes = %d, want %d (no re-issue)", len(power.writes), powerWrites)
	}
	if len(indicator.writes) != indicatorWrites {
		t.Errorf("indicator writes = %d, want %d (no re-issue)", len(indicator.writes), indicatorWrites)
	}
	if ctrl.Switches() != 1 {
		t.Errorf("switches = %d, want 1", ctrl.Switches())
	}
}

func TestOutputsAlwaysAgree(t *testing.T) {
	ctrl, power, indicator := newTestController()

	temperatures := []float64{20, 26, 24, 25, 30, 10}
	for _, temp := range temperatures {
		ctrl.Evaluate(temp, 25.0, false, 0)
		if power.last() != indicator.last() {
			t.Fatalf("outputs diverged at t=%v: power=%v indicator=%v",
				temp, power.last(), indicator.last())
		}
	}

	if len(power.writes) != len(indicator.writes) {
		t.Errorf("write counts diverged: power=%d indicator=%d",
			len(power.writes), len(indicator.writes))
	}
}

func TestReversedPolarity(t *testing.T) {
	ctrl, _, _ := newTestController()

	// Threshold 25.0, reversed, temperature 24.0 energizes the relay
	on := ctrl.Evaluate(24.0, 25.0, true, 0)
	if !on {
		t.Error("reversed relay should be on below threshold")
	}

	on = ctrl.Evaluate(26.0, 25.0, true, 0)
	if on {
		t.Error("reversed relay should be off above threshold")
	}
}

func TestHysteresisHoldsRelayOn(t *testing.T) {
	ctrl, _, _ := newTestController()

	ctrl.Evaluate(26.0, 25.0, false, 0.5)
	if !ctrl.IsOn() {
		t.Fatal("relay should switch on above threshold")
	}

	// Inside the margin the relay holds
	ctrl.Evaluate(24.8, 25.0, false, 0.5)
	if !ctrl.IsOn() {
		t.Error("relay should hold within hysteresis margin")
	}

	// Past the margin it releases
	ctrl.Evaluate(24.4, 25.0, false, 0.5)
	if ctrl.IsOn() {
		t.Error("relay should release past hysteresis margin")
	}
}

func TestHysteresisReversed(t *testing.T) {
	ctrl, _, _ := newTestController()

	ctrl.Evaluate(24.0, 25.0, true, 0.5)
	if !ctrl.IsOn() {
		t.Fatal("reversed relay should switch on below threshold")
	}

	ctrl.Evaluate(25.2, 25.0, true, 0.5)
	if !ctrl.IsOn() {
		t.Error("reversed relay should hold within hysteresis margin")
	}

	ctrl.Evaluate(25.6, 25.0, true, 0.5)
	if ctrl.IsOn() {
		t.Error("reversed relay should release past hysteresis margin")
	}
}

func TestZeroHysteresisTogglesAtThreshold(t *testing.T) {
	ctrl, _, _ := newTestController()

	// With margin 0 the original toggle-at-threshold behavior is preserved
	ctrl.Evaluate(25.0, 25.0, false, 0)
	if !ctrl.IsOn() {
		t.Error("relay should be on at exact threshold")
	}
	ctrl.Evaluate(24.999, 25.0, false, 0)
	if ctrl.IsOn() {
		t.Error("relay should be off just below threshold")
	}
	if ctrl.Switches() != 2 {
		t.Errorf("switches = %d, want 2", ctrl.Switches())
	}
}
