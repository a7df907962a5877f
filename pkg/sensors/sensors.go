package sensors

import (
	"math"
	"sync"
)

// Reading is one cycle's worth of sanitized sensor values.
// Readings are ephemeral: produced per cycle, never buffered.
type Reading struct {
	TemperatureC float64
	Voltage      float64
	Current      float64
	Power        float64
}

// Sanitize normalizes a raw sensor value. Upstream drivers signal failure by
// returning NaN rather than an explicit error, so every externally sourced
// value passes through here before it is used in decisions or published.
func Sanitize(x float64) float64 {
	if math.IsNaN(x) {
		return 0.0
	}
	return x
}

// SanitizeReading returns a copy of the reading with every field sanitized
func SanitizeReading(r Reading) Reading {
	return Reading{
		TemperatureC: Sanitize(r.TemperatureC),
		Voltage:      Sanitize(r.Voltage),
		Current:      Sanitize(r.Current),
		Power:        Sanitize(r.Power),
	}
}

// TemperatureSensor is the temperature acquisition collaborator.
// Implementations return NaN on read failure.
type TemperatureSensor interface {
	ReadTemperature() float64
}

// PowerMeter is the serial power-meter acquisition collaborator.
// Implementations return NaN fields on read failure.
type PowerMeter interface {
	ReadPower() (voltage, current, power float64)
}

// Source combines both acquisition channels into one per-cycle read
type Source struct {
	Temperature TemperatureSensor
	Meter       PowerMeter
}

// Read acquires and sanitizes one cycle's reading
func (s *Source) Read() Reading {
	raw := Reading{
		TemperatureC: math.NaN(),
		Voltage:      math.NaN(),
		Current:      math.NaN(),
		Power:        math.NaN(),
	}
	if s.Temperature != nil {
		raw.TemperatureC = s.Temperature.ReadTemperature()
	}
	if s.Meter != nil {
		raw.Voltage, raw.Current, raw.Power = s.Meter.ReadPower()
	}
	return SanitizeReading(raw)
}

// SimulatedSource is a deterministic sensor pair for development and tests
type SimulatedSource struct {
	mu          sync.Mutex
	temperature float64
	voltage     float64
	current     float64
}

// NewSimulatedSource creates a simulated sensor pair with fixed values
func NewSimulatedSource(temperature, voltage, current float64) *SimulatedSource {
	return &SimulatedSource{
		temperature: temperature,
		voltage:     voltage,
		current:     current,
	}
}

// SetTemperature updates the simulated temperature
func (s *SimulatedSource) SetTemperature(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.temperature = t
}

// ReadTemperature implements TemperatureSensor
func (s *SimulatedSource) ReadTemperature() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.temperature
}

// ReadPower implements PowerMeter
func (s *SimulatedSource) ReadPower() (float64, float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voltage, s.current, s.voltage * s.current
}
