package sensors

import (
	"io"
	"math"

	"mqtt-relay-controller/pkg/logger"
)

// SerialMeter reads the power meter over a serial port (or any stream the
// host exposes for it). Failures surface as NaN readings per the PowerMeter
// contract; the sanitizer downstream turns them into zeros.
type SerialMeter struct {
	port io.ReadWriter
	buf  [64]byte
}

// NewSerialMeter creates a meter driver on the given port
func NewSerialMeter(port io.ReadWriter) *SerialMeter {
	return &SerialMeter{port: port}
}

// ReadPower implements PowerMeter: one request/response exchange per call
func (m *SerialMeter) ReadPower() (voltage, current, power float64) {
	if _, err := m.port.Write(BuildMeasurementRequest()); err != nil {
		logger.LogWarn("Meter request failed: %v", err)
		return math.NaN(), math.NaN(), math.NaN()
	}

	n, err := m.port.Read(m.buf[:])
	if err != nil {
		logger.LogWarn("Meter read failed: %v", err)
		return math.NaN(), math.NaN(), math.NaN()
	}

	voltage, current, power, err = DecodeMeasurementResponse(m.buf[:n])
	if err != nil {
		logger.LogWarn("Meter response rejected: %v", err)
		return math.NaN(), math.NaN(), math.NaN()
	}
	return voltage, current, power
}
