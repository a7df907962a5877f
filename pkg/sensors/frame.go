package sensors

import (
	"encoding/binary"
	"fmt"
)

// Serial power-meter frame codec. The meter speaks an RTU-style protocol:
// fixed request frames, CRC16-protected responses carrying measurement
// registers (voltage in 0.1 V, current in milliamps, power in 0.1 W).

const (
	meterAddress      = 0x01
	readInputRegs     = 0x04
	measurementBase   = 0x0000
	measurementCount  = 0x0006
	responseOverhead  = 5 // address + function + byte count + CRC16
	minResponseLength = responseOverhead + 2*int(measurementCount)
)

// CRC16 calculates the RTU CRC16 checksum used by the meter protocol
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)

	for _, b := range data {
		crc ^= uint16(b)

		for i := 0; i < 8; i++ {
			if crc&0x0001 != 0 {
				crc >>= 1
				crc ^= 0xA001
			} else {
				crc >>= 1
			}
		}
	}

	return crc
}

// VerifyCRC verifies the trailing CRC16 of a response frame.
// The CRC is transmitted little-endian (low byte first).
func VerifyCRC(data []byte) bool {
	if len(data) < 4 {
		return false
	}

	calculated := CRC16(data[:len(data)-2])
	received := uint16(data[len(data)-2]) | (uint16(data[len(data)-1]) << 8)

	return calculated == received
}

// AppendCRC appends the CRC16 checksum to a request frame in little-endian order
func AppendCRC(data []byte) []byte {
	crc := CRC16(data)

	result := make([]byte, len(data)+2)
	copy(result, data)
	result[len(data)] = byte(crc & 0xFF)
	result[len(data)+1] = byte((crc >> 8) & 0xFF)

	return result
}

// BuildMeasurementRequest builds the read request for the measurement block
func BuildMeasurementRequest() []byte {
	frame := make([]byte, 6)
	frame[0] = meterAddress
	frame[1] = readInputRegs
	binary.BigEndian.PutUint16(frame[2:4], measurementBase)
	binary.BigEndian.PutUint16(frame[4:6], measurementCount)
	return AppendCRC(frame)
}

// DecodeMeasurementResponse decodes a CRC-validated measurement response into
// voltage, current, and power values
func DecodeMeasurementResponse(frame []byte) (voltage, current, power float64, err error) {
	if len(frame) < minResponseLength {
		return 0, 0, 0, fmt.Errorf("response too short: %d bytes", len(frame))
	}
	if !VerifyCRC(frame) {
		return 0, 0, 0, fmt.Errorf("invalid CRC in response")
	}
	if frame[0] != meterAddress || frame[1] != readInputRegs {
		return 0, 0, 0, fmt.Errorf("unexpected response header: addr=0x%02X func=0x%02X", frame[0], frame[1])
	}

	byteCount := int(frame[2])
	if byteCount < 2*int(measurementCount) || len(frame) < 3+byteCount+2 {
		return 0, 0, 0, fmt.Errorf("invalid byte count %d for %d byte frame", byteCount, len(frame))
	}

	regs := frame[3 : 3+byteCount]
	rawVoltage := binary.BigEndian.Uint16(regs[0:2])
	// Current and power are 32-bit values, low register first
	rawCurrent := uint32(binary.BigEndian.Uint16(regs[2:4])) | uint32(binary.BigEndian.Uint16(regs[4:6]))<<16
	rawPower := uint32(binary.BigEndian.Uint16(regs[6:8])) | uint32(binary.BigEndian.Uint16(regs[8:10]))<<16

	voltage = float64(rawVoltage) / 10.0
	current = float64(rawCurrent) / 1000.0
	power = float64(rawPower) / 10.0
	return voltage, current, power, nil
}
