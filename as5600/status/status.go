// Package status decodes the AS5600 STATUS register.
//
// Only bits 3 to 5 are defined: MH (magnet too strong), ML (magnet too weak)
// and MD (magnet detected). See "Status Registers" in the datasheet.
package status

import "fmt"

// Mask selects the magnet detection bits of the STATUS byte.
const Mask = 0b0011_1000

// Status is the decoded magnet detection state.
type Status uint8

const (
	MagnetHigh Status = iota + 1
	MagnetLow
	MagnetDetected
	MagnetDetectedHigh
	MagnetDetectedLow
)

const (
	bitMH = 0b0000_1000
	bitML = 0b0001_0000
	bitMD = 0b0010_0000
)

// InvalidBitPatternError is returned for a STATUS byte whose masked bits do
// not correspond to any state. Masked holds the byte after masking.
type InvalidBitPatternError struct {
	Masked byte
}

func (e *InvalidBitPatternError) Error() string {
	return fmt.Sprintf("status: invalid bit pattern 0x%02x", e.Masked)
}

// Decode converts a raw STATUS byte into a Status. Bits outside Mask are
// ignored.
func Decode(b byte) (Status, error) {
	bits := b & Mask
	switch bits {
	case bitMH:
		return MagnetHigh, nil
	case bitML:
		return MagnetLow, nil
	case bitMD:
		return MagnetDetected, nil
	case bitMD | bitMH:
		return MagnetDetectedHigh, nil
	case bitMD | bitML:
		return MagnetDetectedLow, nil
	}
	return 0, &InvalidBitPatternError{Masked: bits}
}

// Byte returns the STATUS bit pattern of s. It is the inverse of Decode.
func (s Status) Byte() byte {
	switch s {
	case MagnetHigh:
		return bitMH
	case MagnetLow:
		return bitML
	case MagnetDetected:
		return bitMD
	case MagnetDetectedHigh:
		return bitMD | bitMH
	case MagnetDetectedLow:
		return bitMD | bitML
	}
	return 0
}

// Detected reports whether the MD bit is set, regardless of field strength.
func (s Status) Detected() bool { return s.Byte()&bitMD != 0 }

func (s Status) String() string {
	switch s {
	case MagnetHigh:
		return "magnet too strong"
	case MagnetLow:
		return "magnet too weak"
	case MagnetDetected:
		return "magnet detected"
	case MagnetDetectedHigh:
		return "magnet detected, too strong"
	case MagnetDetectedLow:
		return "magnet detected, too weak"
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}
