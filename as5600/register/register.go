// Package register describes the AS5600 register map: the wire address of
// each register, how many bytes it occupies and which bits carry data.
package register

import "fmt"

// Register is a logical AS5600 register. Its value is the wire address.
type Register byte

// Register addresses. See the "Register Map" table in the datasheet.
const (
	Zmco      Register = 0x00 // R, number of position burns so far
	Zpos      Register = 0x01 // R/W, programmed zero position
	Mpos      Register = 0x03 // R/W, programmed maximum position
	Mang      Register = 0x05 // R/W, programmed maximum angle
	Conf      Register = 0x07 // R/W, configuration bitfields
	Status    Register = 0x0B // R, magnet detection
	RawAngle  Register = 0x0C // R, unscaled angle
	Angle     Register = 0x0E // R, scaled and filtered angle
	Agc       Register = 0x1A // R, automatic gain control
	Magnitude Register = 0x1B // R, CORDIC magnitude
	Burn      Register = 0xFF // W, burn command
)

// Access describes which directions a register supports.
type Access uint8

const (
	ReadOnly Access = iota + 1
	ReadWrite
	WriteOnly
)

func (a Access) String() string {
	switch a {
	case ReadOnly:
		return "R"
	case ReadWrite:
		return "R/W"
	case WriteOnly:
		return "W"
	}
	return fmt.Sprintf("Access(%d)", uint8(a))
}

// UnknownError is returned by Parse for an address that is not part of the
// register map.
type UnknownError struct {
	Addr byte
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("register: unknown register address 0x%02x", e.Addr)
}

type info struct {
	name   string
	width  int
	mask   uint16
	access Access
}

var registers = map[Register]info{
	Zmco:      {"ZMCO", 1, 0x0003, ReadOnly},
	Zpos:      {"ZPOS", 2, 0x0FFF, ReadWrite},
	Mpos:      {"MPOS", 2, 0x0FFF, ReadWrite},
	Mang:      {"MANG", 2, 0x0FFF, ReadWrite},
	Conf:      {"CONF", 2, 0xFFFF, ReadWrite},
	Status:    {"STATUS", 1, 0x0038, ReadOnly},
	RawAngle:  {"RAW_ANGLE", 2, 0x0FFF, ReadOnly},
	Angle:     {"ANGLE", 2, 0x0FFF, ReadOnly},
	Agc:       {"AGC", 1, 0x00FF, ReadOnly},
	Magnitude: {"MAGNITUDE", 2, 0x0FFF, ReadOnly},
	Burn:      {"BURN", 1, 0x00FF, WriteOnly},
}

// ordered lists every register in address order.
var ordered = []Register{Zmco, Zpos, Mpos, Mang, Conf, Status, RawAngle, Angle, Agc, Magnitude, Burn}

// All returns every register in address order.
func All() []Register {
	out := make([]Register, len(ordered))
	copy(out, ordered)
	return out
}

// Parse returns the Register at the given wire address.
func Parse(addr byte) (Register, error) {
	r := Register(addr)
	if _, ok := registers[r]; !ok {
		return 0, &UnknownError{Addr: addr}
	}
	return r, nil
}

// ParseName returns the Register with the given datasheet name, e.g. "RAW_ANGLE".
func ParseName(name string) (Register, error) {
	for _, r := range ordered {
		if registers[r].name == name {
			return r, nil
		}
	}
	return 0, fmt.Errorf("register: unknown register name %q", name)
}

// Address returns the wire address of r.
func (r Register) Address() byte { return byte(r) }

// Width is the number of data bytes the register occupies on the wire. Multi
// byte registers are big-endian.
func (r Register) Width() int { return registers[r].width }

// Mask selects the bits of the register value that carry data. Anything
// outside the mask is undefined and must be discarded.
func (r Register) Mask() uint16 { return registers[r].mask }

// Access reports whether r can be read, written or both.
func (r Register) Access() Access { return registers[r].access }

// Readable reports whether r can be read.
func (r Register) Readable() bool {
	a := registers[r].access
	return a == ReadOnly || a == ReadWrite
}

// Writable reports whether r accepts data writes.
func (r Register) Writable() bool {
	a := registers[r].access
	return a == ReadWrite || a == WriteOnly
}

func (r Register) String() string {
	if i, ok := registers[r]; ok {
		return i.name
	}
	return fmt.Sprintf("Register(0x%02x)", byte(r))
}
