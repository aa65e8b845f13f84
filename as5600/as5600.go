// Package as5600 drives the ams AS5600 12-bit magnetic rotary position sensor
// over I²C.
//
// Datasheet: https://ams.com/documents/20143/36005/AS5600_DS000365_5-00.pdf
//
// The driver reads and writes every register of the device and guards the two
// one-time-programmable burn commands. It is not safe to share the underlying
// bus address with another driver; each Dev serializes its own transactions.
package as5600

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"

	"github.com/mtraver/angle-sensor/as5600/configuration"
	"github.com/mtraver/angle-sensor/as5600/register"
	"github.com/mtraver/angle-sensor/as5600/status"
)

// Opts holds the configuration options for a Dev.
type Opts struct {
	// Addr is the 7-bit bus address. Zero means DefaultAddress.
	Addr uint16
	// SettleTime is how long to wait after a burn command. It must be at
	// least BurnSettleTime; zero means BurnSettleTime.
	SettleTime time.Duration
	// Delay performs the post-burn wait. Nil means SleepDelayer.
	Delay Delayer
}

// DefaultOpts is the recommended configuration.
var DefaultOpts = Opts{
	Addr:       DefaultAddress,
	SettleTime: BurnSettleTime,
}

// Dev is a handle to an AS5600.
type Dev struct {
	mu     sync.Mutex
	bus    Bus
	addr   uint16
	settle time.Duration
	delay  Delayer

	w [3]byte
	r [2]byte
}

var _ conn.Resource = (*Dev)(nil)

// New returns a Dev that talks to the sensor over bus. It does not touch the
// device.
func New(bus Bus, opts *Opts) (*Dev, error) {
	if bus == nil {
		return nil, fmt.Errorf("as5600: nil bus")
	}
	if opts == nil {
		opts = &DefaultOpts
	}

	d := &Dev{
		bus:    bus,
		addr:   opts.Addr,
		settle: opts.SettleTime,
		delay:  opts.Delay,
	}
	if d.addr == 0 {
		d.addr = DefaultAddress
	}
	if d.addr > 0x7F {
		return nil, fmt.Errorf("as5600: invalid address 0x%x", d.addr)
	}
	if d.settle == 0 {
		d.settle = BurnSettleTime
	}
	if d.settle < BurnSettleTime {
		return nil, fmt.Errorf("as5600: settle time %v is shorter than %v", d.settle, BurnSettleTime)
	}
	if d.delay == nil {
		d.delay = SleepDelayer{}
	}
	return d, nil
}

// NewI2C returns a Dev on a periph I²C bus.
func NewI2C(b i2c.Bus, opts *Opts) (*Dev, error) {
	return New(b, opts)
}

// String implements conn.Resource.
func (d *Dev) String() string {
	return fmt.Sprintf("AS5600{0x%02x}", d.addr)
}

// Halt implements conn.Resource. The device has nothing to stop.
func (d *Dev) Halt() error {
	return nil
}

// Release returns the bus to the caller. The Dev cannot be used afterwards.
// Nothing is sent to the device.
func (d *Dev) Release() Bus {
	d.mu.Lock()
	defer d.mu.Unlock()

	b := d.bus
	d.bus = nil
	return b
}

// ReadRegister returns the value of any readable register with its undefined
// bits cleared.
func (d *Dev) ReadRegister(reg register.Register) (uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.read(reg)
}

// Zmco returns how many times ZPOS and MPOS have been burned (0 to 3).
func (d *Dev) Zmco() (uint8, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.zmco()
}

func (d *Dev) zmco() (uint8, error) {
	v, err := d.read(register.Zmco)
	return uint8(v), err
}

// ZeroPosition returns ZPOS.
func (d *Dev) ZeroPosition() (uint16, error) {
	return d.readLocked(register.Zpos)
}

// SetZeroPosition writes the low 12 bits of v to ZPOS.
func (d *Dev) SetZeroPosition(v uint16) error {
	return d.writeLocked(register.Zpos, v&0x0FFF)
}

// MaximumPosition returns MPOS.
func (d *Dev) MaximumPosition() (uint16, error) {
	return d.readLocked(register.Mpos)
}

// SetMaximumPosition writes the low 12 bits of v to MPOS.
func (d *Dev) SetMaximumPosition(v uint16) error {
	return d.writeLocked(register.Mpos, v&0x0FFF)
}

// MaximumAngle returns MANG.
func (d *Dev) MaximumAngle() (uint16, error) {
	return d.readLocked(register.Mang)
}

// SetMaximumAngle writes the low 12 bits of v to MANG.
func (d *Dev) SetMaximumAngle(v uint16) error {
	return d.writeLocked(register.Mang, v&0x0FFF)
}

// Config reads and decodes CONF.
func (d *Dev) Config() (configuration.Configuration, error) {
	v, err := d.readLocked(register.Conf)
	if err != nil {
		return configuration.Configuration{}, err
	}
	c, err := configuration.Decode(v)
	if err != nil {
		return configuration.Configuration{}, fmt.Errorf("as5600: %w", err)
	}
	return c, nil
}

// SetConfig writes c to CONF. The undefined bits of the word currently in the
// device are read back first and written unchanged, whatever c carries, since
// they may hold factory settings.
func (d *Dev) SetConfig(c configuration.Configuration) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("as5600: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	current, err := d.read(register.Conf)
	if err != nil {
		return err
	}
	return d.write(register.Conf, c.WithReserved(current).Encode())
}

// MagnetStatus reads and decodes STATUS.
func (d *Dev) MagnetStatus() (status.Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.magnetStatus()
}

func (d *Dev) magnetStatus() (status.Status, error) {
	v, err := d.read(register.Status)
	if err != nil {
		return 0, err
	}
	s, err := status.Decode(byte(v))
	if err != nil {
		return 0, fmt.Errorf("as5600: %w", err)
	}
	return s, nil
}

// RawAngle returns RAW_ANGLE, the unscaled and unfiltered angle.
func (d *Dev) RawAngle() (uint16, error) {
	return d.readLocked(register.RawAngle)
}

// Angle returns ANGLE, scaled to the programmed range and filtered.
func (d *Dev) Angle() (uint16, error) {
	return d.readLocked(register.Angle)
}

// AutomaticGainControl returns AGC. Its range depends on the supply voltage:
// 0-255 at 5V, 0-128 at 3.3V.
func (d *Dev) AutomaticGainControl() (uint8, error) {
	v, err := d.readLocked(register.Agc)
	return uint8(v), err
}

// Magnitude returns MAGNITUDE, the magnitude of the CORDIC output.
func (d *Dev) Magnitude() (uint16, error) {
	return d.readLocked(register.Magnitude)
}

// SenseRawAngle reads RAW_ANGLE and converts it to an angle over a full turn.
func (d *Dev) SenseRawAngle() (physic.Angle, error) {
	v, err := d.RawAngle()
	if err != nil {
		return 0, err
	}
	return AngleOf(v), nil
}

// AngleOf converts a 12-bit angle register value to an angle over a full turn.
func AngleOf(v uint16) physic.Angle {
	return physic.Angle(int64(v&0x0FFF) * int64(360*physic.Degree) / angleSteps)
}

func (d *Dev) readLocked(reg register.Register) (uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.read(reg)
}

func (d *Dev) writeLocked(reg register.Register, v uint16) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.write(reg, v)
}
