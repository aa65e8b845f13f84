package as5600

import (
	"fmt"
	"time"

	"github.com/mtraver/angle-sensor/as5600/register"
)

// Bus is the transaction primitive the driver needs. When both w and r are
// given, Tx must write w and then read len(r) bytes without releasing the bus.
// periph's i2c.Bus and TinyGo's drivers.I2C both satisfy it.
type Bus interface {
	Tx(addr uint16, w, r []byte) error
}

// Delayer blocks the calling goroutine for at least d.
type Delayer interface {
	Sleep(d time.Duration)
}

// DelayFunc adapts a function to a Delayer.
type DelayFunc func(d time.Duration)

func (f DelayFunc) Sleep(d time.Duration) { f(d) }

// SleepDelayer is the default Delayer.
type SleepDelayer struct{}

func (SleepDelayer) Sleep(d time.Duration) { time.Sleep(d) }

// read issues one write-then-read for reg and returns its value with the
// undefined bits cleared. Two byte registers are big-endian.
func (d *Dev) read(reg register.Register) (uint16, error) {
	if d.bus == nil {
		return 0, ErrReleased
	}
	if !reg.Readable() {
		return 0, fmt.Errorf("as5600: register %v is not readable", reg)
	}

	n := reg.Width()
	d.w[0] = reg.Address()
	if err := d.bus.Tx(d.addr, d.w[:1], d.r[:n]); err != nil {
		return 0, &BusError{Op: "read", Register: reg, Err: err}
	}

	var v uint16
	if n == 2 {
		v = uint16(d.r[0])<<8 | uint16(d.r[1])
	} else {
		v = uint16(d.r[0])
	}
	return v & reg.Mask(), nil
}

// write issues one write transaction of [address, data...] for reg.
func (d *Dev) write(reg register.Register, v uint16) error {
	if d.bus == nil {
		return ErrReleased
	}
	if !reg.Writable() {
		return fmt.Errorf("as5600: register %v is not writable", reg)
	}

	d.w[0] = reg.Address()
	n := 2
	if reg.Width() == 2 {
		d.w[1] = byte(v >> 8)
		d.w[2] = byte(v)
		n = 3
	} else {
		d.w[1] = byte(v)
	}
	if err := d.bus.Tx(d.addr, d.w[:n], nil); err != nil {
		return &BusError{Op: "write", Register: reg, Err: err}
	}
	return nil
}
