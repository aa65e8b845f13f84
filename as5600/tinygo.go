package as5600

import (
	"periph.io/x/conn/v3/i2c"
	"tinygo.org/x/drivers"
)

var (
	_ Bus = (i2c.Bus)(nil)
	_ Bus = (drivers.I2C)(nil)
)

// NewTinyGo returns a Dev on a TinyGo I²C bus, e.g. a configured machine.I2C.
func NewTinyGo(b drivers.I2C, opts *Opts) (*Dev, error) {
	return New(b, opts)
}
