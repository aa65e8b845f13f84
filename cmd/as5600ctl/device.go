package main

import (
	"fmt"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/mtraver/angle-sensor/as5600"
)

// busOpener opens the bus named in cfg and returns it with a function that
// closes it.
type busOpener func(cfg BusConfig) (as5600.Bus, func() error, error)

func openPeriphBus(cfg BusConfig) (as5600.Bus, func() error, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open(cfg.Name)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open I²C bus %q: %w", cfg.Name, err)
	}
	return bus, bus.Close, nil
}
