package main

import (
	"fmt"
	"sync"

	"github.com/mtraver/angle-sensor/as5600"
)

// fakeChip simulates the register file of an AS5600 on a bus.
type fakeChip struct {
	mu     sync.Mutex
	addr   uint16
	mem    [256]byte
	burns  []byte
	closed bool
}

func newFakeChip() *fakeChip {
	c := &fakeChip{addr: as5600.DefaultAddress}
	c.mem[0x0B] = 0x20 // magnet detected
	return c
}

func (c *fakeChip) Tx(addr uint16, w, r []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if addr != c.addr {
		return fmt.Errorf("no device at 0x%02x", addr)
	}
	if len(w) == 0 {
		return fmt.Errorf("empty write")
	}

	reg := int(w[0])
	if len(r) > 0 {
		copy(r, c.mem[reg:])
		return nil
	}

	if reg == 0xFF {
		c.burns = append(c.burns, w[1])
		if w[1] == 0x80 {
			c.mem[0x00]++
		}
		return nil
	}
	copy(c.mem[reg:], w[1:])
	return nil
}

func (c *fakeChip) set16(reg byte, v uint16) {
	c.mem[reg] = byte(v >> 8)
	c.mem[reg+1] = byte(v)
}

func (c *fakeChip) get16(reg byte) uint16 {
	return uint16(c.mem[reg])<<8 | uint16(c.mem[reg+1])
}

func (c *fakeChip) opener() busOpener {
	return func(cfg BusConfig) (as5600.Bus, func() error, error) {
		return c, func() error { c.closed = true; return nil }, nil
	}
}
