package as5600

import "time"

// DefaultAddress is the fixed 7-bit I²C address of the AS5600.
const DefaultAddress uint16 = 0x36

const (
	// BurnSettleTime is the minimum wait after a burn command before the
	// device may be accessed again.
	BurnSettleTime = time.Millisecond

	// PowerUpTime is the time from power on until the first valid reading.
	PowerUpTime = 10 * time.Millisecond

	// WatchdogTimeout is how long the angle must stay put before the watchdog
	// drops the device into LPM3.
	WatchdogTimeout = time.Minute

	// SampleRate is the sampling period in NOM power mode.
	SampleRate = 150 * time.Microsecond
)

// Burn commands written to the BURN register.
const (
	burnAngle   byte = 0x80 // ZPOS and MPOS
	burnSetting byte = 0x40 // MANG and CONF
)

// maxPositionBurns is the number of ZPOS/MPOS burns the OTP memory allows.
const maxPositionBurns = 3

// angleSteps is the resolution of the 12-bit angle registers.
const angleSteps = 4096
