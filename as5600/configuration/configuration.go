// Package configuration encodes and decodes the AS5600 CONF register.
//
// CONF is a 16-bit word made of seven bitfields:
//
//	bits  0-1   PM    power mode
//	bits  2-3   HYST  hysteresis
//	bits  4-5   OUTS  output stage
//	bits  6-7   PWMF  PWM frequency
//	bits  8-9   SF    slow filter
//	bits 10-12  FTH   fast filter threshold
//	bit  13     WD    watchdog
//	bits 14-15  undefined, may hold factory settings
//
// The two undefined bits are never interpreted but are always carried through
// from the word a Configuration was decoded from.
package configuration

import (
	"fmt"
	"strings"
	"time"

	"periph.io/x/conn/v3/physic"
)

// ReservedMask selects the undefined bits of CONF.
const ReservedMask uint16 = 0b1100_0000_0000_0000

// PowerMode selects the polling interval of the sensor.
type PowerMode uint8

const (
	Nom PowerMode = iota
	Lpm1
	Lpm2
	Lpm3
)

var powerModeNames = []string{"NOM", "LPM1", "LPM2", "LPM3"}

func (p PowerMode) String() string { return name(powerModeNames, int(p), "PowerMode") }

// Hysteresis on the output, in LSBs.
type Hysteresis uint8

const (
	HysteresisOff Hysteresis = iota
	Lsb1
	Lsb2
	Lsb3
)

var hysteresisNames = []string{"OFF", "1LSB", "2LSB", "3LSB"}

func (h Hysteresis) String() string { return name(hysteresisNames, int(h), "Hysteresis") }

// LSB returns the hysteresis width in LSBs.
func (h Hysteresis) LSB() int { return int(h) }

// OutputStage selects what the OUT pin produces. Bit pattern 0b11 is not
// defined by the device.
type OutputStage uint8

const (
	Analog OutputStage = iota
	ReducedAnalog
	DigitalPwm
)

var outputStageNames = []string{"ANALOG", "REDUCED_ANALOG", "PWM"}

func (o OutputStage) String() string { return name(outputStageNames, int(o), "OutputStage") }

// PwmFrequency selects the PWM output frequency. The constant values are the
// CONF bit codes; use Frequency for the rate.
type PwmFrequency uint8

const (
	PwmF1 PwmFrequency = iota // 115 Hz
	PwmF2                     // 230 Hz
	PwmF3                     // 460 Hz
	PwmF4                     // 920 Hz
)

var pwmFrequencyNames = []string{"115HZ", "230HZ", "460HZ", "920HZ"}

var pwmFrequencies = []physic.Frequency{
	115 * physic.Hertz,
	230 * physic.Hertz,
	460 * physic.Hertz,
	920 * physic.Hertz,
}

func (f PwmFrequency) String() string { return name(pwmFrequencyNames, int(f), "PwmFrequency") }

// Frequency returns the PWM rate selected by f, or 0 if f is not defined.
func (f PwmFrequency) Frequency() physic.Frequency {
	if int(f) >= len(pwmFrequencies) {
		return 0
	}
	return pwmFrequencies[f]
}

// SlowFilter selects the step response of the slow filter.
type SlowFilter uint8

const (
	X16 SlowFilter = iota
	X8
	X4
	X2
)

var slowFilterNames = []string{"16X", "8X", "4X", "2X"}

var settlingTimes = []time.Duration{
	2200 * time.Microsecond,
	1100 * time.Microsecond,
	550 * time.Microsecond,
	286 * time.Microsecond,
}

func (s SlowFilter) String() string { return name(slowFilterNames, int(s), "SlowFilter") }

// SettlingTime is the output settling time for the filter setting.
func (s SlowFilter) SettlingTime() time.Duration {
	if int(s) >= len(settlingTimes) {
		return 0
	}
	return settlingTimes[s]
}

// FastFilterThreshold selects when the fast filter takes over from the slow
// filter.
type FastFilterThreshold uint8

const (
	SlowFilterOnly FastFilterThreshold = iota
	Lsb6
	Lsb7
	Lsb9
	Lsb18
	Lsb21
	Lsb24
	Lsb10
)

var fastFilterThresholdNames = []string{"SLOW_ONLY", "6LSB", "7LSB", "9LSB", "18LSB", "21LSB", "24LSB", "10LSB"}

var fastFilterThresholdLSBs = []int{0, 6, 7, 9, 18, 21, 24, 10}

func (f FastFilterThreshold) String() string {
	return name(fastFilterThresholdNames, int(f), "FastFilterThreshold")
}

// LSB returns the threshold in LSBs. SlowFilterOnly returns 0.
func (f FastFilterThreshold) LSB() int {
	if int(f) >= len(fastFilterThresholdLSBs) {
		return 0
	}
	return fastFilterThresholdLSBs[f]
}

// WatchdogState enables the low power watchdog.
type WatchdogState uint8

const (
	WatchdogOff WatchdogState = iota
	WatchdogOn
)

var watchdogNames = []string{"OFF", "ON"}

func (w WatchdogState) String() string { return name(watchdogNames, int(w), "WatchdogState") }

// Configuration is the decoded CONF register.
//
// Raw is the word the Configuration was decoded from. Only its undefined bits
// are used by Encode; the named fields always win.
type Configuration struct {
	PowerMode           PowerMode
	Hysteresis          Hysteresis
	OutputStage         OutputStage
	PwmFrequency        PwmFrequency
	SlowFilter          SlowFilter
	FastFilterThreshold FastFilterThreshold
	WatchdogState       WatchdogState
	Raw                 uint16
}

// Reserved returns the undefined bits carried by c.
func (c Configuration) Reserved() uint16 { return c.Raw & ReservedMask }

// WithReserved returns a copy of c carrying the undefined bits of word.
func (c Configuration) WithReserved(word uint16) Configuration {
	c.Raw = c.Raw&^ReservedMask | word&ReservedMask
	return c
}

// Equal reports whether c and o encode the same fields and undefined bits.
func (c Configuration) Equal(o Configuration) bool {
	return c.PowerMode == o.PowerMode &&
		c.Hysteresis == o.Hysteresis &&
		c.OutputStage == o.OutputStage &&
		c.PwmFrequency == o.PwmFrequency &&
		c.SlowFilter == o.SlowFilter &&
		c.FastFilterThreshold == o.FastFilterThreshold &&
		c.WatchdogState == o.WatchdogState &&
		c.Reserved() == o.Reserved()
}

func (c Configuration) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "PM=%v HYST=%v OUTS=%v PWMF=%v SF=%v FTH=%v WD=%v",
		c.PowerMode, c.Hysteresis, c.OutputStage, c.PwmFrequency,
		c.SlowFilter, c.FastFilterThreshold, c.WatchdogState)
	if r := c.Reserved(); r != 0 {
		fmt.Fprintf(&b, " reserved=0x%04x", r)
	}
	return b.String()
}

func name(names []string, i int, kind string) string {
	if i < 0 || i >= len(names) {
		return fmt.Sprintf("%s(%d)", kind, i)
	}
	return names[i]
}
