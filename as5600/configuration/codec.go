package configuration

import (
	"fmt"
	"strings"
)

// Field offsets within CONF.
const (
	offPM   = 0
	offHYST = 2
	offOUTS = 4
	offPWMF = 6
	offSF   = 8
	offFTH  = 10
	offWD   = 13
)

// outsInvalid is the undefined OUTS bit pattern.
const outsInvalid = 0b11

// InvalidOutputStageError is returned by Decode when the OUTS field holds the
// undefined pattern 0b11.
type InvalidOutputStageError struct {
	Bits byte
}

func (e *InvalidOutputStageError) Error() string {
	return fmt.Sprintf("configuration: invalid output stage bit pattern 0b%02b", e.Bits)
}

// Decode splits a CONF word into its fields. The only pattern it rejects is
// OUTS = 0b11.
func Decode(word uint16) (Configuration, error) {
	outs := byte(word>>offOUTS) & 0b11
	if outs == outsInvalid {
		return Configuration{}, &InvalidOutputStageError{Bits: outs}
	}

	return Configuration{
		PowerMode:           PowerMode(word>>offPM) & 0b11,
		Hysteresis:          Hysteresis(word>>offHYST) & 0b11,
		OutputStage:         OutputStage(outs),
		PwmFrequency:        PwmFrequency(word>>offPWMF) & 0b11,
		SlowFilter:          SlowFilter(word>>offSF) & 0b11,
		FastFilterThreshold: FastFilterThreshold(word>>offFTH) & 0b111,
		WatchdogState:       WatchdogState(word>>offWD) & 0b1,
		Raw:                 word,
	}, nil
}

// Encode assembles the CONF word for c, including the undefined bits c was
// decoded with. Fields are truncated to their widths; call Validate first if c
// was built by hand.
func (c Configuration) Encode() uint16 {
	var word uint16
	word |= uint16(c.PowerMode&0b11) << offPM
	word |= uint16(c.Hysteresis&0b11) << offHYST
	word |= uint16(c.OutputStage&0b11) << offOUTS
	word |= uint16(c.PwmFrequency&0b11) << offPWMF
	word |= uint16(c.SlowFilter&0b11) << offSF
	word |= uint16(c.FastFilterThreshold&0b111) << offFTH
	word |= uint16(c.WatchdogState&0b1) << offWD
	return word | c.Reserved()
}

// Validate checks that every field of c holds a defined value.
func (c Configuration) Validate() error {
	switch {
	case c.PowerMode > Lpm3:
		return fmt.Errorf("configuration: invalid power mode %d", c.PowerMode)
	case c.Hysteresis > Lsb3:
		return fmt.Errorf("configuration: invalid hysteresis %d", c.Hysteresis)
	case c.OutputStage > DigitalPwm:
		return &InvalidOutputStageError{Bits: byte(c.OutputStage)}
	case c.PwmFrequency > PwmF4:
		return fmt.Errorf("configuration: invalid PWM frequency %d", c.PwmFrequency)
	case c.SlowFilter > X2:
		return fmt.Errorf("configuration: invalid slow filter %d", c.SlowFilter)
	case c.FastFilterThreshold > Lsb10:
		return fmt.Errorf("configuration: invalid fast filter threshold %d", c.FastFilterThreshold)
	case c.WatchdogState > WatchdogOn:
		return fmt.Errorf("configuration: invalid watchdog state %d", c.WatchdogState)
	}
	return nil
}

// ParsePowerMode parses a name such as "LPM2".
func ParsePowerMode(s string) (PowerMode, error) {
	i, err := parse(powerModeNames, s, "power mode")
	return PowerMode(i), err
}

// ParseHysteresis parses a name such as "2LSB".
func ParseHysteresis(s string) (Hysteresis, error) {
	i, err := parse(hysteresisNames, s, "hysteresis")
	return Hysteresis(i), err
}

// ParseOutputStage parses a name such as "PWM".
func ParseOutputStage(s string) (OutputStage, error) {
	i, err := parse(outputStageNames, s, "output stage")
	return OutputStage(i), err
}

// ParsePwmFrequency parses a name such as "460HZ".
func ParsePwmFrequency(s string) (PwmFrequency, error) {
	i, err := parse(pwmFrequencyNames, s, "PWM frequency")
	return PwmFrequency(i), err
}

// ParseSlowFilter parses a name such as "8X".
func ParseSlowFilter(s string) (SlowFilter, error) {
	i, err := parse(slowFilterNames, s, "slow filter")
	return SlowFilter(i), err
}

// ParseFastFilterThreshold parses a name such as "18LSB".
func ParseFastFilterThreshold(s string) (FastFilterThreshold, error) {
	i, err := parse(fastFilterThresholdNames, s, "fast filter threshold")
	return FastFilterThreshold(i), err
}

// ParseWatchdogState parses "ON" or "OFF".
func ParseWatchdogState(s string) (WatchdogState, error) {
	i, err := parse(watchdogNames, s, "watchdog state")
	return WatchdogState(i), err
}

func parse(names []string, s, kind string) (int, error) {
	for i, n := range names {
		if strings.EqualFold(n, s) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("configuration: unknown %s %q (want one of %s)", kind, s, strings.Join(names, ", "))
}
