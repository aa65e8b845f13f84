package as5600

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/physic"

	"github.com/mtraver/angle-sensor/as5600/configuration"
	"github.com/mtraver/angle-sensor/as5600/register"
	"github.com/mtraver/angle-sensor/as5600/status"
)

func TestNew(t *testing.T) {
	bus := newScriptBus(t)

	cases := []struct {
		name string
		opts *Opts
		ok   bool
	}{
		{"nil_opts", nil, true},
		{"default", &DefaultOpts, true},
		{"zero", &Opts{}, true},
		{"short_settle", &Opts{SettleTime: BurnSettleTime / 2}, false},
		{"bad_addr", &Opts{Addr: 0x80}, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d, err := New(bus, c.opts)
			if (err == nil) != c.ok {
				t.Fatalf("New() error = %v, want ok = %t", err, c.ok)
			}
			if err == nil && d.String() != "AS5600{0x36}" {
				t.Errorf("String() = %q", d.String())
			}
		})
	}

	if _, err := New(nil, nil); err == nil {
		t.Errorf("New(nil): expected error")
	}
}

func TestRawAngle(t *testing.T) {
	bus := newScriptBus(t, writeRead([]byte{0x0C}, []byte{0b1110_0001, 0b0010_0011}))
	d := newTestDev(t, bus, nil)

	got, err := d.RawAngle()
	if err != nil {
		t.Fatalf("Got error, expected nil: %v", err)
	}
	if got != 0x0123 {
		t.Errorf("RawAngle() = 0x%04x, want 0x0123", got)
	}
	bus.done()
}

func TestReadTwelveBitRegisters(t *testing.T) {
	cases := []struct {
		name string
		reg  byte
		read func(d *Dev) (uint16, error)
		r    []byte
		want uint16
	}{
		{"zpos", 0x01, (*Dev).ZeroPosition, []byte{0b1001_1010, 0b1010_1111}, 0b0000_1010_1010_1111},
		{"mpos", 0x03, (*Dev).MaximumPosition, []byte{0b1101_0010, 0b0010_1010}, 0b0000_0010_0010_1010},
		{"mang", 0x05, (*Dev).MaximumAngle, []byte{0xFF, 0xFF}, 0x0FFF},
		{"angle", 0x0E, (*Dev).Angle, []byte{0x10, 0x00}, 0x0000},
		{"magnitude", 0x1B, (*Dev).Magnitude, []byte{0x0A, 0xBC}, 0x0ABC},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			bus := newScriptBus(t, writeRead([]byte{c.reg}, c.r))
			d := newTestDev(t, bus, nil)

			got, err := c.read(d)
			if err != nil {
				t.Fatalf("Got error, expected nil: %v", err)
			}
			if got != c.want {
				t.Errorf("got 0x%04x, want 0x%04x", got, c.want)
			}
			bus.done()
		})
	}
}

func TestZmco(t *testing.T) {
	cases := []struct {
		b    byte
		want uint8
	}{
		{0b0000_0000, 0},
		{0b0000_0001, 1},
		{0b0000_0010, 2},
		{0b0000_0011, 3},
		{0b0000_0100, 0},
	}

	for _, c := range cases {
		bus := newScriptBus(t, writeRead([]byte{0x00}, []byte{c.b}))
		d := newTestDev(t, bus, nil)

		got, err := d.Zmco()
		if err != nil {
			t.Fatalf("Got error, expected nil: %v", err)
		}
		if got != c.want {
			t.Errorf("Zmco() with 0x%02x = %d, want %d", c.b, got, c.want)
		}
		bus.done()
	}
}

func TestAutomaticGainControl(t *testing.T) {
	bus := newScriptBus(t, writeRead([]byte{0x1A}, []byte{0x80}))
	d := newTestDev(t, bus, nil)

	got, err := d.AutomaticGainControl()
	if err != nil {
		t.Fatalf("Got error, expected nil: %v", err)
	}
	if got != 0x80 {
		t.Errorf("AutomaticGainControl() = %d, want 128", got)
	}
	bus.done()
}

func TestMagnetStatus(t *testing.T) {
	bus := newScriptBus(t,
		writeRead([]byte{0x0B}, []byte{0x10}),
		writeRead([]byte{0x0B}, []byte{0x08}),
		writeRead([]byte{0x0B}, []byte{0x28}),
		writeRead([]byte{0x0B}, []byte{0x20}),
		writeRead([]byte{0x0B}, []byte{0x40}),
		writeRead([]byte{0x0B}, []byte{0x18}),
		writeRead([]byte{0x0B}, []byte{0x30}),
		writeRead([]byte{0x0B}, []byte{0x38}),
	)
	d := newTestDev(t, bus, nil)

	want := []struct {
		s      status.Status
		masked byte
		err    bool
	}{
		{s: status.MagnetLow},
		{s: status.MagnetHigh},
		{s: status.MagnetDetectedHigh},
		{s: status.MagnetDetected},
		{masked: 0x00, err: true},
		{masked: 0x18, err: true},
		{s: status.MagnetDetectedLow},
		{masked: 0x38, err: true},
	}

	for i, w := range want {
		got, err := d.MagnetStatus()
		if w.err {
			var ibp *status.InvalidBitPatternError
			if !errors.As(err, &ibp) {
				t.Fatalf("read %d: err = %v, want *status.InvalidBitPatternError", i, err)
			}
			if ibp.Masked != w.masked {
				t.Errorf("read %d: error carries 0x%02x, want 0x%02x", i, ibp.Masked, w.masked)
			}
			if !IsDecode(err) {
				t.Errorf("read %d: IsDecode(%v) = false", i, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("read %d: Got error, expected nil: %v", i, err)
		}
		if got != w.s {
			t.Errorf("read %d: got %v, want %v", i, got, w.s)
		}
	}
	bus.done()
}

func TestConfig(t *testing.T) {
	bus := newScriptBus(t, writeRead([]byte{0x07}, []byte{0b1110_0011, 0b1010_1100}))
	d := newTestDev(t, bus, nil)

	got, err := d.Config()
	if err != nil {
		t.Fatalf("Got error, expected nil: %v", err)
	}

	want := configuration.Configuration{
		PowerMode:           configuration.Nom,
		Hysteresis:          configuration.Lsb3,
		OutputStage:         configuration.DigitalPwm,
		PwmFrequency:        configuration.PwmF3,
		SlowFilter:          configuration.X2,
		FastFilterThreshold: configuration.SlowFilterOnly,
		WatchdogState:       configuration.WatchdogOn,
		Raw:                 0b1110_0011_1010_1100,
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("Unexpected result (-got +want):\n%s", diff)
	}
	bus.done()
}

func TestConfigInvalidOutputStage(t *testing.T) {
	bus := newScriptBus(t, writeRead([]byte{0x07}, []byte{0x00, 0b0011_0000}))
	d := newTestDev(t, bus, nil)

	_, err := d.Config()
	var ios *configuration.InvalidOutputStageError
	if !errors.As(err, &ios) {
		t.Fatalf("Config() err = %v, want *configuration.InvalidOutputStageError", err)
	}
	bus.done()
}

func TestSetConfigPreservesReservedBits(t *testing.T) {
	c := configuration.Configuration{
		PowerMode:    configuration.Lpm2,
		SlowFilter:   configuration.X8,
		PwmFrequency: configuration.PwmF4,
		// Stale snapshot: the device holds 0b10 in the undefined bits.
		Raw: 0x4000,
	}

	bus := newScriptBus(t,
		writeRead([]byte{0x07}, []byte{0b1000_0000, 0x00}),
		write(0x07, 0b1000_0001, 0b1100_0010),
	)
	d := newTestDev(t, bus, nil)

	if err := d.SetConfig(c); err != nil {
		t.Fatalf("Got error, expected nil: %v", err)
	}
	bus.done()
}

func TestSetConfigRejectsInvalid(t *testing.T) {
	bus := newScriptBus(t)
	d := newTestDev(t, bus, nil)

	if err := d.SetConfig(configuration.Configuration{OutputStage: 3}); err == nil {
		t.Errorf("SetConfig with invalid output stage: expected error")
	}
	bus.done()
}

func TestWrites(t *testing.T) {
	cases := []struct {
		name  string
		write func(d *Dev, v uint16) error
		v     uint16
		w     []byte
	}{
		{"zpos", (*Dev).SetZeroPosition, 0x0ABC, []byte{0x01, 0x0A, 0xBC}},
		{"mpos", (*Dev).SetMaximumPosition, 0xF123, []byte{0x03, 0x01, 0x23}},
		{"mang", (*Dev).SetMaximumAngle, 0x0800, []byte{0x05, 0x08, 0x00}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			bus := newScriptBus(t, write(c.w...))
			d := newTestDev(t, bus, nil)

			if err := c.write(d, c.v); err != nil {
				t.Fatalf("Got error, expected nil: %v", err)
			}
			bus.done()
		})
	}
}

func TestBusError(t *testing.T) {
	bus := newScriptBus(t, tx{addr: DefaultAddress, w: []byte{0x0E}, r: make([]byte, 2), err: errBus})
	d := newTestDev(t, bus, nil)

	_, err := d.Angle()
	if !IsBus(err) {
		t.Fatalf("Angle() err = %v, want *BusError", err)
	}
	if !errors.Is(err, errBus) {
		t.Errorf("errors.Is(%v, errBus) = false", err)
	}
	if IsDecode(err) || IsPersistence(err) {
		t.Errorf("bus error classified as decode or persistence error")
	}
	bus.done()
}

func TestReadRegister(t *testing.T) {
	bus := newScriptBus(t, writeRead([]byte{0x0B}, []byte{0xFF}))
	d := newTestDev(t, bus, nil)

	got, err := d.ReadRegister(register.Status)
	if err != nil {
		t.Fatalf("Got error, expected nil: %v", err)
	}
	if got != 0x38 {
		t.Errorf("ReadRegister(STATUS) = 0x%02x, want 0x38", got)
	}

	if _, err := d.ReadRegister(register.Burn); err == nil {
		t.Errorf("ReadRegister(BURN): expected error")
	}
	bus.done()
}

func TestRelease(t *testing.T) {
	bus := newScriptBus(t)
	d := newTestDev(t, bus, nil)

	if got := d.Release(); got != Bus(bus) {
		t.Errorf("Release() returned a different bus")
	}
	if _, err := d.RawAngle(); !errors.Is(err, ErrReleased) {
		t.Errorf("RawAngle() after Release: err = %v, want ErrReleased", err)
	}
	if err := d.PersistPosition(); !errors.Is(err, ErrReleased) {
		t.Errorf("PersistPosition() after Release: err = %v, want ErrReleased", err)
	}
	bus.done()
}

func TestAngleOf(t *testing.T) {
	cases := []struct {
		v    uint16
		want physic.Angle
	}{
		{0, 0},
		{1024, 90 * physic.Degree},
		{2048, 180 * physic.Degree},
		{0xF000, 0},
	}

	for _, c := range cases {
		got := AngleOf(c.v)
		diff := got - c.want
		if diff < 0 {
			diff = -diff
		}
		if diff > physic.MicroRadian {
			t.Errorf("AngleOf(%d) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestSenseRawAngle(t *testing.T) {
	bus := newScriptBus(t, writeRead([]byte{0x0C}, []byte{0x04, 0x00}))
	d := newTestDev(t, bus, nil)

	got, err := d.SenseRawAngle()
	if err != nil {
		t.Fatalf("Got error, expected nil: %v", err)
	}
	if want := 90 * physic.Degree; got != want {
		t.Errorf("SenseRawAngle() = %v, want %v", got, want)
	}
	bus.done()
}
