// Program readangle prints one reading of an AS5600 and exits.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/mtraver/angle-sensor/as5600"
	"github.com/mtraver/angle-sensor/measurement"
)

var (
	busName string
	addr    uint
	asJSON  bool
)

func fatal(format string, a ...interface{}) {
	fmt.Printf(format+"\n", a...)
	os.Exit(1)
}

func toJSONProto(angle physic.Angle, raw uint16, status string) (string, error) {
	m, err := measurement.New("none", time.Now())
	if err != nil {
		return "", err
	}
	m.Angle = measurement.Float(float32(float64(angle) / float64(physic.Degree)))
	m.RawAngle = measurement.Float(float32(raw))
	m.Status = status

	b, err := m.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func main() {
	flag.StringVar(&busName, "bus", "", "name of the I²C bus; empty for the default bus")
	flag.UintVar(&addr, "addr", uint(as5600.DefaultAddress), "I²C address of the sensor")
	flag.BoolVar(&asJSON, "json", false, "print the reading as JSON")
	flag.Parse()

	if _, err := host.Init(); err != nil {
		fatal("Failed to initialize periph: %v", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		fatal("Failed to open I²C bus: %v", err)
	}
	defer bus.Close()

	dev, err := as5600.NewI2C(bus, &as5600.Opts{Addr: uint16(addr)})
	if err != nil {
		fatal("Error connecting to sensor: %v", err)
	}

	st, err := dev.MagnetStatus()
	if err != nil {
		fatal("Sensor check failed: %v", err)
	}
	if !st.Detected() {
		fatal("No magnet detected: %v", st)
	}

	raw, err := dev.RawAngle()
	if err != nil {
		fatal("Failed to read angle: %v", err)
	}
	angle := as5600.AngleOf(raw)

	if !asJSON {
		fmt.Println(angle)
		return
	}

	s, err := toJSONProto(angle, raw, st.String())
	if err != nil {
		fatal("Failed to encode reading: %v", err)
	}
	fmt.Println(s)
}
