// Package as5600 adapts the AS5600 driver to the sensor.Sensor interface.
package as5600

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/physic"

	drv "github.com/mtraver/angle-sensor/as5600"
	"github.com/mtraver/angle-sensor/as5600/configuration"
	"github.com/mtraver/angle-sensor/as5600/status"
	"github.com/mtraver/angle-sensor/measurement"
)

const (
	defaultSamples  = 3
	defaultInterval = 100 * time.Millisecond
)

// Device is the subset of *as5600.Dev that the sensor reads.
type Device interface {
	Angle() (uint16, error)
	RawAngle() (uint16, error)
	Magnitude() (uint16, error)
	AutomaticGainControl() (uint8, error)
	MagnetStatus() (status.Status, error)
	Config() (configuration.Configuration, error)
}

var _ Device = (*drv.Dev)(nil)

type Opts struct {
	// Samples is the number of angle readings averaged per Sense.
	Samples int
	// Interval is the time between readings.
	Interval time.Duration
	// Sleep waits between readings. Nil means time.Sleep.
	Sleep func(time.Duration)
}

type AS5600 struct {
	dev      Device
	log      *zap.Logger
	samples  int
	interval time.Duration
	sleep    func(time.Duration)
}

func New(dev Device, logger *zap.Logger, opts *Opts) *AS5600 {
	if opts == nil {
		opts = &Opts{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &AS5600{
		dev:      dev,
		log:      logger.With(zap.String("sensor", "as5600")),
		samples:  opts.Samples,
		interval: opts.Interval,
		sleep:    opts.Sleep,
	}
	if s.samples <= 0 {
		s.samples = defaultSamples
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	if s.sleep == nil {
		s.sleep = time.Sleep
	}
	return s
}

// Init reads the magnet status and configuration and logs them. A missing
// magnet is logged but is not an error, since it may be mounted later.
func (s *AS5600) Init() error {
	st, err := s.dev.MagnetStatus()
	if err != nil {
		return fmt.Errorf("as5600: reading status: %w", err)
	}
	c, err := s.dev.Config()
	if err != nil {
		return fmt.Errorf("as5600: reading configuration: %w", err)
	}

	s.log.Info("initialized",
		zap.Stringer("status", st),
		zap.Stringer("config", c),
		zap.Int("samples", s.samples),
		zap.Duration("interval", s.interval))
	if !st.Detected() {
		s.log.Warn("no magnet detected", zap.Stringer("status", st))
	}
	return nil
}

// Sense takes the configured number of angle readings and stores their mean
// in m along with the raw angle, magnitude, AGC and status of the last one.
func (s *AS5600) Sense(m *measurement.Measurement) error {
	st, err := s.dev.MagnetStatus()
	if err != nil {
		return err
	}
	if !st.Detected() {
		return fmt.Errorf("as5600: no magnet detected (status: %v)", st)
	}

	degrees := make([]float64, 0, s.samples)
	for i := 0; i < s.samples; i++ {
		v, err := s.dev.Angle()
		if err != nil {
			return err
		}
		degrees = append(degrees, float64(drv.AngleOf(v))/float64(physic.Degree))

		if i < s.samples-1 {
			s.sleep(s.interval)
		}
	}

	raw, err := s.dev.RawAngle()
	if err != nil {
		return err
	}
	mag, err := s.dev.Magnitude()
	if err != nil {
		return err
	}
	agc, err := s.dev.AutomaticGainControl()
	if err != nil {
		return err
	}

	mean := measurement.MeanAngle(degrees)
	if math.IsNaN(mean) {
		return fmt.Errorf("as5600: readings %v have no mean direction", degrees)
	}

	m.Angle = measurement.Float(float32(mean))
	m.RawAngle = measurement.Float(float32(raw))
	m.Magnitude = measurement.Float(float32(mag))
	m.AGC = measurement.Float(float32(agc))
	m.Status = st.String()

	s.log.Debug("sensed",
		zap.Float64("angle", mean),
		zap.Uint16("raw", raw),
		zap.Uint16("magnitude", mag),
		zap.Uint8("agc", agc))
	return nil
}

func (s *AS5600) Shutdown() error {
	s.log.Info("shutdown")
	return nil
}
