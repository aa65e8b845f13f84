// Package dummy provides a sensor that needs no hardware. Each Sense advances
// a simulated shaft by a fixed step.
package dummy

import (
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/mtraver/angle-sensor/as5600/status"
	"github.com/mtraver/angle-sensor/measurement"
)

type Dummy struct {
	log  *zap.Logger
	step float64

	mu    sync.Mutex
	angle float64
}

// New returns a Dummy that turns by step degrees per Sense.
func New(logger *zap.Logger, step float64) *Dummy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dummy{
		log:  logger.With(zap.String("sensor", "dummy")),
		step: step,
	}
}

func (d *Dummy) Init() error {
	d.log.Info("DUMMY SENSOR INIT")
	return nil
}

func (d *Dummy) Sense(m *measurement.Measurement) error {
	d.mu.Lock()
	angle := d.angle
	d.angle = math.Mod(d.angle+d.step, 360)
	if d.angle < 0 {
		d.angle += 360
	}
	d.mu.Unlock()

	m.Angle = measurement.Float(float32(angle))
	m.RawAngle = measurement.Float(float32(math.Round(angle * 4096 / 360)))
	m.Status = status.MagnetDetected.String()

	d.log.Info("DUMMY SENSOR SENSE", zap.Float64("angle", angle))
	return nil
}

func (d *Dummy) Shutdown() error {
	d.log.Info("DUMMY SENSOR SHUTDOWN")
	return nil
}
