package sensor

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mtraver/angle-sensor/measurement"
)

var (
	sensorsMu sync.Mutex
	sensors   map[string]Sensor
)

type Sensor interface {
	// Init performs any sensor-specific initialization.
	Init() error
	// Sense queries the sensor and sets the appropriate field(s) in the given
	// Measurement. This is so that the same Measurement may be passed to a
	// series of sensors that each measure different things.
	Sense(m *measurement.Measurement) error
	// Shutdown performs any sensor-specific shutdown or cleanup operations.
	Shutdown() error
}

// Register adds a Sensor to the set of available sensors.
func Register(name string, s Sensor) {
	sensorsMu.Lock()
	defer sensorsMu.Unlock()

	if sensors == nil {
		sensors = make(map[string]Sensor)
	}
	sensors[name] = s
}

// Get looks up a sensor by name. It returns an error if no sensor with
// the given name is found.
func Get(name string) (Sensor, error) {
	sensorsMu.Lock()
	defer sensorsMu.Unlock()

	s, ok := sensors[name]
	if !ok {
		return nil, fmt.Errorf("unknown sensor %q", name)
	}
	return s, nil
}

// Names returns the names of all registered sensors in sorted order.
func Names() []string {
	sensorsMu.Lock()
	defer sensorsMu.Unlock()

	names := make([]string, 0, len(sensors))
	for name := range sensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
