package measurement

// Metric describes one value a Measurement can carry.
type Metric struct {
	Name  string
	Abbrv string
	Unit  string

	// key names the value in the wire encoding.
	key   string
	value func(m *Measurement) *float32
}

var metrics = []Metric{
	{Name: "angle", Abbrv: "angle", Unit: "°", key: "angle", value: func(m *Measurement) *float32 { return m.Angle }},
	{Name: "raw_angle", Abbrv: "raw", key: "rawAngle", value: func(m *Measurement) *float32 { return m.RawAngle }},
	{Name: "magnitude", Abbrv: "mag", key: "magnitude", value: func(m *Measurement) *float32 { return m.Magnitude }},
	{Name: "agc", Abbrv: "agc", key: "agc", value: func(m *Measurement) *float32 { return m.AGC }},
}

// GetMetric looks up a metric by name.
func GetMetric(name string) (Metric, bool) {
	for _, m := range metrics {
		if m.Name == name {
			return m, true
		}
	}
	return Metric{}, false
}

// set stores v in the field of m that backs the metric.
func (mt Metric) set(m *Measurement, v float32) {
	switch mt.Name {
	case "angle":
		m.Angle = Float(v)
	case "raw_angle":
		m.RawAngle = Float(v)
	case "magnitude":
		m.Magnitude = Float(v)
	case "agc":
		m.AGC = Float(v)
	}
}
