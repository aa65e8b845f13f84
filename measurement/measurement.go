package measurement

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	tspb "google.golang.org/protobuf/types/known/timestamppb"
)

// Used for separating substrings in database and cache keys. The octothorpe is
// fine for this because device IDs and timestamps, the two things most likely
// to be used in keys, can't contain it.
const keySep = "#"

var deviceIDRegex = regexp.MustCompile(`^[a-z][a-z0-9+.%~_-]{2,254}$`)

// Measurement is one reading of an angle sensor. Values the sensor did not
// provide are nil.
type Measurement struct {
	DeviceID        string
	Timestamp       time.Time
	UploadTimestamp time.Time

	// Angle is in degrees over a full turn.
	Angle     *float32
	RawAngle  *float32
	Magnitude *float32
	AGC       *float32

	// Status is the magnet status name, e.g. "MagnetDetected".
	Status string
}

// New returns a Measurement for deviceID stamped with t in UTC.
func New(deviceID string, t time.Time) (*Measurement, error) {
	if err := tspb.New(t).CheckValid(); err != nil {
		return nil, fmt.Errorf("measurement: invalid timestamp: %w", err)
	}
	return &Measurement{
		DeviceID:  deviceID,
		Timestamp: t.UTC(),
	}, nil
}

// Float returns a pointer to f, for filling in Measurement values.
func Float(f float32) *float32 {
	return &f
}

// ValueMap returns the values that are set, keyed by metric name.
func (m Measurement) ValueMap() map[string]float32 {
	vals := make(map[string]float32)
	for _, metric := range metrics {
		if v := metric.value(&m); v != nil {
			vals[metric.Name] = *v
		}
	}
	return vals
}

// DBKey returns a string key suitable for a database. It promotes device ID
// and timestamp into the key.
func (m *Measurement) DBKey() string {
	return strings.Join([]string{m.DeviceID, m.Timestamp.Format(time.RFC3339)}, keySep)
}

func (m Measurement) String() string {
	angle := "[unknown]"
	if m.Angle != nil {
		angle = fmt.Sprintf("%.3f°", *m.Angle)
	}

	status := ""
	if m.Status != "" {
		status = " " + m.Status
	}

	delay := ""
	if !m.UploadTimestamp.IsZero() {
		delay = fmt.Sprintf(" (%v upload delay)", m.UploadTimestamp.Sub(m.Timestamp))
	}

	return fmt.Sprintf("%s %s%s %s%s", m.DeviceID, angle, status, m.Timestamp.Format(time.RFC3339), delay)
}

// Validate checks the device ID and the timestamps.
func (m *Measurement) Validate() error {
	if !deviceIDRegex.MatchString(m.DeviceID) {
		return fmt.Errorf("measurement: device ID %q does not match %q", m.DeviceID, deviceIDRegex)
	}
	if err := tspb.New(m.Timestamp).CheckValid(); err != nil || m.Timestamp.IsZero() {
		return fmt.Errorf("measurement: invalid timestamp %v", m.Timestamp)
	}
	if !m.UploadTimestamp.IsZero() {
		if err := tspb.New(m.UploadTimestamp).CheckValid(); err != nil {
			return fmt.Errorf("measurement: invalid upload timestamp: %w", err)
		}
	}
	return nil
}

// CacheKeyLatest returns the cache key of the latest measurement for the given device ID.
func CacheKeyLatest(deviceID string) string {
	return strings.Join([]string{deviceID, "latest"}, keySep)
}
