// Package db writes measurements to InfluxDB.
package db

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/mtraver/angle-sensor/measurement"
)

const pointMeasurement = "angle"

// newInfluxDBPoints returns one point per value carried by m, tagged with the
// device ID and, if known, the magnet status.
func newInfluxDBPoints(m *measurement.Measurement) ([]*write.Point, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	vm := m.ValueMap()
	points := make([]*write.Point, 0, len(vm))
	for name, v := range vm {
		p := influxdb2.NewPointWithMeasurement(pointMeasurement)
		if metric, ok := measurement.GetMetric(name); ok {
			p = p.AddField(metric.Abbrv, v)
		} else {
			p = p.AddField(name, v)
		}

		p = p.AddTag("device", m.DeviceID)
		if m.Status != "" {
			p = p.AddTag("status", m.Status)
		}
		points = append(points, p.SetTime(m.Timestamp))
	}

	return points, nil
}

type InfluxDB struct {
	serverURL string
	token     string
	org       string
	bucket    string
}

func NewInfluxDB(serverURL, token, org, bucket string) *InfluxDB {
	return &InfluxDB{
		serverURL: serverURL,
		token:     token,
		org:       org,
		bucket:    bucket,
	}
}

func (db *InfluxDB) String() string {
	return fmt.Sprintf("influxdb %s/%s@%s", db.org, db.bucket, db.serverURL)
}

// Save writes m and blocks until the server has accepted it.
func (db *InfluxDB) Save(ctx context.Context, m *measurement.Measurement) error {
	points, err := newInfluxDBPoints(m)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}

	client := influxdb2.NewClient(db.serverURL, db.token)
	defer client.Close()

	if err := client.WriteAPIBlocking(db.org, db.bucket).WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("db: writing to %v: %w", db, err)
	}
	return nil
}
