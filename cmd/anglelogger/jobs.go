package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mtraver/angle-sensor/cache"
	"github.com/mtraver/angle-sensor/measurement"
	"github.com/mtraver/angle-sensor/pending"
	"github.com/mtraver/angle-sensor/sensor"
)

const (
	publishWait = 10 * time.Second
	latestTTL   = time.Hour
)

// Saver stores measurements, e.g. *db.InfluxDB.
type Saver interface {
	Save(ctx context.Context, m *measurement.Measurement) error
}

type SetupJob struct {
	Sensors []string
	Log     *zap.Logger
}

func (j SetupJob) Run() {
	for _, name := range j.Sensors {
		s, err := sensor.Get(name)
		if err != nil {
			j.Log.Error("error getting sensor", zap.String("sensor", name), zap.Error(err))
			continue
		}
		if err := s.Init(); err != nil {
			j.Log.Error("failed to init sensor", zap.String("sensor", name), zap.Error(err))
			continue
		}
	}
}

type SenseJob struct {
	Sensors  []string
	DeviceID string
	Topic    string

	// Publisher is nil in dry runs.
	Publisher pending.Publisher
	// DB is optional.
	DB      Saver
	Pending *pending.Store
	Latest  *cache.Cache[measurement.Measurement]

	Dryrun bool
	Log    *zap.Logger
	Now    func() time.Time
}

func (j SenseJob) Run() {
	// Create a Measurement that we'll pass along to each sensor.
	m, err := measurement.New(j.DeviceID, j.Now())
	if err != nil {
		j.Log.Error("invalid timestamp", zap.Error(err))
		return
	}

	count := 0
	for _, name := range j.Sensors {
		s, err := sensor.Get(name)
		if err != nil {
			j.Log.Error("error getting sensor", zap.String("sensor", name), zap.Error(err))
			continue
		}
		if err := s.Sense(m); err != nil {
			j.Log.Error("failed to take measurement", zap.String("sensor", name), zap.Error(err))
			continue
		}
		count++
	}

	if count <= 0 {
		j.Log.Warn("took no measurements, will not publish")
		return
	}

	j.Latest.Set(measurement.CacheKeyLatest(j.DeviceID), *m, latestTTL)

	if j.Dryrun {
		j.Log.Info("dry run", zap.Stringer("measurement", m))
		return
	}
	if err := j.publish(m); err != nil {
		j.Log.Error("failed to publish measurement", zap.Error(err))
	}
}

// publish sends m to the MQTT broker and the database concurrently. If the
// MQTT publish fails, m is saved to the pending store to be sent later.
func (j SenseJob) publish(m *measurement.Measurement) error {
	if err := m.Validate(); err != nil {
		return err
	}

	var wg sync.WaitGroup
	errs := make(chan error, 3)

	if j.Publisher != nil {
		payload, err := m.Marshal()
		if err != nil {
			return err
		}

		wg.Add(1)
		go func() {
			defer wg.Done()

			err := pending.Wait(j.Publisher.Publish(j.Topic, 1, false, payload), publishWait)
			if err == nil {
				j.Log.Info("successful publish", zap.String("topic", j.Topic))
				return
			}
			errs <- fmt.Errorf("[mqtt] %w", err)

			if j.Pending != nil {
				if err := j.Pending.Save(m); err != nil {
					errs <- fmt.Errorf("[pending] %w", err)
				}
			}
		}()
	}

	if j.DB != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), publishWait)
			defer cancel()
			if err := j.DB.Save(ctx, m); err != nil {
				errs <- fmt.Errorf("[db] %w", err)
			}
		}()
	}

	wg.Wait()
	close(errs)

	errSlice := []error{}
	for e := range errs {
		errSlice = append(errSlice, e)
	}

	return errors.Join(errSlice...)
}

type ShutdownJob struct {
	Sensors []string
	Log     *zap.Logger
}

func (j ShutdownJob) Run() {
	for _, name := range j.Sensors {
		s, err := sensor.Get(name)
		if err != nil {
			j.Log.Error("error getting sensor", zap.String("sensor", name), zap.Error(err))
			continue
		}
		if err := s.Shutdown(); err != nil {
			j.Log.Error("failed to shut down sensor", zap.String("sensor", name), zap.Error(err))
			continue
		}
	}
}
