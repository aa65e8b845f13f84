// Package pending stores measurements that could not be published and
// publishes them later.
package pending

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
	"google.golang.org/protobuf/encoding/protojson"
	spb "google.golang.org/protobuf/types/known/structpb"

	"github.com/mtraver/angle-sensor/measurement"
)

const (
	fileExt     = ".json"
	publishWait = 10 * time.Second
)

// Publisher is the part of mqtt.Client used to publish.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

var _ Publisher = (mqtt.Client)(nil)

// Store is a directory of measurements, one JSON file per measurement.
type Store struct {
	dir string
	log *zap.Logger
	now func() time.Time
}

func New(dir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		dir: dir,
		log: logger.With(zap.String("pending_dir", dir)),
		now: time.Now,
	}
}

// Save converts the given Measurement to JSON and saves it to disk. The file
// is named by the SHA-256 of its contents.
func (s *Store) Save(m *measurement.Measurement) error {
	pb, err := m.ToProto()
	if err != nil {
		return err
	}
	b, err := protojson.MarshalOptions{Indent: "  "}.Marshal(pb)
	if err != nil {
		return err
	}

	name := fmt.Sprintf("%x%s", sha256.Sum256(b), fileExt)
	if err := os.WriteFile(filepath.Join(s.dir, name), b, 0644); err != nil {
		return err
	}
	s.log.Info("saved pending measurement", zap.String("file", name))
	return nil
}

// Count returns the number of saved measurements.
func (s *Store) Count() (int, error) {
	files, err := s.files()
	return len(files), err
}

// PublishAll reads any Measurements saved to disk and attempts to publish
// them to topic. Each one is deleted once it has been published. It returns
// the first error encountered, or nil if all publishes succeed.
func (s *Store) PublishAll(client Publisher, topic string) error {
	files, err := s.files()
	if err != nil {
		return err
	}

	for _, path := range files {
		if err := s.publish(client, topic, path); err != nil {
			return err
		}

		if err := os.Remove(path); err != nil {
			s.log.Warn("failed to remove published measurement", zap.String("file", path), zap.Error(err))
		}
	}

	if len(files) > 0 {
		s.log.Info("published pending measurements", zap.Int("count", len(files)))
	}
	return nil
}

func (s *Store) files() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), fileExt) {
			files = append(files, filepath.Join(s.dir, e.Name()))
		}
	}
	return files, nil
}

func (s *Store) publish(client Publisher, topic string, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var pb spb.Struct
	if err := protojson.Unmarshal(b, &pb); err != nil {
		return fmt.Errorf("pending: %s: %w", filepath.Base(path), err)
	}
	m, err := measurement.FromProto(&pb)
	if err != nil {
		return fmt.Errorf("pending: %s: %w", filepath.Base(path), err)
	}

	// Set the upload timestamp, since this is a delayed upload.
	m.UploadTimestamp = s.now().UTC()

	payload, err := m.Marshal()
	if err != nil {
		return err
	}

	return Wait(client.Publish(topic, 1, false, payload), publishWait)
}

// Wait waits for token to complete and returns its error. It fails if the
// token does not complete within d.
func Wait(token mqtt.Token, d time.Duration) error {
	if ok := token.WaitTimeout(d); !ok {
		return fmt.Errorf("pending: publish timed out after %v", d)
	} else if token.Error() != nil {
		return fmt.Errorf("pending: publish failed: %w", token.Error())
	}
	return nil
}
