package measurement

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	spb "google.golang.org/protobuf/types/known/structpb"
	tspb "google.golang.org/protobuf/types/known/timestamppb"
)

const (
	keyDeviceID        = "deviceId"
	keyTimestamp       = "timestamp"
	keyUploadTimestamp = "uploadTimestamp"
	keyStatus          = "status"
)

// ToProto converts m to a protobuf Struct. Timestamps are RFC 3339 strings in
// UTC, matching the JSON mapping of google.protobuf.Timestamp.
func (m *Measurement) ToProto() (*spb.Struct, error) {
	fields := map[string]*spb.Value{
		keyDeviceID: spb.NewStringValue(m.DeviceID),
	}

	ts, err := timestampString(m.Timestamp)
	if err != nil {
		return nil, err
	}
	fields[keyTimestamp] = spb.NewStringValue(ts)

	if !m.UploadTimestamp.IsZero() {
		ts, err := timestampString(m.UploadTimestamp)
		if err != nil {
			return nil, err
		}
		fields[keyUploadTimestamp] = spb.NewStringValue(ts)
	}

	for _, metric := range metrics {
		if v := metric.value(m); v != nil {
			fields[metric.key] = spb.NewNumberValue(float64(*v))
		}
	}

	if m.Status != "" {
		fields[keyStatus] = spb.NewStringValue(m.Status)
	}

	return &spb.Struct{Fields: fields}, nil
}

// FromProto converts a protobuf Struct produced by ToProto back to a Measurement.
func FromProto(s *spb.Struct) (*Measurement, error) {
	fields := s.GetFields()
	m := &Measurement{
		DeviceID: fields[keyDeviceID].GetStringValue(),
		Status:   fields[keyStatus].GetStringValue(),
	}

	tsv, ok := fields[keyTimestamp]
	if !ok {
		return nil, fmt.Errorf("measurement: missing %s", keyTimestamp)
	}
	t, err := parseTimestamp(tsv.GetStringValue())
	if err != nil {
		return nil, err
	}
	m.Timestamp = t

	if v, ok := fields[keyUploadTimestamp]; ok {
		t, err := parseTimestamp(v.GetStringValue())
		if err != nil {
			return nil, err
		}
		m.UploadTimestamp = t
	}

	for _, metric := range metrics {
		v, ok := fields[metric.key]
		if !ok {
			continue
		}
		if _, isNum := v.GetKind().(*spb.Value_NumberValue); !isNum {
			return nil, fmt.Errorf("measurement: %s is not a number", metric.key)
		}
		metric.set(m, float32(v.GetNumberValue()))
	}

	return m, nil
}

// Marshal encodes m in the protobuf wire format.
func (m *Measurement) Marshal() ([]byte, error) {
	s, err := m.ToProto()
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

// Unmarshal decodes a Measurement encoded with Marshal.
func Unmarshal(b []byte) (*Measurement, error) {
	var s spb.Struct
	if err := proto.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("measurement: %w", err)
	}
	return FromProto(&s)
}

// MarshalJSON implements json.Marshaler using the protobuf JSON mapping.
func (m Measurement) MarshalJSON() ([]byte, error) {
	s, err := m.ToProto()
	if err != nil {
		return nil, err
	}
	return protojson.Marshal(s)
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Measurement) UnmarshalJSON(b []byte) error {
	var s spb.Struct
	if err := protojson.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("measurement: %w", err)
	}
	got, err := FromProto(&s)
	if err != nil {
		return err
	}
	*m = *got
	return nil
}

func timestampString(t time.Time) (string, error) {
	pbts := tspb.New(t)
	if err := pbts.CheckValid(); err != nil {
		return "", fmt.Errorf("measurement: invalid timestamp: %w", err)
	}
	return pbts.AsTime().Format(time.RFC3339Nano), nil
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("measurement: invalid timestamp: %w", err)
	}
	return t.UTC(), nil
}
