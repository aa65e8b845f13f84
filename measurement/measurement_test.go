package measurement

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/proto"
	spb "google.golang.org/protobuf/types/known/structpb"
)

var (
	testTimestamp  = time.Date(2018, time.March, 25, 0, 0, 0, 0, time.UTC)
	testTimestamp2 = time.Date(2018, time.March, 25, 14, 40, 0, 0, time.UTC)
)

func TestNew(t *testing.T) {
	loc := time.FixedZone("PDT", -7*60*60)
	m, err := New("foo", time.Date(2018, time.March, 24, 17, 0, 0, 0, loc))
	if err != nil {
		t.Fatalf("Got error, expected nil: %v", err)
	}
	if m.Timestamp.Location() != time.UTC || !m.Timestamp.Equal(testTimestamp) {
		t.Errorf("Timestamp = %v, want %v", m.Timestamp, testTimestamp)
	}

	if _, err := New("foo", time.Date(10000, time.January, 1, 0, 0, 0, 0, time.UTC)); err == nil {
		t.Errorf("Expected error for out-of-range timestamp, got nil")
	}
}

func TestMeasurementString(t *testing.T) {
	cases := []struct {
		name string
		m    Measurement
		want string
	}{
		{"empty", Measurement{}, " [unknown] 0001-01-01T00:00:00Z"},
		{"no_upload_timestamp",
			Measurement{
				DeviceID:  "foo",
				Timestamp: testTimestamp,
				Angle:     Float(123.4567),
			},
			"foo 123.457° 2018-03-25T00:00:00Z",
		},
		{"upload_timestamp",
			Measurement{
				DeviceID:        "foo",
				Timestamp:       testTimestamp,
				UploadTimestamp: testTimestamp2,
				Angle:           Float(90),
				Status:          "MagnetDetected",
			},
			"foo 90.000° MagnetDetected 2018-03-25T00:00:00Z (14h40m0s upload delay)",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := fmt.Sprintf("%v", c.m)
			if got != c.want {
				t.Errorf("Got %q, want %q", got, c.want)
			}
		})
	}
}

func TestValueMap(t *testing.T) {
	m := Measurement{
		Angle:     Float(12.5),
		Magnitude: Float(1500),
		AGC:       Float(128),
	}
	want := map[string]float32{
		"angle":     12.5,
		"magnitude": 1500,
		"agc":       128,
	}
	if diff := cmp.Diff(m.ValueMap(), want); diff != "" {
		t.Errorf("Unexpected result (-got +want):\n%s", diff)
	}
}

func TestGetMetric(t *testing.T) {
	m, ok := GetMetric("raw_angle")
	if !ok || m.Abbrv != "raw" {
		t.Errorf("GetMetric(raw_angle) = %q, %t", m.Abbrv, ok)
	}
	if _, ok := GetMetric("temp"); ok {
		t.Errorf("GetMetric(temp): expected not found")
	}
}

func TestDBKey(t *testing.T) {
	m := Measurement{
		DeviceID:  "foo",
		Timestamp: testTimestamp,
		Angle:     Float(18.5),
	}

	expected := "foo#2018-03-25T00:00:00Z"
	key := m.DBKey()
	if key != expected {
		t.Errorf("Incorrect DB key. Expected %q, got %q", expected, key)
	}

	if got := CacheKeyLatest("foo"); got != "foo#latest" {
		t.Errorf("CacheKeyLatest = %q", got)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name  string
		m     Measurement
		valid bool
	}{
		{"valid", Measurement{DeviceID: "foo", Timestamp: testTimestamp}, true},
		{"valid_symbols", Measurement{DeviceID: "bench-1.a_b", Timestamp: testTimestamp}, true},
		{"uppercase", Measurement{DeviceID: "Foo", Timestamp: testTimestamp}, false},
		{"too_short", Measurement{DeviceID: "ab", Timestamp: testTimestamp}, false},
		{"leading_digit", Measurement{DeviceID: "1abc", Timestamp: testTimestamp}, false},
		{"no_timestamp", Measurement{DeviceID: "foo"}, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.m.Validate()
			if c.valid && err != nil {
				t.Errorf("Unexpected error: %v", err)
			} else if !c.valid && err == nil {
				t.Errorf("Expected error, got no error")
			}
		})
	}
}

var roundTripCases = []struct {
	name string
	m    Measurement
}{
	{"timestamp_only", Measurement{DeviceID: "foo", Timestamp: testTimestamp}},
	{"full",
		Measurement{
			DeviceID:        "foo",
			Timestamp:       testTimestamp,
			UploadTimestamp: testTimestamp2,
			Angle:           Float(359.91211),
			RawAngle:        Float(4095),
			Magnitude:       Float(2047),
			AGC:             Float(128),
			Status:          "MagnetDetected",
		},
	},
	{"fractional_seconds",
		Measurement{
			DeviceID:  "foo",
			Timestamp: testTimestamp.Add(123456789 * time.Nanosecond),
			Angle:     Float(0),
		},
	},
}

func TestMarshalRoundTrip(t *testing.T) {
	for _, c := range roundTripCases {
		t.Run(c.name, func(t *testing.T) {
			b, err := c.m.Marshal()
			if err != nil {
				t.Fatalf("Got error, expected nil: %v", err)
			}

			got, err := Unmarshal(b)
			if err != nil {
				t.Fatalf("Got error, expected nil: %v", err)
			}

			if diff := cmp.Diff(*got, c.m); diff != "" {
				t.Errorf("Unexpected result (-got +want):\n%s", diff)
			}
		})
	}
}

func TestJSONRoundTrip(t *testing.T) {
	for _, c := range roundTripCases {
		t.Run(c.name, func(t *testing.T) {
			b, err := json.Marshal(c.m)
			if err != nil {
				t.Fatalf("Got error, expected nil: %v", err)
			}

			var got Measurement
			if err := json.Unmarshal(b, &got); err != nil {
				t.Fatalf("Got error, expected nil: %v", err)
			}

			if diff := cmp.Diff(got, c.m); diff != "" {
				t.Errorf("Unexpected result (-got +want):\n%s", diff)
			}
		})
	}
}

func TestMarshalJSON(t *testing.T) {
	m := Measurement{
		DeviceID:  "foo",
		Timestamp: testTimestamp,
		Angle:     Float(90),
		Status:    "MagnetDetected",
	}
	want := map[string]any{
		"deviceId":  "foo",
		"timestamp": "2018-03-25T00:00:00Z",
		"angle":     90.0,
		"status":    "MagnetDetected",
	}

	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Got error, expected nil: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Got error, expected nil: %v", err)
	}

	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("Unexpected result (-got +want):\n%s", diff)
	}
}

func TestFromProtoErrors(t *testing.T) {
	cases := []struct {
		name   string
		fields map[string]*spb.Value
	}{
		{"no_timestamp", map[string]*spb.Value{
			"deviceId": spb.NewStringValue("foo"),
		}},
		{"bad_timestamp", map[string]*spb.Value{
			"timestamp": spb.NewStringValue("yesterday"),
		}},
		{"bad_upload_timestamp", map[string]*spb.Value{
			"timestamp":       spb.NewStringValue("2018-03-25T00:00:00Z"),
			"uploadTimestamp": spb.NewNumberValue(1),
		}},
		{"angle_not_number", map[string]*spb.Value{
			"timestamp": spb.NewStringValue("2018-03-25T00:00:00Z"),
			"angle":     spb.NewStringValue("90"),
		}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b, err := proto.Marshal(&spb.Struct{Fields: c.fields})
			if err != nil {
				t.Fatal(err)
			}
			if _, err := Unmarshal(b); err == nil {
				t.Errorf("Expected error, got no error")
			}
		})
	}
}

func TestUnmarshalGarbage(t *testing.T) {
	if _, err := Unmarshal([]byte{0xFF, 0xFF, 0xFF}); err == nil {
		t.Errorf("Expected error, got no error")
	}
	var m Measurement
	if err := json.Unmarshal([]byte(`{"timestamp": 5}`), &m); err == nil {
		t.Errorf("Expected error, got no error")
	}
}
