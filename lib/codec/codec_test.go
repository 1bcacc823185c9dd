package codec

import (
	"reflect"
	"testing"
)

// testCodecs is a map of codec name to factory function
var testCodecs = map[string]func() ICodec{
	"CBOR": NewCBORCodec,
	"GOB":  NewGOBCodec,
	"JSON": NewJSONCodec,
}

// testRecord is a representative value type for round-trip testing
type testRecord struct {
	Name    string
	Count   int64
	Ratio   float64
	Active  bool
	Tags    []string
	Payload []byte
	Nested  testNested
}

type testNested struct {
	X int32
	Y int32
	Z int32
}

// testRecords creates a set of test values with different fields filled
func testRecords() []testRecord {
	return []testRecord{
		// Zero value
		{},

		// Basic record
		{
			Name:   "test-record",
			Count:  42,
			Active: true,
		},

		// Record with collections
		{
			Name:    "with-collections",
			Tags:    []string{"a", "b", "c"},
			Payload: []byte("some binary payload"),
		},

		// Record with negative and fractional numbers
		{
			Name:  "numeric-edge",
			Count: -9_223_372_036_854_775_808,
			Ratio: 0.25,
		},

		// Record with unicode content
		{
			Name: "unicode-äöü-桜",
			Tags: []string{"✓", "ß"},
		},

		// Record with all fields filled
		{
			Name:    "complete",
			Count:   1 << 40,
			Ratio:   3.5,
			Active:  true,
			Tags:    []string{"x", "y"},
			Payload: []byte{0x00, 0xff, 0x10},
			Nested:  testNested{X: 1, Y: 2, Z: 3},
		},
	}
}

// TestCodecRoundTrip tests that values can be encoded and decoded correctly
func TestCodecRoundTrip(t *testing.T) {
	records := testRecords()

	for name, factory := range testCodecs {
		t.Run(name, func(t *testing.T) {
			c := factory()

			for i, record := range records {
				// Marshal
				data, err := c.Marshal(record)
				if err != nil {
					t.Errorf("Failed to marshal record %d: %v", i, err)
					continue
				}

				// Unmarshal
				var result testRecord
				err = c.Unmarshal(data, &result)
				if err != nil {
					t.Errorf("Failed to unmarshal record %d: %v", i, err)
					continue
				}

				// Compare
				if !reflect.DeepEqual(record, result) {
					t.Errorf("Record %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, record, result)
				}
			}
		})
	}
}

// TestCodecScalarValues tests round trips of plain (non-struct) values
func TestCodecScalarValues(t *testing.T) {
	for name, factory := range testCodecs {
		t.Run(name, func(t *testing.T) {
			c := factory()

			// int round trip
			data, err := c.Marshal(12000)
			if err != nil {
				t.Fatalf("Failed to marshal int: %v", err)
			}
			var i int
			if err := c.Unmarshal(data, &i); err != nil {
				t.Fatalf("Failed to unmarshal int: %v", err)
			}
			if i != 12000 {
				t.Errorf("Int round trip mismatch: expected 12000, got %d", i)
			}

			// string round trip
			data, err = c.Marshal("test-value")
			if err != nil {
				t.Fatalf("Failed to marshal string: %v", err)
			}
			var s string
			if err := c.Unmarshal(data, &s); err != nil {
				t.Fatalf("Failed to unmarshal string: %v", err)
			}
			if s != "test-value" {
				t.Errorf("String round trip mismatch: expected test-value, got %s", s)
			}
		})
	}
}

// TestCodecDeterministic tests that encoding the same value twice yields the
// same bytes (required so repeated writes of equal values are stable)
func TestCodecDeterministic(t *testing.T) {
	record := testRecords()[len(testRecords())-1]

	for name, factory := range testCodecs {
		t.Run(name, func(t *testing.T) {
			c := factory()

			a, err := c.Marshal(record)
			if err != nil {
				t.Fatalf("Failed to marshal: %v", err)
			}
			b, err := c.Marshal(record)
			if err != nil {
				t.Fatalf("Failed to marshal: %v", err)
			}

			if !reflect.DeepEqual(a, b) {
				t.Errorf("Encoding is not deterministic")
			}
		})
	}
}

// TestInvalidData tests how the codecs handle corrupt or truncated input
func TestInvalidData(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
	}{
		{name: "Empty data", data: []byte{}},
		{name: "Nil data", data: nil},
		{name: "Garbage", data: []byte{0xde, 0xad, 0xbe}},
	}

	for name, factory := range testCodecs {
		t.Run(name, func(t *testing.T) {
			c := factory()

			for _, tc := range testCases {
				t.Run(tc.name, func(t *testing.T) {
					var result testRecord
					if err := c.Unmarshal(tc.data, &result); err == nil {
						t.Errorf("Expected error for invalid data but got none")
					}
				})
			}

			// A truncated valid encoding must also fail
			data, err := c.Marshal(testRecords()[len(testRecords())-1])
			if err != nil {
				t.Fatalf("Failed to marshal: %v", err)
			}
			var result testRecord
			if err := c.Unmarshal(data[:len(data)/2], &result); err == nil {
				t.Errorf("Expected error for truncated data but got none")
			}
		})
	}
}

// TestTypeMismatch tests that decoding into a wrong type fails instead of
// silently corrupting the target value
func TestTypeMismatch(t *testing.T) {
	for name, factory := range testCodecs {
		t.Run(name, func(t *testing.T) {
			c := factory()

			data, err := c.Marshal("just a string")
			if err != nil {
				t.Fatalf("Failed to marshal: %v", err)
			}

			var result testRecord
			if err := c.Unmarshal(data, &result); err == nil {
				t.Errorf("Expected error when decoding string into struct but got none")
			}
		})
	}
}
