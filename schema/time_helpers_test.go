package schema

import (
	"testing"
	"time"
)

func Test_ParseLibreTimestamp(t *testing.T) {
	expected := time.Date(2024, time.January, 1, 21, 5, 0, 0, time.UTC)
	parsed, err := ParseLibreTimestamp("1/1/2024 9:05:00 PM", nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !parsed.Equal(expected) {
		t.Fatalf("Expected %v, got %v", expected, parsed)
	}
	if _, err := ParseLibreTimestamp("2024-01-01T21:05:00Z", time.UTC); err == nil {
		t.Fatalf("Expected an error for an ISO timestamp")
	}
}

func Test_ReadingTime(t *testing.T) {
	factory := NewScalar("1/1/2024 8:00:00 AM")
	local := NewScalar("1/1/2024 9:00:00 AM")
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skipf("no timezone database: %v", err)
	}
	got, err := ReadingTime(factory, local, paris)
	if err != nil || !got.Equal(time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("Expected the factory timestamp to win, got %v (%v)", got, err)
	}
	got, err = ReadingTime(Scalar{}, local, paris)
	if err != nil || !got.Equal(time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("Expected the device timestamp read in the device zone, got %v (%v)", got, err)
	}
	got, err = ReadingTime(Scalar{}, local, nil)
	if err != nil || !got.Equal(time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("Expected a device timestamp without zone to be read as UTC, got %v (%v)", got, err)
	}
	if _, err = ReadingTime(Scalar{}, Scalar{}, paris); err == nil {
		t.Fatalf("Expected an error without any timestamp")
	}
}
