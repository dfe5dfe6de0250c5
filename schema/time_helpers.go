package schema

import (
	"errors"
	"time"
)

// LibreView sends timestamps in a US locale without zone information
const libreTimestampLayout = "1/2/2006 3:04:05 PM"

// CsvTimestampLayout is the layout of the write time prepended to every csv row
const CsvTimestampLayout = "2006-01-02 15:04:05"

// ParseLibreTimestamp parses a LibreView timestamp in the given location
func ParseLibreTimestamp(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(libreTimestampLayout, value, loc)
}

// ReadingTime picks the factory timestamp, which is UTC, and falls back on the
// device timestamp read in deviceLoc, the zone of the patient's reader
func ReadingTime(factoryTimestamp Scalar, timestamp Scalar, deviceLoc *time.Location) (time.Time, error) {
	if !factoryTimestamp.IsAbsent() {
		return ParseLibreTimestamp(factoryTimestamp.String(), time.UTC)
	}
	if !timestamp.IsAbsent() {
		return ParseLibreTimestamp(timestamp.String(), deviceLoc)
	}
	return time.Time{}, errors.New("no timestamp")
}
