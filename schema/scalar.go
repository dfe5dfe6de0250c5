package schema

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// NotAvailable is rendered in place of a missing value
const NotAvailable = "N/A"

// Scalar keeps a JSON value as received so that it can be rendered verbatim,
// whatever type the remote API chose for it. A missing or null value is absent.
type Scalar struct {
	raw json.RawMessage
}

// NewScalar builds a Scalar from a go value, mostly useful for tests
func NewScalar(v interface{}) Scalar {
	raw, err := json.Marshal(v)
	if err != nil {
		return Scalar{}
	}
	return Scalar{raw: raw}
}

func (s *Scalar) UnmarshalJSON(b []byte) error {
	s.raw = append(s.raw[:0], b...)
	return nil
}

func (s Scalar) MarshalJSON() ([]byte, error) {
	if s.IsAbsent() {
		return []byte("null"), nil
	}
	return s.raw, nil
}

func (s Scalar) IsAbsent() bool {
	trimmed := bytes.TrimSpace(s.raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// String renders strings unquoted, any other JSON value as received, N/A when absent
func (s Scalar) String() string {
	if s.IsAbsent() {
		return NotAvailable
	}
	trimmed := bytes.TrimSpace(s.raw)
	if trimmed[0] == '"' {
		var str string
		if err := json.Unmarshal(trimmed, &str); err == nil {
			return str
		}
	}
	return string(trimmed)
}

// Float64 returns the numeric value, accepting numbers sent as strings
func (s Scalar) Float64() (float64, bool) {
	if s.IsAbsent() {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(s.raw, &f); err == nil {
		return f, true
	}
	f, err := strconv.ParseFloat(s.String(), 64)
	return f, err == nil
}
