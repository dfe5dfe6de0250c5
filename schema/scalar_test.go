package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalar_String(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{name: "integer", json: `{"v":110}`, want: "110"},
		{name: "float", json: `{"v":5.5}`, want: "5.5"},
		{name: "string", json: `{"v":"1/1/2024 9:00:00 AM"}`, want: "1/1/2024 9:00:00 AM"},
		{name: "boolean", json: `{"v":false}`, want: "false"},
		{name: "null", json: `{"v":null}`, want: NotAvailable},
		{name: "missing", json: `{}`, want: NotAvailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body struct {
				V Scalar `json:"v"`
			}
			require.NoError(t, json.Unmarshal([]byte(tt.json), &body))
			assert.Equal(t, tt.want, body.V.String())
		})
	}
}

func TestScalar_Float64(t *testing.T) {
	value, ok := NewScalar(108).Float64()
	assert.True(t, ok)
	assert.Equal(t, 108.0, value)

	value, ok = NewScalar("7.2").Float64()
	assert.True(t, ok)
	assert.Equal(t, 7.2, value)

	_, ok = NewScalar("high").Float64()
	assert.False(t, ok)

	_, ok = Scalar{}.Float64()
	assert.False(t, ok)
}

func TestScalar_MarshalJSON(t *testing.T) {
	out, err := json.Marshal(struct {
		A Scalar `json:"a"`
		B Scalar `json:"b"`
	}{A: NewScalar("P1")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"P1","b":null}`, string(out))
}
