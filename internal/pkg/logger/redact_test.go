package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactCoordinate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"40.730610", "40.73***"},
		{"-74.0060", "-74.00***"},
		{"40.73", "40.73"},
		{"40.7", "40.7"},
		{"40", "40"},
		{"greenhouse", "greenhouse"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RedactCoordinate(tt.in), "input %q", tt.in)
	}
}

func TestRedactValueMasksCredentials(t *testing.T) {
	l := &Logger{redactLocation: true}
	assert.Equal(t, "***", l.redactValue("api_key", "sk-live-abc123"))
	assert.Equal(t, "***", l.redactValue("client_secret", "hunter2"))
	assert.Equal(t, "***", l.redactValue("Authorization", "Bearer x"))
}

func TestRedactValueCoordinateFields(t *testing.T) {
	l := &Logger{redactLocation: true}
	assert.Equal(t, "40.73***", l.redactValue("latitude", "40.730610"))
	assert.Equal(t, "-74.00***", l.redactValue("device_lon", "-74.006012"))
	assert.Equal(t, `{"lat":40.73***,"long":-74.00***}`, l.redactValue("location", `{"lat":40.730610,"long":-74.006012}`))
	// Non-coordinate fields keep full precision.
	assert.Equal(t, "0.953271", l.redactValue("confidence", "0.953271"))
}

func TestRedactValueDisabled(t *testing.T) {
	l := &Logger{redactLocation: false}
	assert.Equal(t, "40.730610", l.redactValue("latitude", "40.730610"))
	// Credentials stay masked even with location redaction off.
	assert.Equal(t, "***", l.redactValue("api_key", "sk-live-abc123"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("WARNING"))
	assert.Equal(t, ERROR, ParseLevel(" error "))
	assert.Equal(t, INFO, ParseLevel("info"))
	assert.Equal(t, INFO, ParseLevel("bogus"))
}
