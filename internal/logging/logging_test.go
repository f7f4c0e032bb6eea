package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"DEBUG", DebugLevel},
		{"  debug ", DebugLevel},
		{"info", InfoLevel},
		{"WARNING", WarnLevel},
		{"error", ErrorLevel},
		{"off", Disabled},
		{"", WarnLevel},
		{"bogus", WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestAdapter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: DebugLevel, Output: &buf})
	a := NewAdapter(&logger)

	a.Warn("client not found", "client", "mars", "err", errors.New("boom"), "count", 3)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "client not found", line["message"])
	assert.Equal(t, "mars", line["client"])
	assert.Equal(t, "boom", line["err"])
	assert.Equal(t, float64(3), line["count"])
}

func TestAdapterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: ErrorLevel, Output: &buf})
	a := NewAdapter(&logger)

	a.Debug("hidden")
	a.Info("hidden")
	assert.Empty(t, buf.String())

	a.Error("shown", "dangling")
	assert.Contains(t, buf.String(), `"extra":"dangling"`)
}
