package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "WARN", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "", want: slog.LevelInfo},
		{in: "verbose", want: slog.LevelInfo},
	}

	for _, test := range tests {
		assert.Equal(t, test.want, parseLevel(test.in), "parseLevel(%q)", test.in)
	}
}

func TestNew_WritesJSON(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	l := New(&buf, "warn")

	// Act
	l.Info("dropped")
	l.Warn("world anvil sync failed", slog.String("character", "c1"))

	// Assert
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "world anvil sync failed", line["msg"])
	assert.Equal(t, "c1", line["character"])
	assert.Equal(t, "fumble", line["service"])
}
