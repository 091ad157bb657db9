package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"info", LevelInfo},
		{"bogus", LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestLoggingFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	InitForTesting(LevelWarn, &buf)

	Debug("Test", "hidden %d", 1)
	Info("Test", "hidden too")
	Warn("Test", "shown %s", "warning")
	Error("Test", errors.New("boom"), "failed")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown warning")
	assert.Contains(t, out, "subsystem=Test")
	assert.Contains(t, out, "boom")
}

func TestInitForCLINoColorOnBuffer(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelInfo, &buf)

	Info("CLI", "plain output")

	assert.Contains(t, buf.String(), "plain output")
	assert.NotContains(t, buf.String(), "\x1b[")
}
