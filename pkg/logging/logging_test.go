package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer

	logger := NewZapLogger(zapcore.AddSync(&buf), false, false, zapcore.InfoLevel)

	logger.Info("composition finished")
	logger.Debug("should be filtered")
	require.NoError(t, logger.Sync())

	logContent := buf.String()
	assert.Contains(t, logContent, `"composition finished"`)
	assert.Contains(t, logContent, `"hostname"`)
	assert.Contains(t, logContent, `"pid"`)
	assert.NotContains(t, logContent, "should be filtered")
}

func TestPrettyLogger(t *testing.T) {
	var buf bytes.Buffer

	logger := NewZapLogger(zapcore.AddSync(&buf), true, true, zapcore.DebugLevel)

	logger.Debug("watching for schema changes")
	require.NoError(t, logger.Sync())

	assert.Contains(t, buf.String(), "watching for schema changes")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		levelStr string
		expected zapcore.Level
		isError  bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"fatal", zapcore.FatalLevel, false},
		{"panic", zapcore.PanicLevel, false},
		{"unknown", -1, true},
	}

	for _, test := range tests {
		level, err := ParseLogLevel(test.levelStr)
		if test.isError {
			assert.Error(t, err)
		} else {
			assert.NoError(t, err)
			assert.Equal(t, test.expected, level)
		}
	}
}
