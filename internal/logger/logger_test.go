package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"none", LevelNone},
		{"garbage", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestLoggerWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "chatschnell.log")

	l, err := New(LevelDebug, path)
	require.NoError(t, err)

	l.Debug("debug %d", 1)
	l.Info("info message")
	l.Error("boom: %v", "reason")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	content := string(data)
	assert.Contains(t, content, "[DEBUG] debug 1")
	assert.Contains(t, content, "[INFO] info message")
	assert.Contains(t, content, "[ERROR] boom: reason")
}

func TestLoggerLevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filtered.log")

	l, err := New(LevelWarn, path)
	require.NoError(t, err)

	l.Debug("should not appear")
	l.Info("should not appear either")
	l.Warn("warning shows")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.False(t, strings.Contains(string(data), "should not appear"))
	assert.Contains(t, string(data), "warning shows")
}

func TestDisabledLogger(t *testing.T) {
	l, err := New(LevelNone, "")
	require.NoError(t, err)

	// Must not panic and must not create files.
	l.Info("into the void")
	assert.NoError(t, l.Close())
}

func TestSetLevel(t *testing.T) {
	l, err := New(LevelDebug, filepath.Join(t.TempDir(), "x.log"))
	require.NoError(t, err)
	defer l.Close()

	l.SetLevel(LevelError)
	assert.Equal(t, LevelError, l.GetLevel())
}
