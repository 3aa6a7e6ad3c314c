package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLoggerLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, GetLoggerLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, GetLoggerLevel("warn"))
	assert.Equal(t, slog.LevelError, GetLoggerLevel("error"))
	assert.Equal(t, slog.LevelInfo, GetLoggerLevel("verbose"))
}

func TestNewWithWriter_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn")

	log.Info("dropped")
	log.Warn("kept", "key", "value")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, "value", rec["key"])
}

func TestNew_WritesRotatingFile(t *testing.T) {
	dir := t.TempDir()
	log := New(LogConfig{LogLevel: "info", LogPath: dir})

	log.Info("hello")

	data, err := os.ReadFile(filepath.Join(dir, "assist.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}
