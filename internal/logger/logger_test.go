package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	require.Equal(t, slog.LevelError, ParseLevel("error"))
	require.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
}

func TestNewHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(newHandler(&buf, Config{Format: "json", Level: "info"}))
	l.Info("dashboard served", "zoom", "horizon")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "dashboard served", entry["msg"])
	require.Equal(t, "horizon", entry["zoom"])
}

func TestNewHandler_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(newHandler(&buf, Config{Level: "warn"}))
	l.Info("hidden")
	require.Empty(t, buf.String())
}

func TestNew_FileOnlyWritesRotatedFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	dir := t.TempDir()
	l, err := New(Config{Dir: dir, FileOnly: true, Component: "console", Format: "json"})
	require.NoError(t, err)
	l.Info("session started")

	data, err := os.ReadFile(filepath.Join(dir, "lumen-console.log"))
	require.NoError(t, err)
	require.Contains(t, string(data), `"component":"console"`)
}
