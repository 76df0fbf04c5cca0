package common

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		in       string
		expected slog.Level
	}{
		{"INFO", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"TRACE", slog.LevelDebug},
		{"Warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseLevel(tc.in))
		})
	}
}

func TestSetupLogger_WritesRollingFile(t *testing.T) {
	dir := t.TempDir()

	log := SetupLogger(&LoggingOpts{Level: "INFO", Dir: dir, Service: "test"})
	log.Info("hello from test", "k", "v")

	data, err := os.ReadFile(filepath.Join(dir, ProgramName+".log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from test")
	assert.Contains(t, string(data), "service=test")
}

func TestSetupLogger_DebugOverridesLevel(t *testing.T) {
	log := SetupLogger(&LoggingOpts{Level: "ERROR", Debug: true})
	assert.True(t, log.Enabled(context.Background(), slog.LevelDebug))
}
