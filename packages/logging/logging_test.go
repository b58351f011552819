package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vogtb/go-formulabar/packages/config"
)

func TestNewJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "formulabar.log")

	logger, level, err := New(config.LoggingConfig{Level: "info", Format: "json", File: path})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("cell committed", zap.String("cell", "A1"))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "cell committed", entry["msg"])
	assert.Equal(t, "A1", entry["cell"])
	assert.Equal(t, "info", entry["level"])

	level.SetLevel(zapcore.DebugLevel)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNewConsole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.log")

	logger, _, err := New(config.LoggingConfig{Level: "warn", Format: "console", File: path})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("recalculation failed")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "WARN")
	assert.Contains(t, string(data), "recalculation failed")
	assert.NotContains(t, string(data), "hidden")
}

func TestNewInvalid(t *testing.T) {
	_, _, err := New(config.LoggingConfig{Level: "loud", Format: "json"})
	assert.ErrorContains(t, err, "invalid log level")

	_, _, err = New(config.LoggingConfig{Level: "info", Format: "xml"})
	assert.ErrorContains(t, err, "invalid log format")
}
