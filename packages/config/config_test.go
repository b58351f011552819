package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "=", cfg.Editor.Sentinel)
	assert.True(t, cfg.Workbook.Watch)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.False(t, cfg.Sync.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "formulabar.yaml")
	data := []byte(`
editor:
  sentinel: "+"
workbook:
  path: budget.xlsx
  sheet: Q3
  watch: false
logging:
  level: debug
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "+", cfg.Editor.Sentinel)
	assert.Equal(t, "budget.xlsx", cfg.Workbook.Path)
	assert.Equal(t, "Q3", cfg.Workbook.Sheet)
	assert.False(t, cfg.Workbook.Watch)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// untouched keys keep their defaults
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "FORMULABAR_TOKEN", cfg.Sync.TokenEnv)
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("editor: ["), 0644))
	_, err := Load(broken)
	assert.ErrorContains(t, err, "failed to parse config")

	badLevel := filepath.Join(dir, "level.yaml")
	require.NoError(t, os.WriteFile(badLevel, []byte("logging:\n  level: loud\n"), 0644))
	_, err = Load(badLevel)
	assert.ErrorContains(t, err, "logging.level")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "formulabar.yaml")

	cfg := DefaultConfig()
	cfg.Workbook.Path = "book.xlsx"
	cfg.Sync.Enabled = true
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FORMULABAR_WORKBOOK", "/tmp/env.xlsx")
	t.Setenv("FORMULABAR_SHEET", "Data")
	t.Setenv("FORMULABAR_LOG_LEVEL", "warn")
	t.Setenv("FORMULABAR_SENTINEL", "@")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "/tmp/env.xlsx", cfg.Workbook.Path)
	assert.Equal(t, "Data", cfg.Workbook.Sheet)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "@", cfg.Editor.Sentinel)
}

func TestEnvOverridesIgnoreEmpty(t *testing.T) {
	t.Setenv("FORMULABAR_SENTINEL", "")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()
	assert.Equal(t, "=", cfg.Editor.Sentinel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"empty sentinel", func(c *Config) { c.Editor.Sentinel = "" }, "editor.sentinel"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"sync without token", func(c *Config) {
			c.Sync.Enabled = true
			c.Sync.TokenEnv = ""
		}, "sync.token_env"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}
