// Package config loads the formulabar configuration from YAML with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all formulabar configuration
type Config struct {
	Editor   EditorConfig   `yaml:"editor"`
	Workbook WorkbookConfig `yaml:"workbook"`
	Logging  LoggingConfig  `yaml:"logging"`
	Sync     SyncConfig     `yaml:"sync"`
}

// EditorConfig configures the formula bar
type EditorConfig struct {
	Sentinel string `yaml:"sentinel"` // prefix marking formulas, "=" by default
}

// WorkbookConfig selects the file being edited
type WorkbookConfig struct {
	Path  string `yaml:"path"`
	Sheet string `yaml:"sheet"` // active sheet when empty
	Watch bool   `yaml:"watch"` // reload when the file changes on disk
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	File   string `yaml:"file"`   // stderr when empty
}

// SyncConfig configures access to the remote workbook store
type SyncConfig struct {
	Enabled  bool   `yaml:"enabled"`
	TokenEnv string `yaml:"token_env"` // environment variable holding the access token
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Editor: EditorConfig{
			Sentinel: "=",
		},
		Workbook: WorkbookConfig{
			Watch: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Sync: SyncConfig{
			Enabled:  false,
			TokenEnv: "FORMULABAR_TOKEN",
		},
	}
}

// Load loads configuration from a YAML file. a missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("FORMULABAR_WORKBOOK"); path != "" {
		c.Workbook.Path = path
	}
	if sheet := os.Getenv("FORMULABAR_SHEET"); sheet != "" {
		c.Workbook.Sheet = sheet
	}
	if level := os.Getenv("FORMULABAR_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if sentinel := os.Getenv("FORMULABAR_SENTINEL"); sentinel != "" {
		c.Editor.Sentinel = sentinel
	}
}

// Validate checks the configuration for values the editor cannot run with
func (c *Config) Validate() error {
	if c.Editor.Sentinel == "" {
		return fmt.Errorf("editor.sentinel must not be empty")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level %q", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid logging.format %q", c.Logging.Format)
	}

	if c.Sync.Enabled && c.Sync.TokenEnv == "" {
		return fmt.Errorf("sync.token_env is required when sync is enabled")
	}
	return nil
}
