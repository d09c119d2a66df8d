// Package config handles configuration loading, validation, and management for smartkbd.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete daemon configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Lexicon configuration for the two word lists.
	Lexicon LexiconConfig `toml:"lexicon" json:"lexicon" yaml:"lexicon"`

	// Layout selects the key-position table.
	Layout LayoutConfig `toml:"layout" json:"layout" yaml:"layout"`

	// Correction configuration.
	Correction CorrectionConfig `toml:"correction" json:"correction" yaml:"correction"`

	// Keyboard capture and injection configuration.
	Keyboard KeyboardConfig `toml:"keyboard" json:"keyboard" yaml:"keyboard"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// Journal configuration for the correction journal.
	Journal JournalConfig `toml:"journal" json:"journal" yaml:"journal"`

	// Metrics configuration.
	Metrics MetricsConfig `toml:"metrics" json:"metrics" yaml:"metrics"`

	// mu protects concurrent access to the config.
	mu sync.RWMutex `toml:"-" json:"-" yaml:"-"`
}

// LexiconConfig holds the word list locations.
type LexiconConfig struct {
	// TargetPath is the newline-delimited word list of the language
	// corrections produce.
	TargetPath string `toml:"target_path" json:"target_path" yaml:"target_path"`

	// SourcePath is the word list of the language typed by mistake.
	SourcePath string `toml:"source_path" json:"source_path" yaml:"source_path"`
}

// LayoutConfig holds the layout selection.
type LayoutConfig struct {
	// Name is a registered layout name, e.g. "en-he".
	Name string `toml:"name" json:"name" yaml:"name"`
}

// CorrectionConfig holds correction behaviour.
type CorrectionConfig struct {
	// Enabled turns correction on. When false every event passes through.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// Context enables the three-word contextual correction.
	Context bool `toml:"context" json:"context" yaml:"context"`

	// KeyDelayMs is the delay between injected keystrokes.
	KeyDelayMs int `toml:"key_delay_ms" json:"key_delay_ms" yaml:"key_delay_ms"`
}

// KeyboardConfig holds capture and injection settings.
type KeyboardConfig struct {
	// Device is an evdev device path. Empty means autodetect.
	Device string `toml:"device" json:"device" yaml:"device"`

	// Injector is "xdotool" or "none".
	Injector string `toml:"injector" json:"injector" yaml:"injector"`

	// LayoutQuery prints the active XKB group name. Empty means keys are
	// always read as US QWERTY.
	LayoutQuery string `toml:"layout_query" json:"layout_query" yaml:"layout_query"`

	// TargetGroup is the XKB group name of the target layout.
	TargetGroup string `toml:"target_group" json:"target_group" yaml:"target_group"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the log format: "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is the log output: "stdout", "stderr", "file" or "both".
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the path to the log file (when Output is "file" or "both").
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`

	// MaxSizeMB is the maximum log file size before rotation.
	MaxSizeMB int `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`

	// MaxBackups is the number of old log files to keep.
	MaxBackups int `toml:"max_backups" json:"max_backups" yaml:"max_backups"`

	// Compress determines whether to compress rotated logs.
	Compress bool `toml:"compress" json:"compress" yaml:"compress"`

	// RedactText hides typed words in log records.
	RedactText bool `toml:"redact_text" json:"redact_text" yaml:"redact_text"`
}

// JournalConfig holds the correction journal settings.
type JournalConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled" yaml:"enabled"`
	Path    string `toml:"path" json:"path" yaml:"path"`
}

// MetricsConfig holds the Prometheus textfile export settings.
type MetricsConfig struct {
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// TextfilePath is where the metrics are written, in the Prometheus text
	// format, for a node_exporter textfile collector.
	TextfilePath string `toml:"textfile_path" json:"textfile_path" yaml:"textfile_path"`

	// FlushIntervalSec is how often the file is rewritten.
	FlushIntervalSec int `toml:"flush_interval_sec" json:"flush_interval_sec" yaml:"flush_interval_sec"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	dir := DataDir()

	return &Config{
		Version: Version,
		Lexicon: LexiconConfig{
			TargetPath: filepath.Join(dir, "he_smart.txt"),
			SourcePath: filepath.Join(dir, "google-10000-english.txt"),
		},
		Layout: LayoutConfig{
			Name: "en-he",
		},
		Correction: CorrectionConfig{
			Enabled:    true,
			Context:    true,
			KeyDelayMs: 2,
		},
		Keyboard: KeyboardConfig{
			Device:      "",
			Injector:    "xdotool",
			LayoutQuery: "xkb-switch -p",
			TargetGroup: "il",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			FilePath:   filepath.Join(PlatformLogDir(), "smartkbd.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   true,
			RedactText: false,
		},
		Journal: JournalConfig{
			Enabled: false,
			Path:    filepath.Join(dir, "corrections.jsonl"),
		},
		Metrics: MetricsConfig{
			Enabled:          false,
			TextfilePath:     filepath.Join(dir, "smartkbd.prom"),
			FlushIntervalSec: 30,
		},
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(PlatformConfigDir(), "config.toml")
}

// DataDir returns the base smartkbd data directory.
// Uses platform-specific paths or the SMARTKBD_DATA_DIR environment override.
func DataDir() string {
	if envDir := os.Getenv("SMARTKBD_DATA_DIR"); envDir != "" {
		return envDir
	}
	return PlatformDataDir()
}

// Load reads configuration from the specified path, applies environment
// overrides and validates the result.
// If the file doesn't exist, the defaults are used.
// Supports TOML, JSON, and YAML formats based on file extension.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	cfg.ExpandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// ExpandPaths replaces a leading "~/" in every path with the home directory.
func (c *Config) ExpandPaths() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Lexicon.TargetPath = expandPath(c.Lexicon.TargetPath)
	c.Lexicon.SourcePath = expandPath(c.Lexicon.SourcePath)
	c.Logging.FilePath = expandPath(c.Logging.FilePath)
	c.Journal.Path = expandPath(c.Journal.Path)
	c.Metrics.TextfilePath = expandPath(c.Metrics.TextfilePath)
}

// EnsureDirectories creates the directories the enabled outputs write to.
func (c *Config) EnsureDirectories() error {
	var dirs []string
	if c.Logging.Output == "file" || c.Logging.Output == "both" {
		dirs = append(dirs, filepath.Dir(c.Logging.FilePath))
	}
	if c.Journal.Enabled {
		dirs = append(dirs, filepath.Dir(c.Journal.Path))
	}
	if c.Metrics.Enabled {
		dirs = append(dirs, filepath.Dir(c.Metrics.TextfilePath))
	}

	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables are prefixed with SMARTKBD_ and use underscores.
func (c *Config) ApplyEnvOverrides() {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Lexicon overrides
	if v := os.Getenv("SMARTKBD_TARGET_LEXICON"); v != "" {
		c.Lexicon.TargetPath = v
	}
	if v := os.Getenv("SMARTKBD_SOURCE_LEXICON"); v != "" {
		c.Lexicon.SourcePath = v
	}

	// Correction overrides
	if b, ok := envBool("SMARTKBD_CORRECTION_ENABLED"); ok {
		c.Correction.Enabled = b
	}
	if b, ok := envBool("SMARTKBD_CONTEXT"); ok {
		c.Correction.Context = b
	}

	// Keyboard overrides
	if v := os.Getenv("SMARTKBD_DEVICE"); v != "" {
		c.Keyboard.Device = v
	}
	if v := os.Getenv("SMARTKBD_INJECTOR"); v != "" {
		c.Keyboard.Injector = v
	}
	if v, ok := os.LookupEnv("SMARTKBD_LAYOUT_QUERY"); ok {
		c.Keyboard.LayoutQuery = v
	}

	// Logging overrides
	if v := os.Getenv("SMARTKBD_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SMARTKBD_LOG_PATH"); v != "" {
		c.Logging.FilePath = v
	}
}

func envBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return &Config{
		Version:    c.Version,
		Lexicon:    c.Lexicon,
		Layout:     c.Layout,
		Correction: c.Correction,
		Keyboard:   c.Keyboard,
		Logging:    c.Logging,
		Journal:    c.Journal,
		Metrics:    c.Metrics,
	}
}

// Encode writes the configuration in the format named by ext
// (".toml", ".json", ".yaml" or ".yml"; anything else is TOML).
func (c *Config) Encode(ext string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch ext {
	case ".json":
		return json.MarshalIndent(c, "", "  ")
	case ".yaml", ".yml":
		return yaml.Marshal(c)
	default:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
}

// SaveConfig writes cfg to path, choosing the format from the extension.
func SaveConfig(cfg *Config, path string) error {
	data, err := cfg.Encode(filepath.Ext(path))
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
