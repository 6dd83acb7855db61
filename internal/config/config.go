// Package config handles configuration loading, validation, and hot reload
// for keyhook.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"keyhook/internal/policy"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete daemon configuration. A loaded Config is never
// mutated; reloads produce a new value.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Tap controls the event tap itself.
	Tap TapConfig `toml:"tap" json:"tap" yaml:"tap"`

	// Capture selects which events are captured.
	Capture CaptureConfig `toml:"capture" json:"capture" yaml:"capture"`

	// Activation selects the sources that trigger a tap retry.
	Activation ActivationConfig `toml:"activation" json:"activation" yaml:"activation"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// Metrics configuration for the HTTP endpoint.
	Metrics MetricsConfig `toml:"metrics" json:"metrics" yaml:"metrics"`
}

// TapConfig holds event tap configuration.
type TapConfig struct {
	// Enabled is the intent to tap. A missing Accessibility grant leaves
	// the tap uninstalled until it is granted.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// DedicatedThread services the tap on its own OS thread instead of
	// the main run loop.
	DedicatedThread bool `toml:"dedicated_thread" json:"dedicated_thread" yaml:"dedicated_thread"`

	// RunnerSliceMs bounds one dedicated-thread run loop slice.
	RunnerSliceMs int `toml:"runner_slice_ms" json:"runner_slice_ms" yaml:"runner_slice_ms"`
}

// CaptureConfig holds the capture rules.
type CaptureConfig struct {
	// MediaKeys are media key names such as "play" or "volume_up".
	MediaKeys []string `toml:"media_keys" json:"media_keys" yaml:"media_keys"`

	// Shortcuts are key combinations such as "cmd+tab".
	Shortcuts []string `toml:"shortcuts" json:"shortcuts" yaml:"shortcuts"`

	// AllSystemDefined captures every system-defined event.
	AllSystemDefined bool `toml:"all_system_defined" json:"all_system_defined" yaml:"all_system_defined"`

	// AllKeys captures every key event. Only useful for kiosk-style hosts.
	AllKeys bool `toml:"all_keys" json:"all_keys" yaml:"all_keys"`
}

// ActivationConfig holds activation source configuration.
type ActivationConfig struct {
	// ObserveWorkspace retries when this process becomes frontmost. Off by
	// default since a daemon without an NSApplication is rarely frontmost;
	// the trust poller drives recovery instead.
	ObserveWorkspace bool `toml:"observe_workspace" json:"observe_workspace" yaml:"observe_workspace"`

	// TrustPollIntervalMs polls Accessibility trust; 0 disables polling.
	TrustPollIntervalMs int `toml:"trust_poll_interval_ms" json:"trust_poll_interval_ms" yaml:"trust_poll_interval_ms"`

	// Signal retries on SIGUSR1.
	Signal bool `toml:"signal" json:"signal" yaml:"signal"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the log format: "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is the log destination: "stdout", "stderr", "file", "both".
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the path to the log file when output includes a file.
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`

	// MaxSizeMB is the maximum log file size before rotation.
	MaxSizeMB int `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`

	// MaxBackups is the number of rotated log files to keep.
	MaxBackups int `toml:"max_backups" json:"max_backups" yaml:"max_backups"`

	// MaxAgeDays is how long to keep rotated log files.
	MaxAgeDays int `toml:"max_age_days" json:"max_age_days" yaml:"max_age_days"`

	// Compress enables gzip compression of rotated logs.
	Compress bool `toml:"compress" json:"compress" yaml:"compress"`
}

// MetricsConfig holds the metrics and health endpoint configuration.
type MetricsConfig struct {
	Enabled    bool   `toml:"enabled" json:"enabled" yaml:"enabled"`
	ListenAddr string `toml:"listen_addr" json:"listen_addr" yaml:"listen_addr"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: Version,
		Tap: TapConfig{
			Enabled:         true,
			DedicatedThread: true,
			RunnerSliceMs:   250,
		},
		Capture: CaptureConfig{
			MediaKeys: []string{"play", "next", "previous", "fast", "rewind"},
			Shortcuts: []string{},
		},
		Activation: ActivationConfig{
			ObserveWorkspace:    false,
			TrustPollIntervalMs: 2000,
			Signal:              true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			FilePath:   filepath.Join(PlatformLogDir(), "keyhookd.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 14,
			Compress:   true,
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: "127.0.0.1:9477",
		},
	}
}

// KeyhookDir returns the base keyhook directory.
// KEYHOOK_DATA_DIR overrides the platform default.
func KeyhookDir() string {
	if envDir := os.Getenv("KEYHOOK_DATA_DIR"); envDir != "" {
		return envDir
	}
	return PlatformDataDir()
}

// ConfigPath returns the configuration file path. KEYHOOK_CONFIG overrides
// the default.
func ConfigPath() string {
	if p := os.Getenv("KEYHOOK_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(KeyhookDir(), "config.toml")
}

// Load reads configuration from path, or from ConfigPath when path is
// empty. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}
	return NewLoader(path).Load()
}

// Validate checks the configuration for errors. Warnings do not fail it.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// ApplyEnvOverrides applies KEYHOOK_* environment variable overrides.
// Malformed booleans are ignored.
func (c *Config) ApplyEnvOverrides() {
	if v, ok := envBool("KEYHOOK_ENABLED"); ok {
		c.Tap.Enabled = v
	}
	if v, ok := envBool("KEYHOOK_DEDICATED_THREAD"); ok {
		c.Tap.DedicatedThread = v
	}
	if v := os.Getenv("KEYHOOK_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("KEYHOOK_LOG_PATH"); v != "" {
		c.Logging.FilePath = v
	}
	if v := os.Getenv("KEYHOOK_METRICS_ADDR"); v != "" {
		c.Metrics.Enabled = true
		c.Metrics.ListenAddr = v
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

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Capture.MediaKeys = append([]string{}, c.Capture.MediaKeys...)
	clone.Capture.Shortcuts = append([]string{}, c.Capture.Shortcuts...)
	return &clone
}

// RunnerSlice returns Tap.RunnerSliceMs as a duration.
func (c *Config) RunnerSlice() time.Duration {
	return time.Duration(c.Tap.RunnerSliceMs) * time.Millisecond
}

// TrustPollInterval returns Activation.TrustPollIntervalMs as a duration.
func (c *Config) TrustPollInterval() time.Duration {
	return time.Duration(c.Activation.TrustPollIntervalMs) * time.Millisecond
}

// PolicySpec returns the capture rules in the form policy.Compile takes.
func (c *Config) PolicySpec() policy.Spec {
	return policy.Spec{
		MediaKeys:        c.Capture.MediaKeys,
		Shortcuts:        c.Capture.Shortcuts,
		AllSystemDefined: c.Capture.AllSystemDefined,
		AllKeys:          c.Capture.AllKeys,
	}
}

// Encode renders the configuration in the format implied by ext
// (".toml", ".json", ".yaml", ".yml"). Unknown extensions use TOML.
func (c *Config) Encode(ext string) ([]byte, error) {
	switch ext {
	case ".json":
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case ".yaml", ".yml":
		return yaml.Marshal(c)
	default:
		var buf bytes.Buffer
		buf.WriteString("# keyhook configuration\n\n")
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
}

// Save writes the configuration to path, choosing the format by extension.
// The file is replaced atomically and readable only by the owner.
func (c *Config) Save(path string) error {
	data, err := c.Encode(filepath.Ext(path))
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*")
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
