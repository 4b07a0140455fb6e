// Package config handles configuration loading, validation, and hot
// reload for keybridge.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete daemon configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" yaml:"version"`

	// Channel configures the bounded event channel.
	Channel ChannelConfig `toml:"channel" yaml:"channel"`

	// Dispatch configures the dispatch loop.
	Dispatch DispatchConfig `toml:"dispatch" yaml:"dispatch"`

	// Capture configures the platform capture adapter.
	Capture CaptureConfig `toml:"capture" yaml:"capture"`

	// Sequence configures the key sequence manager.
	Sequence SequenceConfig `toml:"sequence" yaml:"sequence"`

	// DropWatch configures the dropped-event watcher.
	DropWatch DropWatchConfig `toml:"drop_watch" yaml:"drop_watch"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" yaml:"logging"`

	// IPC configures the D-Bus status surface (Linux only).
	IPC IPCConfig `toml:"ipc" yaml:"ipc"`
}

// ChannelConfig holds event channel settings.
type ChannelConfig struct {
	// Capacity is the fixed channel capacity. Never resized at runtime.
	Capacity int `toml:"capacity" yaml:"capacity"`
}

// DispatchConfig holds dispatch loop settings.
type DispatchConfig struct {
	// PollIntervalMs is the idle sleep of the dispatch loop.
	PollIntervalMs int `toml:"poll_interval_ms" yaml:"poll_interval_ms"`

	// DrainTimeoutMs bounds the best-effort drain at shutdown.
	DrainTimeoutMs int `toml:"drain_timeout_ms" yaml:"drain_timeout_ms"`

	// StopTimeoutMs bounds the wait for the dispatch goroutine to exit.
	StopTimeoutMs int `toml:"stop_timeout_ms" yaml:"stop_timeout_ms"`
}

// PollInterval returns the poll interval as a duration.
func (d DispatchConfig) PollInterval() time.Duration {
	return time.Duration(d.PollIntervalMs) * time.Millisecond
}

// DrainTimeout returns the drain timeout as a duration.
func (d DispatchConfig) DrainTimeout() time.Duration {
	return time.Duration(d.DrainTimeoutMs) * time.Millisecond
}

// StopTimeout returns the stop timeout as a duration.
func (d DispatchConfig) StopTimeout() time.Duration {
	return time.Duration(d.StopTimeoutMs) * time.Millisecond
}

// CaptureConfig holds capture adapter settings.
type CaptureConfig struct {
	// PollIntervalMs is the idle sleep of polling capture loops.
	PollIntervalMs int `toml:"poll_interval_ms" yaml:"poll_interval_ms"`
}

// PollInterval returns the poll interval as a duration.
func (c CaptureConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// SequenceConfig holds key sequence settings.
type SequenceConfig struct {
	// Enabled turns the sequence manager on.
	Enabled bool `toml:"enabled" yaml:"enabled"`

	// TimeoutMs is the maximum pause between keys of one sequence.
	TimeoutMs int `toml:"timeout_ms" yaml:"timeout_ms"`
}

// Timeout returns the sequence timeout as a duration.
func (s SequenceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

// DropWatchConfig holds dropped-event watcher settings.
type DropWatchConfig struct {
	// Enabled turns the watcher on.
	Enabled bool `toml:"enabled" yaml:"enabled"`

	// IntervalMs is the polling interval.
	IntervalMs int `toml:"interval_ms" yaml:"interval_ms"`
}

// Interval returns the polling interval as a duration.
func (d DropWatchConfig) Interval() time.Duration {
	return time.Duration(d.IntervalMs) * time.Millisecond
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level" yaml:"level"`

	// Format is text or json.
	Format string `toml:"format" yaml:"format"`

	// Output is stdout, stderr, or file.
	Output string `toml:"output" yaml:"output"`

	// FilePath is the log file path when Output is file.
	FilePath string `toml:"file_path" yaml:"file_path"`
}

// IPCConfig holds D-Bus settings.
type IPCConfig struct {
	// DBusEnabled exports bridge statistics on the session bus.
	DBusEnabled bool `toml:"dbus_enabled" yaml:"dbus_enabled"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Version: Version,
		Channel: ChannelConfig{
			Capacity: 1024,
		},
		Dispatch: DispatchConfig{
			PollIntervalMs: 1,
			DrainTimeoutMs: 500,
			StopTimeoutMs:  2000,
		},
		Capture: CaptureConfig{
			PollIntervalMs: 1,
		},
		Sequence: SequenceConfig{
			Enabled:   false,
			TimeoutMs: 250,
		},
		DropWatch: DropWatchConfig{
			Enabled:    true,
			IntervalMs: 500,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		IPC: IPCConfig{
			DBusEnabled: false,
		},
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "keybridge", "config.toml")
}

// Validation errors.
var (
	ErrInvalidCapacity = errors.New("channel capacity must be at least 1")
	ErrInvalidInterval = errors.New("interval must be at least 1ms")
)

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Channel.Capacity < 1 {
		return fmt.Errorf("channel: %w", ErrInvalidCapacity)
	}
	if c.Dispatch.PollIntervalMs < 1 {
		return fmt.Errorf("dispatch poll_interval_ms: %w", ErrInvalidInterval)
	}
	if c.Dispatch.DrainTimeoutMs < 1 {
		return fmt.Errorf("dispatch drain_timeout_ms: %w", ErrInvalidInterval)
	}
	if c.Dispatch.StopTimeoutMs < 1 {
		return fmt.Errorf("dispatch stop_timeout_ms: %w", ErrInvalidInterval)
	}
	if c.Capture.PollIntervalMs < 1 {
		return fmt.Errorf("capture poll_interval_ms: %w", ErrInvalidInterval)
	}
	if c.Sequence.Enabled && c.Sequence.TimeoutMs < 1 {
		return fmt.Errorf("sequence timeout_ms: %w", ErrInvalidInterval)
	}
	if c.DropWatch.Enabled && c.DropWatch.IntervalMs < 1 {
		return fmt.Errorf("drop_watch interval_ms: %w", ErrInvalidInterval)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging level %q: must be debug, info, warn, or error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging format %q: must be text or json", c.Logging.Format)
	}
	switch c.Logging.Output {
	case "stdout", "stderr", "file":
	default:
		return fmt.Errorf("logging output %q: must be stdout, stderr, or file", c.Logging.Output)
	}
	if c.Logging.Output == "file" && c.Logging.FilePath == "" {
		return errors.New("logging file_path required when output is file")
	}
	return nil
}

// ApplyEnvOverrides overrides settings from KEYBRIDGE_* environment
// variables.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("KEYBRIDGE_CHANNEL_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Channel.Capacity = n
		}
	}
	if v := os.Getenv("KEYBRIDGE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("KEYBRIDGE_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("KEYBRIDGE_DBUS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.IPC.DBusEnabled = b
		}
	}
}
