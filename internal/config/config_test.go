package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, Version, cfg.Version)
	assert.Equal(t, 1024, cfg.Channel.Capacity)
	assert.Equal(t, time.Millisecond, cfg.Dispatch.PollInterval())
	assert.Equal(t, 500*time.Millisecond, cfg.Dispatch.DrainTimeout())
	assert.Equal(t, 2*time.Second, cfg.Dispatch.StopTimeout())
	assert.Equal(t, 250*time.Millisecond, cfg.Sequence.Timeout())
	assert.True(t, cfg.DropWatch.Enabled)
	assert.False(t, cfg.Sequence.Enabled)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		errIs  error
	}{
		{"zero capacity", func(c *Config) { c.Channel.Capacity = 0 }, ErrInvalidCapacity},
		{"negative capacity", func(c *Config) { c.Channel.Capacity = -5 }, ErrInvalidCapacity},
		{"zero poll interval", func(c *Config) { c.Dispatch.PollIntervalMs = 0 }, ErrInvalidInterval},
		{"zero drain timeout", func(c *Config) { c.Dispatch.DrainTimeoutMs = 0 }, ErrInvalidInterval},
		{"zero stop timeout", func(c *Config) { c.Dispatch.StopTimeoutMs = 0 }, ErrInvalidInterval},
		{"zero capture poll", func(c *Config) { c.Capture.PollIntervalMs = 0 }, ErrInvalidInterval},
		{"enabled sequence zero timeout", func(c *Config) {
			c.Sequence.Enabled = true
			c.Sequence.TimeoutMs = 0
		}, ErrInvalidInterval},
		{"enabled dropwatch zero interval", func(c *Config) {
			c.DropWatch.IntervalMs = 0
		}, ErrInvalidInterval},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.errIs)
		})
	}
}

func TestValidateRejectsBadLogging(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "verbose"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Logging.Format = "xml"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Logging.Output = "syslog"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Logging.Output = "file"
	cfg.Logging.FilePath = ""
	assert.Error(t, cfg.Validate())

	cfg.Logging.FilePath = "/tmp/keybridge.log"
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	l := NewLoader(filepath.Join(t.TempDir(), "nope.toml"))
	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Channel.Capacity, cfg.Channel.Capacity)
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
version = 1

[channel]
capacity = 64

[dispatch]
poll_interval_ms = 2

[sequence]
enabled = true
timeout_ms = 300

[logging]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	l := NewLoader(path)
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, 64, cfg.Channel.Capacity)
	assert.Equal(t, 2, cfg.Dispatch.PollIntervalMs)
	assert.True(t, cfg.Sequence.Enabled)
	assert.Equal(t, 300, cfg.Sequence.TimeoutMs)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Unspecified sections keep their defaults.
	assert.Equal(t, 500, cfg.Dispatch.DrainTimeoutMs)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
version: 1
channel:
  capacity: 32
logging:
  level: warn
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	l := NewLoader(path)
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, 32, cfg.Channel.Capacity)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[channel]\ncapacity = 0\n"), 0o600))

	l := NewLoader(path)
	_, err := l.Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCapacity)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("KEYBRIDGE_CHANNEL_CAPACITY", "256")
	t.Setenv("KEYBRIDGE_LOG_LEVEL", "error")
	t.Setenv("KEYBRIDGE_DBUS", "true")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, 256, cfg.Channel.Capacity)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.True(t, cfg.IPC.DBusEnabled)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	cfg := DefaultConfig()
	cfg.Channel.Capacity = 2048
	cfg.Logging.Level = "debug"
	require.NoError(t, Save(cfg, path))

	l := NewLoader(path)
	loaded, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, 2048, loaded.Channel.Capacity)
	assert.Equal(t, "debug", loaded.Logging.Level)
}

func TestWatchReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, Save(DefaultConfig(), path))

	l := NewLoader(path)
	_, err := l.Load()
	require.NoError(t, err)

	changed := make(chan *Config, 1)
	l.OnChange(func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	})
	require.NoError(t, l.Watch())
	defer l.Close()

	cfg := DefaultConfig()
	cfg.Channel.Capacity = 99
	require.NoError(t, Save(cfg, path))

	select {
	case got := <-changed:
		assert.Equal(t, 99, got.Channel.Capacity)
		assert.Equal(t, 99, l.Config().Channel.Capacity)
	case <-time.After(5 * time.Second):
		t.Fatal("reload callback not invoked")
	}
}

func TestOnChangeAfterWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, Save(DefaultConfig(), path))

	l := NewLoader(path)
	_, err := l.Load()
	require.NoError(t, err)
	require.NoError(t, l.Watch())
	defer l.Close()

	// Registration while the watch goroutine is live must be safe.
	changed := make(chan *Config, 1)
	l.OnChange(func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	})

	cfg := DefaultConfig()
	cfg.Channel.Capacity = 123
	require.NoError(t, Save(cfg, path))

	select {
	case got := <-changed:
		assert.Equal(t, 123, got.Channel.Capacity)
	case <-time.After(5 * time.Second):
		t.Fatal("reload callback not invoked")
	}
}
