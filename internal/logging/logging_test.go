package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"WARN", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}
	for _, tc := range cases {
		got, err := ParseLevel(tc.in)
		if tc.wantErr {
			assert.Error(t, err, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestParseFormat(t *testing.T) {
	got, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, got)

	got, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatText, got)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestNewFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "test.log")
	log, err := New(&Config{
		Level:     slog.LevelInfo,
		Format:    FormatJSON,
		Output:    "file",
		FilePath:  path,
		Component: "test",
	})
	require.NoError(t, err)

	log.Info("hello", "answer", 42)
	log.Debug("filtered out")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, `"msg":"hello"`)
	assert.Contains(t, content, `"answer":42`)
	assert.Contains(t, content, `"component":"test"`)
	assert.NotContains(t, content, "filtered out")
	assert.Equal(t, 1, strings.Count(content, "\n"))
}

func TestNewNilConfigUsesDefaults(t *testing.T) {
	log, err := New(nil)
	require.NoError(t, err)
	require.NotNil(t, log)
}
