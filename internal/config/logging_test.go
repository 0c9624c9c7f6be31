package config_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/dnawallet/internal/config"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"off", zerolog.Disabled},
		{"NONE", zerolog.Disabled},
		{"debug", zerolog.DebugLevel},
		{"  Info ", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.ErrorLevel},
		{"verbose", zerolog.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, config.ParseLogLevel(tt.input))
		})
	}
}

func TestNewLogger_WritesJSONToFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "logs", "dnawallet.log")

	logger, err := config.NewLogger("info", path)
	require.NoError(t, err)
	assert.Equal(t, path, logger.Path())

	walletLog := logger.Component("wallet")
	walletLog.Info().Str("name", "main").Msg("wallet created")
	logger.Debug().Msg("filtered")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "wallet", entry["component"])
	assert.Equal(t, "main", entry["name"])
	assert.Equal(t, "info", entry["level"])
	assert.Contains(t, entry, "time")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestNewLogger_OffOrNoFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	off, err := config.NewLogger("off", filepath.Join(dir, "off.log"))
	require.NoError(t, err)
	off.Error().Msg("dropped")
	require.NoError(t, off.Close())
	_, err = os.Stat(filepath.Join(dir, "off.log"))
	require.ErrorIs(t, err, os.ErrNotExist)

	noFile, err := config.NewLogger("debug", "")
	require.NoError(t, err)
	assert.Empty(t, noFile.Path())
	require.NoError(t, noFile.Close())
}

func TestLogger_CloseIsIdempotent(t *testing.T) {
	t.Parallel()

	logger, err := config.NewLogger("error", filepath.Join(t.TempDir(), "x.log"))
	require.NoError(t, err)
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())
	assert.NotPanics(t, func() { logger.Error().Msg("after close") })
}

func TestNewWriterLogger(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer

	logger := config.NewWriterLogger(&buf, "warn")
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
