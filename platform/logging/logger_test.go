package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_JSONCarriesServiceAndEnv(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{ServiceName: "checkout", Env: "docker", Output: &buf})
	require.NoError(t, err)

	logger.Info("charge created")
	Sync(logger)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "checkout", entry["service"])
	require.Equal(t, "docker", entry["env"])
	require.Equal(t, "charge created", entry["msg"])
	require.Equal(t, "info", entry["level"])
}

func TestNew_LevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{ServiceName: "gateway", Env: "docker", Level: "warn", Output: &buf})
	require.NoError(t, err)

	logger.Info("dropped")
	require.Zero(t, buf.Len())

	logger.Warn("kept")
	require.Contains(t, buf.String(), "kept")
}

func TestNew_InvalidSettings(t *testing.T) {
	_, err := New(Config{Level: "verbose"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid log level")

	_, err = New(Config{Format: "xml"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid log format")
}
