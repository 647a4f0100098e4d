package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geolife.log")
	require.NoError(t, os.WriteFile(path, []byte("stale\n"), 0o644))

	logger, cleanup, err := New(zapcore.InfoLevel, path)
	require.NoError(t, err)
	logger.Debug("hidden")
	logger.Info("exported")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "exported", entry["msg"])
	assert.Equal(t, "geolife", entry["logger"])
}

func TestNewWithoutFile(t *testing.T) {
	logger, cleanup, err := New(zapcore.DebugLevel, "")
	require.NoError(t, err)
	defer cleanup()
	assert.NotNil(t, logger)
}

func TestNewBadPath(t *testing.T) {
	_, _, err := New(zapcore.InfoLevel, filepath.Join(t.TempDir(), "missing", "geolife.log"))
	assert.Error(t, err)
}
