package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	var stderr bytes.Buffer
	path := filepath.Join(t.TempDir(), "dynopt.log")

	logger, closeLog, err := newLogger("warn", path, &stderr)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "node", 3)
	require.NoError(t, closeLog())

	assert.NotContains(t, stderr.String(), "hidden")
	assert.Contains(t, stderr.String(), "msg=shown node=3")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"shown"`)
}

func TestNewLogger_BadLevel(t *testing.T) {
	_, _, err := newLogger("loud", "", &bytes.Buffer{})
	assert.Error(t, err)
}
