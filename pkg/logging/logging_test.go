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
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestOr(t *testing.T) {
	assert.NotNil(t, Or(nil))
	Or(nil).Info("dropped")

	logger := slog.Default()
	assert.Same(t, logger, Or(logger))
}

func TestNew_File(t *testing.T) {
	dir := t.TempDir()

	logger, closer, err := New(Config{Level: "debug", Format: "json", Output: "file", Dir: dir, File: "run.log"})
	require.NoError(t, err)
	logger.Debug("loaded", slog.String("folder", "PRJ"))
	require.NoError(t, closer.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "run_"))
	assert.Equal(t, ".log", filepath.Ext(entries[0].Name()))

	bs, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(bs), `"folder":"PRJ"`)
}

func TestNew_None(t *testing.T) {
	dir := t.TempDir()

	logger, closer, err := New(Config{Output: "none", Dir: dir, File: "run.log"})
	require.NoError(t, err)
	logger.Info("dropped")
	require.NoError(t, closer.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
