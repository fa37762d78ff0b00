package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithDirRoutesErrorsToErrorFile(t *testing.T) {
	dir := t.TempDir()

	log, err := NewWithDir("debug", dir)
	require.NoError(t, err)

	log.Info("course created", "courseId", "c-1")
	log.Error("certificate send failed", "certificateId", "x-9")

	info, err := os.ReadFile(filepath.Join(dir, "info.log"))
	require.NoError(t, err)
	errs, err := os.ReadFile(filepath.Join(dir, "error.log"))
	require.NoError(t, err)

	assert.Contains(t, string(info), "course created")
	assert.Contains(t, string(info), "certificate send failed")
	assert.NotContains(t, string(errs), "course created")
	assert.Contains(t, string(errs), "x-9")
}

func TestParseLevel(t *testing.T) {
	_, err := parseLevel("verbose")
	assert.Error(t, err)

	lvl, err := parseLevel("WARNING")
	require.NoError(t, err)
	assert.Equal(t, "WARN", lvl.Level().String())
}
