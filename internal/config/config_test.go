package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "tpscore.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestReadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
RasterFile = "testdata/pop.nc"
OutDir = "out"
`)
	cfg, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, 1500.0, cfg.CellPopThreshold)
	assert.Equal(t, 11.25, cfg.MaxDistanceKm)
	assert.Equal(t, int32(45), cfg.TravelTimeThreshold)
}

func TestReadExpandsEnv(t *testing.T) {
	t.Setenv("TP_OUT", "/tmp/tp-out")
	path := writeConfig(t, `
RasterFile = "in.nc"
OutDir = "$TP_OUT"
`)
	cfg, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/tp-out", cfg.OutDir)
}

func TestReadRequiresRasterFile(t *testing.T) {
	path := writeConfig(t, `OutDir = "out"`)
	_, err := Read(path)
	require.Error(t, err)
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read("/nonexistent/tpscore.toml")
	require.Error(t, err)
}
