package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapcraft.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
output_dir: /srv/maps
dpi: 150
basemap_timeout: 5s
log:
  level: debug
`), 0o644))
	t.Setenv("MAPCRAFT_LEGEND_MAX_CHARS", "25")
	t.Setenv("MAPCRAFT_LOG_FORMAT", "json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/maps", cfg.OutputDir)
	assert.Equal(t, 150.0, cfg.DPI)
	assert.Equal(t, 5*time.Second, cfg.BasemapTimeout)
	assert.Equal(t, 25, cfg.LegendMaxChars)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "./data", cfg.DataDir)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsNonPositiveDPI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapcraft.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dpi: 0\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsExcessiveDPI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapcraft.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dpi: 5000000\n"), 0o644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "dpi")
}
