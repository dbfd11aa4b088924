package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_CreatesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DIRVIEWER_CONFIG_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.IndexWorkers)
	assert.Equal(t, filepath.Join(dir, "dirviewer.log"), cfg.LogFile)
	assert.FileExists(t, filepath.Join(dir, "config.json"))
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DIRVIEWER_CONFIG_DIR", dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"),
		[]byte(`{"base_dir": "/srv/data", "list_height": 12, "index_workers": 2}`), 0o644))
	t.Setenv("DIRVIEWER_SHOW_HIDDEN", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/srv/data", cfg.BaseDir)
	assert.Equal(t, 12, cfg.ListHeight)
	assert.Equal(t, 2, cfg.IndexWorkers)
	assert.True(t, cfg.ShowHidden)
}

func TestLoad_RejectsBrokenFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DIRVIEWER_CONFIG_DIR", dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{not json`), 0o644))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{BaseDir: "/tmp", IndexWorkers: 0, ReadsPerSecond: -1}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.IndexWorkers)
	assert.Equal(t, 200.0, cfg.ReadsPerSecond)

	assert.Error(t, (&Config{BaseDir: " "}).Validate())
	assert.Error(t, (&Config{BaseDir: "/", ListHeight: -1}).Validate())
	assert.Error(t, (&Config{BaseDir: "/", SFTPAddr: "host:22"}).Validate())
}

func TestIndexPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DIRVIEWER_CONFIG_DIR", dir)

	assert.Equal(t, filepath.Join(dir, "index.db"), DBPath())
	assert.Equal(t, DBPath(), IndexPath(""))
	assert.Equal(t, filepath.Join(dir, "index-alice_files.example.com_22.db"), IndexPath("alice@files.example.com:22"))
	assert.NotEqual(t, IndexPath("alice@a:22"), IndexPath("alice@b:22"))
}
