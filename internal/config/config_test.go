package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/CutFrame/internal/model"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, model.DefaultSettings(), cfg.Cutting.Settings())
	assert.Equal(t, model.DefaultStockLength, cfg.Materials.DefaultLength)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cutframe.yaml")
	yaml := `
cutting:
  kerf: 3.5
  no_fit_policy: abandon
server:
  port: 9090
  read_timeout: 5s
database:
  enabled: true
  host: db.internal
log:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))
	t.Setenv("CUTFRAME_CUTTING_MIN_OFFCUT", "25")
	t.Setenv("CUTFRAME_SERVER_PORT", "7070")

	cfg, err := Load(path)
	require.NoError(t, err)

	s := cfg.Cutting.Settings()
	assert.Equal(t, 3.5, s.KerfWidth)
	assert.Equal(t, 6.0, s.EndTrim)
	assert.Equal(t, 25.0, s.MinOffcut)
	assert.Equal(t, model.NoFitAbandon, s.NoFitPolicy)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.True(t, cfg.Database.Enabled)
	assert.Contains(t, cfg.Database.DSN(), "host=db.internal")
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_SearchesConfigsDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "configs"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "configs", "cutframe.yaml"), []byte("cutting:\n  end_trim: 0\n"), 0644))
	t.Chdir(dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Cutting.EndTrim)
}

func TestLoad_InvalidPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cutframe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cutting:\n  no_fit_policy: squeeze\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_NegativeKerf(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cutframe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cutting:\n  kerf: -1\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	for _, cfg := range []LogConfig{
		{Level: "debug", Format: "json"},
		{Level: "warn", Format: "console"},
		{},
	} {
		logger, err := NewLogger(cfg)
		require.NoError(t, err)
		assert.NotNil(t, logger)
	}

	logger, err := NewLogger(LogConfig{Level: "error", Format: "json"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1)) // debug
}
