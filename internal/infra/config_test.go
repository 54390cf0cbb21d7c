package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "file", cfg.Rules.Storage)
	assert.Equal(t, "config/NoSignsOnDeployables.json", cfg.Rules.Path)
	assert.Equal(t, "static", cfg.Permissions.Backend)
	assert.Equal(t, 3*time.Second, cfg.Notify.Timeout)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "lang", cfg.Lang.Dir)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
permissions:
  backend: static
  actors: ["76561198000000001"]
rules:
  path: /srv/rules.json
`), 0o644))

	t.Setenv("RULES_PATH", "/override/rules.json")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, []string{"76561198000000001"}, cfg.Permissions.Actors)
	assert.Equal(t, "/override/rules.json", cfg.Rules.Path)
}

func TestLoadConfigValidation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guard.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules:\n  storage: postgres\n"), 0o644))

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "database.url")
}

func TestLoadConfigRejectsOversizedAuditBatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guard.yaml")
	require.NoError(t, os.WriteFile(path, []byte("audit:\n  batch_size: 10000\n"), 0o644))

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "audit.batch_size")

	require.NoError(t, os.WriteFile(path, []byte("audit:\n  batch_size: 8191\n"), 0o644))
	_, err = LoadConfig(path)
	assert.NoError(t, err)
}

func TestNewLogger(t *testing.T) {
	l, err := NewLogger(LoggerConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, l)

	_, err = NewLogger(LoggerConfig{Level: "loud"})
	assert.Error(t, err)
}
