package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inboxd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
model:
  provider: openai
  model: gpt-4o-mini
  base_url: http://localhost:5273/v1
store:
  path: /tmp/runs.db
server:
  addr: ":9090"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Model.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Model.Model)
	assert.Equal(t, "http://localhost:5273/v1", cfg.Model.BaseURL)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Model.APIKeyEnv)
	assert.Equal(t, "/tmp/runs.db", cfg.Store.Path)
	assert.Equal(t, ":9090", cfg.Server.Addr)
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
model:
  model: phi-4
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Model.Provider)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Empty(t, cfg.Store.Path)
}

func TestLoadMissingModel(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
model:
  provider: openai
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model.model is required")
}

func TestLoadUnsupportedProvider(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
model:
  provider: carrierpigeon
  model: fast-pigeon
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported model provider")
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestDefault(t *testing.T) {
	t.Parallel()
	cfg := Default()
	assert.Equal(t, "openai", cfg.Model.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Model.Model)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}
