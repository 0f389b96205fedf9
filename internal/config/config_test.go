package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_MatchesDocumentedDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "agentmemory", cfg.Name)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, "scoped", cfg.Admin.PermissionMode)
	assert.Equal(t, 200, cfg.Query.MaxLimit)
}

func TestConfig_SaveLoadRoundTrip(t *testing.T) {
	t.Setenv("AGENTMEMORY_DB", "")
	t.Setenv("GENAI_API_KEY", "")
	t.Setenv("OLLAMA_ENDPOINT", "")
	t.Setenv("OLLAMA_EMBEDDING_MODEL", "")
	t.Setenv("AGENTMEMORY_ADMIN_KEY", "")

	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Storage.DatabasePath = "custom.db"
	cfg.Embedding.OllamaModel = "custom-model"

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "custom.db", loaded.Storage.DatabasePath)
	assert.Equal(t, "custom-model", loaded.Embedding.OllamaModel)
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "agentmemory", cfg.Name)
}

func TestConfig_EnvOverridesTakePrecedence(t *testing.T) {
	t.Setenv("AGENTMEMORY_DB", "/tmp/override.db")
	t.Setenv("GENAI_API_KEY", "env-genai-key")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "/tmp/override.db", cfg.Storage.DatabasePath)
	assert.Equal(t, "env-genai-key", cfg.Embedding.GenAIAPIKey)
	assert.Equal(t, "genai", cfg.Embedding.Provider)
}

func TestValidate_RejectsInconsistentConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Admin.PermissionMode = "bogus"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Query.MaxLimit = 1
	cfg.Query.DefaultLimit = 20
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Embedding.Provider = "bogus"
	assert.Error(t, cfg.Validate())
}
