package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GOOGLE_GENAI_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("RELAY_API_KEY", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)

	assert.Equal(t, IntensityFast, cfg.Intensity)
	assert.Equal(t, "none", cfg.LogLevel)
	assert.Empty(t, cfg.GoogleAPIKey)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"google_api_key":"file-key","model":"openai/gpt-4o","intensity":"deep"}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GOOGLE_GENAI_API_KEY", "")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "file-key", cfg.GoogleAPIKey)
	assert.Equal(t, "openai/gpt-4o", cfg.Model)
	assert.Equal(t, IntensityDeep, cfg.Intensity)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"google_api_key":"file-key"}`), 0600))

	t.Setenv("GEMINI_API_KEY", "env-key")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.GoogleAPIKey)
}

func TestInvalidIntensityRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"intensity":"warp"}`), 0600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "intensity")
}

func TestInvalidJSONRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")

	original := &Config{Model: "gemini-2.5-flash", Intensity: IntensityThink}
	require.NoError(t, original.Save(path))

	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GOOGLE_GENAI_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("RELAY_API_KEY", "")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, original.Model, loaded.Model)
	assert.Equal(t, original.Intensity, loaded.Intensity)
}
