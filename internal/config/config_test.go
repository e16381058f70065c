package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Validates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad_CreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.Chunking.MaxLength)
	assert.FileExists(t, path)
}

func TestLoad_JSONWithEnvExpansion(t *testing.T) {
	t.Setenv("QUIZRAG_TEST_KEY", "sk-test")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"secrets_file": "",
		"ai": {"provider": "mock", "api_key": "${QUIZRAG_TEST_KEY}", "max_retries": 2},
		"chunking": {"max_length": 400, "overlap_length": 50},
		"index": {"path": "${QUIZRAG_TEST_DIR}/idx", "compression": "lz4"}
	}`), 0o644))
	t.Setenv("QUIZRAG_TEST_DIR", dir)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.AI.APIKey)
	assert.Equal(t, "mock", cfg.AI.Provider)
	assert.Equal(t, 2, cfg.AI.MaxRetries)
	assert.Equal(t, 400, cfg.Chunking.MaxLength)
	assert.Equal(t, filepath.Join(dir, "idx"), cfg.Index.Path)
	// Unset sections keep their defaults.
	assert.Equal(t, 4, cfg.Retriever.TopK)
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
secrets_file: ""
embedding:
  provider: hashing
  dimensions: 128
retriever:
  top_k: 6
  mode: ranked
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "hashing", cfg.Embedding.Provider)
	assert.Equal(t, 128, cfg.Embedding.Dimensions)
	assert.Equal(t, 6, cfg.Retriever.TopK)
	assert.Equal(t, "ranked", cfg.Retriever.Mode)
}

func TestLoad_SecretsFile(t *testing.T) {
	dir := t.TempDir()
	secrets := filepath.Join(dir, "secrets.env")
	require.NoError(t, os.WriteFile(secrets, []byte("QUIZRAG_SECRET_ONLY=from-file\n"), 0o600))
	t.Setenv("QUIZRAG_SECRET_ONLY", "")
	os.Unsetenv("QUIZRAG_SECRET_ONLY")

	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"secrets_file": "`+secrets+`",
		"ai": {"provider": "openai", "api_key": "${QUIZRAG_SECRET_ONLY}", "max_retries": 1}}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.AI.APIKey)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*Config)
	}{
		{"overlap >= max", func(c *Config) { c.Chunking.OverlapLength = c.Chunking.MaxLength }},
		{"unknown provider", func(c *Config) { c.AI.Provider = "other" }},
		{"unknown embedder", func(c *Config) { c.Embedding.Provider = "onnx" }},
		{"bad compression", func(c *Config) { c.Index.Compression = "gzip" }},
		{"zero top k", func(c *Config) { c.Retriever.TopK = 0 }},
		{"bad mode", func(c *Config) { c.Retriever.Mode = "fuzzy" }},
		{"too many questions", func(c *Config) { c.Quiz.NumQuestions = 11 }},
		{"no schema attempts", func(c *Config) { c.Quiz.MaxSchemaAttempts = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mut(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSave_RoundTripYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	cfg := Default()
	cfg.SecretsFile = ""
	cfg.Retriever.TopK = 9
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, loaded.Retriever.TopK)
}
