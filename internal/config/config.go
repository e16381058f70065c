// Package config loads the quizrag configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the quizrag configuration
type Config struct {
	SecretsFile string          `json:"secrets_file" yaml:"secrets_file"`
	Logging     LoggingConfig   `json:"logging" yaml:"logging"`
	AI          AIConfig        `json:"ai" yaml:"ai"`
	Embedding   EmbeddingConfig `json:"embedding" yaml:"embedding"`
	Chunking    ChunkingConfig  `json:"chunking" yaml:"chunking"`
	Index       IndexConfig     `json:"index" yaml:"index"`
	Retriever   RetrieverConfig `json:"retriever" yaml:"retriever"`
	Quiz        QuizConfig      `json:"quiz" yaml:"quiz"`
	Database    DatabaseConfig  `json:"database" yaml:"database"`
}

// LoggingConfig selects log level and output format.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // text, json, logfmt
}

// AIConfig configures the generation provider.
type AIConfig struct {
	Provider       string  `json:"provider" yaml:"provider"` // openai or mock
	APIKey         string  `json:"api_key" yaml:"api_key"`
	BaseURL        string  `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model          string  `json:"model" yaml:"model"`
	TimeoutSeconds int     `json:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRetries     int     `json:"max_retries" yaml:"max_retries"` // attempts per invocation
	RetryBackoffMs int     `json:"retry_backoff_ms" yaml:"retry_backoff_ms"`
	MaxTokens      int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	Temperature    float32 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
}

// EmbeddingConfig configures the embedding provider and the ingestion worker pool.
type EmbeddingConfig struct {
	Provider          string  `json:"provider" yaml:"provider"` // openai or hashing
	APIKey            string  `json:"api_key" yaml:"api_key"`
	BaseURL           string  `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model             string  `json:"model" yaml:"model"`
	Dimensions        int     `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	TimeoutSeconds    int     `json:"timeout_seconds" yaml:"timeout_seconds"`
	Workers           int     `json:"workers" yaml:"workers"`
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"` // 0 disables limiting
	Burst             int     `json:"burst" yaml:"burst"`
}

// ChunkingConfig sets the chunk window in characters.
type ChunkingConfig struct {
	MaxLength     int `json:"max_length" yaml:"max_length"`
	OverlapLength int `json:"overlap_length" yaml:"overlap_length"`
}

// IndexConfig locates the persisted vector index.
type IndexConfig struct {
	Path        string `json:"path" yaml:"path"`
	Compression string `json:"compression" yaml:"compression"` // none, zstd, lz4
}

// RetrieverConfig sets retrieval defaults.
type RetrieverConfig struct {
	TopK int    `json:"top_k" yaml:"top_k"`
	Mode string `json:"mode" yaml:"mode"` // ranked or concatenated
}

// QuizConfig sets composer defaults.
type QuizConfig struct {
	MaxSchemaAttempts int `json:"max_schema_attempts" yaml:"max_schema_attempts"`
	NumQuestions      int `json:"num_questions" yaml:"num_questions"`
}

// DatabaseConfig locates the question bank.
type DatabaseConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		SecretsFile: ".env",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		AI: AIConfig{
			Provider:       "openai",
			APIKey:         "${OPENAI_API_KEY}",
			Model:          "gpt-4o-mini",
			TimeoutSeconds: 60,
			MaxRetries:     3,
			RetryBackoffMs: 1000,
		},
		Embedding: EmbeddingConfig{
			Provider:          "openai",
			APIKey:            "${OPENAI_API_KEY}",
			Model:             "text-embedding-3-small",
			TimeoutSeconds:    30,
			Workers:           4,
			RequestsPerSecond: 0,
			Burst:             1,
		},
		Chunking: ChunkingConfig{
			MaxLength:     1000,
			OverlapLength: 200,
		},
		Index: IndexConfig{
			Path:        "~/.quizrag/index",
			Compression: "zstd",
		},
		Retriever: RetrieverConfig{
			TopK: 4,
			Mode: "concatenated",
		},
		Quiz: QuizConfig{
			MaxSchemaAttempts: 3,
			NumQuestions:      5,
		},
		Database: DatabaseConfig{
			Enabled: true,
			Path:    "~/.quizrag/questions.db",
		},
	}
}

// Load loads configuration from a JSON or YAML file (by extension). A missing
// file is created with the defaults.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := cfg.Save(path); err != nil {
			return nil, fmt.Errorf("failed to save default config: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Created default configuration at %s\n", path)
		return cfg.finish()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg.finish()
}

// finish expands paths and environment placeholders, then validates.
func (c *Config) finish() (*Config, error) {
	c.expandTilde()

	// Load secrets before expanding ${ENV_VAR} placeholders.
	if err := c.loadSecretsFile(); err != nil {
		return nil, fmt.Errorf("failed to load secrets file: %w", err)
	}

	c.expandEnvVars()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return c, nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// expandEnvVars expands ${VAR} placeholders in configuration values
func (c *Config) expandEnvVars() {
	c.AI.APIKey = os.ExpandEnv(c.AI.APIKey)
	c.AI.BaseURL = os.ExpandEnv(c.AI.BaseURL)
	c.AI.Model = os.ExpandEnv(c.AI.Model)
	c.Embedding.APIKey = os.ExpandEnv(c.Embedding.APIKey)
	c.Embedding.BaseURL = os.ExpandEnv(c.Embedding.BaseURL)
	c.Embedding.Model = os.ExpandEnv(c.Embedding.Model)
	c.Index.Path = os.ExpandEnv(c.Index.Path)
	c.Database.Path = os.ExpandEnv(c.Database.Path)
}

// expandTilde replaces a leading "~/" with the user's home directory in
// path-valued config fields.
func (c *Config) expandTilde() {
	home, err := os.UserHomeDir()
	if err != nil {
		return // can't expand, leave as-is
	}
	expand := func(p string) string {
		if p == "~" {
			return home
		}
		if strings.HasPrefix(p, "~/") {
			return filepath.Join(home, p[2:])
		}
		return p
	}

	c.SecretsFile = expand(c.SecretsFile)
	c.Index.Path = expand(c.Index.Path)
	c.Database.Path = expand(c.Database.Path)
}

// loadSecretsFile reads a dotenv file into the process environment. Existing
// environment variables win. A missing file is a no-op.
func (c *Config) loadSecretsFile() error {
	if c.SecretsFile == "" {
		return nil
	}
	if _, err := os.Stat(c.SecretsFile); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(c.SecretsFile)
}

// Validate checks structural settings. Provider credentials are checked when the
// provider is built.
func (c *Config) Validate() error {
	switch c.AI.Provider {
	case "openai", "mock":
	default:
		return fmt.Errorf("unknown ai.provider %q", c.AI.Provider)
	}
	switch c.Embedding.Provider {
	case "openai", "hashing":
	default:
		return fmt.Errorf("unknown embedding.provider %q", c.Embedding.Provider)
	}

	if c.Chunking.MaxLength <= 0 || c.Chunking.OverlapLength < 0 || c.Chunking.OverlapLength >= c.Chunking.MaxLength {
		return fmt.Errorf("chunking requires 0 <= overlap_length < max_length (got %d, %d)",
			c.Chunking.OverlapLength, c.Chunking.MaxLength)
	}

	switch strings.ToLower(c.Index.Compression) {
	case "", "none", "zstd", "lz4":
	default:
		return fmt.Errorf("unknown index.compression %q", c.Index.Compression)
	}
	if c.Index.Path == "" {
		return fmt.Errorf("index.path must be set")
	}

	if c.Retriever.TopK <= 0 {
		return fmt.Errorf("retriever.top_k must be greater than 0")
	}
	switch c.Retriever.Mode {
	case "ranked", "concatenated":
	default:
		return fmt.Errorf("unknown retriever.mode %q", c.Retriever.Mode)
	}

	if c.Quiz.MaxSchemaAttempts <= 0 {
		return fmt.Errorf("quiz.max_schema_attempts must be greater than 0")
	}
	if c.Quiz.NumQuestions < 1 || c.Quiz.NumQuestions > 10 {
		return fmt.Errorf("quiz.num_questions must be between 1 and 10")
	}
	if c.AI.MaxRetries <= 0 {
		return fmt.Errorf("ai.max_retries must be greater than 0")
	}
	if c.Embedding.Workers < 0 {
		return fmt.Errorf("embedding.workers must not be negative")
	}
	if c.Database.Enabled && c.Database.Path == "" {
		return fmt.Errorf("database.path must be set when the question bank is enabled")
	}
	return nil
}
