// Package config provides configuration loading and structs for the Kotae server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Qdrant    QdrantConfig    `yaml:"qdrant"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Rerank    RerankConfig    `yaml:"rerank"`
	Split     SplitConfig     `yaml:"split"`
	Query     QueryConfig     `yaml:"query"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Storage   StorageConfig   `yaml:"storage"`
	Watch     WatchConfig     `yaml:"watch"`

	// OpenAIAPIKey comes from the environment, never from the file.
	OpenAIAPIKey string `yaml:"-"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// QdrantConfig holds vector backend connection settings.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Collection string `yaml:"collection"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	CacheSize  int    `yaml:"cache_size"`
}

// LLMConfig holds answer generation settings.
type LLMConfig struct {
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	// AnswerLanguage is substituted into the grounding prompt.
	AnswerLanguage string `yaml:"answer_language"`
}

// RerankConfig holds the optional rerank service settings.
// An empty URL disables reranking entirely.
type RerankConfig struct {
	URL            string `yaml:"url"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// SplitConfig holds chunk splitting settings.
type SplitConfig struct {
	// Strategy selects "semantic" or "fixed".
	Strategy             string  `yaml:"strategy"`
	ChunkSize            int     `yaml:"chunk_size"`
	ChunkOverlap         int     `yaml:"chunk_overlap"`
	BufferSize           int     `yaml:"buffer_size"`
	BreakpointPercentile float64 `yaml:"breakpoint_percentile"`
}

// QueryConfig holds retrieval settings.
type QueryConfig struct {
	TopK int `yaml:"top_k"`
}

// IngestConfig holds ingest pipeline settings.
type IngestConfig struct {
	BatchSize int `yaml:"batch_size"`
}

// StorageConfig holds paths for the ingest catalog and query logs.
type StorageConfig struct {
	CatalogPath string `yaml:"catalog_path"`
	QueryLogDir string `yaml:"query_log_dir"`
}

// WatchConfig holds directory watch settings for auto-ingest.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
}

// Load reads and parses the config file at path, expands paths, applies
// defaults, and picks up OPENAI_API_KEY from the environment (a .env file in
// the working directory is honored when present).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.CatalogPath = expandPath(cfg.Storage.CatalogPath, configDir)
	cfg.Storage.QueryLogDir = expandPath(cfg.Storage.QueryLogDir, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	_ = godotenv.Load()
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")

	return &cfg, nil
}

// Validate fails fast on settings that would only surface as confusing
// provider errors later.
func (c *Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is not set (environment or .env)")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Split.Strategy != "semantic" && c.Split.Strategy != "fixed" {
		return fmt.Errorf("split.strategy must be %q or %q, got %q", "semantic", "fixed", c.Split.Strategy)
	}
	if c.Split.ChunkOverlap >= c.Split.ChunkSize {
		return fmt.Errorf("split.chunk_overlap (%d) must be smaller than split.chunk_size (%d)",
			c.Split.ChunkOverlap, c.Split.ChunkSize)
	}
	if c.Query.TopK <= 0 {
		return fmt.Errorf("query.top_k must be positive, got %d", c.Query.TopK)
	}
	if c.Qdrant.Collection == "" {
		return fmt.Errorf("qdrant.collection cannot be empty")
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
