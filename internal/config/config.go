package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"ragpipe/internal/chunker"
	"ragpipe/internal/domain"
	"ragpipe/internal/embedding/openai"
	"ragpipe/internal/pipeline"
)

// Environment variables overriding file settings.
const (
	EnvChunkSize      = "RAG_CHUNK_SIZE"
	EnvChunkOverlap   = "RAG_CHUNK_OVERLAP"
	EnvTopK           = "RAG_TOP_K"
	EnvEmbeddingModel = "RAG_EMBEDDING_MODEL"
	EnvIndexPath      = "RAG_INDEX_PATH"
)

// DefaultIndexPath is where the sqlite index lives unless configured.
const DefaultIndexPath = "./data/index.db"

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	BatchSize         int     `yaml:"batch_size"`
	MaxRetries        int     `yaml:"max_retries"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type string `yaml:"type"`
	// Model is the embedding model name; only the openai embedder uses it.
	Model string `yaml:"model"`
	// Dimension is the vector width. 0 selects the embedder's default: 384
	// for hashing, the model's native width for openai.
	Dimension int                  `yaml:"dimension"`
	OpenAI    OpenAIEmbedderConfig `yaml:"openai"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type         string `yaml:"type"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string       `yaml:"type"`
	Path   string       `yaml:"path"`
	Qdrant QdrantConfig `yaml:"qdrant"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// PipelineConfig configures query answering.
type PipelineConfig struct {
	TopK int `yaml:"top_k"`
}

// LoaderConfig configures document loading.
type LoaderConfig struct {
	DownloadTimeoutSecs int `yaml:"download_timeout_secs"`
}

// SummarizerConfig selects and configures the summarizer.
type SummarizerConfig struct {
	Type         string `yaml:"type"`
	MaxSentences int    `yaml:"max_sentences"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Loader      LoaderConfig      `yaml:"loader"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// Settings missing from the file keep their defaults; environment
// overrides are applied last.
func Load(path string) (*AppConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parsing %s: %w", domain.ErrInvalidConfig, path, err)
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/rag/config.yaml.
// If neither exists, it writes defaults to ~/.config/rag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err != nil {
		if err := Save(userPath, Default()); err != nil {
			return nil, "", err
		}
	}
	cfg, err := Load(userPath)
	return cfg, userPath, err
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate reports the first invalid setting as ErrInvalidConfig.
func (c *AppConfig) Validate() error {
	if c.Chunker.Type != "recursive" {
		return invalid("unknown chunker type %q", c.Chunker.Type)
	}
	if err := chunker.Validate(c.Chunker.ChunkSize, c.Chunker.ChunkOverlap); err != nil {
		return err
	}
	if c.Embedder.Dimension < 0 {
		return invalid("embedder dimension must not be negative, got %d", c.Embedder.Dimension)
	}
	switch c.Embedder.Type {
	case "hashing":
	case "openai":
		if c.Embedder.Model == "" {
			return invalid("embedder model is required for the openai embedder")
		}
	default:
		return invalid("unknown embedder type %q", c.Embedder.Type)
	}
	switch c.VectorStore.Type {
	case "memory":
	case "sqlite":
		if c.VectorStore.Path == "" {
			return invalid("vector_store path is required for sqlite")
		}
	case "qdrant":
		if c.VectorStore.Qdrant.URL == "" || c.VectorStore.Qdrant.Collection == "" {
			return invalid("qdrant url and collection are required")
		}
	default:
		return invalid("unknown vector store type %q", c.VectorStore.Type)
	}
	if c.Pipeline.TopK <= 0 {
		return invalid("top_k must be positive, got %d", c.Pipeline.TopK)
	}
	if c.Summarizer.Type != "frequency" && c.Summarizer.Type != "none" {
		return invalid("unknown summarizer type %q", c.Summarizer.Type)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{domain.ErrInvalidConfig}, args...)...)
}

func applyEnv(cfg *AppConfig) error {
	ints := []struct {
		key string
		dst *int
	}{
		{EnvChunkSize, &cfg.Chunker.ChunkSize},
		{EnvChunkOverlap, &cfg.Chunker.ChunkOverlap},
		{EnvTopK, &cfg.Pipeline.TopK},
	}
	for _, e := range ints {
		v, ok := os.LookupEnv(e.key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return invalid("%s=%q is not an integer", e.key, v)
		}
		*e.dst = n
	}
	if v := os.Getenv(EnvEmbeddingModel); v != "" {
		cfg.Embedder.Model = v
	}
	if v := os.Getenv(EnvIndexPath); v != "" {
		cfg.VectorStore.Path = v
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "rag", "config.yaml"), nil
}

// Default returns the built-in configuration: an offline hashing embedder
// and a sqlite index under ./data.
func Default() *AppConfig {
	return &AppConfig{
		Embedder: EmbedderConfig{
			Type:  "hashing",
			Model: openai.DefaultModel,
			OpenAI: OpenAIEmbedderConfig{
				BaseURL:     openai.DefaultBaseURL,
				APIKeyEnv:   "OPENAI_API_KEY",
				TimeoutSecs: 30,
				BatchSize:   openai.DefaultBatchSize,
				MaxRetries:  openai.DefaultMaxRetries,
			},
		},
		Chunker: ChunkerConfig{
			Type:         "recursive",
			ChunkSize:    chunker.DefaultChunkSize,
			ChunkOverlap: chunker.DefaultChunkOverlap,
		},
		VectorStore: VectorStoreConfig{
			Type: "sqlite",
			Path: DefaultIndexPath,
			Qdrant: QdrantConfig{
				URL:         "http://localhost:6333",
				Collection:  "rag_chunks",
				TimeoutSecs: 15,
			},
		},
		Pipeline:   PipelineConfig{TopK: pipeline.DefaultTopK},
		Loader:     LoaderConfig{DownloadTimeoutSecs: 60},
		Summarizer: SummarizerConfig{Type: "frequency", MaxSentences: 5},
	}
}
