package cli

import (
	"fmt"
	"time"

	"ragpipe/internal/chunker"
	"ragpipe/internal/config"
	"ragpipe/internal/domain"
	"ragpipe/internal/embedding/hashing"
	"ragpipe/internal/embedding/openai"
	"ragpipe/internal/loader"
	"ragpipe/internal/logger"
	"ragpipe/internal/pipeline"
	"ragpipe/internal/service"
	"ragpipe/internal/summarizer"
	"ragpipe/internal/vectorstore"
	"ragpipe/internal/vectorstore/memory"
	"ragpipe/internal/vectorstore/qdrant"
	"ragpipe/internal/vectorstore/sqlite"
)

// App holds the components assembled from configuration.
type App struct {
	Config  *config.AppConfig
	Service *service.RAGService
	Loader  *loader.Loader
}

// NewApp assembles the service described by cfg.
func NewApp(cfg *config.AppConfig) (*App, error) {
	emb, err := newEmbedder(cfg.Embedder)
	if err != nil {
		return nil, err
	}

	var ch domain.Chunker
	switch cfg.Chunker.Type {
	case "recursive":
		c, err := chunker.NewRecursiveChunker(cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap)
		if err != nil {
			return nil, err
		}
		ch = c
	default:
		return nil, fmt.Errorf("%w: unknown chunker: %s", domain.ErrInvalidConfig, cfg.Chunker.Type)
	}

	var st vectorstore.Storage
	switch cfg.VectorStore.Type {
	case "memory":
		st = memory.NewStorage()
	case "sqlite":
		s, err := sqlite.Open(cfg.VectorStore.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
		}
		st = s
	case "qdrant":
		q := cfg.VectorStore.Qdrant
		s, err := qdrant.NewStorage(qdrant.Config{
			URL:        q.URL,
			APIKey:     q.APIKey,
			Collection: q.Collection,
			Timeout:    time.Duration(q.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		st = s
	default:
		return nil, fmt.Errorf("%w: unknown vector store: %s", domain.ErrInvalidConfig, cfg.VectorStore.Type)
	}

	var sum domain.Summarizer
	switch cfg.Summarizer.Type {
	case "frequency":
		sum = summarizer.NewFrequencySummarizer()
	case "none":
	default:
		_ = st.Close()
		return nil, fmt.Errorf("%w: unknown summarizer: %s", domain.ErrInvalidConfig, cfg.Summarizer.Type)
	}

	index := vectorstore.NewIndex(emb, st)
	p, err := pipeline.New(emb, index, pipeline.WithTopK(cfg.Pipeline.TopK))
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	logger.Debug("embedder=%s store=%s top_k=%d", emb.Name(), cfg.VectorStore.Type, cfg.Pipeline.TopK)

	return &App{
		Config:  cfg,
		Service: service.NewRAGService(ch, index, p, sum, cfg.Summarizer.MaxSentences),
		Loader:  loader.New(time.Duration(cfg.Loader.DownloadTimeoutSecs) * time.Second),
	}, nil
}

func newEmbedder(cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "hashing":
		dim := cfg.Dimension
		if dim == 0 {
			dim = hashing.DefaultDimension
		}
		return hashing.NewEmbedder(dim)
	case "openai":
		o := cfg.OpenAI
		client, err := openai.NewClient(openai.Config{
			BaseURL:           o.BaseURL,
			APIKeyEnv:         o.APIKeyEnv,
			Model:             cfg.Model,
			Timeout:           time.Duration(o.TimeoutSecs) * time.Second,
			BatchSize:         o.BatchSize,
			Dimension:         cfg.Dimension,
			MaxRetries:        o.MaxRetries,
			RequestsPerSecond: o.RequestsPerSecond,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("%w: unknown embedder: %s", domain.ErrInvalidConfig, cfg.Type)
	}
}

// Close releases the index backend.
func (a *App) Close() error {
	return a.Service.Close()
}
