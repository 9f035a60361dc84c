package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"ragpipe/internal/domain"
	"ragpipe/internal/logger"
)

// Defaults for the OpenAI-compatible embeddings client.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultModel      = "text-embedding-3-small"
	DefaultTimeout    = 30 * time.Second
	DefaultBatchSize  = 32
	DefaultMaxRetries = 3
)

var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
	"nomic-embed-text":       768,
	"all-minilm":             384,
}

// Client is an OpenAI-compatible embeddings client. It also works against
// Ollama's /v1 endpoint.
type Client struct {
	api        *goopenai.Client
	model      string
	timeout    time.Duration
	batchSize  int
	maxRetries int
	retryBase  time.Duration
	limiter    *rate.Limiter
	// requested is sent as the dimensions parameter when set.
	requested int

	mu        sync.Mutex
	dimension int
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
	BatchSize int
	// Dimension asks the model for vectors of this width; 0 uses the known
	// model dimension or learns it from the first response.
	Dimension int
	// MaxRetries bounds retries of 429/5xx and transport failures; 0 selects
	// the default, a negative value disables retrying.
	MaxRetries int
	// RequestsPerSecond limits outgoing requests; 0 disables limiting.
	RequestsPerSecond float64
}

// NewClient creates a new embeddings client using the provided configuration.
// An API key is only required for the default OpenAI endpoint.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	key := ""
	if cfg.APIKeyEnv != "" {
		key = os.Getenv(cfg.APIKeyEnv)
	}
	if key == "" && strings.TrimRight(cfg.BaseURL, "/") == DefaultBaseURL {
		return nil, fmt.Errorf("%w: missing API key in env %q", domain.ErrInvalidConfig, cfg.APIKeyEnv)
	}
	t := cfg.Timeout
	if t == 0 {
		t = DefaultTimeout
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	switch {
	case cfg.MaxRetries < 0:
		cfg.MaxRetries = 0
	case cfg.MaxRetries == 0:
		cfg.MaxRetries = DefaultMaxRetries
	}

	apiCfg := goopenai.DefaultConfig(key)
	apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	apiCfg.HTTPClient = &http.Client{Timeout: t}

	c := &Client{
		api:        goopenai.NewClientWithConfig(apiCfg),
		model:      cfg.Model,
		timeout:    t,
		batchSize:  cfg.BatchSize,
		maxRetries: cfg.MaxRetries,
		retryBase:  200 * time.Millisecond,
		requested:  cfg.Dimension,
		dimension:  cfg.Dimension,
	}
	if c.dimension == 0 {
		c.dimension = modelDimensions[cfg.Model]
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai:" + c.model }

// Dimension returns the embedding size, or 0 while still unknown.
func (c *Client) Dimension() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dimension
}

// Embed returns an embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	out, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts in requests of at most BatchSize inputs.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		vecs, err := c.embedWithRetry(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (c *Client) embedWithRetry(ctx context.Context, batch []string) ([][]float64, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			logger.Debug("openai: retrying embeddings request (attempt %d): %v", attempt+1, lastErr)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, ctx.Err())
			case <-time.After(retryDelay(c.retryBase, attempt-1)):
			}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
			}
		}
		vecs, err := c.embedOnce(ctx, batch)
		if err == nil {
			return vecs, nil
		}
		lastErr = err
		if ctx.Err() != nil || !retryable(err) {
			break
		}
	}
	return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, lastErr)
}

func (c *Client) embedOnce(ctx context.Context, batch []string) ([][]float64, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateEmbeddings(reqCtx, goopenai.EmbeddingRequestStrings{
		Input:      batch,
		Model:      goopenai.EmbeddingModel(c.model),
		Dimensions: c.requested,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(batch) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(batch), len(resp.Data))
	}
	out := make([][]float64, len(batch))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(batch) || len(d.Embedding) == 0 {
			return nil, errors.New("malformed embedding in response")
		}
		vec := make([]float64, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float64(v)
		}
		out[d.Index] = vec
	}
	for i, vec := range out {
		if vec == nil {
			return nil, fmt.Errorf("missing embedding for input %d", i)
		}
		if err := c.checkDimension(len(vec)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (c *Client) checkDimension(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dimension == 0 {
		c.dimension = n
		return nil
	}
	if n != c.dimension {
		return fmt.Errorf("%w: model returned %d values, expected %d", domain.ErrDimensionMismatch, n, c.dimension)
	}
	return nil
}

func retryable(err error) bool {
	if errors.Is(err, domain.ErrDimensionMismatch) {
		return false
	}
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	// transport failures
	return true
}

func retryDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
