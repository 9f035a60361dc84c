package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"ragpipe/internal/domain"
	"ragpipe/internal/vectorstore"
)

// Storage is a minimal REST client to Qdrant.
// It assumes cosine distance and creates the collection if missing.
type Storage struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client

	mu      sync.Mutex
	lastSeq int64
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// statusError is a non-2xx Qdrant response.
type statusError struct {
	method string
	path   string
	code   int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant %s %s failed: %d %s", e.method, e.path, e.code, e.body)
}

func isNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code == http.StatusNotFound
}

func NewStorage(cfg Config) (*Storage, error) {
	if strings.TrimSpace(cfg.URL) == "" || strings.TrimSpace(cfg.Collection) == "" {
		return nil, fmt.Errorf("%w: qdrant url and collection are required", domain.ErrInvalidConfig)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	existing, err := s.Dimension(ctx)
	if err != nil {
		return err
	}
	if existing != 0 {
		if existing != dimension {
			return fmt.Errorf("%w: collection %s holds %d-dimensional vectors, got %d", domain.ErrDimensionMismatch, s.collection, existing, dimension)
		}
		return nil
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return s.do(ctx, http.MethodPut, s.collectionPath(""), body, nil)
}

func (s *Storage) Dimension(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	err := s.do(ctx, http.MethodGet, s.collectionPath(""), nil, &resp)
	if isNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return resp.Result.Config.Params.Vectors.Size, nil
}

func (s *Storage) Insert(ctx context.Context, records []vectorstore.Record) error {
	if len(records) == 0 {
		return nil
	}
	base := s.reserveSeq(len(records))
	points := make([]map[string]any, len(records))
	for i, r := range records {
		meta := map[string]any(r.Chunk.Metadata)
		if meta == nil {
			meta = map[string]any{}
		}
		points[i] = map[string]any{
			"id":     r.ID,
			"vector": r.Vector,
			"payload": map[string]any{
				"content":  r.Chunk.Content,
				"metadata": meta,
				"seq":      base + int64(i),
			},
		}
	}
	return s.do(ctx, http.MethodPut, s.collectionPath("/points?wait=true"), map[string]any{"points": points}, nil)
}

// reserveSeq returns the first of n increasing sequence numbers that order
// points by insertion across process restarts. Microseconds keep the values
// exact in JSON number payloads.
func (s *Storage) reserveSeq(n int) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	base := time.Now().UnixMicro()
	if base <= s.lastSeq {
		base = s.lastSeq + 1
	}
	s.lastSeq = base + int64(n) - 1
	return base
}

func (s *Storage) Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			ID      any     `json:"id"`
			Score   float64 `json:"score"`
			Payload struct {
				Content  string         `json:"content"`
				Metadata map[string]any `json:"metadata"`
				Seq      int64          `json:"seq"`
			} `json:"payload"`
		} `json:"result"`
	}
	err := s.do(ctx, http.MethodPost, s.collectionPath("/points/search"), req, &resp)
	if isNotFound(err) {
		return []domain.SearchResult{}, nil
	}
	if err != nil {
		return nil, err
	}
	candidates := make([]vectorstore.Candidate, 0, len(resp.Result))
	for _, r := range resp.Result {
		candidates = append(candidates, vectorstore.Candidate{
			Seq: r.Payload.Seq,
			Result: domain.SearchResult{
				ID: fmt.Sprint(r.ID),
				Chunk: domain.Chunk{
					Content:  r.Payload.Content,
					Metadata: domain.MetadataFromAny(r.Payload.Metadata),
				},
				Score: r.Score,
			},
		})
	}
	return vectorstore.TopK(candidates, topK), nil
}

func (s *Storage) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.do(ctx, http.MethodPost, s.collectionPath("/points/delete?wait=true"), map[string]any{"points": ids}, nil)
	if isNotFound(err) {
		return nil
	}
	return err
}

func (s *Storage) Clear(ctx context.Context) error {
	err := s.do(ctx, http.MethodDelete, s.collectionPath(""), nil, nil)
	if isNotFound(err) {
		return nil
	}
	return err
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := s.do(ctx, http.MethodPost, s.collectionPath("/points/count"), map[string]any{"exact": true}, &resp)
	if isNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

func (s *Storage) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *Storage) collectionPath(suffix string) string {
	return "/collections/" + s.collection + suffix
}

func (s *Storage) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding qdrant request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.url+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{method: method, path: path, code: resp.StatusCode, body: strings.TrimSpace(string(msg))}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
