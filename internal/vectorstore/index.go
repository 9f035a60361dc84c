package vectorstore

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"ragpipe/internal/domain"
)

// DefaultBatchSize is the number of chunks embedded per EmbedBatch call.
const DefaultBatchSize = 64

// ProgressFunc reports embedding progress during Add.
type ProgressFunc func(done, total int)

// Index couples an embedder with a storage backend. Add, Delete and Reset
// are serialized; Search may run concurrently with other searches. Embedding
// happens outside the lock.
type Index struct {
	mu        sync.RWMutex
	embedder  domain.Embedder
	storage   Storage
	batchSize int
	dimension atomic.Int64
}

// Option configures an Index.
type Option func(*Index)

// WithBatchSize sets how many chunks are embedded per request.
func WithBatchSize(n int) Option {
	return func(x *Index) {
		if n > 0 {
			x.batchSize = n
		}
	}
}

// NewIndex creates an index over storage using embedder for chunk vectors.
func NewIndex(embedder domain.Embedder, storage Storage, opts ...Option) *Index {
	x := &Index{embedder: embedder, storage: storage, batchSize: DefaultBatchSize}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// AddOption configures a single Add call.
type AddOption func(*addOptions)

type addOptions struct {
	progress ProgressFunc
}

// WithProgress reports how many chunks have been embedded so far.
func WithProgress(fn ProgressFunc) AddOption {
	return func(o *addOptions) { o.progress = fn }
}

// Add embeds chunks and stores them, returning the assigned record IDs in
// chunk order. Nothing is stored when embedding any chunk fails.
func (x *Index) Add(ctx context.Context, chunks []domain.Chunk, opts ...AddOption) ([]string, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	var o addOptions
	for _, opt := range opts {
		opt(&o)
	}

	records := make([]Record, 0, len(chunks))
	for start := 0; start < len(chunks); start += x.batchSize {
		end := min(start+x.batchSize, len(chunks))
		texts := make([]string, 0, end-start)
		for _, ch := range chunks[start:end] {
			texts = append(texts, ch.Content)
		}
		vecs, err := x.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, domain.Wrap(domain.ErrEmbeddingUnavailable, err)
		}
		if len(vecs) != len(texts) {
			return nil, fmt.Errorf("%w: embedder returned %d vectors for %d texts", domain.ErrEmbeddingUnavailable, len(vecs), len(texts))
		}
		for i, vec := range vecs {
			records = append(records, Record{ID: uuid.NewString(), Chunk: chunks[start+i], Vector: vec})
		}
		if o.progress != nil {
			o.progress(end, len(chunks))
		}
	}

	dim := len(records[0].Vector)
	for _, r := range records {
		if len(r.Vector) != dim || dim == 0 {
			return nil, fmt.Errorf("%w: embedder returned vectors of differing size", domain.ErrDimensionMismatch)
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.ensureDimension(ctx, dim); err != nil {
		return nil, err
	}
	if err := x.storage.Insert(ctx, records); err != nil {
		return nil, domain.Wrap(domain.ErrIndexUnavailable, err)
	}
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids, nil
}

// ensureDimension initializes the storage on first insert. Callers hold the
// write lock.
func (x *Index) ensureDimension(ctx context.Context, dim int) error {
	known, err := x.knownDimension(ctx)
	if err != nil {
		return err
	}
	if known == 0 {
		if err := x.storage.Init(ctx, dim); err != nil {
			return domain.Wrap(domain.ErrIndexUnavailable, err)
		}
		x.dimension.Store(int64(dim))
		return nil
	}
	if known != dim {
		return fmt.Errorf("%w: index holds %d-dimensional vectors, got %d", domain.ErrDimensionMismatch, known, dim)
	}
	return nil
}

func (x *Index) knownDimension(ctx context.Context) (int, error) {
	if d := x.dimension.Load(); d > 0 {
		return int(d), nil
	}
	d, err := x.storage.Dimension(ctx)
	if err != nil {
		return 0, domain.Wrap(domain.ErrIndexUnavailable, err)
	}
	if d > 0 {
		x.dimension.Store(int64(d))
	}
	return d, nil
}

// Search returns the k stored chunks most similar to vector, nearest first.
// An index that has never received a chunk yields an empty result.
func (x *Index) Search(ctx context.Context, vector []float64, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidConfig, k)
	}
	x.mu.RLock()
	defer x.mu.RUnlock()

	dim, err := x.knownDimension(ctx)
	if err != nil {
		return nil, err
	}
	if dim == 0 {
		return []domain.SearchResult{}, nil
	}
	if len(vector) != dim {
		return nil, fmt.Errorf("%w: query has %d values, index holds %d", domain.ErrDimensionMismatch, len(vector), dim)
	}
	res, err := x.storage.Search(ctx, vector, k)
	if err != nil {
		return nil, domain.Wrap(domain.ErrIndexUnavailable, err)
	}
	return res, nil
}

// SearchText embeds query and searches for its nearest chunks.
func (x *Index) SearchText(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	vec, err := x.embedder.Embed(ctx, query)
	if err != nil {
		return nil, domain.Wrap(domain.ErrEmbeddingUnavailable, err)
	}
	return x.Search(ctx, vec, k)
}

// Delete removes the records with the given IDs. Unknown IDs are ignored.
func (x *Index) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.storage.Delete(ctx, ids); err != nil {
		return domain.Wrap(domain.ErrIndexUnavailable, err)
	}
	return nil
}

// Reset removes every record. The next Add may use a different dimension.
func (x *Index) Reset(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.storage.Clear(ctx); err != nil {
		return domain.Wrap(domain.ErrIndexUnavailable, err)
	}
	x.dimension.Store(0)
	return nil
}

// Len returns the number of stored chunks.
func (x *Index) Len(ctx context.Context) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	n, err := x.storage.Count(ctx)
	if err != nil {
		return 0, domain.Wrap(domain.ErrIndexUnavailable, err)
	}
	return n, nil
}

// Close releases the storage backend.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.storage.Close()
}
