package vectorstore

import (
	"context"

	"ragpipe/internal/domain"
)

// Record is an indexed chunk: the chunk, its embedding and an opaque ID.
// Records are never mutated once stored.
type Record struct {
	ID     string
	Chunk  domain.Chunk
	Vector []float64
}

// Storage persists records and supports similarity search. Search returns
// results ordered by descending cosine similarity, ties broken by insertion
// order, and an empty slice for an empty store.
type Storage interface {
	// Init prepares the store for vectors of the given dimension. Existing
	// records are kept; a conflicting dimension is an error.
	Init(ctx context.Context, dimension int) error
	// Dimension reports the vector size, or 0 for a store never initialized.
	Dimension(ctx context.Context) (int, error)
	Insert(ctx context.Context, records []Record) error
	Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error)
	Delete(ctx context.Context, ids []string) error
	// Clear removes all records and forgets the dimension.
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int, error)
	Close() error
}
