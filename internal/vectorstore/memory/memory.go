package memory

import (
	"context"
	"fmt"
	"sync"

	"ragpipe/internal/domain"
	"ragpipe/internal/vectorstore"
)

// Storage is a simple in-memory vector store using brute-force cosine similarity.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	records   []entry
	nextSeq   int64
}

type entry struct {
	seq    int64
	record vectorstore.Record
}

func NewStorage() *Storage { return &Storage{} }

func (s *Storage) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension != 0 && s.dimension != dimension {
		return fmt.Errorf("%w: store holds %d-dimensional vectors, got %d", domain.ErrDimensionMismatch, s.dimension, dimension)
	}
	s.dimension = dimension
	return nil
}

func (s *Storage) Dimension(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension, nil
}

func (s *Storage) Insert(_ context.Context, records []vectorstore.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		if len(r.Vector) != s.dimension {
			return fmt.Errorf("%w: record %s has %d values, store holds %d", domain.ErrDimensionMismatch, r.ID, len(r.Vector), s.dimension)
		}
	}
	for _, r := range records {
		r.Chunk.Metadata = r.Chunk.Metadata.Clone()
		r.Vector = append([]float64(nil), r.Vector...)
		s.records = append(s.records, entry{seq: s.nextSeq, record: r})
		s.nextSeq++
	}
	return nil
}

func (s *Storage) Search(_ context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	candidates := make([]vectorstore.Candidate, len(s.records))
	for i, e := range s.records {
		candidates[i] = vectorstore.Candidate{
			Seq: e.seq,
			Result: domain.SearchResult{
				ID:    e.record.ID,
				Chunk: domain.Chunk{Content: e.record.Chunk.Content, Metadata: e.record.Chunk.Metadata.Clone()},
				Score: vectorstore.Cosine(e.record.Vector, vector),
			},
		}
	}
	return vectorstore.TopK(candidates, topK), nil
}

func (s *Storage) Delete(_ context.Context, ids []string) error {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.records[:0]
	for _, e := range s.records {
		if _, ok := drop[e.record.ID]; !ok {
			kept = append(kept, e)
		}
	}
	clear(s.records[len(kept):])
	s.records = kept
	return nil
}

func (s *Storage) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.dimension = 0
	return nil
}

func (s *Storage) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *Storage) Close() error { return nil }
