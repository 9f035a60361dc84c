// Package vectorstoretest provides a behavioral test suite shared by all
// vectorstore.Storage implementations.
package vectorstoretest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragpipe/internal/domain"
	"ragpipe/internal/vectorstore"
)

// Factory returns a fresh, empty storage. The suite closes it.
type Factory func(t *testing.T) vectorstore.Storage

func record(id, content string, vec ...float64) vectorstore.Record {
	return vectorstore.Record{
		ID:     id,
		Chunk:  domain.Chunk{Content: content, Metadata: domain.Metadata{domain.MetaSource: content + ".txt", domain.MetaPage: 2}},
		Vector: vec,
	}
}

func ids(results []domain.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

// Run exercises the Storage contract against storages built by newStorage.
func Run(t *testing.T, newStorage Factory) {
	ctx := context.Background()

	open := func(t *testing.T) vectorstore.Storage {
		s := newStorage(t)
		t.Cleanup(func() { _ = s.Close() })
		return s
	}

	t.Run("empty store", func(t *testing.T) {
		s := open(t)
		dim, err := s.Dimension(ctx)
		require.NoError(t, err)
		assert.Zero(t, dim)
		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		res, err := s.Search(ctx, []float64{1, 0, 0}, 3)
		require.NoError(t, err)
		assert.Empty(t, res)
	})

	t.Run("nearest first with metadata", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Init(ctx, 3))
		require.NoError(t, s.Insert(ctx, []vectorstore.Record{
			record("7c9e6679-7425-40de-944b-e07fc1f90ae7", "far", 0, 0, 1),
			record("8f14e45f-ceea-467f-a4a6-c26b3e1c3a01", "near", 1, 0, 0),
			record("9b2d0c4a-1d5e-4c1f-8a3b-6e7f8091a2b3", "middle", 1, 1, 0),
		}))

		res, err := s.Search(ctx, []float64{1, 0, 0}, 2)
		require.NoError(t, err)
		require.Len(t, res, 2)
		assert.Equal(t, "near", res[0].Chunk.Content)
		assert.Equal(t, "middle", res[1].Chunk.Content)
		assert.InDelta(t, 1.0, res[0].Score, 1e-6)
		assert.Greater(t, res[0].Score, res[1].Score)
		assert.Equal(t, "near.txt", res[0].Chunk.Metadata[domain.MetaSource])
		assert.Equal(t, 2, res[0].Chunk.Metadata[domain.MetaPage])

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("k larger than store", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Init(ctx, 3))
		require.NoError(t, s.Insert(ctx, []vectorstore.Record{
			record("0a1b2c3d-0000-4000-8000-000000000001", "one", 1, 0, 0),
		}))
		res, err := s.Search(ctx, []float64{0, 1, 0}, 10)
		require.NoError(t, err)
		assert.Len(t, res, 1)
	})

	t.Run("ties keep insertion order", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Init(ctx, 3))
		first := []vectorstore.Record{
			record("0a1b2c3d-0000-4000-8000-000000000001", "a", 0, 1, 0),
			record("0a1b2c3d-0000-4000-8000-000000000002", "b", 0, 1, 0),
		}
		require.NoError(t, s.Insert(ctx, first))
		require.NoError(t, s.Insert(ctx, []vectorstore.Record{
			record("0a1b2c3d-0000-4000-8000-000000000003", "c", 0, 2, 0),
		}))
		res, err := s.Search(ctx, []float64{0, 1, 0}, 3)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"0a1b2c3d-0000-4000-8000-000000000001",
			"0a1b2c3d-0000-4000-8000-000000000002",
			"0a1b2c3d-0000-4000-8000-000000000003",
		}, ids(res))
	})

	t.Run("repeated search is stable", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Init(ctx, 3))
		require.NoError(t, s.Insert(ctx, []vectorstore.Record{
			record("0a1b2c3d-0000-4000-8000-000000000001", "x", 1, 0, 0),
			record("0a1b2c3d-0000-4000-8000-000000000002", "y", 1, 1, 0),
			record("0a1b2c3d-0000-4000-8000-000000000003", "z", 0, 1, 1),
		}))
		first, err := s.Search(ctx, []float64{1, 0.5, 0}, 2)
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			again, err := s.Search(ctx, []float64{1, 0.5, 0}, 2)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("conflicting dimension", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Init(ctx, 3))
		require.NoError(t, s.Init(ctx, 3))
		assert.ErrorIs(t, s.Init(ctx, 4), domain.ErrDimensionMismatch)
	})

	t.Run("delete", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Init(ctx, 3))
		require.NoError(t, s.Insert(ctx, []vectorstore.Record{
			record("0a1b2c3d-0000-4000-8000-000000000001", "keep", 1, 0, 0),
			record("0a1b2c3d-0000-4000-8000-000000000002", "drop", 1, 0, 0),
		}))
		require.NoError(t, s.Delete(ctx, []string{"0a1b2c3d-0000-4000-8000-000000000002"}))
		res, err := s.Search(ctx, []float64{1, 0, 0}, 5)
		require.NoError(t, err)
		assert.Equal(t, []string{"0a1b2c3d-0000-4000-8000-000000000001"}, ids(res))
	})

	t.Run("clear forgets dimension", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Init(ctx, 3))
		require.NoError(t, s.Insert(ctx, []vectorstore.Record{
			record("0a1b2c3d-0000-4000-8000-000000000001", "x", 1, 0, 0),
		}))
		require.NoError(t, s.Clear(ctx))

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		dim, err := s.Dimension(ctx)
		require.NoError(t, err)
		assert.Zero(t, dim)
		require.NoError(t, s.Init(ctx, 5))
	})
}
