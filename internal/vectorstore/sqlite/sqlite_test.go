package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragpipe/internal/domain"
	"ragpipe/internal/vectorstore"
	"ragpipe/internal/vectorstore/vectorstoretest"
)

func TestStorageContract(t *testing.T) {
	vectorstoretest.Run(t, func(t *testing.T) vectorstore.Storage {
		s, err := Open(filepath.Join(t.TempDir(), "index.db"))
		require.NoError(t, err)
		return s
	})
}

func TestInMemoryDatabase(t *testing.T) {
	vectorstoretest.Run(t, func(t *testing.T) vectorstore.Storage {
		s, err := Open(":memory:")
		require.NoError(t, err)
		return s
	})
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "index.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Insert(ctx, []vectorstore.Record{{
		ID:     "a1",
		Chunk:  domain.Chunk{Content: "persisted", Metadata: domain.Metadata{domain.MetaSource: "doc.pdf", domain.MetaPage: 0}},
		Vector: []float64{0.6, 0.8},
	}}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	dim, err := s.Dimension(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, dim)
	res, err := s.Search(ctx, []float64{0.6, 0.8}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "a1", res[0].ID)
	assert.Equal(t, "persisted", res[0].Chunk.Content)
	assert.Equal(t, 0, res[0].Chunk.Metadata[domain.MetaPage])
	assert.InDelta(t, 1.0, res[0].Score, 1e-9)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestVectorEncoding(t *testing.T) {
	v := []float64{0, -1.5, 3.25e-7, 42}
	assert.Equal(t, v, decodeVector(encodeVector(v)))
}
