package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragpipe/internal/domain"
)

func TestNewEmbedder_RejectsBadDimension(t *testing.T) {
	_, err := NewEmbedder(0)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestEmbed_DeterministicAndNormalized(t *testing.T) {
	e, err := NewEmbedder(64)
	require.NoError(t, err)
	ctx := context.Background()

	v1, err := e.Embed(ctx, "Paris is the capital of France.")
	require.NoError(t, err)
	v2, err := e.Embed(ctx, "Paris is the capital of France.")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Len(t, v1, 64)

	norm := 0.0
	for _, v := range v1 {
		norm += v * v
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
}

func TestEmbed_OnlyStopwordsGivesZeroVector(t *testing.T) {
	e, err := NewEmbedder(16)
	require.NoError(t, err)

	v, err := e.Embed(context.Background(), "the and of")
	require.NoError(t, err)
	assert.Equal(t, make([]float64, 16), v)
}

func TestEmbedBatch_MatchesEmbed(t *testing.T) {
	e, err := NewEmbedder(DefaultDimension)
	require.NoError(t, err)
	ctx := context.Background()
	texts := []string{"The Louvre Museum in Paris", "", "The Eiffel Tower was completed in 1889"}

	batch, err := e.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, batch, len(texts))
	for i, text := range texts {
		single, err := e.Embed(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i])
	}
}

func TestEmbed_SharedTermsAreCloser(t *testing.T) {
	e, err := NewEmbedder(DefaultDimension)
	require.NoError(t, err)
	ctx := context.Background()

	q, _ := e.Embed(ctx, "What is the capital of France?")
	near, _ := e.Embed(ctx, "Paris is the capital of France.")
	far, _ := e.Embed(ctx, "The Louvre houses the Mona Lisa painting.")

	assert.Greater(t, dot(q, near), dot(q, far))
}

func TestEmbed_CancelledContext(t *testing.T) {
	e, err := NewEmbedder(8)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = e.Embed(ctx, "anything")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
