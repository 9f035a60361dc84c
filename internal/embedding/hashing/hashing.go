package hashing

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sort"

	"ragpipe/internal/domain"
	"ragpipe/internal/textutil"
)

// DefaultDimension matches the width of common small sentence-embedding models.
const DefaultDimension = 384

// Embedder is an offline embedder using the signed hashing trick over
// stopword-filtered tokens with sublinear term frequency. It needs no corpus
// preparation, so vectors stay stable while documents are added incrementally.
type Embedder struct {
	dimension int
}

// NewEmbedder creates a hashing embedder producing vectors of the given size.
func NewEmbedder(dimension int) (*Embedder, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: embedding dimension must be positive, got %d", domain.ErrInvalidConfig, dimension)
	}
	return &Embedder{dimension: dimension}, nil
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "hashing" }

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed computes the L2-normalized hashed term vector of text. Text without
// content tokens yields the zero vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	vec := make([]float64, e.dimension)
	tf := make(map[string]int)
	for _, tok := range textutil.ContentTokens(text) {
		tf[tok]++
	}
	if len(tf) == 0 {
		return vec, nil
	}
	// fixed order keeps bucket sums bit-identical between calls
	terms := make([]string, 0, len(tf))
	for tok := range tf {
		terms = append(terms, tok)
	}
	sort.Strings(terms)
	for _, tok := range terms {
		idx, sign := e.bucket(tok)
		vec[idx] += sign * (1 + math.Log(float64(tf[tok])))
	}
	// L2 normalize
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

// EmbedBatch embeds each text independently.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (e *Embedder) bucket(token string) (int, float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(token))
	sum := h.Sum64()
	sign := 1.0
	if sum>>63 == 1 {
		sign = -1.0
	}
	return int(sum % uint64(e.dimension)), sign
}
