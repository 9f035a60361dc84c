// Package pipeline answers queries in two fixed stages: retrieve the nearest
// chunks from the index, then generate a response from them.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"ragpipe/internal/domain"
	"ragpipe/internal/logger"
)

// DefaultTopK is the number of chunks retrieved per query.
const DefaultTopK = 3

// summaryTopics is how many chunks contribute to the summary line.
const summaryTopics = 3

// Searcher finds the stored chunks nearest to a query vector.
type Searcher interface {
	Search(ctx context.Context, vector []float64, k int) ([]domain.SearchResult, error)
}

// Pipeline runs queries against an index. It holds no per-query state and
// may be used by concurrent queries.
type Pipeline struct {
	embedder domain.Embedder
	index    Searcher
	topK     int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTopK sets how many chunks are retrieved per query.
func WithTopK(k int) Option {
	return func(p *Pipeline) { p.topK = k }
}

// New builds a pipeline. The embedder must be the one the index was built with.
func New(embedder domain.Embedder, index Searcher, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{embedder: embedder, index: index, topK: DefaultTopK}
	for _, opt := range opts {
		opt(p)
	}
	if p.topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", domain.ErrInvalidConfig, p.topK)
	}
	return p, nil
}

// TopK returns the number of chunks retrieved per query.
func (p *Pipeline) TopK() int { return p.topK }

// Retrieve embeds the query and stores the nearest chunks in state.
func (p *Pipeline) Retrieve(ctx context.Context, state *QueryState) error {
	if state.Stage() != StageCreated {
		return fmt.Errorf("%w: retrieve needs a new query, got stage %s", domain.ErrStageOrder, state.Stage())
	}
	vec, err := p.embedder.Embed(ctx, state.Query())
	if err != nil {
		return fmt.Errorf("embedding query: %w", domain.Wrap(domain.ErrEmbeddingUnavailable, err))
	}
	results, err := p.index.Search(ctx, vec, p.topK)
	if err != nil {
		return fmt.Errorf("searching index: %w", domain.Wrap(domain.ErrIndexUnavailable, err))
	}
	logger.Debug("retrieved %d chunks for %q", len(results), state.Query())
	return state.SetContext(results)
}

// Generate composes the response from the retrieved context.
func (p *Pipeline) Generate(state *QueryState) error {
	if state.Stage() != StageRetrieved {
		return fmt.Errorf("%w: generate needs retrieved context, got stage %s", domain.ErrStageOrder, state.Stage())
	}
	return state.SetResponse(Compose(state.Query(), state.Context()))
}

// Execute runs both stages and returns the finished state.
func (p *Pipeline) Execute(ctx context.Context, query string) (*QueryState, error) {
	state := NewQueryState(query)
	if err := p.Retrieve(ctx, state); err != nil {
		return nil, err
	}
	if err := p.Generate(state); err != nil {
		return nil, err
	}
	return state, nil
}

// Run answers query and returns only the response text.
func (p *Pipeline) Run(ctx context.Context, query string) (string, error) {
	state, err := p.Execute(ctx, query)
	if err != nil {
		return "", err
	}
	return state.Response(), nil
}

// Compose formats the response for query from the retrieved results. The
// output depends only on its inputs.
func Compose(query string, results []domain.SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on the retrieved documents related to '%s':\n\n", query)

	for i, r := range results {
		source, ok := r.Chunk.Metadata.Lookup(domain.MetaSource)
		if !ok {
			source = "Unknown source"
		}
		page, ok := r.Chunk.Metadata.Lookup(domain.MetaPage)
		if !ok {
			page = "Unknown page"
		}
		fmt.Fprintf(&b, "--- Document %d (Source: %s, Page: %s) ---\n\n", i+1, source, page)
		b.WriteString(r.Chunk.Content)
		b.WriteString("\n\n")
	}

	b.WriteString("--- Summary ---\n\n")
	fmt.Fprintf(&b, "The documents above contain information related to '%s'. ", query)
	if len(results) > 0 {
		topics := make([]string, 0, summaryTopics)
		for _, r := range results[:min(summaryTopics, len(results))] {
			topics = append(topics, firstSegment(r.Chunk.Content))
		}
		fmt.Fprintf(&b, "They cover topics including %s. ", strings.Join(topics, ", "))
	}
	b.WriteString("For more specific information, please ask a more targeted question.")
	return b.String()
}

// firstSegment returns the text before the first period.
func firstSegment(content string) string {
	if i := strings.IndexByte(content, '.'); i >= 0 {
		return content[:i]
	}
	return content
}
