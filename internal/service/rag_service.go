package service

import (
	"context"
	"fmt"
	"strings"

	"ragpipe/internal/domain"
	"ragpipe/internal/logger"
	"ragpipe/internal/pipeline"
	"ragpipe/internal/vectorstore"
)

// IngestReport describes the outcome of an ingestion.
type IngestReport struct {
	Documents int
	Chunks    int
	IDs       []string
	// Summary is an extractive summary of the ingested text; empty when no
	// summarizer is configured.
	Summary string
}

// RAGService is the context object tying together chunking, indexing and
// answering. It replaces any process-wide state: callers build one and pass
// it around.
type RAGService struct {
	chunker             domain.Chunker
	index               *vectorstore.Index
	pipeline            *pipeline.Pipeline
	summarizer          domain.Summarizer
	summaryMaxSentences int
}

func NewRAGService(chunker domain.Chunker, index *vectorstore.Index, p *pipeline.Pipeline, summarizer domain.Summarizer, summaryMaxSentences int) *RAGService {
	return &RAGService{chunker: chunker, index: index, pipeline: p, summarizer: summarizer, summaryMaxSentences: summaryMaxSentences}
}

// Ingest chunks every document, then adds all chunks to the index. A
// chunking failure aborts before anything is indexed.
func (s *RAGService) Ingest(ctx context.Context, docs []domain.Document, opts ...vectorstore.AddOption) (IngestReport, error) {
	var (
		all    []domain.Chunk
		corpus strings.Builder
	)
	for i, d := range docs {
		chunks, err := s.chunker.Chunk(d)
		if err != nil {
			return IngestReport{}, fmt.Errorf("chunking document %d: %w", i, err)
		}
		all = append(all, chunks...)
		corpus.WriteString(d.Content)
		corpus.WriteString("\n")
	}
	logger.Debug("split %d documents into %d chunks", len(docs), len(all))

	ids, err := s.index.Add(ctx, all, opts...)
	if err != nil {
		return IngestReport{}, err
	}
	report := IngestReport{Documents: len(docs), Chunks: len(all), IDs: ids}

	if s.summarizer != nil && corpus.Len() > 0 {
		summary, err := s.summarizer.Summarize(corpus.String(), s.summaryMaxSentences)
		if err != nil {
			// the chunks are indexed already; a missing summary is not fatal
			logger.Warn("summarizing ingested documents: %v", err)
		}
		report.Summary = summary
	}
	logger.Info("indexed %d chunks from %d documents", report.Chunks, report.Documents)
	return report, nil
}

// Query answers text and returns the response.
func (s *RAGService) Query(ctx context.Context, text string) (string, error) {
	return s.pipeline.Run(ctx, text)
}

// Answer answers text and returns the finished query state.
func (s *RAGService) Answer(ctx context.Context, text string) (*pipeline.QueryState, error) {
	return s.pipeline.Execute(ctx, text)
}

// Count returns the number of indexed chunks.
func (s *RAGService) Count(ctx context.Context) (int, error) {
	return s.index.Len(ctx)
}

// Reset empties the index.
func (s *RAGService) Reset(ctx context.Context) error {
	return s.index.Reset(ctx)
}

func (s *RAGService) Close() error {
	return s.index.Close()
}
