package chunker

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"ragpipe/internal/domain"
)

const (
	// DefaultChunkSize is the default maximum chunk length in characters.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the default number of characters shared by adjacent chunks.
	DefaultChunkOverlap = 200
)

// DefaultSeparators lists split points from coarsest to finest: paragraph,
// line, sentence, word and finally single characters.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// RecursiveChunker wraps the langchaingo recursive character splitter. It
// splits text on the coarsest separator present, merges the pieces greedily
// up to chunkSize runes and carries up to overlap runes of the previous chunk
// into the next one. Pieces that are still too large are split again with
// the finer separators. Separators stay in the text.
type RecursiveChunker struct {
	chunkSize  int
	overlap    int
	separators []string
	splitter   textsplitter.RecursiveCharacter
}

// Option configures a RecursiveChunker.
type Option func(*RecursiveChunker)

// WithSeparators replaces the separator priority list. Without a trailing ""
// entry, a piece containing none of the separators is kept whole even when
// it is longer than the chunk size.
func WithSeparators(separators ...string) Option {
	return func(c *RecursiveChunker) {
		if len(separators) > 0 {
			c.separators = append([]string(nil), separators...)
		}
	}
}

// Validate checks chunking parameters.
func Validate(chunkSize, chunkOverlap int) error {
	switch {
	case chunkSize <= 0:
		return fmt.Errorf("%w: chunk_size must be positive, got %d", domain.ErrInvalidConfig, chunkSize)
	case chunkOverlap < 0:
		return fmt.Errorf("%w: chunk_overlap must not be negative, got %d", domain.ErrInvalidConfig, chunkOverlap)
	case chunkOverlap >= chunkSize:
		return fmt.Errorf("%w: chunk_overlap (%d) must be smaller than chunk_size (%d)", domain.ErrInvalidConfig, chunkOverlap, chunkSize)
	}
	return nil
}

// NewRecursiveChunker creates a chunker after validating its parameters.
func NewRecursiveChunker(chunkSize, chunkOverlap int, opts ...Option) (*RecursiveChunker, error) {
	if err := Validate(chunkSize, chunkOverlap); err != nil {
		return nil, err
	}
	c := &RecursiveChunker{
		chunkSize:  chunkSize,
		overlap:    chunkOverlap,
		separators: DefaultSeparators,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.splitter = textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(c.chunkSize),
		textsplitter.WithChunkOverlap(c.overlap),
		textsplitter.WithSeparators(c.separators),
		textsplitter.WithKeepSeparator(true),
	)
	return c, nil
}

// Split chunks a single document with the default separators.
func Split(document domain.Document, chunkSize, chunkOverlap int) ([]domain.Chunk, error) {
	c, err := NewRecursiveChunker(chunkSize, chunkOverlap)
	if err != nil {
		return nil, err
	}
	return c.Chunk(document)
}

// Chunk splits the document content. Every chunk gets its own copy of the
// document metadata. An empty document yields no chunks.
func (c *RecursiveChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	texts, err := c.SplitText(document.Content)
	if err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, nil
	}
	chunks := make([]domain.Chunk, 0, len(texts))
	for _, text := range texts {
		chunks = append(chunks, domain.Chunk{
			Content:  text,
			Metadata: document.Metadata.Clone(),
		})
	}
	return chunks, nil
}

// SplitText returns the chunk texts for text in document order. Chunks are
// trimmed and blank ones dropped. A split on ". " leaves the period at the
// head of the next piece; it is removed there.
func (c *RecursiveChunker) SplitText(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	parts, err := c.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("splitting text: %w", err)
	}
	out := parts[:0]
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if strings.HasPrefix(t, ". ") {
			t = strings.TrimSpace(t[1:])
		}
		if t != "" {
			out = append(out, t)
		}
	}
	return out, nil
}
