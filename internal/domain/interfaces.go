package domain

import "context"

// Document is a unit of loaded text, typically a whole text file or one PDF page.
type Document struct {
	Content  string
	Metadata Metadata
}

// Chunk is a bounded piece of a document used as the unit of retrieval.
// It carries a copy of the parent document's metadata.
type Chunk struct {
	Content  string
	Metadata Metadata
}

// SearchResult represents a matching chunk with its similarity to the query.
type SearchResult struct {
	ID    string
	Chunk Chunk
	Score float64
}

// Embedder converts free text into a fixed-length numeric vector.
// EmbedBatch must return the same vector per item as Embed would.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}

// Loader produces documents from an external input such as a path or URL.
type Loader interface {
	Load(ctx context.Context, input string) ([]Document, error)
}
