package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the ingestion and query paths.
// Callers distinguish them with errors.Is to decide between retry and abort.
var (
	// ErrInvalidConfig indicates bad chunking or pipeline parameters. Not retryable.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrEmbeddingUnavailable indicates the embedding backend could not be reached
	// or failed to produce vectors.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrIndexUnavailable indicates the vector store could not be reached or failed.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrDimensionMismatch indicates a vector whose length differs from the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrStageOrder indicates a pipeline stage ran against a query state in the wrong state.
	ErrStageOrder = errors.New("pipeline stage out of order")

	// ErrUnsupportedInput indicates a loader input that no loader can handle.
	ErrUnsupportedInput = errors.New("unsupported input")
)

var kinds = []error{
	ErrInvalidConfig,
	ErrEmbeddingUnavailable,
	ErrIndexUnavailable,
	ErrDimensionMismatch,
	ErrStageOrder,
	ErrUnsupportedInput,
}

// Wrap tags err with kind unless it already carries one of the error kinds
// above. A nil err stays nil.
func Wrap(kind, err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", kind, err)
}
