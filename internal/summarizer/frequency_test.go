package summarizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeKeepsOriginalOrder(t *testing.T) {
	text := "Vector indexes store embeddings. The weather was pleasant. " +
		"Embeddings let vector indexes rank chunks. Lunch was late."
	got, err := NewFrequencySummarizer().Summarize(text, 2)
	require.NoError(t, err)
	assert.Equal(t, "Vector indexes store embeddings. Embeddings let vector indexes rank chunks.", got)
}

func TestSummarizeShortInput(t *testing.T) {
	s := NewFrequencySummarizer()

	got, err := s.Summarize("", 3)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.Summarize("  no terminal punctuation here  ", 3)
	require.NoError(t, err)
	assert.Equal(t, "no terminal punctuation here", got)
}

func TestSummarizeDefaultLength(t *testing.T) {
	text := strings.Repeat("Chunks are embedded. ", 8)
	got, err := NewFrequencySummarizer().Summarize(text, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxSentences, strings.Count(got, "."))
}
