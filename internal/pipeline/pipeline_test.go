package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragpipe/internal/domain"
	"ragpipe/internal/embedding/hashing"
	"ragpipe/internal/vectorstore"
	"ragpipe/internal/vectorstore/memory"
)

type fixedSearcher struct {
	results []domain.SearchResult
	err     error
	gotK    int
}

func (f *fixedSearcher) Search(_ context.Context, _ []float64, k int) ([]domain.SearchResult, error) {
	f.gotK = k
	if f.err != nil {
		return nil, f.err
	}
	return f.results[:min(k, len(f.results))], nil
}

// failingEmbedder returns err for every call, as a dead endpoint would.
type failingEmbedder struct{ err error }

func (f failingEmbedder) Name() string   { return "failing" }
func (f failingEmbedder) Dimension() int { return 4 }
func (f failingEmbedder) Embed(context.Context, string) ([]float64, error) {
	return nil, f.err
}
func (f failingEmbedder) EmbedBatch(context.Context, []string) ([][]float64, error) {
	return nil, f.err
}

func newEmbedder(t *testing.T) domain.Embedder {
	t.Helper()
	e, err := hashing.NewEmbedder(64)
	require.NoError(t, err)
	return e
}

func result(content string, meta domain.Metadata) domain.SearchResult {
	return domain.SearchResult{Chunk: domain.Chunk{Content: content, Metadata: meta}}
}

func TestComposeWithContext(t *testing.T) {
	got := Compose("what is go", []domain.SearchResult{
		result("Go is a language. It compiles fast.", domain.Metadata{domain.MetaSource: "go.pdf", domain.MetaPage: 0}),
		result("Goroutines are cheap", domain.Metadata{domain.MetaSource: "rt.txt"}),
	})
	want := "Based on the retrieved documents related to 'what is go':\n\n" +
		"--- Document 1 (Source: go.pdf, Page: 0) ---\n\n" +
		"Go is a language. It compiles fast.\n\n" +
		"--- Document 2 (Source: rt.txt, Page: Unknown page) ---\n\n" +
		"Goroutines are cheap\n\n" +
		"--- Summary ---\n\n" +
		"The documents above contain information related to 'what is go'. " +
		"They cover topics including Go is a language, Goroutines are cheap. " +
		"For more specific information, please ask a more targeted question."
	assert.Equal(t, want, got)
}

func TestComposeEmptyContext(t *testing.T) {
	got := Compose("anything", nil)
	want := "Based on the retrieved documents related to 'anything':\n\n" +
		"--- Summary ---\n\n" +
		"The documents above contain information related to 'anything'. " +
		"For more specific information, please ask a more targeted question."
	assert.Equal(t, want, got)
}

func TestComposeMissingMetadataAndTopicLimit(t *testing.T) {
	results := []domain.SearchResult{
		result("one. a", nil), result("two. b", nil), result("three. c", nil), result("four. d", nil),
	}
	got := Compose("q", results)
	assert.Contains(t, got, "--- Document 1 (Source: Unknown source, Page: Unknown page) ---")
	assert.Contains(t, got, "--- Document 4 (Source: Unknown source, Page: Unknown page) ---")
	assert.Contains(t, got, "They cover topics including one, two, three. ")
	assert.NotContains(t, got, "three, four")
}

func TestRunIsDeterministic(t *testing.T) {
	searcher := &fixedSearcher{results: []domain.SearchResult{
		result("Alpha chunk. More.", domain.Metadata{domain.MetaSource: "a"}),
	}}
	p, err := New(newEmbedder(t), searcher)
	require.NoError(t, err)

	first, err := p.Run(context.Background(), "alpha")
	require.NoError(t, err)
	second, err := p.Run(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, DefaultTopK, searcher.gotK)
}

func TestExecuteAdvancesStages(t *testing.T) {
	p, err := New(newEmbedder(t), &fixedSearcher{}, WithTopK(5))
	require.NoError(t, err)
	assert.Equal(t, 5, p.TopK())

	state, err := p.Execute(context.Background(), "empty index question")
	require.NoError(t, err)
	assert.Equal(t, StageGenerated, state.Stage())
	assert.Empty(t, state.Context())
	assert.Contains(t, state.Response(), "related to 'empty index question'")
	assert.NotContains(t, state.Response(), "They cover topics")
}

func TestStageOrderIsEnforced(t *testing.T) {
	p, err := New(newEmbedder(t), &fixedSearcher{})
	require.NoError(t, err)
	ctx := context.Background()

	state := NewQueryState("q")
	assert.ErrorIs(t, p.Generate(state), domain.ErrStageOrder)
	assert.Equal(t, StageCreated, state.Stage())

	require.NoError(t, p.Retrieve(ctx, state))
	assert.ErrorIs(t, p.Retrieve(ctx, state), domain.ErrStageOrder)
	require.NoError(t, p.Generate(state))
	assert.ErrorIs(t, p.Generate(state), domain.ErrStageOrder)
	assert.ErrorIs(t, state.SetContext(nil), domain.ErrStageOrder)
	assert.ErrorIs(t, state.SetResponse("again"), domain.ErrStageOrder)
}

func TestRetrieveErrorLeavesStateUntouched(t *testing.T) {
	p, err := New(newEmbedder(t), &fixedSearcher{err: domain.ErrIndexUnavailable})
	require.NoError(t, err)

	state := NewQueryState("q")
	err = p.Retrieve(context.Background(), state)
	assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
	assert.Equal(t, StageCreated, state.Stage())
	assert.Nil(t, state.Context())
}

func TestRetrieveEmbeddingFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p, err := New(newEmbedder(t), &fixedSearcher{})
	require.NoError(t, err)

	_, err = p.Run(ctx, "q")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRetrieveTagsUntypedEmbedderErrors(t *testing.T) {
	dialErr := errors.New("dial tcp 127.0.0.1:11434: connection refused")
	searcher := &fixedSearcher{}
	p, err := New(failingEmbedder{err: dialErr}, searcher)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), "anything")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.ErrorIs(t, err, dialErr)
	assert.Zero(t, searcher.gotK, "index must not be searched without a query vector")
}

func TestRetrieveKeepsExistingErrorKind(t *testing.T) {
	p, err := New(failingEmbedder{err: domain.ErrDimensionMismatch}, &fixedSearcher{})
	require.NoError(t, err)

	_, err = p.Run(context.Background(), "anything")
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.NotErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestRetrieveTagsUntypedSearchErrors(t *testing.T) {
	p, err := New(newEmbedder(t), &fixedSearcher{err: errors.New("disk I/O error")})
	require.NoError(t, err)

	_, err = p.Run(context.Background(), "anything")
	assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
}

func TestNewRejectsNonPositiveTopK(t *testing.T) {
	_, err := New(newEmbedder(t), &fixedSearcher{}, WithTopK(0))
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestStateContextIsCopied(t *testing.T) {
	state := NewQueryState("q")
	in := []domain.SearchResult{result("x", nil)}
	require.NoError(t, state.SetContext(in))
	in[0].Chunk.Content = "changed"
	assert.Equal(t, "x", state.Context()[0].Chunk.Content)
}

func TestRunAgainstIndex(t *testing.T) {
	ctx := context.Background()
	emb := newEmbedder(t)
	index := vectorstore.NewIndex(emb, memory.NewStorage())
	_, err := index.Add(ctx, []domain.Chunk{
		{Content: "Paris is the capital of France. It is on the Seine.", Metadata: domain.Metadata{domain.MetaSource: "geo.txt", domain.MetaPage: 3}},
		{Content: "Photosynthesis converts sunlight into chemical energy.", Metadata: domain.Metadata{domain.MetaSource: "bio.txt"}},
	})
	require.NoError(t, err)

	p, err := New(emb, index, WithTopK(1))
	require.NoError(t, err)
	state, err := p.Execute(ctx, "capital of France")
	require.NoError(t, err)
	require.Len(t, state.Context(), 1)
	assert.Contains(t, state.Response(), "--- Document 1 (Source: geo.txt, Page: 3) ---")
	assert.Contains(t, state.Response(), "They cover topics including Paris is the capital of France. ")
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "created", StageCreated.String())
	assert.Equal(t, "generated", StageGenerated.String())
	assert.Equal(t, "stage(9)", Stage(9).String())
}
