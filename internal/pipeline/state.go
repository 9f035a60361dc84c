package pipeline

import (
	"fmt"

	"ragpipe/internal/domain"
)

// Stage is the position of a query in the retrieve→generate flow.
type Stage int

const (
	StageCreated Stage = iota
	StageRetrieved
	StageGenerated
)

func (s Stage) String() string {
	switch s {
	case StageCreated:
		return "created"
	case StageRetrieved:
		return "retrieved"
	case StageGenerated:
		return "generated"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// QueryState carries one query through the pipeline. Context and response
// are each set exactly once, in that order. A QueryState belongs to a
// single query and is not safe for concurrent mutation.
type QueryState struct {
	query    string
	context  []domain.SearchResult
	response string
	stage    Stage
}

// NewQueryState starts a query in StageCreated.
func NewQueryState(query string) *QueryState {
	return &QueryState{query: query}
}

func (s *QueryState) Query() string { return s.query }

func (s *QueryState) Stage() Stage { return s.stage }

// Context returns the retrieved results, nearest first. It is nil before
// retrieval.
func (s *QueryState) Context() []domain.SearchResult {
	if s.context == nil {
		return nil
	}
	out := make([]domain.SearchResult, len(s.context))
	copy(out, s.context)
	return out
}

// Response returns the generated answer, or "" before generation.
func (s *QueryState) Response() string { return s.response }

// SetContext records the retrieval result and advances to StageRetrieved.
func (s *QueryState) SetContext(results []domain.SearchResult) error {
	if s.stage != StageCreated {
		return fmt.Errorf("%w: context already set (stage %s)", domain.ErrStageOrder, s.stage)
	}
	s.context = make([]domain.SearchResult, len(results))
	copy(s.context, results)
	s.stage = StageRetrieved
	return nil
}

// SetResponse records the answer and advances to StageGenerated.
func (s *QueryState) SetResponse(response string) error {
	if s.stage != StageRetrieved {
		return fmt.Errorf("%w: cannot set response in stage %s", domain.ErrStageOrder, s.stage)
	}
	s.response = response
	s.stage = StageGenerated
	return nil
}
