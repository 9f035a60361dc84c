package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"paris", "is", "the", "capital", "of", "france"}, Tokens("Paris is the capital of France."))
	assert.Equal(t, []string{"eiffel", "tower", "1889"}, Tokens("Eiffel Tower, 1889"))
	assert.Empty(t, Tokens("  ...  "))
}

func TestContentTokens_DropsStopwords(t *testing.T) {
	assert.Equal(t, []string{"capital", "france"}, ContentTokens("What is the capital of France?"))
}

func TestSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "   ", nil},
		{"no punctuation", "just words here", []string{"just words here"}},
		{"two sentences", "One thing. Another thing!", []string{"One thing.", "Another thing!"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sentences(tt.in))
		})
	}
}

func TestOverlapScore(t *testing.T) {
	q := map[string]struct{}{"louvre": {}, "museum": {}, "paris": {}}
	assert.Equal(t, 2, OverlapScore(q, "The Louvre Museum is large. The museum is old."))
	assert.Equal(t, 0, OverlapScore(q, "Nothing relevant"))
}
