package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ragpipe/internal/domain"
)

var textExtensions = map[string]bool{".txt": true, ".md": true, ".markdown": true}

// TextLoader reads plain text and markdown files. The input may be a glob
// pattern; files with other extensions among the matches are skipped.
type TextLoader struct{}

func (TextLoader) Load(ctx context.Context, input string) ([]domain.Document, error) {
	paths, err := expand(input)
	if err != nil {
		return nil, err
	}
	var docs []domain.Document
	for _, p := range paths {
		if !textExtensions[strings.ToLower(filepath.Ext(p))] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		docs = append(docs, domain.Document{
			Content:  string(data),
			Metadata: domain.Metadata{domain.MetaSource: p},
		})
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no text documents match %q", domain.ErrUnsupportedInput, input)
	}
	return docs, nil
}

// expand resolves a glob pattern to the matching paths. A pattern without
// matches is returned as is so that the open reports the real error.
func expand(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: bad pattern %q: %w", domain.ErrUnsupportedInput, pattern, err)
	}
	if matches == nil {
		matches = []string{pattern}
	}
	return matches, nil
}
