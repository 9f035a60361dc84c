// Package loader turns CLI inputs (file paths, globs and URLs) into documents.
package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"ragpipe/internal/domain"
)

// DefaultConcurrency bounds how many inputs are loaded at once.
const DefaultConcurrency = 4

// Loader dispatches each input to the text, PDF or URL loader.
type Loader struct {
	text        domain.Loader
	pdf         domain.Loader
	url         domain.Loader
	concurrency int
}

// New returns a Loader whose downloads time out after downloadTimeout.
func New(downloadTimeout time.Duration) *Loader {
	return &Loader{
		text:        TextLoader{},
		pdf:         PDFLoader{},
		url:         NewURLLoader(downloadTimeout),
		concurrency: DefaultConcurrency,
	}
}

// For selects the loader for input by URL scheme or file extension.
func (l *Loader) For(input string) (domain.Loader, error) {
	lower := strings.ToLower(input)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return l.url, nil
	case strings.HasSuffix(lower, ".pdf"):
		return l.pdf, nil
	case textExtensions[filepath.Ext(lower)]:
		return l.text, nil
	default:
		return nil, fmt.Errorf("%w: %q is not a .txt, .md or .pdf file or an http(s) URL", domain.ErrUnsupportedInput, input)
	}
}

// Load loads all inputs concurrently and returns their documents in input
// order. The first failure cancels the rest.
func (l *Loader) Load(ctx context.Context, inputs []string) ([]domain.Document, error) {
	loaders := make([]domain.Loader, len(inputs))
	for i, in := range inputs {
		ld, err := l.For(in)
		if err != nil {
			return nil, err
		}
		loaders[i] = ld
	}

	results := make([][]domain.Document, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, in := range inputs {
		g.Go(func() error {
			docs, err := loaders[i].Load(ctx, in)
			if err != nil {
				return err
			}
			results[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []domain.Document
	for _, docs := range results {
		out = append(out, docs...)
	}
	return out, nil
}
