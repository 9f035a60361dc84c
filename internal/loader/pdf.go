package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"ragpipe/internal/domain"
	"ragpipe/internal/logger"
)

// PDFLoader extracts the plain text of PDF files, one Document per page.
// Page metadata is 0-based.
type PDFLoader struct{}

func (l PDFLoader) Load(ctx context.Context, input string) ([]domain.Document, error) {
	paths, err := expand(input)
	if err != nil {
		return nil, err
	}
	var docs []domain.Document
	for _, p := range paths {
		if !strings.EqualFold(filepath.Ext(p), ".pdf") {
			continue
		}
		pages, err := l.loadFile(ctx, p, p)
		if err != nil {
			return nil, err
		}
		docs = append(docs, pages...)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no PDF pages found for %q", domain.ErrUnsupportedInput, input)
	}
	return docs, nil
}

// loadFile reads path and records source as the origin of every page.
func (PDFLoader) loadFile(ctx context.Context, path, source string) (docs []domain.Document, err error) {
	// the parser panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			docs, err = nil, fmt.Errorf("%w: parsing %s: %v", domain.ErrUnsupportedInput, path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", domain.ErrUnsupportedInput, path, err)
	}
	defer f.Close()

	n := r.NumPage()
	docs = make([]domain.Document, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extracting page %d of %s: %w", i, path, err)
		}
		docs = append(docs, domain.Document{
			Content:  text,
			Metadata: domain.Metadata{domain.MetaSource: source, domain.MetaPage: i - 1},
		})
	}
	logger.Info("loaded %d pages from %s", len(docs), source)
	return docs, nil
}
