package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragpipe/internal/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTextLoaderGlob(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "alpha")
	writeFile(t, dir, "b.md", "# beta")
	writeFile(t, dir, "c.csv", "x,y")

	docs, err := TextLoader{}.Load(context.Background(), filepath.Join(dir, "*"))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "alpha", docs[0].Content)
	assert.Equal(t, filepath.Join(dir, "a.txt"), docs[0].Metadata[domain.MetaSource])
	assert.Equal(t, "# beta", docs[1].Content)
	_, hasPage := docs[0].Metadata[domain.MetaPage]
	assert.False(t, hasPage)
}

func TestTextLoaderMissingFile(t *testing.T) {
	_, err := TextLoader{}.Load(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPDFLoaderOneDocumentPerPage(t *testing.T) {
	dir := t.TempDir()
	path := writePDF(t, dir, "two.pdf", "Hello page one.", "Second page text.")

	docs, err := PDFLoader{}.Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Contains(t, docs[0].Content, "Hello page one.")
	assert.Contains(t, docs[1].Content, "Second page text.")
	assert.Equal(t, path, docs[0].Metadata[domain.MetaSource])
	assert.Equal(t, 0, docs[0].Metadata[domain.MetaPage])
	assert.Equal(t, 1, docs[1].Metadata[domain.MetaPage])
}

func TestPDFLoaderRejectsNonPDF(t *testing.T) {
	path := writeFile(t, t.TempDir(), "fake.pdf", strings.Repeat("not a pdf at all ", 20))
	_, err := PDFLoader{}.Load(context.Background(), path)
	assert.ErrorIs(t, err, domain.ErrUnsupportedInput)
}

func TestURLLoaderDownloadsAndCleansUp(t *testing.T) {
	body := buildPDF("Remote page content.")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	tmp := t.TempDir()
	l := &URLLoader{Client: srv.Client(), TempDir: tmp}
	docs, err := l.Load(context.Background(), srv.URL+"/paper")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Content, "Remote page content.")
	assert.Equal(t, srv.URL+"/paper", docs[0].Metadata[domain.MetaSource])
	assert.Equal(t, 0, docs[0].Metadata[domain.MetaPage])

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestURLLoaderCleansUpOnParseFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(strings.Repeat("<p>html page</p>", 20)))
	}))
	defer srv.Close()

	tmp := t.TempDir()
	l := &URLLoader{Client: srv.Client(), TempDir: tmp}
	_, err := l.Load(context.Background(), srv.URL)
	assert.ErrorIs(t, err, domain.ErrUnsupportedInput)

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestURLLoaderHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := (&URLLoader{Client: srv.Client(), TempDir: t.TempDir()}).Load(context.Background(), srv.URL+"/missing.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestForDispatch(t *testing.T) {
	l := New(time.Second)
	tests := []struct {
		input string
		want  domain.Loader
	}{
		{"https://example.com/paper.pdf", l.url},
		{"HTTP://example.com/x", l.url},
		{"docs/report.PDF", l.pdf},
		{"notes/*.txt", l.text},
		{"README.md", l.text},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := l.For(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := l.For("image.png")
	assert.ErrorIs(t, err, domain.ErrUnsupportedInput)
}

func TestLoadKeepsInputOrder(t *testing.T) {
	dir := t.TempDir()
	pdfPath := writePDF(t, dir, "doc.pdf", "Page zero.")
	txt := writeFile(t, dir, "notes.txt", "plain notes")

	docs, err := New(time.Second).Load(context.Background(), []string{txt, pdfPath, txt})
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, txt, docs[0].Metadata[domain.MetaSource])
	assert.Equal(t, pdfPath, docs[1].Metadata[domain.MetaSource])
	assert.Equal(t, txt, docs[2].Metadata[domain.MetaSource])
}

func TestLoadFailsOnUnsupportedInput(t *testing.T) {
	_, err := New(time.Second).Load(context.Background(), []string{"a.txt", "b.docx"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedInput)
}
