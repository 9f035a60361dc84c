package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"ragpipe/internal/domain"
	"ragpipe/internal/logger"
)

// URLLoader downloads a PDF over HTTP(S) into a temporary file and loads its
// pages. The temporary file is always removed.
type URLLoader struct {
	Client  *http.Client
	TempDir string
}

// NewURLLoader returns a loader whose downloads time out after timeout.
func NewURLLoader(timeout time.Duration) *URLLoader {
	return &URLLoader{Client: &http.Client{Timeout: timeout}}
}

func (l *URLLoader) Load(ctx context.Context, url string) ([]domain.Document, error) {
	path, err := l.download(ctx, url)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warn("removing %s: %v", path, err)
		}
	}()
	return PDFLoader{}.loadFile(ctx, path, url)
}

func (l *URLLoader) download(ctx context.Context, url string) (string, error) {
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrUnsupportedInput, err)
	}
	logger.Info("downloading PDF from %s", url)
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("downloading %s: %s", url, resp.Status)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.Contains(ct, "application/pdf") && !strings.HasSuffix(strings.ToLower(url), ".pdf") {
		logger.Warn("URL might not be a PDF. Content-Type: %s", ct)
	}

	tmp, err := os.CreateTemp(l.TempDir, "rag-*.pdf")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("downloading %s: %w", url, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	logger.Debug("saved %s to %s", url, tmp.Name())
	return tmp.Name(), nil
}
