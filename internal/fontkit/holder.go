// Package fontkit loads the font used for replacement text and installs it
// into documents, negotiating between composite, simple and builtin fonts.
package fontkit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/image/font/gofont/goregular"
)

// MaxFontSize caps font downloads and files
const MaxFontSize = 32 << 20

// Loader fetches font bytes
type Loader interface {
	Load(ctx context.Context) ([]byte, error)
}

// LoaderFunc adapts a function to Loader
type LoaderFunc func(ctx context.Context) ([]byte, error)

func (f LoaderFunc) Load(ctx context.Context) ([]byte, error) { return f(ctx) }

// BundledLoader returns the Go Regular font shipped with the binary
type BundledLoader struct{}

func (BundledLoader) Load(context.Context) ([]byte, error) {
	return goregular.TTF, nil
}

// FileLoader reads a TrueType file from disk
type FileLoader struct {
	Path string
}

func (l FileLoader) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(l.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat font file: %w", err)
	}
	if info.Size() > MaxFontSize {
		return nil, fmt.Errorf("font file too large: %d bytes", info.Size())
	}
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	return data, nil
}

// URLLoader downloads a TrueType file
type URLLoader struct {
	URL    string
	Client *http.Client
}

func (l URLLoader) Load(ctx context.Context) ([]byte, error) {
	client := l.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid font URL: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch font: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch font: %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxFontSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read font response: %w", err)
	}
	if len(data) > MaxFontSize {
		return nil, fmt.Errorf("font download exceeds %d bytes", MaxFontSize)
	}
	return data, nil
}

// NewLoader picks a loader: a file path wins over a URL, and with neither the
// bundled font is used.
func NewLoader(path, url string) Loader {
	switch {
	case path != "":
		return FileLoader{Path: path}
	case url != "":
		return URLLoader{URL: url}
	default:
		return BundledLoader{}
	}
}

// Holder caches font bytes for the life of the process. After the first
// successful load the bytes are never refetched; a failed load is retried on
// the next call.
type Holder struct {
	mu     sync.Mutex
	loader Loader
	data   []byte
}

// NewHolder creates a Holder around loader
func NewHolder(loader Loader) *Holder {
	if loader == nil {
		loader = BundledLoader{}
	}
	return &Holder{loader: loader}
}

// GetEmbeddedFont returns the cached font bytes, loading them on first use.
// The returned slice must not be modified.
func (h *Holder) GetEmbeddedFont(ctx context.Context) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.data != nil {
		return h.data, nil
	}
	data, err := h.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("font loader returned no data")
	}
	h.data = data
	return h.data, nil
}

// Loaded reports whether font bytes are cached
func (h *Holder) Loaded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.data != nil
}
