// Package export hands filled documents back to the caller, either as a
// named file in the output directory or as a short-lived preview.
package export

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// FileHandle describes an exported document on disk
type FileHandle struct {
	Path string `json:"path"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// TransientURL points at a preview copy of a document. Release removes it.
type TransientURL struct {
	URL  string `json:"url"`
	Path string `json:"path"`

	once    sync.Once
	release func() error
	err     error
}

// Release deletes the preview file. Calling it more than once is harmless.
func (t *TransientURL) Release() error {
	t.once.Do(func() {
		if t.release != nil {
			t.err = t.release()
		}
	})
	return t.err
}

// Exporter writes documents into a sandboxed output directory
type Exporter struct {
	sandbox *Sandbox
	tempDir string
	log     logrus.FieldLogger
}

// Option configures an Exporter
type Option func(*Exporter)

// WithTempDir sets where previews are written. Defaults to os.TempDir().
func WithTempDir(dir string) Option {
	return func(e *Exporter) { e.tempDir = dir }
}

// WithLogger sets the logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Exporter) { e.log = log }
}

// NewExporter creates an exporter writing into outDir, creating it if needed
func NewExporter(outDir string, opts ...Option) (*Exporter, error) {
	sandbox, err := NewSandbox(outDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(sandbox.Root(), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	e := &Exporter{sandbox: sandbox, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// OutputDir returns the directory exports are written to
func (e *Exporter) OutputDir() string {
	return e.sandbox.Root()
}

// ExportAsFile writes data to filename inside the output directory. The
// name must be a bare file name; ".pdf" is appended when missing.
func (e *Exporter) ExportAsFile(data []byte, filename string) (*FileHandle, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("nothing to export")
	}
	name, err := cleanFilename(filename)
	if err != nil {
		return nil, err
	}
	path, err := e.sandbox.Resolve(name)
	if err != nil {
		return nil, err
	}

	// write next to the target and rename so readers never see a partial file
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create export file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to write export file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to write export file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to place export file: %w", err)
	}

	e.log.WithFields(logrus.Fields{"path": path, "size": len(data)}).Info("Exported document")
	return &FileHandle{Path: path, Name: name, Size: int64(len(data))}, nil
}

// CreatePreviewHandle writes data to a temporary file and returns a file://
// URL for it
func (e *Exporter) CreatePreviewHandle(data []byte) (*TransientURL, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("nothing to preview")
	}
	f, err := os.CreateTemp(e.tempDir, "pdf-placeholder-preview-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create preview file: %w", err)
	}
	path := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to write preview file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to write preview file: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	log := e.log
	return &TransientURL{
		URL:  u.String(),
		Path: abs,
		release: func() error {
			if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to remove preview: %w", err)
			}
			log.WithField("path", abs).Debug("Released preview")
			return nil
		},
	}, nil
}

func cleanFilename(filename string) (string, error) {
	name := strings.TrimSpace(strings.ReplaceAll(filename, "\x00", ""))
	if name == "" {
		return "", fmt.Errorf("filename cannot be empty")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("filename must not contain a path: %s", filename)
	}
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		name += ".pdf"
	}
	return name, nil
}
