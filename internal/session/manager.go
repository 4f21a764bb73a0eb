// Package session ties the editing components together per opened document.
// A Manager owns every open session; each session owns exactly one registry
// and one selector.
package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	pherrors "github.com/a3tai/pdf-placeholder/internal/errors"
	"github.com/a3tai/pdf-placeholder/internal/export"
	"github.com/a3tai/pdf-placeholder/internal/geometry"
	"github.com/a3tai/pdf-placeholder/internal/mutator"
	"github.com/a3tai/pdf-placeholder/internal/placeholder"
)

// DefaultMaxFileSize caps the documents Open accepts
const DefaultMaxFileSize int64 = 100 * 1024 * 1024

// Info is a summary of an open session
type Info struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Pages    int       `json:"pages"`
	Regions  int       `json:"regions"`
	OpenedAt time.Time `json:"opened_at"`
}

// Manager opens, tracks and closes sessions
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	sandbox     *export.Sandbox
	mutator     *mutator.Mutator
	maxFileSize int64
	thresholds  placeholder.Thresholds
	log         logrus.FieldLogger
	newID       func() string
}

// Option configures a Manager
type Option func(*Manager)

// WithMaxFileSize limits the size of documents Open reads
func WithMaxFileSize(n int64) Option {
	return func(m *Manager) { m.maxFileSize = n }
}

// WithThresholds sets the minimum region size for new sessions
func WithThresholds(t placeholder.Thresholds) Option {
	return func(m *Manager) { m.thresholds = t }
}

// WithLogger sets the logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(m *Manager) { m.log = l }
}

// NewManager creates a manager that opens documents from dir and fills
// them with mut
func NewManager(dir string, mut *mutator.Mutator, opts ...Option) (*Manager, error) {
	sandbox, err := export.NewSandbox(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid document directory: %w", err)
	}
	m := &Manager{
		sessions:    make(map[string]*Session),
		sandbox:     sandbox,
		mutator:     mut,
		maxFileSize: DefaultMaxFileSize,
		thresholds:  placeholder.DefaultThresholds(),
		log:         logrus.StandardLogger(),
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.mutator == nil {
		m.mutator = mutator.New(nil, mutator.WithLogger(m.log))
	}
	return m, nil
}

// Directory returns the directory documents are opened from
func (m *Manager) Directory() string {
	return m.sandbox.Root()
}

// Open reads the document at path, which may be relative to the document
// directory, and starts a session for it
func (m *Manager) Open(ctx context.Context, path string) (*Session, error) {
	resolved, err := m.sandbox.Resolve(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory: %s", path)
	}
	if info.Size() > m.maxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), m.maxFileSize)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return m.OpenBytes(filepath.Base(resolved), data)
}

// OpenBytes starts a session for an in-memory document
func (m *Manager) OpenBytes(name string, data []byte) (*Session, error) {
	if int64(len(data)) > m.maxFileSize {
		return nil, fmt.Errorf("document too large: %d bytes (max %d)", len(data), m.maxFileSize)
	}
	pages, err := mutator.Inspect(data)
	if err != nil {
		return nil, err
	}

	surfaces := make([]geometry.PageSurface, len(pages))
	origins := make(map[int]geometry.Point)
	for i, p := range pages {
		surfaces[i] = geometry.PageSurface{PageNumber: p.Page, Width: p.Width, Height: p.Height, DisplayScale: 1}
		if p.OriginX != 0 || p.OriginY != 0 {
			origins[p.Page] = geometry.Point{X: p.OriginX, Y: p.OriginY}
		}
	}

	id := m.newID()
	s := newSession(id, name, data, surfaces, origins, m.mutator, m.thresholds, m.log.WithField("session", id))

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	s.log.WithFields(logrus.Fields{"name": name, "pages": len(pages)}).Info("Session opened")
	return s, nil
}

// Get returns the session with id
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, pherrors.New(pherrors.ErrorTypeSessionNotFound, "no such session").WithContext(id)
	}
	return s, nil
}

// Close discards the session and every region in it
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return pherrors.New(pherrors.ErrorTypeSessionNotFound, "no such session").WithContext(id)
	}
	s.reset()
	s.log.Info("Session closed")
	return nil
}

// List summarises all open sessions, oldest first
func (m *Manager) List() []Info {
	m.mu.RLock()
	out := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Info())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].OpenedAt.Before(out[j].OpenedAt)
	})
	return out
}
