package geometry

import (
	"fmt"
	"sort"
	"sync"

	pherrors "github.com/a3tai/pdf-placeholder/internal/errors"
)

// PageSurface is an immutable description of one rendered page
type PageSurface struct {
	PageNumber   int     `json:"page_number"`
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	DisplayScale float64 `json:"display_scale"`
}

// mount is the on-screen position of a surface that is currently rendered
type mount struct {
	origin       Point
	displayScale float64
}

// LiveLayout tracks page surfaces and where each one is mounted right now.
// The rendering side updates it on scroll, zoom or resize.
type LiveLayout struct {
	mu       sync.RWMutex
	surfaces map[int]PageSurface
	mounts   map[int]mount
}

// NewLiveLayout creates a layout for the given surfaces. Nothing is mounted yet.
func NewLiveLayout(surfaces []PageSurface) *LiveLayout {
	l := &LiveLayout{
		surfaces: make(map[int]PageSurface, len(surfaces)),
		mounts:   make(map[int]mount),
	}
	for _, s := range surfaces {
		l.surfaces[s.PageNumber] = s
	}
	return l
}

// Mount records the current screen origin and scale of page.
// A non-positive scale keeps the surface's own display scale.
func (l *LiveLayout) Mount(page int, origin Point, displayScale float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	surface, ok := l.surfaces[page]
	if !ok {
		return fmt.Errorf("page %d does not exist", page)
	}
	if displayScale <= 0 {
		displayScale = surface.DisplayScale
	}
	if displayScale <= 0 {
		displayScale = 1
	}
	l.mounts[page] = mount{origin: origin, displayScale: displayScale}
	return nil
}

// Unmount forgets the on-screen position of page
func (l *LiveLayout) Unmount(page int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.mounts, page)
}

// Surface returns the static description of page
func (l *LiveLayout) Surface(page int) (PageSurface, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.surfaces[page]
	return s, ok
}

// Surfaces returns all surfaces ordered by page number
func (l *LiveLayout) Surfaces() []PageSurface {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]PageSurface, 0, len(l.surfaces))
	for _, s := range l.surfaces {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PageNumber < out[j].PageNumber })
	return out
}

// Locate implements Layout
func (l *LiveLayout) Locate(page int) (Placement, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	surface, ok := l.surfaces[page]
	if !ok {
		return Placement{}, pherrors.Newf(pherrors.ErrorTypeSurfaceNotMounted, "page %d has no surface", page).WithPage(page)
	}
	m, ok := l.mounts[page]
	if !ok {
		return Placement{}, pherrors.Newf(pherrors.ErrorTypeSurfaceNotMounted, "page %d is not rendered", page).WithPage(page)
	}
	return Placement{
		Origin:       m.origin,
		DisplayScale: m.displayScale,
		PageHeight:   surface.Height,
	}, nil
}
