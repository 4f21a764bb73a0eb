// Package geometry converts points between the three coordinate spaces a page
// lives in: screen pixels (top-down, scroll dependent), canvas pixels relative
// to the rendered page, and document units (the page's own bottom-up space).
package geometry

import (
	"fmt"
	"math"

	pherrors "github.com/a3tai/pdf-placeholder/internal/errors"
)

// Point is a 2D coordinate in whichever space the caller is working in
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle anchored at its minimum corner
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RectFromPoints returns the rectangle spanned by two opposite corners
func RectFromPoints(a, b Point) Rect {
	minX, maxX := math.Min(a.X, b.X), math.Max(a.X, b.X)
	minY, maxY := math.Min(a.Y, b.Y), math.Max(a.Y, b.Y)
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// MaxX returns the right edge
func (r Rect) MaxX() float64 { return r.X + r.Width }

// MaxY returns the far vertical edge
func (r Rect) MaxY() float64 { return r.Y + r.Height }

// CenterY returns the vertical midpoint
func (r Rect) CenterY() float64 { return r.Y + r.Height/2 }

// ScreenToCanvas converts a viewport point into pixels relative to the
// rendered page surface whose top-left corner sits at origin.
func ScreenToCanvas(screen, origin, scroll Point) Point {
	return Point{
		X: screen.X - origin.X + scroll.X,
		Y: screen.Y - origin.Y + scroll.Y,
	}
}

// CanvasToDocument converts rendered pixels to document units and flips the
// vertical axis so that y grows upward from the bottom of the page.
func CanvasToDocument(canvas Point, displayScale, pageHeight float64) (Point, error) {
	if displayScale <= 0 || math.IsNaN(displayScale) || math.IsInf(displayScale, 0) {
		return Point{}, fmt.Errorf("invalid display scale %v", displayScale)
	}
	return Point{
		X: canvas.X / displayScale,
		Y: pageHeight - canvas.Y/displayScale,
	}, nil
}

// ScreenToDocument maps a pointer position to document space.
func ScreenToDocument(screen, pageOrigin, scroll Point, displayScale, pageHeight float64) (Point, error) {
	return CanvasToDocument(ScreenToCanvas(screen, pageOrigin, scroll), displayScale, pageHeight)
}

// DocumentToScreen is the inverse of ScreenToDocument, used to place overlays.
func DocumentToScreen(doc, pageOrigin, scroll Point, displayScale, pageHeight float64) (Point, error) {
	if displayScale <= 0 {
		return Point{}, fmt.Errorf("invalid display scale %v", displayScale)
	}
	return Point{
		X: doc.X*displayScale + pageOrigin.X - scroll.X,
		Y: (pageHeight-doc.Y)*displayScale + pageOrigin.Y - scroll.Y,
	}, nil
}

// Placement is the live position of one mounted page surface
type Placement struct {
	Origin       Point
	DisplayScale float64
	PageHeight   float64
}

// Layout reports where page surfaces currently are on screen.
// Implementations must answer from current geometry on every call.
type Layout interface {
	Locate(page int) (Placement, error)
}

// Transformer converts pointer positions for a given page using a Layout.
// It holds no geometry of its own.
type Transformer struct {
	layout Layout
}

// NewTransformer creates a transformer over layout
func NewTransformer(layout Layout) *Transformer {
	return &Transformer{layout: layout}
}

// ToDocument resolves the page's current placement and converts screen to document space
func (t *Transformer) ToDocument(page int, screen, scroll Point) (Point, error) {
	if t.layout == nil {
		return Point{}, pherrors.New(pherrors.ErrorTypeSurfaceNotMounted, "no layout attached").WithPage(page)
	}
	placement, err := t.layout.Locate(page)
	if err != nil {
		return Point{}, err
	}
	doc, err := ScreenToDocument(screen, placement.Origin, scroll, placement.DisplayScale, placement.PageHeight)
	if err != nil {
		return Point{}, pherrors.Wrap(pherrors.ErrorTypeSurfaceNotMounted, "surface geometry unusable", err).WithPage(page)
	}
	return doc, nil
}

// ToScreen converts a document point on page back into screen space
func (t *Transformer) ToScreen(page int, doc, scroll Point) (Point, error) {
	if t.layout == nil {
		return Point{}, pherrors.New(pherrors.ErrorTypeSurfaceNotMounted, "no layout attached").WithPage(page)
	}
	placement, err := t.layout.Locate(page)
	if err != nil {
		return Point{}, err
	}
	return DocumentToScreen(doc, placement.Origin, scroll, placement.DisplayScale, placement.PageHeight)
}
