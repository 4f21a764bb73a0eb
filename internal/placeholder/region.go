// Package placeholder holds the regions a user marked on a document and
// guarantees that no two of them share a position index.
package placeholder

import (
	"fmt"

	pherrors "github.com/a3tai/pdf-placeholder/internal/errors"
)

// LineHeightRatio is the assumed ratio between a text line's height and its font size
const LineHeightRatio = 1.2

// Default minimum region dimensions in document units
const (
	DefaultMinWidth  = 20.0
	DefaultMinHeight = 8.0
)

// Origin records how a region was created
type Origin string

const (
	OriginManual Origin = "manual"
	OriginAuto   Origin = "auto"
)

// Region is a rectangular, page-anchored area where replacement text is drawn.
// X is the left edge and Y the baseline reference, both in document space.
type Region struct {
	ID            string  `json:"id"`
	PositionIndex int     `json:"position_index"`
	Page          int     `json:"page"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
	FontSize      float64 `json:"font_size"`
	Origin        Origin  `json:"origin"`
	Token         string  `json:"token,omitempty"`
}

// CenterX returns the horizontal midpoint of the region
func (r Region) CenterX() float64 {
	return r.X + r.Width/2
}

// PlaceholderText returns the text the region covers in the source document
func (r Region) PlaceholderText() string {
	if r.Token != "" {
		return r.Token
	}
	return fmt.Sprintf("(%d)", r.PositionIndex)
}

// FontSizeForHeight derives the baseline font size of a region from its height
func FontSizeForHeight(height float64) float64 {
	return height / LineHeightRatio
}

// Thresholds are the minimum accepted region dimensions
type Thresholds struct {
	MinWidth  float64
	MinHeight float64
}

// DefaultThresholds returns the standard 20 x 8 unit minimum
func DefaultThresholds() Thresholds {
	return Thresholds{MinWidth: DefaultMinWidth, MinHeight: DefaultMinHeight}
}

// Check rejects dimensions below the thresholds. Width is checked first.
func (t Thresholds) Check(width, height float64) error {
	if width < t.MinWidth {
		return pherrors.New(pherrors.ErrorTypeRegionTooSmall, "selection too narrow").
			WithContext(fmt.Sprintf("width %.2f < %.2f", width, t.MinWidth))
	}
	if height < t.MinHeight {
		return pherrors.New(pherrors.ErrorTypeRegionTooSmall, "selection too short").
			WithContext(fmt.Sprintf("height %.2f < %.2f", height, t.MinHeight))
	}
	return nil
}

// validate checks everything about r except index uniqueness
func (r Region) validate(t Thresholds) error {
	if r.PositionIndex < 1 {
		return pherrors.Newf(pherrors.ErrorTypeInvalidIndex, "position index %d is not a positive integer", r.PositionIndex)
	}
	if r.Page < 1 {
		return fmt.Errorf("page %d is out of range", r.Page)
	}
	if !(r.Width > 0 && r.Height > 0) {
		return pherrors.New(pherrors.ErrorTypeRegionTooSmall, "region must have positive width and height")
	}
	return t.Check(r.Width, r.Height)
}
