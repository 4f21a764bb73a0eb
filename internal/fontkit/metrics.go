package fontkit

import (
	"fmt"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// ttfMetrics holds the font-wide values a FontDescriptor needs plus per-rune
// advances, all scaled to 1000 units per em.
type ttfMetrics struct {
	font       *sfnt.Font
	unitsPerEm float64
	name       string
	bbox       [4]float64
	ascent     float64
	descent    float64
	capHeight  float64
}

func parseTTF(data []byte) (*ttfMetrics, error) {
	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TrueType data: %w", err)
	}

	var buf sfnt.Buffer
	upem := f.UnitsPerEm()
	if upem == 0 {
		return nil, fmt.Errorf("font reports zero units per em")
	}
	// ppem equal to unitsPerEm keeps every value in font units
	ppem := fixed.Int26_6(upem) << 6
	scale := 1000.0 / float64(upem)

	m := &ttfMetrics{font: f, unitsPerEm: float64(upem)}

	name, err := f.Name(&buf, sfnt.NameIDPostScript)
	if err != nil || name == "" {
		name = "EmbeddedFont"
	}
	m.name = sanitizeName(name)

	if fm, err := f.Metrics(&buf, ppem, font.HintingNone); err == nil {
		m.ascent = float64(fm.Ascent>>6) * scale
		m.descent = -float64(fm.Descent>>6) * scale
		m.capHeight = float64(fm.CapHeight>>6) * scale
	}
	if m.capHeight == 0 {
		m.capHeight = m.ascent
	}

	if b, err := f.Bounds(&buf, ppem, font.HintingNone); err == nil {
		// sfnt bounds grow downwards on the Y axis
		m.bbox = [4]float64{
			float64(b.Min.X>>6) * scale,
			-float64(b.Max.Y>>6) * scale,
			float64(b.Max.X>>6) * scale,
			-float64(b.Min.Y>>6) * scale,
		}
	}
	return m, nil
}

// advance returns the width of r in 1000 units per em and whether the font
// has a glyph for it
func (m *ttfMetrics) advance(r rune) (float64, bool) {
	var buf sfnt.Buffer
	idx, err := m.font.GlyphIndex(&buf, r)
	if err != nil || idx == 0 {
		return 0, false
	}
	ppem := fixed.Int26_6(m.unitsPerEm) << 6
	adv, err := m.font.GlyphAdvance(&buf, idx, ppem, font.HintingNone)
	if err != nil {
		return 0, false
	}
	return float64(adv>>6) * 1000 / m.unitsPerEm, true
}

func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		if r <= ' ' || r > '~' || strings.ContainsRune("()<>[]{}/%#", r) {
			return -1
		}
		return r
	}, name)
}
