package fontkit

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/go-text/typesetting/di"
	gofont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/image/math/fixed"

	pherrors "github.com/a3tai/pdf-placeholder/internal/errors"
)

// AdvancedEmbed installs a TrueType font as a Type0 composite font with
// Identity-H encoding. Text is shaped with HarfBuzz, so any character the font
// covers can be drawn, and a ToUnicode map keeps the result searchable.
type AdvancedEmbed struct{}

func (AdvancedEmbed) Kind() Kind { return KindAdvanced }

func (AdvancedEmbed) Embed(ctx *model.Context, data []byte) (Handle, error) {
	face, err := gofont.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to load font face: %w", err)
	}
	m, err := parseTTF(data)
	if err != nil {
		return nil, err
	}

	fontFile, err := newFontFile2(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("failed to write font file: %w", err)
	}
	descriptor, err := newFontDescriptor(ctx, m, fontFile)
	if err != nil {
		return nil, fmt.Errorf("failed to write font descriptor: %w", err)
	}

	cidFont := types.Dict{
		"Type":     types.Name("Font"),
		"Subtype":  types.Name("CIDFontType2"),
		"BaseFont": types.Name(m.name),
		"CIDSystemInfo": types.Dict{
			"Registry":   types.StringLiteral("Adobe"),
			"Ordering":   types.StringLiteral("Identity"),
			"Supplement": types.Integer(0),
		},
		"FontDescriptor": *descriptor,
		"CIDToGIDMap":    types.Name("Identity"),
		"DW":             types.Integer(1000),
	}
	cidRef, err := ctx.IndRefForNewObject(cidFont)
	if err != nil {
		return nil, err
	}

	top := types.Dict{
		"Type":            types.Name("Font"),
		"Subtype":         types.Name("Type0"),
		"BaseFont":        types.Name(m.name),
		"Encoding":        types.Name("Identity-H"),
		"DescendantFonts": types.Array{*cidRef},
	}
	ref, err := ctx.IndRefForNewObject(top)
	if err != nil {
		return nil, err
	}

	return &advancedHandle{
		ctx:     ctx,
		face:    face,
		ref:     *ref,
		name:    resourceName(ref),
		font:    top,
		cidFont: cidFont,
		used:    make(map[uint16]usedGlyph),
	}, nil
}

type usedGlyph struct {
	width float64
	text  string
}

type advancedHandle struct {
	ctx     *model.Context
	face    *gofont.Face
	ref     types.IndirectRef
	name    string
	font    types.Dict
	cidFont types.Dict
	used    map[uint16]usedGlyph
}

type shapedGlyph struct {
	gid     uint16
	advance float64 // unkerned, 1000 units per em
	text    string
}

func (h *advancedHandle) Kind() Kind             { return KindAdvanced }
func (h *advancedHandle) Ref() types.IndirectRef { return h.ref }
func (h *advancedHandle) ResourceName() string   { return h.name }

func (h *advancedHandle) shape(text string) ([]shapedGlyph, error) {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}
	out := (&shaping.HarfbuzzShaper{}).Shape(shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: di.DirectionLTR,
		Face:      h.face,
		Size:      fixed.Int26_6(1000 * 64),
		Script:    language.Latin,
		Language:  language.DefaultLanguage(),
	})

	glyphs := make([]shapedGlyph, 0, len(out.Glyphs))
	for i, g := range out.Glyphs {
		start := g.ClusterIndex
		end := len(runes)
		for j := i + 1; j < len(out.Glyphs); j++ {
			if out.Glyphs[j].ClusterIndex != start {
				end = out.Glyphs[j].ClusterIndex
				break
			}
		}
		if end < start {
			end = start
		}
		cluster := string(runes[start:end])
		if g.GlyphID == 0 && strings.TrimFunc(cluster, unicode.IsSpace) != "" {
			return nil, pherrors.Newf(pherrors.ErrorTypeGlyphRenderFailure, "font has no glyph for %q", cluster)
		}
		if int(g.GlyphID) > 0xFFFF {
			return nil, pherrors.Newf(pherrors.ErrorTypeGlyphRenderFailure, "glyph id %d out of range", g.GlyphID)
		}
		glyphs = append(glyphs, shapedGlyph{
			gid:     uint16(g.GlyphID),
			advance: h.nominalAdvance(g.GlyphID),
			text:    cluster,
		})
	}
	return glyphs, nil
}

// nominalAdvance is the unkerned advance of gid. Tj draws with the W array,
// which cannot carry the pair adjustments the shaper applies.
func (h *advancedHandle) nominalAdvance(gid gofont.GID) float64 {
	upem := h.face.Upem()
	if upem == 0 {
		return 0
	}
	return float64(h.face.HorizontalAdvance(gid)) * 1000 / float64(upem)
}

func (h *advancedHandle) Width(text string, size float64) (float64, error) {
	glyphs, err := h.shape(text)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, g := range glyphs {
		total += g.advance
	}
	return total * size / 1000, nil
}

func (h *advancedHandle) Encode(text string) (string, error) {
	glyphs, err := h.shape(text)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteByte('<')
	for _, g := range glyphs {
		fmt.Fprintf(&b, "%04X", g.gid)
		if _, seen := h.used[g.gid]; !seen {
			h.used[g.gid] = usedGlyph{width: g.advance, text: g.text}
		}
	}
	b.WriteByte('>')
	return b.String(), nil
}

// Finish writes the W array and ToUnicode map for the glyphs drawn so far
func (h *advancedHandle) Finish() error {
	if len(h.used) == 0 {
		return nil
	}
	gids := make([]int, 0, len(h.used))
	for gid := range h.used {
		gids = append(gids, int(gid))
	}
	sort.Ints(gids)

	w := types.Array{}
	for _, gid := range gids {
		w = append(w, types.Integer(gid), types.Array{types.Integer(int(h.used[uint16(gid)].width + 0.5))})
	}
	h.cidFont["W"] = w

	mappings := make([]cmapEntry, 0, len(gids))
	for _, gid := range gids {
		if text := h.used[uint16(gid)].text; text != "" {
			mappings = append(mappings, cmapEntry{gid: uint16(gid), text: text})
		}
	}
	cmap, err := toUnicodeCMap(mappings)
	if err != nil {
		return err
	}
	sd, err := h.ctx.NewStreamDictForBuf(cmap)
	if err != nil {
		return err
	}
	if err := sd.Encode(); err != nil {
		return err
	}
	ref, err := h.ctx.IndRefForNewObject(*sd)
	if err != nil {
		return err
	}
	h.font["ToUnicode"] = *ref
	return nil
}
