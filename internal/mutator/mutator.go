// Package mutator applies replacement instructions to a PDF: every region is
// covered with an opaque box and the planned text is drawn centred on it.
package mutator

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/sirupsen/logrus"

	pherrors "github.com/a3tai/pdf-placeholder/internal/errors"
	"github.com/a3tai/pdf-placeholder/internal/fontkit"
	"github.com/a3tai/pdf-placeholder/internal/textfit"
)

// Cover box geometry relative to the effective font size
const (
	coverDescent = 0.2
	coverHeight  = 1.3
)

// FontSource provides the bytes of the font to embed
type FontSource interface {
	GetEmbeddedFont(ctx context.Context) ([]byte, error)
}

// Applied records one instruction that was drawn
type Applied struct {
	Page          int          `json:"page"`
	PositionIndex int          `json:"position_index"`
	TextX         float64      `json:"text_x"`
	Plan          textfit.Plan `json:"plan"`
}

// Result is the outcome of a mutation
type Result struct {
	Bytes    []byte            `json:"-"`
	FontKind fontkit.Kind      `json:"font_kind"`
	Applied  []Applied         `json:"applied"`
	Warnings []*pherrors.Error `json:"warnings"`
}

// Mutator rewrites documents. It holds no per-document state and may be
// shared.
type Mutator struct {
	fonts     FontSource
	embedders []fontkit.Embedder
	log       logrus.FieldLogger
}

// Option configures a Mutator
type Option func(*Mutator)

// WithEmbedders replaces the font capabilities tried before the builtin font
func WithEmbedders(embedders ...fontkit.Embedder) Option {
	return func(m *Mutator) { m.embedders = embedders }
}

// WithLogger sets the logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(m *Mutator) {
		if l != nil {
			m.log = l
		}
	}
}

// New creates a Mutator drawing with the font from fonts. A nil source uses
// the bundled font.
func New(fonts FontSource, opts ...Option) *Mutator {
	if fonts == nil {
		fonts = fontkit.NewHolder(fontkit.BundledLoader{})
	}
	m := &Mutator{
		fonts:     fonts,
		embedders: fontkit.DefaultEmbedders(),
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Mutate applies instructions to source. Only an unreadable source or a
// failure to write the result is returned as an error; problems with single
// instructions are reported in Result.Warnings and the instruction is skipped.
func (m *Mutator) Mutate(ctx context.Context, source []byte, instructions []textfit.Instruction) (*Result, error) {
	return m.run(ctx, source, instructions, true)
}

// Plan computes the plans Mutate would use without producing a document
func (m *Mutator) Plan(ctx context.Context, source []byte, instructions []textfit.Instruction) (*Result, error) {
	return m.run(ctx, source, instructions, false)
}

func (m *Mutator) run(ctx context.Context, source []byte, instructions []textfit.Instruction, write bool) (*Result, error) {
	pdfctx, err := openContext(bytes.NewReader(source), newConfiguration())
	if err != nil {
		return nil, err
	}

	warnings := pherrors.NewCollection()
	data, err := m.fonts.GetEmbeddedFont(ctx)
	if err != nil {
		m.log.WithError(err).Warn("Embedded font unavailable")
		warnings.Add(pherrors.Wrap(pherrors.ErrorTypeFontEmbedFailure, "failed to load embedded font", err))
	}

	handle, fontWarnings := fontkit.Negotiate(pdfctx, data, m.log, m.embedders...)
	for _, w := range fontWarnings {
		warnings.Add(w)
	}
	if handle == nil {
		return nil, pherrors.New(pherrors.ErrorTypeDocumentUnreadable, "document does not accept a font")
	}

	result := &Result{FontKind: handle.Kind()}
	planner := textfit.NewPlanner(handle.Width, m.log)

	byPage := make(map[int][]textfit.Instruction)
	for _, in := range instructions {
		byPage[in.Page] = append(byPage[in.Page], in)
	}
	pages := make([]int, 0, len(byPage))
	for p := range byPage {
		pages = append(pages, p)
	}
	sort.Ints(pages)

	for _, page := range pages {
		applied := m.applyPage(pdfctx, handle, planner, page, byPage[page], warnings, write)
		result.Applied = append(result.Applied, applied...)
	}

	if write {
		if err := handle.Finish(); err != nil {
			m.log.WithError(err).Warn("Failed to finalise font")
			warnings.Add(pherrors.Wrap(pherrors.ErrorTypeFontEmbedFailure, "failed to finalise embedded font", err))
		}
		var buf bytes.Buffer
		if err := api.WriteContext(pdfctx, &buf); err != nil {
			return nil, fmt.Errorf("failed to write document: %w", err)
		}
		result.Bytes = buf.Bytes()
	}

	result.Warnings = warnings.All()
	return result, nil
}

func (m *Mutator) applyPage(
	pdfctx *model.Context,
	handle fontkit.Handle,
	planner *textfit.Planner,
	page int,
	instructions []textfit.Instruction,
	warnings *pherrors.Collection,
	write bool,
) []Applied {
	skipAll := func(err *pherrors.Error) {
		for _, in := range instructions {
			m.skip(warnings, in, err)
		}
	}

	if page < 1 || page > pdfctx.PageCount {
		skipAll(pherrors.Newf(pherrors.ErrorTypeRegionNotFound, "page %d does not exist", page))
		return nil
	}
	pageDict, _, inh, err := pdfctx.PageDict(page, false)
	if err != nil || pageDict == nil {
		skipAll(pherrors.Wrap(pherrors.ErrorTypeRegionNotFound, fmt.Sprintf("page %d cannot be loaded", page), err))
		return nil
	}

	var (
		overlay bytes.Buffer
		applied []Applied
	)
	for _, in := range instructions {
		ops, a, err := m.draw(handle, planner, in, boxOrigin(inh))
		if err != nil {
			m.skip(warnings, in, pherrors.As(err))
			continue
		}
		if a.Plan.Warning != "" {
			warnings.Add(pherrors.New(pherrors.ErrorTypeOverflow, a.Plan.Warning).
				WithPage(in.Page).
				WithPositionIndex(in.Region.PositionIndex))
		}
		overlay.Write(ops)
		applied = append(applied, a)
	}

	if !write || len(applied) == 0 {
		return applied
	}

	var inherited types.Dict
	if inh != nil {
		inherited = inh.Resources
	}
	fonts, err := pageFonts(pdfctx, pageDict, inherited)
	if err == nil {
		fonts[handle.ResourceName()] = handle.Ref()
		err = appendOverlay(pdfctx, pageDict, overlay.Bytes())
	}
	if err != nil {
		skipAll(pherrors.Wrap(pherrors.ErrorTypeGlyphRenderFailure, fmt.Sprintf("page %d cannot be modified", page), err))
		return nil
	}
	return applied
}

// draw plans one instruction and renders its cover box and text operators.
// Region coordinates are relative to the MediaBox corner at origin.
func (m *Mutator) draw(handle fontkit.Handle, planner *textfit.Planner, in textfit.Instruction, origin types.Point) ([]byte, Applied, error) {
	plan, err := planner.Plan(in)
	if err != nil {
		return nil, Applied{}, err
	}
	size := plan.EffectiveFontSize
	textWidth, err := handle.Width(plan.RenderedText, size)
	if err != nil {
		return nil, Applied{}, wrapGlyph(in, err)
	}
	encoded, err := handle.Encode(plan.RenderedText)
	if err != nil {
		return nil, Applied{}, wrapGlyph(in, err)
	}

	region := in.Region
	baseline := region.Y
	textX := region.CenterX() - textWidth/2

	var b strings.Builder
	fmt.Fprintf(&b, "q\n1 1 1 rg\n%s %s %s %s re\nf\nQ\n",
		num(origin.X+region.X), num(origin.Y+baseline-coverDescent*size), num(region.Width), num(coverHeight*size))
	fmt.Fprintf(&b, "q\nBT\n0 0 0 rg\n/%s %s Tf\n%s %s Td\n%s Tj\nET\nQ\n",
		handle.ResourceName(), num(size), num(origin.X+textX), num(origin.Y+baseline), encoded)

	return []byte(b.String()), Applied{
		Page:          in.Page,
		PositionIndex: region.PositionIndex,
		TextX:         textX,
		Plan:          plan,
	}, nil
}

func (m *Mutator) skip(warnings *pherrors.Collection, in textfit.Instruction, err *pherrors.Error) {
	m.log.WithFields(logrus.Fields{
		"page":           in.Page,
		"position_index": in.Region.PositionIndex,
	}).WithError(err).Warn("Skipping replacement")

	w := *err
	w.Page = in.Page
	w.PositionIndex = in.Region.PositionIndex
	warnings.AddWarning(&w)
}

func wrapGlyph(in textfit.Instruction, err error) *pherrors.Error {
	if pherrors.TypeOf(err) == pherrors.ErrorTypeGlyphRenderFailure {
		return pherrors.As(err)
	}
	return pherrors.Wrap(pherrors.ErrorTypeGlyphRenderFailure, "text cannot be drawn", err).
		WithPage(in.Page).
		WithPositionIndex(in.Region.PositionIndex)
}

func num(v float64) string {
	s := strconv.FormatFloat(v, 'f', 3, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" || s == "" {
		return "0"
	}
	return s
}
