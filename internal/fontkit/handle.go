package fontkit

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/sirupsen/logrus"

	pherrors "github.com/a3tai/pdf-placeholder/internal/errors"
)

// Kind identifies the embedding capability behind a Handle
type Kind string

const (
	KindAdvanced Kind = "advanced"
	KindBasic    Kind = "basic"
	KindBuiltin  Kind = "builtin"
)

// Handle is a font installed into one document
type Handle interface {
	Kind() Kind
	// Ref is the font dictionary to list in page resources
	Ref() types.IndirectRef
	// ResourceName is the name the font is registered under in page resources
	ResourceName() string
	// Width measures text in document units at size
	Width(text string, size float64) (float64, error)
	// Encode returns the string operand drawing text with this font
	Encode(text string) (string, error)
	// Finish writes data that depends on every glyph used, such as widths and
	// ToUnicode maps. Call it once after the last Encode.
	Finish() error
}

// Embedder installs font bytes into a document
type Embedder interface {
	Kind() Kind
	Embed(ctx *model.Context, data []byte) (Handle, error)
}

// DefaultEmbedders lists the capabilities tried by Negotiate, best first
func DefaultEmbedders() []Embedder {
	return []Embedder{AdvancedEmbed{}, BasicEmbed{}}
}

// Negotiate installs data with the first embedder that accepts it and falls
// back to the builtin Helvetica when none does. Every failed capability is
// returned as a FontEmbedFailure warning.
func Negotiate(ctx *model.Context, data []byte, log logrus.FieldLogger, embedders ...Embedder) (Handle, []*pherrors.Error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if len(embedders) == 0 {
		embedders = DefaultEmbedders()
	}

	var warnings []*pherrors.Error
	if len(data) > 0 {
		for _, e := range embedders {
			h, err := e.Embed(ctx, data)
			if err == nil {
				log.WithField("font_kind", e.Kind()).Debug("Font embedded")
				return h, warnings
			}
			log.WithField("font_kind", e.Kind()).WithError(err).Warn("Font capability unavailable, downgrading")
			warnings = append(warnings, pherrors.Wrap(pherrors.ErrorTypeFontEmbedFailure,
				fmt.Sprintf("%s font embedding failed", e.Kind()), err))
		}
	} else {
		warnings = append(warnings, pherrors.New(pherrors.ErrorTypeFontEmbedFailure, "no font data available"))
	}

	h, err := EmbedBuiltin(ctx)
	if err != nil {
		// only reachable when the document refuses new objects
		warnings = append(warnings, pherrors.Wrap(pherrors.ErrorTypeFontEmbedFailure, "builtin font unavailable", err))
		return nil, warnings
	}
	log.WithField("font_kind", KindBuiltin).Warn("Using builtin Helvetica, some characters may not render")
	return h, warnings
}

func resourceName(ref *types.IndirectRef) string {
	return fmt.Sprintf("PHF%d", ref.ObjectNumber.Value())
}

func number(v float64) types.Object {
	if v == float64(int(v)) {
		return types.Integer(int(v))
	}
	return types.Float(v)
}

func newFontFile2(ctx *model.Context, data []byte) (*types.IndirectRef, error) {
	sd, err := ctx.NewStreamDictForBuf(data)
	if err != nil {
		return nil, err
	}
	sd.Dict["Length1"] = types.Integer(len(data))
	if err := sd.Encode(); err != nil {
		return nil, err
	}
	return ctx.IndRefForNewObject(*sd)
}

func newFontDescriptor(ctx *model.Context, m *ttfMetrics, fontFile *types.IndirectRef) (*types.IndirectRef, error) {
	d := types.Dict{
		"Type":        types.Name("FontDescriptor"),
		"FontName":    types.Name(m.name),
		"Flags":       types.Integer(32),
		"FontBBox":    types.Array{number(m.bbox[0]), number(m.bbox[1]), number(m.bbox[2]), number(m.bbox[3])},
		"ItalicAngle": types.Integer(0),
		"Ascent":      number(m.ascent),
		"Descent":     number(m.descent),
		"CapHeight":   number(m.capHeight),
		"StemV":       types.Integer(80),
		"FontFile2":   *fontFile,
	}
	return ctx.IndRefForNewObject(d)
}
