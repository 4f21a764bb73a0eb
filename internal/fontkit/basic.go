package fontkit

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/text/encoding/charmap"
)

// BasicEmbed installs a TrueType font as a simple font with WinAnsiEncoding.
// Only Windows-1252 characters can be drawn.
type BasicEmbed struct{}

func (BasicEmbed) Kind() Kind { return KindBasic }

func (BasicEmbed) Embed(ctx *model.Context, data []byte) (Handle, error) {
	m, err := parseTTF(data)
	if err != nil {
		return nil, err
	}

	widths := make([]float64, lastChar-firstChar+1)
	arr := make(types.Array, len(widths))
	for c := firstChar; c <= lastChar; c++ {
		r := charmap.Windows1252.DecodeByte(byte(c))
		w, ok := m.advance(r)
		if !ok {
			w, _ = m.advance('?')
		}
		widths[c-firstChar] = w
		arr[c-firstChar] = types.Integer(int(w + 0.5))
	}

	fontFile, err := newFontFile2(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("failed to write font file: %w", err)
	}
	descriptor, err := newFontDescriptor(ctx, m, fontFile)
	if err != nil {
		return nil, fmt.Errorf("failed to write font descriptor: %w", err)
	}

	d := types.Dict{
		"Type":           types.Name("Font"),
		"Subtype":        types.Name("TrueType"),
		"BaseFont":       types.Name(m.name),
		"FirstChar":      types.Integer(firstChar),
		"LastChar":       types.Integer(lastChar),
		"Widths":         arr,
		"Encoding":       types.Name("WinAnsiEncoding"),
		"FontDescriptor": *descriptor,
	}
	ref, err := ctx.IndRefForNewObject(d)
	if err != nil {
		return nil, err
	}
	return &basicHandle{ref: *ref, name: resourceName(ref), widths: widths}, nil
}

type basicHandle struct {
	ref    types.IndirectRef
	name   string
	widths []float64
}

func (h *basicHandle) Kind() Kind             { return KindBasic }
func (h *basicHandle) Ref() types.IndirectRef { return h.ref }
func (h *basicHandle) ResourceName() string   { return h.name }
func (h *basicHandle) Finish() error          { return nil }

func (h *basicHandle) Width(text string, size float64) (float64, error) {
	b, _ := winAnsiBytes(text)
	total := 0.0
	for _, c := range b {
		total += h.widths[int(c)-firstChar]
	}
	return total * size / 1000, nil
}

func (h *basicHandle) Encode(text string) (string, error) {
	b, _ := winAnsiBytes(text)
	return hexString(b), nil
}
