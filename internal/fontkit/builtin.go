package fontkit

import (
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// helveticaWidths are the Helvetica AFM advances for printable ASCII
var helveticaWidths = [...]int{
	278, 278, 355, 556, 556, 889, 667, 191, 333, 333, 389, 584, 278, 333, 278, 278, // space - /
	556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 278, 278, 584, 584, 584, 556, // 0 - ?
	1015, 667, 667, 722, 722, 667, 611, 778, 722, 278, 500, 667, 556, 833, 722, 778, // @ - O
	667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 278, 278, 278, 469, 556, // P - _
	333, 556, 556, 500, 556, 556, 278, 556, 556, 222, 222, 500, 222, 833, 556, 556, // ` - o
	556, 556, 333, 500, 278, 556, 500, 722, 500, 500, 500, 334, 260, 334, 584, // p - ~
}

const helveticaDefaultWidth = 556

func helveticaWidth(b byte) int {
	if b >= 32 && int(b-32) < len(helveticaWidths) {
		return helveticaWidths[b-32]
	}
	// accented letters share the advance of their base letter
	r := charmap.Windows1252.DecodeByte(b)
	for _, base := range norm.NFD.String(string(r)) {
		if base >= 32 && int(base-32) < len(helveticaWidths) {
			return helveticaWidths[base-32]
		}
		break
	}
	return helveticaDefaultWidth
}

type builtinHandle struct {
	ref  types.IndirectRef
	name string
}

// EmbedBuiltin registers the standard Helvetica font, which every viewer
// provides without embedding. It only covers WinAnsi characters.
func EmbedBuiltin(ctx *model.Context) (Handle, error) {
	d := types.Dict{
		"Type":     types.Name("Font"),
		"Subtype":  types.Name("Type1"),
		"BaseFont": types.Name("Helvetica"),
		"Encoding": types.Name("WinAnsiEncoding"),
	}
	ref, err := ctx.IndRefForNewObject(d)
	if err != nil {
		return nil, err
	}
	return &builtinHandle{ref: *ref, name: resourceName(ref)}, nil
}

func (h *builtinHandle) Kind() Kind             { return KindBuiltin }
func (h *builtinHandle) Ref() types.IndirectRef { return h.ref }
func (h *builtinHandle) ResourceName() string   { return h.name }
func (h *builtinHandle) Finish() error          { return nil }

func (h *builtinHandle) Width(text string, size float64) (float64, error) {
	return BuiltinWidth(text, size), nil
}

func (h *builtinHandle) Encode(text string) (string, error) {
	b, _ := winAnsiBytes(text)
	return hexString(b), nil
}

// BuiltinWidth measures text set in Helvetica
func BuiltinWidth(text string, size float64) float64 {
	b, _ := winAnsiBytes(text)
	total := 0
	for _, c := range b {
		total += helveticaWidth(c)
	}
	return float64(total) * size / 1000
}
