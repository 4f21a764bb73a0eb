package mutator

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	pherrors "github.com/a3tai/pdf-placeholder/internal/errors"
)

// PageSize is the MediaBox size of one page in document units. OriginX and
// OriginY are the lower-left corner of the MediaBox; region coordinates are
// relative to it.
type PageSize struct {
	Page    int     `json:"page"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	OriginX float64 `json:"origin_x,omitempty"`
	OriginY float64 `json:"origin_y,omitempty"`
}

func newConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// openContext parses source into a pdfcpu context with a known page count
func openContext(source io.ReadSeeker, conf *model.Configuration) (*model.Context, error) {
	ctx, err := api.ReadContext(source, conf)
	if err != nil {
		return nil, pherrors.Wrap(pherrors.ErrorTypeDocumentUnreadable, "failed to read PDF context", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, pherrors.Wrap(pherrors.ErrorTypeDocumentUnreadable, "failed to ensure page count", err)
	}
	if ctx.PageCount == 0 {
		return nil, pherrors.New(pherrors.ErrorTypeDocumentUnreadable, "document has no pages")
	}
	return ctx, nil
}

// Inspect checks that source is a readable PDF and returns its page sizes
func Inspect(source []byte) ([]PageSize, error) {
	ctx, err := openContext(bytes.NewReader(source), newConfiguration())
	if err != nil {
		return nil, err
	}
	boundaries, err := ctx.PageBoundaries(nil)
	if err != nil || len(boundaries) != ctx.PageCount {
		return nil, pherrors.Wrap(pherrors.ErrorTypeDocumentUnreadable, "failed to read page dimensions", err)
	}

	sizes := make([]PageSize, len(boundaries))
	for i, pb := range boundaries {
		box := pb.MediaBox()
		if box == nil {
			return nil, pherrors.Newf(pherrors.ErrorTypeDocumentUnreadable, "page %d has no media box", i+1)
		}
		d := box.Dimensions()
		if pb.Rot%180 != 0 {
			d.Width, d.Height = d.Height, d.Width
		}
		sizes[i] = PageSize{
			Page:    i + 1,
			Width:   d.Width,
			Height:  d.Height,
			OriginX: box.LL.X,
			OriginY: box.LL.Y,
		}
	}
	return sizes, nil
}

// boxOrigin is the lower-left corner of the inherited MediaBox
func boxOrigin(inh *model.InheritedPageAttrs) types.Point {
	if inh == nil || inh.MediaBox == nil {
		return types.Point{}
	}
	return inh.MediaBox.LL
}

// pageFonts returns the font resource dictionary of a page, creating the
// Resources and Font entries when they are missing. A page without its own
// Resources gets a copy of the inherited ones, since a Resources entry on
// the page hides everything inherited from the page tree.
func pageFonts(ctx *model.Context, pageDict, inherited types.Dict) (types.Dict, error) {
	res, err := ctx.DereferenceDict(pageDict["Resources"])
	if err != nil {
		return nil, fmt.Errorf("invalid page resources: %w", err)
	}
	copied := false
	if res == nil {
		res = types.Dict{}
		if inherited != nil {
			res = inherited.Clone().(types.Dict)
			copied = true
		}
		pageDict["Resources"] = res
	}

	fonts, err := ctx.DereferenceDict(res["Font"])
	if err != nil {
		return nil, fmt.Errorf("invalid font resources: %w", err)
	}
	switch {
	case fonts == nil:
		fonts = types.Dict{}
		res["Font"] = fonts
	case copied:
		// the copy may still point at the ancestor's font dict
		fonts = fonts.Clone().(types.Dict)
		res["Font"] = fonts
	}
	return fonts, nil
}

// contentRefs flattens a page's Contents entry into stream references
func contentRefs(ctx *model.Context, obj types.Object) (types.Array, error) {
	switch o := obj.(type) {
	case nil:
		return nil, nil
	case types.IndirectRef:
		target, err := ctx.Dereference(o)
		if err != nil {
			return nil, err
		}
		if arr, ok := target.(types.Array); ok {
			return append(types.Array{}, arr...), nil
		}
		return types.Array{o}, nil
	case types.Array:
		return append(types.Array{}, o...), nil
	default:
		return nil, fmt.Errorf("unexpected page contents of type %T", obj)
	}
}

func newContentStream(ctx *model.Context, content []byte) (*types.IndirectRef, error) {
	sd, err := ctx.NewStreamDictForBuf(content)
	if err != nil {
		return nil, err
	}
	if err := sd.Encode(); err != nil {
		return nil, err
	}
	return ctx.IndRefForNewObject(*sd)
}

// appendOverlay wraps the existing page content in q/Q and appends overlay,
// so graphics state left by the original content cannot leak into it
func appendOverlay(ctx *model.Context, pageDict types.Dict, overlay []byte) error {
	existing, err := contentRefs(ctx, pageDict["Contents"])
	if err != nil {
		return fmt.Errorf("failed to read page contents: %w", err)
	}
	open, err := newContentStream(ctx, []byte("q\n"))
	if err != nil {
		return err
	}
	closing := append([]byte("Q\n"), overlay...)
	tail, err := newContentStream(ctx, closing)
	if err != nil {
		return err
	}

	contents := make(types.Array, 0, len(existing)+2)
	contents = append(contents, *open)
	contents = append(contents, existing...)
	contents = append(contents, *tail)
	pageDict["Contents"] = contents
	return nil
}
