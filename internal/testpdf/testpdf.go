// Package testpdf writes small, valid PDF documents for tests.
package testpdf

import (
	"fmt"
	"strings"

	"github.com/a3tai/pdf-placeholder/internal/fontkit"
)

// Text is one line of Helvetica text drawn with its baseline at (X, Y)
type Text struct {
	X, Y float64
	Size float64
	Text string
}

// Page describes one page of the fixture. OriginX and OriginY move the
// lower-left corner of the MediaBox; text positions stay relative to it.
type Page struct {
	Width, Height    float64
	OriginX, OriginY float64
	Texts            []Text
}

// Options changes how Build lays out the document
type Options struct {
	// InheritResources puts the font resources on the Pages node instead
	// of on every page
	InheritResources bool
}

// Letter returns a US Letter page carrying texts
func Letter(texts ...Text) Page {
	return Page{Width: 612, Height: 792, Texts: texts}
}

// Build writes a document with the given pages. All pages share one
// Helvetica font resource named F1.
func Build(pages ...Page) []byte {
	return BuildWith(Options{}, pages...)
}

// BuildWith is Build with layout options
func BuildWith(opts Options, pages ...Page) []byte {
	if len(pages) == 0 {
		pages = []Page{Letter()}
	}

	var pdf strings.Builder
	offsets := []int{}
	add := func(body string) {
		offsets = append(offsets, pdf.Len())
		fmt.Fprintf(&pdf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	pdf.WriteString("%PDF-1.4\n")

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	add("<<\n/Type /Catalog\n/Pages 2 0 R\n>>")
	const resources = "/Resources <<\n/Font <<\n/F1 3 0 R\n>>\n>>"
	pageResources, treeResources := resources, ""
	if opts.InheritResources {
		pageResources, treeResources = "", "\n"+resources
	}

	add(fmt.Sprintf("<<\n/Type /Pages\n/Kids [%s]\n/Count %d%s\n>>", strings.Join(kids, " "), len(pages), treeResources))
	add(fmt.Sprintf("<<\n/Type /Font\n/Subtype /Type1\n/BaseFont /Helvetica\n/Encoding /WinAnsiEncoding\n/FirstChar 32\n/LastChar 126\n/Widths [%s]\n>>", widths()))

	for i, p := range pages {
		add(fmt.Sprintf("<<\n/Type /Page\n/Parent 2 0 R\n/MediaBox [%s %s %s %s]\n/Contents %d 0 R\n%s\n>>",
			num(p.OriginX), num(p.OriginY), num(p.OriginX+p.Width), num(p.OriginY+p.Height), 5+2*i, pageResources))

		var content strings.Builder
		for _, t := range p.Texts {
			fmt.Fprintf(&content, "BT\n/F1 %s Tf\n%s %s Td\n(%s) Tj\nET\n",
				num(t.Size), num(p.OriginX+t.X), num(p.OriginY+t.Y), escape(t.Text))
		}
		add(fmt.Sprintf("<<\n/Length %d\n>>\nstream\n%sendstream", content.Len(), content.String()))
	}

	xrefStart := pdf.Len()
	fmt.Fprintf(&pdf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&pdf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&pdf, "trailer\n<<\n/Size %d\n/Root 1 0 R\n>>\nstartxref\n%d\n%%%%EOF", len(offsets)+1, xrefStart)
	return []byte(pdf.String())
}

// Width measures text as the fixture font draws it
func Width(text string, size float64) float64 {
	return fontkit.BuiltinWidth(text, size)
}

func widths() string {
	w := make([]string, 0, 95)
	for c := 32; c <= 126; c++ {
		w = append(w, fmt.Sprintf("%d", int(fontkit.BuiltinWidth(string(rune(c)), 1000))))
	}
	return strings.Join(w, " ")
}

func num(v float64) string {
	s := strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.3f", v), "0"), ".")
	if s == "" || s == "-0" {
		return "0"
	}
	return s
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`)
	return r.Replace(s)
}
