// Package detect finds numbered placeholder tokens such as "____(3)____" in
// the text layer of a PDF and turns them into regions.
package detect

import (
	"bytes"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/sirupsen/logrus"

	pherrors "github.com/a3tai/pdf-placeholder/internal/errors"
	"github.com/a3tai/pdf-placeholder/internal/placeholder"
)

// tokenPattern matches "(N)" with optional filler runs on either side.
// Both runs must use the same character to count as decoration.
var tokenPattern = regexp.MustCompile(`(_{2,}|\.{2,}|-{2,})?\((\d+)\)(_{2,}|\.{2,}|-{2,})?`)

// Candidate is a token found in the text layer. X is its left edge and
// Baseline the Y of the text line, both in document space.
type Candidate struct {
	Page          int     `json:"page"`
	PositionIndex int     `json:"position_index"`
	Token         string  `json:"token"`
	X             float64 `json:"x"`
	Baseline      float64 `json:"baseline"`
	Width         float64 `json:"width"`
	FontSize      float64 `json:"font_size"`
}

// Region converts the candidate into an auto-detected region
func (c Candidate) Region() placeholder.Region {
	return placeholder.Region{
		PositionIndex: c.PositionIndex,
		Page:          c.Page,
		X:             c.X,
		Y:             c.Baseline,
		Width:         c.Width,
		Height:        c.FontSize * placeholder.LineHeightRatio,
		Origin:        placeholder.OriginAuto,
		Token:         c.Token,
	}
}

type glyph struct {
	s        string
	x, y, w  float64
	fontSize float64
}

// Scan reads every page of source and returns the tokens found, in page and
// reading order
func Scan(source []byte) (candidates []Candidate, err error) {
	// ledongthuc panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			candidates = nil
			err = pherrors.New(pherrors.ErrorTypeDocumentUnreadable, "failed to read text layer").
				WithContext(fmt.Sprint(r))
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(source), int64(len(source)))
	if err != nil {
		return nil, pherrors.Wrap(pherrors.ErrorTypeDocumentUnreadable, "failed to open PDF", err)
	}

	for page := 1; page <= r.NumPage(); page++ {
		p := r.Page(page)
		if p.V.IsNull() {
			continue
		}
		var glyphs []glyph
		for _, t := range p.Content().Text {
			glyphs = append(glyphs, glyph{s: t.S, x: t.X, y: t.Y, w: t.W, fontSize: t.FontSize})
		}
		for _, line := range lines(glyphs) {
			candidates = append(candidates, matchLine(page, line)...)
		}
	}
	return candidates, nil
}

// lines groups glyphs sharing a baseline and orders each line left to right
func lines(glyphs []glyph) [][]glyph {
	byKey := make(map[float64][]glyph)
	var keys []float64
	for _, g := range glyphs {
		key := math.Round(g.y*2) / 2
		if _, ok := byKey[key]; !ok {
			keys = append(keys, key)
		}
		byKey[key] = append(byKey[key], g)
	}
	// top of the page first
	sort.Sort(sort.Reverse(sort.Float64Slice(keys)))

	out := make([][]glyph, 0, len(keys))
	for _, k := range keys {
		line := byKey[k]
		sort.SliceStable(line, func(i, j int) bool { return line[i].x < line[j].x })
		out = append(out, line)
	}
	return out
}

func matchLine(page int, line []glyph) []Candidate {
	var b strings.Builder
	starts := make([]int, len(line))
	for i, g := range line {
		starts[i] = b.Len()
		b.WriteString(g.s)
	}
	text := b.String()

	// glyphAt maps a byte offset in text back to the glyph that produced it
	glyphAt := func(offset int) int {
		return sort.Search(len(starts), func(i int) bool { return starts[i] > offset }) - 1
	}

	var out []Candidate
	for _, m := range tokenPattern.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[0], m[1]
		left, right := group(text, m, 1), group(text, m, 3)
		if left == "" || right == "" || left[0] != right[0] {
			// only symmetric padding counts, otherwise keep the bare "(N)"
			if left != "" {
				start = m[2] + len(left)
			}
			if right != "" {
				end = m[6]
			}
		}

		index, err := strconv.Atoi(text[m[4]:m[5]])
		if err != nil {
			continue
		}
		first, last := glyphAt(start), glyphAt(end-1)
		if first < 0 || last < first {
			continue
		}
		out = append(out, Candidate{
			Page:          page,
			PositionIndex: index,
			Token:         text[start:end],
			X:             line[first].x,
			Baseline:      line[first].y,
			Width:         line[last].x + line[last].w - line[first].x,
			FontSize:      line[first].fontSize,
		})
	}
	return out
}

func group(text string, m []int, n int) string {
	if m[2*n] < 0 {
		return ""
	}
	return text[m[2*n]:m[2*n+1]]
}

// Report is the outcome of registering detected tokens
type Report struct {
	Added    []placeholder.Region `json:"added"`
	Skipped  []Candidate          `json:"skipped"`
	Warnings []*pherrors.Error    `json:"warnings"`
}

// Register adds every candidate to reg. Candidates that are too small or
// whose index is taken are skipped with a warning.
func Register(reg *placeholder.Registry, candidates []Candidate, log logrus.FieldLogger) *Report {
	if log == nil {
		log = logrus.StandardLogger()
	}
	report := &Report{}
	for _, c := range candidates {
		region, err := reg.Add(c.Region())
		if err != nil {
			w := *pherrors.As(err)
			w.Page = c.Page
			w.PositionIndex = c.PositionIndex
			if w.Context == "" {
				w.Context = c.Token
			}
			log.WithFields(logrus.Fields{
				"page":           c.Page,
				"position_index": c.PositionIndex,
			}).WithError(err).Warn("Skipping detected placeholder")
			report.Skipped = append(report.Skipped, c)
			report.Warnings = append(report.Warnings, &w)
			continue
		}
		report.Added = append(report.Added, region)
	}
	return report
}
