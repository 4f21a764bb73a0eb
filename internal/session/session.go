package session

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/a3tai/pdf-placeholder/internal/detect"
	pherrors "github.com/a3tai/pdf-placeholder/internal/errors"
	"github.com/a3tai/pdf-placeholder/internal/geometry"
	"github.com/a3tai/pdf-placeholder/internal/mutator"
	"github.com/a3tai/pdf-placeholder/internal/placeholder"
	"github.com/a3tai/pdf-placeholder/internal/selection"
	"github.com/a3tai/pdf-placeholder/internal/textfit"
)

// Session is one document being edited. The source bytes never change;
// Fill produces new documents from them.
type Session struct {
	id       string
	name     string
	source   []byte
	openedAt time.Time

	layout   *geometry.LiveLayout
	origins  map[int]geometry.Point
	registry *placeholder.Registry
	selector *selection.Selector
	mutator  *mutator.Mutator
	log      logrus.FieldLogger
}

func newSession(
	id, name string,
	source []byte,
	surfaces []geometry.PageSurface,
	origins map[int]geometry.Point,
	mut *mutator.Mutator,
	thresholds placeholder.Thresholds,
	log logrus.FieldLogger,
) *Session {
	s := &Session{
		id:       id,
		name:     name,
		source:   source,
		openedAt: time.Now(),
		layout:   geometry.NewLiveLayout(surfaces),
		origins:  origins,
		registry: placeholder.NewRegistry(placeholder.WithThresholds(thresholds)),
		mutator:  mut,
		log:      log,
	}
	s.selector = selection.NewSelector(
		geometry.NewTransformer(s.layout),
		s.registry,
		selection.WithThresholds(thresholds),
		selection.WithLogger(log),
		selection.WithCommitHandler(func(r placeholder.Region) {
			log.WithFields(logrus.Fields{
				"page":           r.Page,
				"position_index": r.PositionIndex,
			}).Info("Region committed")
		}),
	)
	return s
}

// ID returns the session id
func (s *Session) ID() string { return s.id }

// Name returns the file name the document was opened from
func (s *Session) Name() string { return s.name }

// Info summarises the session
func (s *Session) Info() Info {
	return Info{
		ID:       s.id,
		Name:     s.name,
		Pages:    len(s.layout.Surfaces()),
		Regions:  s.registry.Len(),
		OpenedAt: s.openedAt,
	}
}

// Surfaces returns the page surfaces of the document
func (s *Session) Surfaces() []geometry.PageSurface {
	return s.layout.Surfaces()
}

// UpdateSurface records where page is currently drawn on screen
func (s *Session) UpdateSurface(page int, left, top, displayScale float64) error {
	return s.layout.Mount(page, geometry.Point{X: left, Y: top}, displayScale)
}

// UnmountSurface marks page as no longer rendered
func (s *Session) UnmountSurface(page int) {
	s.layout.Unmount(page)
}

// SetPlacementMode turns region drawing on or off
func (s *Session) SetPlacementMode(active bool) {
	s.selector.SetPlacementMode(active)
}

// PlacementMode reports whether region drawing is on
func (s *Session) PlacementMode() bool {
	return s.selector.PlacementMode()
}

// PointerDown starts a selection on page
func (s *Session) PointerDown(page int, screen, scroll geometry.Point) (selection.State, error) {
	return s.selector.PointerDown(page, screen, scroll)
}

// PointerMove updates the current selection
func (s *Session) PointerMove(screen, scroll geometry.Point) (selection.State, error) {
	return s.selector.PointerMove(screen, scroll)
}

// PointerUp finishes the current selection
func (s *Session) PointerUp(screen, scroll geometry.Point) (selection.State, error) {
	return s.selector.PointerUp(screen, scroll)
}

// AssignIndex commits the pending selection as a region
func (s *Session) AssignIndex(index int) (placeholder.Region, error) {
	return s.selector.AssignIndex(index)
}

// CancelSelection drops any gesture or pending selection
func (s *Session) CancelSelection() selection.State {
	return s.selector.Cancel()
}

// Selection returns the current selector state
func (s *Session) Selection() selection.State {
	return s.selector.State()
}

// Regions returns every region ordered by page and index
func (s *Session) Regions() []placeholder.Region {
	return s.registry.All()
}

// RegionsOnPage returns the regions of one page
func (s *Session) RegionsOnPage(page int) []placeholder.Region {
	var out []placeholder.Region
	for r := range s.registry.ListByPage(page) {
		out = append(out, r)
	}
	return out
}

// UpdateRegion moves, resizes or renumbers a region
func (s *Session) UpdateRegion(id string, patch placeholder.Patch) (placeholder.Region, error) {
	return s.registry.Update(id, patch)
}

// RemoveRegion deletes a region. Unknown ids are ignored.
func (s *Session) RemoveRegion(id string) {
	s.registry.Remove(id)
}

// Detect scans the document text for numbered tokens and registers them
func (s *Session) Detect() (*detect.Report, error) {
	candidates, err := detect.Scan(s.source)
	if err != nil {
		return nil, err
	}
	// text positions are in user space, regions are relative to the MediaBox
	for i := range candidates {
		o := s.origins[candidates[i].Page]
		candidates[i].X -= o.X
		candidates[i].Baseline -= o.Y
	}
	report := detect.Register(s.registry, candidates, s.log)
	s.log.WithFields(logrus.Fields{
		"found":   len(candidates),
		"added":   len(report.Added),
		"skipped": len(report.Skipped),
	}).Info("Placeholder detection finished")
	return report, nil
}

// Instructions pairs every region with its value. Regions without a value
// and values without a region are reported as warnings.
func (s *Session) Instructions(values map[int]string) ([]textfit.Instruction, []*pherrors.Error) {
	var warnings []*pherrors.Error
	var out []textfit.Instruction
	seen := make(map[int]bool, len(values))

	for _, r := range s.registry.All() {
		seen[r.PositionIndex] = true
		value, ok := values[r.PositionIndex]
		if !ok {
			warnings = append(warnings, pherrors.New(pherrors.ErrorTypeMissingValue, "no value supplied for region").
				WithPage(r.Page).WithPositionIndex(r.PositionIndex))
			continue
		}
		out = append(out, textfit.Instruction{
			Page:    r.Page,
			Region:  r,
			OldText: r.PlaceholderText(),
			NewText: value,
		})
	}

	var orphans []int
	for index := range values {
		if !seen[index] {
			orphans = append(orphans, index)
		}
	}
	sort.Ints(orphans)
	for _, index := range orphans {
		warnings = append(warnings, pherrors.Newf(pherrors.ErrorTypeRegionNotFound, "no region with position index %d", index).
			WithPositionIndex(index))
	}
	return out, warnings
}

// Plan computes how each value would be drawn without producing a document
func (s *Session) Plan(ctx context.Context, values map[int]string) (*mutator.Result, error) {
	instructions, warnings := s.Instructions(values)
	result, err := s.mutator.Plan(ctx, s.source, instructions)
	if err != nil {
		return nil, err
	}
	result.Warnings = append(warnings, result.Warnings...)
	return result, nil
}

// Fill draws values over their regions and returns the new document
func (s *Session) Fill(ctx context.Context, values map[int]string) (*mutator.Result, error) {
	instructions, warnings := s.Instructions(values)
	for _, w := range warnings {
		s.log.WithFields(logrus.Fields{
			"page":           w.Page,
			"position_index": w.PositionIndex,
		}).Warn(w.Error())
	}

	result, err := s.mutator.Mutate(ctx, s.source, instructions)
	if err != nil {
		return nil, fmt.Errorf("failed to fill %s: %w", s.name, err)
	}
	result.Warnings = append(warnings, result.Warnings...)

	s.log.WithFields(logrus.Fields{
		"applied":   len(result.Applied),
		"warnings":  len(result.Warnings),
		"font_kind": result.FontKind,
	}).Info("Document filled")
	return result, nil
}

func (s *Session) reset() {
	s.selector.Cancel()
	s.registry.Reset()
}
