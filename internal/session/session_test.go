package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pherrors "github.com/a3tai/pdf-placeholder/internal/errors"
	"github.com/a3tai/pdf-placeholder/internal/geometry"
	"github.com/a3tai/pdf-placeholder/internal/mutator"
	"github.com/a3tai/pdf-placeholder/internal/placeholder"
	"github.com/a3tai/pdf-placeholder/internal/selection"
	"github.com/a3tai/pdf-placeholder/internal/testpdf"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newManager(t *testing.T, opts ...Option) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	log := quietLogger()
	opts = append([]Option{WithLogger(log)}, opts...)
	m, err := NewManager(dir, mutator.New(nil, mutator.WithLogger(log)), opts...)
	require.NoError(t, err)
	return m, dir
}

func writeFixture(t *testing.T, dir, name string) string {
	t.Helper()
	src := testpdf.Build(
		testpdf.Letter(testpdf.Text{X: 72, Y: 700, Size: 12, Text: "Name: ____(1)____"}),
		testpdf.Page{Width: 300, Height: 400},
	)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, src, 0o644))
	return path
}

func TestManagerOpen(t *testing.T) {
	m, dir := newManager(t)
	writeFixture(t, dir, "form.pdf")

	s, err := m.Open(context.Background(), "form.pdf")
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, "form.pdf", s.Name())

	surfaces := s.Surfaces()
	require.Len(t, surfaces, 2)
	assert.Equal(t, geometry.PageSurface{PageNumber: 1, Width: 612, Height: 792, DisplayScale: 1}, surfaces[0])
	assert.Equal(t, geometry.PageSurface{PageNumber: 2, Width: 300, Height: 400, DisplayScale: 1}, surfaces[1])

	got, err := m.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	list := m.List()
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].Pages)
}

func TestManagerOpenRejects(t *testing.T) {
	m, dir := newManager(t, WithMaxFileSize(64))
	writeFixture(t, dir, "big.pdf")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.pdf"), []byte("junk"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "folder"), 0o755))

	tests := []struct {
		name string
		path string
	}{
		{"outside directory", "../elsewhere.pdf"},
		{"missing file", "missing.pdf"},
		{"directory", "folder"},
		{"too large", "big.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Open(context.Background(), tt.path)
			assert.Error(t, err)
		})
	}

	t.Run("unreadable", func(t *testing.T) {
		_, err := m.Open(context.Background(), "junk.pdf")
		require.Error(t, err)
		assert.Equal(t, pherrors.ErrorTypeDocumentUnreadable, pherrors.TypeOf(err))
	})

	t.Run("cancelled context", func(t *testing.T) {
		m, dir := newManager(t)
		writeFixture(t, dir, "form.pdf")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := m.Open(ctx, "form.pdf")
		assert.ErrorIs(t, err, context.Canceled)
	})

	assert.Empty(t, m.List())
}

func TestManagerGetAndClose(t *testing.T) {
	m, _ := newManager(t)
	s, err := m.OpenBytes("mem.pdf", testpdf.Build())
	require.NoError(t, err)

	_, err = s.registry.Add(placeholder.Region{PositionIndex: 1, Page: 1, Width: 100, Height: 20})
	require.NoError(t, err)

	require.NoError(t, m.Close(s.ID()))
	assert.Empty(t, s.Regions())

	_, err = m.Get(s.ID())
	assert.ErrorIs(t, err, pherrors.ErrSessionNotFound)
	assert.ErrorIs(t, m.Close(s.ID()), pherrors.ErrSessionNotFound)
}

func openFixture(t *testing.T) *Session {
	t.Helper()
	m, dir := newManager(t)
	writeFixture(t, dir, "form.pdf")
	s, err := m.Open(context.Background(), "form.pdf")
	require.NoError(t, err)
	return s
}

func TestSessionGestureToRegion(t *testing.T) {
	s := openFixture(t)
	require.NoError(t, s.UpdateSurface(1, 10, 20, 2))
	s.SetPlacementMode(true)
	assert.True(t, s.PlacementMode())

	// screen (210,220) is document (100, 792-100)
	var scroll geometry.Point
	_, err := s.PointerDown(1, geometry.Point{X: 210, Y: 220}, scroll)
	require.NoError(t, err)
	st, err := s.PointerMove(geometry.Point{X: 610, Y: 260}, scroll)
	require.NoError(t, err)
	assert.Equal(t, selection.PhaseDragging, View(st).Phase)
	assert.Equal(t, &geometry.Rect{X: 210, Y: 220, Width: 400, Height: 40}, View(st).ScreenRect)

	st, err = s.PointerUp(geometry.Point{X: 610, Y: 260}, scroll)
	require.NoError(t, err)
	view := View(st)
	require.Equal(t, selection.PhaseAwaitingIndex, view.Phase)
	require.NotNil(t, view.Pending)
	assert.InDelta(t, 200, view.Pending.Width, 1e-9)
	assert.InDelta(t, 20, view.Pending.Height, 1e-9)
	assert.InDelta(t, 682, view.Pending.CenterY, 1e-9)

	region, err := s.AssignIndex(2)
	require.NoError(t, err)
	assert.Equal(t, placeholder.OriginManual, region.Origin)
	assert.InDelta(t, 20/placeholder.LineHeightRatio, region.FontSize, 1e-6)
	assert.Equal(t, selection.PhaseIdle, s.Selection().Phase())

	assert.Len(t, s.RegionsOnPage(1), 1)
	assert.Empty(t, s.RegionsOnPage(2))
}

func TestSessionGestureWithoutSurface(t *testing.T) {
	s := openFixture(t)
	s.SetPlacementMode(true)

	_, err := s.PointerDown(1, geometry.Point{X: 10, Y: 10}, geometry.Point{})
	assert.ErrorIs(t, err, pherrors.ErrSurfaceNotMounted)

	require.NoError(t, s.UpdateSurface(1, 0, 0, 1))
	_, err = s.PointerDown(1, geometry.Point{X: 10, Y: 10}, geometry.Point{})
	require.NoError(t, err)

	s.UnmountSurface(1)
	st, err := s.PointerMove(geometry.Point{X: 50, Y: 50}, geometry.Point{})
	assert.ErrorIs(t, err, pherrors.ErrSurfaceNotMounted)
	assert.Equal(t, selection.PhaseIdle, st.Phase())

	assert.Error(t, s.UpdateSurface(9, 0, 0, 1))
}

func TestSessionCancelSelection(t *testing.T) {
	s := openFixture(t)
	require.NoError(t, s.UpdateSurface(1, 0, 0, 1))
	s.SetPlacementMode(true)

	_, err := s.PointerDown(1, geometry.Point{X: 0, Y: 0}, geometry.Point{})
	require.NoError(t, err)
	_, err = s.PointerUp(geometry.Point{X: 100, Y: 30}, geometry.Point{})
	require.NoError(t, err)

	assert.Equal(t, selection.PhaseIdle, s.CancelSelection().Phase())
	_, err = s.AssignIndex(1)
	assert.ErrorIs(t, err, pherrors.ErrInvalidGesture)
	assert.Empty(t, s.Regions())
}

func TestSessionDetectAndFill(t *testing.T) {
	s := openFixture(t)

	report, err := s.Detect()
	require.NoError(t, err)
	require.Len(t, report.Added, 1)
	detected := report.Added[0]
	assert.Equal(t, 1, detected.PositionIndex)
	assert.Equal(t, placeholder.OriginAuto, detected.Origin)
	assert.Equal(t, "____(1)____", detected.Token)

	// running detection again only produces duplicates
	report, err = s.Detect()
	require.NoError(t, err)
	assert.Empty(t, report.Added)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, pherrors.ErrorTypeDuplicateIndex, report.Warnings[0].Type)

	_, err = s.registry.Add(placeholder.Region{PositionIndex: 2, Page: 2, X: 20, Y: 200, Width: 150, Height: 18})
	require.NoError(t, err)

	result, err := s.Fill(context.Background(), map[int]string{1: "Jane", 7: "orphan"})
	require.NoError(t, err)
	require.NotEmpty(t, result.Bytes)
	require.Len(t, result.Applied, 1)
	assert.Equal(t, 1, result.Applied[0].PositionIndex)
	assert.Contains(t, result.Applied[0].Plan.RenderedText, "Jane")

	require.GreaterOrEqual(t, len(result.Warnings), 2)
	assert.Equal(t, pherrors.ErrorTypeMissingValue, result.Warnings[0].Type)
	assert.Equal(t, 2, result.Warnings[0].PositionIndex)
	assert.Equal(t, pherrors.ErrorTypeRegionNotFound, result.Warnings[1].Type)
	assert.Equal(t, 7, result.Warnings[1].PositionIndex)

	pages, err := mutator.Inspect(result.Bytes)
	require.NoError(t, err)
	assert.Len(t, pages, 2)
}

func TestSessionDetectOnOffsetMediaBox(t *testing.T) {
	m, _ := newManager(t)
	doc := testpdf.BuildWith(testpdf.Options{InheritResources: true}, testpdf.Page{
		Width: 612, Height: 792, OriginX: 30, OriginY: 100,
		Texts: []testpdf.Text{{X: 72, Y: 700, Size: 12, Text: "____(1)____"}},
	})
	s, err := m.OpenBytes("offset.pdf", doc)
	require.NoError(t, err)
	assert.Equal(t, 792.0, s.Surfaces()[0].Height)

	report, err := s.Detect()
	require.NoError(t, err)
	require.Len(t, report.Added, 1)
	assert.InDelta(t, 72, report.Added[0].X, 0.01)
	assert.InDelta(t, 700, report.Added[0].Y, 0.01)

	result, err := s.Fill(context.Background(), map[int]string{1: "Jane"})
	require.NoError(t, err)
	require.Len(t, result.Applied, 1)
	assert.NotEmpty(t, result.Bytes)
}

func TestSessionPlan(t *testing.T) {
	s := openFixture(t)
	_, err := s.registry.Add(placeholder.Region{PositionIndex: 3, Page: 1, X: 50, Y: 500, Width: 100, Height: 14.4})
	require.NoError(t, err)

	result, err := s.Plan(context.Background(), map[int]string{3: "short"})
	require.NoError(t, err)
	assert.Nil(t, result.Bytes)
	require.Len(t, result.Applied, 1)
	assert.Equal(t, "short", result.Applied[0].Plan.RenderedText)
	assert.True(t, result.Applied[0].Plan.FitsWithinRegion)
}

func TestSessionUpdateAndRemoveRegion(t *testing.T) {
	s := openFixture(t)
	r, err := s.registry.Add(placeholder.Region{PositionIndex: 1, Page: 1, X: 50, Y: 500, Width: 100, Height: 24})
	require.NoError(t, err)

	index := 4
	updated, err := s.UpdateRegion(r.ID, placeholder.Patch{PositionIndex: &index})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.PositionIndex)

	s.RemoveRegion(r.ID)
	s.RemoveRegion(r.ID)
	assert.Empty(t, s.Regions())

	_, err = s.UpdateRegion(r.ID, placeholder.Patch{PositionIndex: &index})
	assert.ErrorIs(t, err, pherrors.ErrRegionNotFound)
}

func TestView(t *testing.T) {
	assert.Equal(t, SelectionView{Phase: selection.PhaseIdle}, View(nil))
	assert.Equal(t, SelectionView{Phase: selection.PhaseIdle}, View(selection.Idle{}))

	v := View(selection.AwaitingIndex{
		Pending:   selection.Pending{Page: 2, Width: 30, Height: 10},
		LastError: pherrors.New(pherrors.ErrorTypeDuplicateIndex, "position index already in use"),
	})
	assert.Equal(t, selection.PhaseAwaitingIndex, v.Phase)
	assert.Equal(t, 2, v.Page)
	assert.Contains(t, v.LastError, "DUPLICATE_INDEX")
}
