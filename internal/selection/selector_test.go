package selection

import (
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pherrors "github.com/a3tai/pdf-placeholder/internal/errors"
	"github.com/a3tai/pdf-placeholder/internal/geometry"
	"github.com/a3tai/pdf-placeholder/internal/placeholder"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type fixture struct {
	layout    *geometry.LiveLayout
	registry  *placeholder.Registry
	selector  *Selector
	committed []placeholder.Region
}

func newFixture(t *testing.T, scale float64) *fixture {
	t.Helper()
	f := &fixture{
		layout:   geometry.NewLiveLayout([]geometry.PageSurface{{PageNumber: 1, Width: 612, Height: 792, DisplayScale: scale}}),
		registry: placeholder.NewRegistry(),
	}
	require.NoError(t, f.layout.Mount(1, geometry.Point{}, scale))
	f.selector = NewSelector(geometry.NewTransformer(f.layout), f.registry,
		WithLogger(quietLogger()),
		WithCommitHandler(func(r placeholder.Region) { f.committed = append(f.committed, r) }),
	)
	f.selector.SetPlacementMode(true)
	return f
}

func (f *fixture) drag(t *testing.T, from, to geometry.Point) (State, error) {
	t.Helper()
	_, err := f.selector.PointerDown(1, from, geometry.Point{})
	require.NoError(t, err)
	_, err = f.selector.PointerMove(to, geometry.Point{})
	require.NoError(t, err)
	return f.selector.PointerUp(to, geometry.Point{})
}

func TestSelector_TooNarrowSelectionIsDiscarded(t *testing.T) {
	f := newFixture(t, 1)

	state, err := f.drag(t, geometry.Point{X: 100, Y: 100}, geometry.Point{X: 105, Y: 104})
	require.Error(t, err)
	assert.True(t, errors.Is(err, pherrors.ErrRegionTooSmall))
	assert.Equal(t, "selection too narrow", pherrors.As(err).Message)
	assert.Equal(t, PhaseIdle, state.Phase())
	assert.Zero(t, f.registry.Len())
	assert.Empty(t, f.committed)
}

func TestSelector_TooShortSelectionIsDiscarded(t *testing.T) {
	f := newFixture(t, 1)

	_, err := f.drag(t, geometry.Point{X: 100, Y: 100}, geometry.Point{X: 200, Y: 104})
	require.Error(t, err)
	assert.Equal(t, "selection too short", pherrors.As(err).Message)
	assert.Equal(t, PhaseIdle, f.selector.State().Phase())
}

func TestSelector_ValidSelectionAwaitsIndex(t *testing.T) {
	tests := []struct {
		name  string
		scale float64
		want  Pending
	}{
		{
			name:  "unit scale",
			scale: 1,
			want:  Pending{Page: 1, X: 100, CenterY: 680, Width: 200, Height: 24, FontSize: 20},
		},
		{
			name:  "zoomed in",
			scale: 2,
			want:  Pending{Page: 1, X: 50, CenterY: 736, Width: 100, Height: 12, FontSize: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.scale)

			// dragging up and to the left yields the same rectangle
			state, err := f.drag(t, geometry.Point{X: 300, Y: 124}, geometry.Point{X: 100, Y: 100})
			require.NoError(t, err)

			aw, ok := state.(AwaitingIndex)
			require.True(t, ok, "got %T", state)
			assert.InDelta(t, tt.want.X, aw.Pending.X, 1e-9)
			assert.InDelta(t, tt.want.CenterY, aw.Pending.CenterY, 1e-9)
			assert.InDelta(t, tt.want.Width, aw.Pending.Width, 1e-9)
			assert.InDelta(t, tt.want.Height, aw.Pending.Height, 1e-9)
			assert.InDelta(t, tt.want.FontSize, aw.Pending.FontSize, 1e-6)
			assert.Zero(t, f.registry.Len(), "nothing is committed before an index is given")
		})
	}
}

func TestSelector_AssignIndex(t *testing.T) {
	f := newFixture(t, 1)
	_, err := f.registry.Add(placeholder.Region{PositionIndex: 3, Page: 1, X: 10, Y: 10, Width: 50, Height: 12})
	require.NoError(t, err)

	_, err = f.drag(t, geometry.Point{X: 100, Y: 100}, geometry.Point{X: 300, Y: 124})
	require.NoError(t, err)

	t.Run("duplicate index keeps the pending region", func(t *testing.T) {
		_, err := f.selector.AssignIndex(3)
		assert.True(t, errors.Is(err, pherrors.ErrDuplicateIndex))

		aw, ok := f.selector.State().(AwaitingIndex)
		require.True(t, ok)
		assert.True(t, errors.Is(aw.LastError, pherrors.ErrDuplicateIndex))
		assert.Equal(t, 1, f.registry.Len())
	})

	t.Run("non positive index is rejected", func(t *testing.T) {
		_, err := f.selector.AssignIndex(0)
		assert.True(t, errors.Is(err, pherrors.ErrInvalidIndex))
		assert.Equal(t, PhaseAwaitingIndex, f.selector.State().Phase())
	})

	t.Run("free index commits", func(t *testing.T) {
		region, err := f.selector.AssignIndex(4)
		require.NoError(t, err)
		assert.Equal(t, 4, region.PositionIndex)
		assert.Equal(t, placeholder.OriginManual, region.Origin)
		assert.InDelta(t, region.Height/placeholder.LineHeightRatio, region.FontSize, 1e-6)
		assert.NotEmpty(t, region.ID)

		assert.Equal(t, PhaseIdle, f.selector.State().Phase())
		assert.Equal(t, 2, f.registry.Len())
		require.Len(t, f.committed, 1)
		assert.Equal(t, region, f.committed[0])
	})

	t.Run("nothing pending", func(t *testing.T) {
		_, err := f.selector.AssignIndex(5)
		assert.True(t, errors.Is(err, pherrors.ErrInvalidGesture))
		assert.Len(t, f.committed, 1)
	})
}

func TestSelector_CancelPending(t *testing.T) {
	f := newFixture(t, 1)
	_, err := f.drag(t, geometry.Point{X: 100, Y: 100}, geometry.Point{X: 300, Y: 124})
	require.NoError(t, err)

	assert.Equal(t, PhaseIdle, f.selector.Cancel().Phase())
	assert.Zero(t, f.registry.Len())
	assert.Empty(t, f.committed)
}

func TestSelector_PlacementModeGate(t *testing.T) {
	f := newFixture(t, 1)
	f.selector.SetPlacementMode(false)
	assert.False(t, f.selector.PlacementMode())

	state, err := f.selector.PointerDown(1, geometry.Point{X: 10, Y: 10}, geometry.Point{})
	require.NoError(t, err)
	assert.Equal(t, PhaseIdle, state.Phase())
}

func TestSelector_SecondPressIsIgnored(t *testing.T) {
	f := newFixture(t, 1)

	_, err := f.selector.PointerDown(1, geometry.Point{X: 10, Y: 10}, geometry.Point{})
	require.NoError(t, err)
	state, err := f.selector.PointerDown(1, geometry.Point{X: 400, Y: 400}, geometry.Point{})
	require.NoError(t, err)

	d, ok := state.(Dragging)
	require.True(t, ok)
	assert.Equal(t, geometry.Point{X: 10, Y: 10}, d.AnchorScreen)
}

func TestSelector_SurfaceLostMidDrag(t *testing.T) {
	f := newFixture(t, 1)

	_, err := f.selector.PointerDown(1, geometry.Point{X: 10, Y: 10}, geometry.Point{})
	require.NoError(t, err)

	f.layout.Unmount(1)
	state, err := f.selector.PointerMove(geometry.Point{X: 200, Y: 50}, geometry.Point{})
	assert.True(t, errors.Is(err, pherrors.ErrSurfaceNotMounted))
	assert.Equal(t, PhaseIdle, state.Phase())
}

func TestSelector_PressOnUnmountedSurface(t *testing.T) {
	f := newFixture(t, 1)
	f.layout.Unmount(1)

	state, err := f.selector.PointerDown(1, geometry.Point{X: 10, Y: 10}, geometry.Point{})
	assert.True(t, errors.Is(err, pherrors.ErrSurfaceNotMounted))
	assert.Equal(t, PhaseIdle, state.Phase())
}

func TestSelector_MoveExposesScreenRect(t *testing.T) {
	f := newFixture(t, 1)

	_, err := f.selector.PointerDown(1, geometry.Point{X: 300, Y: 120}, geometry.Point{})
	require.NoError(t, err)
	state, err := f.selector.PointerMove(geometry.Point{X: 100, Y: 100}, geometry.Point{})
	require.NoError(t, err)

	d := state.(Dragging)
	assert.Equal(t, geometry.Rect{X: 100, Y: 100, Width: 200, Height: 20}, d.ScreenRect())
}

func TestReduce_IgnoredEvents(t *testing.T) {
	th := placeholder.DefaultThresholds()
	pending := AwaitingIndex{Pending: Pending{Page: 1, Width: 40, Height: 12}}

	tests := []struct {
		name  string
		state State
		event Event
	}{
		{"press without placement mode", Idle{}, Press{Page: 1}},
		{"move while idle", Idle{}, Move{}},
		{"release while idle", Idle{}, Release{}},
		{"press while dragging", Dragging{Page: 1}, Press{Page: 2, PlacementActive: true}},
		{"press while awaiting index", pending, Press{Page: 1, PlacementActive: true}},
		{"move while awaiting index", pending, Move{}},
		{"commit while dragging", Dragging{Page: 1}, Committed{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := Reduce(tt.state, tt.event, th)
			assert.False(t, tr.Changed)
			assert.Equal(t, tt.state, tr.State)
			assert.NoError(t, tr.Err)
		})
	}
}

func TestReduce_IsPure(t *testing.T) {
	th := placeholder.DefaultThresholds()
	start := Dragging{Page: 1, Anchor: geometry.Point{X: 10, Y: 10}, Current: geometry.Point{X: 10, Y: 10}}
	release := Release{Doc: geometry.Point{X: 110, Y: 40}}

	first := Reduce(start, release, th)
	second := Reduce(start, release, th)
	assert.Equal(t, first, second)
	assert.Equal(t, geometry.Point{X: 10, Y: 10}, start.Current)

	aw, ok := first.State.(AwaitingIndex)
	require.True(t, ok)
	assert.InDelta(t, 25.0, aw.Pending.CenterY, 1e-9)
}

func TestReduce_NilStateIsIdle(t *testing.T) {
	tr := Reduce(nil, Press{Page: 2, PlacementActive: true}, placeholder.DefaultThresholds())
	assert.Equal(t, PhaseDragging, tr.State.Phase())
}
