package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pherrors "github.com/a3tai/pdf-placeholder/internal/errors"
)

func TestScreenToDocument(t *testing.T) {
	tests := []struct {
		name       string
		screen     Point
		origin     Point
		scroll     Point
		scale      float64
		pageHeight float64
		want       Point
	}{
		{
			name:       "unit scale at origin",
			screen:     Point{X: 0, Y: 0},
			scale:      1,
			pageHeight: 792,
			want:       Point{X: 0, Y: 792},
		},
		{
			name:       "offset surface",
			screen:     Point{X: 150, Y: 300},
			origin:     Point{X: 50, Y: 100},
			scale:      1,
			pageHeight: 792,
			want:       Point{X: 100, Y: 592},
		},
		{
			name:       "scrolled and zoomed",
			screen:     Point{X: 150, Y: 300},
			origin:     Point{X: 50, Y: 100},
			scroll:     Point{X: 0, Y: 200},
			scale:      2,
			pageHeight: 792,
			want:       Point{X: 50, Y: 592},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ScreenToDocument(tt.screen, tt.origin, tt.scroll, tt.scale, tt.pageHeight)
			require.NoError(t, err)
			assert.InDelta(t, tt.want.X, got.X, 1e-9)
			assert.InDelta(t, tt.want.Y, got.Y, 1e-9)
		})
	}
}

func TestScreenToDocument_InvalidScale(t *testing.T) {
	_, err := ScreenToDocument(Point{}, Point{}, Point{}, 0, 792)
	assert.Error(t, err)
}

func TestDocumentToScreen_RoundTrip(t *testing.T) {
	origin := Point{X: 12, Y: 40}
	scroll := Point{X: 3, Y: 90}
	screen := Point{X: 210.5, Y: 377.25}

	doc, err := ScreenToDocument(screen, origin, scroll, 1.5, 842)
	require.NoError(t, err)
	back, err := DocumentToScreen(doc, origin, scroll, 1.5, 842)
	require.NoError(t, err)

	assert.InDelta(t, screen.X, back.X, 1e-9)
	assert.InDelta(t, screen.Y, back.Y, 1e-9)
}

func TestRectFromPoints(t *testing.T) {
	r := RectFromPoints(Point{X: 30, Y: 5}, Point{X: 10, Y: 25})
	assert.Equal(t, Rect{X: 10, Y: 5, Width: 20, Height: 20}, r)
	assert.Equal(t, 30.0, r.MaxX())
	assert.Equal(t, 15.0, r.CenterY())
}

func TestTransformer_NotMounted(t *testing.T) {
	layout := NewLiveLayout([]PageSurface{{PageNumber: 1, Width: 612, Height: 792, DisplayScale: 1}})
	tr := NewTransformer(layout)

	_, err := tr.ToDocument(1, Point{X: 10, Y: 10}, Point{})
	assert.ErrorIs(t, err, pherrors.ErrSurfaceNotMounted)

	_, err = tr.ToDocument(7, Point{X: 10, Y: 10}, Point{})
	assert.ErrorIs(t, err, pherrors.ErrSurfaceNotMounted)

	_, err = NewTransformer(nil).ToDocument(1, Point{}, Point{})
	assert.ErrorIs(t, err, pherrors.ErrSurfaceNotMounted)
}

func TestTransformer_ReadsLiveGeometry(t *testing.T) {
	layout := NewLiveLayout([]PageSurface{{PageNumber: 1, Width: 612, Height: 792, DisplayScale: 1}})
	tr := NewTransformer(layout)

	require.NoError(t, layout.Mount(1, Point{X: 0, Y: 0}, 1))
	before, err := tr.ToDocument(1, Point{X: 100, Y: 100}, Point{})
	require.NoError(t, err)

	// Full-screen toggle: the surface moves and grows.
	require.NoError(t, layout.Mount(1, Point{X: 100, Y: 50}, 2))
	after, err := tr.ToDocument(1, Point{X: 100, Y: 100}, Point{})
	require.NoError(t, err)

	assert.Equal(t, Point{X: 100, Y: 692}, before)
	assert.Equal(t, Point{X: 0, Y: 767}, after)

	// Same input, same output.
	again, err := tr.ToDocument(1, Point{X: 100, Y: 100}, Point{})
	require.NoError(t, err)
	assert.Equal(t, after, again)

	layout.Unmount(1)
	_, err = tr.ToDocument(1, Point{X: 100, Y: 100}, Point{})
	assert.ErrorIs(t, err, pherrors.ErrSurfaceNotMounted)
}

func TestLiveLayout_MountUnknownPage(t *testing.T) {
	layout := NewLiveLayout([]PageSurface{{PageNumber: 1, Width: 612, Height: 792}})
	assert.Error(t, layout.Mount(2, Point{}, 1))

	require.NoError(t, layout.Mount(1, Point{}, 0))
	p, err := layout.Locate(1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, p.DisplayScale)
}

func TestLiveLayout_SurfacesOrdered(t *testing.T) {
	layout := NewLiveLayout([]PageSurface{{PageNumber: 3}, {PageNumber: 1}, {PageNumber: 2}})
	surfaces := layout.Surfaces()
	require.Len(t, surfaces, 3)
	for i, s := range surfaces {
		assert.Equal(t, i+1, s.PageNumber)
	}
}
