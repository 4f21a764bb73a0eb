// Package selection implements the drag-to-region interaction as an explicit
// state machine. Transitions are computed by Reduce, a pure function; the
// Selector adds coordinate conversion, locking and the registry commit.
package selection

import (
	"math"

	"github.com/a3tai/pdf-placeholder/internal/geometry"
	"github.com/a3tai/pdf-placeholder/internal/placeholder"
)

// Phase names the three states of the machine
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseDragging      Phase = "dragging"
	PhaseAwaitingIndex Phase = "awaiting_index"
)

// State is one of Idle, Dragging or AwaitingIndex
type State interface {
	Phase() Phase
}

// Idle means no gesture is in progress
type Idle struct{}

// Dragging holds an in-progress gesture. Doc points are in document space,
// screen points are kept for visual feedback only.
type Dragging struct {
	Page          int
	Anchor        geometry.Point
	Current       geometry.Point
	AnchorScreen  geometry.Point
	CurrentScreen geometry.Point
}

// AwaitingIndex holds a valid region waiting for its position index.
// LastError is the most recent rejected assignment, if any.
type AwaitingIndex struct {
	Pending   Pending
	LastError error
}

func (Idle) Phase() Phase          { return PhaseIdle }
func (Dragging) Phase() Phase      { return PhaseDragging }
func (AwaitingIndex) Phase() Phase { return PhaseAwaitingIndex }

// ScreenRect is the rectangle spanned by the gesture in screen space
func (d Dragging) ScreenRect() geometry.Rect {
	return geometry.RectFromPoints(d.AnchorScreen, d.CurrentScreen)
}

// Pending is the geometry of a released gesture in document space.
// X is the left edge and CenterY the vertical middle of the selection.
type Pending struct {
	Page     int     `json:"page"`
	X        float64 `json:"x"`
	CenterY  float64 `json:"center_y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	FontSize float64 `json:"font_size"`
}

// Region turns the pending geometry into a manual region with the given index
func (p Pending) Region(index int) placeholder.Region {
	return placeholder.Region{
		PositionIndex: index,
		Page:          p.Page,
		X:             p.X,
		Y:             p.CenterY,
		Width:         p.Width,
		Height:        p.Height,
		FontSize:      p.FontSize,
		Origin:        placeholder.OriginManual,
	}
}

func pendingFrom(page int, a, b geometry.Point) Pending {
	minY, maxY := math.Min(a.Y, b.Y), math.Max(a.Y, b.Y)
	height := maxY - minY
	return Pending{
		Page:     page,
		X:        math.Min(a.X, b.X),
		CenterY:  (minY + maxY) / 2,
		Width:    math.Abs(b.X - a.X),
		Height:   height,
		FontSize: placeholder.FontSizeForHeight(height),
	}
}

// Event is an input to Reduce
type Event interface {
	event()
}

// Press starts a gesture when placement mode is active
type Press struct {
	Page            int
	Doc             geometry.Point
	Screen          geometry.Point
	PlacementActive bool
}

// Move updates the live end point of a gesture
type Move struct {
	Doc    geometry.Point
	Screen geometry.Point
}

// Release ends a gesture
type Release struct {
	Doc    geometry.Point
	Screen geometry.Point
}

// Abort ends a gesture because its surface could no longer be resolved
type Abort struct {
	Err error
}

// Cancel drops any gesture or pending region
type Cancel struct{}

// Rejected reports a refused index assignment
type Rejected struct {
	Err error
}

// Committed reports a successful registry insert
type Committed struct{}

func (Press) event()     {}
func (Move) event()      {}
func (Release) event()   {}
func (Abort) event()     {}
func (Cancel) event()    {}
func (Rejected) event()  {}
func (Committed) event() {}

// Transition is the result of applying one event
type Transition struct {
	State State
	// Changed is false when the event was ignored in the current state
	Changed bool
	// Err carries the reason a gesture was cancelled, such as a too small selection
	Err error
}

// Reduce applies e to s. It never mutates its inputs and has no side effects.
func Reduce(s State, e Event, t placeholder.Thresholds) Transition {
	if s == nil {
		s = Idle{}
	}
	switch st := s.(type) {
	case Idle:
		if ev, ok := e.(Press); ok && ev.PlacementActive {
			return Transition{
				State: Dragging{
					Page:          ev.Page,
					Anchor:        ev.Doc,
					Current:       ev.Doc,
					AnchorScreen:  ev.Screen,
					CurrentScreen: ev.Screen,
				},
				Changed: true,
			}
		}

	case Dragging:
		switch ev := e.(type) {
		case Move:
			st.Current = ev.Doc
			st.CurrentScreen = ev.Screen
			return Transition{State: st, Changed: true}
		case Release:
			p := pendingFrom(st.Page, st.Anchor, ev.Doc)
			if err := t.Check(p.Width, p.Height); err != nil {
				return Transition{State: Idle{}, Changed: true, Err: err}
			}
			return Transition{State: AwaitingIndex{Pending: p}, Changed: true}
		case Abort:
			return Transition{State: Idle{}, Changed: true, Err: ev.Err}
		case Cancel:
			return Transition{State: Idle{}, Changed: true}
		}

	case AwaitingIndex:
		switch ev := e.(type) {
		case Rejected:
			st.LastError = ev.Err
			return Transition{State: st, Changed: true, Err: ev.Err}
		case Committed, Cancel:
			return Transition{State: Idle{}, Changed: true}
		}
	}
	return Transition{State: s}
}
