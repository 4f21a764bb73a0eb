package selection

import (
	"sync"

	"github.com/sirupsen/logrus"

	pherrors "github.com/a3tai/pdf-placeholder/internal/errors"
	"github.com/a3tai/pdf-placeholder/internal/geometry"
	"github.com/a3tai/pdf-placeholder/internal/placeholder"
)

// Registry is where committed regions go
type Registry interface {
	Add(region placeholder.Region) (placeholder.Region, error)
}

// Selector drives the state machine from screen-space pointer events
type Selector struct {
	mu         sync.Mutex
	state      State
	placement  bool
	transform  *geometry.Transformer
	registry   Registry
	thresholds placeholder.Thresholds
	onCommit   func(placeholder.Region)
	log        logrus.FieldLogger
}

// Option configures a Selector
type Option func(*Selector)

// WithThresholds sets the minimum accepted selection size
func WithThresholds(t placeholder.Thresholds) Option {
	return func(s *Selector) { s.thresholds = t }
}

// WithCommitHandler registers a callback fired once per committed region
func WithCommitHandler(fn func(placeholder.Region)) Option {
	return func(s *Selector) { s.onCommit = fn }
}

// WithLogger sets the logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Selector) {
		if l != nil {
			s.log = l
		}
	}
}

// NewSelector creates a Selector in the Idle state with placement mode off
func NewSelector(transform *geometry.Transformer, registry Registry, opts ...Option) *Selector {
	s := &Selector{
		state:      Idle{},
		transform:  transform,
		registry:   registry,
		thresholds: placeholder.DefaultThresholds(),
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current state
func (s *Selector) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetPlacementMode toggles whether new gestures may start. A gesture that
// is already running is not affected.
func (s *Selector) SetPlacementMode(active bool) {
	s.mu.Lock()
	s.placement = active
	s.mu.Unlock()
}

// PlacementMode reports whether placement mode is active
func (s *Selector) PlacementMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.placement
}

// PointerDown starts a gesture on page. It is ignored outside placement
// mode and while another gesture or pending region exists.
func (s *Selector) PointerDown(page int, screen, scroll geometry.Point) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, idle := s.state.(Idle); !idle || !s.placement {
		return s.state, nil
	}
	doc, err := s.transform.ToDocument(page, screen, scroll)
	if err != nil {
		return s.state, err
	}
	return s.apply(Press{Page: page, Doc: doc, Screen: screen, PlacementActive: s.placement}), nil
}

// PointerMove updates the live end point of the gesture
func (s *Selector) PointerMove(screen, scroll geometry.Point) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.state.(Dragging)
	if !ok {
		return s.state, nil
	}
	doc, err := s.transform.ToDocument(d.Page, screen, scroll)
	if err != nil {
		return s.abortLocked(err), err
	}
	return s.apply(Move{Doc: doc, Screen: screen}), nil
}

// PointerUp finishes the gesture. Too small selections return to Idle with
// a RegionTooSmall error; valid ones wait in AwaitingIndex.
func (s *Selector) PointerUp(screen, scroll geometry.Point) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.state.(Dragging)
	if !ok {
		return s.state, nil
	}
	doc, err := s.transform.ToDocument(d.Page, screen, scroll)
	if err != nil {
		return s.abortLocked(err), err
	}

	tr := Reduce(s.state, Release{Doc: doc, Screen: screen}, s.thresholds)
	s.state = tr.State
	if tr.Err != nil {
		s.log.WithFields(logrus.Fields{"page": d.Page}).WithError(tr.Err).Warn("Selection discarded")
	}
	return s.state, tr.Err
}

// AssignIndex commits the pending region under index. On an invalid or
// duplicate index the region stays pending so the caller can retry.
func (s *Selector) AssignIndex(index int) (placeholder.Region, error) {
	region, err := s.commit(index)
	if err != nil {
		return placeholder.Region{}, err
	}
	if s.onCommit != nil {
		s.onCommit(region)
	}
	return region, nil
}

func (s *Selector) commit(index int) (placeholder.Region, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	aw, ok := s.state.(AwaitingIndex)
	if !ok {
		return placeholder.Region{}, pherrors.New(pherrors.ErrorTypeInvalidGesture, "no selection is waiting for a position index")
	}
	if index < 1 {
		err := pherrors.Newf(pherrors.ErrorTypeInvalidIndex, "position index %d is not a positive integer", index)
		s.apply(Rejected{Err: err})
		return placeholder.Region{}, err
	}

	region, err := s.registry.Add(aw.Pending.Region(index))
	if err != nil {
		s.apply(Rejected{Err: err})
		return placeholder.Region{}, err
	}
	s.apply(Committed{})

	s.log.WithFields(logrus.Fields{
		"page":           region.Page,
		"position_index": region.PositionIndex,
	}).Debug("Region committed")
	return region, nil
}

// Cancel drops any active gesture or pending region
func (s *Selector) Cancel() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(Cancel{})
}

func (s *Selector) abortLocked(err error) State {
	s.log.WithError(err).Warn("Gesture aborted")
	return s.apply(Abort{Err: err})
}

func (s *Selector) apply(e Event) State {
	s.state = Reduce(s.state, e, s.thresholds).State
	return s.state
}
