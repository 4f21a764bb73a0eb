package placeholder

import (
	"iter"
	"sort"
	"sync"

	"github.com/google/uuid"

	pherrors "github.com/a3tai/pdf-placeholder/internal/errors"
)

// Registry is the authoritative set of regions for one document.
// All methods are safe for concurrent use; every mutation is atomic with
// respect to the position-index uniqueness check.
type Registry struct {
	mu         sync.RWMutex
	regions    []Region
	thresholds Thresholds
	newID      func() string
}

// Option configures a Registry
type Option func(*Registry)

// WithThresholds overrides the minimum region dimensions
func WithThresholds(t Thresholds) Option {
	return func(r *Registry) {
		r.thresholds = t
	}
}

// WithIDGenerator replaces the uuid-based id source
func WithIDGenerator(gen func() string) Option {
	return func(r *Registry) {
		if gen != nil {
			r.newID = gen
		}
	}
}

// NewRegistry creates an empty registry
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		thresholds: DefaultThresholds(),
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Thresholds returns the minimum dimensions the registry enforces
func (r *Registry) Thresholds() Thresholds {
	return r.thresholds
}

// Add validates and inserts a region, returning it with its assigned id and
// derived font size. On error the registry is unchanged.
func (r *Registry) Add(region Region) (Region, error) {
	if err := region.validate(r.thresholds); err != nil {
		return Region{}, err
	}
	if region.Origin == "" {
		region.Origin = OriginManual
	}
	region.FontSize = FontSizeForHeight(region.Height)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexTakenLocked(region.PositionIndex, "") {
		return Region{}, duplicateIndexError(region.PositionIndex)
	}
	region.ID = r.newID()
	r.regions = append(r.regions, region)
	return region, nil
}

// Remove deletes the region with the given id. Unknown ids are a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.regions {
		if r.regions[i].ID == id {
			r.regions = append(r.regions[:i], r.regions[i+1:]...)
			return
		}
	}
}

// Patch lists the region fields an update may change. Nil fields are kept.
type Patch struct {
	PositionIndex *int     `json:"position_index,omitempty"`
	X             *float64 `json:"x,omitempty"`
	Y             *float64 `json:"y,omitempty"`
	Width         *float64 `json:"width,omitempty"`
	Height        *float64 `json:"height,omitempty"`
}

// Update applies patch to the region with the given id, re-checking geometry
// and index uniqueness against every other region.
func (r *Registry) Update(id string, patch Patch) (Region, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos := r.findLocked(id)
	if pos < 0 {
		return Region{}, pherrors.New(pherrors.ErrorTypeRegionNotFound, "region not found").WithContext(id)
	}

	updated := r.regions[pos]
	if patch.PositionIndex != nil {
		updated.PositionIndex = *patch.PositionIndex
	}
	if patch.X != nil {
		updated.X = *patch.X
	}
	if patch.Y != nil {
		updated.Y = *patch.Y
	}
	if patch.Width != nil {
		updated.Width = *patch.Width
	}
	if patch.Height != nil {
		updated.Height = *patch.Height
		updated.FontSize = FontSizeForHeight(updated.Height)
	}

	if err := updated.validate(r.thresholds); err != nil {
		return Region{}, err
	}
	if r.indexTakenLocked(updated.PositionIndex, id) {
		return Region{}, duplicateIndexError(updated.PositionIndex)
	}
	r.regions[pos] = updated
	return updated, nil
}

// Get returns the region with the given id
func (r *Registry) Get(id string) (Region, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if pos := r.findLocked(id); pos >= 0 {
		return r.regions[pos], true
	}
	return Region{}, false
}

// ByIndex returns the region holding the given position index
func (r *Registry) ByIndex(index int) (Region, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, region := range r.regions {
		if region.PositionIndex == index {
			return region, true
		}
	}
	return Region{}, false
}

// HasIndex reports whether a position index is already in use
func (r *Registry) HasIndex(index int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.indexTakenLocked(index, "")
}

// NextFreeIndex returns the smallest positive index not yet in use
func (r *Registry) NextFreeIndex() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	used := make(map[int]struct{}, len(r.regions))
	for _, region := range r.regions {
		used[region.PositionIndex] = struct{}{}
	}
	for i := 1; ; i++ {
		if _, ok := used[i]; !ok {
			return i
		}
	}
}

// ListByPage yields the regions on one page in insertion order. The sequence
// iterates over a snapshot taken when it is called.
func (r *Registry) ListByPage(page int) iter.Seq[Region] {
	r.mu.RLock()
	snapshot := make([]Region, 0, len(r.regions))
	for _, region := range r.regions {
		if region.Page == page {
			snapshot = append(snapshot, region)
		}
	}
	r.mu.RUnlock()

	return func(yield func(Region) bool) {
		for _, region := range snapshot {
			if !yield(region) {
				return
			}
		}
	}
}

// All returns every region ordered by page, then position index
func (r *Registry) All() []Region {
	r.mu.RLock()
	out := make([]Region, len(r.regions))
	copy(out, r.regions)
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Page != out[j].Page {
			return out[i].Page < out[j].Page
		}
		return out[i].PositionIndex < out[j].PositionIndex
	})
	return out
}

// Len returns the number of regions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.regions)
}

// Reset removes every region
func (r *Registry) Reset() {
	r.mu.Lock()
	r.regions = nil
	r.mu.Unlock()
}

func (r *Registry) findLocked(id string) int {
	for i := range r.regions {
		if r.regions[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *Registry) indexTakenLocked(index int, exceptID string) bool {
	for _, region := range r.regions {
		if region.PositionIndex == index && region.ID != exceptID {
			return true
		}
	}
	return false
}

func duplicateIndexError(index int) *pherrors.Error {
	return pherrors.New(pherrors.ErrorTypeDuplicateIndex, "position index already in use").
		WithPositionIndex(index)
}
