package placeholder

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pherrors "github.com/a3tai/pdf-placeholder/internal/errors"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("region-%d", n)
	}
}

func region(page, index int) Region {
	return Region{PositionIndex: index, Page: page, X: 72, Y: 700, Width: 120, Height: 24}
}

func TestRegistry_Add(t *testing.T) {
	reg := NewRegistry(WithIDGenerator(sequentialIDs()))

	added, err := reg.Add(region(1, 3))
	require.NoError(t, err)
	assert.Equal(t, "region-1", added.ID)
	assert.Equal(t, OriginManual, added.Origin)
	assert.InDelta(t, 20.0, added.FontSize, 1e-9)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_AddDuplicateIndex(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Add(region(1, 3))
	require.NoError(t, err)

	_, err = reg.Add(region(2, 3))
	require.Error(t, err)
	assert.True(t, errors.Is(err, pherrors.ErrDuplicateIndex))
	assert.Equal(t, 3, pherrors.As(err).PositionIndex)
	assert.Equal(t, 1, reg.Len())
	assert.Empty(t, slices.Collect(reg.ListByPage(2)))
}

func TestRegistry_AddRejectsInvalidRegions(t *testing.T) {
	tests := []struct {
		name     string
		region   Region
		wantType pherrors.ErrorType
		wantMsg  string
	}{
		{
			name:     "zero index",
			region:   Region{PositionIndex: 0, Page: 1, Width: 50, Height: 20},
			wantType: pherrors.ErrorTypeInvalidIndex,
		},
		{
			name:     "negative index",
			region:   Region{PositionIndex: -2, Page: 1, Width: 50, Height: 20},
			wantType: pherrors.ErrorTypeInvalidIndex,
		},
		{
			name:     "too narrow",
			region:   Region{PositionIndex: 1, Page: 1, Width: 19.9, Height: 20},
			wantType: pherrors.ErrorTypeRegionTooSmall,
			wantMsg:  "selection too narrow",
		},
		{
			name:     "too short",
			region:   Region{PositionIndex: 1, Page: 1, Width: 50, Height: 7},
			wantType: pherrors.ErrorTypeRegionTooSmall,
			wantMsg:  "selection too short",
		},
		{
			name:     "narrow wins over short",
			region:   Region{PositionIndex: 1, Page: 1, Width: 5, Height: 4},
			wantType: pherrors.ErrorTypeRegionTooSmall,
			wantMsg:  "selection too narrow",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			_, err := reg.Add(tt.region)
			require.Error(t, err)
			assert.Equal(t, tt.wantType, pherrors.TypeOf(err))
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, pherrors.As(err).Message)
			}
			assert.Zero(t, reg.Len())
		})
	}
}

func TestRegistry_CustomThresholds(t *testing.T) {
	reg := NewRegistry(WithThresholds(Thresholds{MinWidth: 5, MinHeight: 5}))
	_, err := reg.Add(Region{PositionIndex: 1, Page: 1, Width: 6, Height: 6})
	assert.NoError(t, err)
}

func TestRegistry_Remove(t *testing.T) {
	reg := NewRegistry()
	added, err := reg.Add(region(1, 1))
	require.NoError(t, err)

	reg.Remove(added.ID)
	assert.Zero(t, reg.Len())

	// removing again is a no-op
	reg.Remove(added.ID)
	reg.Remove("does-not-exist")
	assert.Zero(t, reg.Len())

	// the index is free again
	_, err = reg.Add(region(1, 1))
	assert.NoError(t, err)
}

func TestRegistry_Update(t *testing.T) {
	reg := NewRegistry()
	first, err := reg.Add(region(1, 1))
	require.NoError(t, err)
	second, err := reg.Add(region(1, 2))
	require.NoError(t, err)

	t.Run("same index is not a self conflict", func(t *testing.T) {
		idx := 1
		updated, err := reg.Update(first.ID, Patch{PositionIndex: &idx})
		require.NoError(t, err)
		assert.Equal(t, 1, updated.PositionIndex)
	})

	t.Run("conflicting index is rejected", func(t *testing.T) {
		idx := 2
		_, err := reg.Update(first.ID, Patch{PositionIndex: &idx})
		assert.True(t, errors.Is(err, pherrors.ErrDuplicateIndex))

		got, ok := reg.Get(first.ID)
		require.True(t, ok)
		assert.Equal(t, 1, got.PositionIndex)
	})

	t.Run("height change refreshes font size", func(t *testing.T) {
		h := 36.0
		updated, err := reg.Update(second.ID, Patch{Height: &h})
		require.NoError(t, err)
		assert.InDelta(t, 30.0, updated.FontSize, 1e-9)
	})

	t.Run("shrinking below minimum is rejected", func(t *testing.T) {
		w := 3.0
		_, err := reg.Update(second.ID, Patch{Width: &w})
		assert.True(t, errors.Is(err, pherrors.ErrRegionTooSmall))

		got, _ := reg.Get(second.ID)
		assert.Equal(t, 120.0, got.Width)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := reg.Update("missing", Patch{})
		assert.True(t, errors.Is(err, pherrors.ErrRegionNotFound))
	})
}

func TestRegistry_ListByPage(t *testing.T) {
	reg := NewRegistry()
	for _, r := range []Region{region(2, 4), region(1, 2), region(2, 1), region(1, 3)} {
		_, err := reg.Add(r)
		require.NoError(t, err)
	}

	var indices []int
	for r := range reg.ListByPage(2) {
		indices = append(indices, r.PositionIndex)
	}
	assert.Equal(t, []int{4, 1}, indices)

	seq := reg.ListByPage(1)
	reg.Reset()
	assert.Len(t, slices.Collect(seq), 2, "sequence iterates the snapshot")
	assert.Empty(t, slices.Collect(reg.ListByPage(1)))
}

func TestRegistry_ListByPageStopsEarly(t *testing.T) {
	reg := NewRegistry()
	for i := 1; i <= 3; i++ {
		_, err := reg.Add(region(1, i))
		require.NoError(t, err)
	}

	count := 0
	for range reg.ListByPage(1) {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestRegistry_AllOrdering(t *testing.T) {
	reg := NewRegistry()
	for _, r := range []Region{region(2, 4), region(1, 5), region(2, 1), region(1, 3)} {
		_, err := reg.Add(r)
		require.NoError(t, err)
	}

	var got [][2]int
	for _, r := range reg.All() {
		got = append(got, [2]int{r.Page, r.PositionIndex})
	}
	assert.Equal(t, [][2]int{{1, 3}, {1, 5}, {2, 1}, {2, 4}}, got)
}

func TestRegistry_Lookups(t *testing.T) {
	reg := NewRegistry()
	assert.Equal(t, 1, reg.NextFreeIndex())

	_, err := reg.Add(region(1, 1))
	require.NoError(t, err)
	_, err = reg.Add(region(1, 3))
	require.NoError(t, err)

	assert.True(t, reg.HasIndex(3))
	assert.False(t, reg.HasIndex(2))
	assert.Equal(t, 2, reg.NextFreeIndex())

	r, ok := reg.ByIndex(3)
	require.True(t, ok)
	assert.Equal(t, 3, r.PositionIndex)

	_, ok = reg.ByIndex(9)
	assert.False(t, ok)
}

func TestRegistry_ConcurrentAddKeepsIndicesUnique(t *testing.T) {
	reg := NewRegistry()

	const workers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			// every worker competes for the same four indices
			if _, err := reg.Add(region(1+w%2, 1+w%4)); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 4, succeeded)
	seen := map[int]bool{}
	for _, r := range reg.All() {
		assert.False(t, seen[r.PositionIndex], "index %d stored twice", r.PositionIndex)
		seen[r.PositionIndex] = true
	}
}

func TestRegion_PlaceholderText(t *testing.T) {
	assert.Equal(t, "(7)", Region{PositionIndex: 7}.PlaceholderText())
	assert.Equal(t, "__(7)__", Region{PositionIndex: 7, Token: "__(7)__"}.PlaceholderText())
	assert.InDelta(t, 132.0, region(1, 1).CenterX(), 1e-9)
}
