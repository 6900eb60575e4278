package pointcloud

import (
	"testing"

	"github.com/paulmach/orb"

	"pctile/util"
)

func TestPointSet_filter(t *testing.T) {
	// Arrange
	ps := NewPointSet([]Point{
		{X: 1, Y: 1, Z: 10},
		{X: 2, Y: 2, Z: 20},
		{X: 3, Y: 3, Z: 30},
	})

	// Act
	filtered := ps.Filter(func(p Point) bool { return p.Z >= 20 })

	// Assert
	util.AssertEqual(t, 2, filtered.Len())
	util.AssertEqual(t, 20.0, filtered.Get(0).Z)
	util.AssertEqual(t, 30.0, filtered.Get(1).Z)
	// Original set stays untouched
	util.AssertEqual(t, 3, ps.Len())
}

func TestPointSet_withoutBuffer(t *testing.T) {
	// Arrange
	ps := NewPointSet([]Point{
		{X: 1, Y: 1, Z: 1, Buffer: true},
		{X: 2, Y: 2, Z: 2},
		{X: 3, Y: 3, Z: 3, Buffer: true},
		{X: 4, Y: 4, Z: 4},
	})

	// Act
	trimmed := ps.WithoutBuffer()

	// Assert
	util.AssertEqual(t, 2, trimmed.Len())
	util.AssertEqual(t, 2.0, trimmed.Get(0).X)
	util.AssertEqual(t, 4.0, trimmed.Get(1).X)
}

func TestPointSet_merge(t *testing.T) {
	// Arrange
	a := NewPointSet([]Point{{X: 1}, {X: 2}})
	b := NewPointSet([]Point{{X: 3}})

	// Act
	merged := a.Merge(b)

	// Assert
	util.AssertEqual(t, 3, merged.Len())
	util.AssertEqual(t, 1.0, merged.Get(0).X)
	util.AssertEqual(t, 3.0, merged.Get(2).X)

	// Merging with an empty set returns the non-empty one unchanged
	util.AssertEqual(t, 3, merged.Merge(Empty()).Len())
	util.AssertEqual(t, 3, Empty().Merge(merged).Len())
}

func TestPointSet_bound(t *testing.T) {
	// Arrange
	ps := NewPointSet([]Point{
		{X: 5, Y: 2},
		{X: 1, Y: 8},
		{X: 3, Y: 4},
	})

	// Act
	bound := ps.Bound()

	// Assert
	util.AssertEqual(t, orb.Point{1, 2}, bound.Min)
	util.AssertEqual(t, orb.Point{5, 8}, bound.Max)
}

func TestPointSet_selectXYZ(t *testing.T) {
	// Arrange
	ps := NewPointSet([]Point{
		{X: 1, Y: 2, Z: 3, Classification: 2, Buffer: true},
	})

	// Act
	selected := ps.SelectXYZ()

	// Assert
	util.AssertEqual(t, uint8(0), selected.Get(0).Classification)
	util.AssertEqual(t, 3.0, selected.Get(0).Z)
	util.AssertTrue(t, selected.Get(0).Buffer)
}
