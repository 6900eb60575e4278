package pointcloud

import (
	"github.com/paulmach/orb"
)

// Point is a single record of a point cloud. The Buffer flag marks points that
// belong to the overlap margin of a tile and must not survive into final results.
type Point struct {
	X              float64
	Y              float64
	Z              float64
	Classification uint8
	Buffer         bool
}

func (p Point) XY() orb.Point {
	return orb.Point{p.X, p.Y}
}

// PointSet is an ordered collection of points. A PointSet is never modified
// after creation, every filtering or merging step returns a new one.
type PointSet struct {
	points []Point
}

func NewPointSet(points []Point) *PointSet {
	return &PointSet{points: points}
}

func Empty() *PointSet {
	return &PointSet{}
}

func (ps *PointSet) Len() int {
	return len(ps.points)
}

func (ps *PointSet) IsEmpty() bool {
	return ps == nil || len(ps.points) == 0
}

func (ps *PointSet) Get(i int) Point {
	return ps.points[i]
}

// Points returns the underlying records. Callers must not modify the returned slice.
func (ps *PointSet) Points() []Point {
	return ps.points
}

func (ps *PointSet) Filter(predicate func(Point) bool) *PointSet {
	var result []Point
	for _, p := range ps.points {
		if predicate(p) {
			result = append(result, p)
		}
	}
	return NewPointSet(result)
}

// WithoutBuffer removes all points tagged as buffer points. Per-chunk workloads
// call this before handing their result back so that overlapping margins never
// appear twice in assembled output.
func (ps *PointSet) WithoutBuffer() *PointSet {
	return ps.Filter(func(p Point) bool {
		return !p.Buffer
	})
}

func (ps *PointSet) Merge(other *PointSet) *PointSet {
	if other.IsEmpty() {
		return ps
	}
	if ps.IsEmpty() {
		return other
	}

	merged := make([]Point, 0, len(ps.points)+len(other.points))
	merged = append(merged, ps.points...)
	merged = append(merged, other.points...)
	return NewPointSet(merged)
}

// SelectXYZ drops all extra attributes and keeps only the coordinates of each
// point. The buffer tag is kept, it is positional information and no attribute.
func (ps *PointSet) SelectXYZ() *PointSet {
	selected := make([]Point, len(ps.points))
	for i, p := range ps.points {
		selected[i] = Point{X: p.X, Y: p.Y, Z: p.Z, Buffer: p.Buffer}
	}
	return NewPointSet(selected)
}

func (ps *PointSet) Bound() orb.Bound {
	if ps.IsEmpty() {
		return orb.Bound{}
	}

	bound := orb.Bound{Min: ps.points[0].XY(), Max: ps.points[0].XY()}
	for _, p := range ps.points[1:] {
		bound = bound.Extend(p.XY())
	}
	return bound
}
