package estimate

import (
	"math"

	"github.com/fogleman/delaunay"
	"github.com/paulmach/orb"

	"pctile/pointcloud"
)

// TIN interpolates linearly on a Delaunay triangulation of the known points.
// Query points inside the triangulated hull get the barycentric interpolation
// of their enclosing triangle. Points outside the hull are re-estimated with a
// 1-nearest-neighbor lookup over the query points that did receive a
// triangulated value, so extrapolation follows the fitted interior and not the
// raw inputs.
type TIN struct{}

func NewTIN() *TIN {
	return &TIN{}
}

func (t *TIN) Name() string {
	return "tin"
}

func (t *TIN) Estimate(ctx Context, known *pointcloud.PointSet, query []orb.Point) ([]float64, []bool, error) {
	if !ctx.Valid() {
		return nil, nil, &ContextViolationError{Estimator: t.Name()}
	}

	values := make([]float64, len(query))
	valid := make([]bool, len(query))

	if known.IsEmpty() || len(query) == 0 {
		return values, valid, nil
	}

	triangulation := triangulate(known)
	if triangulation != nil {
		for i, q := range query {
			values[i], valid[i] = triangulation.interpolate(q)
		}
	}

	fallbackToFitted(known, query, values, valid)
	return values, valid, nil
}

type tinSurface struct {
	points    []delaunay.Point
	z         []float64
	triangles []int
}

// triangulate builds the Delaunay triangulation over the known points.
// Returns nil for degenerate input (fewer than 3 points or all collinear),
// callers then fall back to nearest-neighbor estimation for every query point.
func triangulate(known *pointcloud.PointSet) *tinSurface {
	if known.Len() < 3 {
		return nil
	}

	points := make([]delaunay.Point, known.Len())
	z := make([]float64, known.Len())
	for i, p := range known.Points() {
		points[i] = delaunay.Point{X: p.X, Y: p.Y}
		z[i] = p.Z
	}

	triangulation, err := delaunay.Triangulate(points)
	if err != nil || len(triangulation.Triangles) == 0 {
		return nil
	}

	return &tinSurface{
		points:    points,
		z:         z,
		triangles: triangulation.Triangles,
	}
}

const barycentricEpsilon = 1e-9

// interpolate returns the linear interpolation of q on the surface, or false
// if q lies outside the triangulated hull.
func (s *tinSurface) interpolate(q orb.Point) (float64, bool) {
	for i := 0; i < len(s.triangles); i += 3 {
		a := s.points[s.triangles[i]]
		b := s.points[s.triangles[i+1]]
		c := s.points[s.triangles[i+2]]

		det := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
		if det == 0 {
			continue
		}

		l1 := ((b.Y-c.Y)*(q[0]-c.X) + (c.X-b.X)*(q[1]-c.Y)) / det
		l2 := ((c.Y-a.Y)*(q[0]-c.X) + (a.X-c.X)*(q[1]-c.Y)) / det
		l3 := 1 - l1 - l2

		if l1 < -barycentricEpsilon || l2 < -barycentricEpsilon || l3 < -barycentricEpsilon {
			continue
		}

		return l1*s.z[s.triangles[i]] + l2*s.z[s.triangles[i+1]] + l3*s.z[s.triangles[i+2]], true
	}

	return 0, false
}

// fallbackToFitted resolves every invalid query point with the value of its
// nearest valid query point. The first point encountered at minimum distance
// wins ties. If no query point received a triangulated value at all (e.g.
// degenerate input), the nearest raw known point is used instead, so no
// estimation gap survives.
func fallbackToFitted(known *pointcloud.PointSet, query []orb.Point, values []float64, valid []bool) {
	var fittedPoints []orb.Point
	var fittedValues []float64
	for i, ok := range valid {
		if ok {
			fittedPoints = append(fittedPoints, query[i])
			fittedValues = append(fittedValues, values[i])
		}
	}

	for i, ok := range valid {
		if ok {
			continue
		}

		if len(fittedPoints) > 0 {
			nearest := nearestIndex(fittedPoints, query[i])
			values[i] = fittedValues[nearest]
		} else {
			values[i] = nearestKnownValue(known, query[i])
		}
		valid[i] = true
	}
}

func nearestIndex(points []orb.Point, q orb.Point) int {
	best := 0
	bestDistance := math.Inf(1)
	for i, p := range points {
		dx := p[0] - q[0]
		dy := p[1] - q[1]
		distance := dx*dx + dy*dy
		if distance < bestDistance {
			bestDistance = distance
			best = i
		}
	}
	return best
}

func nearestKnownValue(known *pointcloud.PointSet, q orb.Point) float64 {
	bestValue := 0.0
	bestDistance := math.Inf(1)
	for _, p := range known.Points() {
		dx := p.X - q[0]
		dy := p.Y - q[1]
		distance := dx*dx + dy*dy
		if distance < bestDistance {
			bestDistance = distance
			bestValue = p.Z
		}
	}
	return bestValue
}
