package estimate

import (
	"testing"

	"github.com/paulmach/orb"

	"pctile/pointcloud"
	"pctile/util"
)

// planarPoints samples the plane z = 2x + 3y + 5, on which linear
// interpolation must be exact.
func planarPoints(coordinates ...[2]float64) *pointcloud.PointSet {
	var points []pointcloud.Point
	for _, c := range coordinates {
		points = append(points, pointcloud.Point{X: c[0], Y: c[1], Z: 2*c[0] + 3*c[1] + 5})
	}
	return pointcloud.NewPointSet(points)
}

func TestTIN_exactInsideTriangle(t *testing.T) {
	// Arrange
	known := planarPoints([2]float64{0, 0}, [2]float64{10, 0}, [2]float64{0, 10}, [2]float64{10, 10})
	query := []orb.Point{{2, 3}, {5, 5}, {7, 1}}

	// Act
	values, valid, err := NewTIN().Estimate(NewContext(), known, query)

	// Assert: barycentric interpolation reproduces the plane exactly
	util.AssertNil(t, err)
	for i, q := range query {
		util.AssertTrue(t, valid[i])
		util.AssertApprox(t, 2*q[0]+3*q[1]+5, values[i], 1e-9)
	}
}

func TestTIN_vertexValuesAreReproduced(t *testing.T) {
	// Arrange
	known := planarPoints([2]float64{0, 0}, [2]float64{10, 0}, [2]float64{0, 10})

	// Act
	values, valid, err := NewTIN().Estimate(NewContext(), known, []orb.Point{{0, 0}, {10, 0}})

	// Assert
	util.AssertNil(t, err)
	util.AssertTrue(t, valid[0] && valid[1])
	util.AssertApprox(t, 5.0, values[0], 1e-9)
	util.AssertApprox(t, 25.0, values[1], 1e-9)
}

func TestTIN_outsideHullFallsBackToFittedInterior(t *testing.T) {
	// Arrange
	known := planarPoints([2]float64{0, 0}, [2]float64{10, 0}, [2]float64{0, 10}, [2]float64{10, 10})
	// One query inside the hull, one far outside next to the inside one
	query := []orb.Point{{9, 9}, {100, 100}}

	// Act
	values, valid, err := NewTIN().Estimate(NewContext(), known, query)

	// Assert: the hull gap is resolved with the value of the nearest fitted
	// query point, not left missing
	util.AssertNil(t, err)
	util.AssertTrue(t, valid[0])
	util.AssertTrue(t, valid[1])
	util.AssertApprox(t, values[0], values[1], 1e-9)
}

func TestTIN_degenerateInputFallsBackToNearestKnown(t *testing.T) {
	// Arrange: two points cannot be triangulated
	known := pointcloud.NewPointSet([]pointcloud.Point{
		{X: 0, Y: 0, Z: 1},
		{X: 10, Y: 0, Z: 9},
	})

	// Act
	values, valid, err := NewTIN().Estimate(NewContext(), known, []orb.Point{{1, 0}, {9, 0}})

	// Assert
	util.AssertNil(t, err)
	util.AssertTrue(t, valid[0] && valid[1])
	util.AssertEqual(t, 1.0, values[0])
	util.AssertEqual(t, 9.0, values[1])
}

func TestTIN_rejectsZeroContext(t *testing.T) {
	// Arrange
	known := planarPoints([2]float64{0, 0}, [2]float64{10, 0}, [2]float64{0, 10})

	// Act
	_, _, err := NewTIN().Estimate(Context{}, known, []orb.Point{{1, 1}})

	// Assert
	util.AssertNotNil(t, err)
	util.AssertError(t, "Estimator 'tin' was invoked outside of a recognized interpolation context", err)
}
