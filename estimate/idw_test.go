package estimate

import (
	"math"
	"testing"

	"github.com/paulmach/orb"

	"pctile/pointcloud"
	"pctile/util"
)

func idwKnownPoints() *pointcloud.PointSet {
	var points []pointcloud.Point
	// 5x5 grid with values increasing along x
	for x := 0; x < 5; x++ {
		for y := 0; y < 5; y++ {
			points = append(points, pointcloud.Point{X: float64(x) * 10, Y: float64(y) * 10, Z: float64(x)})
		}
	}
	return pointcloud.NewPointSet(points)
}

func TestIDW_coincidentQueryTakesKnownValueExactly(t *testing.T) {
	// Arrange
	known := idwKnownPoints()

	// Act & Assert: exact for any k and p
	for _, k := range []int{1, 3, 10} {
		for _, p := range []float64{1, 2, 4} {
			values, valid, err := NewIDW(k, p).Estimate(NewContext(), known, []orb.Point{{30, 20}})

			util.AssertNil(t, err)
			util.AssertTrue(t, valid[0])
			util.AssertEqual(t, 3.0, values[0])
		}
	}
}

func TestIDW_estimateStaysWithinKnownValueRange(t *testing.T) {
	// Arrange
	known := idwKnownPoints()
	query := []orb.Point{{13, 17}, {35, 8}, {42, 41}}

	// Act
	values, valid, err := NewIDW(4, 2).Estimate(NewContext(), known, query)

	// Assert: a weighted average can never leave the value range
	util.AssertNil(t, err)
	for i := range query {
		util.AssertTrue(t, valid[i])
		util.AssertTrue(t, values[i] >= 0 && values[i] <= 4)
	}
}

func TestIDW_growingNeighborhoodTendsTowardsGlobalMean(t *testing.T) {
	// Arrange
	known := idwKnownPoints()
	globalMean := 2.0
	query := []orb.Point{{2, 2}}

	// Act
	smallK, _, err := NewIDW(2, 2).Estimate(NewContext(), known, query)
	util.AssertNil(t, err)
	largeK, _, err := NewIDW(25, 2).Estimate(NewContext(), known, query)
	util.AssertNil(t, err)

	// Assert: with all points in the neighborhood the estimate moved towards
	// the global mean
	util.AssertTrue(t, math.Abs(largeK[0]-globalMean) < math.Abs(smallK[0]-globalMean))
}

func TestIDW_invalidConfiguration(t *testing.T) {
	// Arrange
	known := idwKnownPoints()

	// Act & Assert
	_, _, err := NewIDW(0, 2).Estimate(NewContext(), known, []orb.Point{{1, 1}})
	util.AssertError(t, "IDW needs k >= 1 but was configured with k=0", err)

	_, _, err = NewIDW(3, 2).Estimate(NewContext(), pointcloud.Empty(), []orb.Point{{1, 1}})
	util.AssertError(t, "IDW needs at least one known point", err)

	_, _, err = NewIDW(3, 2).Estimate(Context{}, known, []orb.Point{{1, 1}})
	util.AssertError(t, "Estimator 'idw' was invoked outside of a recognized interpolation context", err)
}
