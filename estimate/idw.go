package estimate

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	"pctile/pointcloud"
)

// IDW estimates each query point as the inverse-distance-weighted average of
// its K nearest known points, with weights 1/distance^P. A query point
// coincident with a known point takes that point's value directly.
type IDW struct {
	K int
	P float64
}

func NewIDW(k int, p float64) *IDW {
	return &IDW{K: k, P: p}
}

func (e *IDW) Name() string {
	return "idw"
}

func (e *IDW) Estimate(ctx Context, known *pointcloud.PointSet, query []orb.Point) ([]float64, []bool, error) {
	if !ctx.Valid() {
		return nil, nil, &ContextViolationError{Estimator: e.Name()}
	}
	if e.K < 1 {
		return nil, nil, errors.Errorf("IDW needs k >= 1 but was configured with k=%d", e.K)
	}
	if known.IsEmpty() {
		return nil, nil, errors.Errorf("IDW needs at least one known point")
	}

	tree, err := buildQuadtree(known)
	if err != nil {
		return nil, nil, err
	}

	values := make([]float64, len(query))
	valid := make([]bool, len(query))

	var buf []orb.Pointer
	for i, q := range query {
		buf = tree.KNearest(buf[:0], q, e.K)

		weightSum := 0.0
		weightedValueSum := 0.0
		coincident := false

		for _, neighbor := range buf {
			kp := neighbor.(knownPoint)
			dx := kp.point[0] - q[0]
			dy := kp.point[1] - q[1]
			distance := math.Sqrt(dx*dx + dy*dy)

			if distance == 0 {
				values[i] = kp.z
				coincident = true
				break
			}

			weight := 1 / math.Pow(distance, e.P)
			weightSum += weight
			weightedValueSum += weight * kp.z
		}

		if !coincident {
			values[i] = weightedValueSum / weightSum
		}
		valid[i] = true
	}

	return values, valid, nil
}
