// Package estimate provides spatial estimators: algorithms mapping known
// spatial samples to values at arbitrary query coordinates. All estimators
// share one contract so callers can swap them freely.
package estimate

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/quadtree"
	"github.com/pkg/errors"

	"pctile/pointcloud"
)

// Context is the capability token estimators require. Only a context obtained
// from NewContext is recognized, the zero value is rejected. This makes
// running an estimator outside a prepared interpolation call chain an explicit
// error instead of silently degraded behavior.
type Context struct {
	valid bool
}

func NewContext() Context {
	return Context{valid: true}
}

func (c Context) Valid() bool {
	return c.valid
}

// ContextViolationError is returned when an estimator is invoked without a
// recognized context. It is always fatal for the call, there is no fallback.
type ContextViolationError struct {
	Estimator string
}

func (e *ContextViolationError) Error() string {
	return fmt.Sprintf("Estimator '%s' was invoked outside of a recognized interpolation context", e.Estimator)
}

// Estimator estimates values at query coordinates from known samples. The
// returned valid flags mark per query point whether a value could be
// estimated. Implementations resolve their own estimation gaps via fallbacks
// where the algorithm defines one, so a false flag only remains where the
// algorithm genuinely has no answer.
type Estimator interface {
	Name() string
	Estimate(ctx Context, known *pointcloud.PointSet, query []orb.Point) ([]float64, []bool, error)
}

type knownPoint struct {
	point orb.Point
	z     float64
}

func (k knownPoint) Point() orb.Point {
	return k.point
}

// buildQuadtree indexes the known points for nearest-neighbor queries.
func buildQuadtree(known *pointcloud.PointSet) (*quadtree.Quadtree, error) {
	tree := quadtree.New(known.Bound())
	for _, p := range known.Points() {
		err := tree.Add(knownPoint{point: p.XY(), z: p.Z})
		if err != nil {
			return nil, errors.Wrapf(err, "Unable to index known point (%f, %f)", p.X, p.Y)
		}
	}
	return tree, nil
}
