package estimate

import (
	"fmt"
	"math"

	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"pctile/pointcloud"
)

type VariogramModel int

const (
	Spherical VariogramModel = iota
	Exponential
	Gaussian
)

func (m VariogramModel) String() string {
	switch m {
	case Spherical:
		return "spherical"
	case Exponential:
		return "exponential"
	case Gaussian:
		return "gaussian"
	}
	return fmt.Sprintf("[!UNKNOWN VariogramModel %d]", m)
}

func VariogramModelFromString(s string) (VariogramModel, error) {
	switch s {
	case "spherical":
		return Spherical, nil
	case "exponential":
		return Exponential, nil
	case "gaussian":
		return Gaussian, nil
	}
	return 0, errors.Errorf("Unknown variogram model '%s'", s)
}

// Kriging estimates each query point with ordinary kriging over its K nearest
// known points. The kriging system is parameterized by a variogram model with
// range, sill and nugget. Every query point receives a value, there is no
// validity distinction.
type Kriging struct {
	K      int
	Model  VariogramModel
	Range  float64
	Sill   float64
	Nugget float64
	// Verbose enables per-call progress logging. This is deliberately a field
	// of the estimator and no process-wide toggle.
	Verbose bool
}

func NewKriging(k int, model VariogramModel, vrange float64, sill float64, nugget float64) *Kriging {
	return &Kriging{
		K:      k,
		Model:  model,
		Range:  vrange,
		Sill:   sill,
		Nugget: nugget,
	}
}

func (e *Kriging) Name() string {
	return "kriging"
}

func (e *Kriging) Estimate(ctx Context, known *pointcloud.PointSet, query []orb.Point) ([]float64, []bool, error) {
	if !ctx.Valid() {
		return nil, nil, &ContextViolationError{Estimator: e.Name()}
	}
	if e.K < 2 {
		return nil, nil, errors.Errorf("Kriging needs k >= 2 but was configured with k=%d", e.K)
	}
	if known.IsEmpty() {
		return nil, nil, errors.Errorf("Kriging needs at least one known point")
	}

	if e.Verbose {
		sigolo.Debugf("Kriging %d query points against %d known points (model=%s, range=%f, sill=%f, nugget=%f)",
			len(query), known.Len(), e.Model, e.Range, e.Sill, e.Nugget)
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

		value, err := e.estimateAt(q, buf)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "Kriging failed for query point (%f, %f)", q[0], q[1])
		}

		values[i] = value
		valid[i] = true
	}

	if e.Verbose {
		sigolo.Debugf("Kriging finished for %d query points", len(query))
	}

	return values, valid, nil
}

func (e *Kriging) estimateAt(q orb.Point, neighbors []orb.Pointer) (float64, error) {
	// A query point on top of a known point takes its value directly. This
	// also keeps the kriging matrix regular.
	for _, neighbor := range neighbors {
		kp := neighbor.(knownPoint)
		if kp.point == q {
			return kp.z, nil
		}
	}

	n := len(neighbors)

	// Ordinary kriging system with a Lagrange multiplier in the last row/column
	a := mat.NewDense(n+1, n+1, nil)
	b := mat.NewVecDense(n+1, nil)

	for i := 0; i < n; i++ {
		pi := neighbors[i].(knownPoint).point
		for j := 0; j < n; j++ {
			pj := neighbors[j].(knownPoint).point
			a.Set(i, j, e.variogram(planarDistance(pi, pj)))
		}
		a.Set(i, n, 1)
		a.Set(n, i, 1)
		b.SetVec(i, e.variogram(planarDistance(pi, q)))
	}
	b.SetVec(n, 1)

	var qr mat.QR
	qr.Factorize(a)

	weights := mat.NewDense(n+1, 1, nil)
	err := qr.SolveTo(weights, false, b)
	if err != nil {
		return 0, errors.Wrap(err, "Unable to solve the kriging system")
	}

	value := 0.0
	for i := 0; i < n; i++ {
		value += weights.At(i, 0) * neighbors[i].(knownPoint).z
	}
	return value, nil
}

// variogram returns the semivariance for two points at distance h.
func (e *Kriging) variogram(h float64) float64 {
	if h == 0 {
		return 0
	}

	switch e.Model {
	case Spherical:
		if h >= e.Range {
			return e.Sill
		}
		r := h / e.Range
		return e.Nugget + (e.Sill-e.Nugget)*(1.5*r-0.5*r*r*r)
	case Exponential:
		return e.Nugget + (e.Sill-e.Nugget)*(1-math.Exp(-3*h/e.Range))
	case Gaussian:
		return e.Nugget + (e.Sill-e.Nugget)*(1-math.Exp(-3*h*h/(e.Range*e.Range)))
	}
	return 0
}

func planarDistance(p orb.Point, q orb.Point) float64 {
	dx := p[0] - q[0]
	dy := p[1] - q[1]
	return math.Sqrt(dx*dx + dy*dy)
}
