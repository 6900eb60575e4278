package estimate

import (
	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	"pctile/engine"
	"pctile/pointcloud"
)

// GridProcessor is the canonical interpolation workload: it evaluates a
// spatial estimator on a regular grid of query positions and returns the
// estimated surface as a point set. In a chunked run the query grid covers
// only the chunk core, so buffer regions never leak into the result while the
// estimator still sees all buffer points as known input.
type GridProcessor struct {
	Estimator  Estimator
	Resolution float64

	ctx Context
}

func NewGridProcessor(estimator Estimator, resolution float64) *GridProcessor {
	return &GridProcessor{
		Estimator:  estimator,
		Resolution: resolution,
		ctx:        NewContext(),
	}
}

func (p *GridProcessor) Name() string {
	return "estimate-" + p.Estimator.Name()
}

// MinBuffer declares the overlap margin interpolation needs: estimates near a
// tile seam must see the known points on the far side of the seam.
func (p *GridProcessor) MinBuffer() float64 {
	return 2 * p.Resolution
}

func (p *GridProcessor) Run(ctx engine.Context, tile *pointcloud.PointSet) (engine.Result, error) {
	var area orb.Bound
	switch c := ctx.(type) {
	case engine.ChunkContext:
		area = c.Chunk.Core
	case engine.WholeCatalogContext:
		area = tile.Bound()
	default:
		return engine.Result{}, errors.Errorf("Unsupported processing context %T", ctx)
	}

	query := gridPoints(area, p.Resolution)
	if len(query) == 0 {
		return engine.EmptyResult(), nil
	}

	values, valid, err := p.Estimator.Estimate(p.ctx, tile, query)
	if err != nil {
		return engine.Result{}, err
	}

	var estimated []pointcloud.Point
	for i, q := range query {
		if !valid[i] {
			continue
		}
		estimated = append(estimated, pointcloud.Point{X: q[0], Y: q[1], Z: values[i]})
	}

	return engine.PointsResult(pointcloud.NewPointSet(estimated)), nil
}

// gridPoints returns the cell-center positions of a regular grid over the area.
func gridPoints(area orb.Bound, resolution float64) []orb.Point {
	var points []orb.Point
	for y := area.Min[1] + resolution/2; y < area.Max[1]; y += resolution {
		for x := area.Min[0] + resolution/2; x < area.Max[0]; x += resolution {
			points = append(points, orb.Point{x, y})
		}
	}
	return points
}
