package store

import (
	"github.com/hauke96/sigolo/v2"

	"pctile/catalog"
	"pctile/pointcloud"
)

// Loader materializes tiles from the source files of a catalog. It implements
// the engine's TileLoader contract: every loaded point is tagged with its
// buffer membership relative to the chunk core.
type Loader struct{}

func NewLoader() *Loader {
	return &Loader{}
}

func (l *Loader) Load(chunk catalog.Chunk) (*pointcloud.PointSet, error) {
	var tilePoints []pointcloud.Point

	for _, file := range chunk.Files {
		ps, err := ReadPointFile(file.Path)
		if err != nil {
			return nil, err
		}

		for _, p := range ps.Points() {
			if !chunk.Buffered.Contains(p.XY()) {
				continue
			}
			p.Buffer = !chunk.InCore(p.X, p.Y)
			tilePoints = append(tilePoints, p)
		}
	}

	sigolo.Tracef("Loaded %d points for chunk %d from %d files", len(tilePoints), chunk.ID, len(chunk.Files))
	return pointcloud.NewPointSet(tilePoints), nil
}
