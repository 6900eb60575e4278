package catalog

import (
	"math"

	"github.com/paulmach/orb"
)

// Chunk is one spatial subdivision of a catalog. Core bounds of all chunks of
// one plan tile the catalog extent without gaps or overlaps. The buffered
// bounds add the configured margin around the core, clipped at the catalog
// extent and never grown past it.
type Chunk struct {
	ID       int
	Core     orb.Bound
	Buffered orb.Bound
	Files    []FileRef
	Extent   orb.Bound
}

// InCore decides whether a coordinate belongs to the core region of this
// chunk. Edges between neighboring cores are half-open (a point on the seam
// belongs to the chunk whose core starts there), except at the catalog
// boundary where the core is closed. This makes every coordinate of the
// catalog extent belong to exactly one chunk core.
func (c Chunk) InCore(x float64, y float64) bool {
	if x < c.Core.Min[0] || y < c.Core.Min[1] {
		return false
	}
	if x > c.Core.Max[0] || y > c.Core.Max[1] {
		return false
	}
	if x == c.Core.Max[0] && c.Core.Max[0] != c.Extent.Max[0] {
		return false
	}
	if y == c.Core.Max[1] && c.Core.Max[1] != c.Extent.Max[1] {
		return false
	}
	return true
}

// PlanChunks computes the ordered chunk sequence for the given catalog. A
// chunkSize > 0 lays a regular grid of that size over the catalog extent
// (row-major from the lower left, edge chunks clipped at the boundary). A
// chunkSize of 0 produces one chunk per source file. The buffer is applied
// identically in both modes. Identical inputs always yield the identical
// sequence, output naming relies on that.
func PlanChunks(cat *Catalog, chunkSize float64, buffer float64) []Chunk {
	if chunkSize == 0 {
		return planPerFile(cat, buffer)
	}

	extent := cat.Extent
	width := extent.Max[0] - extent.Min[0]
	height := extent.Max[1] - extent.Min[1]

	cols := int(math.Ceil(width / chunkSize))
	rows := int(math.Ceil(height / chunkSize))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	var chunks []Chunk
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			core := orb.Bound{
				Min: orb.Point{
					extent.Min[0] + float64(col)*chunkSize,
					extent.Min[1] + float64(row)*chunkSize,
				},
				Max: orb.Point{
					extent.Min[0] + float64(col+1)*chunkSize,
					extent.Min[1] + float64(row+1)*chunkSize,
				},
			}
			core = clipBound(core, extent)

			chunks = append(chunks, newChunk(cat, len(chunks)+1, core, buffer))
		}
	}

	return chunks
}

func planPerFile(cat *Catalog, buffer float64) []Chunk {
	var chunks []Chunk
	for _, file := range cat.Files {
		chunks = append(chunks, newChunk(cat, len(chunks)+1, file.Bound, buffer))
	}
	return chunks
}

func newChunk(cat *Catalog, id int, core orb.Bound, buffer float64) Chunk {
	buffered := clipBound(core.Pad(buffer), cat.Extent)

	var files []FileRef
	for _, file := range cat.Files {
		if file.Bound.Intersects(buffered) {
			files = append(files, file)
		}
	}

	return Chunk{
		ID:       id,
		Core:     core,
		Buffered: buffered,
		Files:    files,
		Extent:   cat.Extent,
	}
}
