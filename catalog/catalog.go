// Package catalog describes a collection of spatially disjoint point-cloud
// files treated as one logical dataset and plans the spatial chunks a
// processing run is split into.
package catalog

import (
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// FileRef points to one source file of a catalog together with the spatial
// extent of its content.
type FileRef struct {
	Path      string
	Bound     orb.Bound
	NumPoints int64
}

type Catalog struct {
	Files  []FileRef
	Extent orb.Bound
}

func New(files []FileRef) (*Catalog, error) {
	if len(files) == 0 {
		return nil, errors.Errorf("A catalog needs at least one source file")
	}

	extent := files[0].Bound
	for _, f := range files[1:] {
		extent = extent.Union(f.Bound)
	}

	return &Catalog{
		Files:  files,
		Extent: extent,
	}, nil
}

// Clip returns a catalog over the files intersecting the given bound. The
// extent of the new catalog is the intersection of bound and this catalog's
// extent. Returns nil if no file intersects the bound.
func (c *Catalog) Clip(bound orb.Bound) *Catalog {
	var files []FileRef
	for _, f := range c.Files {
		if f.Bound.Intersects(bound) {
			files = append(files, f)
		}
	}

	if len(files) == 0 {
		return nil
	}

	return &Catalog{
		Files:  files,
		Extent: clipBound(bound, c.Extent),
	}
}

func (c *Catalog) NumPoints() int64 {
	var total int64
	for _, f := range c.Files {
		total += f.NumPoints
	}
	return total
}

// clipBound restricts bound to the given limit. The bound is never extended,
// only shrunk.
func clipBound(bound orb.Bound, limit orb.Bound) orb.Bound {
	result := bound
	if result.Min[0] < limit.Min[0] {
		result.Min[0] = limit.Min[0]
	}
	if result.Min[1] < limit.Min[1] {
		result.Min[1] = limit.Min[1]
	}
	if result.Max[0] > limit.Max[0] {
		result.Max[0] = limit.Max[0]
	}
	if result.Max[1] > limit.Max[1] {
		result.Max[1] = limit.Max[1]
	}
	return result
}
