// Package store reads and writes the binary point files backing a catalog and
// provides the tile materializer and output writer of the processing engine.
package store

import (
	"os"
	"path/filepath"

	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	"pctile/catalog"
	"pctile/pointcloud"
	"pctile/util"
)

// File layout: one header followed by fixed-size point records. The header
// carries the point count and the bounding box, so catalogs can be opened
// without scanning the records.
const pointFileMagic = 0x31544350 // "PCT1"

var headerSchema = util.BinarySchema{
	Items: []util.BinaryItem{
		&util.BinaryDataItem{FieldName: "Magic", BinaryType: util.DatatypeInt32},
		&util.BinaryDataItem{FieldName: "NumPoints", BinaryType: util.DatatypeInt64},
		&util.BinaryDataItem{FieldName: "MinX", BinaryType: util.DatatypeFloat64},
		&util.BinaryDataItem{FieldName: "MinY", BinaryType: util.DatatypeFloat64},
		&util.BinaryDataItem{FieldName: "MaxX", BinaryType: util.DatatypeFloat64},
		&util.BinaryDataItem{FieldName: "MaxY", BinaryType: util.DatatypeFloat64},
	},
}

var pointSchema = util.BinarySchema{
	Items: []util.BinaryItem{
		&util.BinaryDataItem{FieldName: "X", BinaryType: util.DatatypeFloat64},
		&util.BinaryDataItem{FieldName: "Y", BinaryType: util.DatatypeFloat64},
		&util.BinaryDataItem{FieldName: "Z", BinaryType: util.DatatypeFloat64},
		&util.BinaryDataItem{FieldName: "Classification", BinaryType: util.DatatypeByte},
	},
}

type headerDao struct {
	Magic     int32
	NumPoints int64
	MinX      float64
	MinY      float64
	MaxX      float64
	MaxY      float64
}

type pointDao struct {
	X              float64
	Y              float64
	Z              float64
	Classification uint8
}

// WritePointFile persists the point set to the given path, creating parent
// folders as needed. The buffer tag is positional information of a tile and
// not stored.
func WritePointFile(ps *pointcloud.PointSet, path string) error {
	folder := filepath.Dir(path)
	if _, err := os.Stat(folder); os.IsNotExist(err) {
		sigolo.Debugf("Output folder %s doesn't exist, I'll create it", folder)
		err = os.MkdirAll(folder, os.ModePerm)
		if err != nil {
			return errors.Wrapf(err, "Unable to create output folder %s", folder)
		}
	}

	bound := ps.Bound()
	header := headerDao{
		Magic:     pointFileMagic,
		NumPoints: int64(ps.Len()),
		MinX:      bound.Min[0],
		MinY:      bound.Min[1],
		MaxX:      bound.Max[0],
		MaxY:      bound.Max[1],
	}

	data := make([]byte, headerSchema.ByteSize()+ps.Len()*pointSchema.ByteSize())

	index, err := headerSchema.Write(header, data, 0)
	if err != nil {
		return errors.Wrapf(err, "Unable to create binary header for point file %s", path)
	}

	for i, p := range ps.Points() {
		dao := pointDao{X: p.X, Y: p.Y, Z: p.Z, Classification: p.Classification}
		index, err = pointSchema.Write(dao, data, index)
		if err != nil {
			return errors.Wrapf(err, "Unable to create binary data for point %d of file %s", i, path)
		}
	}

	err = os.WriteFile(path, data, 0644)
	if err != nil {
		return errors.Wrapf(err, "Unable to write point file %s", path)
	}

	sigolo.Debugf("Wrote %d points to %s", ps.Len(), path)
	return nil
}

// ReadPointFile loads all point records of the file.
func ReadPointFile(path string) (*pointcloud.PointSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to read point file %s", path)
	}

	header, index, err := readHeader(data, path)
	if err != nil {
		return nil, err
	}

	points := make([]pointcloud.Point, header.NumPoints)
	for i := int64(0); i < header.NumPoints; i++ {
		dao := pointDao{}
		index, err = pointSchema.Read(&dao, data, index)
		if err != nil {
			return nil, errors.Wrapf(err, "Unable to read point %d from file %s", i, path)
		}
		points[i] = pointcloud.Point{X: dao.X, Y: dao.Y, Z: dao.Z, Classification: dao.Classification}
	}

	return pointcloud.NewPointSet(points), nil
}

// ReadFileRef reads only the header of the file and returns its catalog entry.
func ReadFileRef(path string) (catalog.FileRef, error) {
	file, err := os.Open(path)
	if err != nil {
		return catalog.FileRef{}, errors.Wrapf(err, "Unable to open point file %s", path)
	}
	defer file.Close()

	data := make([]byte, headerSchema.ByteSize())
	_, err = file.Read(data)
	if err != nil {
		return catalog.FileRef{}, errors.Wrapf(err, "Unable to read header of point file %s", path)
	}

	header, _, err := readHeader(data, path)
	if err != nil {
		return catalog.FileRef{}, err
	}

	return catalog.FileRef{
		Path: path,
		Bound: orb.Bound{
			Min: orb.Point{header.MinX, header.MinY},
			Max: orb.Point{header.MaxX, header.MaxY},
		},
		NumPoints: header.NumPoints,
	}, nil
}

// OpenCatalog builds a catalog descriptor over the given point files by
// reading their headers.
func OpenCatalog(paths []string) (*catalog.Catalog, error) {
	var files []catalog.FileRef
	for _, path := range paths {
		fileRef, err := ReadFileRef(path)
		if err != nil {
			return nil, err
		}
		files = append(files, fileRef)
	}
	return catalog.New(files)
}

func readHeader(data []byte, path string) (headerDao, int, error) {
	header := headerDao{}
	index, err := headerSchema.Read(&header, data, 0)
	if err != nil {
		return headerDao{}, -1, errors.Wrapf(err, "Unable to read header of point file %s", path)
	}
	if header.Magic != pointFileMagic {
		return headerDao{}, -1, errors.Errorf("File %s is no point file (invalid magic number %x)", path, header.Magic)
	}
	return header, index, nil
}
