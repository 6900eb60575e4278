package store

import (
	"io"
	"os"
	"time"

	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"

	"pctile/pointcloud"
)

func WritePointsAsGeoJsonFile(ps *pointcloud.PointSet, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "Unable to create GeoJSON file %s", path)
	}

	defer func() {
		err = file.Close()
		sigolo.FatalCheck(errors.Wrapf(err, "Unable to close file handle for GeoJSON file %s", file.Name()))
	}()

	return WritePointsAsGeoJson(ps, file)
}

func WritePointsAsGeoJson(ps *pointcloud.PointSet, writer io.Writer) error {
	sigolo.Debugf("Write %d points to GeoJSON", ps.Len())
	writeStartTime := time.Now()

	featureCollection := geojson.NewFeatureCollection()
	for _, p := range ps.Points() {
		feature := geojson.NewFeature(orb.Point{p.X, p.Y})
		feature.Properties["z"] = p.Z
		if p.Classification != 0 {
			feature.Properties["classification"] = p.Classification
		}
		featureCollection.Features = append(featureCollection.Features, feature)
	}

	geojsonBytes, err := featureCollection.MarshalJSON()
	if err != nil {
		return err
	}

	_, err = writer.Write(geojsonBytes)
	if err != nil {
		return err
	}

	sigolo.Debugf("Finished writing GeoJSON in %s", time.Since(writeStartTime))
	return nil
}
