package store

import (
	"strconv"
	"strings"

	"pctile/pointcloud"
)

// FileWriter writes per-chunk results to paths derived from the configured
// output template. It implements the engine's Writer contract.
type FileWriter struct{}

func NewFileWriter() *FileWriter {
	return &FileWriter{}
}

func (w *FileWriter) Write(ps *pointcloud.PointSet, template string, chunkID int) (string, error) {
	path := RenderOutputPath(template, chunkID)
	err := WritePointFile(ps, path)
	if err != nil {
		return "", err
	}
	return path, nil
}

// RenderOutputPath replaces the {id} placeholder of the template with the
// chunk id. Chunk ids are deterministic per plan, so re-running a
// configuration overwrites its previous output instead of scattering files.
func RenderOutputPath(template string, chunkID int) string {
	return strings.ReplaceAll(template, "{id}", strconv.Itoa(chunkID))
}
