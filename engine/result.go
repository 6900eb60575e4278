package engine

import (
	"pctile/pointcloud"
)

type ResultKind int

const (
	// KindEmpty is the result of a chunk without data or of a processor that
	// produced nothing. Empty results are skipped during assembly.
	KindEmpty ResultKind = iota
	// KindPoints is an in-memory point set result.
	KindPoints
	// KindArtifact is a file written by a chunk's processor or by the engine
	// on its behalf.
	KindArtifact
)

// Result is the outcome of one chunk execution. It is produced by one task,
// consumed once during assembly and discarded afterwards.
type Result struct {
	Kind   ResultKind
	Points *pointcloud.PointSet
	Path   string
}

func EmptyResult() Result {
	return Result{Kind: KindEmpty}
}

func PointsResult(ps *pointcloud.PointSet) Result {
	if ps.IsEmpty() {
		return EmptyResult()
	}
	return Result{Kind: KindPoints, Points: ps}
}

func ArtifactResult(path string) Result {
	return Result{Kind: KindArtifact, Path: path}
}
