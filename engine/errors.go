package engine

import (
	"fmt"
	"strings"
)

// TaskError is the failure of one chunk's execution, recorded with the chunk
// it belongs to.
type TaskError struct {
	ChunkID int
	Err     error
}

func (e TaskError) Error() string {
	return fmt.Sprintf("Chunk %d failed: %v", e.ChunkID, e.Err)
}

// RunError aggregates all task failures of one run. Sibling chunks that
// succeeded are still part of the run's result.
type RunError struct {
	Failures []TaskError
}

func (e *RunError) Error() string {
	var lines []string
	for _, f := range e.Failures {
		lines = append(lines, f.Error())
	}
	return fmt.Sprintf("%d of the scheduled chunks failed:\n%s", len(e.Failures), strings.Join(lines, "\n"))
}
