package engine

import (
	"fmt"
	"strings"
)

const defaultWorkers = 4

// Options is the configuration surface of a processing run. It is validated
// once before any chunk is scheduled and read-only for the duration of the run.
type Options struct {
	// ChunkSize is the edge length of the regular chunk grid. 0 means one
	// chunk per source file.
	ChunkSize float64
	// Buffer is the width of the overlap margin around each chunk core.
	Buffer float64
	// Workers bounds the number of concurrently processed chunks. 0 selects
	// the default.
	Workers int
	// NeedOutputFile requires every non-empty chunk to end up as a written
	// file. Results that stay in memory are written by the engine using
	// OutputTemplate.
	NeedOutputFile bool
	// OutputTemplate is the path pattern for per-chunk output files. It must
	// contain the "{id}" placeholder, which is replaced by the chunk id.
	OutputTemplate string
	// SelectXYZOnly restricts tiles to plain coordinates, dropping all extra
	// attributes before the processor sees them.
	SelectXYZOnly bool
	// AbortOnFirstError stops scheduling new chunks once a task failed.
	// In-flight chunks still finish. The default is best-effort: all chunks
	// run and failures are reported together at the end.
	AbortOnFirstError bool
}

// ConfigurationError marks an invalid or contradictory option set. A run with
// such options never starts.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("Invalid processing options: %s", e.Reason)
}

func (o *Options) validate() error {
	if o.ChunkSize < 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("Chunk size must be >= 0 but was %f", o.ChunkSize)}
	}
	if o.Buffer < 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("Buffer must be >= 0 but was %f", o.Buffer)}
	}
	if o.Workers < 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("Worker count must be >= 0 but was %d", o.Workers)}
	}
	if o.NeedOutputFile && o.OutputTemplate == "" {
		return &ConfigurationError{Reason: "An output file is required but no output template is configured"}
	}
	if o.OutputTemplate != "" && !strings.Contains(o.OutputTemplate, "{id}") {
		return &ConfigurationError{Reason: fmt.Sprintf("Output template '%s' must contain the {id} placeholder", o.OutputTemplate)}
	}
	return nil
}

func (o *Options) workers() int {
	if o.Workers == 0 {
		return defaultWorkers
	}
	return o.Workers
}
