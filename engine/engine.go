// Package engine runs a processor over every chunk of a catalog in parallel
// and assembles the per-chunk results in deterministic chunk order.
package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"pctile/catalog"
	"pctile/pointcloud"
)

// Processor is the user-supplied logic invoked once per chunk (or once for the
// whole catalog). It must behave according to the passed context: in a
// ChunkContext the tile carries buffer points and the processor has to remove
// them from its result.
type Processor interface {
	Name() string
	Run(ctx Context, tile *pointcloud.PointSet) (Result, error)
}

// BufferRequirer is implemented by processors that only work correctly with a
// minimum buffer around each tile. The engine rejects runs configured with a
// smaller buffer before any chunk is scheduled.
type BufferRequirer interface {
	MinBuffer() float64
}

// TileLoader materializes the point data of one chunk, including the buffer
// margin, with every point tagged for its buffer membership relative to the
// chunk core. An empty tile is a valid outcome.
type TileLoader interface {
	Load(chunk catalog.Chunk) (*pointcloud.PointSet, error)
}

// Writer persists a point set to a path derived from the template and the
// chunk id and returns that path.
type Writer interface {
	Write(ps *pointcloud.PointSet, template string, chunkID int) (string, error)
}

// Environment bundles the external collaborators of a run.
type Environment struct {
	Loader TileLoader
	Writer Writer
	// OpenCatalog re-wraps written artifact files into a new catalog so the
	// output of one run can be fed into the next.
	OpenCatalog func(paths []string) (*catalog.Catalog, error)
}

// RunResult is the assembled outcome of a run. Exactly one of Points and
// OutputCatalog is set, depending on whether the chunks produced in-memory
// point sets or written files.
type RunResult struct {
	Points        *pointcloud.PointSet
	OutputCatalog *catalog.Catalog
	ArtifactPaths []string
	// Contributing is the number of chunks that produced a non-empty result.
	Contributing int
}

// Apply runs the processor over every chunk of the catalog with up to
// Options.Workers chunks in flight at once. Execution order across chunks is
// unspecified, the assembled result always follows chunk id order.
//
// By default the run is best-effort: failed chunks are recorded and reported
// together as a *RunError after all chunks ran, successful chunks still
// contribute to the returned result. With Options.AbortOnFirstError no new
// chunks are scheduled once a failure is observed; already running chunks
// finish and their written artifacts stay on disk.
func Apply(cat *catalog.Catalog, proc Processor, env Environment, opts Options) (*RunResult, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if requirer, ok := proc.(BufferRequirer); ok && opts.Buffer < requirer.MinBuffer() {
		return nil, &ConfigurationError{
			Reason: errors.Errorf("Processor '%s' requires a buffer of at least %f but the run is configured with %f",
				proc.Name(), requirer.MinBuffer(), opts.Buffer).Error(),
		}
	}

	chunks := catalog.PlanChunks(cat, opts.ChunkSize, opts.Buffer)
	sigolo.Infof("Start processing run '%s' with %d chunks and %d workers", proc.Name(), len(chunks), opts.workers())
	runStartTime := time.Now()

	results := make([]Result, len(chunks))
	var failures []TaskError
	var failureMutex sync.Mutex

	group, groupCtx := errgroup.WithContext(context.Background())
	group.SetLimit(opts.workers())

	for i, chunk := range chunks {
		i, chunk := i, chunk
		group.Go(func() error {
			if groupCtx.Err() != nil {
				// A previous chunk failed in abort mode, don't start new work
				sigolo.Debugf("Skip chunk %d, run is aborting", chunk.ID)
				return nil
			}

			result, err := runChunk(proc, env, opts, chunk)
			if err != nil {
				failureMutex.Lock()
				failures = append(failures, TaskError{ChunkID: chunk.ID, Err: err})
				failureMutex.Unlock()

				sigolo.Errorf("Chunk %d failed: %+v", chunk.ID, err)
				if opts.AbortOnFirstError {
					return err
				}
				return nil
			}

			results[i] = result
			return nil
		})
	}

	// The groups error is the first task failure in abort mode. All failures,
	// including that one, are already recorded per chunk.
	_ = group.Wait()

	runResult, err := assemble(results, env)
	if err != nil {
		return nil, err
	}

	sigolo.Infof("Finished processing run '%s' in %s (%d of %d chunks contributed, %d failed)",
		proc.Name(), time.Since(runStartTime), runResult.Contributing, len(chunks), len(failures))

	if len(failures) > 0 {
		sort.Slice(failures, func(a, b int) bool {
			return failures[a].ChunkID < failures[b].ChunkID
		})
		return runResult, &RunError{Failures: failures}
	}

	return runResult, nil
}

func runChunk(proc Processor, env Environment, opts Options, chunk catalog.Chunk) (Result, error) {
	sigolo.Debugf("Process chunk %d (core=%v)", chunk.ID, chunk.Core)

	tile, err := env.Loader.Load(chunk)
	if err != nil {
		return Result{}, errors.Wrapf(err, "Unable to load tile for chunk %d", chunk.ID)
	}

	if tile.IsEmpty() {
		sigolo.Debugf("Chunk %d contains no points, skipping it", chunk.ID)
		return EmptyResult(), nil
	}

	if opts.SelectXYZOnly {
		tile = tile.SelectXYZ()
	}

	result, err := proc.Run(ChunkContext{Chunk: chunk}, tile)
	if err != nil {
		return Result{}, err
	}

	if opts.NeedOutputFile {
		switch result.Kind {
		case KindArtifact:
			// Processor already wrote its own file
		case KindPoints:
			path, writeErr := env.Writer.Write(result.Points, opts.OutputTemplate, chunk.ID)
			if writeErr != nil {
				return Result{}, errors.Wrapf(writeErr, "Unable to write output file for chunk %d", chunk.ID)
			}
			result = ArtifactResult(path)
		case KindEmpty:
			return Result{}, errors.Errorf("Chunk %d produced no output but an output file is required", chunk.ID)
		}
	}

	return result, nil
}

// assemble merges the per-chunk results, which are already in chunk id order.
// Empty results are skipped. All contributing chunks must agree on one result
// kind, a run mixing in-memory and written results is misconfigured.
func assemble(results []Result, env Environment) (*RunResult, error) {
	runResult := &RunResult{}
	kind := KindEmpty

	for _, result := range results {
		if result.Kind == KindEmpty {
			continue
		}

		if kind == KindEmpty {
			kind = result.Kind
		} else if kind != result.Kind {
			return nil, &ConfigurationError{Reason: "Run produced mixed in-memory and written results"}
		}

		switch result.Kind {
		case KindPoints:
			if runResult.Points == nil {
				runResult.Points = result.Points
			} else {
				runResult.Points = runResult.Points.Merge(result.Points)
			}
		case KindArtifact:
			runResult.ArtifactPaths = append(runResult.ArtifactPaths, result.Path)
		}

		runResult.Contributing++
	}

	if len(runResult.ArtifactPaths) > 0 && env.OpenCatalog != nil {
		outputCatalog, err := env.OpenCatalog(runResult.ArtifactPaths)
		if err != nil {
			return nil, errors.Wrap(err, "Unable to open catalog over written output files")
		}
		runResult.OutputCatalog = outputCatalog
	}

	return runResult, nil
}

// RunWholeCatalog loads the complete catalog into memory and invokes the
// processor once with a WholeCatalogContext. This is the non-chunked
// counterpart of Apply for datasets that fit into memory.
func RunWholeCatalog(cat *catalog.Catalog, proc Processor, env Environment, opts Options) (Result, error) {
	wholeChunk := catalog.Chunk{
		ID:       1,
		Core:     cat.Extent,
		Buffered: cat.Extent,
		Files:    cat.Files,
		Extent:   cat.Extent,
	}

	tile, err := env.Loader.Load(wholeChunk)
	if err != nil {
		return Result{}, errors.Wrap(err, "Unable to load catalog into memory")
	}
	if tile.IsEmpty() {
		return EmptyResult(), nil
	}
	if opts.SelectXYZOnly {
		tile = tile.SelectXYZ()
	}

	return proc.Run(WholeCatalogContext{}, tile)
}
