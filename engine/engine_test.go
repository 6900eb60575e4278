package engine

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	"pctile/catalog"
	"pctile/pointcloud"
	"pctile/util"
)

// memoryLoader serves tiles from an in-memory point list and counts its
// invocations so tests can verify that no chunk was scheduled.
type memoryLoader struct {
	points []pointcloud.Point
	loads  atomic.Int32
}

func (l *memoryLoader) Load(chunk catalog.Chunk) (*pointcloud.PointSet, error) {
	l.loads.Add(1)

	var tilePoints []pointcloud.Point
	for _, p := range l.points {
		if !chunk.Buffered.Contains(p.XY()) {
			continue
		}
		p.Buffer = !chunk.InCore(p.X, p.Y)
		tilePoints = append(tilePoints, p)
	}
	return pointcloud.NewPointSet(tilePoints), nil
}

// memoryWriter records writes without touching the filesystem.
type memoryWriter struct {
	mutex sync.Mutex
	paths []string
}

func (w *memoryWriter) Write(ps *pointcloud.PointSet, template string, chunkID int) (string, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	path := fmt.Sprintf("%s-%d", template, chunkID)
	w.paths = append(w.paths, path)
	return path, nil
}

// passthroughProcessor returns its tile unchanged except for the buffer trim
// required in a chunk context.
type passthroughProcessor struct{}

func (p passthroughProcessor) Name() string { return "passthrough" }

func (p passthroughProcessor) Run(ctx Context, tile *pointcloud.PointSet) (Result, error) {
	switch ctx.(type) {
	case ChunkContext:
		return PointsResult(tile.WithoutBuffer()), nil
	case WholeCatalogContext:
		return PointsResult(tile), nil
	}
	return Result{}, errors.Errorf("Unsupported context %T", ctx)
}

// failingProcessor fails for configured chunk ids and passes through otherwise.
type failingProcessor struct {
	failChunks map[int]bool
}

func (p failingProcessor) Name() string { return "failing" }

func (p failingProcessor) Run(ctx Context, tile *pointcloud.PointSet) (Result, error) {
	if chunkCtx, ok := ctx.(ChunkContext); ok && p.failChunks[chunkCtx.Chunk.ID] {
		return Result{}, errors.Errorf("Processor failure in chunk %d", chunkCtx.Chunk.ID)
	}
	return passthroughProcessor{}.Run(ctx, tile)
}

type bufferRequiringProcessor struct {
	passthroughProcessor
	minBuffer float64
}

func (p bufferRequiringProcessor) MinBuffer() float64 { return p.minBuffer }

func testCatalog(t *testing.T) *catalog.Catalog {
	cat, err := catalog.New([]catalog.FileRef{
		{Path: "a.pts", Bound: orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{20, 20}}},
	})
	util.AssertNil(t, err)
	return cat
}

// quadrantPoints places points in all chunk cores of a 2x2 plan except the
// third one (upper left), each with the owning chunk's id as z value.
func quadrantPoints() []pointcloud.Point {
	return []pointcloud.Point{
		{X: 4, Y: 4, Z: 1},
		{X: 6, Y: 3, Z: 1},
		{X: 15, Y: 5, Z: 2},
		{X: 14, Y: 16, Z: 4},
		{X: 17, Y: 13, Z: 4},
	}
}

func TestApply_bufferTrimCoversEveryPointExactlyOnce(t *testing.T) {
	// Arrange
	var points []pointcloud.Point
	for x := 0.5; x < 20; x++ {
		for y := 0.5; y < 20; y++ {
			points = append(points, pointcloud.Point{X: x, Y: y, Z: x + y})
		}
	}
	loader := &memoryLoader{points: points}

	// Act
	result, err := Apply(testCatalog(t), passthroughProcessor{}, Environment{Loader: loader}, Options{
		ChunkSize: 10,
		Buffer:    2,
	})

	// Assert: every input point survives exactly once despite overlapping buffers
	util.AssertNil(t, err)
	util.AssertEqual(t, len(points), result.Points.Len())

	seen := map[orb.Point]int{}
	for _, p := range result.Points.Points() {
		seen[p.XY()]++
	}
	for _, p := range points {
		util.AssertEqual(t, 1, seen[p.XY()])
	}
}

func TestApply_emptyChunkIsSkippedAndOrderPreserved(t *testing.T) {
	// Arrange
	loader := &memoryLoader{points: quadrantPoints()}

	// Act
	result, err := Apply(testCatalog(t), passthroughProcessor{}, Environment{Loader: loader}, Options{
		ChunkSize: 10,
		Workers:   4,
	})

	// Assert: 3 of 4 chunks contribute, assembled in chunk id order 1, 2, 4
	util.AssertNil(t, err)
	util.AssertEqual(t, 3, result.Contributing)
	util.AssertEqual(t, 5, result.Points.Len())

	var zOrder []float64
	for _, p := range result.Points.Points() {
		if len(zOrder) == 0 || zOrder[len(zOrder)-1] != p.Z {
			zOrder = append(zOrder, p.Z)
		}
	}
	util.AssertEqual(t, []float64{1, 2, 4}, zOrder)
}

func TestApply_missingOutputTemplateAbortsBeforeScheduling(t *testing.T) {
	// Arrange
	loader := &memoryLoader{points: quadrantPoints()}

	// Act
	result, err := Apply(testCatalog(t), passthroughProcessor{}, Environment{Loader: loader}, Options{
		ChunkSize:      10,
		NeedOutputFile: true,
	})

	// Assert
	util.AssertNotNil(t, err)
	var configErr *ConfigurationError
	util.AssertTrue(t, errors.As(err, &configErr))
	util.AssertTrue(t, result == nil)
	util.AssertEqual(t, int32(0), loader.loads.Load())
}

func TestApply_invalidOutputTemplateIsRejected(t *testing.T) {
	// Arrange
	loader := &memoryLoader{points: quadrantPoints()}

	// Act
	_, err := Apply(testCatalog(t), passthroughProcessor{}, Environment{Loader: loader}, Options{
		ChunkSize:      10,
		NeedOutputFile: true,
		OutputTemplate: "out/chunk.pts",
	})

	// Assert
	var configErr *ConfigurationError
	util.AssertTrue(t, errors.As(err, &configErr))
	util.AssertEqual(t, int32(0), loader.loads.Load())
}

func TestApply_writesArtifactsInChunkOrder(t *testing.T) {
	// Arrange
	loader := &memoryLoader{points: quadrantPoints()}
	writer := &memoryWriter{}
	openCatalog := func(paths []string) (*catalog.Catalog, error) {
		var files []catalog.FileRef
		for _, path := range paths {
			files = append(files, catalog.FileRef{Path: path, Bound: orb.Bound{Max: orb.Point{1, 1}}})
		}
		return catalog.New(files)
	}

	// Act
	result, err := Apply(testCatalog(t), passthroughProcessor{}, Environment{
		Loader:      loader,
		Writer:      writer,
		OpenCatalog: openCatalog,
	}, Options{
		ChunkSize:      10,
		NeedOutputFile: true,
		OutputTemplate: "out/chunk_{id}.pts",
	})

	// Assert: the empty chunk 3 contributes no artifact, order follows chunk ids
	util.AssertNil(t, err)
	util.AssertEqual(t, []string{"out/chunk_{id}.pts-1", "out/chunk_{id}.pts-2", "out/chunk_{id}.pts-4"}, result.ArtifactPaths)
	util.AssertNotNil(t, result.OutputCatalog)
	util.AssertEqual(t, 3, len(result.OutputCatalog.Files))
	util.AssertTrue(t, result.Points == nil)
}

func TestApply_taskFailuresAreAggregated(t *testing.T) {
	// Arrange
	loader := &memoryLoader{points: quadrantPoints()}
	processor := failingProcessor{failChunks: map[int]bool{1: true, 4: true}}

	// Act
	result, err := Apply(testCatalog(t), processor, Environment{Loader: loader}, Options{
		ChunkSize: 10,
		Workers:   4,
	})

	// Assert: the successful chunk still contributes, failures come in one report
	util.AssertNotNil(t, err)
	var runErr *RunError
	util.AssertTrue(t, errors.As(err, &runErr))
	util.AssertEqual(t, 2, len(runErr.Failures))
	util.AssertEqual(t, 1, runErr.Failures[0].ChunkID)
	util.AssertEqual(t, 4, runErr.Failures[1].ChunkID)

	util.AssertEqual(t, 1, result.Contributing)
	util.AssertEqual(t, 2.0, result.Points.Get(0).Z)
}

func TestApply_abortOnFirstErrorStopsScheduling(t *testing.T) {
	// Arrange
	loader := &memoryLoader{points: quadrantPoints()}
	processor := failingProcessor{failChunks: map[int]bool{1: true}}

	// Act: a single worker processes the chunks one after the other
	result, err := Apply(testCatalog(t), processor, Environment{Loader: loader}, Options{
		ChunkSize:         10,
		Workers:           1,
		AbortOnFirstError: true,
	})

	// Assert: chunk 1 failed, the remaining chunks were never loaded
	util.AssertNotNil(t, err)
	var runErr *RunError
	util.AssertTrue(t, errors.As(err, &runErr))
	util.AssertEqual(t, 1, len(runErr.Failures))
	util.AssertEqual(t, 0, result.Contributing)
	util.AssertEqual(t, int32(1), loader.loads.Load())
}

func TestApply_enforcesProcessorBufferRequirement(t *testing.T) {
	// Arrange
	loader := &memoryLoader{points: quadrantPoints()}
	processor := bufferRequiringProcessor{minBuffer: 5}

	// Act
	_, err := Apply(testCatalog(t), processor, Environment{Loader: loader}, Options{
		ChunkSize: 10,
		Buffer:    1,
	})

	// Assert
	var configErr *ConfigurationError
	util.AssertTrue(t, errors.As(err, &configErr))
	util.AssertEqual(t, int32(0), loader.loads.Load())

	// A sufficient buffer passes validation
	_, err = Apply(testCatalog(t), processor, Environment{Loader: loader}, Options{
		ChunkSize: 10,
		Buffer:    5,
	})
	util.AssertNil(t, err)
}

// mixedProcessor claims to have written a file for chunk 1 and returns
// in-memory points for all other chunks.
type mixedProcessor struct{}

func (p mixedProcessor) Name() string { return "mixed" }

func (p mixedProcessor) Run(ctx Context, tile *pointcloud.PointSet) (Result, error) {
	if chunkCtx, ok := ctx.(ChunkContext); ok && chunkCtx.Chunk.ID == 1 {
		return ArtifactResult("chunk_1.pts"), nil
	}
	return passthroughProcessor{}.Run(ctx, tile)
}

func TestApply_mixedResultKindsAreRejected(t *testing.T) {
	// Arrange
	loader := &memoryLoader{points: quadrantPoints()}

	// Act
	result, err := Apply(testCatalog(t), mixedProcessor{}, Environment{Loader: loader}, Options{
		ChunkSize: 10,
	})

	// Assert
	var configErr *ConfigurationError
	util.AssertTrue(t, errors.As(err, &configErr))
	util.AssertTrue(t, result == nil)
}

func TestRunWholeCatalog_passesWholeCatalogContext(t *testing.T) {
	// Arrange
	loader := &memoryLoader{points: quadrantPoints()}

	// Act
	result, err := RunWholeCatalog(testCatalog(t), passthroughProcessor{}, Environment{Loader: loader}, Options{})

	// Assert: the whole dataset arrives in one piece, nothing is buffer-tagged
	util.AssertNil(t, err)
	util.AssertEqual(t, KindPoints, result.Kind)
	util.AssertEqual(t, 5, result.Points.Len())
	util.AssertEqual(t, int32(1), loader.loads.Load())
}
