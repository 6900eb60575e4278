package engine

import (
	"pctile/catalog"
)

// Context tells a processor which shape of input it received. The engine
// passes the context explicitly, processors must never guess from the
// argument itself whether they see a buffered tile or the whole dataset.
type Context interface {
	isContext()
}

// ChunkContext marks an invocation with one buffered tile of a parallel run.
// Processors running in this context have to remove buffer points from their
// result themselves.
type ChunkContext struct {
	Chunk catalog.Chunk
}

func (c ChunkContext) isContext() {}

// WholeCatalogContext marks an invocation with the complete in-memory dataset,
// outside of any chunked run. There is no buffer to remove.
type WholeCatalogContext struct{}

func (c WholeCatalogContext) isContext() {}
