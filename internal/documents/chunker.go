package documents

import "github.com/docgraph/ingest/internal/graph"

// Chunker splits content blocks into chunks that keep their block's
// source and page
type Chunker struct {
	size     int
	overlap  int
	splitter *RecursiveSplitter
}

// ChunkerOption configures a Chunker
type ChunkerOption func(*Chunker)

// WithChunkSize sets the maximum chunk length in characters
func WithChunkSize(n int) ChunkerOption {
	return func(c *Chunker) { c.size = n }
}

// WithChunkOverlap sets the overlap between neighbouring chunks
func WithChunkOverlap(n int) ChunkerOption {
	return func(c *Chunker) { c.overlap = n }
}

// NewChunker creates a chunker with size 1000 and overlap 150 unless overridden
func NewChunker(opts ...ChunkerOption) (*Chunker, error) {
	c := &Chunker{size: 1000, overlap: 150}
	for _, opt := range opts {
		opt(c)
	}

	splitter, err := NewRecursiveSplitter(c.size, c.overlap)
	if err != nil {
		return nil, err
	}
	c.splitter = splitter
	return c, nil
}

// Chunk splits every block in order. The returned chunks carry text, source
// and page; ids, index and parent are assigned when they are stored.
func (c *Chunker) Chunk(blocks []ContentBlock) []graph.Chunk {
	var chunks []graph.Chunk
	for _, b := range blocks {
		for _, text := range c.splitter.Split(b.Content) {
			chunks = append(chunks, graph.Chunk{Text: text, Source: b.Source, Page: b.Page})
		}
	}
	return chunks
}
