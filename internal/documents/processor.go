package documents

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/docgraph/ingest/internal/graph"
	"github.com/docgraph/ingest/internal/logging"
	"github.com/docgraph/ingest/internal/metrics"
)

// IngestRequest names a local PDF and the document id it is stored under
type IngestRequest struct {
	// Path is the local file to read
	Path string
	// Filename is the document id. Defaults to the base name of Path.
	Filename string
	// Source overrides the provenance recorded on chunks, e.g. an s3:// URI
	Source string
}

// IngestResult summarises one ingestion
type IngestResult struct {
	Filename string
	Blocks   int
	Chunks   int
	Metadata Metadata
}

// Processor runs Extract -> Synthesize -> Chunk -> Store for one document
type Processor struct {
	extractor   *Extractor
	synthesizer *Synthesizer
	chunker     *Chunker
	store       graph.Store
	loader      *graph.Loader
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewProcessor creates a new document processor
func NewProcessor(
	extractor *Extractor,
	synthesizer *Synthesizer,
	chunker *Chunker,
	store graph.Store,
	loader *graph.Loader,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		extractor:   extractor,
		synthesizer: synthesizer,
		chunker:     chunker,
		store:       store,
		loader:      loader,
		metrics:     m,
		logger:      logging.OrNop(logger),
	}
}

// Ingest processes a document. Re-ingesting overwrites the document's
// metadata and replaces its chunks.
func (p *Processor) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	filename := req.Filename
	if filename == "" {
		filename = filepath.Base(req.Path)
	}
	if ext := strings.ToLower(filepath.Ext(filename)); ext != ".pdf" {
		return nil, fmt.Errorf("unsupported file type: %q", ext)
	}

	hash, err := computeFileHash(req.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to compute hash: %w", err)
	}

	blocks, fullText, err := p.extractor.Extract(ctx, req.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", filename, err)
	}
	if req.Source != "" {
		for i := range blocks {
			blocks[i].Source = req.Source
		}
	}

	md := p.synthesizer.Synthesize(ctx, fullText)

	if err := p.store.UpsertDocument(ctx, graph.Document{
		ID:            filename,
		Summary:       md.Summary,
		SemanticNeeds: md.Needs,
		ExplicitRefs:  md.ExplicitRefs,
		ContentHash:   hash,
	}); err != nil {
		return nil, fmt.Errorf("failed to create document node: %w", err)
	}

	chunks := p.chunker.Chunk(blocks)
	stored, err := p.loader.StoreChunks(ctx, chunks, filename)
	if err != nil {
		return nil, err
	}

	p.metrics.DocumentIngested()
	p.logger.Info("document ingested",
		zap.String("document", filename),
		zap.Int("blocks", len(blocks)),
		zap.Int("chunks", stored),
		zap.Int("needs", len(md.Needs)),
		zap.Int("explicit_refs", len(md.ExplicitRefs)),
	)

	return &IngestResult{Filename: filename, Blocks: len(blocks), Chunks: stored, Metadata: md}, nil
}

// Delete removes the document and its chunks
func (p *Processor) Delete(ctx context.Context, filename string) error {
	if err := p.store.DeleteDocument(ctx, filename); err != nil {
		return err
	}
	p.metrics.DocumentDeleted()
	p.logger.Info("document deleted", zap.String("document", filename))
	return nil
}

// computeFileHash computes SHA256 hash of a file
func computeFileHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}
