// Package worker turns trigger payloads into ingestion and linking runs.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/docgraph/ingest/internal/documents"
	"github.com/docgraph/ingest/internal/events"
	"github.com/docgraph/ingest/internal/logging"
)

// Ingester stores and removes documents
type Ingester interface {
	Ingest(ctx context.Context, req documents.IngestRequest) (*documents.IngestResult, error)
	Delete(ctx context.Context, filename string) error
}

// Linker runs the targeted linking pass
type Linker interface {
	Link(ctx context.Context, filename string) (int, error)
}

// Downloader fetches a remote object into a local file
type Downloader interface {
	Download(ctx context.Context, bucket, key string) (string, func(), error)
}

// Handler serves the ingest and link triggers
type Handler struct {
	ingester   Ingester
	linker     Linker
	downloader Downloader
	publisher  events.Publisher
	logger     *zap.Logger
}

// NewHandler creates a handler. downloader may be nil when objects are local;
// a nil publisher discards lifecycle events.
func NewHandler(ingester Ingester, linker Linker, downloader Downloader, publisher events.Publisher, logger *zap.Logger) *Handler {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Handler{
		ingester:   ingester,
		linker:     linker,
		downloader: downloader,
		publisher:  publisher,
		logger:     logging.OrNop(logger),
	}
}

// HandleIngest ingests or deletes the document named by the event. Malformed
// events yield an error status; pipeline failures are returned so the caller
// can retry.
func (h *Handler) HandleIngest(ctx context.Context, raw json.RawMessage) (Status, error) {
	h.logger.Info("ingest worker received event", zap.ByteString("event", raw))

	ev, err := parseIngestEvent(raw)
	if err != nil {
		h.logger.Error("rejecting ingest event", zap.Error(err))
		return Status{Status: StatusError, Message: err.Error()}, nil
	}
	if ev.Filename == "" {
		h.logger.Error("no filename found in event payload")
		return Status{Status: StatusError, Message: "Missing filename"}, nil
	}

	filename := filepath.Base(ev.Filename)

	if ev.Event == EventDeleted {
		if err := h.ingester.Delete(ctx, filename); err != nil {
			return Status{}, fmt.Errorf("failed to delete %s: %w", filename, err)
		}
		h.publish(ctx, events.Event{Type: events.TypeDocumentDeleted, Document: filename})
		return Status{Status: StatusDeleted, Filename: filename}, nil
	}

	req := documents.IngestRequest{Path: ev.Filename, Filename: filename}
	if ev.Bucket != "" && ev.Key != "" {
		if h.downloader == nil {
			return Status{}, fmt.Errorf("cannot fetch s3://%s/%s: no object store configured", ev.Bucket, ev.Key)
		}
		local, cleanup, err := h.downloader.Download(ctx, ev.Bucket, ev.Key)
		if err != nil {
			return Status{}, err
		}
		defer cleanup()

		req.Path = local
		req.Source = fmt.Sprintf("s3://%s/%s", ev.Bucket, ev.Key)
	}

	res, err := h.ingester.Ingest(ctx, req)
	if err != nil {
		return Status{}, fmt.Errorf("failed to ingest %s: %w", filename, err)
	}

	h.publish(ctx, events.Event{Type: events.TypeDocumentIngested, Document: filename, Chunks: res.Chunks})
	return Status{Status: StatusIngested, Filename: filename, Chunks: res.Chunks}, nil
}

// HandleLink runs the targeted linker for the event's document. Deleted
// documents are skipped without touching the graph.
func (h *Handler) HandleLink(ctx context.Context, ev LinkEvent) (Status, error) {
	h.logger.Info("link worker received event", zap.String("filename", ev.Filename), zap.String("status", ev.Status))

	if ev.Status == StatusDeleted {
		h.logger.Info("file was deleted, skipping linking phase", zap.String("filename", ev.Filename))
		return Status{Status: StatusSkipped, Filename: ev.Filename}, nil
	}
	if ev.Filename == "" {
		h.logger.Error("no filename found in event payload")
		return Status{Status: StatusError, Message: "Missing filename"}, nil
	}

	links, err := h.linker.Link(ctx, ev.Filename)
	if err != nil {
		h.logger.Error("linking failed", zap.String("filename", ev.Filename), zap.Error(err))
		return Status{}, err
	}

	h.publish(ctx, events.Event{Type: events.TypeDocumentLinked, Document: ev.Filename, Links: links})
	h.logger.Info("linking phase complete", zap.String("filename", ev.Filename))
	return Status{Status: StatusLinkingComplete, Filename: ev.Filename, Links: links}, nil
}

func (h *Handler) publish(ctx context.Context, ev events.Event) {
	ev.Timestamp = time.Now().UTC()
	if err := h.publisher.Publish(ctx, ev); err != nil {
		h.logger.Warn("failed to publish lifecycle event",
			zap.String("type", ev.Type),
			zap.String("document", ev.Document),
			zap.Error(err),
		)
	}
}
