// Package graph defines the knowledge graph model and the store contract the
// pipeline writes through.
//
// A Document owns its Chunks through HAS_CHUNK edges and points at related
// documents through REFERENCES edges. Backends live in sub-packages.
package graph

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ReferenceInferred is the type recorded on every linker-created edge
const ReferenceInferred = "inferred"

// ErrNotFound is returned when a document does not exist
var ErrNotFound = errors.New("document not found")

// Document is one ingested source file and its derived metadata
type Document struct {
	ID            string
	Summary       string
	SemanticNeeds []string
	ExplicitRefs  []string
	ContentHash   string
	UpdatedAt     time.Time
}

// Chunk is a bounded text span owned by one document
type Chunk struct {
	ID         string
	Text       string
	Embedding  []float32
	Source     string
	Page       int
	ChunkIndex int
	ParentDoc  string
}

// Reference is a directed REFERENCES edge
type Reference struct {
	Source    string
	Target    string
	Type      string
	UpdatedAt time.Time
}

// Store is the graph persistence contract
type Store interface {
	// EnsureSchema creates constraints and the vector index. Safe to repeat.
	EnsureSchema(ctx context.Context) error

	// UpsertDocument creates or overwrites the document with doc.ID
	UpsertDocument(ctx context.Context, doc Document) error
	// DeleteDocument removes the document, its edges and the chunks it owns
	DeleteDocument(ctx context.Context, id string) error
	GetDocument(ctx context.Context, id string) (*Document, error)
	ListDocumentIDs(ctx context.Context) ([]string, error)
	// References lists outbound REFERENCES edges of source ordered by target
	References(ctx context.Context, source string) ([]Reference, error)

	// PruneChunks removes every chunk whose parent is parentDoc
	PruneChunks(ctx context.Context, parentDoc string) error
	InsertChunks(ctx context.Context, chunks []Chunk) error
	// LinkChunks attaches chunks to their parent document. A missing document is a no-op.
	LinkChunks(ctx context.Context, parentDoc string) error

	// RunTargetedLinker merges REFERENCES edges from id to every document
	// satisfying Qualifies and returns the number of edges touched
	RunTargetedLinker(ctx context.Context, id string) (int, error)

	Close(ctx context.Context) error
}

// Qualifies reports whether the linker draws this -> target. It is the
// reference predicate every backend's linker statement implements.
func Qualifies(this, target Document) bool {
	if this.ID == target.ID {
		return false
	}

	summary := strings.ToLower(target.Summary)
	for _, need := range this.SemanticNeeds {
		if strings.Contains(summary, strings.ToLower(need)) {
			return true
		}
	}

	id := strings.ToLower(target.ID)
	for _, ref := range this.ExplicitRefs {
		if strings.Contains(id, strings.ToLower(ref)) {
			return true
		}
	}
	return false
}
