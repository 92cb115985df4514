// Package memstore is an in-process graph.Store for tests and local dry runs.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/docgraph/ingest/internal/graph"
)

// Store keeps the graph in maps guarded by one lock
type Store struct {
	mu       sync.RWMutex
	docs     map[string]graph.Document
	chunks   map[string]graph.Chunk
	hasChunk map[string]map[string]struct{}
	refs     map[string]map[string]graph.Reference
	writes   int
	now      func() time.Time
}

var _ graph.Store = (*Store)(nil)

// New creates an empty store
func New() *Store {
	return &Store{
		docs:     make(map[string]graph.Document),
		chunks:   make(map[string]graph.Chunk),
		hasChunk: make(map[string]map[string]struct{}),
		refs:     make(map[string]map[string]graph.Reference),
		now:      time.Now,
	}
}

// Writes returns the number of mutating calls made so far
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// EnsureSchema is a no-op
func (s *Store) EnsureSchema(ctx context.Context) error {
	return ctx.Err()
}

// UpsertDocument creates or overwrites a document, keeping its edges
func (s *Store) UpsertDocument(ctx context.Context, doc graph.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++

	doc.SemanticNeeds = slices.Clone(doc.SemanticNeeds)
	doc.ExplicitRefs = slices.Clone(doc.ExplicitRefs)
	doc.UpdatedAt = s.now()
	s.docs[doc.ID] = doc
	return nil
}

// DeleteDocument removes the document, its owned chunks and every edge touching it
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++

	if _, ok := s.docs[id]; !ok {
		return nil
	}

	for chunkID := range s.hasChunk[id] {
		delete(s.chunks, chunkID)
	}
	delete(s.hasChunk, id)
	delete(s.refs, id)
	for _, out := range s.refs {
		delete(out, id)
	}
	delete(s.docs, id)
	return nil
}

// GetDocument returns a copy of the document
func (s *Store) GetDocument(ctx context.Context, id string) (*graph.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, graph.ErrNotFound
	}
	doc.SemanticNeeds = slices.Clone(doc.SemanticNeeds)
	doc.ExplicitRefs = slices.Clone(doc.ExplicitRefs)
	return &doc, nil
}

// ListDocumentIDs returns all document ids in order
func (s *Store) ListDocumentIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// References lists outbound edges of source ordered by target
func (s *Store) References(ctx context.Context, source string) ([]graph.Reference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]graph.Reference, 0, len(s.refs[source]))
	for _, r := range s.refs[source] {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b graph.Reference) int {
		switch {
		case a.Target < b.Target:
			return -1
		case a.Target > b.Target:
			return 1
		}
		return 0
	})
	return out, nil
}

// Chunks returns the chunks owned by parentDoc through HAS_CHUNK, ordered by index
func (s *Store) Chunks(parentDoc string) []graph.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []graph.Chunk
	for id := range s.hasChunk[parentDoc] {
		out = append(out, s.chunks[id])
	}
	slices.SortFunc(out, func(a, b graph.Chunk) int { return a.ChunkIndex - b.ChunkIndex })
	return out
}

// ChunkCount returns the number of chunk nodes, linked or not
func (s *Store) ChunkCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// PruneChunks removes every chunk with the given parent
func (s *Store) PruneChunks(ctx context.Context, parentDoc string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++

	for id, c := range s.chunks {
		if c.ParentDoc == parentDoc {
			delete(s.chunks, id)
			for _, owned := range s.hasChunk {
				delete(owned, id)
			}
		}
	}
	return nil
}

// InsertChunks adds chunk nodes. Ids must be unique.
func (s *Store) InsertChunks(ctx context.Context, chunks []graph.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++

	for _, c := range chunks {
		if c.ID == "" {
			return fmt.Errorf("chunk id is required")
		}
		if _, exists := s.chunks[c.ID]; exists {
			return fmt.Errorf("chunk %s already exists", c.ID)
		}
	}
	for _, c := range chunks {
		c.Embedding = slices.Clone(c.Embedding)
		s.chunks[c.ID] = c
	}
	return nil
}

// LinkChunks attaches chunks with the given parent to their document
func (s *Store) LinkChunks(ctx context.Context, parentDoc string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++

	if _, ok := s.docs[parentDoc]; !ok {
		return nil
	}
	owned := s.hasChunk[parentDoc]
	if owned == nil {
		owned = make(map[string]struct{})
		s.hasChunk[parentDoc] = owned
	}
	for id, c := range s.chunks {
		if c.ParentDoc == parentDoc {
			owned[id] = struct{}{}
		}
	}
	return nil
}

// RunTargetedLinker merges an inferred edge from id to every qualifying document
func (s *Store) RunTargetedLinker(ctx context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++

	this, ok := s.docs[id]
	if !ok {
		return 0, nil
	}

	links := 0
	for _, target := range s.docs {
		if !graph.Qualifies(this, target) {
			continue
		}
		out := s.refs[id]
		if out == nil {
			out = make(map[string]graph.Reference)
			s.refs[id] = out
		}
		out[target.ID] = graph.Reference{
			Source:    id,
			Target:    target.ID,
			Type:      graph.ReferenceInferred,
			UpdatedAt: s.now(),
		}
		links++
	}
	return links, nil
}

// Close is a no-op
func (s *Store) Close(ctx context.Context) error {
	return nil
}
