package neo4jstore

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/docgraph/ingest/internal/graph"
)

// chunkRows converts chunks to UNWIND parameters. Embeddings are sent as
// float64 lists; a missing embedding becomes null so the property is unset.
func chunkRows(chunks []graph.Chunk) []map[string]any {
	rows := make([]map[string]any, 0, len(chunks))
	for _, c := range chunks {
		var embedding any
		if len(c.Embedding) > 0 {
			vec := make([]float64, len(c.Embedding))
			for i, v := range c.Embedding {
				vec[i] = float64(v)
			}
			embedding = vec
		}
		rows = append(rows, map[string]any{
			"id":          c.ID,
			"text":        c.Text,
			"source":      c.Source,
			"page":        int64(c.Page),
			"chunk_index": int64(c.ChunkIndex),
			"parent_doc":  c.ParentDoc,
			"embedding":   embedding,
		})
	}
	return rows
}

func documentFromRecord(rec *neo4j.Record) *graph.Document {
	return &graph.Document{
		ID:            stringValue(rec, "id"),
		Summary:       stringValue(rec, "summary"),
		SemanticNeeds: stringsValue(rec, "needs"),
		ExplicitRefs:  stringsValue(rec, "explicit"),
		ContentHash:   stringValue(rec, "hash"),
		UpdatedAt:     timeValue(rec, "updated_at"),
	}
}

func stringValue(rec *neo4j.Record, key string) string {
	v, _ := rec.Get(key)
	s, _ := v.(string)
	return s
}

func stringsValue(rec *neo4j.Record, key string) []string {
	v, _ := rec.Get(key)
	list, _ := v.([]any)
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func timeValue(rec *neo4j.Record, key string) time.Time {
	v, _ := rec.Get(key)
	switch t := v.(type) {
	case time.Time:
		return t
	case neo4j.LocalDateTime:
		return t.Time()
	}
	return time.Time{}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
