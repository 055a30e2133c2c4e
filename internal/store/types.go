// Package store persists indexed records and corpus metadata.
//
// A Collection holds records (text, metadata and optional embedding) in
// insertion order and, when a vector index is attached, answers nearest
// neighbour queries. A CorpusStore holds one IndexedCorpus per
// (doc name, version) key. SQLite backs both on disk; in-memory versions
// exist for tests and ephemeral use.
package store

import (
	"context"
	"time"
)

// DefaultMaxBatchSize is the largest number of records a single Add accepts.
const DefaultMaxBatchSize = 5461

// Metadata keys written on every record.
const (
	MetaDocName     = "doc_name"
	MetaVersion     = "version"
	MetaDocType     = "doc_type"
	MetaSource      = "source"
	MetaFileName    = "file_name"
	MetaTitle       = "title"
	MetaType        = "type"
	MetaChunkIndex  = "chunk_index"
	MetaTotalChunks = "total_chunks"
	MetaIndexedAt   = "indexed_at"

	// Optional keys
	MetaSection      = "section"
	MetaNodeID       = "node_id"
	MetaNodeType     = "node_type"
	MetaCanvasSource = "canvas_source"
)

// Record is one row of a Collection.
type Record struct {
	ID        string
	Text      string
	Embedding []float32 // nil when indexed without an embedder
	Metadata  map[string]string
}

// Meta returns the metadata value for key, or "".
func (r Record) Meta(key string) string {
	if r.Metadata == nil {
		return ""
	}
	return r.Metadata[key]
}

// Matches reports whether every key in where has an equal metadata value.
func (r Record) Matches(where map[string]string) bool {
	for k, v := range where {
		if r.Meta(k) != v {
			return false
		}
	}
	return true
}

// QueryHit is a record returned by a vector query.
type QueryHit struct {
	Record
	// Distance is the cosine distance to the query, in [0, 2].
	Distance float32
}

// Collection is the document store used by the batch writer, lifecycle and ranker.
type Collection interface {
	// Add upserts records. len(records) must not exceed MaxBatchSize.
	Add(ctx context.Context, records []Record) error

	// Query returns up to k records nearest to embedding, by ascending distance.
	// Only valid when HasVectors is true.
	Query(ctx context.Context, embedding []float32, k int) ([]QueryHit, error)

	// Delete removes records by id; unknown ids are ignored.
	Delete(ctx context.Context, ids []string) error

	// DeleteWhere removes records whose metadata matches every pair in where
	// and returns how many were removed. An empty where is rejected.
	DeleteWhere(ctx context.Context, where map[string]string) (int, error)

	// Count returns the exact number of records.
	Count(ctx context.Context) (int, error)

	// Scan visits all records in insertion order until fn returns an error.
	Scan(ctx context.Context, fn func(Record) error) error

	// Sample returns up to n records in insertion order.
	Sample(ctx context.Context, n int) ([]Record, error)

	// HasVectors reports whether a vector index is attached.
	HasVectors() bool

	// MaxBatchSize is the largest batch Add accepts.
	MaxBatchSize() int

	Close() error
}

// IndexedCorpus is the metadata of one indexed (doc name, version) corpus.
type IndexedCorpus struct {
	DocName       string    `json:"doc_name"`
	Version       string    `json:"version"`
	DocType       string    `json:"doc_type"`
	SourcePath    string    `json:"source_path"`
	DocumentCount int       `json:"document_count"`
	IndexedAt     time.Time `json:"indexed_at"`
}

// CorpusStore persists IndexedCorpus entries keyed by (DocName, Version).
type CorpusStore interface {
	// GetCorpus returns nil and no error when the key is unknown.
	GetCorpus(ctx context.Context, docName, version string) (*IndexedCorpus, error)
	PutCorpus(ctx context.Context, c IndexedCorpus) error
	// DeleteCorpus reports whether an entry was removed.
	DeleteCorpus(ctx context.Context, docName, version string) (bool, error)
	// ListCorpora returns entries ordered by doc name, then version.
	ListCorpora(ctx context.Context) ([]IndexedCorpus, error)
}

func cloneMeta(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
