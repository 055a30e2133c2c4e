// Package search ranks collection records against a natural-language query.
//
// A Ranker runs in one of two modes fixed at construction. Vector mode embeds
// the query once and asks the collection's vector index for nearest
// neighbours. Lexical mode scores every record with a substring and token
// count heuristic. Vector mode is used only when an embedder is attached and
// the collection has a vector index.
package search

import (
	"github.com/Aman-CERP/docrag/internal/embed"
	"github.com/Aman-CERP/docrag/internal/store"
)

// Mode identifies the ranking strategy.
type Mode string

const (
	ModeVector  Mode = "vector"
	ModeLexical Mode = "lexical"
)

// UnknownSource is reported for records without a source.
const UnknownSource = "Unknown"

// RankedResult is one search hit.
type RankedResult struct {
	Content  string            `json:"content"`
	Source   string            `json:"source"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata"`
}

// Title returns the title metadata value.
func (r RankedResult) Title() string { return r.Metadata[store.MetaTitle] }

// Options configures a Ranker.
type Options struct {
	// Embedder may be nil, which forces lexical mode.
	Embedder   embed.Embedder
	Collection store.Collection
}

// Filter restricts results by metadata equality. Empty fields match anything.
type Filter struct {
	DocName string
	Version string
	DocType string
}

// IsZero reports whether the filter matches every record.
func (f Filter) IsZero() bool {
	return f.DocName == "" && f.Version == "" && f.DocType == ""
}

// Where returns the filter as a metadata predicate.
func (f Filter) Where() map[string]string {
	where := make(map[string]string, 3)
	if f.DocName != "" {
		where[store.MetaDocName] = f.DocName
	}
	if f.Version != "" {
		where[store.MetaVersion] = f.Version
	}
	if f.DocType != "" {
		where[store.MetaDocType] = f.DocType
	}
	return where
}
