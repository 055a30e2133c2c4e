package search

import (
	"context"
	"log/slog"
	"time"

	docerrors "github.com/Aman-CERP/docrag/internal/errors"
	"github.com/Aman-CERP/docrag/internal/store"
)

// strategy is one ranking mode.
type strategy interface {
	mode() Mode
	search(ctx context.Context, query string, limit int, filter Filter) ([]RankedResult, error)
}

// Ranker answers queries against a collection. It never writes.
type Ranker struct {
	collection store.Collection
	strategy   strategy
}

// NewRanker picks vector mode when opts carries an embedder and the
// collection has a vector index, lexical mode otherwise.
func NewRanker(opts Options) (*Ranker, error) {
	if opts.Collection == nil {
		return nil, docerrors.InternalError("search: collection is required", nil)
	}

	r := &Ranker{collection: opts.Collection}
	if opts.Embedder != nil && opts.Collection.HasVectors() {
		r.strategy = vectorStrategy{embedder: opts.Embedder, collection: opts.Collection}
	} else {
		r.strategy = lexicalStrategy{collection: opts.Collection}
	}
	return r, nil
}

// HasVectorBackend reports whether queries are answered by vector similarity.
func (r *Ranker) HasVectorBackend() bool { return r.strategy.mode() == ModeVector }

// Mode returns the active ranking mode.
func (r *Ranker) Mode() Mode { return r.strategy.mode() }

// Search returns up to limit results ordered by descending score.
// An empty collection yields an empty, non-nil slice for any query. The
// empty query is ranked like any other: in lexical mode it is a phrase
// match for every record.
func (r *Ranker) Search(ctx context.Context, query string, limit int, filter ...Filter) ([]RankedResult, error) {
	count, err := r.collection.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return []RankedResult{}, nil
	}
	if limit < 1 {
		return nil, docerrors.ValidationError("limit", "limit must be at least 1")
	}

	var f Filter
	if len(filter) > 0 {
		f = filter[0]
	}

	start := time.Now()
	results, err := r.strategy.search(ctx, query, limit, f)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []RankedResult{}
	}

	slog.Debug("search completed",
		slog.String("mode", string(r.Mode())),
		slog.Int("limit", limit),
		slog.Int("results", len(results)),
		slog.Duration("took", time.Since(start)))
	return results, nil
}

func toResult(r store.Record, score float64) RankedResult {
	source := r.Meta(store.MetaSource)
	if source == "" {
		source = UnknownSource
	}
	meta := make(map[string]string, len(r.Metadata))
	for k, v := range r.Metadata {
		meta[k] = v
	}
	return RankedResult{Content: r.Text, Source: source, Score: score, Metadata: meta}
}
