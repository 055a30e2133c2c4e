package search

import (
	"context"
	"fmt"

	"github.com/Aman-CERP/docrag/internal/embed"
	docerrors "github.com/Aman-CERP/docrag/internal/errors"
	"github.com/Aman-CERP/docrag/internal/store"
)

// filterOverFetch is the initial multiplier on limit when a filter is set.
const filterOverFetch = 4

// DistanceToScore converts a cosine distance to a similarity score.
// It is only meaningful for cosine distance, which is what the vector index uses.
func DistanceToScore(distance float32) float64 {
	return 1 - float64(distance)
}

type vectorStrategy struct {
	embedder   embed.Embedder
	collection store.Collection
}

func (s vectorStrategy) mode() Mode { return ModeVector }

func (s vectorStrategy) search(ctx context.Context, query string, limit int, filter Filter) ([]RankedResult, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		if _, ok := docerrors.As(err); ok {
			return nil, err
		}
		return nil, docerrors.BackendError(docerrors.ErrCodeEmbeddingFailed, "failed to embed query", err)
	}

	if filter.IsZero() {
		hits, err := s.collection.Query(ctx, vec, limit)
		if err != nil {
			return nil, fmt.Errorf("vector query failed: %w", err)
		}
		results := make([]RankedResult, 0, len(hits))
		for _, h := range hits {
			results = append(results, toResult(h.Record, DistanceToScore(h.Distance)))
		}
		return results, nil
	}

	total, err := s.collection.Count(ctx)
	if err != nil {
		return nil, err
	}
	where := filter.Where()

	// Widen the fetch until enough hits pass the filter or the index is exhausted.
	fetch := limit * filterOverFetch
	for {
		hits, err := s.collection.Query(ctx, vec, fetch)
		if err != nil {
			return nil, fmt.Errorf("vector query failed: %w", err)
		}

		results := make([]RankedResult, 0, limit)
		for _, h := range hits {
			if !h.Matches(where) {
				continue
			}
			results = append(results, toResult(h.Record, DistanceToScore(h.Distance)))
			if len(results) == limit {
				break
			}
		}
		if len(results) == limit || len(hits) < fetch || fetch >= total {
			return results, nil
		}
		fetch *= 2
	}
}
