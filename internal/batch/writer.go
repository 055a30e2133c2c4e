// Package batch submits records to a Collection in size-bounded batches.
//
// Batches are sent in order and never retried: the first failure stops the
// write and reports how many records were committed before it.
package batch

import (
	"context"
	"fmt"
	"log/slog"

	docerrors "github.com/Aman-CERP/docrag/internal/errors"
	"github.com/Aman-CERP/docrag/internal/store"
)

// DefaultMaxBatchSize is the default batch bound.
const DefaultMaxBatchSize = store.DefaultMaxBatchSize

// Result summarizes a Write.
type Result struct {
	Batches   int // batches submitted successfully
	Committed int // records in those batches
}

// Writer splits record slices into batches for a Collection.
type Writer struct {
	Collection   store.Collection
	MaxBatchSize int

	// Progress, if set, is called after each committed batch.
	Progress func(committed, total int)
}

// New returns a Writer bounded by the smaller of maxBatchSize and the
// collection's own limit. A non-positive maxBatchSize uses the collection's.
func New(c store.Collection, maxBatchSize int) *Writer {
	limit := c.MaxBatchSize()
	if limit <= 0 {
		limit = DefaultMaxBatchSize
	}
	if maxBatchSize > 0 && maxBatchSize < limit {
		limit = maxBatchSize
	}
	return &Writer{Collection: c, MaxBatchSize: limit}
}

// Write submits records in ceil(n/MaxBatchSize) ordered batches.
// Duplicate ids within records are rejected before anything is written.
func (w *Writer) Write(ctx context.Context, records []store.Record) (Result, error) {
	var res Result

	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r.ID == "" {
			return res, docerrors.ValidationError("id", "record id must not be empty")
		}
		if _, dup := seen[r.ID]; dup {
			return res, docerrors.New(docerrors.ErrCodeDuplicateID,
				fmt.Sprintf("duplicate record id %q", r.ID), nil)
		}
		seen[r.ID] = struct{}{}
	}

	size := w.MaxBatchSize
	if size <= 0 {
		size = DefaultMaxBatchSize
	}

	total := len(records)
	for start, i := 0, 0; start < total; start, i = start+size, i+1 {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		end := min(start+size, total)
		if err := w.Collection.Add(ctx, records[start:end]); err != nil {
			slog.Warn("batch write failed",
				slog.Int("batch", i),
				slog.Int("committed", res.Committed),
				slog.String("error", err.Error()))
			return res, docerrors.BackendError(docerrors.ErrCodeStoreWrite,
				fmt.Sprintf("batch %d failed after %d of %d records were committed", i, res.Committed, total), err).
				WithDetail("batch", fmt.Sprint(i)).
				WithDetail("committed", fmt.Sprint(res.Committed))
		}

		res.Batches++
		res.Committed += end - start
		if w.Progress != nil {
			w.Progress(res.Committed, total)
		}
	}
	return res, nil
}
