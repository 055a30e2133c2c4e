package watcher

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ReindexFunc rebuilds the index after the given batch of changes.
type ReindexFunc func(ctx context.Context, changes []FileEvent) error

// Reindexer drives a ReindexFunc from a Watcher. Batches that arrive while a
// rebuild is running are merged into the next rebuild, so at most one rebuild
// runs at a time and none is lost.
type Reindexer struct {
	watcher Watcher
	reindex ReindexFunc
	onDone  func(changes int, took time.Duration, err error)
}

// NewReindexer creates a Reindexer. onDone may be nil.
func NewReindexer(w Watcher, fn ReindexFunc, onDone func(changes int, took time.Duration, err error)) *Reindexer {
	if onDone == nil {
		onDone = func(int, time.Duration, error) {}
	}
	return &Reindexer{watcher: w, reindex: fn, onDone: onDone}
}

// Run consumes events until ctx is done or the watcher closes its channels.
// Rebuild failures are logged and reported through onDone; Run keeps going.
func (r *Reindexer) Run(ctx context.Context) error {
	events := r.watcher.Events()
	errs := r.watcher.Errors()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			slog.Warn("watcher_error", slog.String("error", err.Error()))
		case batch, ok := <-events:
			if !ok {
				return nil
			}
			batch = drain(events, batch)
			r.runOnce(ctx, batch)
		}
	}
}

// drain appends every batch already queued on events.
func drain(events <-chan []FileEvent, batch []FileEvent) []FileEvent {
	for {
		select {
		case more, ok := <-events:
			if !ok {
				return batch
			}
			batch = append(batch, more...)
		default:
			return batch
		}
	}
}

func (r *Reindexer) runOnce(ctx context.Context, batch []FileEvent) {
	start := time.Now()
	err := r.reindex(ctx, batch)
	took := time.Since(start)

	switch {
	case err == nil:
		slog.Info("vault_reindexed",
			slog.Int("changes", len(batch)),
			slog.Duration("duration", took))
	case errors.Is(err, context.Canceled):
	default:
		slog.Warn("vault_reindex_failed",
			slog.Int("changes", len(batch)),
			slog.String("error", err.Error()))
	}
	r.onDone(len(batch), took, err)
}
