package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Aman-CERP/docrag/internal/config"
	"github.com/Aman-CERP/docrag/internal/embed"
	"github.com/Aman-CERP/docrag/internal/engine"
	"github.com/Aman-CERP/docrag/internal/store"
	"github.com/Aman-CERP/docrag/internal/ui"
)

// appOptions selects what a command needs from the engine.
type appOptions struct {
	// embedder builds the configured embedding backend, degrading to
	// lexical ranking when it is unreachable.
	embedder bool
	// renderer receives indexing progress; nil discards it.
	renderer ui.Renderer
}

// app is one engine over the on-disk store.
type app struct {
	cfg    *config.Config
	store  *store.SQLiteStore
	engine *engine.Engine
}

// openApp loads configuration and opens the store and engine.
func openApp(ctx context.Context, root *rootOptions, opts appOptions) (*app, error) {
	cfg, err := root.loadConfig()
	if err != nil {
		return nil, err
	}

	var embedder embed.Embedder
	if opts.embedder {
		embedder = embed.NewWithFallback(ctx, cfg.Embeddings)
	}

	dims := 0
	if embedder != nil {
		dims = embedder.Dimensions()
	}

	st, err := store.Open(ctx, cfg.Paths.DataDir, store.Options{
		Dimensions:   dims,
		MaxBatchSize: cfg.Index.MaxBatchSize,
	})
	if err != nil {
		if embedder != nil {
			_ = embedder.Close()
		}
		return nil, err
	}

	eng, err := engine.New(engine.Dependencies{
		Config:     cfg,
		Collection: st,
		Corpora:    st,
		Embedder:   embedder,
		Renderer:   opts.renderer,
		Lock:       store.NewLock(cfg.Paths.DataDir),
	})
	if err != nil {
		_ = st.Close()
		if embedder != nil {
			_ = embedder.Close()
		}
		return nil, err
	}

	slog.Debug("engine_opened",
		slog.String("data_dir", cfg.Paths.DataDir),
		slog.String("mode", string(eng.Mode())),
		slog.Int("dimensions", dims))

	return &app{cfg: cfg, store: st, engine: eng}, nil
}

// Close releases the engine and the store.
func (a *app) Close() error {
	return errors.Join(a.engine.Close(), a.store.Close())
}

// storageSize sums the database and vector index files.
func (a *app) storageSize() int64 {
	var total int64
	for _, name := range []string{store.DatabaseFile, store.DatabaseFile + "-wal", store.VectorFile} {
		if info, err := os.Stat(filepath.Join(a.cfg.Paths.DataDir, name)); err == nil {
			total += info.Size()
		}
	}
	return total
}
