// Package engine is the single entry point for indexing and retrieval.
// The CLI and the MCP server both build one Engine per process and call
// its operations; nothing in the engine is global.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/Aman-CERP/docrag/internal/canvas"
	"github.com/Aman-CERP/docrag/internal/config"
	"github.com/Aman-CERP/docrag/internal/embed"
	docerrors "github.com/Aman-CERP/docrag/internal/errors"
	"github.com/Aman-CERP/docrag/internal/index"
	"github.com/Aman-CERP/docrag/internal/lifecycle"
	"github.com/Aman-CERP/docrag/internal/search"
	"github.com/Aman-CERP/docrag/internal/source"
	"github.com/Aman-CERP/docrag/internal/store"
	"github.com/Aman-CERP/docrag/internal/telemetry"
	"github.com/Aman-CERP/docrag/internal/ui"
)

// Defaults applied to index requests.
const (
	DefaultDocType = "general"
	DefaultVersion = "latest"
)

// Dependencies are the collaborators of an Engine.
type Dependencies struct {
	// Config is required.
	Config *config.Config
	// Collection and Corpora are usually the same SQLite store.
	Collection store.Collection
	Corpora    store.CorpusStore
	// Embedder may be nil, which selects lexical ranking.
	Embedder embed.Embedder
	// Fs defaults to the OS filesystem.
	Fs afero.Fs
	// Renderer receives indexing progress. Defaults to ui.NopRenderer.
	Renderer ui.Renderer
	// Lock, if set, is held during index and remove.
	Lock *store.Lock
}

// Engine implements the docrag operations.
type Engine struct {
	cfg      *config.Config
	fs       afero.Fs
	embedder embed.Embedder
	manager  *lifecycle.Manager
	ranker   *search.Ranker
	runner   *index.Runner
	lock     *store.Lock
	metrics  *telemetry.QueryMetrics
}

// New creates an Engine.
func New(deps Dependencies) (*Engine, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Collection == nil || deps.Corpora == nil {
		return nil, fmt.Errorf("collection and corpus store are required")
	}
	if deps.Fs == nil {
		deps.Fs = afero.NewOsFs()
	}
	if deps.Renderer == nil {
		deps.Renderer = ui.NopRenderer{}
	}

	manager := lifecycle.NewManager(deps.Collection, deps.Corpora,
		lifecycle.WithMaxBatchSize(deps.Config.Index.MaxBatchSize))

	ranker, err := search.NewRanker(search.Options{Embedder: deps.Embedder, Collection: deps.Collection})
	if err != nil {
		return nil, err
	}

	runner, err := index.NewRunner(index.Dependencies{
		Renderer:  deps.Renderer,
		Manager:   manager,
		Embedder:  deps.Embedder,
		BatchSize: deps.Config.Embeddings.BatchSize,
	})
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:      deps.Config,
		fs:       deps.Fs,
		embedder: deps.Embedder,
		manager:  manager,
		ranker:   ranker,
		runner:   runner,
		lock:     deps.Lock,
		metrics:  telemetry.New(telemetry.Config{}),
	}, nil
}

// Mode reports the ranking mode used by Search.
func (e *Engine) Mode() search.Mode { return e.ranker.Mode() }

// EmbedderInfo describes the configured embedder.
func (e *Engine) EmbedderInfo(ctx context.Context) embed.EmbedderInfo {
	return embed.GetInfo(ctx, e.embedder)
}

// IndexDocsRequest indexes a docs file or directory under a name.
type IndexDocsRequest struct {
	Path    string `json:"doc_path" validate:"required"`
	DocName string `json:"doc_name" validate:"required,max=200"`
	DocType string `json:"doc_type" validate:"max=100"`
	Version string `json:"version" validate:"max=100"`
	Force   bool   `json:"force_reindex"`
}

// IndexDocs loads, embeds and indexes a documentation tree.
func (e *Engine) IndexDocs(ctx context.Context, req IndexDocsRequest) (*index.Result, error) {
	if req.DocType == "" {
		req.DocType = DefaultDocType
	}
	if req.Version == "" {
		req.Version = DefaultVersion
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	path, err := filepath.Abs(req.Path)
	if err != nil {
		return nil, docerrors.InvalidPath(req.Path, err.Error())
	}

	docsReq := source.DocsRequest{Root: path, DocName: req.DocName, Version: req.Version, DocType: req.DocType}
	return e.runLocked(ctx, index.Job{
		DocName:    req.DocName,
		Version:    req.Version,
		DocType:    req.DocType,
		SourcePath: path,
		Force:      req.Force,
		Load: func(ctx context.Context, onFile func(string, int, int)) (*source.Result, error) {
			return source.LoadDocs(ctx, docsReq, e.sourceOptions(onFile))
		},
	})
}

// IndexVaultRequest indexes a canvas vault.
type IndexVaultRequest struct {
	VaultPath string `json:"vault_path"`
	Force     bool   `json:"force_reindex"`
}

// IndexVault indexes the canvases, canvas nodes, referenced files and
// standalone markdown of a vault as one corpus.
func (e *Engine) IndexVault(ctx context.Context, req IndexVaultRequest) (*index.Result, error) {
	reader, err := e.vaultReader(req.VaultPath)
	if err != nil {
		return nil, err
	}

	vreq := source.VaultRequest{DocName: source.VaultDocName(reader.Root()), Version: source.VaultVersion}
	return e.runLocked(ctx, index.Job{
		DocName:    vreq.DocName,
		Version:    vreq.Version,
		DocType:    source.VaultDocType,
		SourcePath: reader.Root(),
		Force:      req.Force,
		Load: func(ctx context.Context, onFile func(string, int, int)) (*source.Result, error) {
			return source.LoadVault(ctx, reader, vreq, e.sourceOptions(onFile))
		},
	})
}

func (e *Engine) runLocked(ctx context.Context, job index.Job) (*index.Result, error) {
	unlock, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return e.runner.Run(ctx, job)
}

func (e *Engine) sourceOptions(onFile func(string, int, int)) source.Options {
	return source.Options{
		Fs:         e.fs,
		ChunkSize:  e.cfg.Index.ChunkSize,
		Workers:    e.cfg.Index.Workers,
		Extensions: e.cfg.Index.Extensions,
		Exclude:    e.cfg.Index.Exclude,
		OnFile:     onFile,
	}
}

// SearchRequest is a ranked retrieval query.
type SearchRequest struct {
	Query   string `json:"query"`
	Limit   int    `json:"limit"`
	DocName string `json:"doc_name" validate:"max=200"`
	Version string `json:"version" validate:"max=100"`
	DocType string `json:"doc_type" validate:"max=100"`
}

// Search ranks the collection against req.Query. Limit defaults to the
// configured default and is clamped to [1, max].
func (e *Engine) Search(ctx context.Context, req SearchRequest) ([]search.RankedResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, docerrors.New(docerrors.ErrCodeQueryEmpty, "query must not be empty", nil).
			WithSuggestion("Describe what you are looking for")
	}
	limit := req.Limit
	if limit == 0 {
		limit = e.cfg.Search.DefaultLimit
	}
	limit = max(1, min(limit, e.cfg.Search.MaxLimit))

	filter := search.Filter{DocName: req.DocName, Version: req.Version, DocType: req.DocType}
	start := time.Now()
	results, err := e.ranker.Search(ctx, req.Query, limit, filter)
	if err != nil {
		return nil, err
	}
	e.metrics.Record(telemetry.QueryEvent{
		Query:       req.Query,
		Mode:        string(e.ranker.Mode()),
		ResultCount: len(results),
		Latency:     time.Since(start),
	})
	return results, nil
}

// QueryStats summarizes the searches served by this engine.
func (e *Engine) QueryStats() telemetry.Snapshot {
	return e.metrics.Snapshot(10)
}

// Remove deletes a corpus and reports whether anything was removed.
func (e *Engine) Remove(ctx context.Context, docName, version string) (bool, error) {
	if docName == "" {
		return false, docerrors.ValidationError("doc_name", "doc_name is required")
	}
	if version == "" {
		version = DefaultVersion
	}
	unlock, err := e.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer unlock()

	removed, err := e.manager.Remove(ctx, docName, version)
	if err != nil {
		return false, err
	}
	slog.Info("corpus_removed",
		slog.String("doc_name", docName),
		slog.String("version", version),
		slog.Bool("found", removed))
	return removed, nil
}

// List returns the indexed corpora.
func (e *Engine) List(ctx context.Context) ([]store.IndexedCorpus, error) {
	return e.manager.List(ctx)
}

// Stats summarizes the collection.
func (e *Engine) Stats(ctx context.Context) (*lifecycle.Stats, error) {
	return e.manager.Stats(ctx)
}

// Graph parses a canvas of the vault by name or relative path.
func (e *Engine) Graph(ctx context.Context, vaultPath, canvasName string) (*canvas.Document, error) {
	if canvasName == "" {
		return nil, docerrors.ValidationError("canvas_file", "canvas_file is required")
	}
	reader, err := e.vaultReader(vaultPath)
	if err != nil {
		return nil, err
	}
	return reader.ReadAuto(canvasName)
}

// File returns the content of a vault file.
func (e *Engine) File(ctx context.Context, vaultPath, relPath string) (string, error) {
	if relPath == "" {
		return "", docerrors.ValidationError("file_path", "file_path is required")
	}
	reader, err := e.vaultReader(vaultPath)
	if err != nil {
		return "", err
	}

	full, err := reader.Resolve(relPath)
	if err != nil {
		return "", err
	}
	info, err := e.fs.Stat(full)
	if err != nil {
		return "", docerrors.FileNotFound(relPath)
	}
	if info.IsDir() {
		return "", docerrors.InvalidPath(relPath, "path is not a file")
	}
	data, err := afero.ReadFile(e.fs, full)
	if err != nil {
		return "", docerrors.New(docerrors.ErrCodeFileRead, fmt.Sprintf("could not read %s", relPath), err)
	}
	return string(data), nil
}

// Close releases the embedder. The collection belongs to the caller.
func (e *Engine) Close() error {
	if e.embedder != nil {
		return e.embedder.Close()
	}
	return nil
}

func (e *Engine) vaultReader(explicit string) (*canvas.Reader, error) {
	vault := e.cfg.ResolveVault(explicit)
	if vault == "" {
		return nil, docerrors.ValidationError("vault_path", "vault path not found").
			WithSuggestion("pass vault_path, set paths.vault in the config, or pick an active vault in VaultPicker")
	}
	abs, err := filepath.Abs(vault)
	if err != nil {
		return nil, docerrors.InvalidPath(vault, err.Error())
	}
	return canvas.NewReader(e.fs, abs)
}

func (e *Engine) acquire(ctx context.Context) (func(), error) {
	if e.lock == nil {
		return func() {}, nil
	}
	if err := e.lock.Acquire(ctx); err != nil {
		return nil, err
	}
	return func() {
		if err := e.lock.Release(); err != nil {
			slog.Warn("failed to release index lock", slog.String("error", err.Error()))
		}
	}, nil
}
