// Package index runs one indexing job end to end: load source documents,
// embed them in batches and hand the records to the lifecycle manager,
// reporting progress to a ui.Renderer along the way.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Aman-CERP/docrag/internal/embed"
	docerrors "github.com/Aman-CERP/docrag/internal/errors"
	"github.com/Aman-CERP/docrag/internal/lifecycle"
	"github.com/Aman-CERP/docrag/internal/source"
	"github.com/Aman-CERP/docrag/internal/store"
	"github.com/Aman-CERP/docrag/internal/ui"
)

// LoadFunc loads the documents of a job. onFile must be called after each
// file so the renderer can track reading progress.
type LoadFunc func(ctx context.Context, onFile func(path string, done, total int)) (*source.Result, error)

// Job describes one corpus to index.
type Job struct {
	DocName    string
	Version    string
	DocType    string
	SourcePath string
	Force      bool
	Load       LoadFunc
}

// Result is the outcome of a run.
type Result struct {
	RunID     string
	Status    lifecycle.Status
	Corpus    store.IndexedCorpus
	Files     int
	Documents int
	Removed   int
	Errors    []source.FileError
	Duration  time.Duration
}

// Dependencies are the collaborators of a Runner.
type Dependencies struct {
	// Renderer receives progress (required).
	Renderer ui.Renderer
	// Manager owns the collection and corpus metadata (required).
	Manager *lifecycle.Manager
	// Embedder may be nil; records are then stored without vectors and only
	// lexical ranking is available.
	Embedder embed.Embedder
	// BatchSize is the number of texts per EmbedBatch call.
	BatchSize int
}

// Runner executes indexing jobs.
type Runner struct {
	renderer  ui.Renderer
	manager   *lifecycle.Manager
	embedder  embed.Embedder
	batchSize int
}

// NewRunner creates a Runner.
func NewRunner(deps Dependencies) (*Runner, error) {
	if deps.Renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}
	if deps.Manager == nil {
		return nil, fmt.Errorf("lifecycle manager is required")
	}
	batchSize := deps.BatchSize
	if batchSize <= 0 {
		batchSize = embed.DefaultBatchSize
	}
	return &Runner{
		renderer:  deps.Renderer,
		manager:   deps.Manager,
		embedder:  deps.Embedder,
		batchSize: batchSize,
	}, nil
}

type stageTiming struct {
	load  time.Duration
	embed time.Duration
	write time.Duration
}

// Run executes job. An already indexed corpus is reported without loading
// anything unless job.Force is set.
func (r *Runner) Run(ctx context.Context, job Job) (*Result, error) {
	start := time.Now()
	corpus := job.DocName + "@" + job.Version

	if !job.Force {
		existing, err := r.manager.Lookup(ctx, job.DocName, job.Version)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			r.renderer.Complete(ui.CompletionStats{Corpus: corpus, AlreadyIndexed: true})
			return &Result{
				Status:    lifecycle.StatusAlreadyIndexed,
				Corpus:    *existing,
				Documents: existing.DocumentCount,
				Duration:  time.Since(start),
			}, nil
		}
	}

	var timing stageTiming

	// Load
	loadStart := time.Now()
	r.renderer.UpdateProgress(ui.ProgressEvent{
		Stage:   ui.StageDiscovering,
		Message: fmt.Sprintf("Scanning %s...", job.SourcePath),
	})
	loaded, err := job.Load(ctx, func(path string, done, total int) {
		r.renderer.UpdateProgress(ui.ProgressEvent{
			Stage:       ui.StageReading,
			Current:     done,
			Total:       total,
			CurrentFile: path,
		})
	})
	if err != nil {
		return nil, err
	}
	timing.load = time.Since(loadStart)

	for _, fe := range loaded.Errors {
		r.renderer.AddError(ui.ErrorEvent{File: fe.Path, Err: fe.Err, IsWarn: true})
	}
	if len(loaded.Documents) == 0 {
		return nil, docerrors.ValidationError("path",
			fmt.Sprintf("no indexable documents found in %s", job.SourcePath)).
			WithDetail("run_id", loaded.RunID)
	}

	// Embed
	embedStart := time.Now()
	records, err := r.embedDocuments(ctx, loaded.Documents)
	if err != nil {
		return nil, err
	}
	timing.embed = time.Since(embedStart)

	// Write
	writeStart := time.Now()
	r.renderer.UpdateProgress(ui.ProgressEvent{
		Stage:   ui.StageWriting,
		Total:   len(records),
		Message: "writing to collection",
	})
	res, err := r.manager.IndexCorpus(ctx, lifecycle.Request{
		DocName:      job.DocName,
		Version:      job.Version,
		DocType:      job.DocType,
		SourcePath:   job.SourcePath,
		Records:      records,
		ForceReindex: job.Force,
	})
	if err != nil {
		return nil, err
	}
	timing.write = time.Since(writeStart)

	duration := time.Since(start)
	info := embed.GetInfo(ctx, r.embedder)
	if res.Status == lifecycle.StatusAlreadyIndexed {
		// another process won the race
		r.renderer.Complete(ui.CompletionStats{Corpus: corpus, AlreadyIndexed: true})
	} else {
		r.renderer.Complete(ui.CompletionStats{
			Corpus:    corpus,
			Files:     loaded.Files,
			Documents: len(records),
			Duration:  duration,
			Warnings:  len(loaded.Errors),
			Stages: ui.StageTimings{
				Load:  timing.load,
				Embed: timing.embed,
				Write: timing.write,
			},
			Embedder: ui.EmbedderInfo{
				Backend:    string(info.Provider),
				Model:      info.Model,
				Dimensions: info.Dimensions,
			},
		})
	}

	slog.Info("index_complete",
		slog.String("run_id", loaded.RunID),
		slog.String("doc_name", job.DocName),
		slog.String("version", job.Version),
		slog.String("status", string(res.Status)),
		slog.Int("files", loaded.Files),
		slog.Int("documents", len(records)),
		slog.Int("skipped_files", len(loaded.Errors)),
		slog.Int64("duration_total_ms", duration.Milliseconds()),
		slog.Int64("duration_load_ms", timing.load.Milliseconds()),
		slog.Int64("duration_embed_ms", timing.embed.Milliseconds()),
		slog.Int64("duration_write_ms", timing.write.Milliseconds()),
		slog.String("embedder_backend", string(info.Provider)),
		slog.String("embedder_model", info.Model))

	return &Result{
		RunID:     loaded.RunID,
		Status:    res.Status,
		Corpus:    res.Corpus,
		Files:     loaded.Files,
		Documents: len(records),
		Removed:   res.Removed,
		Errors:    loaded.Errors,
		Duration:  duration,
	}, nil
}

// embedDocuments turns documents into records. Vectors are computed only
// when an embedder is configured and the collection keeps vectors.
func (r *Runner) embedDocuments(ctx context.Context, docs []source.Document) ([]store.Record, error) {
	records := make([]store.Record, len(docs))
	for i, d := range docs {
		records[i] = store.Record{ID: d.ID, Text: d.Text, Metadata: d.Metadata}
	}

	if r.embedder == nil || !r.manager.Collection().HasVectors() {
		return records, nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}

	r.renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageEmbedding, Total: len(texts)})
	vectors, err := embed.EmbedInBatches(ctx, r.embedder, texts, r.batchSize, func(done, total int) {
		r.renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageEmbedding, Current: done, Total: total})
	})
	if err != nil {
		if _, ok := docerrors.As(err); ok {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, docerrors.BackendError(docerrors.ErrCodeEmbeddingFailed, "failed to embed documents", err).
			WithDetail("model", r.embedder.ModelName())
	}
	if len(vectors) != len(records) {
		return nil, docerrors.InternalError(
			fmt.Sprintf("embedder returned %d vectors for %d documents", len(vectors), len(records)), nil)
	}

	for i := range records {
		records[i].Embedding = vectors[i]
	}
	return records, nil
}
