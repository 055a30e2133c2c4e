// Package source discovers documentation files and turns them into chunked
// documents ready for embedding.
//
// Two layouts are supported: a docs tree (.md, .txt, .rst, .html and
// pre-chunked .jsonl) indexed under a caller-chosen doc name, and a canvas
// vault whose canvases, canvas text nodes, referenced files and standalone
// markdown are indexed together. A file that cannot be read or parsed is
// logged and reported in Result.Errors; it never aborts the load.
package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/docrag/internal/chunk"
	docerrors "github.com/Aman-CERP/docrag/internal/errors"
)

// Record types written to the type metadata key.
const (
	TypeDocChunk        = "doc_chunk"
	TypeJSONLRecord     = "jsonl_record"
	TypeCanvas          = "canvas"
	TypeCanvasNode      = "canvas_node"
	TypeFileChunk       = "file_chunk"
	TypeStandaloneChunk = "standalone_file_chunk"
)

// DefaultExtensions are the docs file types LoadDocs picks up.
var DefaultExtensions = []string{".md", ".txt", ".rst", ".html", ".jsonl"}

// Document is one chunk of source text with its record metadata.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]string
}

// FileError records a file that was skipped.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string { return e.Path + ": " + e.Err.Error() }

// Result is the output of a load.
type Result struct {
	RunID     string
	Documents []Document
	Files     int // files that produced at least one document
	Errors    []FileError
	Duration  time.Duration
}

// Options configures loading.
type Options struct {
	Fs         afero.Fs
	ChunkSize  int
	Workers    int
	Extensions []string
	// Exclude holds glob patterns matched against each path component.
	Exclude []string

	// OnFile, if set, is called after each file is processed.
	OnFile func(path string, done, total int)

	now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = chunk.DefaultMaxSize
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if len(o.Extensions) == 0 {
		o.Extensions = DefaultExtensions
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// HashID returns the first 16 hex characters of sha256(s).
func HashID(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])[:16]
}

func (o Options) excluded(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		for _, pattern := range o.Exclude {
			if ok, _ := filepath.Match(pattern, part); ok {
				return true
			}
		}
	}
	return false
}

// discover walks root and returns slash-separated paths relative to root
// whose extension is in exts, in lexical walk order.
func (o Options) discover(root string, exts []string) ([]string, error) {
	info, err := o.Fs.Stat(root)
	if err != nil {
		return nil, docerrors.FileNotFound(root)
	}
	if !info.IsDir() {
		if !hasExt(root, exts) {
			return nil, docerrors.InvalidPath(root, "unsupported file type "+filepath.Ext(root))
		}
		return []string{filepath.Base(root)}, nil
	}

	ignore, err := loadIgnore(o.Fs, root)
	if err != nil {
		slog.Warn("failed to read ignore file", slog.String("root", root), slog.String("error", err.Error()))
	}

	var out []string
	err = afero.Walk(o.Fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			slog.Warn("walk error", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		if o.excluded(rel) || ignore.Match(rel, info.IsDir()) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() || !hasExt(path, exts) {
			return nil
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, docerrors.New(docerrors.ErrCodeFileRead, "failed to walk "+root, err)
	}
	return out, nil
}

func hasExt(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// baseDir returns the directory that relative paths from discover are
// relative to.
func (o Options) baseDir(root string) string {
	if info, err := o.Fs.Stat(root); err == nil && !info.IsDir() {
		return filepath.Dir(root)
	}
	return root
}

// fileResult is the per-file output slot of processFiles.
type fileResult struct {
	docs []Document
	err  error
}

// processFiles runs fn over files with a bounded worker pool and returns
// the documents in file order. Failures are isolated to their file.
func (o Options) processFiles(ctx context.Context, files []string, fn func(ctx context.Context, rel string) ([]Document, error)) ([]Document, int, []FileError, error) {
	results := make([]fileResult, len(files))

	var done int
	progress := make(chan string, len(files))
	reported := make(chan struct{})
	go func() {
		defer close(reported)
		for rel := range progress {
			done++
			if o.OnFile != nil {
				o.OnFile(rel, done, len(files))
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.Workers)
	for i, rel := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			docs, err := fn(gctx, rel)
			results[i] = fileResult{docs: docs, err: err}
			progress <- rel
			return nil
		})
	}
	err := g.Wait()
	close(progress)
	<-reported
	if err != nil {
		return nil, 0, nil, err
	}

	var (
		docs    []Document
		nFiles  int
		errs    []FileError
		seenIDs = make(map[string]struct{})
	)
	for i, r := range results {
		if r.err != nil {
			slog.Warn("skipping file", slog.String("path", files[i]), slog.String("error", r.err.Error()))
			errs = append(errs, FileError{Path: files[i], Err: r.err})
			continue
		}
		if len(r.docs) > 0 {
			nFiles++
		}
		for _, d := range r.docs {
			// A file referenced from several canvases keeps its first occurrence.
			if _, dup := seenIDs[d.ID]; dup {
				continue
			}
			seenIDs[d.ID] = struct{}{}
			docs = append(docs, d)
		}
	}
	return docs, nFiles, errs, nil
}

func newRunID() string { return uuid.NewString() }
