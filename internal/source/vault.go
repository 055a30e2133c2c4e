package source

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/afero"

	"github.com/Aman-CERP/docrag/internal/canvas"
	"github.com/Aman-CERP/docrag/internal/chunk"
	docerrors "github.com/Aman-CERP/docrag/internal/errors"
	"github.com/Aman-CERP/docrag/internal/store"
)

// Vault corpus defaults.
const (
	VaultDocType   = "vault"
	VaultVersion   = "latest"
	vaultDocPrefix = "vault:"
)

// VaultDocName returns the corpus name for a vault root.
func VaultDocName(root string) string {
	return vaultDocPrefix + filepath.Base(filepath.Clean(root))
}

// VaultRequest names the vault corpus.
type VaultRequest struct {
	DocName string // defaults to VaultDocName(root)
	Version string // defaults to VaultVersion
}

// LoadVault indexes every canvas under the reader root (summary, text nodes
// and referenced files) and every markdown file no canvas references.
func LoadVault(ctx context.Context, r *canvas.Reader, req VaultRequest, opts Options) (*Result, error) {
	opts.Fs = r.Fs()
	opts = opts.withDefaults()
	start := time.Now()
	runID := newRunID()

	if req.DocName == "" {
		req.DocName = VaultDocName(r.Root())
	}
	if req.Version == "" {
		req.Version = VaultVersion
	}

	canvases, err := opts.discover(r.Root(), []string{canvas.Extension})
	if err != nil {
		return nil, err
	}
	markdown, err := opts.discover(r.Root(), []string{".md"})
	if err != nil {
		return nil, err
	}

	slog.Info("vault_load_started",
		slog.String("run_id", runID),
		slog.String("vault", r.Root()),
		slog.Int("canvases", len(canvases)),
		slog.Int("markdown", len(markdown)))

	common := map[string]string{
		store.MetaDocName:   req.DocName,
		store.MetaVersion:   req.Version,
		store.MetaDocType:   VaultDocType,
		store.MetaIndexedAt: opts.now().UTC().Format(time.RFC3339),
	}

	// Canvases are parsed once up front: their file references decide which
	// markdown files are standalone.
	parsed := make(map[string]*canvas.Document, len(canvases))
	referenced := make(map[string]struct{})
	var errs []FileError
	for _, rel := range canvases {
		doc, err := r.ReadFile(rel)
		if err != nil {
			slog.Warn("skipping canvas", slog.String("path", rel), slog.String("error", err.Error()))
			errs = append(errs, FileError{Path: rel, Err: err})
			continue
		}
		parsed[rel] = doc
		for _, n := range canvas.FileNodes(doc.Graph) {
			referenced[path.Clean(filepath.ToSlash(n.File))] = struct{}{}
		}
	}

	var standalone []string
	for _, rel := range markdown {
		if _, ok := referenced[rel]; !ok {
			standalone = append(standalone, rel)
		}
	}

	// One ordered work list: canvases first, then standalone markdown.
	work := make([]string, 0, len(parsed)+len(standalone))
	for _, rel := range canvases {
		if _, ok := parsed[rel]; ok {
			work = append(work, rel)
		}
	}
	nCanvases := len(work)
	work = append(work, standalone...)

	docs, nFiles, fileErrs, err := opts.processFiles(ctx, work, func(_ context.Context, rel string) ([]Document, error) {
		if doc, ok := parsed[rel]; ok {
			return canvasDocuments(r, rel, doc, opts.ChunkSize, common), nil
		}
		return standaloneDocuments(opts.Fs, r.Root(), rel, opts.ChunkSize, common)
	})
	if err != nil {
		return nil, err
	}
	errs = append(errs, fileErrs...)

	res := &Result{RunID: runID, Documents: docs, Files: nFiles, Errors: errs, Duration: time.Since(start)}
	slog.Info("vault_load_complete",
		slog.String("run_id", runID),
		slog.Int("canvases", nCanvases),
		slog.Int("standalone", len(standalone)),
		slog.Int("documents", len(res.Documents)),
		slog.Int("errors", len(res.Errors)),
		slog.Duration("took", res.Duration))
	return res, nil
}

func canvasDocuments(r *canvas.Reader, rel string, doc *canvas.Document, chunkSize int, common map[string]string) []Document {
	name := stem(rel)
	out := []Document{{
		ID:   "canvas_" + HashID(rel),
		Text: canvas.Summary(doc),
		Metadata: withCommon(common, map[string]string{
			store.MetaSource:      rel,
			store.MetaFileName:    path.Base(rel),
			store.MetaTitle:       name,
			store.MetaType:        TypeCanvas,
			store.MetaChunkIndex:  "0",
			store.MetaTotalChunks: "1",
		}),
	}}

	seen := make(map[string]struct{})
	for _, n := range doc.TextNodes() {
		if _, dup := seen[n.ID]; dup {
			continue
		}
		seen[n.ID] = struct{}{}
		out = append(out, Document{
			ID:   "node_" + HashID(rel+"_"+n.ID),
			Text: canvas.ContextualText(n.ID, doc.Graph),
			Metadata: withCommon(common, map[string]string{
				store.MetaSource:   rel,
				store.MetaFileName: path.Base(rel),
				store.MetaTitle:    name + " - Node",
				store.MetaType:     TypeCanvasNode,
				store.MetaNodeID:   n.ID,
				store.MetaNodeType: string(n.Color),
			}),
		})
	}

	// Referenced files in node order.
	contents := r.ResolveReferencedFiles(doc.Graph)
	done := make(map[string]struct{})
	for _, n := range canvas.FileNodes(doc.Graph) {
		if _, ok := done[n.File]; ok {
			continue
		}
		done[n.File] = struct{}{}

		content := contents[n.File]
		if canvas.IsErrorMarker(content) {
			slog.Warn("skipping canvas reference",
				slog.String("canvas", rel),
				slog.String("file", n.File),
				slog.String("reason", content))
			continue
		}
		for _, c := range chunk.Document(n.File, content, chunkSize) {
			out = append(out, Document{
				ID:   "file_" + HashID(fmt.Sprintf("%s_chunk_%d", n.File, c.Index)),
				Text: c.Text,
				Metadata: withCommon(common, map[string]string{
					store.MetaSource:       n.File,
					store.MetaFileName:     path.Base(filepath.ToSlash(n.File)),
					store.MetaTitle:        stem(n.File),
					store.MetaType:         TypeFileChunk,
					store.MetaCanvasSource: rel,
					store.MetaChunkIndex:   strconv.Itoa(c.Index),
					store.MetaTotalChunks:  strconv.Itoa(c.TotalChunks),
				}),
			})
		}
	}
	return out
}

func standaloneDocuments(fsys afero.Fs, root, rel string, chunkSize int, common map[string]string) ([]Document, error) {
	data, err := afero.ReadFile(fsys, filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, docerrors.New(docerrors.ErrCodeFileRead, "could not read "+rel, err)
	}

	chunks := chunk.Document(rel, string(data), chunkSize)
	out := make([]Document, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, Document{
			ID:   "standalone_" + HashID(fmt.Sprintf("%s_chunk_%d", rel, c.Index)),
			Text: c.Text,
			Metadata: withCommon(common, map[string]string{
				store.MetaSource:      rel,
				store.MetaFileName:    path.Base(rel),
				store.MetaTitle:       stem(rel),
				store.MetaType:        TypeStandaloneChunk,
				store.MetaChunkIndex:  strconv.Itoa(c.Index),
				store.MetaTotalChunks: strconv.Itoa(c.TotalChunks),
			}),
		})
	}
	return out, nil
}
