package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/Aman-CERP/docrag/internal/chunk"
	docerrors "github.com/Aman-CERP/docrag/internal/errors"
	"github.com/Aman-CERP/docrag/internal/store"
)

// htmlTag matches one markup tag.
var htmlTag = regexp.MustCompile(`<[^<]+?>`)

// DocsRequest names the corpus a docs tree is loaded into.
type DocsRequest struct {
	Root    string // file or directory
	DocName string
	Version string
	DocType string
}

// jsonlLine is one pre-chunked record.
type jsonlLine struct {
	Text    string `json:"text"`
	File    string `json:"file"`
	Section string `json:"section"`
}

// LoadDocs reads every supported file under req.Root and chunks it.
func LoadDocs(ctx context.Context, req DocsRequest, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	start := time.Now()
	runID := newRunID()

	files, err := opts.discover(req.Root, opts.Extensions)
	if err != nil {
		return nil, err
	}
	base := opts.baseDir(req.Root)
	indexedAt := opts.now().UTC().Format(time.RFC3339)

	slog.Info("docs_load_started",
		slog.String("run_id", runID),
		slog.String("path", req.Root),
		slog.String("doc_name", req.DocName),
		slog.Int("files", len(files)))

	docs, nFiles, errs, err := opts.processFiles(ctx, files, func(_ context.Context, rel string) ([]Document, error) {
		data, err := afero.ReadFile(opts.Fs, filepath.Join(base, filepath.FromSlash(rel)))
		if err != nil {
			return nil, docerrors.New(docerrors.ErrCodeFileRead, "could not read "+rel, err)
		}
		common := map[string]string{
			store.MetaDocName:   req.DocName,
			store.MetaVersion:   req.Version,
			store.MetaDocType:   req.DocType,
			store.MetaSource:    rel,
			store.MetaIndexedAt: indexedAt,
		}
		if strings.EqualFold(path.Ext(rel), ".jsonl") {
			return jsonlDocuments(req, rel, data, common), nil
		}
		return textDocuments(req, rel, data, opts.ChunkSize, common), nil
	})
	if err != nil {
		return nil, err
	}

	res := &Result{RunID: runID, Documents: docs, Files: nFiles, Errors: errs, Duration: time.Since(start)}
	slog.Info("docs_load_complete",
		slog.String("run_id", runID),
		slog.Int("files", res.Files),
		slog.Int("documents", len(res.Documents)),
		slog.Int("errors", len(res.Errors)),
		slog.Duration("took", res.Duration))
	return res, nil
}

func textDocuments(req DocsRequest, rel string, data []byte, chunkSize int, common map[string]string) []Document {
	content := string(data)
	if strings.EqualFold(path.Ext(rel), ".html") {
		content = htmlTag.ReplaceAllString(content, "")
	}

	chunks := chunk.Document(rel, content, chunkSize)
	out := make([]Document, 0, len(chunks))
	for _, c := range chunks {
		meta := withCommon(common, map[string]string{
			store.MetaFileName:    path.Base(rel),
			store.MetaTitle:       stem(rel),
			store.MetaType:        TypeDocChunk,
			store.MetaChunkIndex:  strconv.Itoa(c.Index),
			store.MetaTotalChunks: strconv.Itoa(c.TotalChunks),
		})
		out = append(out, Document{
			ID:       HashID(fmt.Sprintf("%s_%s_%s_%d", req.DocName, req.Version, rel, c.Index)),
			Text:     c.Text,
			Metadata: meta,
		})
	}
	return out
}

// jsonlDocuments keeps each line as one document. Malformed or text-less
// lines are logged and skipped.
func jsonlDocuments(req DocsRequest, rel string, data []byte, common map[string]string) []Document {
	var lines [][]byte
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		lines = append(lines, append([]byte(nil), sc.Bytes()...))
	}
	if err := sc.Err(); err != nil {
		slog.Warn("jsonl read stopped early", slog.String("path", rel), slog.String("error", err.Error()))
	}

	var out []Document
	for idx, raw := range lines {
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		var line jsonlLine
		if err := json.Unmarshal(raw, &line); err != nil {
			slog.Warn("malformed jsonl line", slog.String("path", rel), slog.Int("line", idx), slog.String("error", err.Error()))
			continue
		}
		text := strings.TrimSpace(line.Text)
		if text == "" {
			continue
		}

		fileName := line.File
		if fileName == "" {
			fileName = path.Base(rel)
		}
		meta := withCommon(common, map[string]string{
			store.MetaFileName:    fileName,
			store.MetaTitle:       stem(fileName),
			store.MetaType:        TypeJSONLRecord,
			store.MetaSection:     line.Section,
			store.MetaChunkIndex:  strconv.Itoa(idx),
			store.MetaTotalChunks: strconv.Itoa(len(lines)),
		})
		out = append(out, Document{
			ID:       HashID(fmt.Sprintf("%s_%s_%s_%d", req.DocName, req.Version, rel, idx)),
			Text:     text,
			Metadata: meta,
		})
	}
	return out
}

func withCommon(common, extra map[string]string) map[string]string {
	out := make(map[string]string, len(common)+len(extra))
	for k, v := range common {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func stem(p string) string {
	b := path.Base(filepath.ToSlash(p))
	return strings.TrimSuffix(b, path.Ext(b))
}
