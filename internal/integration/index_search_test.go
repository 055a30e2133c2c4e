package integration

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docrag/internal/config"
	"github.com/Aman-CERP/docrag/internal/embed"
	"github.com/Aman-CERP/docrag/internal/engine"
	"github.com/Aman-CERP/docrag/internal/lifecycle"
	"github.com/Aman-CERP/docrag/internal/search"
	"github.com/Aman-CERP/docrag/internal/store"
)

// These tests run the engine over the on-disk SQLite store with the static
// embedder, so the vector path is exercised end to end without a server.

const (
	hooksDoc   = "# Hooks\nHooks let function components use state and lifecycle features."
	effectsDoc = "useEffect runs after render and can return a cleanup function."
	routingDoc = "The router matches the URL against route definitions."
)

func writeDocs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"hooks.md":          hooksDoc,
		"effects.txt":       effectsDoc,
		"guide/routing.md":  routingDoc,
		"node_modules/x.md": "excluded",
		"guide/diagram.png": "not text",
	}
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

type harness struct {
	dataDir  string
	cfg      *config.Config
	store    *store.SQLiteStore
	embedder embed.Embedder
	engine   *engine.Engine
}

// openHarness opens the store in dataDir with a vector index.
func openHarness(t *testing.T, dataDir string) *harness {
	t.Helper()
	ctx := context.Background()

	cfg := config.NewConfig()
	cfg.Paths.DataDir = dataDir
	cfg.Index.Workers = 2

	embedder := embed.NewCachedEmbedder(embed.NewStaticEmbedder(embed.StaticDimensions), 100)
	st, err := store.Open(ctx, dataDir, store.Options{Dimensions: embedder.Dimensions()})
	require.NoError(t, err)

	eng, err := engine.New(engine.Dependencies{
		Config:     cfg,
		Collection: st,
		Corpora:    st,
		Embedder:   embedder,
		Lock:       store.NewLock(dataDir),
	})
	require.NoError(t, err)

	return &harness{dataDir: dataDir, cfg: cfg, store: st, embedder: embedder, engine: eng}
}

func (h *harness) close(t *testing.T) {
	t.Helper()
	require.NoError(t, h.engine.Close())
	require.NoError(t, h.store.Close())
}

func TestIntegration_IndexAndSearch_Vector(t *testing.T) {
	ctx := context.Background()
	h := openHarness(t, t.TempDir())
	defer h.close(t)
	require.Equal(t, search.ModeVector, h.engine.Mode())

	// Given: an indexed docs tree
	res, err := h.engine.IndexDocs(ctx, engine.IndexDocsRequest{Path: writeDocs(t), DocName: "react", Version: "18"})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusIndexed, res.Status)
	assert.Equal(t, 3, res.Documents, "excluded dirs and unsupported files are skipped")

	// When: searching with the exact text of one document
	results, err := h.engine.Search(ctx, engine.SearchRequest{Query: effectsDoc, Limit: 3})

	// Then: that document ranks first
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "effects.txt", results[0].Source)
	assert.Greater(t, results[0].Score, 0.5)
	assert.Equal(t, "react", results[0].Metadata[store.MetaDocName])
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i].Score, results[i-1].Score)
	}
}

func TestIntegration_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()

	// Given: a corpus indexed and the store closed
	h := openHarness(t, dataDir)
	_, err := h.engine.IndexDocs(ctx, engine.IndexDocsRequest{Path: writeDocs(t), DocName: "react"})
	require.NoError(t, err)
	h.close(t)
	assert.FileExists(t, filepath.Join(dataDir, store.VectorFile))

	// When: reopening
	h = openHarness(t, dataDir)
	defer h.close(t)

	// Then: the corpus and its vectors are still there
	corpora, err := h.engine.List(ctx)
	require.NoError(t, err)
	require.Len(t, corpora, 1)
	assert.Equal(t, 3, corpora[0].DocumentCount)

	results, err := h.engine.Search(ctx, engine.SearchRequest{Query: routingDoc, Limit: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "guide/routing.md", results[0].Source)
}

func TestIntegration_ReindexIsIdempotent(t *testing.T) {
	ctx := context.Background()
	h := openHarness(t, t.TempDir())
	defer h.close(t)
	docs := writeDocs(t)

	_, err := h.engine.IndexDocs(ctx, engine.IndexDocsRequest{Path: docs, DocName: "react"})
	require.NoError(t, err)

	// When: forcing a reindex of the same tree twice
	for range 2 {
		_, err = h.engine.IndexDocs(ctx, engine.IndexDocsRequest{Path: docs, DocName: "react", Force: true})
		require.NoError(t, err)
	}

	// Then: the document count is unchanged
	count, err := h.store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestIntegration_RemoveExcludesFromSearch(t *testing.T) {
	ctx := context.Background()
	h := openHarness(t, t.TempDir())
	defer h.close(t)
	docs := writeDocs(t)

	for _, name := range []string{"react", "preact"} {
		_, err := h.engine.IndexDocs(ctx, engine.IndexDocsRequest{Path: docs, DocName: name})
		require.NoError(t, err)
	}

	// When: one corpus is removed
	removed, err := h.engine.Remove(ctx, "react", "")
	require.NoError(t, err)
	require.True(t, removed)

	// Then: only the other corpus is found
	results, err := h.engine.Search(ctx, engine.SearchRequest{Query: hooksDoc, Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Equal(t, "preact", r.Metadata[store.MetaDocName])
	}

	stats, err := h.engine.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalDocuments)
	assert.Equal(t, map[string]int{"preact": 3}, stats.PerDocName)
	assert.Equal(t, []string{"effects.txt", "hooks.md", "routing.md"}, stats.Docs)
}

func TestIntegration_SearchFilters(t *testing.T) {
	ctx := context.Background()
	h := openHarness(t, t.TempDir())
	defer h.close(t)
	docs := writeDocs(t)

	_, err := h.engine.IndexDocs(ctx, engine.IndexDocsRequest{Path: docs, DocName: "react", Version: "17", DocType: "framework"})
	require.NoError(t, err)
	_, err = h.engine.IndexDocs(ctx, engine.IndexDocsRequest{Path: docs, DocName: "react", Version: "18", DocType: "framework"})
	require.NoError(t, err)

	tests := []struct {
		name string
		req  engine.SearchRequest
		want int
	}{
		{"by version", engine.SearchRequest{Query: hooksDoc, Version: "18", Limit: 10}, 3},
		{"by type", engine.SearchRequest{Query: hooksDoc, DocType: "framework", Limit: 10}, 6},
		{"unknown doc", engine.SearchRequest{Query: hooksDoc, DocName: "vue", Limit: 10}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := h.engine.Search(ctx, tt.req)
			require.NoError(t, err)
			assert.Len(t, results, tt.want)
		})
	}
}

func TestIntegration_EmptyCollection(t *testing.T) {
	h := openHarness(t, t.TempDir())
	defer h.close(t)

	results, err := h.engine.Search(context.Background(), engine.SearchRequest{Query: "anything"})

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestIntegration_ConcurrentSearches(t *testing.T) {
	ctx := context.Background()
	h := openHarness(t, t.TempDir())
	defer h.close(t)
	_, err := h.engine.IndexDocs(ctx, engine.IndexDocsRequest{Path: writeDocs(t), DocName: "react"})
	require.NoError(t, err)

	queries := []string{hooksDoc, effectsDoc, routingDoc, "state", "router"}
	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := range 50 {
		wg.Add(1)
		go func(q string) {
			defer wg.Done()
			if _, err := h.engine.Search(ctx, engine.SearchRequest{Query: q}); err != nil {
				errs <- err
			}
		}(queries[i%len(queries)])
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestIntegration_LexicalFallback(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()

	// Given: a corpus indexed with vectors
	h := openHarness(t, dataDir)
	_, err := h.engine.IndexDocs(ctx, engine.IndexDocsRequest{Path: writeDocs(t), DocName: "react"})
	require.NoError(t, err)
	h.close(t)

	// When: the same store is opened without an embedder
	cfg := config.NewConfig()
	st, err := store.Open(ctx, dataDir, store.Options{})
	require.NoError(t, err)
	defer func() { _ = st.Close() }()
	eng, err := engine.New(engine.Dependencies{Config: cfg, Collection: st, Corpora: st})
	require.NoError(t, err)

	// Then: lexical ranking still finds the documents
	assert.Equal(t, search.ModeLexical, eng.Mode())
	results, err := eng.Search(ctx, engine.SearchRequest{Query: "router"})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "guide/routing.md", results[0].Source)
}
