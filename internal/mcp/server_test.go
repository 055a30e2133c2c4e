package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docrag/internal/config"
	"github.com/Aman-CERP/docrag/internal/engine"
	"github.com/Aman-CERP/docrag/internal/store"
	"github.com/Aman-CERP/docrag/pkg/version"
)

const systemCanvas = `{
  "nodes": [
    {"id": "n1", "type": "text", "text": "Auth service issues tokens", "color": "1"},
    {"id": "n2", "type": "file", "file": "notes/api.md"}
  ],
  "edges": [{"id": "e1", "fromNode": "n1", "toNode": "n2", "label": "documents"}]
}`

func testFs(t *testing.T) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	files := map[string]string{
		"/docs/hooks.md":            "# Hooks\nHooks let function components use state.",
		"/docs/effects.txt":         "useEffect runs after render.",
		"/vault/arch/system.canvas": systemCanvas,
		"/vault/notes/api.md":       "The API validates tokens on every request.",
	}
	for p, content := range files {
		require.NoError(t, afero.WriteFile(fsys, p, []byte(content), 0o644))
	}
	return fsys
}

// newTestServer builds a server over a lexical engine with /vault configured.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Index.Workers = 2
	cfg.Paths.Vault = "/vault"

	eng, err := engine.New(engine.Dependencies{
		Config:     cfg,
		Collection: store.NewMemoryCollection(0),
		Corpora:    store.NewMemoryCorpusStore(),
		Fs:         testFs(t),
	})
	require.NoError(t, err)

	s, err := NewServer(eng)
	require.NoError(t, err)
	return s
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content")
	return tc.Text
}

func call(t *testing.T, s *Server, name string, args map[string]any) (string, bool) {
	t.Helper()
	res, err := s.CallTool(context.Background(), name, args)
	require.NoError(t, err)
	return resultText(t, res), res.IsError
}

func TestNewServer_RequiresEngine(t *testing.T) {
	_, err := NewServer(nil)
	assert.Error(t, err)
}

func TestServer_Info(t *testing.T) {
	s := newTestServer(t)

	name, ver := s.Info()

	assert.Equal(t, "docrag", name)
	assert.Equal(t, version.Version, ver)
	assert.NotNil(t, s.MCPServer())
	assert.NoError(t, s.Close())
}

func TestServer_ListTools(t *testing.T) {
	s := newTestServer(t)

	tools := s.ListTools()

	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description, tool.Name)
	}
	assert.Equal(t, []string{
		ToolIndex, ToolIndexVault, ToolSearch, ToolRemove,
		ToolList, ToolStats, ToolGetGraph, ToolGetFile,
	}, names)
}

func TestServer_CallTool_Unknown(t *testing.T) {
	s := newTestServer(t)

	_, err := s.CallTool(context.Background(), "frobnicate", nil)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeMethodNotFound, mcpErr.Code)
}

func TestServer_CallTool_BadArguments(t *testing.T) {
	s := newTestServer(t)

	_, err := s.CallTool(context.Background(), ToolSearch, map[string]any{"limit": "many"})

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

func TestServer_Index_ThenAlreadyIndexed(t *testing.T) {
	s := newTestServer(t)
	args := map[string]any{"doc_path": "/docs", "doc_name": "react", "version": "18"}

	// When: indexing the first time
	text, isErr := call(t, s, ToolIndex, args)

	// Then: the corpus is indexed
	require.False(t, isErr, text)
	assert.Contains(t, text, "Successfully indexed 'react' v18")
	assert.Contains(t, text, "Documents processed: 2")

	// When: indexing again without force
	text, isErr = call(t, s, ToolIndex, args)

	// Then: the existing corpus is reported
	require.False(t, isErr, text)
	assert.Contains(t, text, "Documentation 'react' v18 is already indexed.")
	assert.Contains(t, text, "Documents: 2")
	assert.Contains(t, text, "Use force_reindex=true to re-index.")

	// When: forcing a reindex
	args["force_reindex"] = true
	text, isErr = call(t, s, ToolIndex, args)

	// Then: it is indexed again
	require.False(t, isErr, text)
	assert.Contains(t, text, "Successfully indexed 'react' v18")
}

func TestServer_Index_Validation(t *testing.T) {
	s := newTestServer(t)

	text, isErr := call(t, s, ToolIndex, map[string]any{"doc_path": "/docs"})

	assert.True(t, isErr)
	assert.Contains(t, text, "doc_name")
}

func TestServer_Search(t *testing.T) {
	s := newTestServer(t)
	_, isErr := call(t, s, ToolIndex, map[string]any{"doc_path": "/docs", "doc_name": "react"})
	require.False(t, isErr)

	// When: searching an indexed term
	text, isErr := call(t, s, ToolSearch, map[string]any{"query": "hooks", "limit": 3})

	// Then: results are rendered as numbered blocks
	require.False(t, isErr, text)
	assert.True(t, strings.HasPrefix(text, "Result 1:"), text)
	assert.Contains(t, text, "Source: ")
	assert.Contains(t, text, "Content: # Hooks")
	assert.Contains(t, text, "Relevance Score: ")
	assert.Contains(t, text, "---")
}

func TestServer_Search_NoResults(t *testing.T) {
	s := newTestServer(t)

	text, isErr := call(t, s, ToolSearch, map[string]any{"query": "anything"})

	assert.False(t, isErr)
	assert.Equal(t, NoResultsMessage, text)
}

func TestServer_Search_EmptyQuery(t *testing.T) {
	s := newTestServer(t)

	text, isErr := call(t, s, ToolSearch, map[string]any{"query": "   "})

	assert.True(t, isErr)
	assert.True(t, strings.HasPrefix(text, "Error: "))
}

func TestServer_Remove(t *testing.T) {
	s := newTestServer(t)
	_, isErr := call(t, s, ToolIndex, map[string]any{"doc_path": "/docs", "doc_name": "react"})
	require.False(t, isErr)

	// When: removing with the default version
	text, isErr := call(t, s, ToolRemove, map[string]any{"doc_name": "react"})

	// Then: the corpus is removed
	require.False(t, isErr)
	assert.Equal(t, "Successfully removed 'react' vlatest from index.", text)

	// When: removing again
	text, isErr = call(t, s, ToolRemove, map[string]any{"doc_name": "react"})

	// Then: it is reported as missing, not as an error
	assert.False(t, isErr)
	assert.Equal(t, "Documentation 'react' vlatest not found in index.", text)
}

func TestServer_ListAndStats(t *testing.T) {
	s := newTestServer(t)

	text, isErr := call(t, s, ToolList, nil)
	require.False(t, isErr)
	assert.Equal(t, NoCorporaMessage, text)

	_, isErr = call(t, s, ToolIndex, map[string]any{"doc_path": "/docs", "doc_name": "react", "doc_type": "framework"})
	require.False(t, isErr)

	text, isErr = call(t, s, ToolList, nil)
	require.False(t, isErr)
	assert.Contains(t, text, "Total documents: 2")
	assert.Contains(t, text, "- react vlatest")
	assert.Contains(t, text, "  Type: framework")
	assert.Contains(t, text, "  Source: /docs")

	text, isErr = call(t, s, ToolStats, nil)
	require.False(t, isErr)
	assert.Contains(t, text, "Total indexed documents: 2")
	assert.Contains(t, text, "Search mode: lexical")
	assert.Contains(t, text, "  - react: 2")
	assert.Contains(t, text, "  - framework: 2")
	assert.NotContains(t, text, "QUERIES:")

	_, isErr = call(t, s, ToolSearch, map[string]any{"query": "hooks"})
	require.False(t, isErr)
	text, isErr = call(t, s, ToolStats, nil)
	require.False(t, isErr)
	assert.Contains(t, text, "QUERIES:\n  - total: 1")
}

func TestServer_IndexVault(t *testing.T) {
	s := newTestServer(t)

	// When: indexing the configured vault
	text, isErr := call(t, s, ToolIndexVault, nil)

	// Then: the vault corpus is named after the directory
	require.False(t, isErr, text)
	assert.Contains(t, text, "Successfully indexed 'vault:vault' vlatest")

	text, isErr = call(t, s, ToolSearch, map[string]any{"query": "tokens", "doc_name": "vault:vault"})
	require.False(t, isErr, text)
	assert.Contains(t, text, "Result 1:")
}

func TestServer_GetGraph(t *testing.T) {
	s := newTestServer(t)

	// When: reading a canvas by bare name
	text, isErr := call(t, s, ToolGetGraph, map[string]any{"canvas_file": "system"})

	// Then: the graph is returned as JSON
	require.False(t, isErr, text)
	var doc struct {
		Path  string `json:"canvas_path"`
		Nodes []struct {
			ID string `json:"id"`
		} `json:"nodes"`
		Edges    []map[string]any `json:"edges"`
		Metadata struct {
			TotalNodes int `json:"total_nodes"`
			TotalEdges int `json:"total_edges"`
		} `json:"metadata"`
		ColorLegend map[string]string `json:"color_legend"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &doc))
	assert.Equal(t, "arch/system.canvas", doc.Path)
	assert.Len(t, doc.Nodes, 2)
	assert.Len(t, doc.Edges, 1)
	assert.Equal(t, 2, doc.Metadata.TotalNodes)
	assert.Equal(t, 1, doc.Metadata.TotalEdges)
	assert.Len(t, doc.ColorLegend, 7)
}

func TestServer_GetGraph_Missing(t *testing.T) {
	s := newTestServer(t)

	text, isErr := call(t, s, ToolGetGraph, map[string]any{"canvas_file": "nowhere"})

	assert.True(t, isErr)
	assert.Contains(t, text, "nowhere")
}

func TestServer_GetFile(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		wantErr  bool
		contains string
	}{
		{"existing file", "notes/api.md", false, "validates tokens"},
		{"missing file", "notes/missing.md", true, "not found"},
		{"directory", "notes", true, "not a file"},
		{"escape", "../docs/hooks.md", true, "Error: "},
		{"empty path", "", true, "file_path"},
	}

	s := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isErr := call(t, s, ToolGetFile, map[string]any{"file_path": tt.path})
			assert.Equal(t, tt.wantErr, isErr, text)
			assert.Contains(t, text, tt.contains)
		})
	}
}
