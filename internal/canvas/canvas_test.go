package canvas

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	docerrors "github.com/Aman-CERP/docrag/internal/errors"
)

const sampleCanvas = `{
  "nodes": [
    {"id": "1", "type": "text", "text": "A"},
    {"id": "2", "type": "file", "file": "x.md"}
  ],
  "edges": [
    {"id": "e1", "fromNode": "1", "toNode": "2"}
  ]
}`

func newVault(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/vault", 0o755))
	for p, content := range files {
		require.NoError(t, afero.WriteFile(fs, "/vault/"+p, []byte(content), 0o644))
	}
	return fs
}

func TestParse_MetadataMatchesGraph(t *testing.T) {
	// Given: two nodes of different types joined by one edge
	doc, err := Parse([]byte(sampleCanvas), "a.canvas")
	require.NoError(t, err)

	// Then: metadata counts are consistent with the graph
	assert.Equal(t, 2, doc.Metadata.TotalNodes)
	assert.Equal(t, 1, doc.Metadata.TotalEdges)
	assert.Equal(t, map[string]int{"text": 1, "file": 1}, doc.Metadata.NodeTypes)
	assert.Equal(t, map[string]int{"0": 2}, doc.Metadata.ColorDistribution)
	assert.Len(t, doc.Nodes, doc.Metadata.TotalNodes)
	assert.Len(t, doc.Edges, doc.Metadata.TotalEdges)
	assert.Equal(t, "a.canvas", doc.Path)
	assert.Len(t, doc.ColorLegend, 7)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid json", `{"nodes": [`},
		{"array document", `[]`},
		{"nodes not a list", `{"nodes": "x"}`},
		{"node missing id", `{"nodes": [{"type": "text"}]}`},
		{"node missing type", `{"nodes": [{"id": "1"}]}`},
		{"edge missing endpoint", `{"edges": [{"id": "e", "fromNode": "1"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), "bad.canvas")
			require.Error(t, err)
			assert.True(t, docerrors.IsParse(err), "expected parse error, got %v", err)
		})
	}
}

func TestParse_EmptyObjectYieldsEmptyGraph(t *testing.T) {
	doc, err := Parse([]byte(`{}`), "empty.canvas")
	require.NoError(t, err)

	assert.Empty(t, doc.Nodes)
	assert.Empty(t, doc.Edges)
	assert.Equal(t, 0, doc.Metadata.TotalNodes)
}

func TestParse_UnknownColorsKeptVerbatim(t *testing.T) {
	// Given: a node with a color outside the legend
	data := `{"nodes": [
		{"id": "1", "type": "text", "text": "x", "color": "9"},
		{"id": "2", "type": "text", "text": "y", "color": "9"},
		{"id": "3", "type": "text", "text": "z", "color": "4"}
	]}`

	doc, err := Parse([]byte(data), "c.canvas")
	require.NoError(t, err)

	// Then: the code is preserved and reported once
	assert.Equal(t, Color("9"), doc.Nodes[0].Color)
	assert.Equal(t, []string{"9"}, doc.UnknownColors)
	assert.Equal(t, 2, doc.Metadata.ColorDistribution["9"])
	assert.Equal(t, UnknownMeaning, doc.Nodes[0].Color.Meaning())
}

func TestGraph_DuplicateIDLastWins(t *testing.T) {
	nodes := []Node{
		{ID: "a", Type: "text", Text: "first"},
		{ID: "a", Type: "text", Text: "second"},
	}

	tests := []struct {
		name string
		g    *Graph
	}{
		{"indexed", NewGraph(nodes, nil)},
		{"unindexed", &Graph{Nodes: nodes}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := tt.g.Node("a")
			require.True(t, ok)
			assert.Equal(t, "second", n.Text)
		})
	}
}

func TestContextualText_DuplicateIDUsesLastNode(t *testing.T) {
	doc, err := Parse([]byte(`{"nodes": [
		{"id": "a", "type": "text", "text": "first", "color": "1"},
		{"id": "a", "type": "text", "text": "second", "color": "4"}
	]}`), "dup.canvas")
	require.NoError(t, err)

	assert.Equal(t, "Node Type: Действие / Кнопка / Переход | Content: second", ContextualText("a", doc.Graph))
	assert.Equal(t, 2, doc.Metadata.TotalNodes)
}

func TestParse_NonStringColors(t *testing.T) {
	// Given: colors written as a number, null and a string
	data := []byte(`{"nodes": [
		{"id": "a", "type": "text", "color": 3},
		{"id": "b", "type": "text", "color": null},
		{"id": "c", "type": "text", "color": "4"},
		{"id": "d", "type": "text", "color": 12}
	]}`)

	// When
	doc, err := Parse(data, "numbers.canvas")

	// Then: the canvas parses and numeric codes map onto the legend
	require.NoError(t, err)
	assert.Equal(t, Color("3"), doc.Nodes[0].Color)
	assert.True(t, doc.Nodes[0].Color.Known())
	assert.Equal(t, ColorNone, doc.Nodes[1].Color)
	assert.Equal(t, Color("4"), doc.Nodes[2].Color)
	assert.Equal(t, []string{"12"}, doc.UnknownColors)
	assert.Equal(t, 1, doc.Metadata.ColorDistribution["3"])
}

func TestGraph_DanglingEdges(t *testing.T) {
	g := NewGraph(
		[]Node{{ID: "a", Type: "text"}},
		[]Edge{{ID: "ok", FromNode: "a", ToNode: "a"}, {ID: "bad", FromNode: "a", ToNode: "missing"}},
	)

	dangling := g.DanglingEdges()
	require.Len(t, dangling, 1)
	assert.Equal(t, "bad", dangling[0].ID)
}

func TestColor_ParseAndMeaning(t *testing.T) {
	tests := []struct {
		raw     string
		want    Color
		known   bool
		meaning string
	}{
		{"", ColorNone, true, meanings[ColorNone]},
		{"1", ColorEntity, true, "Сущность / Класс / Страница"},
		{"4", ColorAction, true, "Действие / Кнопка / Переход"},
		{"7", Color("7"), false, UnknownMeaning},
		{"#ff0000", Color("#ff0000"), false, UnknownMeaning},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			c, ok := ParseColor(tt.raw)
			assert.Equal(t, tt.want, c)
			assert.Equal(t, tt.known, ok)
			assert.Equal(t, tt.meaning, c.Meaning())
		})
	}
}

func TestContextualText(t *testing.T) {
	g := NewGraph([]Node{
		{ID: "t", Type: "text", Text: "Login", Color: ColorAction, hasText: true},
		{ID: "f", Type: "file", File: "docs/x.md", Color: ColorNone, hasFile: true},
		{ID: "bare", Type: "group", Color: ColorEntity},
	}, nil)

	tests := []struct {
		id   string
		want string
	}{
		{"t", "Node Type: Действие / Кнопка / Переход | Content: Login"},
		{"f", "Node Type: " + meanings[ColorNone] + " | File Reference: docs/x.md"},
		{"bare", "Node Type: Сущность / Класс / Страница"},
		{"missing", ""},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, ContextualText(tt.id, g))
		})
	}
}

func TestSummary_ColorOrderAndNodeLimit(t *testing.T) {
	// Given: twelve text nodes, first cyan then action colored
	var b strings.Builder
	b.WriteString(`{"nodes": [`)
	for i := 0; i < 12; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		color := "5"
		if i >= 2 {
			color = "4"
		}
		b.WriteString(`{"id": "n` + string(rune('a'+i)) + `", "type": "text", "text": "node` + string(rune('a'+i)) + `", "color": "` + color + `"}`)
	}
	b.WriteString(`]}`)

	doc, err := Parse([]byte(b.String()), "big.canvas")
	require.NoError(t, err)

	// When: summarizing
	s := Summary(doc)

	// Then: colors appear in first-seen order and only ten nodes are listed
	assert.True(t, strings.HasPrefix(s, "Canvas Documentation: big.canvas | Total nodes: 12, Total connections: 0 | "))
	cyan := strings.Index(s, ColorCyan.Meaning()+": 2 items")
	action := strings.Index(s, ColorAction.Meaning()+": 10 items")
	require.GreaterOrEqual(t, cyan, 0)
	require.GreaterOrEqual(t, action, 0)
	assert.Less(t, cyan, action)
	assert.Contains(t, s, "Key components:")
	assert.Contains(t, s, "- nodej (")
	assert.NotContains(t, s, "- nodek (")
	assert.Equal(t, SummaryNodeLimit, strings.Count(s, "| - node"))
}

func TestReader_ReadFile(t *testing.T) {
	fs := newVault(t, map[string]string{
		"a.canvas":     sampleCanvas,
		"notes.md":     "# hi",
		"bad.canvas":   "not json",
		"sub/b.canvas": `{"nodes": []}`,
	})
	r, err := NewReader(fs, "/vault")
	require.NoError(t, err)

	t.Run("valid canvas", func(t *testing.T) {
		doc, err := r.ReadFile("a.canvas")
		require.NoError(t, err)
		assert.Equal(t, 2, doc.Metadata.TotalNodes)
	})

	t.Run("missing file is not found", func(t *testing.T) {
		_, err := r.ReadFile("nope.md")
		assert.True(t, docerrors.IsNotFound(err))
	})

	t.Run("wrong suffix is a validation error", func(t *testing.T) {
		_, err := r.ReadFile("notes.md")
		assert.True(t, docerrors.IsValidation(err))
	})

	t.Run("malformed canvas is a parse error", func(t *testing.T) {
		_, err := r.ReadFile("bad.canvas")
		assert.True(t, docerrors.IsParse(err))
	})

	t.Run("escaping the root is rejected", func(t *testing.T) {
		_, err := r.ReadFile("../etc/passwd.canvas")
		assert.True(t, docerrors.IsValidation(err))
	})
}

func TestNewReader_RootMustBeDirectory(t *testing.T) {
	fs := newVault(t, map[string]string{"file.md": "x"})

	_, err := NewReader(fs, "/missing")
	assert.True(t, docerrors.IsValidation(err))

	_, err = NewReader(fs, "/vault/file.md")
	assert.True(t, docerrors.IsValidation(err))
}

func TestReader_FindAndReadAuto(t *testing.T) {
	fs := newVault(t, map[string]string{
		"deep/nested/map.canvas": sampleCanvas,
	})
	r, err := NewReader(fs, "/vault")
	require.NoError(t, err)

	rel, err := r.Find("map")
	require.NoError(t, err)
	assert.Equal(t, "deep/nested/map.canvas", rel)

	doc, err := r.ReadAuto("map.canvas")
	require.NoError(t, err)
	assert.Equal(t, "deep/nested/map.canvas", doc.Path)

	_, err = r.Find("other")
	assert.True(t, docerrors.IsNotFound(err))
}

func TestResolveReferencedFiles(t *testing.T) {
	// Given: a canvas referencing one existing and one missing file
	fs := newVault(t, map[string]string{"x.md": "hello"})
	g := NewGraph([]Node{
		{ID: "1", Type: "file", File: "x.md", hasFile: true},
		{ID: "2", Type: "file", File: "gone.md", hasFile: true},
		{ID: "3", Type: "text", Text: "ignored", hasText: true},
	}, nil)

	// When: resolving
	got := ResolveReferencedFiles(fs, g, "/vault")

	// Then: content or placeholders, never an error
	assert.Equal(t, "hello", got["x.md"])
	assert.Equal(t, "[File not found: gone.md]", got["gone.md"])
	assert.Len(t, got, 2)
	assert.True(t, IsErrorMarker(got["gone.md"]))
	assert.False(t, IsErrorMarker(got["x.md"]))
}
