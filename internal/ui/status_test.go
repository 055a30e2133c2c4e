package ui

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusRenderer_Render(t *testing.T) {
	// Given: a status renderer with a fixed clock
	buf := &bytes.Buffer{}
	r := NewStatusRenderer(buf, true)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	// When: rendering collection status
	err := r.Render(StatusInfo{
		DataDir:        "/data",
		TotalDocuments: 250,
		SampleSize:     100,
		Approximate:    true,
		PerType:        map[string]int{"doc_chunk": 80, "canvas_node": 20},
		StorageSize:    2048,
		SearchMode:     "vector",
		EmbedderType:   "static",
		EmbedderStatus: "ready",
		Corpora: []CorpusInfo{
			{DocName: "react", Version: "18", DocType: "docs", Documents: 250, IndexedAt: now.Add(-2 * time.Hour)},
		},
	})

	// Then: every section is present
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Collection: /data")
	assert.Contains(t, out, "250 (type counts from a sample of 100)")
	assert.Contains(t, out, "2.0 KB")
	assert.Contains(t, out, "Search mode: vector")
	assert.Contains(t, out, "canvas_node")
	assert.Contains(t, out, "react@18")
	assert.Contains(t, out, "2 hours ago")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("canvas_node")), bytes.Index(buf.Bytes(), []byte("doc_chunk")))
}

func TestStatusRenderer_RenderCorpora_Empty(t *testing.T) {
	// Given: a status renderer
	buf := &bytes.Buffer{}
	r := NewStatusRenderer(buf, true)

	// When: nothing is indexed
	require.NoError(t, r.RenderCorpora(nil))

	// Then: a hint is shown
	assert.Contains(t, buf.String(), "No documentation indexed yet.")
}

func TestStatusRenderer_RenderJSON(t *testing.T) {
	// Given: a status renderer
	buf := &bytes.Buffer{}
	r := NewStatusRenderer(buf, true)

	// When: rendering JSON
	require.NoError(t, r.RenderJSON(StatusInfo{TotalDocuments: 3, SearchMode: "lexical"}))

	// Then: it decodes back
	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.EqualValues(t, 3, got["total_documents"])
	assert.Equal(t, "lexical", got["search_mode"])
}

func TestStatusRenderer_FormatTime(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{time.Minute, "1 minute ago"},
		{5 * time.Minute, "5 minutes ago"},
		{time.Hour, "1 hour ago"},
		{48 * time.Hour, "2 days ago"},
	}

	r := NewStatusRenderer(&bytes.Buffer{}, true)
	r.now = func() time.Time { return now }
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, r.formatTime(now.Add(-tt.ago)))
		})
	}
	assert.Equal(t, "never", r.formatTime(time.Time{}))
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBytes(tt.in))
	}
}
