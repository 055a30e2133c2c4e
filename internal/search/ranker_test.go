package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docrag/internal/embed"
	docerrors "github.com/Aman-CERP/docrag/internal/errors"
	"github.com/Aman-CERP/docrag/internal/store"
)

// fakeEmbedder maps known texts to fixed vectors.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no vector for %q", text)
	}
	return v, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int                { return 3 }
func (f *fakeEmbedder) ModelName() string              { return "fake" }
func (f *fakeEmbedder) Available(context.Context) bool { return true }
func (f *fakeEmbedder) Close() error                   { return nil }

var _ embed.Embedder = (*fakeEmbedder)(nil)

func textRecord(id, text, title string, meta ...string) store.Record {
	m := map[string]string{store.MetaSource: id + ".md", store.MetaTitle: title}
	for i := 0; i+1 < len(meta); i += 2 {
		m[meta[i]] = meta[i+1]
	}
	return store.Record{ID: id, Text: text, Metadata: m}
}

func lexicalRanker(t *testing.T, records ...store.Record) *Ranker {
	t.Helper()
	c := store.NewMemoryCollection(0)
	if len(records) > 0 {
		require.NoError(t, c.Add(context.Background(), records))
	}
	r, err := NewRanker(Options{Collection: c})
	require.NoError(t, err)
	return r
}

func contents(results []RankedResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Content
	}
	return out
}

func TestLexical_QuickFox(t *testing.T) {
	// Given: two chunks, one with both query tokens
	r := lexicalRanker(t,
		textRecord("a", "the quick brown fox", ""),
		textRecord("b", "fox", ""),
	)

	// When
	results, err := r.Search(context.Background(), "quick fox", 5)

	// Then: the chunk with both tokens ranks first
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "the quick brown fox", results[0].Content)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.Equal(t, ModeLexical, r.Mode())
	assert.False(t, r.HasVectorBackend())
}

func TestLexicalScore(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		content string
		title   string
		want    int
	}{
		{"no match", "zebra", "the quick brown fox", "", 0},
		{"token counts", "quick fox", "the quick brown fox", "", 2},
		{"phrase bonus", "brown fox", "the quick brown fox", "", 12},
		{"repeated token", "fox", "fox fox fox", "", 13},
		{"title bonus once", "alpha beta", "nothing here", "Alpha Beta", 5},
		{"case folded", "QUICK", "Quick quick", "", 12},
		{"cyrillic tokens", "сущность класс", "Сущность и класс", "", 2},
		{"substring counts inside words", "art", "start party", "", 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LexicalScore(tt.query, tt.content, tt.title))
		})
	}
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"how", "to", "use_hooks", "in", "react", "18"}, Tokenize("How to use_hooks in React 18?"))
	assert.Empty(t, Tokenize("?!"))
}

func TestLexical_StableTies(t *testing.T) {
	// Given: three chunks with equal scores
	r := lexicalRanker(t,
		textRecord("a", "fox one", ""),
		textRecord("b", "no match", ""),
		textRecord("c", "fox two", ""),
		textRecord("d", "fox three", ""),
	)

	// When
	results, err := r.Search(context.Background(), "fox", 10)

	// Then: insertion order is kept and zero scores are excluded
	require.NoError(t, err)
	assert.Equal(t, []string{"fox one", "fox two", "fox three"}, contents(results))
}

func TestLexical_TruncatesToLimit(t *testing.T) {
	r := lexicalRanker(t,
		textRecord("a", "fox", ""),
		textRecord("b", "fox fox", ""),
		textRecord("c", "fox fox fox", ""),
	)

	results, err := r.Search(context.Background(), "fox", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"fox fox fox", "fox fox"}, contents(results))
}

func TestLexical_TitleBoost(t *testing.T) {
	r := lexicalRanker(t,
		textRecord("a", "hooks are functions", "Intro"),
		textRecord("b", "hooks are functions", "Hooks Guide"),
	)

	results, err := r.Search(context.Background(), "hooks", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Hooks Guide", results[0].Title())
	assert.Equal(t, 16.0, results[0].Score)
}

func TestLexical_Filter(t *testing.T) {
	r := lexicalRanker(t,
		textRecord("a", "fox", "", store.MetaDocName, "react", store.MetaVersion, "18"),
		textRecord("b", "fox fox", "", store.MetaDocName, "vue", store.MetaVersion, "3"),
		textRecord("c", "fox", "", store.MetaDocName, "react", store.MetaVersion, "17"),
	)

	results, err := r.Search(context.Background(), "fox", 5, Filter{DocName: "react", Version: "18"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a.md", results[0].Source)
}

func TestSearch_EmptyCollection(t *testing.T) {
	tests := []struct {
		name     string
		embedder embed.Embedder
		dims     int
	}{
		{"lexical", nil, 0},
		{"vector", &fakeEmbedder{}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRanker(Options{Embedder: tt.embedder, Collection: store.NewMemoryCollection(tt.dims)})
			require.NoError(t, err)

			for _, q := range []string{"anything", "", "   "} {
				results, err := r.Search(context.Background(), q, 5)

				require.NoError(t, err)
				assert.NotNil(t, results)
				assert.Empty(t, results)
			}
		})
	}
}

func TestLexical_EmptyQueryMatchesEverything(t *testing.T) {
	// Given: records in insertion order
	r := lexicalRanker(t,
		textRecord("a", "first", ""),
		textRecord("b", "second", ""),
	)

	// When: the query is empty
	results, err := r.Search(context.Background(), "", 5)

	// Then: every record scores the phrase bonus, in insertion order
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, contents(results))
	assert.Equal(t, float64(PhraseMatchBonus), results[0].Score)
}

func TestSearch_InvalidLimit(t *testing.T) {
	r := lexicalRanker(t, textRecord("a", "fox", ""))

	_, err := r.Search(context.Background(), "fox", 0)
	assert.True(t, docerrors.IsValidation(err))
}

func TestNewRanker_ModeSelection(t *testing.T) {
	tests := []struct {
		name     string
		embedder embed.Embedder
		dims     int
		want     Mode
	}{
		{"embedder and vector index", &fakeEmbedder{}, 3, ModeVector},
		{"embedder without vector index", &fakeEmbedder{}, 0, ModeLexical},
		{"vector index without embedder", nil, 3, ModeLexical},
		{"neither", nil, 0, ModeLexical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRanker(Options{Embedder: tt.embedder, Collection: store.NewMemoryCollection(tt.dims)})
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Mode())
			assert.Equal(t, tt.want == ModeVector, r.HasVectorBackend())
		})
	}

	_, err := NewRanker(Options{})
	assert.Error(t, err)
}

func vectorRanker(t *testing.T, emb *fakeEmbedder, records ...store.Record) *Ranker {
	t.Helper()
	c := store.NewMemoryCollection(3)
	require.NoError(t, c.Add(context.Background(), records))
	r, err := NewRanker(Options{Embedder: emb, Collection: c})
	require.NoError(t, err)
	return r
}

func withVec(r store.Record, v ...float32) store.Record {
	r.Embedding = v
	return r
}

func TestVector_OrdersBySimilarity(t *testing.T) {
	// Given: three records at increasing angle from the query
	emb := &fakeEmbedder{vectors: map[string][]float32{"hooks": {1, 0, 0}}}
	r := vectorRanker(t, emb,
		withVec(textRecord("far", "far", ""), 0, 0, 1),
		withVec(textRecord("near", "near", ""), 1, 0, 0),
		withVec(textRecord("mid", "mid", ""), 1, 1, 0),
	)

	// When
	results, err := r.Search(context.Background(), "hooks", 2)

	// Then: closest first, score = 1 - cosine distance, one embed call
	require.NoError(t, err)
	assert.Equal(t, []string{"near", "mid"}, contents(results))
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.InDelta(t, 0.7071, results[1].Score, 1e-3)
	assert.Equal(t, 1, emb.calls)
}

func TestVector_Filter(t *testing.T) {
	// Given: the closest records belong to another corpus
	emb := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0, 0}}}
	var records []store.Record
	for i := 0; i < 10; i++ {
		records = append(records, withVec(
			textRecord(fmt.Sprintf("vue%d", i), "vue", "", store.MetaDocName, "vue"), 1, float32(i)*0.01, 0))
	}
	records = append(records, withVec(textRecord("react", "react", "", store.MetaDocName, "react"), 0, 1, 0))
	r := vectorRanker(t, emb, records...)

	// When: filtering to the far corpus with a small limit
	results, err := r.Search(context.Background(), "q", 1, Filter{DocName: "react"})

	// Then: over-fetching still finds it
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "react", results[0].Content)
}

func TestVector_EmbedderError(t *testing.T) {
	emb := &fakeEmbedder{err: errors.New("connection refused")}
	r := vectorRanker(t, emb, withVec(textRecord("a", "a", ""), 1, 0, 0))

	_, err := r.Search(context.Background(), "q", 5)
	require.Error(t, err)
	assert.True(t, docerrors.IsBackend(err))
}

func TestVector_WithStaticEmbedder(t *testing.T) {
	// Given: records embedded with the static embedder
	ctx := context.Background()
	emb := embed.NewStaticEmbedder(embed.StaticDimensions)
	texts := []string{"react hooks and state", "database migrations", "hooks lifecycle in react"}
	vecs, err := emb.EmbedBatch(ctx, texts)
	require.NoError(t, err)

	c := store.NewMemoryCollection(embed.StaticDimensions)
	for i, text := range texts {
		require.NoError(t, c.Add(ctx, []store.Record{{ID: fmt.Sprint(i), Text: text, Embedding: vecs[i]}}))
	}
	r, err := NewRanker(Options{Embedder: emb, Collection: c})
	require.NoError(t, err)

	// When
	results, err := r.Search(ctx, "react hooks", 3)

	// Then: the unrelated text ranks last
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "database migrations", results[2].Content)
	assert.Equal(t, UnknownSource, results[0].Source)
}

func TestDistanceToScore(t *testing.T) {
	assert.Equal(t, 1.0, DistanceToScore(0))
	assert.Equal(t, 0.0, DistanceToScore(1))
	assert.Equal(t, -1.0, DistanceToScore(2))
}
