package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/coder/hnsw"

	docerrors "github.com/Aman-CERP/docrag/internal/errors"
)

// MemoryCollection is an in-process Collection. With dims > 0 it ranks by
// exact cosine distance over every stored embedding.
type MemoryCollection struct {
	mu       sync.RWMutex
	records  []Record
	byID     map[string]int
	dims     int
	maxBatch int
	closed   bool
}

var _ Collection = (*MemoryCollection)(nil)

// NewMemoryCollection creates an empty collection. dims 0 means no vector index.
func NewMemoryCollection(dims int) *MemoryCollection {
	return &MemoryCollection{
		byID:     make(map[string]int),
		dims:     dims,
		maxBatch: DefaultMaxBatchSize,
	}
}

// WithMaxBatchSize overrides the batch bound.
func (c *MemoryCollection) WithMaxBatchSize(n int) *MemoryCollection {
	c.maxBatch = n
	return c
}

func (c *MemoryCollection) Add(ctx context.Context, records []Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(records) > c.maxBatch {
		return docerrors.BackendError(docerrors.ErrCodeStoreWrite,
			fmt.Sprintf("batch of %d exceeds max batch size %d", len(records), c.maxBatch), nil)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errClosed()
	}

	for _, r := range records {
		if r.Embedding != nil && c.dims > 0 && len(r.Embedding) != c.dims {
			return dimensionError(c.dims, len(r.Embedding))
		}
	}
	for _, r := range records {
		r.Metadata = cloneMeta(r.Metadata)
		if i, ok := c.byID[r.ID]; ok {
			c.records[i] = r
			continue
		}
		c.byID[r.ID] = len(c.records)
		c.records = append(c.records, r)
	}
	return nil
}

func (c *MemoryCollection) Query(ctx context.Context, embedding []float32, k int) ([]QueryHit, error) {
	if c.dims == 0 {
		return nil, docerrors.BackendError(docerrors.ErrCodeStoreRead, "collection has no vector index", nil)
	}
	if len(embedding) != c.dims {
		return nil, dimensionError(c.dims, len(embedding))
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var hits []QueryHit
	for _, r := range c.records {
		if r.Embedding == nil {
			continue
		}
		hits = append(hits, QueryHit{Record: r, Distance: hnsw.CosineDistance(embedding, r.Embedding)})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (c *MemoryCollection) Delete(_ context.Context, ids []string) error {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.compact(func(r Record) bool { return drop[r.ID] })
	return nil
}

func (c *MemoryCollection) DeleteWhere(_ context.Context, where map[string]string) (int, error) {
	if len(where) == 0 {
		return 0, docerrors.ValidationError("where", "delete filter must not be empty")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.compact(func(r Record) bool { return r.Matches(where) }), nil
}

// compact removes matching records keeping order. Must hold mu.
func (c *MemoryCollection) compact(match func(Record) bool) int {
	kept := c.records[:0]
	removed := 0
	for _, r := range c.records {
		if match(r) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	c.records = kept
	c.byID = make(map[string]int, len(kept))
	for i, r := range kept {
		c.byID[r.ID] = i
	}
	return removed
}

func (c *MemoryCollection) Count(_ context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records), nil
}

func (c *MemoryCollection) Scan(ctx context.Context, fn func(Record) error) error {
	c.mu.RLock()
	snapshot := make([]Record, len(c.records))
	copy(snapshot, c.records)
	c.mu.RUnlock()

	for _, r := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func (c *MemoryCollection) Sample(_ context.Context, n int) ([]Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n = min(max(n, 0), len(c.records))
	out := make([]Record, n)
	copy(out, c.records[:n])
	return out, nil
}

func (c *MemoryCollection) HasVectors() bool  { return c.dims > 0 }
func (c *MemoryCollection) MaxBatchSize() int { return c.maxBatch }

func (c *MemoryCollection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// MemoryCorpusStore is an in-process CorpusStore.
type MemoryCorpusStore struct {
	mu      sync.RWMutex
	corpora map[[2]string]IndexedCorpus
}

var _ CorpusStore = (*MemoryCorpusStore)(nil)

// NewMemoryCorpusStore creates an empty store.
func NewMemoryCorpusStore() *MemoryCorpusStore {
	return &MemoryCorpusStore{corpora: make(map[[2]string]IndexedCorpus)}
}

func (s *MemoryCorpusStore) GetCorpus(_ context.Context, docName, version string) (*IndexedCorpus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.corpora[[2]string{docName, version}]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *MemoryCorpusStore) PutCorpus(_ context.Context, c IndexedCorpus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.IndexedAt = c.IndexedAt.UTC().Truncate(time.Microsecond)
	s.corpora[[2]string{c.DocName, c.Version}] = c
	return nil
}

func (s *MemoryCorpusStore) DeleteCorpus(_ context.Context, docName, version string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]string{docName, version}
	if _, ok := s.corpora[key]; !ok {
		return false, nil
	}
	delete(s.corpora, key)
	return true, nil
}

func (s *MemoryCorpusStore) ListCorpora(_ context.Context) ([]IndexedCorpus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]IndexedCorpus, 0, len(s.corpora))
	for _, c := range s.corpora {
		out = append(out, c)
	}
	sortCorpora(out)
	return out, nil
}

func sortCorpora(cs []IndexedCorpus) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].DocName != cs[j].DocName {
			return cs[i].DocName < cs[j].DocName
		}
		return cs[i].Version < cs[j].Version
	})
}

func errClosed() error {
	return docerrors.BackendError(docerrors.ErrCodeStoreRead, "store is closed", nil)
}

func dimensionError(want, got int) error {
	return docerrors.BackendError(docerrors.ErrCodeDimensionMismatch,
		fmt.Sprintf("embedding dimension %d does not match index dimension %d", got, want), nil).
		WithSuggestion("re-index with --force after changing the embedding model")
}
