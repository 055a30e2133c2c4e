package store

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/coder/hnsw"
)

// VectorHit is one nearest neighbour from an HNSWIndex.
type VectorHit struct {
	ID       string
	Distance float32
}

// HNSWIndex is a cosine-distance vector index over string ids.
// Deletion is lazy: the node stays in the graph and only its id mapping is
// dropped, since coder/hnsw misbehaves when the last node is removed.
type HNSWIndex struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[uint64]
	dims  int

	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64
}

// hnswMeta is persisted next to the exported graph.
type hnswMeta struct {
	Dims    int
	IDMap   map[string]uint64
	NextKey uint64
}

// NewHNSWIndex creates an empty index for dims-dimensional vectors.
func NewHNSWIndex(dims int) *HNSWIndex {
	return &HNSWIndex{
		graph:  newGraph(),
		dims:   dims,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
	}
}

func newGraph() *hnsw.Graph[uint64] {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = 16
	g.EfSearch = 20
	g.Ml = 0.25
	return g
}

// Dimensions returns the vector dimension.
func (x *HNSWIndex) Dimensions() int { return x.dims }

// Add inserts or replaces vectors.
func (x *HNSWIndex) Add(ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors))
	}
	for _, v := range vectors {
		if len(v) != x.dims {
			return &DimensionMismatchError{Expected: x.dims, Got: len(v)}
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	for i, id := range ids {
		if old, ok := x.idMap[id]; ok {
			delete(x.keyMap, old)
		}
		key := x.nextKey
		x.nextKey++

		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		normalizeInPlace(vec)

		x.graph.Add(hnsw.MakeNode(key, vec))
		x.idMap[id] = key
		x.keyMap[key] = id
	}
	return nil
}

// Search returns up to k live ids nearest to query, by ascending cosine distance.
func (x *HNSWIndex) Search(query []float32, k int) ([]VectorHit, error) {
	if len(query) != x.dims {
		return nil, &DimensionMismatchError{Expected: x.dims, Got: len(query)}
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if k <= 0 || len(x.idMap) == 0 {
		return []VectorHit{}, nil
	}

	q := make([]float32, len(query))
	copy(q, query)
	normalizeInPlace(q)

	// over-fetch past lazily deleted nodes
	fetch := min(k+x.graph.Len()-len(x.idMap), x.graph.Len())
	nodes := x.graph.Search(q, fetch)

	hits := make([]VectorHit, 0, k)
	for _, n := range nodes {
		id, ok := x.keyMap[n.Key]
		if !ok {
			continue
		}
		hits = append(hits, VectorHit{ID: id, Distance: hnsw.CosineDistance(q, n.Value)})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Delete drops ids from the index.
func (x *HNSWIndex) Delete(ids []string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, id := range ids {
		if key, ok := x.idMap[id]; ok {
			delete(x.keyMap, key)
			delete(x.idMap, id)
		}
	}
}

// Len returns the number of live vectors.
func (x *HNSWIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.idMap)
}

// Orphans returns the number of lazily deleted graph nodes.
func (x *HNSWIndex) Orphans() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.graph.Len() - len(x.idMap)
}

// Contains reports whether id has a live vector.
func (x *HNSWIndex) Contains(id string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	_, ok := x.idMap[id]
	return ok
}

// Save writes the graph to path and the id mapping to path+".meta",
// each through a temp file and rename.
func (x *HNSWIndex) Save(path string) error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := writeAtomic(path, func(f *os.File) error { return x.graph.Export(f) }); err != nil {
		return fmt.Errorf("failed to export graph: %w", err)
	}

	meta := hnswMeta{Dims: x.dims, IDMap: x.idMap, NextKey: x.nextKey}
	if err := writeAtomic(path+".meta", func(f *os.File) error { return gob.NewEncoder(f).Encode(meta) }); err != nil {
		return fmt.Errorf("failed to save index metadata: %w", err)
	}
	return nil
}

// LoadHNSWIndex reads an index saved with Save. It fails with a
// DimensionMismatchError when the stored dimension differs from dims.
func LoadHNSWIndex(path string, dims int) (*HNSWIndex, error) {
	mf, err := os.Open(path + ".meta")
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := mf.Close(); err != nil {
			slog.Warn("failed to close index metadata", slog.String("error", err.Error()))
		}
	}()

	var meta hnswMeta
	if err := gob.NewDecoder(mf).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decode index metadata: %w", err)
	}
	if meta.Dims != dims {
		return nil, &DimensionMismatchError{Expected: dims, Got: meta.Dims}
	}

	gf, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = gf.Close() }()

	graph := newGraph()
	// Import needs an io.ByteReader
	if err := graph.Import(bufio.NewReader(gf)); err != nil {
		return nil, fmt.Errorf("failed to import graph: %w", err)
	}

	x := &HNSWIndex{
		graph:   graph,
		dims:    meta.Dims,
		idMap:   meta.IDMap,
		keyMap:  make(map[uint64]string, len(meta.IDMap)),
		nextKey: meta.NextKey,
	}
	if x.idMap == nil {
		x.idMap = make(map[string]uint64)
	}
	for id, key := range x.idMap {
		x.keyMap[key] = id
	}
	return x, nil
}

// DimensionMismatchError reports vectors of the wrong size.
type DimensionMismatchError struct {
	Expected int
	Got      int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}

func writeAtomic(path string, write func(*os.File) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func normalizeInPlace(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
