// Package lifecycle owns indexed corpora: one per (doc name, version) key.
//
// The Manager is the only writer of corpus metadata and the only component
// allowed to clear a corpus slice of the collection. Indexing an existing key
// without force is a no-op; forcing clears the slice and writes it again.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Aman-CERP/docrag/internal/batch"
	docerrors "github.com/Aman-CERP/docrag/internal/errors"
	"github.com/Aman-CERP/docrag/internal/store"
)

// StatsSampleSize bounds the number of records Stats inspects.
const StatsSampleSize = 100

// Status is the outcome of IndexCorpus.
type Status string

const (
	StatusIndexed        Status = "indexed"
	StatusAlreadyIndexed Status = "already_indexed"
)

// Request describes one corpus to index.
type Request struct {
	DocName      string
	Version      string
	DocType      string
	SourcePath   string
	Records      []store.Record
	ForceReindex bool
}

// Result is returned by IndexCorpus.
type Result struct {
	Status  Status
	Corpus  store.IndexedCorpus
	Removed int // records cleared before a forced reindex
}

// Stats summarizes the collection.
//
// TotalDocuments is exact. The per-key counts and Docs come from the first
// SampleSize records only, so they are approximate whenever Approximate is set.
type Stats struct {
	TotalDocuments int            `json:"total_documents"`
	SampleSize     int            `json:"sample_size"`
	Approximate    bool           `json:"approximate"`
	PerSource      map[string]int `json:"sources"`
	PerType        map[string]int `json:"doc_types"`
	PerDocName     map[string]int `json:"doc_names"`
	PerRecordType  map[string]int `json:"record_types"`
	Docs           []string       `json:"docs"`
}

// Manager coordinates the collection and the corpus store.
type Manager struct {
	collection   store.Collection
	corpora      store.CorpusStore
	maxBatchSize int
	now          func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithMaxBatchSize bounds batch writes below the collection's own limit.
func WithMaxBatchSize(n int) Option {
	return func(m *Manager) { m.maxBatchSize = n }
}

// WithClock overrides the IndexedAt clock.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a Manager.
func NewManager(collection store.Collection, corpora store.CorpusStore, opts ...Option) *Manager {
	m := &Manager{collection: collection, corpora: corpora, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Collection returns the managed collection.
func (m *Manager) Collection() store.Collection { return m.collection }

// IndexCorpus indexes req.Records under (req.DocName, req.Version).
func (m *Manager) IndexCorpus(ctx context.Context, req Request) (*Result, error) {
	if req.DocName == "" {
		return nil, docerrors.ValidationError("doc_name", "doc name is required")
	}
	if req.Version == "" {
		return nil, docerrors.ValidationError("version", "version is required")
	}

	existing, err := m.corpora.GetCorpus(ctx, req.DocName, req.Version)
	if err != nil {
		return nil, err
	}
	if existing != nil && !req.ForceReindex {
		slog.Debug("corpus already indexed",
			slog.String("doc_name", req.DocName),
			slog.String("version", req.Version))
		return &Result{Status: StatusAlreadyIndexed, Corpus: *existing}, nil
	}

	// Always clear the slice: a previous run may have failed after writing
	// chunks but before committing metadata.
	removed, err := m.collection.DeleteWhere(ctx, key(req.DocName, req.Version))
	if err != nil {
		return nil, docerrors.BackendError(docerrors.ErrCodeStoreWrite, "failed to clear previous chunks", err)
	}
	if removed > 0 {
		slog.Info("cleared previous chunks",
			slog.String("doc_name", req.DocName),
			slog.String("version", req.Version),
			slog.Int("removed", removed))
	}

	w := batch.New(m.collection, m.maxBatchSize)
	if _, err := w.Write(ctx, req.Records); err != nil {
		return nil, err
	}

	corpus := store.IndexedCorpus{
		DocName:       req.DocName,
		Version:       req.Version,
		DocType:       req.DocType,
		SourcePath:    req.SourcePath,
		DocumentCount: len(req.Records),
		// Stores keep microseconds; match what a later lookup returns.
		IndexedAt: m.now().UTC().Truncate(time.Microsecond),
	}
	if err := m.corpora.PutCorpus(ctx, corpus); err != nil {
		return nil, docerrors.BackendError(docerrors.ErrCodeStoreWrite, "failed to save corpus metadata", err)
	}

	slog.Info("corpus indexed",
		slog.String("doc_name", corpus.DocName),
		slog.String("version", corpus.Version),
		slog.Int("documents", corpus.DocumentCount))
	return &Result{Status: StatusIndexed, Corpus: corpus, Removed: removed}, nil
}

// Remove deletes the corpus chunks and its metadata. It reports false when
// neither existed.
func (m *Manager) Remove(ctx context.Context, docName, version string) (bool, error) {
	removed, err := m.collection.DeleteWhere(ctx, key(docName, version))
	if err != nil {
		return false, docerrors.BackendError(docerrors.ErrCodeStoreWrite, "failed to delete chunks", err)
	}
	had, err := m.corpora.DeleteCorpus(ctx, docName, version)
	if err != nil {
		return false, docerrors.BackendError(docerrors.ErrCodeStoreWrite, "failed to delete corpus metadata", err)
	}
	if had || removed > 0 {
		slog.Info("corpus removed",
			slog.String("doc_name", docName),
			slog.String("version", version),
			slog.Int("removed", removed))
	}
	return had || removed > 0, nil
}

// List returns every corpus ordered by doc name then version.
func (m *Manager) List(ctx context.Context) ([]store.IndexedCorpus, error) {
	return m.corpora.ListCorpora(ctx)
}

// Lookup returns the corpus for a key, or nil when the key is unknown.
func (m *Manager) Lookup(ctx context.Context, docName, version string) (*store.IndexedCorpus, error) {
	return m.corpora.GetCorpus(ctx, docName, version)
}

// Get returns the corpus for a key, or a not-found error.
func (m *Manager) Get(ctx context.Context, docName, version string) (*store.IndexedCorpus, error) {
	c, err := m.corpora.GetCorpus(ctx, docName, version)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, docerrors.CorpusNotFound(docName, version)
	}
	return c, nil
}

// Stats counts the collection exactly and breaks down a bounded sample.
func (m *Manager) Stats(ctx context.Context) (*Stats, error) {
	count, err := m.collection.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}

	st := &Stats{
		TotalDocuments: count,
		PerSource:      map[string]int{},
		PerType:        map[string]int{},
		PerDocName:     map[string]int{},
		PerRecordType:  map[string]int{},
		Docs:           []string{},
	}
	if count == 0 {
		return st, nil
	}

	sample, err := m.collection.Sample(ctx, min(StatsSampleSize, count))
	if err != nil {
		return nil, fmt.Errorf("failed to sample records: %w", err)
	}
	st.SampleSize = len(sample)
	st.Approximate = st.SampleSize < count

	docs := map[string]struct{}{}
	for _, r := range sample {
		st.PerSource[orUnknown(r.Meta(store.MetaSource))]++
		st.PerType[orUnknown(r.Meta(store.MetaDocType))]++
		st.PerDocName[orUnknown(r.Meta(store.MetaDocName))]++
		st.PerRecordType[orUnknown(r.Meta(store.MetaType))]++
		docs[orUnknown(r.Meta(store.MetaFileName))] = struct{}{}
	}
	for d := range docs {
		st.Docs = append(st.Docs, d)
	}
	sort.Strings(st.Docs)
	return st, nil
}

func key(docName, version string) map[string]string {
	return map[string]string{store.MetaDocName: docName, store.MetaVersion: version}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
