package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	docerrors "github.com/Aman-CERP/docrag/internal/errors"
)

// File names inside the data directory.
const (
	DatabaseFile = "docrag.db"
	VectorFile   = "vectors.hnsw"
)

// scanPageSize bounds how many rows Scan holds in memory at once.
const scanPageSize = 500

// Options configures Open.
type Options struct {
	// Dimensions of stored embeddings. 0 disables the vector index.
	Dimensions int

	// MaxBatchSize bounds Add. 0 selects DefaultMaxBatchSize.
	MaxBatchSize int
}

// SQLiteStore is the on-disk Collection and CorpusStore. Records, their
// embeddings and corpus metadata live in SQLite; an HNSW index over the
// embeddings is kept in memory and saved on Close.
type SQLiteStore struct {
	db       *sql.DB
	dir      string
	maxBatch int

	mu     sync.RWMutex
	vec    *HNSWIndex // nil without vectors
	dirty  bool
	closed bool
}

var (
	_ Collection  = (*SQLiteStore)(nil)
	_ CorpusStore = (*SQLiteStore)(nil)
)

// Open opens or creates the store in dir.
func Open(ctx context.Context, dir string, opts Options) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, docerrors.BackendError(docerrors.ErrCodeStoreOpen, fmt.Sprintf("failed to create data dir %s", dir), err)
	}

	db, err := openDB(ctx, filepath.Join(dir, DatabaseFile))
	if err != nil {
		return nil, docerrors.BackendError(docerrors.ErrCodeStoreOpen, "failed to open database", err)
	}

	s := &SQLiteStore{db: db, dir: dir, maxBatch: opts.MaxBatchSize}
	if s.maxBatch <= 0 {
		s.maxBatch = DefaultMaxBatchSize
	}

	if opts.Dimensions > 0 {
		if err := s.loadVectors(ctx, opts.Dimensions); err != nil {
			_ = db.Close()
			return nil, docerrors.BackendError(docerrors.ErrCodeStoreOpen, "failed to load vector index", err)
		}
	}
	return s, nil
}

// OpenMemory opens a store backed by an in-memory database (tests).
func OpenMemory(ctx context.Context, opts Options) (*SQLiteStore, error) {
	db, err := openDB(ctx, ":memory:")
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: db, maxBatch: opts.MaxBatchSize}
	if s.maxBatch <= 0 {
		s.maxBatch = DefaultMaxBatchSize
	}
	if opts.Dimensions > 0 {
		s.vec = NewHNSWIndex(opts.Dimensions)
	}
	return s, nil
}

func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// Single writer to prevent lock contention
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// DSN params may be ignored by modernc.org/sqlite, so set pragmas directly
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS records (
		seq       INTEGER PRIMARY KEY AUTOINCREMENT,
		id        TEXT NOT NULL UNIQUE,
		text      TEXT NOT NULL,
		metadata  TEXT NOT NULL DEFAULT '{}',
		embedding BLOB
	);

	CREATE INDEX IF NOT EXISTS idx_records_corpus
		ON records (json_extract(metadata, '$.doc_name'), json_extract(metadata, '$.version'));

	CREATE TABLE IF NOT EXISTS corpora (
		doc_name       TEXT NOT NULL,
		version        TEXT NOT NULL,
		doc_type       TEXT NOT NULL,
		source_path    TEXT NOT NULL,
		document_count INTEGER NOT NULL,
		indexed_at     TEXT NOT NULL,
		PRIMARY KEY (doc_name, version)
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, nil
}

// loadVectors loads the saved HNSW index, rebuilding it from stored
// embeddings when it is missing, stale or of another dimension.
func (s *SQLiteStore) loadVectors(ctx context.Context, dims int) error {
	path := filepath.Join(s.dir, VectorFile)

	var stored int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE length(embedding) = ?`, dims*4).Scan(&stored); err != nil {
		return err
	}

	idx, err := LoadHNSWIndex(path, dims)
	if err == nil && idx.Len() == stored {
		s.vec = idx
		return nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("vector index unusable, rebuilding", slog.String("path", path), slog.String("error", err.Error()))
	}

	s.vec = NewHNSWIndex(dims)
	skipped := 0
	err = s.scanRows(ctx, func(r Record) error {
		if len(r.Embedding) != dims {
			if r.Embedding != nil {
				skipped++
			}
			return nil
		}
		return s.vec.Add([]string{r.ID}, [][]float32{r.Embedding})
	})
	if err != nil {
		return err
	}
	if skipped > 0 {
		slog.Warn("records embedded with another dimension are not searchable by vector",
			slog.Int("count", skipped), slog.Int("dims", dims))
	}
	s.dirty = true
	return nil
}

// Add upserts records in one transaction.
func (s *SQLiteStore) Add(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	if len(records) > s.maxBatch {
		return docerrors.BackendError(docerrors.ErrCodeStoreWrite,
			fmt.Sprintf("batch of %d exceeds max batch size %d", len(records), s.maxBatch), nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed()
	}

	var ids []string
	var vecs [][]float32
	for _, r := range records {
		if r.Embedding == nil || s.vec == nil {
			continue
		}
		if len(r.Embedding) != s.vec.Dimensions() {
			return dimensionError(s.vec.Dimensions(), len(r.Embedding))
		}
		ids = append(ids, r.ID)
		vecs = append(vecs, r.Embedding)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return writeError("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (id, text, metadata, embedding) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text, metadata = excluded.metadata, embedding = excluded.embedding`)
	if err != nil {
		return writeError("failed to prepare insert", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		meta, err := json.Marshal(orEmpty(r.Metadata))
		if err != nil {
			return writeError("failed to encode metadata", err)
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.Text, string(meta), encodeVector(r.Embedding)); err != nil {
			return writeError(fmt.Sprintf("failed to insert record %s", r.ID), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return writeError("failed to commit records", err)
	}

	if len(ids) > 0 {
		if err := s.vec.Add(ids, vecs); err != nil {
			return writeError("failed to index vectors", err)
		}
		s.dirty = true
	}
	return nil
}

// Query runs a nearest neighbour search and loads the matching records.
func (s *SQLiteStore) Query(ctx context.Context, embedding []float32, k int) ([]QueryHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed()
	}
	if s.vec == nil {
		return nil, docerrors.BackendError(docerrors.ErrCodeStoreRead, "collection has no vector index", nil)
	}

	hits, err := s.vec.Search(embedding, k)
	if err != nil {
		var dm *DimensionMismatchError
		if errors.As(err, &dm) {
			return nil, dimensionError(dm.Expected, dm.Got)
		}
		return nil, readError("vector search failed", err)
	}
	if len(hits) == 0 {
		return []QueryHit{}, nil
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	byID, err := s.getRecords(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]QueryHit, 0, len(hits))
	for _, h := range hits {
		r, ok := byID[h.ID]
		if !ok {
			continue
		}
		out = append(out, QueryHit{Record: r, Distance: h.Distance})
	}
	return out, nil
}

func (s *SQLiteStore) getRecords(ctx context.Context, ids []string) (map[string]Record, error) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := `SELECT id, text, metadata, embedding FROM records WHERE id IN (` +
		strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",") + `)`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, readError("failed to load records", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]Record, len(ids))
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out[r.ID] = r
	}
	return out, rows.Err()
}

// Delete removes records by id.
func (s *SQLiteStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed()
	}
	return s.deleteIDs(ctx, ids)
}

// must hold mu
func (s *SQLiteStore) deleteIDs(ctx context.Context, ids []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return writeError("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id); err != nil {
			return writeError("failed to delete record", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return writeError("failed to commit delete", err)
	}

	if s.vec != nil {
		s.vec.Delete(ids)
		s.dirty = true
	}
	return nil
}

// DeleteWhere removes records whose metadata matches every pair in where.
func (s *SQLiteStore) DeleteWhere(ctx context.Context, where map[string]string) (int, error) {
	if len(where) == 0 {
		return 0, docerrors.ValidationError("where", "delete filter must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errClosed()
	}

	var conds []string
	var args []any
	for k, v := range where {
		conds = append(conds, `json_extract(metadata, ?) = ?`)
		args = append(args, `$."`+k+`"`, v)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM records WHERE `+strings.Join(conds, " AND "), args...)
	if err != nil {
		return 0, readError("failed to select records", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return 0, readError("failed to read id", err)
		}
		ids = append(ids, id)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return 0, readError("failed to select records", err)
	}

	if len(ids) == 0 {
		return 0, nil
	}
	if err := s.deleteIDs(ctx, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Count returns the number of records.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, readError("failed to count records", err)
	}
	return n, nil
}

// Scan visits records in insertion order, a page at a time.
func (s *SQLiteStore) Scan(ctx context.Context, fn func(Record) error) error {
	return s.scanRows(ctx, fn)
}

func (s *SQLiteStore) scanRows(ctx context.Context, fn func(Record) error) error {
	var last int64
	for {
		page, lastSeq, err := s.page(ctx, last, scanPageSize)
		if err != nil {
			return err
		}
		for _, r := range page {
			if err := fn(r); err != nil {
				return err
			}
		}
		if len(page) < scanPageSize {
			return nil
		}
		last = lastSeq
	}
}

func (s *SQLiteStore) page(ctx context.Context, after int64, limit int) ([]Record, int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, id, text, metadata, embedding FROM records WHERE seq > ? ORDER BY seq LIMIT ?`, after, limit)
	if err != nil {
		return nil, 0, readError("failed to scan records", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	var seq int64
	for rows.Next() {
		var (
			id, text, meta string
			blob           []byte
		)
		if err := rows.Scan(&seq, &id, &text, &meta, &blob); err != nil {
			return nil, 0, readError("failed to read record", err)
		}
		r, err := buildRecord(id, text, meta, blob)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, seq, rows.Err()
}

// Sample returns the first n records in insertion order.
func (s *SQLiteStore) Sample(ctx context.Context, n int) ([]Record, error) {
	if n <= 0 {
		return []Record{}, nil
	}
	page, _, err := s.page(ctx, 0, n)
	if page == nil {
		page = []Record{}
	}
	return page, err
}

// HasVectors reports whether a vector index is attached.
func (s *SQLiteStore) HasVectors() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vec != nil
}

func (s *SQLiteStore) MaxBatchSize() int { return s.maxBatch }

// Sync saves the vector index if it changed.
func (s *SQLiteStore) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncLocked()
}

func (s *SQLiteStore) syncLocked() error {
	if s.vec == nil || !s.dirty || s.dir == "" {
		return nil
	}
	if err := s.vec.Save(filepath.Join(s.dir, VectorFile)); err != nil {
		return writeError("failed to save vector index", err)
	}
	s.dirty = false
	return nil
}

// Close saves the vector index and closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	syncErr := s.syncLocked()
	if err := s.db.Close(); err != nil {
		return err
	}
	return syncErr
}

// GetCorpus returns the corpus entry or nil.
func (s *SQLiteStore) GetCorpus(ctx context.Context, docName, version string) (*IndexedCorpus, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT doc_name, version, doc_type, source_path, document_count, indexed_at
		FROM corpora WHERE doc_name = ? AND version = ?`, docName, version)
	c, err := scanCorpus(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, readError("failed to read corpus", err)
	}
	return c, nil
}

// PutCorpus inserts or replaces a corpus entry.
func (s *SQLiteStore) PutCorpus(ctx context.Context, c IndexedCorpus) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO corpora (doc_name, version, doc_type, source_path, document_count, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(doc_name, version) DO UPDATE SET
			doc_type = excluded.doc_type, source_path = excluded.source_path,
			document_count = excluded.document_count, indexed_at = excluded.indexed_at`,
		c.DocName, c.Version, c.DocType, c.SourcePath, c.DocumentCount, c.IndexedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return writeError("failed to save corpus", err)
	}
	return nil
}

// DeleteCorpus removes a corpus entry.
func (s *SQLiteStore) DeleteCorpus(ctx context.Context, docName, version string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM corpora WHERE doc_name = ? AND version = ?`, docName, version)
	if err != nil {
		return false, writeError("failed to delete corpus", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListCorpora returns all corpus entries ordered by name and version.
func (s *SQLiteStore) ListCorpora(ctx context.Context) ([]IndexedCorpus, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_name, version, doc_type, source_path, document_count, indexed_at
		FROM corpora ORDER BY doc_name, version`)
	if err != nil {
		return nil, readError("failed to list corpora", err)
	}
	defer func() { _ = rows.Close() }()

	out := []IndexedCorpus{}
	for rows.Next() {
		c, err := scanCorpus(rows)
		if err != nil {
			return nil, readError("failed to read corpus", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCorpus(row rowScanner) (*IndexedCorpus, error) {
	var c IndexedCorpus
	var at string
	if err := row.Scan(&c.DocName, &c.Version, &c.DocType, &c.SourcePath, &c.DocumentCount, &at); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return nil, err
	}
	c.IndexedAt = t
	return &c, nil
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		id, text, meta string
		blob           []byte
	)
	if err := row.Scan(&id, &text, &meta, &blob); err != nil {
		return Record{}, readError("failed to read record", err)
	}
	return buildRecord(id, text, meta, blob)
}

func buildRecord(id, text, meta string, blob []byte) (Record, error) {
	r := Record{ID: id, Text: text, Embedding: decodeVector(blob)}
	if err := json.Unmarshal([]byte(meta), &r.Metadata); err != nil {
		return Record{}, readError(fmt.Sprintf("corrupt metadata for record %s", id), err)
	}
	return r, nil
}

func encodeVector(v []float32) []byte {
	if v == nil {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}

func orEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func writeError(msg string, err error) error {
	return docerrors.BackendError(docerrors.ErrCodeStoreWrite, msg, err)
}

func readError(msg string, err error) error {
	return docerrors.BackendError(docerrors.ErrCodeStoreRead, msg, err)
}
