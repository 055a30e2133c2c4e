package batch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	docerrors "github.com/Aman-CERP/docrag/internal/errors"
	"github.com/Aman-CERP/docrag/internal/store"
)

// recordingCollection records batch sizes and fails on a chosen call.
type recordingCollection struct {
	*store.MemoryCollection
	sizes  []int
	failAt int // 1-based call number, 0 never fails
	calls  int
}

func (c *recordingCollection) Add(ctx context.Context, records []store.Record) error {
	c.calls++
	if c.failAt > 0 && c.calls == c.failAt {
		return errors.New("disk full")
	}
	c.sizes = append(c.sizes, len(records))
	return c.MemoryCollection.Add(ctx, records)
}

func records(n int) []store.Record {
	out := make([]store.Record, n)
	for i := range out {
		out[i] = store.Record{ID: fmt.Sprintf("r%03d", i), Text: "t", Metadata: map[string]string{"doc_name": "d"}}
	}
	return out
}

func TestWriter_Splits(t *testing.T) {
	tests := []struct {
		name      string
		n         int
		max       int
		wantSizes []int
	}{
		{"empty", 0, 3, nil},
		{"single partial batch", 2, 3, []int{2}},
		{"exact multiple", 6, 3, []int{3, 3}},
		{"remainder", 7, 3, []int{3, 3, 1}},
		{"batch of one", 3, 1, []int{1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a writer bounded at tt.max
			c := &recordingCollection{MemoryCollection: store.NewMemoryCollection(0)}
			w := &Writer{Collection: c, MaxBatchSize: tt.max}

			// When: writing n records
			res, err := w.Write(context.Background(), records(tt.n))

			// Then: ceil(n/max) batches were sent in order
			require.NoError(t, err)
			assert.Equal(t, tt.wantSizes, c.sizes)
			assert.Equal(t, len(tt.wantSizes), res.Batches)
			assert.Equal(t, tt.n, res.Committed)

			count, _ := c.Count(context.Background())
			assert.Equal(t, tt.n, count)
		})
	}
}

func TestWriter_PreservesOrder(t *testing.T) {
	// Given: seven records written in batches of two
	c := store.NewMemoryCollection(0)
	w := &Writer{Collection: c, MaxBatchSize: 2}
	in := records(7)

	// When
	_, err := w.Write(context.Background(), in)
	require.NoError(t, err)

	// Then: scan order matches input order
	var ids []string
	require.NoError(t, c.Scan(context.Background(), func(r store.Record) error {
		ids = append(ids, r.ID)
		return nil
	}))
	want := make([]string, len(in))
	for i, r := range in {
		want[i] = r.ID
	}
	assert.Equal(t, want, ids)
}

func TestWriter_StopsOnFirstFailure(t *testing.T) {
	// Given: the second batch fails
	c := &recordingCollection{MemoryCollection: store.NewMemoryCollection(0), failAt: 2}
	w := &Writer{Collection: c, MaxBatchSize: 3}

	// When
	res, err := w.Write(context.Background(), records(8))

	// Then: one batch committed, no further batches, no retry
	require.Error(t, err)
	assert.True(t, docerrors.IsBackend(err))
	assert.Equal(t, 2, c.calls)
	assert.Equal(t, 1, res.Batches)
	assert.Equal(t, 3, res.Committed)

	de, ok := docerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "1", de.Details["batch"])
	assert.Equal(t, "3", de.Details["committed"])
	assert.ErrorContains(t, err, "batch 1")
}

func TestWriter_RejectsDuplicateIDs(t *testing.T) {
	// Given: a duplicate id in the second half of the input
	c := &recordingCollection{MemoryCollection: store.NewMemoryCollection(0)}
	w := &Writer{Collection: c, MaxBatchSize: 2}
	in := records(4)
	in[3].ID = in[0].ID

	// When
	_, err := w.Write(context.Background(), in)

	// Then: nothing was written
	require.Error(t, err)
	assert.True(t, docerrors.IsValidation(err))
	assert.Equal(t, docerrors.ErrCodeDuplicateID, docerrors.GetCode(err))
	assert.Zero(t, c.calls)
}

func TestWriter_RejectsEmptyID(t *testing.T) {
	w := &Writer{Collection: store.NewMemoryCollection(0), MaxBatchSize: 2}
	_, err := w.Write(context.Background(), []store.Record{{Text: "x"}})
	assert.True(t, docerrors.IsValidation(err))
}

func TestWriter_Progress(t *testing.T) {
	// Given: a progress callback
	var calls [][2]int
	w := &Writer{
		Collection:   store.NewMemoryCollection(0),
		MaxBatchSize: 4,
		Progress:     func(done, total int) { calls = append(calls, [2]int{done, total}) },
	}

	// When
	_, err := w.Write(context.Background(), records(10))

	// Then: called once per batch with running totals
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{4, 10}, {8, 10}, {10, 10}}, calls)
}

func TestWriter_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &recordingCollection{MemoryCollection: store.NewMemoryCollection(0)}
	w := &Writer{Collection: c, MaxBatchSize: 2}

	_, err := w.Write(ctx, records(3))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, c.calls)
}

func TestNew_Bounds(t *testing.T) {
	tests := []struct {
		name      string
		collMax   int
		requested int
		want      int
	}{
		{"collection limit when unset", 100, 0, 100},
		{"smaller request wins", 100, 10, 10},
		{"larger request is capped", 100, 500, 100},
		{"default when collection reports none", 0, 0, DefaultMaxBatchSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := store.NewMemoryCollection(0).WithMaxBatchSize(tt.collMax)
			assert.Equal(t, tt.want, New(c, tt.requested).MaxBatchSize)
		})
	}
}
