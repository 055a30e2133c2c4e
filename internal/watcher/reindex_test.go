package watcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWatcher is a Watcher fed by the test.
type fakeWatcher struct {
	events chan []FileEvent
	errs   chan error
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{events: make(chan []FileEvent, 8), errs: make(chan error, 8)}
}

func (f *fakeWatcher) Start(context.Context, string) error { return nil }
func (f *fakeWatcher) Stop() error                         { return nil }
func (f *fakeWatcher) Events() <-chan []FileEvent          { return f.events }
func (f *fakeWatcher) Errors() <-chan error                { return f.errs }

func TestReindexer_MergesQueuedBatches(t *testing.T) {
	// Given: three batches queued before the reindexer runs
	w := newFakeWatcher()
	w.events <- []FileEvent{{Path: "a.md"}}
	w.events <- []FileEvent{{Path: "b.md"}}
	w.events <- []FileEvent{{Path: "c.canvas"}, {Path: "d.md"}}
	close(w.events)

	var mu sync.Mutex
	var calls [][]FileEvent
	r := NewReindexer(w, func(ctx context.Context, changes []FileEvent) error {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, changes)
		return nil
	}, nil)

	// When: running until the watcher closes
	err := r.Run(context.Background())

	// Then: one rebuild covered every change
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Len(t, calls[0], 4)
}

func TestReindexer_FailureDoesNotStop(t *testing.T) {
	// Given: a rebuild that fails the first time
	w := newFakeWatcher()
	attempts := 0
	var results []error
	r := NewReindexer(w, func(ctx context.Context, changes []FileEvent) error {
		attempts++
		if attempts == 1 {
			return errors.New("embedder down")
		}
		return nil
	}, func(changes int, took time.Duration, err error) {
		results = append(results, err)
	})

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()

	// When: two batches arrive one after the other, plus a watcher error
	w.errs <- errors.New("inotify overflow")
	w.events <- []FileEvent{{Path: "a.md"}}
	time.Sleep(50 * time.Millisecond)
	w.events <- []FileEvent{{Path: "a.md"}}
	time.Sleep(50 * time.Millisecond)
	close(w.events)

	// Then: both rebuilds ran and the loop ended cleanly
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reindexer did not stop")
	}
	require.Len(t, results, 2)
	assert.Error(t, results[0])
	assert.NoError(t, results[1])
}

func TestReindexer_StopsOnCancel(t *testing.T) {
	w := newFakeWatcher()
	r := NewReindexer(w, func(context.Context, []FileEvent) error { return nil }, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, r.Run(ctx), context.Canceled)
}
