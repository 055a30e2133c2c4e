package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startVaultWatcher(t *testing.T, dir string, opts Options) *VaultWatcher {
	t.Helper()
	w, err := NewVaultWatcher(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = w.Start(ctx, dir) }()
	time.Sleep(150 * time.Millisecond)
	return w
}

// collectPaths gathers event paths until want is seen or the timeout fires.
func collectPaths(t *testing.T, w *VaultWatcher, want string, timeout time.Duration) map[string]Operation {
	t.Helper()
	seen := map[string]Operation{}
	deadline := time.After(timeout)
	for {
		select {
		case batch, ok := <-w.Events():
			if !ok {
				return seen
			}
			for _, e := range batch {
				seen[e.Path] = e.Operation
			}
			if _, ok := seen[want]; ok {
				return seen
			}
		case <-deadline:
			return seen
		}
	}
}

func TestVaultWatcher_New(t *testing.T) {
	w, err := NewVaultWatcher(DefaultOptions())
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	assert.Contains(t, []string{"fsnotify", "polling"}, w.Mode())

	polling, err := NewVaultWatcher(Options{ForcePolling: true})
	require.NoError(t, err)
	defer func() { _ = polling.Stop() }()
	assert.Equal(t, "polling", polling.Mode())
}

func TestVaultWatcher_StartRejectsMissingRoot(t *testing.T) {
	w, err := NewVaultWatcher(DefaultOptions())
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	err = w.Start(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestVaultWatcher_ReportsRelevantChanges(t *testing.T) {
	modes := []struct {
		name string
		opts Options
	}{
		{"fsnotify", Options{DebounceWindow: 30 * time.Millisecond}},
		{"polling", Options{DebounceWindow: 30 * time.Millisecond, PollInterval: 30 * time.Millisecond, ForcePolling: true}},
	}

	for _, mode := range modes {
		t.Run(mode.name, func(t *testing.T) {
			// Given: a watched vault with an excluded settings directory
			dir := t.TempDir()
			require.NoError(t, os.MkdirAll(filepath.Join(dir, ".obsidian"), 0o755))
			require.NoError(t, os.MkdirAll(filepath.Join(dir, "arch"), 0o755))
			w := startVaultWatcher(t, dir, mode.opts)
			assert.Equal(t, dir, w.RootPath())

			// When: irrelevant and relevant files are written
			require.NoError(t, os.WriteFile(filepath.Join(dir, ".obsidian", "workspace.md"), []byte("{}"), 0o644))
			require.NoError(t, os.WriteFile(filepath.Join(dir, "photo.png"), []byte("x"), 0o644))
			require.NoError(t, os.WriteFile(filepath.Join(dir, "arch", "system.canvas"), []byte("{}"), 0o644))

			// Then: only the canvas is reported
			seen := collectPaths(t, w, "arch/system.canvas", 2*time.Second)
			assert.Contains(t, seen, "arch/system.canvas")
			assert.NotContains(t, seen, ".obsidian/workspace.md")
			assert.NotContains(t, seen, "photo.png")
		})
	}
}

func TestVaultWatcher_WatchesNewDirectories(t *testing.T) {
	// Given: a watched vault
	dir := t.TempDir()
	w := startVaultWatcher(t, dir, Options{DebounceWindow: 30 * time.Millisecond})
	if w.Mode() != "fsnotify" {
		t.Skip("fsnotify unavailable")
	}

	// When: a directory is created and a note written inside it
	sub := filepath.Join(dir, "notes")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "api.md"), []byte("x"), 0o644))

	// Then: the note is reported
	seen := collectPaths(t, w, "notes/api.md", 2*time.Second)
	assert.Contains(t, seen, "notes/api.md")
}

func TestVaultWatcher_StopClosesChannels(t *testing.T) {
	w, err := NewVaultWatcher(DefaultOptions())
	require.NoError(t, err)

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())

	_, ok := <-w.Events()
	assert.False(t, ok)
	_, ok = <-w.Errors()
	assert.False(t, ok)
}
