package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOperation_String(t *testing.T) {
	tests := []struct {
		op   Operation
		want string
	}{
		{OpCreate, "CREATE"},
		{OpModify, "MODIFY"},
		{OpDelete, "DELETE"},
		{OpRename, "RENAME"},
		{Operation(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.op.String())
		})
	}
}

func TestOptions_WithDefaults(t *testing.T) {
	// Given: zero options
	opts := Options{}.WithDefaults()

	// Then: every field has its default
	assert.Equal(t, 500*time.Millisecond, opts.DebounceWindow)
	assert.Equal(t, 5*time.Second, opts.PollInterval)
	assert.Equal(t, 16, opts.EventBufferSize)
	assert.Equal(t, []string{".md"}, opts.Extensions)
	assert.Contains(t, opts.Exclude, ".obsidian")

	// Given: explicit values
	custom := Options{DebounceWindow: time.Second, Exclude: []string{}}.WithDefaults()

	// Then: they are kept, including an explicitly empty exclude list
	assert.Equal(t, time.Second, custom.DebounceWindow)
	assert.Empty(t, custom.Exclude)
}

func TestFilter_Relevant(t *testing.T) {
	f := NewFilter([]string{".md", ".TXT"}, []string{".obsidian", ".git", "*.tmp"})

	tests := []struct {
		name  string
		path  string
		isDir bool
		want  bool
	}{
		{"canvas always", "arch/system.canvas", false, true},
		{"markdown", "notes/api.md", false, true},
		{"extension case folded", "notes/README.TXT", false, true},
		{"other type", "img/diagram.png", false, false},
		{"obsidian settings", ".obsidian/workspace.json", false, false},
		{"excluded component", "notes/.git/config.md", false, false},
		{"glob component", "notes/draft.tmp", false, false},
		{"directory", "notes", true, true},
		{"excluded directory", ".obsidian", true, false},
		{"root", ".", true, false},
		{"empty", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Relevant(tt.path, tt.isDir))
		})
	}
}

func TestFilter_ExcludedDir(t *testing.T) {
	f := NewFilter(nil, []string{".trash"})

	assert.True(t, f.ExcludedDir(".trash"))
	assert.True(t, f.ExcludedDir("archive/.trash"))
	assert.False(t, f.ExcludedDir("archive"))
	assert.False(t, f.ExcludedDir("."))
}
