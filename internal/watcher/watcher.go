package watcher

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/Aman-CERP/docrag/internal/canvas"
)

// Operation represents a file system operation type.
type Operation int

const (
	// OpCreate indicates a new file or directory was created.
	OpCreate Operation = iota
	// OpModify indicates an existing file was modified.
	OpModify
	// OpDelete indicates a file or directory was deleted.
	OpDelete
	// OpRename indicates a file or directory was renamed away.
	OpRename
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// FileEvent represents a change to a vault file.
type FileEvent struct {
	// Path is relative to the watched root, with forward slashes.
	Path string

	Operation Operation

	IsDir bool

	// Timestamp is when the event was detected.
	Timestamp time.Time
}

// Watcher delivers debounced batches of vault file events.
type Watcher interface {
	// Start watches path recursively until Stop is called or ctx is done.
	Start(ctx context.Context, path string) error

	// Stop releases resources. Safe to call multiple times.
	Stop() error

	// Events returns batches of coalesced events. Closed on Stop.
	Events() <-chan []FileEvent

	// Errors returns non-fatal watcher errors. Closed on Stop.
	Errors() <-chan error
}

// Options configures the watcher behavior.
type Options struct {
	// DebounceWindow is the quiet period before a batch is emitted.
	// Default: 500ms
	DebounceWindow time.Duration

	// PollInterval is the scan interval of the polling fallback.
	// Default: 5s
	PollInterval time.Duration

	// EventBufferSize is the number of batches buffered for the consumer.
	// Default: 16
	EventBufferSize int

	// Extensions are the file types that trigger re-indexing in addition
	// to canvas files. Default: .md
	Extensions []string

	// Exclude holds glob patterns matched against each path component.
	Exclude []string

	// ForcePolling skips fsnotify, for filesystems without change events.
	ForcePolling bool
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  500 * time.Millisecond,
		PollInterval:    5 * time.Second,
		EventBufferSize: 16,
		Extensions:      []string{".md"},
		Exclude:         []string{".git", ".obsidian", ".trash"},
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.EventBufferSize <= 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	if len(o.Extensions) == 0 {
		o.Extensions = defaults.Extensions
	}
	if o.Exclude == nil {
		o.Exclude = defaults.Exclude
	}
	return o
}

// Filter decides which paths are relevant to the vault index.
type Filter struct {
	extensions map[string]bool
	exclude    []string
}

// NewFilter builds a filter for canvas files plus the given extensions.
func NewFilter(extensions, exclude []string) *Filter {
	f := &Filter{extensions: map[string]bool{canvas.Extension: true}, exclude: exclude}
	for _, ext := range extensions {
		f.extensions[strings.ToLower(ext)] = true
	}
	return f
}

// ExcludedDir reports whether a directory subtree is skipped.
func (f *Filter) ExcludedDir(rel string) bool {
	return rel != "." && rel != "" && f.excluded(rel)
}

// Relevant reports whether a change to rel can affect the vault index.
// Directories are relevant because removing one removes the files below it.
func (f *Filter) Relevant(rel string, isDir bool) bool {
	if rel == "." || rel == "" || f.excluded(rel) {
		return false
	}
	if isDir {
		return true
	}
	return f.extensions[strings.ToLower(filepath.Ext(rel))]
}

func (f *Filter) excluded(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		for _, pattern := range f.exclude {
			if ok, _ := filepath.Match(pattern, part); ok {
				return true
			}
		}
	}
	return false
}
