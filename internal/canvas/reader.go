package canvas

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	docerrors "github.com/Aman-CERP/docrag/internal/errors"
)

// Reader loads canvas documents and referenced files from a vault root.
type Reader struct {
	fs   afero.Fs
	root string
}

// NewReader returns a Reader over fsys rooted at root.
// root must be an existing directory.
func NewReader(fsys afero.Fs, root string) (*Reader, error) {
	info, err := fsys.Stat(root)
	if err != nil {
		return nil, docerrors.InvalidPath(root, "vault root does not exist")
	}
	if !info.IsDir() {
		return nil, docerrors.InvalidPath(root, "vault root is not a directory")
	}
	return &Reader{fs: fsys, root: filepath.Clean(root)}, nil
}

// NewOSReader returns a Reader on the real filesystem.
func NewOSReader(root string) (*Reader, error) {
	return NewReader(afero.NewOsFs(), root)
}

// Root returns the vault root.
func (r *Reader) Root() string { return r.root }

// Fs returns the underlying filesystem.
func (r *Reader) Fs() afero.Fs { return r.fs }

// Resolve joins rel onto the root and rejects paths escaping it.
func (r *Reader) Resolve(rel string) (string, error) {
	return resolveUnder(r.root, rel)
}

func resolveUnder(root, rel string) (string, error) {
	full := filepath.Join(root, filepath.FromSlash(rel))
	within, err := filepath.Rel(root, full)
	if err != nil || within == ".." || strings.HasPrefix(within, ".."+string(filepath.Separator)) {
		return "", docerrors.InvalidPath(rel, "path escapes the vault root")
	}
	return full, nil
}

// ReadFile parses the canvas at rel (relative to the root).
func (r *Reader) ReadFile(rel string) (*Document, error) {
	full, err := r.Resolve(rel)
	if err != nil {
		return nil, err
	}

	info, err := r.fs.Stat(full)
	if err != nil || info.IsDir() {
		return nil, docerrors.FileNotFound(rel).WithSuggestion("check the canvas path relative to the vault root")
	}
	if filepath.Ext(full) != Extension {
		return nil, docerrors.InvalidPath(rel, "file is not a canvas file")
	}

	data, err := afero.ReadFile(r.fs, full)
	if err != nil {
		return nil, docerrors.New(docerrors.ErrCodeFileRead, fmt.Sprintf("could not read %s", rel), err)
	}
	return Parse(data, filepath.ToSlash(rel))
}

// Find searches the vault recursively for a canvas by file name, appending the
// .canvas suffix if missing. It returns the first match relative to the root,
// with forward slashes.
func (r *Reader) Find(name string) (string, error) {
	if !strings.HasSuffix(name, Extension) {
		name += Extension
	}
	base := filepath.Base(filepath.FromSlash(name))

	var found string
	err := afero.Walk(r.fs, r.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() || info.Name() != base {
			return nil
		}
		rel, relErr := filepath.Rel(r.root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if name != base && !strings.HasSuffix(rel, filepath.ToSlash(name)) {
			return nil
		}
		found = rel
		return fs.SkipAll
	})
	if err != nil && err != fs.SkipAll {
		return "", docerrors.New(docerrors.ErrCodeFileRead, "failed to search vault", err)
	}
	if found == "" {
		return "", docerrors.FileNotFound(name)
	}
	return found, nil
}

// ReadAuto locates a canvas by name (or relative path) and parses it.
func (r *Reader) ReadAuto(name string) (*Document, error) {
	rel, err := r.Find(name)
	if err != nil {
		return nil, err
	}
	return r.ReadFile(rel)
}

// ResolveReferencedFiles reads every file node's target relative to the root.
func (r *Reader) ResolveReferencedFiles(g *Graph) map[string]string {
	return ResolveReferencedFiles(r.fs, g, r.root)
}

// ResolveReferencedFiles maps each referenced path to its content or to a
// bracketed placeholder ("[File not found: p]", "[Error reading file: e]").
// It never fails, so callers can skip bad references without aborting.
func ResolveReferencedFiles(fsys afero.Fs, g *Graph, rootDir string) map[string]string {
	out := make(map[string]string)
	for _, n := range FileNodes(g) {
		p := n.File
		full, err := resolveUnder(rootDir, p)
		if err != nil {
			out[p] = fmt.Sprintf("[Error reading file: %v]", err)
			continue
		}

		info, err := fsys.Stat(full)
		if err != nil || info.IsDir() {
			out[p] = fmt.Sprintf("[File not found: %s]", p)
			continue
		}

		data, err := afero.ReadFile(fsys, full)
		if err != nil {
			out[p] = fmt.Sprintf("[Error reading file: %v]", err)
			continue
		}
		out[p] = string(data)
	}
	return out
}

// IsErrorMarker reports whether content is a placeholder from ResolveReferencedFiles.
func IsErrorMarker(content string) bool {
	return strings.HasPrefix(content, "[File not found: ") || strings.HasPrefix(content, "[Error reading file: ")
}
