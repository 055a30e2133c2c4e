package mcp

import (
	"path/filepath"
	"strings"
)

// mimeTypes maps vault file extensions to MIME types.
var mimeTypes = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".mdx":      "text/markdown",
	".txt":      "text/plain",
	".rst":      "text/x-rst",
	".html":     "text/html",
	".htm":      "text/html",
	".json":     "application/json",
	".jsonl":    "application/jsonl",
	".canvas":   "application/json",
	".yaml":     "text/x-yaml",
	".yml":      "text/x-yaml",
	".csv":      "text/csv",
}

// MimeTypeForPath returns the MIME type for a file path.
// Returns "text/plain" for unknown types.
func MimeTypeForPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if mime, ok := mimeTypes[ext]; ok {
		return mime
	}
	return "text/plain"
}
